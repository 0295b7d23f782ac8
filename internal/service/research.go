package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/leadscout/internal/domain"
	"github.com/kitbuilder587/leadscout/internal/search"
)

// фиксированная заглушка для упавшей ветки - язык ответа задает промпт,
// поэтому строка нейтральная
const noDataPlaceholder = "no data available"

const websiteContentLimit = 6000

type researchSection struct {
	title   string
	content string
}

type researchBundle struct {
	sections         []researchSection
	sources          []domain.SourceRef
	orgNumber        string
	financialSummary string
}

type researchBranch struct {
	title string
	run   func(ctx context.Context) (string, []domain.SourceRef, error)
}

// gatherResearch запускает шесть веток параллельно и ждет все
// (settle-all, не fail-fast). Упавшая ветка получает заглушку и не трогает
// соседей. Исключение - исчерпание квоты: продолжать с молча деградировавшей
// точностью нельзя, вся агрегация рубится с ошибкой.
func (s *analyzerService) gatherResearch(ctx context.Context, req *domain.AnalysisRequest) (*researchBundle, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.SearchTimeout)
	defer cancel()

	company := req.CompanyName()
	branches := []researchBranch{
		{title: "Website content", run: func(ctx context.Context) (string, []domain.SourceRef, error) {
			return s.extractWebsite(ctx, req.URL)
		}},
		{title: "Company overview", run: s.searchBranch(fmt.Sprintf("%q company about", company))},
		{title: "Recent news", run: s.searchBranch(fmt.Sprintf("%q news", company))},
		{title: "LinkedIn presence", run: s.searchBranch(fmt.Sprintf("%q site:linkedin.com", company))},
		{title: "Customer reviews", run: s.searchBranch(fmt.Sprintf("%q customer reviews", company))},
	}

	bundle := &researchBundle{
		sections: make([]researchSection, len(branches)+1),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for i, b := range branches {
		i, b := i, b
		g.Go(func() error {
			content, refs, err := b.run(gctx)
			if err != nil {
				// квота - единственная ошибка, роняющая всю агрегацию
				if errors.Is(err, search.ErrQuotaExhausted) {
					return fmt.Errorf("research aborted: %w", err)
				}
				s.logger.Warn("research branch failed",
					zap.String("branch", b.title),
					zap.Error(err),
				)
				content = noDataPlaceholder
				refs = nil
			}

			mu.Lock()
			bundle.sections[i] = researchSection{title: b.title, content: content}
			bundle.sources = append(bundle.sources, refs...)
			mu.Unlock()
			return nil
		})
	}

	// шестая ветка: агентный lookup орг. номера и финансов
	g.Go(func() error {
		start := time.Now()
		report, err := s.finance.Lookup(gctx, company, req.URL)
		if err != nil {
			if errors.Is(err, search.ErrQuotaExhausted) {
				return fmt.Errorf("research aborted: %w", err)
			}
			s.logger.Warn("finance lookup failed",
				zap.String("company", company),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
			mu.Lock()
			bundle.sections[len(branches)] = researchSection{title: "Financials", content: noDataPlaceholder}
			mu.Unlock()
			return nil
		}

		content := report.Summary
		if content == "" {
			content = noDataPlaceholder
		}
		mu.Lock()
		bundle.sections[len(branches)] = researchSection{title: "Financials", content: content}
		bundle.orgNumber = report.OrgNumber
		bundle.financialSummary = report.Summary
		mu.Unlock()
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return bundle, nil
}

func (s *analyzerService) searchBranch(query string) func(ctx context.Context) (string, []domain.SourceRef, error) {
	return func(ctx context.Context) (string, []domain.SourceRef, error) {
		resp, err := s.search.Search(ctx, search.SearchRequest{
			Query:      query,
			MaxResults: s.config.MaxResults,
		})
		if err != nil {
			return "", nil, err
		}
		if len(resp.Results) == 0 {
			return noDataPlaceholder, nil, nil
		}

		var sb strings.Builder
		refs := make([]domain.SourceRef, 0, len(resp.Results))
		for i, r := range resp.Results {
			fmt.Fprintf(&sb, "[%d] %s\n%s\n%s\n\n", i+1, r.Title, r.URL, r.Content)
			refs = append(refs, domain.SourceRef{Title: r.Title, URL: r.URL})
		}
		return strings.TrimSpace(sb.String()), refs, nil
	}
}

func (s *analyzerService) extractWebsite(ctx context.Context, url string) (string, []domain.SourceRef, error) {
	result, err := s.search.Extract(ctx, url)
	if err != nil {
		return "", nil, err
	}

	content := strings.TrimSpace(result.RawContent)
	if content == "" {
		return noDataPlaceholder, nil, nil
	}
	if len(content) > websiteContentLimit {
		content = content[:websiteContentLimit]
	}

	return content, []domain.SourceRef{{Title: "Website", URL: url}}, nil
}
