package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kitbuilder587/leadscout/internal/agent"
	"github.com/kitbuilder587/leadscout/internal/cache/memory"
	"github.com/kitbuilder587/leadscout/internal/domain"
	llmmock "github.com/kitbuilder587/leadscout/internal/llm/mock"
	"github.com/kitbuilder587/leadscout/internal/orchestrator"
	"github.com/kitbuilder587/leadscout/internal/search"
	searchmock "github.com/kitbuilder587/leadscout/internal/search/mock"
	"github.com/kitbuilder587/leadscout/internal/validate"
)

type fakeFinance struct {
	report *agent.FinanceReport
	err    error
	calls  int
}

func (f *fakeFinance) Lookup(ctx context.Context, companyName, website string) (*agent.FinanceReport, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.report != nil {
		return f.report, nil
	}
	return &agent.FinanceReport{}, nil
}

type fakeValidator struct {
	result validate.Result
}

func (f *fakeValidator) Validate(ctx context.Context, hostname string) validate.Result {
	return f.result
}

const analysisJSON = `{"summary": "Acme does logistics", "ice_breakers": ["Saw your new warehouse"], "pain_points": ["manual routing"], "sales_hooks": ["cut costs 20%"], "tone": "formal", "org_number": "", "financial_summary": ""}`

func newTestService(t *testing.T, provider *searchmock.Client, llmClient *llmmock.Client, finance FinanceLookup) (AnalyzerService, *memory.Cache) {
	t.Helper()

	provider.ExtractContent = "Acme AB builds logistics software for Nordic retailers."

	orch, err := orchestrator.NewWithProviders(
		[]search.Provider{provider}, provider, nil, zap.NewNop(), nil,
	)
	if err != nil {
		t.Fatalf("NewWithProviders() error = %v", err)
	}

	c := memory.New(memory.Config{})
	t.Cleanup(c.Stop)

	svc := NewAnalyzerService(AnalyzerDeps{
		Search:  orch,
		LLM:     llmClient,
		Cache:   c,
		Finance: finance,
		Logger:  zap.NewNop(),
	})
	return svc, c
}

func TestAnalyzer_Success(t *testing.T) {
	provider := searchmock.New("tavily").WithResults([]search.SearchResult{
		{Title: "Acme", URL: "https://acme.se", Content: "logistics company"},
	})
	llmClient := llmmock.New().WithResponse(analysisJSON)
	finance := &fakeFinance{report: &agent.FinanceReport{
		OrgNumber: "5593652604",
		Summary:   "Revenue 120 MSEK, 45 employees, growing",
	}}

	svc, _ := newTestService(t, provider, llmClient, finance)

	result, err := svc.Analyze(context.Background(), &domain.AnalysisRequest{URL: "https://acme.se"})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if result.Summary != "Acme does logistics" {
		t.Errorf("Summary = %q", result.Summary)
	}
	if len(result.IceBreakers) != 1 {
		t.Errorf("IceBreakers = %v", result.IceBreakers)
	}
	// номер из агента перебивает ответ модели
	if result.OrgNumber != "5593652604" {
		t.Errorf("OrgNumber = %q, want agent value", result.OrgNumber)
	}
	if result.FinancialSummary != "Revenue 120 MSEK, 45 employees, growing" {
		t.Errorf("FinancialSummary = %q", result.FinancialSummary)
	}
	if result.Language != "en" {
		t.Errorf("Language = %q, want en", result.Language)
	}
	if len(result.Sources) == 0 {
		t.Error("Sources is empty")
	}
	if finance.calls != 1 {
		t.Errorf("finance calls = %d, want 1", finance.calls)
	}
	// 4 поисковых ветки + extract
	if provider.CallCount != 4 {
		t.Errorf("search calls = %d, want 4", provider.CallCount)
	}
	if provider.ExtractCallCount != 1 {
		t.Errorf("extract calls = %d, want 1", provider.ExtractCallCount)
	}
}

func TestAnalyzer_SecondCallServedFromCache(t *testing.T) {
	provider := searchmock.New("tavily").WithResults([]search.SearchResult{
		{Title: "Acme", URL: "https://acme.se", Content: "logistics"},
	})
	llmClient := llmmock.New().WithResponse(analysisJSON)
	finance := &fakeFinance{}

	svc, _ := newTestService(t, provider, llmClient, finance)

	req := &domain.AnalysisRequest{URL: "https://acme.se"}
	first, err := svc.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("first Analyze() error = %v", err)
	}

	searchCalls := provider.CallCount
	llmCalls := llmClient.CallCount

	// эквивалентный запрос в другом регистре - тот же fingerprint
	second, err := svc.Analyze(context.Background(), &domain.AnalysisRequest{URL: "  ACME.se "})
	if err != nil {
		t.Fatalf("second Analyze() error = %v", err)
	}

	if second != first {
		t.Error("second call should return the cached result")
	}
	if provider.CallCount != searchCalls {
		t.Errorf("search calls grew %d -> %d on cache hit", searchCalls, provider.CallCount)
	}
	if llmClient.CallCount != llmCalls {
		t.Errorf("llm calls grew %d -> %d on cache hit", llmCalls, llmClient.CallCount)
	}
}

func TestAnalyzer_ValidationBeforeNetwork(t *testing.T) {
	provider := searchmock.New("tavily")
	svc, _ := newTestService(t, provider, llmmock.New(), &fakeFinance{})

	_, err := svc.Analyze(context.Background(), &domain.AnalysisRequest{URL: "   "})
	if !errors.Is(err, domain.ErrEmptyURL) {
		t.Fatalf("Analyze() error = %v, want ErrEmptyURL", err)
	}
	if provider.CallCount != 0 || provider.ExtractCallCount != 0 {
		t.Error("invalid request must not reach the network")
	}
}

func TestAnalyzer_FailedBranchGetsPlaceholder(t *testing.T) {
	// поиск лежит, но extract и агент живы - анализ продолжается
	provider := searchmock.New("tavily").WithError(errors.New("upstream down"))
	llmClient := llmmock.New().WithResponse(analysisJSON)

	svc, _ := newTestService(t, provider, llmClient, &fakeFinance{})

	result, err := svc.Analyze(context.Background(), &domain.AnalysisRequest{URL: "https://acme.se"})
	if err != nil {
		t.Fatalf("Analyze() error = %v, failed branches must degrade not abort", err)
	}
	if result == nil {
		t.Fatal("Analyze() returned nil result")
	}

	if !strings.Contains(llmClient.LastPrompt, noDataPlaceholder) {
		t.Error("failed branches should appear as placeholder in the prompt")
	}
	if !strings.Contains(llmClient.LastPrompt, "Acme AB builds logistics software") {
		t.Error("extract content missing from the prompt")
	}
}

func TestAnalyzer_QuotaExhaustionAborts(t *testing.T) {
	quotaErr := &search.ProviderError{Provider: "tavily", Status: 402, Err: search.ErrQuotaExhausted}
	provider := searchmock.New("tavily").WithError(quotaErr)
	provider.ExtractErr = quotaErr

	svc, _ := newTestService(t, provider, llmmock.New(), &fakeFinance{})

	_, err := svc.Analyze(context.Background(), &domain.AnalysisRequest{URL: "https://acme.se"})
	if err == nil {
		t.Fatal("Analyze() expected error on quota exhaustion")
	}
	if !errors.Is(err, search.ErrQuotaExhausted) {
		t.Errorf("Analyze() error = %v, want ErrQuotaExhausted in chain", err)
	}
}

func TestAnalyzer_DomainMissingBlocksAnalysis(t *testing.T) {
	provider := searchmock.New("tavily").WithResults([]search.SearchResult{
		{Title: "Acme", URL: "https://acme.se", Content: "x"},
	})
	provider.ExtractContent = "content"

	orch, _ := orchestrator.NewWithProviders([]search.Provider{provider}, provider, nil, zap.NewNop(), nil)
	c := memory.New(memory.Config{})
	t.Cleanup(c.Stop)

	svc := NewAnalyzerService(AnalyzerDeps{
		Search:  orch,
		LLM:     llmmock.New().WithResponse(analysisJSON),
		Cache:   c,
		Finance: &fakeFinance{},
		Validator: &fakeValidator{result: validate.Result{
			Exists:     false,
			Suggestion: "acme.com",
		}},
		Logger: zap.NewNop(),
	})

	_, err := svc.Analyze(context.Background(), &domain.AnalysisRequest{URL: "https://acme.con"})
	if !errors.Is(err, domain.ErrDomainMissing) {
		t.Fatalf("Analyze() error = %v, want ErrDomainMissing", err)
	}
	if !strings.Contains(err.Error(), "acme.com") {
		t.Errorf("error %q should carry the suggestion", err.Error())
	}
	if provider.CallCount != 0 {
		t.Error("missing domain must not trigger research")
	}
}

func TestAnalyzer_OfflineDomainDoesNotBlock(t *testing.T) {
	provider := searchmock.New("tavily").WithResults([]search.SearchResult{
		{Title: "Acme", URL: "https://acme.se", Content: "x"},
	})
	provider.ExtractContent = "content"

	orch, _ := orchestrator.NewWithProviders([]search.Provider{provider}, provider, nil, zap.NewNop(), nil)
	c := memory.New(memory.Config{})
	t.Cleanup(c.Stop)

	svc := NewAnalyzerService(AnalyzerDeps{
		Search:    orch,
		LLM:       llmmock.New().WithResponse(analysisJSON),
		Cache:     c,
		Finance:   &fakeFinance{},
		Validator: &fakeValidator{result: validate.Result{Offline: true}},
		Logger:    zap.NewNop(),
	})

	_, err := svc.Analyze(context.Background(), &domain.AnalysisRequest{URL: "https://acme.se"})
	if err != nil {
		t.Fatalf("Analyze() error = %v, offline verdict must not block", err)
	}
}

func TestAnalyzer_RawTextFallback(t *testing.T) {
	provider := searchmock.New("tavily").WithResults([]search.SearchResult{
		{Title: "Acme", URL: "https://acme.se", Content: "x"},
	})
	llmClient := llmmock.New().WithResponse("Acme is a logistics company, plain text answer.")

	svc, _ := newTestService(t, provider, llmClient, &fakeFinance{})

	result, err := svc.Analyze(context.Background(), &domain.AnalysisRequest{URL: "https://acme.se"})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if result.Summary != "Acme is a logistics company, plain text answer." {
		t.Errorf("Summary = %q, want raw text fallback", result.Summary)
	}
}

func TestParseAnalysisResponse_MarkdownFences(t *testing.T) {
	wrapped := "```json\n" + analysisJSON + "\n```"
	result := parseAnalysisResponse(wrapped)
	if result.Summary != "Acme does logistics" {
		t.Errorf("Summary = %q, fences should be stripped", result.Summary)
	}
}

func TestAnalyzer_Stats(t *testing.T) {
	provider := searchmock.New("tavily").WithResults([]search.SearchResult{
		{Title: "Acme", URL: "https://acme.se", Content: "x"},
	})
	svc, _ := newTestService(t, provider, llmmock.New().WithResponse(analysisJSON), &fakeFinance{})

	svc.Analyze(context.Background(), &domain.AnalysisRequest{URL: "https://acme.se"})

	stats := svc.Stats()
	if len(stats.Providers) != 1 || stats.Providers[0].Name != "tavily" {
		t.Errorf("Providers = %+v", stats.Providers)
	}
	if stats.Providers[0].Searches == 0 {
		t.Error("provider Searches = 0 after analysis")
	}
	if stats.Cache.Misses == 0 {
		t.Error("cache Misses = 0 after analysis")
	}
}
