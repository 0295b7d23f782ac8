package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/leadscout/internal/agent"
	"github.com/kitbuilder587/leadscout/internal/cache"
	"github.com/kitbuilder587/leadscout/internal/domain"
	"github.com/kitbuilder587/leadscout/internal/llm"
	"github.com/kitbuilder587/leadscout/internal/metrics"
	"github.com/kitbuilder587/leadscout/internal/orchestrator"
	"github.com/kitbuilder587/leadscout/internal/search"
	"github.com/kitbuilder587/leadscout/internal/validate"
)

type SearchOrchestrator interface {
	Search(ctx context.Context, req search.SearchRequest) (*search.SearchResponse, error)
	Extract(ctx context.Context, url string) (*search.ExtractResult, error)
	Stats() []orchestrator.ProviderStats
}

type DomainValidator interface {
	Validate(ctx context.Context, hostname string) validate.Result
}

type FinanceLookup interface {
	Lookup(ctx context.Context, companyName, website string) (*agent.FinanceReport, error)
}

type AnalyzerService interface {
	Analyze(ctx context.Context, req *domain.AnalysisRequest) (*domain.AnalysisResult, error)
	Stats() Stats
}

type Stats struct {
	Cache     cache.Stats
	Providers []orchestrator.ProviderStats
}

type AnalyzerConfig struct {
	CacheTTL      time.Duration
	SearchTimeout time.Duration
	TotalTimeout  time.Duration
	MaxResults    int
}

// AnalyzerDeps - зависимости сервиса. Все инстансы создает и владеет ими
// точка входа, глобальных синглтонов нет.
type AnalyzerDeps struct {
	Search  SearchOrchestrator
	LLM     llm.Client
	Cache   cache.Cache
	Finance FinanceLookup
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Config  AnalyzerConfig

	// опционально: гейт существования домена перед дорогим пайплайном
	Validator DomainValidator
}

type analyzerService struct {
	search    SearchOrchestrator
	llm       llm.Client
	cache     cache.Cache
	finance   FinanceLookup
	validator DomainValidator
	logger    *zap.Logger
	metrics   *metrics.Metrics
	config    AnalyzerConfig
}

func NewAnalyzerService(deps AnalyzerDeps) AnalyzerService {
	if deps.Config.CacheTTL == 0 {
		deps.Config.CacheTTL = time.Hour
	}
	if deps.Config.SearchTimeout == 0 {
		deps.Config.SearchTimeout = 45 * time.Second
	}
	if deps.Config.TotalTimeout == 0 {
		deps.Config.TotalTimeout = 3 * time.Minute
	}
	if deps.Config.MaxResults == 0 {
		deps.Config.MaxResults = 5
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &analyzerService{
		search:    deps.Search,
		llm:       deps.LLM,
		cache:     deps.Cache,
		finance:   deps.Finance,
		validator: deps.Validator,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		config:    deps.Config,
	}
}

func (s *analyzerService) Analyze(ctx context.Context, req *domain.AnalysisRequest) (*domain.AnalysisResult, error) {
	startTime := time.Now()

	if s.metrics != nil {
		s.metrics.IncRequestsInFlight()
		defer s.metrics.DecRequestsInFlight()
	}

	// валидация строго до любой сетевой активности
	if err := req.Validate(); err != nil {
		if s.metrics != nil {
			s.metrics.RecordRequest("analyze", "validation_error", time.Since(startTime))
		}
		return nil, err
	}
	req.Sanitize()

	ctx, cancel := context.WithTimeout(ctx, s.config.TotalTimeout)
	defer cancel()

	s.logger.Info("processing analysis",
		zap.String("url", req.URL),
		zap.String("language", req.Language),
	)

	key := req.Fingerprint()
	if cached, ok := s.cache.Get(key); ok {
		if result, ok := cached.(*domain.AnalysisResult); ok {
			if s.metrics != nil {
				s.metrics.RecordCacheHit()
				s.metrics.RecordRequest("analyze", "cache_hit", time.Since(startTime))
			}
			s.logger.Info("analysis served from cache", zap.String("url", req.URL))
			return result, nil
		}
	}
	if s.metrics != nil {
		s.metrics.RecordCacheMiss()
	}

	if s.validator != nil {
		v := s.validator.Validate(ctx, req.Hostname())
		if !v.Exists && !v.Offline {
			if s.metrics != nil {
				s.metrics.RecordRequest("analyze", "domain_missing", time.Since(startTime))
			}
			if v.Suggestion != "" {
				return nil, fmt.Errorf("%w: %s (did you mean %s?)", domain.ErrDomainMissing, req.Hostname(), v.Suggestion)
			}
			return nil, fmt.Errorf("%w: %s", domain.ErrDomainMissing, req.Hostname())
		}
		// offline-вердикт не блокирует: резолвер мог просто тормозить
	}

	research, err := s.gatherResearch(ctx, req)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordRequest("analyze", "research_error", time.Since(startTime))
		}
		return nil, err
	}

	result, err := s.runAnalysis(ctx, req, research)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordRequest("analyze", "llm_error", time.Since(startTime))
		}
		return nil, err
	}

	result.Language = req.Language
	result.Sources = research.sources

	s.cache.SetTTL(key, result, s.config.CacheTTL)

	s.logger.Info("analysis completed",
		zap.String("url", req.URL),
		zap.Int("sources", len(result.Sources)),
		zap.Duration("duration", time.Since(startTime)),
	)
	if s.metrics != nil {
		s.metrics.RecordRequest("analyze", "success", time.Since(startTime))
	}

	return result, nil
}

func (s *analyzerService) runAnalysis(ctx context.Context, req *domain.AnalysisRequest, research *researchBundle) (*domain.AnalysisResult, error) {
	systemPrompt := analysisSystemPrompt(req.Language)
	userPrompt := buildAnalysisPrompt(req, research)

	llmStart := time.Now()
	response, err := s.llm.CompleteWithSystem(ctx, systemPrompt, userPrompt)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordLLMRequest("openrouter", "error", time.Since(llmStart))
		}
		s.logger.Error("analysis LLM call failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrLLMFailed, err)
	}
	if s.metrics != nil {
		s.metrics.RecordLLMRequest("openrouter", "success", time.Since(llmStart))
	}

	result := parseAnalysisResponse(response)

	// номер и финансы из агента надежнее, чем из свободного текста модели
	if research.orgNumber != "" {
		result.OrgNumber = research.orgNumber
	}
	if result.FinancialSummary == "" {
		result.FinancialSummary = research.financialSummary
	}

	return result, nil
}

func analysisSystemPrompt(language string) string {
	return fmt.Sprintf(`You are a B2B sales intelligence analyst. Using ONLY the provided research, produce outreach intelligence for the company.

Respond with JSON only, no markdown fences, matching exactly:
{"summary": "...", "ice_breakers": ["..."], "pain_points": ["..."], "sales_hooks": ["..."], "tone": "...", "org_number": "...", "financial_summary": "..."}

Write all values in the language with ISO code %q. Unknown fields stay empty strings or empty arrays. Be specific, never generic.`, language)
}

func buildAnalysisPrompt(req *domain.AnalysisRequest, research *researchBundle) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Company website: %s\n\n", req.URL)

	t := req.Targeting
	if t.ContactPerson != "" || t.ContactRole != "" || t.OwnCompany != "" || t.OwnProduct != "" || t.MeetingPurpose != "" {
		sb.WriteString("Targeting:\n")
		writeField(&sb, "Contact person", t.ContactPerson)
		writeField(&sb, "Contact role", t.ContactRole)
		writeField(&sb, "Our company", t.OwnCompany)
		writeField(&sb, "Our product", t.OwnProduct)
		writeField(&sb, "Meeting purpose", t.MeetingPurpose)
		sb.WriteString("\n")
	}

	for _, section := range research.sections {
		fmt.Fprintf(&sb, "=== %s ===\n%s\n\n", section.title, section.content)
	}

	return sb.String()
}

func writeField(sb *strings.Builder, name, value string) {
	if value != "" {
		fmt.Fprintf(sb, "- %s: %s\n", name, value)
	}
}

// parseAnalysisResponse терпимо относится к markdown-заборам и мусору
// вокруг JSON; совсем непарсибельный ответ уходит сырым текстом в summary
func parseAnalysisResponse(response string) *domain.AnalysisResult {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if start := strings.Index(cleaned, "{"); start > 0 {
		cleaned = cleaned[start:]
	}
	if end := strings.LastIndex(cleaned, "}"); end >= 0 && end < len(cleaned)-1 {
		cleaned = cleaned[:end+1]
	}

	var result domain.AnalysisResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return &domain.AnalysisResult{Summary: strings.TrimSpace(response)}
	}
	return &result
}

func (s *analyzerService) Stats() Stats {
	return Stats{
		Cache:     s.cache.Stats(),
		Providers: s.search.Stats(),
	}
}
