package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/kitbuilder587/leadscout/internal/llm"
	"github.com/kitbuilder587/leadscout/internal/metrics"
	"github.com/kitbuilder587/leadscout/internal/search"
)

const (
	// жесткий потолок вызовов модели за один lookup
	maxIterations = 5
	// с этой итерации tool_choice=none - модель обязана дать финальный ответ
	forceAnswerAt = 4
	// бюджет на одно tool-наблюдение, защищает контекстное окно
	observationLimit = 8000
)

// шведский организационный номер: 6+4 цифры, дефис опционален
var orgNumberRe = regexp.MustCompile(`(\d{6})-?(\d{4})`)

// FinanceReport - результат lookup'а. Пустые поля - валидный деградированный
// исход (потолок итераций исчерпан или номер не нашелся), не ошибка.
type FinanceReport struct {
	OrgNumber  string
	Summary    string
	Iterations int
}

type Searcher interface {
	Search(ctx context.Context, req search.SearchRequest) (*search.SearchResponse, error)
}

type Config struct {
	MaxIterations int
}

// FinanceAgent гоняет LLM по циклу "подумай - поищи - посмотри" и вытаскивает
// организационный номер и финансовую сводку компании из открытого поиска.
type FinanceAgent struct {
	llm           llm.Client
	searcher      Searcher
	maxIterations int
	logger        *zap.Logger
	metrics       *metrics.Metrics
}

func New(llmClient llm.Client, searcher Searcher, cfg Config, logger *zap.Logger, m *metrics.Metrics) *FinanceAgent {
	if cfg.MaxIterations <= 0 || cfg.MaxIterations > maxIterations {
		cfg.MaxIterations = maxIterations
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FinanceAgent{
		llm:           llmClient,
		searcher:      searcher,
		maxIterations: cfg.MaxIterations,
		logger:        logger,
		metrics:       m,
	}
}

var searchTool = llm.Tool{
	Type: "function",
	Function: llm.FunctionDef{
		Name:        "search_web",
		Description: "Search the web. Returns titles, URLs and text snippets.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "Search query"}
			},
			"required": ["query"]
		}`),
	},
}

const lookupSystemPrompt = `You are a company research assistant. Find the Swedish organisationsnummer (10 digits, format NNNNNN-NNNN) and a short financial summary (revenue, profit, employees, trend) for the given company. Use the search_web tool as needed. When done, answer in plain text and always state the number as "Organisationsnummer: NNNNNN-NNNN" if you found it.`

// Lookup ведет ограниченный агентный цикл. Транскрипт накапливается по
// итерациям; единственное терминальное состояние - ответ без tool calls.
// Исчерпание потолка молча возвращает то, что успели собрать.
func (a *FinanceAgent) Lookup(ctx context.Context, companyName, website string) (*FinanceReport, error) {
	transcript := []llm.Message{
		{Role: llm.RoleSystem, Content: lookupSystemPrompt},
		{Role: llm.RoleUser, Content: fmt.Sprintf("Company: %s\nWebsite: %s", companyName, website)},
	}

	for i := 1; i <= a.maxIterations; i++ {
		opts := llm.ChatOptions{
			Tools:      []llm.Tool{searchTool},
			ToolChoice: llm.ToolChoiceAuto,
		}
		// ближе к потолку запрещаем tool calls, иначе модель может
		// запрашивать поиск бесконечно
		if i >= forceAnswerAt {
			opts.ToolChoice = llm.ToolChoiceNone
		}

		msg, err := a.llm.Chat(ctx, transcript, opts)
		if err != nil {
			return nil, fmt.Errorf("agent chat (iteration %d): %w", i, err)
		}

		if len(msg.ToolCalls) == 0 {
			report := a.finalReport(msg.Content, i)
			a.logger.Info("finance lookup completed",
				zap.String("company", companyName),
				zap.Int("iterations", i),
				zap.Bool("org_number_found", report.OrgNumber != ""),
			)
			if a.metrics != nil {
				a.metrics.RecordAgentIterations(i)
			}
			return report, nil
		}

		transcript = append(transcript, *msg)

		// каждый запрошенный вызов исполняем отдельно: упавший поиск дает
		// failure-наблюдение и не роняет ни соседей по батчу, ни цикл
		for _, call := range msg.ToolCalls {
			observation := a.runToolCall(ctx, call)
			transcript = append(transcript, llm.Message{
				Role:       llm.RoleTool,
				Content:    observation,
				ToolCallID: call.ID,
			})
		}
	}

	// потолок: возвращаем что есть, без ошибки
	a.logger.Warn("finance lookup exhausted iteration limit",
		zap.String("company", companyName),
		zap.Int("max_iterations", a.maxIterations),
	)
	if a.metrics != nil {
		a.metrics.RecordAgentIterations(a.maxIterations)
	}
	return &FinanceReport{Iterations: a.maxIterations}, nil
}

func (a *FinanceAgent) runToolCall(ctx context.Context, call llm.ToolCall) string {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil || strings.TrimSpace(args.Query) == "" {
		return "search failed: invalid arguments"
	}

	resp, err := a.searcher.Search(ctx, search.SearchRequest{
		Query:      args.Query,
		MaxResults: 5,
	})
	if err != nil {
		a.logger.Warn("agent search failed",
			zap.String("query", args.Query),
			zap.Error(err),
		)
		return "search failed: " + err.Error()
	}

	return formatObservation(resp.Results)
}

func formatObservation(results []search.SearchResult) string {
	if len(results) == 0 {
		return "no results"
	}

	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "[%d] %s\n%s\n%s\n\n", i+1, r.Title, r.URL, r.Content)
	}

	s := sb.String()
	if len(s) > observationLimit {
		s = s[:observationLimit]
	}
	return s
}

func (a *FinanceAgent) finalReport(content string, iterations int) *FinanceReport {
	report := &FinanceReport{
		Summary:    strings.TrimSpace(content),
		Iterations: iterations,
	}

	if m := orgNumberRe.FindStringSubmatch(content); m != nil {
		// нормализуем без дефиса
		report.OrgNumber = m[1] + m[2]
	}

	return report
}
