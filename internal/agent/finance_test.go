package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kitbuilder587/leadscout/internal/llm"
	llmmock "github.com/kitbuilder587/leadscout/internal/llm/mock"
	"github.com/kitbuilder587/leadscout/internal/search"
	searchmock "github.com/kitbuilder587/leadscout/internal/search/mock"
)

func toolCallMsg(query string) llm.Message {
	return llm.Message{
		Role: llm.RoleAssistant,
		ToolCalls: []llm.ToolCall{{
			ID:   "call-1",
			Type: "function",
			Function: llm.FunctionCall{
				Name:      "search_web",
				Arguments: `{"query": "` + query + `"}`,
			},
		}},
	}
}

func answerMsg(content string) llm.Message {
	return llm.Message{Role: llm.RoleAssistant, Content: content}
}

func TestFinanceAgent_ExtractsOrgNumber(t *testing.T) {
	llmClient := llmmock.New().WithScript(
		toolCallMsg("acme organisationsnummer"),
		answerMsg("Acme AB is registered. Organisationsnummer: 559365-2604. Revenue grew 20% in 2024."),
	)
	searcher := searchmock.New("tavily").WithResults([]search.SearchResult{
		{Title: "allabolag", URL: "https://allabolag.se/acme", Content: "559365-2604"},
	})

	agent := New(llmClient, searcher, Config{}, zap.NewNop(), nil)

	report, err := agent.Lookup(context.Background(), "acme", "https://acme.se")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}

	// номер нормализуется без дефиса
	if report.OrgNumber != "5593652604" {
		t.Errorf("OrgNumber = %q, want 5593652604", report.OrgNumber)
	}
	if report.Iterations != 2 {
		t.Errorf("Iterations = %d, want 2", report.Iterations)
	}
	if !strings.Contains(report.Summary, "Revenue") {
		t.Errorf("Summary = %q, want financial text", report.Summary)
	}
	if searcher.CallCount != 1 {
		t.Errorf("search calls = %d, want 1", searcher.CallCount)
	}
}

func TestFinanceAgent_AcceptsNumberWithoutHyphen(t *testing.T) {
	llmClient := llmmock.New().WithScript(
		answerMsg("Organisationsnummer: 5593652604"),
	)

	agent := New(llmClient, searchmock.New("tavily"), Config{}, zap.NewNop(), nil)

	report, err := agent.Lookup(context.Background(), "acme", "https://acme.se")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if report.OrgNumber != "5593652604" {
		t.Errorf("OrgNumber = %q, want 5593652604", report.OrgNumber)
	}
}

func TestFinanceAgent_IterationCeiling(t *testing.T) {
	// модель всегда хочет искать - цикл обязан остановиться сам
	llmClient := llmmock.New().WithScript(toolCallMsg("acme financials"))
	searcher := searchmock.New("tavily").WithResults([]search.SearchResult{
		{Title: "r", URL: "https://example.com", Content: "text"},
	})

	agent := New(llmClient, searcher, Config{}, zap.NewNop(), nil)

	report, err := agent.Lookup(context.Background(), "acme", "https://acme.se")
	if err != nil {
		t.Fatalf("Lookup() error = %v, want nil on exhaustion", err)
	}

	if llmClient.CallCount != 5 {
		t.Errorf("llm calls = %d, want 5", llmClient.CallCount)
	}
	if report.OrgNumber != "" || report.Summary != "" {
		t.Errorf("exhausted report = %+v, want empty fields", report)
	}
	if report.Iterations != 5 {
		t.Errorf("Iterations = %d, want 5", report.Iterations)
	}
}

func TestFinanceAgent_ForcesAnswerNearCeiling(t *testing.T) {
	llmClient := llmmock.New().WithScript(toolCallMsg("q"))
	searcher := searchmock.New("tavily").WithResults([]search.SearchResult{
		{Title: "r", URL: "https://example.com", Content: "text"},
	})

	agent := New(llmClient, searcher, Config{}, zap.NewNop(), nil)
	agent.Lookup(context.Background(), "acme", "https://acme.se")

	// на последних итерациях tool_choice=none
	if llmClient.LastOptions.ToolChoice != llm.ToolChoiceNone {
		t.Errorf("final ToolChoice = %q, want none", llmClient.LastOptions.ToolChoice)
	}
}

func TestFinanceAgent_SearchFailureBecomesObservation(t *testing.T) {
	llmClient := llmmock.New().WithScript(
		toolCallMsg("acme"),
		answerMsg("Could not find reliable data."),
	)
	searcher := searchmock.New("tavily").WithError(errors.New("all search providers failed"))

	agent := New(llmClient, searcher, Config{}, zap.NewNop(), nil)

	report, err := agent.Lookup(context.Background(), "acme", "https://acme.se")
	if err != nil {
		t.Fatalf("Lookup() error = %v, search failure must not abort the loop", err)
	}
	if report.Iterations != 2 {
		t.Errorf("Iterations = %d, want 2", report.Iterations)
	}

	// наблюдение с фейлом должно попасть в транскрипт второго вызова
	second := llmClient.AllMessages[1]
	last := second[len(second)-1]
	if last.Role != llm.RoleTool || !strings.HasPrefix(last.Content, "search failed:") {
		t.Errorf("tool observation = %+v, want search failed prefix", last)
	}
	if last.ToolCallID != "call-1" {
		t.Errorf("ToolCallID = %q, want call-1", last.ToolCallID)
	}
}

func TestFinanceAgent_InvalidToolArguments(t *testing.T) {
	badCall := llm.Message{
		Role: llm.RoleAssistant,
		ToolCalls: []llm.ToolCall{{
			ID:       "call-1",
			Type:     "function",
			Function: llm.FunctionCall{Name: "search_web", Arguments: `not json`},
		}},
	}
	llmClient := llmmock.New().WithScript(badCall, answerMsg("done"))
	searcher := searchmock.New("tavily")

	agent := New(llmClient, searcher, Config{}, zap.NewNop(), nil)

	_, err := agent.Lookup(context.Background(), "acme", "https://acme.se")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if searcher.CallCount != 0 {
		t.Errorf("search calls = %d, want 0 for invalid arguments", searcher.CallCount)
	}
}

func TestFinanceAgent_LLMErrorAborts(t *testing.T) {
	llmClient := llmmock.New().WithError(errors.New("rate limited"))

	agent := New(llmClient, searchmock.New("tavily"), Config{}, zap.NewNop(), nil)

	_, err := agent.Lookup(context.Background(), "acme", "https://acme.se")
	if err == nil {
		t.Fatal("Lookup() expected error on llm failure")
	}
}
