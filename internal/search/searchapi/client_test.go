package searchapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kitbuilder587/leadscout/internal/search"
)

func TestClient_Search(t *testing.T) {
	var gotAuth, gotEngine string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotEngine = r.URL.Query().Get("engine")

		json.NewEncoder(w).Encode(map[string]interface{}{
			"organic_results": []map[string]string{
				{"title": "Acme", "link": "https://acme.se", "snippet": "logistics"},
			},
		})
	}))
	defer server.Close()

	client := New(Config{APIKey: "test-key", BaseURL: server.URL}, zap.NewNop())

	resp, err := client.Search(context.Background(), search.SearchRequest{Query: "acme"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer test-key")
	}
	if gotEngine != "google" {
		t.Errorf("engine = %q, want google", gotEngine)
	}
	if len(resp.Results) != 1 || resp.Results[0].URL != "https://acme.se" {
		t.Errorf("Results = %+v", resp.Results)
	}
}

func TestClient_Search_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    error
	}{
		{"unauthorized", http.StatusUnauthorized, search.ErrUnauthorized},
		{"rate limit", http.StatusTooManyRequests, search.ErrRateLimit},
		{"quota exhausted", http.StatusPaymentRequired, search.ErrQuotaExhausted},
		{"bad request", http.StatusBadRequest, search.ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(`{"error":"boom"}`))
			}))
			defer server.Close()

			client := New(Config{APIKey: "test-key", BaseURL: server.URL}, zap.NewNop())

			_, err := client.Search(context.Background(), search.SearchRequest{Query: "q"})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Search() error = %v, want %v", err, tt.wantErr)
			}

			var pe *search.ProviderError
			if !errors.As(err, &pe) {
				t.Fatalf("Search() error type = %T, want *search.ProviderError", err)
			}
			if pe.Message != "boom" {
				t.Errorf("ProviderError.Message = %q, want boom", pe.Message)
			}
		})
	}
}
