package brave

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
	var gotToken, gotQuery, gotCount string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Subscription-Token")
		gotQuery = r.URL.Query().Get("q")
		gotCount = r.URL.Query().Get("count")

		json.NewEncoder(w).Encode(map[string]interface{}{
			"web": map[string]interface{}{
				"results": []map[string]string{
					{"title": "Acme", "url": "https://acme.se", "description": "logistics"},
					{"title": "Acme blog", "url": "https://blog.acme.se", "description": "news"},
					{"title": "Extra", "url": "https://extra.example.com", "description": "extra"},
				},
			},
		})
	}))
	defer server.Close()

	client := New(Config{APIKey: "test-token", BaseURL: server.URL}, zap.NewNop())

	resp, err := client.Search(context.Background(), search.SearchRequest{
		Query:      "acme",
		MaxResults: 2,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if gotToken != "test-token" {
		t.Errorf("X-Subscription-Token = %q, want %q", gotToken, "test-token")
	}
	if gotQuery != "acme" || gotCount != "2" {
		t.Errorf("query params q=%q count=%q, want acme/2", gotQuery, gotCount)
	}
	// count - подсказка для API, обрезаем сами на случай лишних результатов
	if len(resp.Results) != 2 {
		t.Errorf("Results = %d, want 2", len(resp.Results))
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
		{"unprocessable", http.StatusUnprocessableEntity, search.ErrInvalidRequest},
		{"server error", http.StatusInternalServerError, search.ErrSearchFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(`{"error":"boom"}`))
			}))
			defer server.Close()

			client := New(Config{APIKey: "test-token", BaseURL: server.URL}, zap.NewNop())

			_, err := client.Search(context.Background(), search.SearchRequest{Query: "q"})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Search() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
