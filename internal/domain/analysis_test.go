package domain

import (
	"strings"
	"testing"
)

func TestAnalysisRequest_Validate(t *testing.T) {
	long := strings.Repeat("a", 501)
	longField := strings.Repeat("b", 201)

	tests := []struct {
		name    string
		req     AnalysisRequest
		wantErr error
	}{
		{"valid with scheme", AnalysisRequest{URL: "https://example.com"}, nil},
		{"valid bare domain", AnalysisRequest{URL: "example.com"}, nil},
		{"valid with language", AnalysisRequest{URL: "example.com", Language: "sv"}, nil},
		{"empty", AnalysisRequest{URL: "   "}, ErrEmptyURL},
		{"too long", AnalysisRequest{URL: long}, ErrURLTooLong},
		{"no dot in host", AnalysisRequest{URL: "localhost"}, ErrInvalidURL},
		{"field too long", AnalysisRequest{URL: "example.com", Targeting: Targeting{ContactRole: longField}}, ErrFieldTooLong},
		{"unknown language", AnalysisRequest{URL: "example.com", Language: "fr"}, ErrBadLanguage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAnalysisRequest_Sanitize(t *testing.T) {
	req := AnalysisRequest{
		URL: "  Example.COM  ",
		Targeting: Targeting{
			ContactPerson: "  Jane Smith  ",
		},
	}
	req.Sanitize()

	if req.URL != "https://example.com" {
		t.Errorf("URL = %q, want https://example.com", req.URL)
	}
	if req.Targeting.ContactPerson != "jane smith" {
		t.Errorf("ContactPerson = %q, want jane smith", req.Targeting.ContactPerson)
	}
	if req.Language != "en" {
		t.Errorf("Language = %q, want en default", req.Language)
	}
}

func TestAnalysisRequest_Fingerprint(t *testing.T) {
	a := AnalysisRequest{
		URL:       "  Example.com ",
		Targeting: Targeting{ContactPerson: " Jane "},
	}
	b := AnalysisRequest{
		URL:       "example.com",
		Targeting: Targeting{ContactPerson: "jane"},
	}

	// регистр и пробелы не влияют на ключ
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("equivalent requests produced different fingerprints")
	}

	c := AnalysisRequest{URL: "example.com", Targeting: Targeting{ContactPerson: "john"}}
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("different targeting produced same fingerprint")
	}

	d := AnalysisRequest{URL: "example.com", Targeting: Targeting{ContactPerson: "jane"}, Language: "sv"}
	if b.Fingerprint() == d.Fingerprint() {
		t.Error("different language produced same fingerprint")
	}

	if !strings.HasPrefix(a.Fingerprint(), "analysis:") {
		t.Errorf("Fingerprint() = %q, want analysis: prefix", a.Fingerprint())
	}
}

func TestAnalysisRequest_FingerprintDefaultsLanguage(t *testing.T) {
	a := AnalysisRequest{URL: "example.com"}
	b := AnalysisRequest{URL: "example.com", Language: "en"}

	if a.Fingerprint() != b.Fingerprint() {
		t.Error("empty language should fingerprint as en")
	}
}

func TestAnalysisRequest_Hostname(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.example.com/about", "example.com"},
		{"example.com", "example.com"},
		{"HTTP://EXAMPLE.COM", "example.com"},
	}

	for _, tt := range tests {
		req := AnalysisRequest{URL: tt.url}
		if got := req.Hostname(); got != tt.want {
			t.Errorf("Hostname(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestAnalysisRequest_CompanyName(t *testing.T) {
	req := AnalysisRequest{URL: "https://www.acme.se"}
	if got := req.CompanyName(); got != "acme" {
		t.Errorf("CompanyName() = %q, want acme", got)
	}
}
