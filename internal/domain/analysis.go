package domain

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

const (
	MaxURLLength   = 500
	MaxFieldLength = 200
)

// пять опциональных полей таргетинга для более точного анализа
type Targeting struct {
	ContactPerson  string
	ContactRole    string
	OwnCompany     string
	OwnProduct     string
	MeetingPurpose string
}

type AnalysisRequest struct {
	URL       string
	Targeting Targeting
	Language  string
}

var supportedLanguages = map[string]bool{
	"en": true,
	"sv": true,
	"ru": true,
	"de": true,
}

func (r *AnalysisRequest) Validate() error {
	trimmed := strings.TrimSpace(r.URL)
	if trimmed == "" {
		return ErrEmptyURL
	}
	if len(trimmed) > MaxURLLength {
		return ErrURLTooLong
	}

	u, err := url.Parse(normalizeURL(trimmed))
	if err != nil || u.Hostname() == "" || !strings.Contains(u.Hostname(), ".") {
		return ErrInvalidURL
	}

	for _, f := range r.Targeting.fields() {
		if len(f) > MaxFieldLength {
			return ErrFieldTooLong
		}
	}

	if r.Language != "" && !supportedLanguages[strings.ToLower(strings.TrimSpace(r.Language))] {
		return ErrBadLanguage
	}

	return nil
}

// Sanitize приводит запрос к канонической форме. Вызывать после Validate.
func (r *AnalysisRequest) Sanitize() {
	r.URL = strings.ToLower(normalizeURL(strings.TrimSpace(r.URL)))
	r.Targeting.ContactPerson = canonField(r.Targeting.ContactPerson)
	r.Targeting.ContactRole = canonField(r.Targeting.ContactRole)
	r.Targeting.OwnCompany = canonField(r.Targeting.OwnCompany)
	r.Targeting.OwnProduct = canonField(r.Targeting.OwnProduct)
	r.Targeting.MeetingPurpose = canonField(r.Targeting.MeetingPurpose)
	r.Language = strings.ToLower(strings.TrimSpace(r.Language))
	if r.Language == "" {
		r.Language = "en"
	}
}

// Hostname возвращает хост без www. Пустая строка если URL кривой.
func (r *AnalysisRequest) Hostname() string {
	u, err := url.Parse(normalizeURL(strings.TrimSpace(r.URL)))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// CompanyName - грубая эвристика: хост без TLD
func (r *AnalysisRequest) CompanyName() string {
	host := r.Hostname()
	if idx := strings.Index(host, "."); idx > 0 {
		return host[:idx]
	}
	return host
}

// Fingerprint - детерминированный ключ кеша: sha256 от канонического JSON
// (URL, таргетинг, язык). Одинаковые логические запросы дают одинаковый ключ
// независимо от регистра и пробелов.
func (r *AnalysisRequest) Fingerprint() string {
	canonical := struct {
		URL      string `json:"url"`
		Contact  string `json:"contact"`
		Role     string `json:"role"`
		Company  string `json:"company"`
		Product  string `json:"product"`
		Purpose  string `json:"purpose"`
		Language string `json:"language"`
	}{
		URL:      strings.ToLower(normalizeURL(strings.TrimSpace(r.URL))),
		Contact:  canonField(r.Targeting.ContactPerson),
		Role:     canonField(r.Targeting.ContactRole),
		Company:  canonField(r.Targeting.OwnCompany),
		Product:  canonField(r.Targeting.OwnProduct),
		Purpose:  canonField(r.Targeting.MeetingPurpose),
		Language: strings.ToLower(strings.TrimSpace(defaultLang(r.Language))),
	}

	data, _ := json.Marshal(canonical)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("analysis:%x", hash[:16])
}

func (t Targeting) fields() []string {
	return []string{t.ContactPerson, t.ContactRole, t.OwnCompany, t.OwnProduct, t.MeetingPurpose}
}

func canonField(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func defaultLang(l string) string {
	if strings.TrimSpace(l) == "" {
		return "en"
	}
	return l
}

func normalizeURL(raw string) string {
	if raw == "" {
		return raw
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return "https://" + raw
	}
	return raw
}

type AnalysisResult struct {
	Summary          string   `json:"summary"`
	IceBreakers      []string `json:"ice_breakers"`
	PainPoints       []string `json:"pain_points"`
	SalesHooks       []string `json:"sales_hooks"`
	Tone             string   `json:"tone"`
	OrgNumber        string   `json:"org_number"`
	FinancialSummary string   `json:"financial_summary"`

	Language string      `json:"-"`
	Sources  []SourceRef `json:"-"`
}

type SourceRef struct {
	Title string
	URL   string
}
