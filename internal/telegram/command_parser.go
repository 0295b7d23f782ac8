package telegram

import (
	"strings"

	"github.com/kitbuilder587/leadscout/internal/domain"
)

// /analyze https://example.com [lang] -> запрос на анализ
// обычное сообщение с URL в первой строке работает так же
//
// таргетинг - опциональные строки ниже URL вида "ключ: значение":
//
//	contact: Jane Smith
//	role: CTO
//	company: Acme AB
//	product: CRM для логистики
//	purpose: демо продукта
func ParseAnalyzeCommand(text, defaultLang string) (*domain.AnalysisRequest, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}

	lines := strings.Split(text, "\n")
	first := normalizeSpaces(lines[0])

	if strings.HasPrefix(first, "/") {
		parts := strings.SplitN(first, " ", 2)
		if strings.ToLower(parts[0]) != "/analyze" {
			return nil, false
		}
		if len(parts) < 2 {
			return nil, false
		}
		first = parts[1]
	}

	fields := strings.Fields(first)
	if len(fields) == 0 || !looksLikeURL(fields[0]) {
		return nil, false
	}

	req := &domain.AnalysisRequest{
		URL:      fields[0],
		Language: defaultLang,
	}
	if len(fields) > 1 && len(fields[1]) == 2 {
		req.Language = strings.ToLower(fields[1])
	}

	for _, line := range lines[1:] {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "contact":
			req.Targeting.ContactPerson = value
		case "role":
			req.Targeting.ContactRole = value
		case "company":
			req.Targeting.OwnCompany = value
		case "product":
			req.Targeting.OwnProduct = value
		case "purpose":
			req.Targeting.MeetingPurpose = value
		}
	}

	return req, true
}

func looksLikeURL(s string) bool {
	s = strings.ToLower(s)
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return true
	}
	// голый домен вида example.com тоже принимаем
	return strings.Contains(s, ".") && !strings.ContainsAny(s, " \t")
}

func normalizeSpaces(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
