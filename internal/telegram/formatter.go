package telegram

import (
	"fmt"
	"html"
	"strings"

	"github.com/kitbuilder587/leadscout/internal/domain"
	"github.com/kitbuilder587/leadscout/internal/service"
)

func FormatAnalysis(result *domain.AnalysisResult) string {
	var sb strings.Builder

	sb.WriteString("<b>Разбор компании</b>\n\n")
	sb.WriteString(html.EscapeString(result.Summary))
	sb.WriteString("\n")

	writeList(&sb, "Айсбрейкеры", result.IceBreakers)
	writeList(&sb, "Боли", result.PainPoints)
	writeList(&sb, "Зацепки для продажи", result.SalesHooks)

	if result.Tone != "" {
		sb.WriteString(fmt.Sprintf("\n<b>Тон общения:</b> %s\n", html.EscapeString(result.Tone)))
	}
	if result.OrgNumber != "" {
		sb.WriteString(fmt.Sprintf("\n<b>Орг. номер:</b> %s\n", html.EscapeString(result.OrgNumber)))
	}
	if result.FinancialSummary != "" {
		sb.WriteString(fmt.Sprintf("\n<b>Финансы:</b>\n%s\n", html.EscapeString(result.FinancialSummary)))
	}

	if len(result.Sources) > 0 {
		sb.WriteString("\n━━━━━━━━━━━━━━━━━━━━━\n")
		sb.WriteString("<b>Источники:</b>\n")
		for i, src := range result.Sources {
			title := src.Title
			if title == "" {
				title = src.URL
			}
			sb.WriteString(fmt.Sprintf("%d. <a href=\"%s\">%s</a>\n",
				i+1,
				html.EscapeString(src.URL),
				html.EscapeString(truncateURL(title, 60)),
			))
		}
	}

	return sb.String()
}

func writeList(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("\n<b>%s:</b>\n", title))
	for _, item := range items {
		sb.WriteString(fmt.Sprintf("• %s\n", html.EscapeString(item)))
	}
}

func FormatStats(stats service.Stats) string {
	var sb strings.Builder

	sb.WriteString("<b>Кэш анализов:</b>\n")
	sb.WriteString(fmt.Sprintf("Записей: %d\nПопаданий: %d\nПромахов: %d\nВытеснений: %d\nHit rate: %s\n",
		stats.Cache.Size,
		stats.Cache.Hits,
		stats.Cache.Misses,
		stats.Cache.Evictions,
		stats.Cache.HitRate,
	))

	sb.WriteString("\n<b>Поисковые провайдеры:</b>\n")
	if len(stats.Providers) == 0 {
		sb.WriteString("нет активных провайдеров\n")
		return sb.String()
	}

	for _, p := range stats.Providers {
		sb.WriteString(fmt.Sprintf("\n<b>%s</b>\nЗапросов: %d\nОшибок: %d\n", p.Name, p.Searches, p.Failures))
		if !p.LastUsed.IsZero() {
			sb.WriteString(fmt.Sprintf("Последний запрос: %s\n", p.LastUsed.Format("15:04:05")))
		}
		if p.LastError != "" {
			sb.WriteString(fmt.Sprintf("Последняя ошибка: %s\n", html.EscapeString(p.LastError)))
		}
	}

	return sb.String()
}

func SplitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var messages []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			messages = append(messages, text)
			break
		}

		splitPoint := findSafeSplitPoint(text, maxLen)
		if splitPoint <= 0 || splitPoint > len(text) {
			splitPoint = maxLen
		}

		messages = append(messages, text[:splitPoint])
		text = text[splitPoint:]
	}

	return messages
}

func findSafeSplitPoint(text string, maxLen int) int {
	// ищем пробел или перевод строки, не ломая HTML-теги
	for i := maxLen - 1; i > maxLen/2; i-- {
		if i >= len(text) {
			continue
		}
		if isInsideHTMLTag(text, i) {
			continue
		}

		if text[i] == '\n' || text[i] == ' ' {
			return i + 1
		}
	}

	// внутри тега - ищем конец
	if maxLen < len(text) && isInsideHTMLTag(text, maxLen) {
		for i := maxLen; i < len(text); i++ {
			if text[i] == '>' {
				for j := i + 1; j < len(text) && j < i+50; j++ {
					if text[j] == '\n' || text[j] == ' ' {
						return j + 1
					}
				}
				return i + 1
			}
		}
	}

	for i := maxLen - 1; i > 0; i-- {
		if text[i] == ' ' || text[i] == '\n' {
			return i + 1
		}
	}

	return maxLen
}

func isInsideHTMLTag(text string, pos int) bool {
	if pos >= len(text) || pos < 0 {
		return false
	}
	for i := pos; i >= 0; i-- {
		if text[i] == '>' {
			return false
		}
		if text[i] == '<' {
			return true
		}
	}
	return false
}

func truncateURL(url string, maxLen int) string {
	if len(url) <= maxLen {
		return url
	}
	return url[:maxLen-3] + "..."
}
