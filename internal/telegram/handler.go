package telegram

import (
	"context"
	"errors"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/leadscout/internal/domain"
	"github.com/kitbuilder587/leadscout/internal/orchestrator"
	"github.com/kitbuilder587/leadscout/internal/search"
)

type Handler struct {
	bot *Bot
}

func NewHandler(bot *Bot) *Handler {
	return &Handler{bot: bot}
}

func (h *Handler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	h.bot.logger.Info("received message",
		zap.Int64("user_id", msg.From.ID),
		zap.String("username", msg.From.UserName),
		zap.Bool("is_command", msg.IsCommand()),
	)

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			h.handleStart(msg)
		case "help":
			h.handleHelp(msg)
		case "stats":
			h.handleStats(msg)
		case "analyze":
			h.handleAnalyze(ctx, msg)
		default:
			h.bot.Send(msg.Chat.ID, "Неизвестная команда. Используйте /help для справки.")
		}
		return
	}

	// сообщение с URL без команды тоже считаем запросом на анализ
	h.handleAnalyze(ctx, msg)
}

func (h *Handler) handleStart(msg *tgbotapi.Message) {
	h.bot.Send(msg.Chat.ID, `Привет! Я собираю разведку по компаниям для подготовки к продажам.

Пришлите сайт компании:
/analyze https://example.com

Используйте /help для подробностей.`)
}

func (h *Handler) handleHelp(msg *tgbotapi.Message) {
	helpText := `<b>Доступные команды:</b>

/analyze URL [язык] - Анализ компании по сайту
/stats - Статистика кэша и провайдеров
/help - Показать эту справку

<b>Таргетинг (опционально):</b>
Добавьте строки под URL, чтобы заточить разбор под встречу:

/analyze https://example.com sv
contact: Jane Smith
role: CTO
company: Acme AB
product: CRM для логистики
purpose: демо продукта

<b>Языки ответа:</b> en, sv, ru, de

Можно и без команды: просто пришлите ссылку на сайт компании.`

	h.bot.Send(msg.Chat.ID, helpText)
}

func (h *Handler) handleStats(msg *tgbotapi.Message) {
	stats := h.bot.analyzer.Stats()
	h.bot.Send(msg.Chat.ID, FormatStats(stats))
}

func (h *Handler) handleAnalyze(ctx context.Context, msg *tgbotapi.Message) {
	req, ok := ParseAnalyzeCommand(msg.Text, h.bot.defaultLang)
	if !ok {
		h.bot.Send(msg.Chat.ID, "Укажите сайт компании: /analyze https://example.com")
		return
	}

	if !h.bot.rateLimiter.Allow(msg.From.ID) {
		resetTime := h.bot.rateLimiter.ResetTime(msg.From.ID)
		h.bot.logger.Warn("rate limit exceeded",
			zap.Int64("user_id", msg.From.ID),
			zap.Time("reset_at", resetTime),
		)
		h.bot.RecordRateLimitHit(msg.From.ID)
		h.bot.Send(msg.Chat.ID, "Слишком много запросов. Пожалуйста, подождите минуту.")
		return
	}

	h.bot.SendTyping(msg.Chat.ID)

	start := time.Now()
	result, err := h.bot.analyzer.Analyze(ctx, req)
	if err != nil {
		h.bot.logger.Error("analysis failed",
			zap.Error(err),
			zap.Int64("user_id", msg.From.ID),
			zap.String("url", req.URL),
			zap.Duration("duration", time.Since(start)),
		)
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}

	messages := SplitMessage(FormatAnalysis(result), 4096) // лимит телеграма
	for _, m := range messages {
		if err := h.bot.Send(msg.Chat.ID, m); err != nil {
			h.bot.logger.Error("failed to send message", zap.Error(err))
		}
	}
}

func mapErrorToMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyURL):
		return "Пустой запрос. Укажите сайт компании."
	case errors.Is(err, domain.ErrInvalidURL):
		return "Некорректный URL."
	case errors.Is(err, domain.ErrURLTooLong):
		return "URL слишком длинный. Максимум 500 символов."
	case errors.Is(err, domain.ErrFieldTooLong):
		return "Поле таргетинга слишком длинное. Максимум 200 символов."
	case errors.Is(err, domain.ErrBadLanguage):
		return "Неподдерживаемый язык. Доступны: en, sv, ru, de."
	case errors.Is(err, domain.ErrDomainMissing):
		return "Такой домен не найден. Проверьте адрес сайта."
	case errors.Is(err, search.ErrQuotaExhausted):
		return "Квота поисковых провайдеров исчерпана. Попробуйте позже."
	case errors.Is(err, orchestrator.ErrNoProviders):
		return "Поиск временно недоступен. Попробуйте позже."
	case errors.Is(err, domain.ErrLLMFailed):
		return "Не удалось сформировать разбор. Попробуйте позже."
	case errors.Is(err, context.DeadlineExceeded):
		return "Анализ занял слишком много времени. Попробуйте позже."
	default:
		return "Произошла ошибка. Попробуйте позже."
	}
}
