package publish

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"autopost-bot/internal/domain"
	"autopost-bot/internal/infra/metrics"
)

// Reporter доставляет пользователю итог попытки публикации. Сбои
// доставки логируются и не влияют на уже принятые решения по балансу.
type Reporter struct {
	sink   domain.NotificationSink
	logger zerolog.Logger
}

// NewReporter создаёт репортёр.
func NewReporter(sink domain.NotificationSink, logger zerolog.Logger) *Reporter {
	return &Reporter{sink: sink, logger: logger}
}

// ReportSuccess сообщает об успешной публикации. Номинальная стоимость
// показывается и привилегированным аккаунтам, хотя с них не списывалась.
func (r *Reporter) ReportSuccess(ctx context.Context, user domain.User, category domain.Category, platform domain.PlatformType, postURL string, cost int64) {
	message := fmt.Sprintf(
		"✅ Публикация по рубрике «%s» вышла на %s.\n%s\nСтоимость: %d токенов.",
		category.Title, platformLabel(platform), postURL, cost,
	)
	r.send(ctx, user, message)
}

// ReportFailure сообщает о неудаче: причина из таксономии и статус
// возврата токенов. Стек-трейсы пользователю не показываются.
func (r *Reporter) ReportFailure(ctx context.Context, user domain.User, category domain.Category, platform domain.PlatformType, attemptErr error, refunded bool) {
	reason := "внутренняя ошибка сервиса, мы уже разбираемся"
	if domain.IsPublishError(attemptErr) {
		reason = attemptErr.Error()
	}
	message := fmt.Sprintf(
		"❌ Публикация по рубрике «%s» на %s не удалась.\nПричина: %s.",
		categoryLabel(category), platformLabel(platform), reason,
	)
	if refunded {
		message += "\nТокены возвращены на баланс."
	}
	r.send(ctx, user, message)
}

func (r *Reporter) send(ctx context.Context, user domain.User, message string) {
	// Пользователь мог не загрузиться (рубрика удалена раньше него):
	// отчитываться некому, остаётся только лог.
	if user.TGUserID == 0 {
		r.logger.Warn().Str("message", message).Msg("reporter: получатель отчёта неизвестен")
		return
	}
	if err := r.sink.Send(ctx, user.TGUserID, message); err != nil {
		metrics.ReportSendErrors.Inc()
		r.logger.Error().Err(err).Int64("tg_user_id", user.TGUserID).Msg("reporter: отчёт не доставлен")
	}
}

func platformLabel(platform domain.PlatformType) string {
	switch platform {
	case domain.PlatformWebsite:
		return "сайт"
	case domain.PlatformTelegram:
		return "Telegram-канал"
	case domain.PlatformPinterest:
		return "Pinterest"
	case domain.PlatformVK:
		return "VK"
	default:
		return string(platform)
	}
}

func categoryLabel(category domain.Category) string {
	if category.Title == "" {
		return "без названия"
	}
	return category.Title
}
