package publish

import "autopost-bot/internal/domain"

// Тарифы в токенах. Стоимость — чистая функция настроек: считается
// один раз на попытку и используется и для списания, и для возврата.
const (
	costTextShort  = 10
	costTextMedium = 20
	costTextLong   = 40
	costPerImage   = 5
)

// CostOf возвращает стоимость публикации с данными настройками.
func CostOf(settings domain.ContentSettings) int64 {
	var cost int64
	switch settings.WordTier {
	case domain.WordTierShort:
		cost = costTextShort
	case domain.WordTierLong:
		cost = costTextLong
	default:
		cost = costTextMedium
	}
	if settings.ImageCount > 0 {
		cost += int64(settings.ImageCount) * costPerImage
	}
	return cost
}
