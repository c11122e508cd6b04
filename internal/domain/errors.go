package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound возвращается хранилищами, когда запись отсутствует.
var ErrNotFound = errors.New("запись не найдена")

// PublishError объединяет бизнес-ошибки попытки публикации. Все они
// обрабатываются одинаково: возврат токенов (если были списаны),
// отчёт пользователю, запись в аудит. Планировщик при этом продолжает
// работу.
type PublishError interface {
	error
	publishError()
}

// InsufficientTokensError — на балансе не хватает токенов.
type InsufficientTokensError struct {
	Platform  PlatformType
	Required  int64
	Available int64
}

func (e *InsufficientTokensError) Error() string {
	return fmt.Sprintf("недостаточно токенов: нужно %d, доступно %d", e.Required, e.Available)
}

func (e *InsufficientTokensError) publishError() {}

// PlatformNotFoundError — подключение к площадке не найдено или не настроено.
type PlatformNotFoundError struct {
	Platform   PlatformType
	PlatformID string
}

func (e *PlatformNotFoundError) Error() string {
	return fmt.Sprintf("подключение %s (%s) не найдено", e.Platform, e.PlatformID)
}

func (e *PlatformNotFoundError) publishError() {}

// CategoryNotFoundError — рубрика удалена или недоступна.
type CategoryNotFoundError struct {
	CategoryID int64
}

func (e *CategoryNotFoundError) Error() string {
	return fmt.Sprintf("рубрика %d не найдена", e.CategoryID)
}

func (e *CategoryNotFoundError) publishError() {}

// ValidationError — проверка данных публикации не пройдена.
type ValidationError struct {
	Platform PlatformType
	Field    string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("некорректное поле %q: %s", e.Field, e.Reason)
}

func (e *ValidationError) publishError() {}

// APIError — внешний API площадки вернул ошибку.
type APIError struct {
	Platform   PlatformType
	StatusCode int
	Response   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API %s: статус %d: %s", e.Platform, e.StatusCode, e.Response)
}

func (e *APIError) publishError() {}

// ContentGenerationError — генератор контента не смог подготовить материал.
type ContentGenerationError struct {
	Platform    PlatformType
	ContentType string
	Cause       error
}

func (e *ContentGenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("генерация %s: %v", e.ContentType, e.Cause)
	}
	return fmt.Sprintf("генерация %s не удалась", e.ContentType)
}

func (e *ContentGenerationError) Unwrap() error { return e.Cause }

func (e *ContentGenerationError) publishError() {}

// IsPublishError сообщает, относится ли ошибка к бизнес-таксономии публикаций.
func IsPublishError(err error) bool {
	var pe PublishError
	return errors.As(err, &pe)
}
