package domain

import (
	"context"
	"time"
)

// PublishCause описывает источник запроса на публикацию.
type PublishCause string

const (
	// PublishCauseScheduled — публикация запланирована по расписанию.
	PublishCauseScheduled PublishCause = "scheduled"
	// PublishCauseManual — пользователь запросил публикацию вручную.
	PublishCauseManual PublishCause = "manual"
)

// PublishJob содержит информацию о задаче публикации. Для
// запланированных задач JobID детерминирован парой (расписание, слот),
// для ручных — случаен.
type PublishJob struct {
	ID          string       `json:"job_id"`
	ScheduleID  int64        `json:"schedule_id,omitempty"`
	CategoryID  int64        `json:"category_id"`
	Platform    PlatformType `json:"platform"`
	PlatformID  string       `json:"platform_id"`
	UserID      int64        `json:"user_id"`
	Cause       PublishCause `json:"cause"`
	FiresAt     time.Time    `json:"fires_at"`
	RequestedAt time.Time    `json:"requested_at"`
}

// PublishQueue описывает очередь задач публикации.
type PublishQueue interface {
	Enqueue(ctx context.Context, job PublishJob) error
	Receive(ctx context.Context) (PublishJob, PublishAckFunc, error)
}

// PublishAckFunc подтверждает обработку или возвращает задачу в очередь.
type PublishAckFunc func(success bool) error
