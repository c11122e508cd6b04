package publish

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"autopost-bot/internal/domain"
)

func TestProcessUnknownPlatformDropped(t *testing.T) {
	e := newEnv(1000, domain.UserRoleFree)
	d := NewDispatcher(nil, e.svc, []Publisher{
		&testPublisher{platform: domain.PlatformWebsite},
	}, 1, 1, zerolog.Nop())

	job := testJob()
	job.Platform = "orkut"

	acked := false
	ackedSuccess := false
	d.Process(context.Background(), job, func(success bool) error {
		acked = true
		ackedSuccess = success
		return nil
	})

	if !acked || !ackedSuccess {
		t.Fatalf("задача с неизвестной площадкой должна подтверждаться и отбрасываться")
	}
	if len(e.audit.records) != 0 {
		t.Fatalf("для отброшенной задачи не должно быть записи в аудите: %+v", e.audit.records)
	}
	if len(e.sink.messages) != 0 {
		t.Fatalf("для отброшенной задачи не должно быть отчётов: %v", e.sink.messages)
	}
}

func TestProcessKnownPlatform(t *testing.T) {
	e := newEnv(1000, domain.UserRoleFree)
	d := NewDispatcher(nil, e.svc, []Publisher{
		&testPublisher{platform: domain.PlatformWebsite},
	}, 1, 1, zerolog.Nop())

	ackedSuccess := false
	d.Process(context.Background(), testJob(), func(success bool) error {
		ackedSuccess = success
		return nil
	})

	if !ackedSuccess {
		t.Fatalf("обработанная задача должна подтверждаться успехом")
	}
	if len(e.audit.records) != 1 {
		t.Fatalf("ожидали одну запись аудита, получили %d", len(e.audit.records))
	}
}
