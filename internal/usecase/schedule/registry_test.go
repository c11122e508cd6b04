package schedule

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"autopost-bot/internal/domain"
)

type stubScheduleStore struct {
	schedules []domain.Schedule
}

func (s *stubScheduleStore) ListEnabled(ctx context.Context) ([]domain.Schedule, error) {
	return s.schedules, nil
}

type stubQueue struct {
	jobs []domain.PublishJob
}

func (q *stubQueue) Enqueue(ctx context.Context, job domain.PublishJob) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *stubQueue) Receive(ctx context.Context) (domain.PublishJob, domain.PublishAckFunc, error) {
	panic("не используется в тестах реестра")
}

func newTestRegistry(store *stubScheduleStore, queue *stubQueue) *Registry {
	return NewRegistry(store, queue, nil, zerolog.Nop(), time.UTC, time.Minute)
}

func TestReloadJobCardinality(t *testing.T) {
	// Три дня и два слота дают ровно две задачи, а не шесть.
	store := &stubScheduleStore{schedules: []domain.Schedule{{
		ID:       1,
		Platform: domain.PlatformTelegram,
		Days:     []string{"mon", "wed", "fri"},
		Times:    []string{"09:00", "15:00"},
	}}}
	r := newTestRegistry(store, &stubQueue{})
	if err := r.Reload(context.Background()); err != nil {
		t.Fatalf("reload завершился ошибкой: %v", err)
	}
	jobs := r.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("ожидали 2 задачи, получили %d", len(jobs))
	}
	for _, j := range jobs {
		if j.Spec != "0 9 * * mon,wed,fri" && j.Spec != "0 15 * * mon,wed,fri" {
			t.Fatalf("неожиданное cron-выражение %q", j.Spec)
		}
	}
}

func TestReloadIdempotence(t *testing.T) {
	store := &stubScheduleStore{schedules: []domain.Schedule{
		{ID: 1, Platform: domain.PlatformWebsite, Days: []string{"tue"}, Times: []string{"08:30", "20:15"}},
		{ID: 2, Platform: domain.PlatformVK, Days: []string{"sat", "sun"}, Times: []string{"12:00"}},
	}}
	r := newTestRegistry(store, &stubQueue{})

	if err := r.Reload(context.Background()); err != nil {
		t.Fatalf("первый reload: %v", err)
	}
	first := r.Jobs()
	if err := r.Reload(context.Background()); err != nil {
		t.Fatalf("второй reload: %v", err)
	}
	second := r.Jobs()

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("повторный reload изменил набор задач:\nбыло  %+v\nстало %+v", first, second)
	}
}

func TestReloadSkipsMalformedSchedules(t *testing.T) {
	store := &stubScheduleStore{schedules: []domain.Schedule{
		{ID: 1, Days: nil, Times: []string{"09:00"}},                            // нет дней
		{ID: 2, Days: []string{"mon"}, Times: nil},                              // нет слотов
		{ID: 3, Days: []string{"mon"}, Times: []string{"25:99"}},                // кривой слот
		{ID: 4, Days: []string{"understar"}, Times: []string{"09:00"}},          // кривой день, отлавливает cron-парсер
		{ID: 5, Days: []string{"thu"}, Times: []string{"10:00", "18:00"}},       // валидное
	}}
	r := newTestRegistry(store, &stubQueue{})
	if err := r.Reload(context.Background()); err != nil {
		t.Fatalf("reload не должен падать из-за отдельных расписаний: %v", err)
	}
	jobs := r.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("ожидали 2 задачи от единственного валидного расписания, получили %d", len(jobs))
	}
	for _, j := range jobs {
		if j.ScheduleID != 5 {
			t.Fatalf("в наборе оказалась задача пропущенного расписания %d", j.ScheduleID)
		}
	}
}

func TestJobIDDeterministic(t *testing.T) {
	a := JobID(7, "09:00")
	b := JobID(7, "09:00")
	if a != b {
		t.Fatalf("идентификатор задачи должен быть детерминированным: %s != %s", a, b)
	}
	if a == JobID(7, "15:00") || a == JobID(8, "09:00") {
		t.Fatalf("разные пары (расписание, слот) дали одинаковый идентификатор")
	}
}

func TestFireEnqueuesScheduledJob(t *testing.T) {
	queue := &stubQueue{}
	r := newTestRegistry(&stubScheduleStore{}, queue)
	s := domain.Schedule{
		ID:         3,
		CategoryID: 11,
		Platform:   domain.PlatformPinterest,
		PlatformID: "board-1",
		UserID:     42,
	}

	r.fire(s, "09:00")

	if len(queue.jobs) != 1 {
		t.Fatalf("ожидали одну задачу в очереди, получили %d", len(queue.jobs))
	}
	job := queue.jobs[0]
	if job.ID != JobID(3, "09:00") {
		t.Fatalf("неожиданный идентификатор задачи %s", job.ID)
	}
	if job.Cause != domain.PublishCauseScheduled {
		t.Fatalf("ожидали причину scheduled, получили %s", job.Cause)
	}
	if job.UserID != 42 || job.CategoryID != 11 || job.Platform != domain.PlatformPinterest {
		t.Fatalf("задача потеряла данные расписания: %+v", job)
	}
}
