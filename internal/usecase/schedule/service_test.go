package schedule

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"autopost-bot/internal/domain"
)

type stubScheduleRepo struct {
	stubScheduleStore
	byID    map[int64]domain.Schedule
	enabled map[int64]bool
}

func (r *stubScheduleRepo) ListSchedulesByUser(ctx context.Context, userID int64) ([]domain.Schedule, error) {
	var out []domain.Schedule
	for _, s := range r.byID {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *stubScheduleRepo) GetSchedule(ctx context.Context, id int64) (domain.Schedule, error) {
	s, ok := r.byID[id]
	if !ok {
		return domain.Schedule{}, errors.New("расписание не найдено")
	}
	return s, nil
}

func (r *stubScheduleRepo) CreateSchedule(ctx context.Context, s domain.Schedule) (domain.Schedule, error) {
	s.ID = int64(len(r.byID) + 1)
	r.byID[s.ID] = s
	return s, nil
}

func (r *stubScheduleRepo) SetScheduleEnabled(ctx context.Context, id int64, enabled bool) error {
	r.enabled[id] = enabled
	s := r.byID[id]
	s.Enabled = enabled
	r.byID[id] = s
	return nil
}

func (r *stubScheduleRepo) UpdateScheduleSlots(ctx context.Context, id int64, days, times []string) error {
	s := r.byID[id]
	s.Days = days
	s.Times = times
	r.byID[id] = s
	return nil
}

func TestParseDays(t *testing.T) {
	days, err := ParseDays(" Mon, wed ,FRI ")
	if err != nil {
		t.Fatalf("валидная строка дней не должна давать ошибку: %v", err)
	}
	if !reflect.DeepEqual(days, []string{"mon", "wed", "fri"}) {
		t.Fatalf("неожиданный разбор дней: %v", days)
	}

	if _, err := ParseDays("mon,funday"); err == nil {
		t.Fatalf("неизвестный день недели должен давать ошибку")
	}
	if _, err := ParseDays(" , "); err == nil {
		t.Fatalf("пустой список дней должен давать ошибку")
	}
}

func TestParseTimes(t *testing.T) {
	times, err := ParseTimes("09:00, 15:30")
	if err != nil {
		t.Fatalf("валидная строка слотов не должна давать ошибку: %v", err)
	}
	if !reflect.DeepEqual(times, []string{"09:00", "15:30"}) {
		t.Fatalf("неожиданный разбор слотов: %v", times)
	}

	if _, err := ParseTimes("09:00,25:00"); err == nil {
		t.Fatalf("слот с часом 25 должен давать ошибку")
	}
	if _, err := ParseTimes(""); err == nil {
		t.Fatalf("пустой список слотов должен давать ошибку")
	}
}

func TestToggleFlipsAndPokesReload(t *testing.T) {
	repo := &stubScheduleRepo{
		byID:    map[int64]domain.Schedule{5: {ID: 5, UserID: 1, Enabled: true}},
		enabled: map[int64]bool{},
	}
	reloads := 0
	svc := NewService(repo, func(ctx context.Context) error { reloads++; return nil }, zerolog.Nop())

	enabled, err := svc.Toggle(context.Background(), 1, 5)
	if err != nil {
		t.Fatalf("toggle завершился ошибкой: %v", err)
	}
	if enabled {
		t.Fatalf("включённое расписание должно было выключиться")
	}
	if reloads != 1 {
		t.Fatalf("после изменения ожидали один вызов перезагрузки, было %d", reloads)
	}
}

func TestToggleForeignScheduleRejected(t *testing.T) {
	repo := &stubScheduleRepo{
		byID:    map[int64]domain.Schedule{5: {ID: 5, UserID: 2, Enabled: true}},
		enabled: map[int64]bool{},
	}
	svc := NewService(repo, nil, zerolog.Nop())

	if _, err := svc.Toggle(context.Background(), 1, 5); err == nil {
		t.Fatalf("чужое расписание нельзя переключать")
	}
	if repo.byID[5].Enabled != true {
		t.Fatalf("чужое расписание не должно было измениться")
	}
}

func TestCreateParsesSlotsAndDefaultsPostsPerDay(t *testing.T) {
	repo := &stubScheduleRepo{byID: map[int64]domain.Schedule{}, enabled: map[int64]bool{}}
	svc := NewService(repo, nil, zerolog.Nop())

	created, err := svc.Create(context.Background(), domain.Schedule{
		UserID:     1,
		CategoryID: 2,
		Platform:   domain.PlatformTelegram,
	}, "mon,wed", "09:00,15:00")
	if err != nil {
		t.Fatalf("создание расписания: %v", err)
	}
	if created.PostsPerDay != 2 {
		t.Fatalf("PostsPerDay должен подставляться из числа слотов, получили %d", created.PostsPerDay)
	}
	if !reflect.DeepEqual(created.Days, []string{"mon", "wed"}) {
		t.Fatalf("дни не разобраны: %v", created.Days)
	}
}
