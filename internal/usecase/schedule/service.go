package schedule

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"autopost-bot/internal/domain"
)

var validDays = map[string]bool{
	"mon": true, "tue": true, "wed": true, "thu": true,
	"fri": true, "sat": true, "sun": true,
}

// ReloadHook дёргает перезагрузку реестра после изменения расписаний.
// В гейтвее это HTTP-вызов админ-эндпоинта планировщика.
type ReloadHook func(ctx context.Context) error

// Service — пользовательские операции над расписаниями (гейтвей).
type Service struct {
	repo   domain.ScheduleRepo
	reload ReloadHook
	logger zerolog.Logger
}

// NewService создаёт сервис расписаний.
func NewService(repo domain.ScheduleRepo, reload ReloadHook, logger zerolog.Logger) *Service {
	return &Service{repo: repo, reload: reload, logger: logger}
}

// List возвращает расписания пользователя.
func (s *Service) List(ctx context.Context, userID int64) ([]domain.Schedule, error) {
	return s.repo.ListSchedulesByUser(ctx, userID)
}

// Get возвращает расписание, проверяя владельца.
func (s *Service) Get(ctx context.Context, userID, scheduleID int64) (domain.Schedule, error) {
	sch, err := s.repo.GetSchedule(ctx, scheduleID)
	if err != nil {
		return domain.Schedule{}, err
	}
	if sch.UserID != userID {
		return domain.Schedule{}, fmt.Errorf("расписание %d принадлежит другому пользователю", scheduleID)
	}
	return sch, nil
}

// Create сохраняет новое расписание и перезагружает реестр.
func (s *Service) Create(ctx context.Context, sch domain.Schedule, daysRaw, timesRaw string) (domain.Schedule, error) {
	days, err := ParseDays(daysRaw)
	if err != nil {
		return domain.Schedule{}, err
	}
	times, err := ParseTimes(timesRaw)
	if err != nil {
		return domain.Schedule{}, err
	}
	sch.Days = days
	sch.Times = times
	if sch.PostsPerDay == 0 {
		sch.PostsPerDay = len(times)
	}

	created, err := s.repo.CreateSchedule(ctx, sch)
	if err != nil {
		return domain.Schedule{}, fmt.Errorf("сохранение расписания: %w", err)
	}
	s.pokeReload(ctx)
	return created, nil
}

// Toggle включает или выключает расписание пользователя.
func (s *Service) Toggle(ctx context.Context, userID, scheduleID int64) (bool, error) {
	sch, err := s.Get(ctx, userID, scheduleID)
	if err != nil {
		return false, err
	}
	enabled := !sch.Enabled
	if err := s.repo.SetScheduleEnabled(ctx, scheduleID, enabled); err != nil {
		return false, fmt.Errorf("переключение расписания: %w", err)
	}
	s.pokeReload(ctx)
	return enabled, nil
}

// SetSlots обновляет дни и времена расписания.
func (s *Service) SetSlots(ctx context.Context, userID, scheduleID int64, daysRaw, timesRaw string) error {
	if _, err := s.Get(ctx, userID, scheduleID); err != nil {
		return err
	}
	days, err := ParseDays(daysRaw)
	if err != nil {
		return err
	}
	times, err := ParseTimes(timesRaw)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateScheduleSlots(ctx, scheduleID, days, times); err != nil {
		return fmt.Errorf("обновление слотов: %w", err)
	}
	s.pokeReload(ctx)
	return nil
}

// Ошибка перезагрузки реестра не отменяет уже сохранённое изменение:
// планировщик подхватит его при следующем reload.
func (s *Service) pokeReload(ctx context.Context) {
	if s.reload == nil {
		return
	}
	if err := s.reload(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("schedule: не удалось дёрнуть перезагрузку реестра")
	}
}

// ParseDays разбирает строку вида "mon,wed,fri".
func ParseDays(raw string) ([]string, error) {
	parts := strings.Split(raw, ",")
	days := make([]string, 0, len(parts))
	for _, p := range parts {
		day := strings.ToLower(strings.TrimSpace(p))
		if day == "" {
			continue
		}
		if !validDays[day] {
			return nil, fmt.Errorf("неизвестный день недели %q (ожидается mon..sun)", day)
		}
		days = append(days, day)
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("не задан ни один день недели")
	}
	return days, nil
}

// ParseTimes разбирает строку вида "09:00,15:00".
func ParseTimes(raw string) ([]string, error) {
	parts := strings.Split(raw, ",")
	times := make([]string, 0, len(parts))
	for _, p := range parts {
		slot := strings.TrimSpace(p)
		if slot == "" {
			continue
		}
		if _, _, err := parseSlot(slot); err != nil {
			return nil, fmt.Errorf("слот %q: %w", slot, err)
		}
		times = append(times, slot)
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("не задано ни одно время публикации")
	}
	return times, nil
}
