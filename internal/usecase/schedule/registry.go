package schedule

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"autopost-bot/internal/domain"
	"autopost-bot/internal/infra/metrics"
)

// Registry держит живой набор cron-задач в соответствии с включёнными
// расписаниями. Владеет жизненным циклом cron-движка: создаётся при
// старте процесса, Start/Stop вызываются явно.
type Registry struct {
	store     domain.ScheduleStore
	queue     domain.PublishQueue
	cache     domain.Cache
	logger    zerolog.Logger
	loc       *time.Location
	dedupeTTL time.Duration

	mu      sync.Mutex
	cron    *cron.Cron
	entries []SlotEntry
	started bool
}

// SlotEntry описывает одну зарегистрированную cron-задачу.
type SlotEntry struct {
	JobID      string
	ScheduleID int64
	Slot       string
	Spec       string
}

// NewRegistry создаёт реестр расписаний.
func NewRegistry(
	store domain.ScheduleStore,
	queue domain.PublishQueue,
	cache domain.Cache,
	logger zerolog.Logger,
	loc *time.Location,
	dedupeTTL time.Duration,
) *Registry {
	if loc == nil {
		loc = time.Local
	}
	if dedupeTTL <= 0 {
		dedupeTTL = 10 * time.Minute
	}
	return &Registry{
		store:     store,
		queue:     queue,
		cache:     cache,
		logger:    logger,
		loc:       loc,
		dedupeTTL: dedupeTTL,
	}
}

// Start загружает включённые расписания и запускает cron-движок.
func (r *Registry) Start(ctx context.Context) error {
	r.mu.Lock()
	r.started = true
	r.mu.Unlock()
	return r.Reload(ctx)
}

// Reload полностью пересобирает набор задач: старые снимаются, текущие
// включённые расписания транслируются заново. Безопасен в любой момент;
// сбой трансляции одного расписания не мешает остальным.
func (r *Registry) Reload(ctx context.Context) error {
	schedules, err := r.store.ListEnabled(ctx)
	if err != nil {
		metrics.ScheduleReloadErrors.Inc()
		return fmt.Errorf("загрузка расписаний: %w", err)
	}

	next := cron.New(cron.WithLocation(r.loc))
	var entries []SlotEntry
	for _, s := range schedules {
		slots, err := r.register(next, s)
		if err != nil {
			metrics.ScheduleSkipped.Inc()
			r.logger.Warn().Err(err).Int64("schedule_id", s.ID).Msg("registry: расписание пропущено")
			continue
		}
		entries = append(entries, slots...)
	}

	r.mu.Lock()
	old := r.cron
	r.cron = next
	r.entries = entries
	if r.started {
		next.Start()
	}
	r.mu.Unlock()

	if old != nil {
		old.Stop()
	}
	metrics.ScheduleJobsActive.Set(float64(len(entries)))
	r.logger.Info().Int("jobs", len(entries)).Int("schedules", len(schedules)).Msg("registry: расписания перезагружены")
	return nil
}

// Stop останавливает будущие срабатывания. Уже начатые публикации
// завершаются своим чередом в воркерах.
func (r *Registry) Stop() {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.entries = nil
	r.started = false
	r.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
	metrics.ScheduleJobsActive.Set(0)
}

// Jobs возвращает снимок зарегистрированных задач.
func (r *Registry) Jobs() []SlotEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SlotEntry, len(r.entries))
	copy(out, r.entries)
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduleID != out[j].ScheduleID {
			return out[i].ScheduleID < out[j].ScheduleID
		}
		return out[i].Slot < out[j].Slot
	})
	return out
}

// register транслирует расписание в cron-задачи: одна задача на каждый
// временной слот, дни недели попадают в поле дней cron-выражения. Для
// d дней и t слотов регистрируется ровно t задач.
func (r *Registry) register(c *cron.Cron, s domain.Schedule) ([]SlotEntry, error) {
	if len(s.Days) == 0 {
		return nil, fmt.Errorf("не заданы дни недели")
	}
	if len(s.Times) == 0 {
		return nil, fmt.Errorf("не заданы времена публикации")
	}

	days := make([]string, len(s.Days))
	for i, d := range s.Days {
		days[i] = strings.ToLower(strings.TrimSpace(d))
	}
	dayField := strings.Join(days, ",")

	entries := make([]SlotEntry, 0, len(s.Times))
	for _, slot := range s.Times {
		hour, minute, err := parseSlot(slot)
		if err != nil {
			return nil, fmt.Errorf("слот %q: %w", slot, err)
		}
		// Некорректные коды дней отлавливает сам cron-парсер:
		// расписание при этом отбрасывается целиком, а не молчит.
		spec := fmt.Sprintf("%d %d * * %s", minute, hour, dayField)
		sched := s
		slotCopy := slot
		if _, err := c.AddFunc(spec, func() { r.fire(sched, slotCopy) }); err != nil {
			return nil, fmt.Errorf("cron-выражение %q: %w", spec, err)
		}
		entries = append(entries, SlotEntry{
			JobID:      JobID(s.ID, slot),
			ScheduleID: s.ID,
			Slot:       slot,
			Spec:       spec,
		})
	}
	return entries, nil
}

// JobID детерминированно выводит идентификатор задачи из пары
// (расписание, слот): повторные перезагрузки дают тот же набор id.
func JobID(scheduleID int64, slot string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%d/%s", scheduleID, slot))).String()
}

// fire ставит задачу публикации в очередь. Дубликаты срабатываний
// одного слота (дрейф планировщика, ручной повтор) гасятся через
// Cache.Once в пределах окна дедупликации.
func (r *Registry) fire(s domain.Schedule, slot string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now().In(r.loc)
	job := domain.PublishJob{
		ID:          JobID(s.ID, slot),
		ScheduleID:  s.ID,
		CategoryID:  s.CategoryID,
		Platform:    s.Platform,
		PlatformID:  s.PlatformID,
		UserID:      s.UserID,
		Cause:       domain.PublishCauseScheduled,
		FiresAt:     now,
		RequestedAt: now,
	}

	enqueue := func() error { return r.queue.Enqueue(ctx, job) }
	var err error
	if r.cache != nil {
		key := fmt.Sprintf("autopublish:slot:%d:%s:%s", s.ID, slot, now.Format("2006-01-02"))
		err = r.cache.Once(key, r.dedupeTTL, enqueue)
	} else {
		err = enqueue()
	}
	if err != nil {
		r.logger.Error().Err(err).
			Int64("schedule_id", s.ID).
			Str("slot", slot).
			Msg("registry: не удалось поставить задачу в очередь")
		return
	}
	r.logger.Info().
		Int64("schedule_id", s.ID).
		Str("slot", slot).
		Str("job_id", job.ID).
		Msg("registry: задача поставлена в очередь")
}

func parseSlot(slot string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(slot))
	if err != nil {
		return 0, 0, fmt.Errorf("ожидается формат HH:MM")
	}
	return t.Hour(), t.Minute(), nil
}
