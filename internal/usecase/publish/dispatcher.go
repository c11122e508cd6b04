package publish

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"autopost-bot/internal/domain"
)

// Dispatcher раздаёт задачи из очереди по публикаторам площадок.
// Публикации выполняет ограниченный пул воркеров: нагрузка упирается
// в размер пула, а не в число одновременных срабатываний расписаний.
type Dispatcher struct {
	queue       domain.PublishQueue
	service     *Service
	publishers  map[domain.PlatformType]Publisher
	workers     int
	maxAttempts int
	logger      zerolog.Logger
}

// NewDispatcher создаёт диспетчер. Карта площадок фиксируется на
// старте и дальше не меняется.
func NewDispatcher(
	queue domain.PublishQueue,
	service *Service,
	publishers []Publisher,
	workers int,
	maxAttempts int,
	logger zerolog.Logger,
) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	byPlatform := make(map[domain.PlatformType]Publisher, len(publishers))
	for _, p := range publishers {
		byPlatform[p.Platform()] = p
	}
	return &Dispatcher{
		queue:       queue,
		service:     service,
		publishers:  byPlatform,
		workers:     workers,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Run запускает воркеры и блокируется до отмены контекста.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			d.worker(ctx, n)
		}(i)
	}
	wg.Wait()
}

func (d *Dispatcher) worker(ctx context.Context, n int) {
	logger := d.logger.With().Int("worker", n).Logger()
	logger.Info().Msg("dispatcher: воркер запущен")
	for {
		job, ack, err := d.queue.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info().Msg("dispatcher: воркер остановлен")
				return
			}
			logger.Error().Err(err).Msg("dispatcher: ошибка чтения очереди")
			time.Sleep(time.Second)
			continue
		}
		d.Process(ctx, job, ack)
	}
}

// Process обрабатывает одну задачу. Неизвестная площадка — ошибка
// конфигурации, а не повод ронять диспетчер: задача отбрасывается с
// логом, без записи в аудит.
func (d *Dispatcher) Process(ctx context.Context, job domain.PublishJob, ack domain.PublishAckFunc) {
	pub, ok := d.publishers[job.Platform]
	if !ok {
		d.logger.Error().
			Str("platform", string(job.Platform)).
			Str("job_id", job.ID).
			Msg("dispatcher: неизвестная площадка, задача отброшена")
		d.ack(ack, true)
		return
	}

	var err error
	for attemptNo := 1; attemptNo <= d.maxAttempts; attemptNo++ {
		if err = d.service.Attempt(ctx, pub, job); err == nil {
			break
		}
		if ctx.Err() != nil {
			// Процесс останавливается: задача возвращается в очередь
			// нетронутой, побочных эффектов ещё не было.
			d.ack(ack, false)
			return
		}
		d.logger.Warn().Err(err).
			Str("job_id", job.ID).
			Int("attempt", attemptNo).
			Msg("dispatcher: попытка обработки не удалась")
		if attemptNo < d.maxAttempts {
			time.Sleep(time.Duration(attemptNo) * time.Second)
		}
	}
	if err != nil {
		d.logger.Error().Err(err).
			Str("job_id", job.ID).
			Msg("dispatcher: задача отброшена после повторов")
	}
	d.ack(ack, true)
}

func (d *Dispatcher) ack(ack domain.PublishAckFunc, success bool) {
	if ack == nil {
		return
	}
	if err := ack(success); err != nil {
		d.logger.Error().Err(err).Msg("dispatcher: подтверждение задачи не удалось")
	}
}
