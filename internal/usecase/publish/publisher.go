package publish

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"autopost-bot/internal/domain"
	"autopost-bot/internal/infra/metrics"
)

// Publisher — площадко-специфичная часть попытки публикации. Общая
// последовательность шагов для всех площадок одна и живёт в Service.
type Publisher interface {
	Platform() domain.PlatformType
	// PreValidate — дешёвые проверки до любого движения токенов.
	PreValidate(ctx context.Context, conn domain.PlatformConnection) error
	// Validate — более глубокие бизнес-проверки, тоже до списания.
	Validate(conn domain.PlatformConnection, settings domain.ContentSettings) error
	// Publish размещает уже сгенерированный материал.
	Publish(ctx context.Context, conn domain.PlatformConnection, content domain.GeneratedContent) (string, error)
}

// Service проводит одну попытку публикации через фиксированную
// последовательность шагов: загрузка данных, предварительная проверка,
// расчёт стоимости, проверка баланса, валидация, списание, генерация и
// публикация. Любой сбой после списания возвращает ровно списанную
// сумму.
type Service struct {
	users      domain.UserRepo
	categories domain.CategoryRepo
	platforms  domain.PlatformRepo
	settings   domain.SettingsRepo
	ledger     domain.TokenLedger
	generator  domain.ContentGenerator
	audit      domain.PublicationLogStore
	reporter   *Reporter
	logger     zerolog.Logger
}

// NewService создаёт сервис публикаций.
func NewService(
	users domain.UserRepo,
	categories domain.CategoryRepo,
	platforms domain.PlatformRepo,
	settings domain.SettingsRepo,
	ledger domain.TokenLedger,
	generator domain.ContentGenerator,
	audit domain.PublicationLogStore,
	reporter *Reporter,
	logger zerolog.Logger,
) *Service {
	return &Service{
		users:      users,
		categories: categories,
		platforms:  platforms,
		settings:   settings,
		ledger:     ledger,
		generator:  generator,
		audit:      audit,
		reporter:   reporter,
		logger:     logger,
	}
}

// attempt — состояние одной попытки. Поле charged — единственный
// источник истины о том, нужен ли возврат при сбое.
type attempt struct {
	job      domain.PublishJob
	user     domain.User
	category domain.Category
	conn     domain.PlatformConnection
	settings domain.ContentSettings
	cost     int64
	charged  bool
	content  domain.GeneratedContent
	postURL  string
}

// Attempt проводит попытку публикации от начала до конца. Возвращает
// ошибку только при инфраструктурном сбое до каких-либо побочных
// эффектов: такую задачу можно безопасно повторить. Бизнес-исход
// (успех или отказ из таксономии) всегда завершается отчётом и
// записью в аудит, и ошибкой наружу не является.
func (s *Service) Attempt(ctx context.Context, pub Publisher, job domain.PublishJob) error {
	start := time.Now()
	att := &attempt{job: job}

	if err := s.load(ctx, att); err != nil {
		if !domain.IsPublishError(err) {
			return err
		}
		s.settle(ctx, att, err)
		metrics.ObservePublishAttempt(string(job.Platform), start, err)
		return nil
	}

	err := s.run(ctx, pub, att)
	s.settle(ctx, att, err)
	metrics.ObservePublishAttempt(string(job.Platform), start, err)
	return nil
}

// load собирает данные попытки. Токены на этом шаге не трогаются.
func (s *Service) load(ctx context.Context, att *attempt) error {
	category, err := s.categories.GetCategoryByID(ctx, att.job.CategoryID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &domain.CategoryNotFoundError{CategoryID: att.job.CategoryID}
		}
		return fmt.Errorf("загрузка рубрики: %w", err)
	}
	att.category = category

	user, err := s.users.GetUserByID(ctx, att.job.UserID)
	if err != nil {
		return fmt.Errorf("загрузка пользователя: %w", err)
	}
	att.user = user

	conn, err := s.platforms.GetConnection(ctx, att.job.UserID, att.job.Platform, att.job.PlatformID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &domain.PlatformNotFoundError{Platform: att.job.Platform, PlatformID: att.job.PlatformID}
		}
		return fmt.Errorf("загрузка подключения: %w", err)
	}
	att.conn = conn

	settings, err := s.settings.GetContentSettings(ctx, att.job.CategoryID)
	if err != nil {
		return fmt.Errorf("загрузка настроек контента: %w", err)
	}
	att.settings = settings
	return nil
}

// run выполняет шаги попытки после загрузки данных. Паника внутри
// шага превращается в обычную ошибку: возврат и отчёт отрабатывают
// как при любом другом сбое, планировщик продолжает работу.
func (s *Service) run(ctx context.Context, pub Publisher, att *attempt) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Str("job_id", att.job.ID).
				Msg("publish: паника в попытке публикации")
			err = fmt.Errorf("внутренняя ошибка публикации: %v", r)
		}
	}()

	if err := pub.PreValidate(ctx, att.conn); err != nil {
		return err
	}

	// Стоимость считается один раз: цена не должна дрейфовать между
	// списанием и возвратом.
	att.cost = CostOf(att.settings)

	if !att.user.Privileged() {
		balance, err := s.ledger.GetBalance(ctx, att.user.ID)
		if err != nil {
			return fmt.Errorf("чтение баланса: %w", err)
		}
		if balance < att.cost {
			return &domain.InsufficientTokensError{Platform: att.job.Platform, Required: att.cost, Available: balance}
		}
	}

	if err := pub.Validate(att.conn, att.settings); err != nil {
		return err
	}

	if att.user.Privileged() {
		// Списания нет, но флаг ставится: дальнейшая логика отчёта
		// и возврата едина для всех аккаунтов.
		att.charged = true
	} else {
		ok, err := s.ledger.Charge(ctx, att.user.ID, att.cost)
		if err != nil {
			return fmt.Errorf("списание токенов: %w", err)
		}
		if !ok {
			balance, berr := s.ledger.GetBalance(ctx, att.user.ID)
			if berr != nil {
				balance = 0
			}
			return &domain.InsufficientTokensError{Platform: att.job.Platform, Required: att.cost, Available: balance}
		}
		att.charged = true
	}

	content, err := s.generator.Generate(ctx, att.category, att.job.Platform, att.settings)
	if err != nil {
		return &domain.ContentGenerationError{Platform: att.job.Platform, ContentType: "article", Cause: err}
	}
	att.content = content

	url, err := pub.Publish(ctx, att.conn, content)
	if err != nil {
		return err
	}
	att.postURL = url
	return nil
}

// settle завершает попытку: возврат токенов при сбое после списания,
// ровно одна запись в аудит и отчёт пользователю.
func (s *Service) settle(ctx context.Context, att *attempt, attemptErr error) {
	refunded := false
	if attemptErr != nil && att.charged && !att.user.Privileged() {
		if err := s.ledger.Refund(ctx, att.user.ID, att.cost); err != nil {
			s.logger.Error().Err(err).
				Int64("user_id", att.user.ID).
				Int64("amount", att.cost).
				Str("job_id", att.job.ID).
				Msg("publish: возврат токенов не выполнен")
		} else {
			refunded = true
		}
	}

	record := domain.PublicationRecord{
		UserID:     att.job.UserID,
		CategoryID: att.job.CategoryID,
		Platform:   att.job.Platform,
		PlatformID: att.job.PlatformID,
		WordCount:  att.content.WordCount,
	}
	if attemptErr == nil {
		record.Status = domain.PublicationStatusSuccess
		record.PostURL = att.postURL
		if !att.user.Privileged() {
			record.TokensSpent = att.cost
		}
	} else {
		record.Status = domain.PublicationStatusFailed
		record.ErrorMessage = attemptErr.Error()
	}
	if err := s.audit.Append(ctx, record); err != nil {
		s.logger.Error().Err(err).Str("job_id", att.job.ID).Msg("publish: запись в аудит не выполнена")
	}

	if attemptErr == nil {
		s.logger.Info().
			Str("job_id", att.job.ID).
			Str("platform", string(att.job.Platform)).
			Str("post_url", att.postURL).
			Msg("publish: публикация выполнена")
		s.reporter.ReportSuccess(ctx, att.user, att.category, att.job.Platform, att.postURL, att.cost)
	} else {
		s.logger.Warn().Err(attemptErr).
			Str("job_id", att.job.ID).
			Str("platform", string(att.job.Platform)).
			Bool("refunded", refunded).
			Msg("publish: попытка публикации не удалась")
		s.reporter.ReportFailure(ctx, att.user, att.category, att.job.Platform, attemptErr, refunded)
	}
}
