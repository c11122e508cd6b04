package publish

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"autopost-bot/internal/domain"
)

type stubUsers struct{ users map[int64]domain.User }

func (s *stubUsers) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (s *stubUsers) GetByTGID(ctx context.Context, tgUserID int64) (domain.User, error) {
	panic("не используется в тестах публикаций")
}

func (s *stubUsers) UpsertByTGID(ctx context.Context, tgUserID int64, locale string) (domain.User, error) {
	panic("не используется в тестах публикаций")
}

type stubCategories struct{ categories map[int64]domain.Category }

func (s *stubCategories) GetCategoryByID(ctx context.Context, id int64) (domain.Category, error) {
	c, ok := s.categories[id]
	if !ok {
		return domain.Category{}, domain.ErrNotFound
	}
	return c, nil
}

func (s *stubCategories) ListCategoriesByUser(ctx context.Context, userID int64) ([]domain.Category, error) {
	panic("не используется в тестах публикаций")
}

type stubPlatforms struct{ conn *domain.PlatformConnection }

func (s *stubPlatforms) GetConnection(ctx context.Context, userID int64, platform domain.PlatformType, platformID string) (domain.PlatformConnection, error) {
	if s.conn == nil {
		return domain.PlatformConnection{}, domain.ErrNotFound
	}
	return *s.conn, nil
}

type stubSettings struct{ settings domain.ContentSettings }

func (s *stubSettings) GetContentSettings(ctx context.Context, categoryID int64) (domain.ContentSettings, error) {
	return s.settings, nil
}

type memLedger struct {
	balances map[int64]int64
	charges  int
	refunds  int
}

func (l *memLedger) GetBalance(ctx context.Context, userID int64) (int64, error) {
	return l.balances[userID], nil
}

func (l *memLedger) Charge(ctx context.Context, userID int64, amount int64) (bool, error) {
	l.charges++
	if l.balances[userID] < amount {
		return false, nil
	}
	l.balances[userID] -= amount
	return true, nil
}

func (l *memLedger) Refund(ctx context.Context, userID int64, amount int64) error {
	l.refunds++
	l.balances[userID] += amount
	return nil
}

type stubGenerator struct{ err error }

func (g *stubGenerator) Generate(ctx context.Context, category domain.Category, platform domain.PlatformType, settings domain.ContentSettings) (domain.GeneratedContent, error) {
	if g.err != nil {
		return domain.GeneratedContent{}, g.err
	}
	return domain.GeneratedContent{Title: "Заголовок", Text: "Текст материала", WordCount: 2}, nil
}

type stubAudit struct{ records []domain.PublicationRecord }

func (a *stubAudit) Append(ctx context.Context, record domain.PublicationRecord) error {
	a.records = append(a.records, record)
	return nil
}

func (a *stubAudit) ListPublications(ctx context.Context, userID int64, limit int) ([]domain.PublicationRecord, error) {
	return a.records, nil
}

type stubSink struct{ messages []string }

func (s *stubSink) Send(ctx context.Context, tgUserID int64, message string) error {
	s.messages = append(s.messages, message)
	return nil
}

type testPublisher struct {
	platform    domain.PlatformType
	preValidate func() error
	validate    func() error
	publish     func() (string, error)
}

func (p *testPublisher) Platform() domain.PlatformType { return p.platform }

func (p *testPublisher) PreValidate(ctx context.Context, conn domain.PlatformConnection) error {
	if p.preValidate != nil {
		return p.preValidate()
	}
	return nil
}

func (p *testPublisher) Validate(conn domain.PlatformConnection, settings domain.ContentSettings) error {
	if p.validate != nil {
		return p.validate()
	}
	return nil
}

func (p *testPublisher) Publish(ctx context.Context, conn domain.PlatformConnection, content domain.GeneratedContent) (string, error) {
	if p.publish != nil {
		return p.publish()
	}
	return "https://example.com/post/1", nil
}

type env struct {
	ledger *memLedger
	audit  *stubAudit
	sink   *stubSink
	gen    *stubGenerator
	svc    *Service
}

// Настройки long + 2 изображения дают стоимость 50 токенов.
func newEnv(balance int64, role domain.UserRole) *env {
	ledger := &memLedger{balances: map[int64]int64{1: balance}}
	audit := &stubAudit{}
	sink := &stubSink{}
	gen := &stubGenerator{}
	svc := NewService(
		&stubUsers{users: map[int64]domain.User{1: {ID: 1, TGUserID: 100, Role: role, TokenBalance: balance}}},
		&stubCategories{categories: map[int64]domain.Category{2: {ID: 2, UserID: 1, Title: "Сад и огород", Topic: "садоводство"}}},
		&stubPlatforms{conn: &domain.PlatformConnection{ID: 3, UserID: 1, Platform: domain.PlatformWebsite, PlatformID: "site-1", AccessToken: "tok"}},
		&stubSettings{settings: domain.ContentSettings{WordTier: domain.WordTierLong, ImageCount: 2}},
		ledger,
		gen,
		audit,
		NewReporter(sink, zerolog.Nop()),
		zerolog.Nop(),
	)
	return &env{ledger: ledger, audit: audit, sink: sink, gen: gen, svc: svc}
}

func testJob() domain.PublishJob {
	return domain.PublishJob{
		ID:         "job-1",
		ScheduleID: 7,
		CategoryID: 2,
		Platform:   domain.PlatformWebsite,
		PlatformID: "site-1",
		UserID:     1,
		Cause:      domain.PublishCauseScheduled,
	}
}

func TestAttemptSuccessChargesExactCost(t *testing.T) {
	e := newEnv(1000, domain.UserRoleFree)
	pub := &testPublisher{platform: domain.PlatformWebsite}

	if err := e.svc.Attempt(context.Background(), pub, testJob()); err != nil {
		t.Fatalf("успешная попытка не должна возвращать ошибку: %v", err)
	}
	if got := e.ledger.balances[1]; got != 950 {
		t.Fatalf("ожидали баланс 950 после списания 50, получили %d", got)
	}
	if len(e.audit.records) != 1 {
		t.Fatalf("ожидали ровно одну запись аудита, получили %d", len(e.audit.records))
	}
	rec := e.audit.records[0]
	if rec.Status != domain.PublicationStatusSuccess || rec.TokensSpent != 50 || rec.PostURL == "" {
		t.Fatalf("неожиданная запись аудита: %+v", rec)
	}
	if len(e.sink.messages) != 1 || !strings.Contains(e.sink.messages[0], "✅") {
		t.Fatalf("ожидали отчёт об успехе, получили %v", e.sink.messages)
	}
}

func TestAttemptInsufficientTokens(t *testing.T) {
	// Баланс 10 при стоимости 50: отказ без списания.
	e := newEnv(10, domain.UserRoleFree)
	pub := &testPublisher{platform: domain.PlatformWebsite}

	if err := e.svc.Attempt(context.Background(), pub, testJob()); err != nil {
		t.Fatalf("бизнес-отказ не должен возвращаться как ошибка: %v", err)
	}
	if got := e.ledger.balances[1]; got != 10 {
		t.Fatalf("баланс должен остаться 10, получили %d", got)
	}
	if e.ledger.charges != 0 {
		t.Fatalf("до проверки баланса списаний быть не должно, было %d", e.ledger.charges)
	}
	rec := e.audit.records[0]
	if rec.Status != domain.PublicationStatusFailed || !strings.Contains(rec.ErrorMessage, "недостаточно токенов") {
		t.Fatalf("неожиданная запись аудита: %+v", rec)
	}
}

func TestAttemptAPIErrorRefunds(t *testing.T) {
	// Списание прошло, публикация упала: возврат восстанавливает баланс.
	e := newEnv(1000, domain.UserRoleFree)
	pub := &testPublisher{
		platform: domain.PlatformWebsite,
		publish: func() (string, error) {
			return "", &domain.APIError{Platform: domain.PlatformWebsite, StatusCode: 500, Response: "internal"}
		},
	}

	if err := e.svc.Attempt(context.Background(), pub, testJob()); err != nil {
		t.Fatalf("бизнес-отказ не должен возвращаться как ошибка: %v", err)
	}
	if got := e.ledger.balances[1]; got != 1000 {
		t.Fatalf("возврат должен восстановить баланс 1000, получили %d", got)
	}
	if e.ledger.charges != 1 || e.ledger.refunds != 1 {
		t.Fatalf("ожидали одно списание и один возврат, было %d/%d", e.ledger.charges, e.ledger.refunds)
	}
	if len(e.sink.messages) != 1 || !strings.Contains(e.sink.messages[0], "Токены возвращены") {
		t.Fatalf("отчёт должен упоминать возврат токенов: %v", e.sink.messages)
	}
}

func TestAttemptPrivilegedBypass(t *testing.T) {
	// God-аккаунт: баланс не трогается, но номинальная стоимость в отчёте есть.
	e := newEnv(77, domain.UserRoleGod)
	pub := &testPublisher{platform: domain.PlatformWebsite}

	if err := e.svc.Attempt(context.Background(), pub, testJob()); err != nil {
		t.Fatalf("успешная попытка не должна возвращать ошибку: %v", err)
	}
	if got := e.ledger.balances[1]; got != 77 {
		t.Fatalf("баланс привилегированного аккаунта должен остаться 77, получили %d", got)
	}
	if e.ledger.charges != 0 || e.ledger.refunds != 0 {
		t.Fatalf("ledger не должен был вызываться: %d/%d", e.ledger.charges, e.ledger.refunds)
	}
	if rec := e.audit.records[0]; rec.TokensSpent != 0 {
		t.Fatalf("с привилегированного аккаунта ничего не списано, в аудите %d", rec.TokensSpent)
	}
	if len(e.sink.messages) != 1 || !strings.Contains(e.sink.messages[0], "50 токенов") {
		t.Fatalf("отчёт должен показывать номинальную стоимость 50: %v", e.sink.messages)
	}
}

func TestAttemptNoPrematureCharge(t *testing.T) {
	e := newEnv(1000, domain.UserRoleFree)
	pub := &testPublisher{
		platform: domain.PlatformWebsite,
		preValidate: func() error {
			return &domain.ValidationError{Platform: domain.PlatformWebsite, Field: "base_url", Reason: "адрес сайта не задан"}
		},
	}

	if err := e.svc.Attempt(context.Background(), pub, testJob()); err != nil {
		t.Fatalf("бизнес-отказ не должен возвращаться как ошибка: %v", err)
	}
	if e.ledger.charges != 0 || e.ledger.refunds != 0 {
		t.Fatalf("при отказе до списания ledger не должен вызываться: %d/%d", e.ledger.charges, e.ledger.refunds)
	}
	if got := e.ledger.balances[1]; got != 1000 {
		t.Fatalf("баланс должен остаться 1000, получили %d", got)
	}
}

func TestAttemptGenerationFailureRefunds(t *testing.T) {
	e := newEnv(1000, domain.UserRoleFree)
	e.gen.err = context.DeadlineExceeded
	pub := &testPublisher{platform: domain.PlatformWebsite}

	if err := e.svc.Attempt(context.Background(), pub, testJob()); err != nil {
		t.Fatalf("сбой генерации не должен возвращаться как ошибка: %v", err)
	}
	if got := e.ledger.balances[1]; got != 1000 {
		t.Fatalf("после сбоя генерации баланс должен быть 1000, получили %d", got)
	}
	if rec := e.audit.records[0]; rec.Status != domain.PublicationStatusFailed {
		t.Fatalf("ожидали запись о неудаче: %+v", rec)
	}
}

func TestAttemptPanicRecoveredAndRefunded(t *testing.T) {
	e := newEnv(1000, domain.UserRoleFree)
	pub := &testPublisher{
		platform: domain.PlatformWebsite,
		publish:  func() (string, error) { panic("площадка взорвалась") },
	}

	if err := e.svc.Attempt(context.Background(), pub, testJob()); err != nil {
		t.Fatalf("паника должна гаситься на границе попытки: %v", err)
	}
	if got := e.ledger.balances[1]; got != 1000 {
		t.Fatalf("после паники возврат должен восстановить баланс 1000, получили %d", got)
	}
	if len(e.audit.records) != 1 || e.audit.records[0].Status != domain.PublicationStatusFailed {
		t.Fatalf("паника должна завершиться одной записью о неудаче: %+v", e.audit.records)
	}
}

func TestAttemptCategoryMissing(t *testing.T) {
	e := newEnv(1000, domain.UserRoleFree)
	pub := &testPublisher{platform: domain.PlatformWebsite}
	job := testJob()
	job.CategoryID = 999

	if err := e.svc.Attempt(context.Background(), pub, job); err != nil {
		t.Fatalf("отсутствие рубрики — бизнес-отказ, не ошибка: %v", err)
	}
	if e.ledger.charges != 0 {
		t.Fatalf("списаний при отказе на загрузке быть не должно")
	}
	rec := e.audit.records[0]
	if !strings.Contains(rec.ErrorMessage, "не найдена") {
		t.Fatalf("неожиданное сообщение об ошибке: %q", rec.ErrorMessage)
	}
}

func TestCostOf(t *testing.T) {
	cases := []struct {
		settings domain.ContentSettings
		want     int64
	}{
		{domain.ContentSettings{WordTier: domain.WordTierShort}, 10},
		{domain.ContentSettings{WordTier: domain.WordTierMedium}, 20},
		{domain.ContentSettings{WordTier: domain.WordTierLong}, 40},
		{domain.ContentSettings{WordTier: domain.WordTierLong, ImageCount: 2}, 50},
		{domain.ContentSettings{}, 20}, // незаполненный tier считается средним
	}
	for _, tc := range cases {
		if got := CostOf(tc.settings); got != tc.want {
			t.Fatalf("CostOf(%+v) = %d, ожидали %d", tc.settings, got, tc.want)
		}
	}
}
