package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"autopost-bot/internal/domain"
	"autopost-bot/internal/infra/metrics"
)

// ErrNotFound возвращается, когда запись отсутствует.
var ErrNotFound = domain.ErrNotFound

// Postgres реализует репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.ScheduleRepo        = (*Postgres)(nil)
	_ domain.UserRepo            = (*Postgres)(nil)
	_ domain.CategoryRepo        = (*Postgres)(nil)
	_ domain.PlatformRepo        = (*Postgres)(nil)
	_ domain.SettingsRepo        = (*Postgres)(nil)
	_ domain.PublicationLogStore = (*Postgres)(nil)
	_ domain.TokenLedger         = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func (p *Postgres) connCtxWithParent(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return p.connCtx()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// ListEnabled возвращает все включённые расписания.
func (p *Postgres) ListEnabled(ctx context.Context) ([]domain.Schedule, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id, category_id, platform, platform_id, user_id, enabled, days, times, posts_per_day, created_at, updated_at
FROM schedules
WHERE enabled
ORDER BY id
`)
	metrics.ObserveNetworkRequest("postgres", "schedules_list_enabled", "schedules", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSchedules(rows)
}

// ListSchedulesByUser возвращает расписания пользователя.
func (p *Postgres) ListSchedulesByUser(ctx context.Context, userID int64) ([]domain.Schedule, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id, category_id, platform, platform_id, user_id, enabled, days, times, posts_per_day, created_at, updated_at
FROM schedules
WHERE user_id = $1
ORDER BY id
`, userID)
	metrics.ObserveNetworkRequest("postgres", "schedules_list_by_user", "schedules", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSchedules(rows)
}

// GetSchedule возвращает расписание по идентификатору.
func (p *Postgres) GetSchedule(ctx context.Context, id int64) (domain.Schedule, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `
SELECT id, category_id, platform, platform_id, user_id, enabled, days, times, posts_per_day, created_at, updated_at
FROM schedules
WHERE id = $1
`, id)
	s, err := scanSchedule(row)
	metrics.ObserveNetworkRequest("postgres", "schedules_get", "schedules", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Schedule{}, ErrNotFound
		}
		return domain.Schedule{}, err
	}
	return s, nil
}

// CreateSchedule сохраняет новое расписание.
func (p *Postgres) CreateSchedule(ctx context.Context, s domain.Schedule) (domain.Schedule, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `
INSERT INTO schedules (category_id, platform, platform_id, user_id, enabled, days, times, posts_per_day)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, category_id, platform, platform_id, user_id, enabled, days, times, posts_per_day, created_at, updated_at
`, s.CategoryID, s.Platform, s.PlatformID, s.UserID, s.Enabled, s.Days, s.Times, s.PostsPerDay)
	created, err := scanSchedule(row)
	metrics.ObserveNetworkRequest("postgres", "schedules_create", "schedules", start, err)
	if err != nil {
		return domain.Schedule{}, err
	}
	return created, nil
}

// SetScheduleEnabled включает или выключает расписание.
func (p *Postgres) SetScheduleEnabled(ctx context.Context, id int64, enabled bool) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
UPDATE schedules SET enabled = $2, updated_at = now() WHERE id = $1
`, id, enabled)
	metrics.ObserveNetworkRequest("postgres", "schedules_set_enabled", "schedules", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateScheduleSlots заменяет дни и времена расписания.
func (p *Postgres) UpdateScheduleSlots(ctx context.Context, id int64, days, times []string) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
UPDATE schedules SET days = $2, times = $3, updated_at = now() WHERE id = $1
`, id, days, times)
	metrics.ObserveNetworkRequest("postgres", "schedules_update_slots", "schedules", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetUserByID возвращает пользователя.
func (p *Postgres) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	return p.getUser(ctx, "id", id)
}

// GetByTGID возвращает пользователя по Telegram ID.
func (p *Postgres) GetByTGID(ctx context.Context, tgUserID int64) (domain.User, error) {
	return p.getUser(ctx, "tg_user_id", tgUserID)
}

func (p *Postgres) getUser(ctx context.Context, column string, value int64) (domain.User, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `
SELECT id, tg_user_id, locale, role, token_balance, created_at, updated_at
FROM users
WHERE `+column+` = $1
`, value)
	var u domain.User
	err := row.Scan(&u.ID, &u.TGUserID, &u.Locale, &u.Role, &u.TokenBalance, &u.CreatedAt, &u.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", "users_get_by_"+column, "users", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, err
	}
	return u, nil
}

// UpsertByTGID создаёт или обновляет пользователя по Telegram ID.
func (p *Postgres) UpsertByTGID(ctx context.Context, tgUserID int64, locale string) (domain.User, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	locale = strings.TrimSpace(locale)
	start := time.Now()
	row := p.pool.QueryRow(ctx, `
INSERT INTO users (tg_user_id, locale)
VALUES ($1, COALESCE(NULLIF($2,''),'ru-RU'))
ON CONFLICT (tg_user_id) DO UPDATE SET locale = EXCLUDED.locale, updated_at = now()
RETURNING id, tg_user_id, locale, role, token_balance, created_at, updated_at
`, tgUserID, locale)
	var u domain.User
	err := row.Scan(&u.ID, &u.TGUserID, &u.Locale, &u.Role, &u.TokenBalance, &u.CreatedAt, &u.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", "users_upsert", "users", start, err)
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (p *Postgres) getCategoryRow(ctx context.Context, id int64) (domain.Category, error) {
	start := time.Now()
	row := p.pool.QueryRow(ctx, `
SELECT id, user_id, title, topic, language, created_at
FROM categories
WHERE id = $1
`, id)
	var c domain.Category
	err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.Topic, &c.Language, &c.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "categories_get", "categories", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Category{}, ErrNotFound
		}
		return domain.Category{}, err
	}
	return c, nil
}

// GetCategoryByID возвращает рубрику по идентификатору.
func (p *Postgres) GetCategoryByID(ctx context.Context, id int64) (domain.Category, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	return p.getCategoryRow(ctx, id)
}

// ListCategoriesByUser возвращает рубрики пользователя.
func (p *Postgres) ListCategoriesByUser(ctx context.Context, userID int64) ([]domain.Category, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id, user_id, title, topic, language, created_at
FROM categories
WHERE user_id = $1
ORDER BY id
`, userID)
	metrics.ObserveNetworkRequest("postgres", "categories_list_by_user", "categories", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.Topic, &c.Language, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetConnection возвращает подключение пользователя к площадке.
func (p *Postgres) GetConnection(ctx context.Context, userID int64, platform domain.PlatformType, platformID string) (domain.PlatformConnection, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `
SELECT id, user_id, platform, platform_id, access_token, extra, created_at
FROM platform_connections
WHERE user_id = $1 AND platform = $2 AND platform_id = $3
`, userID, platform, platformID)
	var (
		conn  domain.PlatformConnection
		extra []byte
	)
	err := row.Scan(&conn.ID, &conn.UserID, &conn.Platform, &conn.PlatformID, &conn.AccessToken, &extra, &conn.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "platform_connections_get", "platform_connections", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PlatformConnection{}, ErrNotFound
		}
		return domain.PlatformConnection{}, err
	}
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &conn.Extra); err != nil {
			return domain.PlatformConnection{}, err
		}
	}
	return conn, nil
}

// GetContentSettings возвращает настройки контента рубрики. При
// отсутствии записи действуют значения по умолчанию.
func (p *Postgres) GetContentSettings(ctx context.Context, categoryID int64) (domain.ContentSettings, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `
SELECT word_tier, image_count, style
FROM content_settings
WHERE category_id = $1
`, categoryID)
	var s domain.ContentSettings
	err := row.Scan(&s.WordTier, &s.ImageCount, &s.Style)
	metrics.ObserveNetworkRequest("postgres", "content_settings_get", "content_settings", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ContentSettings{WordTier: domain.WordTierMedium}, nil
		}
		return domain.ContentSettings{}, err
	}
	return s, nil
}

// Append сохраняет запись аудита публикации.
func (p *Postgres) Append(ctx context.Context, record domain.PublicationRecord) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO publication_log (user_id, category_id, platform, platform_id, post_url, word_count, tokens_spent, status, error_message)
VALUES ($1, $2, $3, $4, NULLIF($5,''), $6, $7, $8, NULLIF($9,''))
`, record.UserID, record.CategoryID, record.Platform, record.PlatformID, record.PostURL, record.WordCount, record.TokensSpent, record.Status, record.ErrorMessage)
	metrics.ObserveNetworkRequest("postgres", "publication_log_append", "publication_log", start, err)
	return err
}

// ListPublications возвращает последние записи аудита пользователя.
func (p *Postgres) ListPublications(ctx context.Context, userID int64, limit int) ([]domain.PublicationRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id, user_id, category_id, platform, platform_id, COALESCE(post_url, ''), word_count, tokens_spent, status, COALESCE(error_message, ''), created_at
FROM publication_log
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2
`, userID, limit)
	metrics.ObserveNetworkRequest("postgres", "publication_log_list", "publication_log", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.PublicationRecord
	for rows.Next() {
		var r domain.PublicationRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.CategoryID, &r.Platform, &r.PlatformID, &r.PostURL, &r.WordCount, &r.TokensSpent, &r.Status, &r.ErrorMessage, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanSchedule(row pgx.Row) (domain.Schedule, error) {
	var (
		s       domain.Schedule
		updated sql.NullTime
	)
	err := row.Scan(&s.ID, &s.CategoryID, &s.Platform, &s.PlatformID, &s.UserID, &s.Enabled, &s.Days, &s.Times, &s.PostsPerDay, &s.CreatedAt, &updated)
	if err != nil {
		return domain.Schedule{}, err
	}
	if updated.Valid {
		s.UpdatedAt = updated.Time
	}
	return s, nil
}

func scanSchedules(rows pgx.Rows) ([]domain.Schedule, error) {
	var out []domain.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
