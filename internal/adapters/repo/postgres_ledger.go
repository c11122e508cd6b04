package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"autopost-bot/internal/infra/metrics"
)

// GetBalance возвращает текущий баланс токенов пользователя.
func (p *Postgres) GetBalance(ctx context.Context, userID int64) (int64, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	var balance int64
	err := p.pool.QueryRow(ctx, `
SELECT token_balance FROM users WHERE id = $1
`, userID).Scan(&balance)
	metrics.ObserveNetworkRequest("postgres", "ledger_get_balance", "users", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return balance, nil
}

// Charge атомарно списывает amount. Проверка достаточности и само
// списание выполняются одним запросом: либо снимается вся сумма, либо
// баланс не меняется и возвращается false.
func (p *Postgres) Charge(ctx context.Context, userID int64, amount int64) (bool, error) {
	if amount <= 0 {
		return true, nil
	}
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
UPDATE users
SET token_balance = token_balance - $1, updated_at = now()
WHERE id = $2 AND token_balance >= $1
`, amount, userID)
	metrics.ObserveNetworkRequest("postgres", "ledger_charge", "users", start, err)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	metrics.TokensChargedTotal.Add(float64(amount))
	return true, nil
}

// Refund безусловно возвращает amount на баланс.
func (p *Postgres) Refund(ctx context.Context, userID int64, amount int64) error {
	if amount <= 0 {
		return nil
	}
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
UPDATE users
SET token_balance = token_balance + $1, updated_at = now()
WHERE id = $2
`, amount, userID)
	metrics.ObserveNetworkRequest("postgres", "ledger_refund", "users", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	metrics.TokensRefundedTotal.Add(float64(amount))
	return nil
}
