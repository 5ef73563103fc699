package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikey1384/twinkle-vite-sub013/internal/models/po"
	"github.com/mikey1384/twinkle-vite-sub013/internal/repositories/mappers"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUserBalanceNotFound 表示余额记录不存在。
var ErrUserBalanceNotFound = errors.New("user balance not found")

// UserBalancesRepository 访问 rewards.user_balances。
// 余额只接受原子增量更新，禁止整行覆盖写。
type UserBalancesRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewUserBalancesRepository 构造仓储实例。
func NewUserBalancesRepository(db *pgxpool.Pool, logger log.Logger) *UserBalancesRepository {
	return &UserBalancesRepository{
		db:  db,
		log: log.NewHelper(logger),
	}
}

const ensureBalanceSQL = `
INSERT INTO rewards.user_balances (user_id) VALUES ($1)
ON CONFLICT (user_id) DO NOTHING
`

const lockBalanceSQL = `
SELECT user_id, xp_total, coin_total, updated_at
FROM rewards.user_balances
WHERE user_id = $1
FOR UPDATE
`

// EnsureAndLock 创建缺失的余额行并对其加行锁，用于串行化同一用户的申领。
// 必须在事务会话内调用。
func (r *UserBalancesRepository) EnsureAndLock(ctx context.Context, sess txmanager.Session, userID uuid.UUID) (*po.UserBalance, error) {
	if sess == nil || sess.Tx() == nil {
		return nil, fmt.Errorf("ensure balance: transaction session required")
	}
	q := pick(r.db, sess)
	if _, err := q.Exec(ctx, ensureBalanceSQL, userID); err != nil {
		return nil, fmt.Errorf("ensure balance: %w", err)
	}
	return scanBalance(q.QueryRow(ctx, lockBalanceSQL, userID))
}

const incrementBalanceSQL = `
UPDATE rewards.user_balances
SET xp_total   = xp_total + $2,
    coin_total = coin_total + $3,
    updated_at = now()
WHERE user_id = $1
RETURNING user_id, xp_total, coin_total, updated_at
`

// Increment 以增量方式更新余额并返回权威的新值。
func (r *UserBalancesRepository) Increment(ctx context.Context, sess txmanager.Session, userID uuid.UUID, xpDelta, coinDelta int64) (*po.UserBalance, error) {
	if xpDelta < 0 || coinDelta < 0 {
		return nil, fmt.Errorf("increment balance: negative delta")
	}
	q := pick(r.db, sess)
	balance, err := scanBalance(q.QueryRow(ctx, incrementBalanceSQL, userID, xpDelta, coinDelta))
	if err != nil {
		r.log.WithContext(ctx).Errorf("increment balance failed: user=%s err=%v", userID, err)
		return nil, err
	}
	return balance, nil
}

const getBalanceSQL = `
SELECT user_id, xp_total, coin_total, updated_at
FROM rewards.user_balances
WHERE user_id = $1
`

// Get 返回用户余额。
func (r *UserBalancesRepository) Get(ctx context.Context, sess txmanager.Session, userID uuid.UUID) (*po.UserBalance, error) {
	q := pick(r.db, sess)
	return scanBalance(q.QueryRow(ctx, getBalanceSQL, userID))
}

func scanBalance(row pgx.Row) (*po.UserBalance, error) {
	var (
		balance po.UserBalance
		updated pgtype.Timestamptz
	)
	if err := row.Scan(&balance.UserID, &balance.XPTotal, &balance.CoinTotal, &updated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserBalanceNotFound
		}
		return nil, fmt.Errorf("scan balance: %w", err)
	}
	balance.UpdatedAt = mappers.MustTimestamp(updated)
	return &balance, nil
}
