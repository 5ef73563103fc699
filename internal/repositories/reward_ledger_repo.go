package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikey1384/twinkle-vite-sub013/internal/models/po"
	"github.com/mikey1384/twinkle-vite-sub013/internal/repositories/mappers"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrLedgerEntryNotFound 表示账本行不存在。
var ErrLedgerEntryNotFound = errors.New("reward ledger entry not found")

// RewardLedgerRepository 访问 rewards.reward_ledger。
// 账本是 append-only 的：金额只增不减，cap 标志只置位不清除。
type RewardLedgerRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewRewardLedgerRepository 构造仓储实例。
func NewRewardLedgerRepository(db *pgxpool.Pool, logger log.Logger) *RewardLedgerRepository {
	return &RewardLedgerRepository{
		db:  db,
		log: log.NewHelper(logger),
	}
}

const summarizeVideoSQL = `
SELECT COALESCE(SUM(xp_granted), 0),
       COALESCE(SUM(coins_granted), 0),
       MAX(last_claim_at),
       COALESCE(BOOL_OR(xp_max_reached_for_video), false)
FROM rewards.reward_ledger
WHERE user_id = $1 AND video_id = $2
`

// SummarizeVideo 汇总 (user, video) 在所有日期上的发放状态。
// xp_max_reached_for_video 一旦在任意日置位即视为永久生效。
func (r *RewardLedgerRepository) SummarizeVideo(ctx context.Context, sess txmanager.Session, userID, videoID uuid.UUID) (*po.VideoLedgerSummary, error) {
	q := pick(r.db, sess)
	var (
		summary po.VideoLedgerSummary
		last    pgtype.Timestamptz
	)
	if err := q.QueryRow(ctx, summarizeVideoSQL, userID, videoID).Scan(
		&summary.XPGrantedTotal,
		&summary.CoinsGrantedTotal,
		&last,
		&summary.XPMaxReachedForVideo,
	); err != nil {
		return nil, fmt.Errorf("summarize video ledger: %w", err)
	}
	summary.LastClaimAt = mappers.TimestampPtr(last)
	return &summary, nil
}

const summarizeDaySQL = `
SELECT COALESCE(SUM(xp_granted + coins_granted), 0),
       COALESCE(BOOL_OR(daily_cap_reached), false)
FROM rewards.reward_ledger
WHERE user_id = $1 AND day_bucket = $2
`

// SummarizeDay 汇总用户当日跨视频的发放总额与上限状态。
func (r *RewardLedgerRepository) SummarizeDay(ctx context.Context, sess txmanager.Session, userID uuid.UUID, day time.Time) (*po.DayLedgerSummary, error) {
	q := pick(r.db, sess)
	var summary po.DayLedgerSummary
	if err := q.QueryRow(ctx, summarizeDaySQL, userID, mappers.ToPgDate(day)).Scan(
		&summary.AmountGrantedTotal,
		&summary.DailyCapReached,
	); err != nil {
		return nil, fmt.Errorf("summarize day ledger: %w", err)
	}
	return &summary, nil
}

// ApplyGrantInput 描述一次账本写入。金额为增量，标志按 OR 合并。
type ApplyGrantInput struct {
	UserID       uuid.UUID
	VideoID      uuid.UUID
	Day          time.Time
	XPDelta      int64
	CoinsDelta   int64
	ClaimAt      *time.Time
	MarkVideoMax bool
	MarkDailyCap bool
}

const applyGrantSQL = `
INSERT INTO rewards.reward_ledger (
    user_id, video_id, day_bucket, xp_granted, coins_granted,
    xp_max_reached_for_video, daily_cap_reached, last_claim_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (user_id, video_id, day_bucket) DO UPDATE SET
    xp_granted               = rewards.reward_ledger.xp_granted + EXCLUDED.xp_granted,
    coins_granted            = rewards.reward_ledger.coins_granted + EXCLUDED.coins_granted,
    xp_max_reached_for_video = rewards.reward_ledger.xp_max_reached_for_video OR EXCLUDED.xp_max_reached_for_video,
    daily_cap_reached        = rewards.reward_ledger.daily_cap_reached OR EXCLUDED.daily_cap_reached,
    last_claim_at            = COALESCE(EXCLUDED.last_claim_at, rewards.reward_ledger.last_claim_at),
    updated_at               = now()
`

// ApplyGrant 以增量方式写入账本行；重复调用只会叠加，不会覆盖。
func (r *RewardLedgerRepository) ApplyGrant(ctx context.Context, sess txmanager.Session, input ApplyGrantInput) error {
	if input.XPDelta < 0 || input.CoinsDelta < 0 {
		return fmt.Errorf("apply grant: negative delta")
	}
	q := pick(r.db, sess)
	if _, err := q.Exec(ctx, applyGrantSQL,
		input.UserID,
		input.VideoID,
		mappers.ToPgDate(input.Day),
		input.XPDelta,
		input.CoinsDelta,
		input.MarkVideoMax,
		input.MarkDailyCap,
		mappers.ToPgTimestamptzPtr(input.ClaimAt),
	); err != nil {
		r.log.WithContext(ctx).Errorf("apply grant failed: user=%s video=%s err=%v", input.UserID, input.VideoID, err)
		return fmt.Errorf("apply grant: %w", err)
	}
	return nil
}

const getLedgerEntrySQL = `
SELECT user_id, video_id, day_bucket, xp_granted, coins_granted,
       xp_max_reached_for_video, daily_cap_reached, last_claim_at,
       created_at, updated_at
FROM rewards.reward_ledger
WHERE user_id = $1 AND video_id = $2 AND day_bucket = $3
`

// Get 返回单个账本行。
func (r *RewardLedgerRepository) Get(ctx context.Context, sess txmanager.Session, userID, videoID uuid.UUID, day time.Time) (*po.RewardLedgerEntry, error) {
	q := pick(r.db, sess)
	var (
		entry            po.RewardLedgerEntry
		bucket           pgtype.Date
		last             pgtype.Timestamptz
		created, updated pgtype.Timestamptz
	)
	if err := q.QueryRow(ctx, getLedgerEntrySQL, userID, videoID, mappers.ToPgDate(day)).Scan(
		&entry.UserID,
		&entry.VideoID,
		&bucket,
		&entry.XPGranted,
		&entry.CoinsGranted,
		&entry.XPMaxReachedForVideo,
		&entry.DailyCapReached,
		&last,
		&created,
		&updated,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLedgerEntryNotFound
		}
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	entry.DayBucket = mappers.DateToTime(bucket)
	entry.LastClaimAt = mappers.TimestampPtr(last)
	entry.CreatedAt = mappers.MustTimestamp(created)
	entry.UpdatedAt = mappers.MustTimestamp(updated)
	return &entry, nil
}
