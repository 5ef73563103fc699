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

// ErrRewardVideoNotFound 表示视频投影不存在。
var ErrRewardVideoNotFound = errors.New("reward video projection not found")

// VideoProjectionRepository 维护 rewards.videos_projection，
// 投影内容来自 catalog 发布的视频事件。
type VideoProjectionRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewVideoProjectionRepository 构造仓储实例。
func NewVideoProjectionRepository(db *pgxpool.Pool, logger log.Logger) *VideoProjectionRepository {
	return &VideoProjectionRepository{
		db:  db,
		log: log.NewHelper(logger),
	}
}

// UpsertRewardVideoInput 描述投影写入参数。
type UpsertRewardVideoInput struct {
	VideoID         uuid.UUID
	Title           string
	RewardLevel     int32
	DurationSeconds float64
	DeletedAt       *time.Time
	Version         int64
	UpdatedAt       *time.Time
}

const upsertRewardVideoSQL = `
INSERT INTO rewards.videos_projection (
    video_id, title, reward_level, duration_seconds, deleted_at, version, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()))
ON CONFLICT (video_id) DO UPDATE SET
    title            = EXCLUDED.title,
    reward_level     = EXCLUDED.reward_level,
    duration_seconds = EXCLUDED.duration_seconds,
    deleted_at       = EXCLUDED.deleted_at,
    version          = EXCLUDED.version,
    updated_at       = COALESCE($7, now())
WHERE rewards.videos_projection.version <= EXCLUDED.version
`

// Upsert 写入投影；版本号更低的过期事件不会覆盖现有行。
func (r *VideoProjectionRepository) Upsert(ctx context.Context, sess txmanager.Session, input UpsertRewardVideoInput) error {
	q := pick(r.db, sess)
	if _, err := q.Exec(ctx, upsertRewardVideoSQL,
		input.VideoID,
		input.Title,
		input.RewardLevel,
		mappers.ToPgNumeric(input.DurationSeconds),
		mappers.ToPgTimestamptzPtr(input.DeletedAt),
		input.Version,
		mappers.ToPgTimestamptzPtr(input.UpdatedAt),
	); err != nil {
		r.log.WithContext(ctx).Errorf("upsert reward video failed: video=%s err=%v", input.VideoID, err)
		return fmt.Errorf("upsert reward video: %w", err)
	}
	return nil
}

const getRewardVideoSQL = `
SELECT video_id, title, reward_level, duration_seconds, deleted_at, version, updated_at
FROM rewards.videos_projection
WHERE video_id = $1
`

// Get 返回视频投影。
func (r *VideoProjectionRepository) Get(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) (*po.RewardVideo, error) {
	q := pick(r.db, sess)
	var (
		video    po.RewardVideo
		duration pgtype.Numeric
		deleted  pgtype.Timestamptz
		updated  pgtype.Timestamptz
	)
	if err := q.QueryRow(ctx, getRewardVideoSQL, videoID).Scan(
		&video.VideoID,
		&video.Title,
		&video.RewardLevel,
		&duration,
		&deleted,
		&video.Version,
		&updated,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRewardVideoNotFound
		}
		return nil, fmt.Errorf("get reward video: %w", err)
	}
	video.DurationSeconds = mappers.NumericToFloat64(duration)
	video.DeletedAt = mappers.TimestampPtr(deleted)
	video.UpdatedAt = mappers.MustTimestamp(updated)
	return &video, nil
}

const markRewardVideoDeletedSQL = `
UPDATE rewards.videos_projection
SET deleted_at = $2,
    version    = $3,
    updated_at = now()
WHERE video_id = $1 AND version <= $3
`

// MarkDeleted 标记视频已删除；保留行以便账本历史可追溯。
func (r *VideoProjectionRepository) MarkDeleted(ctx context.Context, sess txmanager.Session, videoID uuid.UUID, deletedAt time.Time, version int64) error {
	q := pick(r.db, sess)
	if _, err := q.Exec(ctx, markRewardVideoDeletedSQL, videoID, mappers.ToPgTimestamptz(deletedAt), version); err != nil {
		return fmt.Errorf("mark reward video deleted: %w", err)
	}
	return nil
}
