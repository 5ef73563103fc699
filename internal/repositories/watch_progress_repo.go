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

// ErrWatchProgressNotFound 表示观看进度记录不存在。
var ErrWatchProgressNotFound = errors.New("watch progress not found")

// WatchProgressRepository 访问 rewards.watch_progress。
type WatchProgressRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewWatchProgressRepository 构造仓储实例。
func NewWatchProgressRepository(db *pgxpool.Pool, logger log.Logger) *WatchProgressRepository {
	return &WatchProgressRepository{
		db:  db,
		log: log.NewHelper(logger),
	}
}

// UpsertWatchProgressInput 描述观看进度写入参数。
// LastPositionSeconds 采用 last-write-wins；LifetimeDeltaSeconds 为增量累加。
type UpsertWatchProgressInput struct {
	UserID               uuid.UUID
	VideoID              uuid.UUID
	LastPositionSeconds  float64
	LifetimeDeltaSeconds float64
	ObservedAt           *time.Time
}

const upsertWatchProgressSQL = `
INSERT INTO rewards.watch_progress (
    user_id, video_id, last_position_seconds, lifetime_view_seconds,
    first_watched_at, last_watched_at
) VALUES (
    $1, $2, $3, GREATEST($4::numeric, 0),
    COALESCE($5, now()), COALESCE($5, now())
)
ON CONFLICT (user_id, video_id) DO UPDATE SET
    last_position_seconds = EXCLUDED.last_position_seconds,
    lifetime_view_seconds = rewards.watch_progress.lifetime_view_seconds + GREATEST($4::numeric, 0),
    last_watched_at       = COALESCE($5, now()),
    updated_at            = now()
`

// Upsert 插入或更新观看进度；生命周期累计秒数以原子增量方式推进。
func (r *WatchProgressRepository) Upsert(ctx context.Context, sess txmanager.Session, input UpsertWatchProgressInput) error {
	q := pick(r.db, sess)
	if _, err := q.Exec(ctx, upsertWatchProgressSQL,
		input.UserID,
		input.VideoID,
		mappers.ToPgNumeric(input.LastPositionSeconds),
		mappers.ToPgNumeric(input.LifetimeDeltaSeconds),
		mappers.ToPgTimestamptzPtr(input.ObservedAt),
	); err != nil {
		r.log.WithContext(ctx).Errorf("upsert watch progress failed: user=%s video=%s err=%v", input.UserID, input.VideoID, err)
		return fmt.Errorf("upsert watch progress: %w", err)
	}
	return nil
}

const getWatchProgressSQL = `
SELECT user_id, video_id, last_position_seconds, lifetime_view_seconds,
       first_watched_at, last_watched_at, created_at, updated_at
FROM rewards.watch_progress
WHERE user_id = $1 AND video_id = $2
`

// Get 返回观看进度记录。
func (r *WatchProgressRepository) Get(ctx context.Context, sess txmanager.Session, userID, videoID uuid.UUID) (*po.WatchProgress, error) {
	q := pick(r.db, sess)
	row := q.QueryRow(ctx, getWatchProgressSQL, userID, videoID)

	var (
		rec                po.WatchProgress
		position, lifetime pgtype.Numeric
		first, last        pgtype.Timestamptz
		created, updated   pgtype.Timestamptz
	)
	if err := row.Scan(&rec.UserID, &rec.VideoID, &position, &lifetime, &first, &last, &created, &updated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWatchProgressNotFound
		}
		return nil, fmt.Errorf("get watch progress: %w", err)
	}
	rec.LastPositionSeconds = mappers.NumericToFloat64(position)
	rec.LifetimeViewSeconds = mappers.NumericToFloat64(lifetime)
	rec.FirstWatchedAt = mappers.MustTimestamp(first)
	rec.LastWatchedAt = mappers.MustTimestamp(last)
	rec.CreatedAt = mappers.MustTimestamp(created)
	rec.UpdatedAt = mappers.MustTimestamp(updated)
	return &rec, nil
}

const listWatchProgressByUserSQL = `
SELECT user_id, video_id, last_position_seconds, lifetime_view_seconds,
       first_watched_at, last_watched_at, created_at, updated_at
FROM rewards.watch_progress
WHERE user_id = $1
ORDER BY last_watched_at DESC
LIMIT $2 OFFSET $3
`

// ListByUser 返回用户最近的观看进度记录。
func (r *WatchProgressRepository) ListByUser(ctx context.Context, sess txmanager.Session, userID uuid.UUID, limit, offset int32) ([]*po.WatchProgress, error) {
	if limit <= 0 {
		limit = 20
	}
	q := pick(r.db, sess)
	rows, err := q.Query(ctx, listWatchProgressByUserSQL, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list watch progress: %w", err)
	}
	defer rows.Close()

	var result []*po.WatchProgress
	for rows.Next() {
		var (
			rec                po.WatchProgress
			position, lifetime pgtype.Numeric
			first, last        pgtype.Timestamptz
			created, updated   pgtype.Timestamptz
		)
		if err := rows.Scan(&rec.UserID, &rec.VideoID, &position, &lifetime, &first, &last, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan watch progress: %w", err)
		}
		rec.LastPositionSeconds = mappers.NumericToFloat64(position)
		rec.LifetimeViewSeconds = mappers.NumericToFloat64(lifetime)
		rec.FirstWatchedAt = mappers.MustTimestamp(first)
		rec.LastWatchedAt = mappers.MustTimestamp(last)
		rec.CreatedAt = mappers.MustTimestamp(created)
		rec.UpdatedAt = mappers.MustTimestamp(updated)
		result = append(result, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watch progress: %w", err)
	}
	return result, nil
}
