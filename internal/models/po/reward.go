package po

import (
	"time"

	"github.com/google/uuid"
)

// WatchProgress 表示 rewards.watch_progress 表中的观看进度记录。
type WatchProgress struct {
	UserID              uuid.UUID
	VideoID             uuid.UUID
	LastPositionSeconds float64
	LifetimeViewSeconds float64
	FirstWatchedAt      time.Time
	LastWatchedAt       time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// RewardLedgerEntry 表示 rewards.reward_ledger 表的行，按 (user, video, UTC 日) 聚合。
type RewardLedgerEntry struct {
	UserID               uuid.UUID
	VideoID              uuid.UUID
	DayBucket            time.Time
	XPGranted            int64
	CoinsGranted         int64
	XPMaxReachedForVideo bool
	DailyCapReached      bool
	LastClaimAt          *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// VideoLedgerSummary 汇总单个 (user, video) 对在所有日期上的发放状态。
type VideoLedgerSummary struct {
	XPGrantedTotal       int64
	CoinsGrantedTotal    int64
	LastClaimAt          *time.Time
	XPMaxReachedForVideo bool
}

// DayLedgerSummary 汇总用户当日跨视频的发放状态。
type DayLedgerSummary struct {
	AmountGrantedTotal int64
	DailyCapReached    bool
}

// UserBalance 表示 rewards.user_balances 表中的全局余额。
type UserBalance struct {
	UserID    uuid.UUID
	XPTotal   int64
	CoinTotal int64
	UpdatedAt time.Time
}

// RewardVideo 表示 rewards.videos_projection 投影表，由 catalog 事件维护。
type RewardVideo struct {
	VideoID         uuid.UUID
	Title           string
	RewardLevel     int32
	DurationSeconds float64
	DeletedAt       *time.Time
	Version         int64
	UpdatedAt       time.Time
}
