package outboxevents

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind 标识领域事件类型。
type Kind int

// 领域事件类型常量。
const (
	// KindUnknown 表示未识别的事件类型。
	KindUnknown Kind = iota
	// KindRewardGranted 表示一次观看奖励发放成功。
	KindRewardGranted
	// KindWatchProgressed 表示观看进度推进事件。
	KindWatchProgressed
	// KindDailyCapReached 表示用户触达当日发放上限。
	KindDailyCapReached
)

func (k Kind) String() string {
	switch k {
	case KindRewardGranted:
		return "rewards.reward.granted"
	case KindWatchProgressed:
		return "rewards.watch.progressed"
	case KindDailyCapReached:
		return "rewards.daily_cap.reached"
	default:
		return "rewards.event.unknown"
	}
}

// DomainEvent 表示领域层生成的标准事件。
type DomainEvent struct {
	EventID       uuid.UUID
	Kind          Kind
	AggregateID   uuid.UUID
	AggregateType string
	Version       int64
	OccurredAt    time.Time
	Payload       any
}

// RewardGranted 描述奖励发放事件载荷。
type RewardGranted struct {
	UserID       uuid.UUID  `json:"user_id"`
	VideoID      uuid.UUID  `json:"video_id"`
	DayBucket    string     `json:"day_bucket"`
	XPGranted    int64      `json:"xp_granted"`
	CoinsGranted int64      `json:"coins_granted"`
	NewXPTotal   int64      `json:"new_xp_total"`
	NewCoinTotal int64      `json:"new_coin_total"`
	OccurredAt   time.Time  `json:"occurred_at"`
	MaxReached   bool       `json:"max_reached"`
	DailyCapHit  bool       `json:"daily_cap_hit"`
	SessionToken *uuid.UUID `json:"session_token,omitempty"`
}

// WatchProgressed 描述观看进度推进事件载荷。
type WatchProgressed struct {
	UserID              uuid.UUID `json:"user_id"`
	VideoID             uuid.UUID `json:"video_id"`
	LastPositionSeconds float64   `json:"last_position_seconds"`
	LifetimeViewSeconds float64   `json:"lifetime_view_seconds"`
	OccurredAt          time.Time `json:"occurred_at"`
}

// DailyCapReached 描述当日上限触达事件载荷。
type DailyCapReached struct {
	UserID     uuid.UUID `json:"user_id"`
	DayBucket  string    `json:"day_bucket"`
	OccurredAt time.Time `json:"occurred_at"`
}

const (
	// AggregateTypeRewardLedger 标识奖励账本聚合类型。
	AggregateTypeRewardLedger = "rewards.ledger"
	// AggregateTypeWatchProgress 标识观看进度聚合类型。
	AggregateTypeWatchProgress = "rewards.watch_progress"
	// SchemaVersionV1 描述事件载荷的当前 schema 版本。
	SchemaVersionV1 = "v1"
)

var (
	// ErrInvalidEventID 表示未提供合法的事件 ID。
	ErrInvalidEventID = fmt.Errorf("event builder: event id is required")
	// ErrUnknownEventKind 表示未识别的事件类型。
	ErrUnknownEventKind = fmt.Errorf("event builder: unknown event kind")
)
