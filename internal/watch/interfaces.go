// Package watch 实现观看会话状态机：度量有效观看时长、
// 按 tick 周期性地把累计秒数转换为奖励申领，并与服务端并发守卫协同。
package watch

import (
	"context"

	"github.com/google/uuid"
)

// PlayerSnapshot 为播放器在某一时刻的只读状态。
type PlayerSnapshot struct {
	CurrentTime     float64
	DurationSeconds float64
	IsPlaying       bool
	Muted           bool
	Volume          float64
}

// PlayerSource 提供播放器当前状态。实现方通常是播放器适配层。
type PlayerSource interface {
	Snapshot() PlayerSnapshot
}

// ProgressReport 描述一次进度上报。
type ProgressReport struct {
	UserID          uuid.UUID
	VideoID         uuid.UUID
	PositionSeconds float64
	DeltaSeconds    float64
}

// ProgressStore 持久化观看进度。上报失败由下一个 tick 重试。
type ProgressStore interface {
	ReportProgress(ctx context.Context, report ProgressReport) error
}

// ClaimRequest 描述向账本发起的一次申领。
type ClaimRequest struct {
	UserID               uuid.UUID
	VideoID              uuid.UUID
	XPAmount             int64
	CoinAmount           int64
	TotalDurationSeconds float64
	SessionToken         uuid.UUID
}

// ClaimVerdict 为账本对一次申领的裁决。
type ClaimVerdict struct {
	Granted         bool
	AlreadyDone     bool
	DailyCapReached bool
	MaxReached      bool
	XPGranted       int64
	CoinsGranted    int64
	NewXPTotal      int64
	NewCoinTotal    int64
}

// RewardClaimer 是权威奖励账本的客户端视图。
type RewardClaimer interface {
	ClaimReward(ctx context.Context, req ClaimRequest) (ClaimVerdict, error)
}

// SessionGuard 仲裁同一用户的并发会话。
type SessionGuard interface {
	TryActivate(ctx context.Context, userID, token uuid.UUID, rewardLevel int32) (bool, error)
	Heartbeat(ctx context.Context, userID, token uuid.UUID) (bool, error)
	Release(ctx context.Context, userID, token uuid.UUID) error
}
