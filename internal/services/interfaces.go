package services

import (
	"context"

	"github.com/mikey1384/twinkle-vite-sub013/internal/models/po"
	"github.com/mikey1384/twinkle-vite-sub013/internal/models/vo"
	"github.com/google/uuid"
)

// RewardServiceInterface 抽象奖励申领用例，便于测试替换。
type RewardServiceInterface interface {
	ClaimReward(ctx context.Context, input ClaimRewardInput) (*vo.ClaimVerdict, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (*po.UserBalance, error)
}

// WatchProgressServiceInterface 抽象观看进度用例。
type WatchProgressServiceInterface interface {
	ReportProgress(ctx context.Context, input ReportProgressInput) (*vo.WatchProgress, error)
	GetProgress(ctx context.Context, userID, videoID uuid.UUID) (*vo.WatchProgress, error)
	ListProgress(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]*vo.WatchProgress, error)
}

// SessionGuardInterface 抽象并发会话守卫。
type SessionGuardInterface interface {
	TryActivate(ctx context.Context, userID, token uuid.UUID, rewardLevel int32) (*vo.SessionActivation, error)
	Heartbeat(ctx context.Context, userID, token uuid.UUID) (*vo.SessionHeartbeat, error)
	Release(ctx context.Context, userID, token uuid.UUID) error
}

// VideoProjectionServiceInterface 抽象视频投影维护。
type VideoProjectionServiceInterface interface {
	GetVideo(ctx context.Context, videoID uuid.UUID) (*po.RewardVideo, error)
}

var (
	_ RewardServiceInterface          = (*RewardService)(nil)
	_ WatchProgressServiceInterface   = (*WatchProgressService)(nil)
	_ SessionGuardInterface           = (*SessionGuardService)(nil)
	_ VideoProjectionServiceInterface = (*VideoProjectionService)(nil)
)
