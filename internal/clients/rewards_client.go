package clients

import (
	"context"
	"fmt"

	"github.com/mikey1384/twinkle-vite-sub013/internal/controllers/dto"
	configloader "github.com/mikey1384/twinkle-vite-sub013/internal/infrastructure/configloader"
	"github.com/mikey1384/twinkle-vite-sub013/internal/watch"

	"github.com/bionicotaku/lingo-utils/gcjwt"
	obsTrace "github.com/bionicotaku/lingo-utils/observability/tracing"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/uuid"
)

// RewardsClient 通过 HTTP 访问奖励服务，实现观看引擎所需的
// 进度上报、申领与会话守卫接口。
type RewardsClient struct {
	client *khttp.Client
	log    *log.Helper
}

// NewRewardsClient 构造 RewardsClient 及其清理函数。
// 未配置 endpoint 时返回 nil 客户端，允许纯服务端进程启动。
func NewRewardsClient(cfg configloader.ClientConfig, jwt gcjwt.ClientMiddleware, logger log.Logger) (*RewardsClient, func(), error) {
	helper := log.NewHelper(logger)
	if cfg.Endpoint == "" {
		helper.Warn("rewards client endpoint not configured; remote calls disabled")
		return nil, func() {}, nil
	}

	mws := []middleware.Middleware{
		recovery.Recovery(),
	}
	if jwt != nil && !cfg.JWT.Disabled {
		mws = append(mws, middleware.Middleware(jwt))
	}
	mws = append(mws, obsTrace.Client())

	opts := []khttp.ClientOption{
		khttp.WithEndpoint(cfg.Endpoint),
		khttp.WithMiddleware(mws...),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, khttp.WithTimeout(cfg.Timeout))
	}

	client, err := khttp.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("new rewards client: %w", err)
	}

	cleanup := func() {
		if err := client.Close(); err != nil {
			helper.Errorf("close rewards client: %v", err)
		}
	}
	return &RewardsClient{client: client, log: helper}, cleanup, nil
}

// ReportProgress 上报观看进度。
func (c *RewardsClient) ReportProgress(ctx context.Context, report watch.ProgressReport) error {
	req := &dto.ReportProgressRequest{
		UserID:          report.UserID.String(),
		VideoID:         report.VideoID.String(),
		PositionSeconds: report.PositionSeconds,
		DeltaSeconds:    report.DeltaSeconds,
	}
	var resp dto.WatchProgressResponse
	if err := c.client.Invoke(ctx, "PUT", "/v1/progress", req, &resp); err != nil {
		return fmt.Errorf("report progress: %w", err)
	}
	return nil
}

// ClaimReward 向账本发起申领。
func (c *RewardsClient) ClaimReward(ctx context.Context, claim watch.ClaimRequest) (watch.ClaimVerdict, error) {
	req := &dto.ClaimRewardRequest{
		UserID:        claim.UserID.String(),
		VideoID:       claim.VideoID.String(),
		XPAmount:      claim.XPAmount,
		CoinAmount:    claim.CoinAmount,
		TotalDuration: claim.TotalDurationSeconds,
		SessionToken:  claim.SessionToken.String(),
	}
	var resp dto.ClaimRewardResponse
	if err := c.client.Invoke(ctx, "POST", "/v1/reward/claim", req, &resp); err != nil {
		return watch.ClaimVerdict{}, fmt.Errorf("claim reward: %w", err)
	}
	return watch.ClaimVerdict{
		Granted:         resp.Granted,
		AlreadyDone:     resp.AlreadyDone,
		DailyCapReached: resp.DailyCapReached,
		MaxReached:      resp.MaxReached,
		XPGranted:       resp.XPGranted,
		CoinsGranted:    resp.CoinsGranted,
		NewXPTotal:      resp.NewXPTotal,
		NewCoinTotal:    resp.NewCoinTotal,
	}, nil
}

// TryActivate 注册活跃会话。
func (c *RewardsClient) TryActivate(ctx context.Context, userID, token uuid.UUID, rewardLevel int32) (bool, error) {
	req := &dto.SessionRequest{
		UserID:       userID.String(),
		SessionToken: token.String(),
		RewardLevel:  rewardLevel,
	}
	var resp dto.SessionActivateResponse
	if err := c.client.Invoke(ctx, "POST", "/v1/session/activate", req, &resp); err != nil {
		return false, fmt.Errorf("session activate: %w", err)
	}
	return resp.Activated, nil
}

// Heartbeat 续约活跃会话。
func (c *RewardsClient) Heartbeat(ctx context.Context, userID, token uuid.UUID) (bool, error) {
	req := &dto.SessionRequest{
		UserID:       userID.String(),
		SessionToken: token.String(),
	}
	var resp dto.SessionHeartbeatResponse
	if err := c.client.Invoke(ctx, "POST", "/v1/session/heartbeat", req, &resp); err != nil {
		return false, fmt.Errorf("session heartbeat: %w", err)
	}
	return resp.StillActive, nil
}

// Release 释放会话槽位。
func (c *RewardsClient) Release(ctx context.Context, userID, token uuid.UUID) error {
	req := &dto.SessionRequest{
		UserID:       userID.String(),
		SessionToken: token.String(),
	}
	var resp dto.SessionReleaseResponse
	if err := c.client.Invoke(ctx, "POST", "/v1/session/release", req, &resp); err != nil {
		return fmt.Errorf("session release: %w", err)
	}
	return nil
}

var (
	_ watch.ProgressStore = (*RewardsClient)(nil)
	_ watch.RewardClaimer = (*RewardsClient)(nil)
	_ watch.SessionGuard  = (*RewardsClient)(nil)
)
