package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	outboxevents "github.com/mikey1384/twinkle-vite-sub013/internal/models/outbox_events"
	"github.com/mikey1384/twinkle-vite-sub013/internal/models/po"
	"github.com/mikey1384/twinkle-vite-sub013/internal/models/vo"
	"github.com/mikey1384/twinkle-vite-sub013/internal/repositories"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// LedgerRepository 抽象奖励账本仓储行为。
type LedgerRepository interface {
	SummarizeVideo(ctx context.Context, sess txmanager.Session, userID, videoID uuid.UUID) (*po.VideoLedgerSummary, error)
	SummarizeDay(ctx context.Context, sess txmanager.Session, userID uuid.UUID, day time.Time) (*po.DayLedgerSummary, error)
	ApplyGrant(ctx context.Context, sess txmanager.Session, input repositories.ApplyGrantInput) error
}

// BalancesRepository 抽象用户余额仓储行为。
type BalancesRepository interface {
	EnsureAndLock(ctx context.Context, sess txmanager.Session, userID uuid.UUID) (*po.UserBalance, error)
	Increment(ctx context.Context, sess txmanager.Session, userID uuid.UUID, xpDelta, coinDelta int64) (*po.UserBalance, error)
	Get(ctx context.Context, sess txmanager.Session, userID uuid.UUID) (*po.UserBalance, error)
}

// VideoProjectionReader 抽象视频投影读取行为。
type VideoProjectionReader interface {
	Get(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) (*po.RewardVideo, error)
}

// OutboxEnqueuer 抽象 Outbox 入队行为。
type OutboxEnqueuer interface {
	Enqueue(ctx context.Context, sess txmanager.Session, msg repositories.OutboxMessage) error
}

// RewardPolicy 汇总奖励发放的校准参数。
type RewardPolicy struct {
	// ClaimWindow 为同一 (user, video) 连续两次申领之间的最小间隔。
	ClaimWindow time.Duration
	// DailyCap 为用户单个 UTC 日内 XP+coin 的发放上限。
	DailyCap int64
	// PerVideoXPFactor 决定单视频 XP 上限可覆盖的时长倍数。
	PerVideoXPFactor float64
}

// DefaultRewardPolicy 返回生产环境默认参数。
func DefaultRewardPolicy() RewardPolicy {
	return RewardPolicy{
		ClaimWindow:      60 * time.Second,
		DailyCap:         5000,
		PerVideoXPFactor: 1.5,
	}
}

// Normalize 补齐未设置的策略字段。
func (p RewardPolicy) Normalize() RewardPolicy {
	def := DefaultRewardPolicy()
	if p.ClaimWindow <= 0 {
		p.ClaimWindow = def.ClaimWindow
	}
	if p.DailyCap <= 0 {
		p.DailyCap = def.DailyCap
	}
	if p.PerVideoXPFactor <= 0 {
		p.PerVideoXPFactor = def.PerVideoXPFactor
	}
	return p
}

// ErrVideoNotRewardable 表示视频不可获得奖励（已删除或 reward_level 为 0）。
var ErrVideoNotRewardable = errors.New("video is not reward eligible")

// RewardService 实现权威奖励账本：幂等发放、单视频与单日上限、
// 以及同用户并发申领的串行化。
type RewardService struct {
	ledger     LedgerRepository
	balances   BalancesRepository
	videos     VideoProjectionReader
	outbox     OutboxEnqueuer
	policy     RewardPolicy
	txManager  txmanager.Manager
	log        *log.Helper
	metrics    *outboxMetrics
}

// NewRewardService 构造 RewardService。
func NewRewardService(
	ledger LedgerRepository,
	balances BalancesRepository,
	videos VideoProjectionReader,
	outbox OutboxEnqueuer,
	policy RewardPolicy,
	tx txmanager.Manager,
	logger log.Logger,
) *RewardService {
	return &RewardService{
		ledger:    ledger,
		balances:  balances,
		videos:    videos,
		outbox:    outbox,
		policy:    policy.Normalize(),
		txManager: tx,
		log:       log.NewHelper(logger),
		metrics:   newOutboxMetrics("reward"),
	}
}

// ClaimRewardInput 描述一次奖励申领请求。
type ClaimRewardInput struct {
	UserID               uuid.UUID
	VideoID              uuid.UUID
	XPAmount             int64
	CoinAmount           int64
	TotalDurationSeconds float64
	SessionToken         *uuid.UUID
}

// ClaimReward 裁决并执行一次奖励申领。所有判定与写入发生在同一事务中，
// 余额行的 SELECT FOR UPDATE 保证同一用户的申领串行执行。
// 重复申领（距上次成功不足一个 ClaimWindow）返回 alreadyDone，余额不变。
func (s *RewardService) ClaimReward(ctx context.Context, input ClaimRewardInput) (*vo.ClaimVerdict, error) {
	if input.UserID == uuid.Nil || input.VideoID == uuid.Nil {
		return nil, fmt.Errorf("claim reward: missing identifiers")
	}
	if input.XPAmount < 0 || input.CoinAmount < 0 {
		return nil, fmt.Errorf("claim reward: negative amounts")
	}
	if input.XPAmount == 0 && input.CoinAmount == 0 {
		return nil, fmt.Errorf("claim reward: empty claim")
	}

	var verdict *vo.ClaimVerdict
	err := s.txManager.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		now := time.Now().UTC()
		day := now.Truncate(24 * time.Hour)

		balance, err := s.balances.EnsureAndLock(txCtx, sess, input.UserID)
		if err != nil {
			return err
		}

		duration := input.TotalDurationSeconds
		if s.videos != nil {
			video, err := s.videos.Get(txCtx, sess, input.VideoID)
			switch {
			case err == nil:
				if video.DeletedAt != nil || video.RewardLevel <= 0 {
					return ErrVideoNotRewardable
				}
				if video.DurationSeconds > 0 {
					duration = video.DurationSeconds
				}
			case errors.Is(err, repositories.ErrRewardVideoNotFound):
				// Projection may lag behind catalog; fall back to the claimed duration.
			default:
				return err
			}
		}

		videoSummary, err := s.ledger.SummarizeVideo(txCtx, sess, input.UserID, input.VideoID)
		if err != nil {
			return err
		}

		if videoSummary.XPMaxReachedForVideo {
			verdict = s.rejectedVerdict(balance, true, false)
			return nil
		}

		ceiling := videoXPCeiling(input.XPAmount, duration, s.policy)
		if ceiling > 0 && videoSummary.XPGrantedTotal >= ceiling {
			if err := s.ledger.ApplyGrant(txCtx, sess, repositories.ApplyGrantInput{
				UserID:       input.UserID,
				VideoID:      input.VideoID,
				Day:          day,
				MarkVideoMax: true,
			}); err != nil {
				return err
			}
			verdict = s.rejectedVerdict(balance, true, false)
			return nil
		}

		if videoSummary.LastClaimAt != nil && now.Sub(*videoSummary.LastClaimAt) < s.policy.ClaimWindow {
			verdict = s.rejectedVerdict(balance, false, false)
			return nil
		}

		daySummary, err := s.ledger.SummarizeDay(txCtx, sess, input.UserID, day)
		if err != nil {
			return err
		}
		if daySummary.DailyCapReached || daySummary.AmountGrantedTotal >= s.policy.DailyCap {
			capEvent := !daySummary.DailyCapReached
			if err := s.ledger.ApplyGrant(txCtx, sess, repositories.ApplyGrantInput{
				UserID:       input.UserID,
				VideoID:      input.VideoID,
				Day:          day,
				MarkDailyCap: true,
			}); err != nil {
				return err
			}
			if capEvent {
				if err := s.enqueueDailyCapEvent(txCtx, sess, input.UserID, day, now); err != nil {
					return err
				}
			}
			verdict = s.rejectedVerdict(balance, false, true)
			verdict.AlreadyDone = false
			return nil
		}

		// The crossing claim is still granted in full; the flag only blocks
		// subsequent claims.
		markVideoMax := ceiling > 0 && videoSummary.XPGrantedTotal+input.XPAmount >= ceiling
		markDailyCap := daySummary.AmountGrantedTotal+input.XPAmount+input.CoinAmount >= s.policy.DailyCap

		if err := s.ledger.ApplyGrant(txCtx, sess, repositories.ApplyGrantInput{
			UserID:       input.UserID,
			VideoID:      input.VideoID,
			Day:          day,
			XPDelta:      input.XPAmount,
			CoinsDelta:   input.CoinAmount,
			ClaimAt:      &now,
			MarkVideoMax: markVideoMax,
			MarkDailyCap: markDailyCap,
		}); err != nil {
			return err
		}

		updated, err := s.balances.Increment(txCtx, sess, input.UserID, input.XPAmount, input.CoinAmount)
		if err != nil {
			return err
		}

		verdict = &vo.ClaimVerdict{
			Granted:         true,
			DailyCapReached: markDailyCap,
			MaxReached:      markVideoMax,
			XPGranted:       input.XPAmount,
			CoinsGranted:    input.CoinAmount,
			NewXPTotal:      updated.XPTotal,
			NewCoinTotal:    updated.CoinTotal,
		}

		event, err := outboxevents.NewRewardGrantedEvent(outboxevents.RewardGranted{
			UserID:       input.UserID,
			VideoID:      input.VideoID,
			DayBucket:    day.Format("2006-01-02"),
			XPGranted:    input.XPAmount,
			CoinsGranted: input.CoinAmount,
			NewXPTotal:   updated.XPTotal,
			NewCoinTotal: updated.CoinTotal,
			OccurredAt:   now,
			MaxReached:   markVideoMax,
			DailyCapHit:  markDailyCap,
			SessionToken: input.SessionToken,
		})
		if err != nil {
			return err
		}
		if err := s.enqueueEvent(txCtx, sess, event); err != nil {
			return err
		}
		if markDailyCap {
			if err := s.enqueueDailyCapEvent(txCtx, sess, input.UserID, day, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return verdict, nil
}

// GetBalance 返回用户的全局 XP/coin 余额；无记录时返回零值。
func (s *RewardService) GetBalance(ctx context.Context, userID uuid.UUID) (*po.UserBalance, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("get balance: user_id required")
	}
	balance, err := s.balances.Get(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserBalanceNotFound) {
			return &po.UserBalance{UserID: userID}, nil
		}
		return nil, err
	}
	return balance, nil
}

func (s *RewardService) rejectedVerdict(balance *po.UserBalance, maxReached, dailyCap bool) *vo.ClaimVerdict {
	return &vo.ClaimVerdict{
		AlreadyDone:     true,
		MaxReached:      maxReached,
		DailyCapReached: dailyCap,
		NewXPTotal:      balance.XPTotal,
		NewCoinTotal:    balance.CoinTotal,
	}
}

func (s *RewardService) enqueueDailyCapEvent(ctx context.Context, sess txmanager.Session, userID uuid.UUID, day, now time.Time) error {
	event, err := outboxevents.NewDailyCapReachedEvent(outboxevents.DailyCapReached{
		UserID:     userID,
		DayBucket:  day.Format("2006-01-02"),
		OccurredAt: now,
	})
	if err != nil {
		return err
	}
	return s.enqueueEvent(ctx, sess, event)
}

func (s *RewardService) enqueueEvent(ctx context.Context, sess txmanager.Session, evt *outboxevents.DomainEvent) error {
	if evt == nil || s.outbox == nil {
		return nil
	}
	msg, err := buildOutboxMessage(ctx, evt)
	if err != nil {
		if s.metrics != nil {
			s.metrics.recordFailure(ctx, evt.Kind.String(), err)
		}
		return err
	}
	if err := s.outbox.Enqueue(ctx, sess, msg); err != nil {
		if s.metrics != nil {
			s.metrics.recordFailure(ctx, evt.Kind.String(), err)
		}
		return err
	}
	if s.metrics != nil {
		s.metrics.recordSuccess(ctx, evt.Kind.String(), evt.OccurredAt)
	}
	return nil
}

func buildOutboxMessage(ctx context.Context, evt *outboxevents.DomainEvent) (repositories.OutboxMessage, error) {
	data, err := outboxevents.MarshalPayload(evt)
	if err != nil {
		return repositories.OutboxMessage{}, err
	}
	return repositories.OutboxMessage{
		EventID:       evt.EventID,
		AggregateType: evt.AggregateType,
		AggregateID:   evt.AggregateID,
		EventType:     evt.Kind.String(),
		Payload:       data,
		Headers:       outboxevents.BuildAttributes(evt, outboxevents.SchemaVersionV1, outboxevents.TraceIDFromContext(ctx)),
		AvailableAt:   evt.OccurredAt,
	}, nil
}

// videoXPCeiling 计算单视频可发放的 XP 上限：按一次申领的额度乘以
// 时长可容纳的申领次数（1.5 倍时长折算）。时长未知时不设上限。
func videoXPCeiling(xpPerClaim int64, durationSeconds float64, policy RewardPolicy) int64 {
	if xpPerClaim <= 0 || durationSeconds <= 0 {
		return 0
	}
	windowSeconds := policy.ClaimWindow.Seconds()
	if windowSeconds <= 0 {
		return 0
	}
	claims := math.Ceil(policy.PerVideoXPFactor * durationSeconds / windowSeconds)
	if claims < 1 {
		claims = 1
	}
	return xpPerClaim * int64(claims)
}
