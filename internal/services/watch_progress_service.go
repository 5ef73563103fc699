package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	outboxevents "github.com/mikey1384/twinkle-vite-sub013/internal/models/outbox_events"
	"github.com/mikey1384/twinkle-vite-sub013/internal/models/po"
	"github.com/mikey1384/twinkle-vite-sub013/internal/models/vo"
	"github.com/mikey1384/twinkle-vite-sub013/internal/repositories"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// ProgressRepository 抽象观看进度仓储行为。
type ProgressRepository interface {
	Upsert(ctx context.Context, sess txmanager.Session, input repositories.UpsertWatchProgressInput) error
	Get(ctx context.Context, sess txmanager.Session, userID, videoID uuid.UUID) (*po.WatchProgress, error)
	ListByUser(ctx context.Context, sess txmanager.Session, userID uuid.UUID, limit, offset int32) ([]*po.WatchProgress, error)
}

// WatchProgressService 负责观看进度的写入与查询。
// 位置按最后写入覆盖，生命周期累计秒数只增不减。
type WatchProgressService struct {
	progress  ProgressRepository
	videos    VideoProjectionReader
	outbox    OutboxEnqueuer
	txManager txmanager.Manager
	log       *log.Helper
	metrics   *outboxMetrics
	// rewatchFactor 超过该时长倍数的累计观看被标记为疑似刷量，仅作用于较长视频。
	rewatchFactor float64
}

// rewatchMinDurationSeconds 短视频天然会被反复观看，不参与刷量判定。
const rewatchMinDurationSeconds = 180

// NewWatchProgressService 构造 WatchProgressService。
func NewWatchProgressService(
	progress ProgressRepository,
	videos VideoProjectionReader,
	outbox OutboxEnqueuer,
	tx txmanager.Manager,
	logger log.Logger,
) *WatchProgressService {
	return &WatchProgressService{
		progress:      progress,
		videos:        videos,
		outbox:        outbox,
		txManager:     tx,
		log:           log.NewHelper(logger),
		metrics:       newOutboxMetrics("watch_progress"),
		rewatchFactor: 1.5,
	}
}

// ReportProgressInput 描述一次进度上报。
type ReportProgressInput struct {
	UserID          uuid.UUID
	VideoID         uuid.UUID
	PositionSeconds float64
	DeltaSeconds    float64
	ObservedAt      *time.Time
}

// ReportProgress 写入观看进度并返回更新后的视图。
// 上报是尽力而为语义：调用方丢失一次上报最多损失一个 tick 的进度。
func (s *WatchProgressService) ReportProgress(ctx context.Context, input ReportProgressInput) (*vo.WatchProgress, error) {
	if input.UserID == uuid.Nil || input.VideoID == uuid.Nil {
		return nil, fmt.Errorf("report progress: missing identifiers")
	}
	if input.PositionSeconds < 0 {
		return nil, fmt.Errorf("report progress: negative position")
	}

	var result *vo.WatchProgress
	err := s.txManager.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		if err := s.progress.Upsert(txCtx, sess, repositories.UpsertWatchProgressInput{
			UserID:               input.UserID,
			VideoID:              input.VideoID,
			LastPositionSeconds:  input.PositionSeconds,
			LifetimeDeltaSeconds: input.DeltaSeconds,
			ObservedAt:           input.ObservedAt,
		}); err != nil {
			return err
		}

		updated, err := s.progress.Get(txCtx, sess, input.UserID, input.VideoID)
		if err != nil {
			return err
		}
		view, err := s.buildView(txCtx, sess, updated)
		if err != nil {
			return err
		}
		result = view

		event, err := outboxevents.NewWatchProgressedEvent(outboxevents.WatchProgressed{
			UserID:              input.UserID,
			VideoID:             input.VideoID,
			LastPositionSeconds: updated.LastPositionSeconds,
			LifetimeViewSeconds: updated.LifetimeViewSeconds,
		})
		if err != nil {
			return err
		}
		return s.enqueueEvent(txCtx, sess, event)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetProgress 返回单个视频的观看进度视图。
func (s *WatchProgressService) GetProgress(ctx context.Context, userID, videoID uuid.UUID) (*vo.WatchProgress, error) {
	if userID == uuid.Nil || videoID == uuid.Nil {
		return nil, fmt.Errorf("get progress: missing identifiers")
	}
	record, err := s.progress.Get(ctx, nil, userID, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrWatchProgressNotFound) {
			return &vo.WatchProgress{VideoID: videoID.String()}, nil
		}
		return nil, err
	}
	return s.buildView(ctx, nil, record)
}

// ListProgress 返回用户最近的观看进度列表。
func (s *WatchProgressService) ListProgress(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]*vo.WatchProgress, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("list progress: user_id required")
	}
	records, err := s.progress.ListByUser(ctx, nil, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	views := make([]*vo.WatchProgress, 0, len(records))
	for _, record := range records {
		view, err := s.buildView(ctx, nil, record)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *WatchProgressService) buildView(ctx context.Context, sess txmanager.Session, record *po.WatchProgress) (*vo.WatchProgress, error) {
	lastWatched := record.LastWatchedAt
	view := &vo.WatchProgress{
		VideoID:             record.VideoID.String(),
		LastPositionSeconds: record.LastPositionSeconds,
		LifetimeViewSeconds: record.LifetimeViewSeconds,
		LastWatchedAt:       &lastWatched,
	}
	if s.videos == nil {
		return view, nil
	}
	video, err := s.videos.Get(ctx, sess, record.VideoID)
	if err != nil {
		if errors.Is(err, repositories.ErrRewardVideoNotFound) {
			return view, nil
		}
		return nil, err
	}
	if video.DurationSeconds > rewatchMinDurationSeconds && record.LifetimeViewSeconds > s.rewatchFactor*video.DurationSeconds {
		view.SuspectedRewatchAbuse = true
	}
	return view, nil
}

func (s *WatchProgressService) enqueueEvent(ctx context.Context, sess txmanager.Session, evt *outboxevents.DomainEvent) error {
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
