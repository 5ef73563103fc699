package services

import (
	"context"
	"fmt"
	"time"

	"github.com/mikey1384/twinkle-vite-sub013/internal/models/po"
	"github.com/mikey1384/twinkle-vite-sub013/internal/repositories"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// VideoProjectionWriter 抽象视频投影写入行为。
type VideoProjectionWriter interface {
	Upsert(ctx context.Context, sess txmanager.Session, input repositories.UpsertRewardVideoInput) error
	MarkDeleted(ctx context.Context, sess txmanager.Session, videoID uuid.UUID, deletedAt time.Time, version int64) error
	Get(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) (*po.RewardVideo, error)
}

// VideoProjectionService 将 catalog 视频事件应用到本地投影，
// 供奖励裁决读取 reward_level 与时长。
type VideoProjectionService struct {
	repo VideoProjectionWriter
	log  *log.Helper
}

// NewVideoProjectionService 构造 VideoProjectionService。
func NewVideoProjectionService(repo VideoProjectionWriter, logger log.Logger) *VideoProjectionService {
	return &VideoProjectionService{
		repo: repo,
		log:  log.NewHelper(logger),
	}
}

// ApplyVideoUpsertInput 描述视频创建/更新事件内容。
type ApplyVideoUpsertInput struct {
	VideoID         uuid.UUID
	Title           string
	RewardLevel     int32
	DurationSeconds float64
	Version         int64
	OccurredAt      *time.Time
}

// ApplyVideoUpsert 应用视频创建或更新事件。版本号回退的事件被仓储层忽略。
func (s *VideoProjectionService) ApplyVideoUpsert(ctx context.Context, sess txmanager.Session, input ApplyVideoUpsertInput) error {
	if input.VideoID == uuid.Nil {
		return fmt.Errorf("apply video upsert: video_id required")
	}
	if input.RewardLevel < 0 || input.RewardLevel > 5 {
		return fmt.Errorf("apply video upsert: reward_level %d out of range", input.RewardLevel)
	}
	return s.repo.Upsert(ctx, sess, repositories.UpsertRewardVideoInput{
		VideoID:         input.VideoID,
		Title:           input.Title,
		RewardLevel:     input.RewardLevel,
		DurationSeconds: input.DurationSeconds,
		Version:         input.Version,
		UpdatedAt:       input.OccurredAt,
	})
}

// ApplyVideoDelete 应用视频删除事件；投影行保留并打上删除标记。
func (s *VideoProjectionService) ApplyVideoDelete(ctx context.Context, sess txmanager.Session, videoID uuid.UUID, deletedAt time.Time, version int64) error {
	if videoID == uuid.Nil {
		return fmt.Errorf("apply video delete: video_id required")
	}
	if deletedAt.IsZero() {
		deletedAt = time.Now().UTC()
	}
	return s.repo.MarkDeleted(ctx, sess, videoID, deletedAt, version)
}

// GetVideo 返回视频投影。
func (s *VideoProjectionService) GetVideo(ctx context.Context, videoID uuid.UUID) (*po.RewardVideo, error) {
	if videoID == uuid.Nil {
		return nil, fmt.Errorf("get video: video_id required")
	}
	return s.repo.Get(ctx, nil, videoID)
}
