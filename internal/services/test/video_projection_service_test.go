package services_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/mikey1384/twinkle-vite-sub013/internal/models/po"
	"github.com/mikey1384/twinkle-vite-sub013/internal/repositories"
	"github.com/mikey1384/twinkle-vite-sub013/internal/services"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeProjectionWriter struct {
	rows map[uuid.UUID]*po.RewardVideo
}

func newFakeProjectionWriter() *fakeProjectionWriter {
	return &fakeProjectionWriter{rows: make(map[uuid.UUID]*po.RewardVideo)}
}

func (f *fakeProjectionWriter) Upsert(_ context.Context, _ txmanager.Session, input repositories.UpsertRewardVideoInput) error {
	current, ok := f.rows[input.VideoID]
	// Version-gated like the SQL upsert: stale versions are ignored.
	if ok && input.Version < current.Version {
		return nil
	}
	updatedAt := time.Now().UTC()
	if input.UpdatedAt != nil {
		updatedAt = *input.UpdatedAt
	}
	f.rows[input.VideoID] = &po.RewardVideo{
		VideoID:         input.VideoID,
		Title:           input.Title,
		RewardLevel:     input.RewardLevel,
		DurationSeconds: input.DurationSeconds,
		Version:         input.Version,
		UpdatedAt:       updatedAt,
	}
	return nil
}

func (f *fakeProjectionWriter) MarkDeleted(_ context.Context, _ txmanager.Session, videoID uuid.UUID, deletedAt time.Time, version int64) error {
	current, ok := f.rows[videoID]
	if !ok {
		return repositories.ErrRewardVideoNotFound
	}
	if version < current.Version {
		return nil
	}
	current.DeletedAt = &deletedAt
	current.Version = version
	return nil
}

func (f *fakeProjectionWriter) Get(_ context.Context, _ txmanager.Session, videoID uuid.UUID) (*po.RewardVideo, error) {
	row, ok := f.rows[videoID]
	if !ok {
		return nil, repositories.ErrRewardVideoNotFound
	}
	copied := *row
	return &copied, nil
}

func newProjectionFixture(t *testing.T) (*services.VideoProjectionService, *fakeProjectionWriter) {
	t.Helper()
	repo := newFakeProjectionWriter()
	return services.NewVideoProjectionService(repo, log.NewStdLogger(io.Discard)), repo
}

func TestVideoProjectionService_UpsertAndGet(t *testing.T) {
	t.Parallel()

	svc, _ := newProjectionFixture(t)
	videoID := uuid.New()

	err := svc.ApplyVideoUpsert(context.Background(), fakeSession{}, services.ApplyVideoUpsertInput{
		VideoID:         videoID,
		Title:           "ocean currents",
		RewardLevel:     4,
		DurationSeconds: 480,
		Version:         1,
	})
	require.NoError(t, err)

	video, err := svc.GetVideo(context.Background(), videoID)
	require.NoError(t, err)
	require.Equal(t, "ocean currents", video.Title)
	require.Equal(t, int32(4), video.RewardLevel)
	require.InDelta(t, 480.0, video.DurationSeconds, 0.001)
	require.Nil(t, video.DeletedAt)
}

func TestVideoProjectionService_RejectsRewardLevelOutOfRange(t *testing.T) {
	t.Parallel()

	svc, repo := newProjectionFixture(t)

	for _, level := range []int32{-1, 6} {
		err := svc.ApplyVideoUpsert(context.Background(), fakeSession{}, services.ApplyVideoUpsertInput{
			VideoID:     uuid.New(),
			RewardLevel: level,
		})
		require.Error(t, err)
	}
	require.Empty(t, repo.rows)
}

func TestVideoProjectionService_StaleVersionIgnored(t *testing.T) {
	t.Parallel()

	svc, _ := newProjectionFixture(t)
	videoID := uuid.New()

	require.NoError(t, svc.ApplyVideoUpsert(context.Background(), fakeSession{}, services.ApplyVideoUpsertInput{
		VideoID:     videoID,
		Title:       "v2 title",
		RewardLevel: 3,
		Version:     2,
	}))
	require.NoError(t, svc.ApplyVideoUpsert(context.Background(), fakeSession{}, services.ApplyVideoUpsertInput{
		VideoID:     videoID,
		Title:       "v1 title",
		RewardLevel: 1,
		Version:     1,
	}))

	video, err := svc.GetVideo(context.Background(), videoID)
	require.NoError(t, err)
	require.Equal(t, "v2 title", video.Title)
	require.Equal(t, int64(2), video.Version)
}

func TestVideoProjectionService_DeleteKeepsRow(t *testing.T) {
	t.Parallel()

	svc, _ := newProjectionFixture(t)
	videoID := uuid.New()

	require.NoError(t, svc.ApplyVideoUpsert(context.Background(), fakeSession{}, services.ApplyVideoUpsertInput{
		VideoID:     videoID,
		RewardLevel: 2,
		Version:     1,
	}))

	deletedAt := time.Now().UTC()
	require.NoError(t, svc.ApplyVideoDelete(context.Background(), fakeSession{}, videoID, deletedAt, 2))

	video, err := svc.GetVideo(context.Background(), videoID)
	require.NoError(t, err)
	require.NotNil(t, video.DeletedAt)
	require.WithinDuration(t, deletedAt, *video.DeletedAt, time.Second)
}

func TestVideoProjectionService_RejectsMissingVideoID(t *testing.T) {
	t.Parallel()

	svc, _ := newProjectionFixture(t)

	err := svc.ApplyVideoUpsert(context.Background(), fakeSession{}, services.ApplyVideoUpsertInput{RewardLevel: 1})
	require.Error(t, err)

	err = svc.ApplyVideoDelete(context.Background(), fakeSession{}, uuid.Nil, time.Now(), 1)
	require.Error(t, err)

	_, err = svc.GetVideo(context.Background(), uuid.Nil)
	require.Error(t, err)
}
