package clients_test

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mikey1384/twinkle-vite-sub013/internal/clients"
	"github.com/mikey1384/twinkle-vite-sub013/internal/controllers"
	configloader "github.com/mikey1384/twinkle-vite-sub013/internal/infrastructure/configloader"
	"github.com/mikey1384/twinkle-vite-sub013/internal/models/po"
	"github.com/mikey1384/twinkle-vite-sub013/internal/models/vo"
	"github.com/mikey1384/twinkle-vite-sub013/internal/services"
	"github.com/mikey1384/twinkle-vite-sub013/internal/watch"

	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// fakeRewardService backs the HTTP handlers the client talks to.
type fakeRewardService struct {
	lastClaim services.ClaimRewardInput
}

func (f *fakeRewardService) ClaimReward(_ context.Context, input services.ClaimRewardInput) (*vo.ClaimVerdict, error) {
	f.lastClaim = input
	return &vo.ClaimVerdict{
		Granted:      true,
		XPGranted:    input.XPAmount,
		CoinsGranted: input.CoinAmount,
		NewXPTotal:   input.XPAmount,
		NewCoinTotal: input.CoinAmount,
	}, nil
}

func (f *fakeRewardService) GetBalance(_ context.Context, userID uuid.UUID) (*po.UserBalance, error) {
	return &po.UserBalance{UserID: userID}, nil
}

type fakeProgressService struct {
	lastReport services.ReportProgressInput
}

func (f *fakeProgressService) ReportProgress(_ context.Context, input services.ReportProgressInput) (*vo.WatchProgress, error) {
	f.lastReport = input
	return &vo.WatchProgress{
		VideoID:             input.VideoID.String(),
		LastPositionSeconds: input.PositionSeconds,
		LifetimeViewSeconds: input.DeltaSeconds,
	}, nil
}

func (f *fakeProgressService) GetProgress(_ context.Context, _, videoID uuid.UUID) (*vo.WatchProgress, error) {
	return &vo.WatchProgress{VideoID: videoID.String()}, nil
}

func (f *fakeProgressService) ListProgress(context.Context, uuid.UUID, int32, int32) ([]*vo.WatchProgress, error) {
	return nil, nil
}

type fakeGuardService struct {
	active   map[uuid.UUID]uuid.UUID
	released int
}

func (f *fakeGuardService) TryActivate(_ context.Context, userID, token uuid.UUID, _ int32) (*vo.SessionActivation, error) {
	if existing, ok := f.active[userID]; ok && existing != token {
		return &vo.SessionActivation{Activated: false}, nil
	}
	f.active[userID] = token
	return &vo.SessionActivation{Activated: true}, nil
}

func (f *fakeGuardService) Heartbeat(_ context.Context, userID, token uuid.UUID) (*vo.SessionHeartbeat, error) {
	existing, ok := f.active[userID]
	return &vo.SessionHeartbeat{StillActive: ok && existing == token}, nil
}

func (f *fakeGuardService) Release(_ context.Context, userID, token uuid.UUID) error {
	if existing, ok := f.active[userID]; ok && existing == token {
		delete(f.active, userID)
	}
	f.released++
	return nil
}

type clientFixture struct {
	client   *clients.RewardsClient
	rewards  *fakeRewardService
	progress *fakeProgressService
	guard    *fakeGuardService
}

func newClientFixture(t *testing.T) *clientFixture {
	t.Helper()

	logger := log.NewStdLogger(io.Discard)
	base := controllers.NewBaseHandler(controllers.HandlerTimeouts{})
	rewards := &fakeRewardService{}
	progress := &fakeProgressService{}
	guard := &fakeGuardService{active: make(map[uuid.UUID]uuid.UUID)}

	srv := khttp.NewServer()
	router := srv.Route("/v1")
	controllers.NewRewardHandler(rewards, base).RegisterRoutes(router)
	controllers.NewProgressHandler(progress, base).RegisterRoutes(router)
	controllers.NewSessionHandler(guard, base).RegisterRoutes(router)

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	client, cleanup, err := clients.NewRewardsClient(configloader.ClientConfig{
		Endpoint: strings.TrimPrefix(ts.URL, "http://"),
		Timeout:  5 * time.Second,
		JWT:      configloader.ClientJWTConfig{Disabled: true},
	}, nil, logger)
	require.NoError(t, err)
	require.NotNil(t, client)
	t.Cleanup(cleanup)

	return &clientFixture{client: client, rewards: rewards, progress: progress, guard: guard}
}

func TestRewardsClient_ClaimRoundTrip(t *testing.T) {
	t.Parallel()

	f := newClientFixture(t)
	userID := uuid.New()
	videoID := uuid.New()
	token := uuid.New()

	verdict, err := f.client.ClaimReward(context.Background(), watch.ClaimRequest{
		UserID:               userID,
		VideoID:              videoID,
		XPAmount:             60,
		CoinAmount:           5,
		TotalDurationSeconds: 600,
		SessionToken:         token,
	})
	require.NoError(t, err)
	require.True(t, verdict.Granted)
	require.Equal(t, int64(60), verdict.XPGranted)
	require.Equal(t, int64(5), verdict.CoinsGranted)

	require.Equal(t, userID, f.rewards.lastClaim.UserID)
	require.Equal(t, videoID, f.rewards.lastClaim.VideoID)
	require.NotNil(t, f.rewards.lastClaim.SessionToken)
	require.Equal(t, token, *f.rewards.lastClaim.SessionToken)
}

func TestRewardsClient_ReportProgressRoundTrip(t *testing.T) {
	t.Parallel()

	f := newClientFixture(t)
	userID := uuid.New()
	videoID := uuid.New()

	err := f.client.ReportProgress(context.Background(), watch.ProgressReport{
		UserID:          userID,
		VideoID:         videoID,
		PositionSeconds: 42,
		DeltaSeconds:    2,
	})
	require.NoError(t, err)
	require.Equal(t, userID, f.progress.lastReport.UserID)
	require.InDelta(t, 42.0, f.progress.lastReport.PositionSeconds, 0.001)
	require.InDelta(t, 2.0, f.progress.lastReport.DeltaSeconds, 0.001)
}

func TestRewardsClient_SessionGuardRoundTrip(t *testing.T) {
	t.Parallel()

	f := newClientFixture(t)
	userID := uuid.New()
	first := uuid.New()
	second := uuid.New()

	activated, err := f.client.TryActivate(context.Background(), userID, first, 3)
	require.NoError(t, err)
	require.True(t, activated)

	// Second concurrent session is refused, not errored.
	activated, err = f.client.TryActivate(context.Background(), userID, second, 3)
	require.NoError(t, err)
	require.False(t, activated)

	alive, err := f.client.Heartbeat(context.Background(), userID, first)
	require.NoError(t, err)
	require.True(t, alive)

	alive, err = f.client.Heartbeat(context.Background(), userID, second)
	require.NoError(t, err)
	require.False(t, alive)

	require.NoError(t, f.client.Release(context.Background(), userID, first))
	require.Equal(t, 1, f.guard.released)

	activated, err = f.client.TryActivate(context.Background(), userID, second, 3)
	require.NoError(t, err)
	require.True(t, activated)
}

func TestNewRewardsClient_NoEndpointDisablesRemote(t *testing.T) {
	t.Parallel()

	client, cleanup, err := clients.NewRewardsClient(configloader.ClientConfig{}, nil, log.NewStdLogger(io.Discard))
	require.NoError(t, err)
	require.Nil(t, client)
	cleanup()
}
