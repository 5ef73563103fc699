package watch_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/mikey1384/twinkle-vite-sub013/internal/watch"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newManagerFixture() (*watch.Manager, *stubProgress, *stubClaimer, *stubGuard) {
	progress := &stubProgress{}
	claimer := &stubClaimer{verdict: watch.ClaimVerdict{Granted: true, XPGranted: 60}}
	guard := &stubGuard{activateOK: true, heartbeatOK: true}
	cfg := watch.Config{TickInterval: 10 * time.Millisecond}
	mgr := watch.NewManager(cfg, progress, claimer, guard, log.NewStdLogger(io.Discard))
	return mgr, progress, claimer, guard
}

func TestManager_StartSessionRunsTicks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mgr, progress, _, _ := newManagerFixture()
	defer func() { _ = mgr.Close(ctx) }()

	player := &stubPlayer{
		snap:    watch.PlayerSnapshot{DurationSeconds: 600, IsPlaying: true, Volume: 1},
		advance: 0.01,
	}
	session, err := mgr.StartSession(ctx, watch.SessionParams{
		UserID:      uuid.New(),
		VideoID:     uuid.New(),
		RewardLevel: 3,
	}, player)
	require.NoError(t, err)
	require.Equal(t, watch.StatePlaying, session.Snapshot().State)

	found, ok := mgr.Session(session.Token())
	require.True(t, ok)
	require.Same(t, session, found)

	require.Eventually(t, func() bool {
		return progress.count() >= 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestManager_StopSessionReleasesGuard(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mgr, _, _, guard := newManagerFixture()
	defer func() { _ = mgr.Close(ctx) }()

	player := &stubPlayer{snap: watch.PlayerSnapshot{IsPlaying: true, Volume: 1}, advance: 0.01}
	session, err := mgr.StartSession(ctx, watch.SessionParams{
		UserID:      uuid.New(),
		VideoID:     uuid.New(),
		RewardLevel: 2,
	}, player)
	require.NoError(t, err)

	require.NoError(t, mgr.StopSession(ctx, session.Token()))

	guard.mu.Lock()
	released := len(guard.released)
	guard.mu.Unlock()
	require.Equal(t, 1, released)

	require.Eventually(t, func() bool {
		_, ok := mgr.Session(session.Token())
		return !ok
	}, 2*time.Second, 10*time.Millisecond)

	// Stopping an unknown token is a no-op.
	require.NoError(t, mgr.StopSession(ctx, uuid.New()))
}

func TestManager_StartSessionValidatesParams(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mgr, _, _, _ := newManagerFixture()
	defer func() { _ = mgr.Close(ctx) }()

	player := &stubPlayer{snap: watch.PlayerSnapshot{IsPlaying: true, Volume: 1}}

	_, err := mgr.StartSession(ctx, watch.SessionParams{VideoID: uuid.New()}, player)
	require.Error(t, err)

	_, err = mgr.StartSession(ctx, watch.SessionParams{UserID: uuid.New()}, player)
	require.Error(t, err)
}

func TestManager_CloseEndsAllSessions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mgr, _, _, guard := newManagerFixture()

	for i := 0; i < 3; i++ {
		player := &stubPlayer{snap: watch.PlayerSnapshot{IsPlaying: true, Volume: 1}, advance: 0.01}
		_, err := mgr.StartSession(ctx, watch.SessionParams{
			UserID:      uuid.New(),
			VideoID:     uuid.New(),
			RewardLevel: 1,
		}, player)
		require.NoError(t, err)
	}

	require.NoError(t, mgr.Close(ctx))

	guard.mu.Lock()
	released := len(guard.released)
	guard.mu.Unlock()
	require.Equal(t, 3, released)

	// A closed manager refuses new sessions.
	_, err := mgr.StartSession(ctx, watch.SessionParams{
		UserID:      uuid.New(),
		VideoID:     uuid.New(),
		RewardLevel: 1,
	}, &stubPlayer{})
	require.Error(t, err)
}
