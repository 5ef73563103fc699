package services_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/mikey1384/twinkle-vite-sub013/internal/services"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newGuard(ttl services.GuardTTL) *services.SessionGuardService {
	return services.NewSessionGuardService(ttl, log.NewStdLogger(io.Discard))
}

func TestSessionGuard_SingleActiveSessionPerUser(t *testing.T) {
	t.Parallel()

	guard := newGuard(services.DefaultGuardTTL())
	ctx := context.Background()
	userID := uuid.New()
	first := uuid.New()
	second := uuid.New()

	activation, err := guard.TryActivate(ctx, userID, first, 3)
	require.NoError(t, err)
	require.True(t, activation.Activated)

	// A second device loses while the first token is alive.
	activation, err = guard.TryActivate(ctx, userID, second, 3)
	require.NoError(t, err)
	require.False(t, activation.Activated)

	// Same token re-activation counts as renewal.
	activation, err = guard.TryActivate(ctx, userID, first, 3)
	require.NoError(t, err)
	require.True(t, activation.Activated)

	require.Equal(t, 1, guard.ActiveSessions())
}

func TestSessionGuard_HeartbeatRenewsAndRejectsStrangers(t *testing.T) {
	t.Parallel()

	guard := newGuard(services.DefaultGuardTTL())
	ctx := context.Background()
	userID := uuid.New()
	token := uuid.New()

	_, err := guard.TryActivate(ctx, userID, token, 3)
	require.NoError(t, err)

	hb, err := guard.Heartbeat(ctx, userID, token)
	require.NoError(t, err)
	require.True(t, hb.StillActive)

	hb, err = guard.Heartbeat(ctx, userID, uuid.New())
	require.NoError(t, err)
	require.False(t, hb.StillActive)

	hb, err = guard.Heartbeat(ctx, uuid.New(), token)
	require.NoError(t, err)
	require.False(t, hb.StillActive)
}

func TestSessionGuard_ExpiredSlotIsReclaimed(t *testing.T) {
	t.Parallel()

	guard := newGuard(services.GuardTTL(30 * time.Millisecond))
	ctx := context.Background()
	userID := uuid.New()
	stale := uuid.New()
	fresh := uuid.New()

	_, err := guard.TryActivate(ctx, userID, stale, 3)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	// Heartbeat must not revive an expired slot.
	hb, err := guard.Heartbeat(ctx, userID, stale)
	require.NoError(t, err)
	require.False(t, hb.StillActive)

	activation, err := guard.TryActivate(ctx, userID, fresh, 3)
	require.NoError(t, err)
	require.True(t, activation.Activated)
}

func TestSessionGuard_ReleaseIsTokenScoped(t *testing.T) {
	t.Parallel()

	guard := newGuard(services.DefaultGuardTTL())
	ctx := context.Background()
	userID := uuid.New()
	token := uuid.New()

	_, err := guard.TryActivate(ctx, userID, token, 3)
	require.NoError(t, err)

	// Releasing with a different token is a no-op.
	require.NoError(t, guard.Release(ctx, userID, uuid.New()))
	require.Equal(t, 1, guard.ActiveSessions())

	require.NoError(t, guard.Release(ctx, userID, token))
	require.Equal(t, 0, guard.ActiveSessions())
}

func TestSessionGuard_RejectsMissingIdentifiers(t *testing.T) {
	t.Parallel()

	guard := newGuard(services.DefaultGuardTTL())
	ctx := context.Background()

	_, err := guard.TryActivate(ctx, uuid.Nil, uuid.New(), 3)
	require.Error(t, err)

	_, err = guard.Heartbeat(ctx, uuid.New(), uuid.Nil)
	require.Error(t, err)

	require.Error(t, guard.Release(ctx, uuid.Nil, uuid.Nil))
}
