package controllers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/mikey1384/twinkle-vite-sub013/internal/controllers"
	"github.com/mikey1384/twinkle-vite-sub013/internal/controllers/dto"
	"github.com/mikey1384/twinkle-vite-sub013/internal/models/vo"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type sessionGuardStub struct {
	activateFn  func(context.Context, uuid.UUID, uuid.UUID, int32) (*vo.SessionActivation, error)
	heartbeatFn func(context.Context, uuid.UUID, uuid.UUID) (*vo.SessionHeartbeat, error)
	releaseFn   func(context.Context, uuid.UUID, uuid.UUID) error
	released    bool
}

func (s *sessionGuardStub) TryActivate(ctx context.Context, userID, token uuid.UUID, rewardLevel int32) (*vo.SessionActivation, error) {
	if s.activateFn != nil {
		return s.activateFn(ctx, userID, token, rewardLevel)
	}
	return &vo.SessionActivation{Activated: true}, nil
}

func (s *sessionGuardStub) Heartbeat(ctx context.Context, userID, token uuid.UUID) (*vo.SessionHeartbeat, error) {
	if s.heartbeatFn != nil {
		return s.heartbeatFn(ctx, userID, token)
	}
	return &vo.SessionHeartbeat{StillActive: true}, nil
}

func (s *sessionGuardStub) Release(ctx context.Context, userID, token uuid.UUID) error {
	s.released = true
	if s.releaseFn != nil {
		return s.releaseFn(ctx, userID, token)
	}
	return nil
}

func newSessionServer(t *testing.T, stub *sessionGuardStub) string {
	t.Helper()
	handler := controllers.NewSessionHandler(stub, controllers.NewBaseHandler(controllers.HandlerTimeouts{}))
	ts := startTestServer(t, handler.RegisterRoutes)
	return ts.URL
}

func TestSessionHandler_Activate(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	token := uuid.New()

	stub := &sessionGuardStub{activateFn: func(_ context.Context, gotUser, gotToken uuid.UUID, level int32) (*vo.SessionActivation, error) {
		require.Equal(t, userID, gotUser)
		require.Equal(t, token, gotToken)
		require.Equal(t, int32(3), level)
		return &vo.SessionActivation{Activated: true}, nil
	}}
	base := newSessionServer(t, stub)

	resp, raw := doJSON(t, http.MethodPost, base+"/v1/session/activate", dto.SessionRequest{
		UserID:       userID.String(),
		SessionToken: token.String(),
		RewardLevel:  3,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body dto.SessionActivateResponse
	decodeJSON(t, raw, &body)
	require.True(t, body.Activated)
}

func TestSessionHandler_Activate_ConflictReturnsNotActivated(t *testing.T) {
	t.Parallel()

	stub := &sessionGuardStub{activateFn: func(context.Context, uuid.UUID, uuid.UUID, int32) (*vo.SessionActivation, error) {
		return &vo.SessionActivation{Activated: false}, nil
	}}
	base := newSessionServer(t, stub)

	resp, raw := doJSON(t, http.MethodPost, base+"/v1/session/activate", dto.SessionRequest{
		UserID:       uuid.New().String(),
		SessionToken: uuid.New().String(),
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body dto.SessionActivateResponse
	decodeJSON(t, raw, &body)
	require.False(t, body.Activated)
}

func TestSessionHandler_Heartbeat(t *testing.T) {
	t.Parallel()

	stub := &sessionGuardStub{heartbeatFn: func(context.Context, uuid.UUID, uuid.UUID) (*vo.SessionHeartbeat, error) {
		return &vo.SessionHeartbeat{StillActive: false}, nil
	}}
	base := newSessionServer(t, stub)

	resp, raw := doJSON(t, http.MethodPost, base+"/v1/session/heartbeat", dto.SessionRequest{
		UserID:       uuid.New().String(),
		SessionToken: uuid.New().String(),
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body dto.SessionHeartbeatResponse
	decodeJSON(t, raw, &body)
	require.False(t, body.StillActive)
}

func TestSessionHandler_Release(t *testing.T) {
	t.Parallel()

	stub := &sessionGuardStub{}
	base := newSessionServer(t, stub)

	resp, raw := doJSON(t, http.MethodPost, base+"/v1/session/release", dto.SessionRequest{
		UserID:       uuid.New().String(),
		SessionToken: uuid.New().String(),
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, stub.released)

	var body dto.SessionReleaseResponse
	decodeJSON(t, raw, &body)
	require.True(t, body.Released)
}

func TestSessionHandler_RejectsInvalidRequests(t *testing.T) {
	t.Parallel()

	base := newSessionServer(t, &sessionGuardStub{})

	cases := []dto.SessionRequest{
		{SessionToken: uuid.New().String()},
		{UserID: uuid.New().String()},
		{UserID: uuid.New().String(), SessionToken: uuid.New().String(), RewardLevel: 9},
	}
	for _, req := range cases {
		resp, _ := doJSON(t, http.MethodPost, base+"/v1/session/activate", req, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	}
}
