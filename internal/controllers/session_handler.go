package controllers

import (
	"github.com/mikey1384/twinkle-vite-sub013/internal/controllers/dto"
	"github.com/mikey1384/twinkle-vite-sub013/internal/services"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/uuid"
)

// SessionHandler 暴露并发会话守卫接口。
type SessionHandler struct {
	*BaseHandler
	guard services.SessionGuardInterface
}

// NewSessionHandler 构造 SessionHandler。
func NewSessionHandler(guard services.SessionGuardInterface, base *BaseHandler) *SessionHandler {
	if base == nil {
		base = NewBaseHandler(HandlerTimeouts{})
	}
	return &SessionHandler{
		BaseHandler: base,
		guard:       guard,
	}
}

// RegisterRoutes 将会话接口挂载到路由器。
func (h *SessionHandler) RegisterRoutes(r *khttp.Router) {
	r.POST("/session/activate", h.Activate)
	r.POST("/session/heartbeat", h.Heartbeat)
	r.POST("/session/release", h.Release)
}

// Activate 处理 POST /v1/session/activate。
func (h *SessionHandler) Activate(ctx khttp.Context) error {
	req, userID, token, err := h.bindSession(ctx)
	if err != nil {
		return err
	}

	timeoutCtx, cancel := h.WithTimeout(ctx, HandlerTypeCommand)
	defer cancel()

	result, err := h.guard.TryActivate(timeoutCtx, userID, token, req.RewardLevel)
	if err != nil {
		return mapRewardError(err)
	}
	return ctx.Result(200, &dto.SessionActivateResponse{Activated: result.Activated})
}

// Heartbeat 处理 POST /v1/session/heartbeat。
func (h *SessionHandler) Heartbeat(ctx khttp.Context) error {
	_, userID, token, err := h.bindSession(ctx)
	if err != nil {
		return err
	}

	timeoutCtx, cancel := h.WithTimeout(ctx, HandlerTypeCommand)
	defer cancel()

	result, err := h.guard.Heartbeat(timeoutCtx, userID, token)
	if err != nil {
		return mapRewardError(err)
	}
	return ctx.Result(200, &dto.SessionHeartbeatResponse{StillActive: result.StillActive})
}

// Release 处理 POST /v1/session/release。
func (h *SessionHandler) Release(ctx khttp.Context) error {
	_, userID, token, err := h.bindSession(ctx)
	if err != nil {
		return err
	}

	timeoutCtx, cancel := h.WithTimeout(ctx, HandlerTypeCommand)
	defer cancel()

	if err := h.guard.Release(timeoutCtx, userID, token); err != nil {
		return mapRewardError(err)
	}
	return ctx.Result(200, &dto.SessionReleaseResponse{Released: true})
}

func (h *SessionHandler) bindSession(ctx khttp.Context) (*dto.SessionRequest, uuid.UUID, uuid.UUID, error) {
	var req dto.SessionRequest
	if err := ctx.Bind(&req); err != nil {
		return nil, uuid.Nil, uuid.Nil, kerrors.BadRequest("INVALID_BODY", err.Error())
	}
	meta := h.ExtractMetadata(ctx)
	userID, token, err := req.Validate()
	if err != nil {
		return nil, uuid.Nil, uuid.Nil, kerrors.BadRequest("INVALID_ARGUMENT", err.Error())
	}
	if err := verifyRequestUser(userID, meta); err != nil {
		return nil, uuid.Nil, uuid.Nil, err
	}
	return &req, userID, token, nil
}
