package controllers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mikey1384/twinkle-vite-sub013/internal/controllers/dto"
	metadata "github.com/mikey1384/twinkle-vite-sub013/internal/metadata"
	"github.com/mikey1384/twinkle-vite-sub013/internal/services"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/uuid"
)

// RewardHandler 暴露奖励申领与余额查询接口。
type RewardHandler struct {
	*BaseHandler
	rewards services.RewardServiceInterface
}

// NewRewardHandler 构造 RewardHandler。
func NewRewardHandler(rewards services.RewardServiceInterface, base *BaseHandler) *RewardHandler {
	if base == nil {
		base = NewBaseHandler(HandlerTimeouts{})
	}
	return &RewardHandler{
		BaseHandler: base,
		rewards:     rewards,
	}
}

// RegisterRoutes 将奖励接口挂载到路由器。
func (h *RewardHandler) RegisterRoutes(r *khttp.Router) {
	r.POST("/reward/claim", h.ClaimReward)
	r.GET("/reward/balance/{userId}", h.GetBalance)
}

// ClaimReward 处理 POST /v1/reward/claim。
func (h *RewardHandler) ClaimReward(ctx khttp.Context) error {
	var req dto.ClaimRewardRequest
	if err := ctx.Bind(&req); err != nil {
		return kerrors.BadRequest("INVALID_BODY", err.Error())
	}
	meta := h.ExtractMetadata(ctx)
	userID, videoID, token, err := req.Validate()
	if err != nil {
		return kerrors.BadRequest("INVALID_ARGUMENT", err.Error())
	}
	if err := verifyRequestUser(userID, meta); err != nil {
		return err
	}

	timeoutCtx, cancel := h.WithTimeout(ctx, HandlerTypeCommand)
	defer cancel()
	timeoutCtx = InjectHandlerMetadata(timeoutCtx, meta)

	verdict, err := h.rewards.ClaimReward(timeoutCtx, services.ClaimRewardInput{
		UserID:               userID,
		VideoID:              videoID,
		XPAmount:             req.XPAmount,
		CoinAmount:           req.CoinAmount,
		TotalDurationSeconds: req.TotalDuration,
		SessionToken:         token,
	})
	if err != nil {
		return mapRewardError(err)
	}
	return ctx.Result(200, dto.ToClaimRewardResponse(verdict))
}

// GetBalance 处理 GET /v1/reward/balance/{userId}。
func (h *RewardHandler) GetBalance(ctx khttp.Context) error {
	userID, err := pathUUID(ctx, "userId")
	if err != nil {
		return kerrors.BadRequest("INVALID_ARGUMENT", err.Error())
	}

	timeoutCtx, cancel := h.WithTimeout(ctx, HandlerTypeQuery)
	defer cancel()

	balance, err := h.rewards.GetBalance(timeoutCtx, userID)
	if err != nil {
		return mapRewardError(err)
	}
	return ctx.Result(200, dto.ToBalanceResponse(balance))
}

func mapRewardError(err error) error {
	switch {
	case errors.Is(err, services.ErrVideoNotRewardable):
		return kerrors.BadRequest("VIDEO_NOT_REWARDABLE", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return kerrors.GatewayTimeout("TIMEOUT", err.Error())
	default:
		return kerrors.InternalServer("INTERNAL", err.Error())
	}
}

// verifyRequestUser 确认请求体中的用户与网关注入的身份一致。
func verifyRequestUser(userID uuid.UUID, meta metadata.HandlerMetadata) error {
	if meta.InvalidUserInfo {
		return kerrors.Unauthorized("INVALID_USERINFO", "malformed userinfo header")
	}
	if meta.UserID == "" {
		return nil
	}
	authed, ok := meta.UserUUID()
	if !ok || authed != userID {
		return kerrors.Forbidden("USER_MISMATCH", "request user does not match authenticated user")
	}
	return nil
}

func pathUUID(ctx khttp.Context, key string) (uuid.UUID, error) {
	return parseUUIDParam(key, ctx.Vars().Get(key))
}

func queryUUID(ctx khttp.Context, key string) (uuid.UUID, error) {
	return parseUUIDParam(key, ctx.Query().Get(key))
}

func parseUUIDParam(key, raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%s required", key)
	}
	value, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}
