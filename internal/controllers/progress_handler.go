package controllers

import (
	"strconv"
	"strings"

	"github.com/mikey1384/twinkle-vite-sub013/internal/controllers/dto"
	"github.com/mikey1384/twinkle-vite-sub013/internal/services"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ProgressHandler 暴露观看进度上报与查询接口。
type ProgressHandler struct {
	*BaseHandler
	progress services.WatchProgressServiceInterface
}

// NewProgressHandler 构造 ProgressHandler。
func NewProgressHandler(progress services.WatchProgressServiceInterface, base *BaseHandler) *ProgressHandler {
	if base == nil {
		base = NewBaseHandler(HandlerTimeouts{})
	}
	return &ProgressHandler{
		BaseHandler: base,
		progress:    progress,
	}
}

// RegisterRoutes 将进度接口挂载到路由器。
func (h *ProgressHandler) RegisterRoutes(r *khttp.Router) {
	r.PUT("/progress", h.ReportProgress)
	r.GET("/progress", h.GetProgress)
	r.GET("/progress/{userId}", h.ListProgress)
}

// ReportProgress 处理 PUT /v1/progress。
func (h *ProgressHandler) ReportProgress(ctx khttp.Context) error {
	var req dto.ReportProgressRequest
	if err := ctx.Bind(&req); err != nil {
		return kerrors.BadRequest("INVALID_BODY", err.Error())
	}
	meta := h.ExtractMetadata(ctx)
	userID, videoID, err := req.Validate()
	if err != nil {
		return kerrors.BadRequest("INVALID_ARGUMENT", err.Error())
	}
	if err := verifyRequestUser(userID, meta); err != nil {
		return err
	}

	timeoutCtx, cancel := h.WithTimeout(ctx, HandlerTypeCommand)
	defer cancel()
	timeoutCtx = InjectHandlerMetadata(timeoutCtx, meta)

	view, err := h.progress.ReportProgress(timeoutCtx, services.ReportProgressInput{
		UserID:          userID,
		VideoID:         videoID,
		PositionSeconds: req.PositionSeconds,
		DeltaSeconds:    req.DeltaSeconds,
	})
	if err != nil {
		return mapRewardError(err)
	}
	return ctx.Result(200, dto.ToWatchProgressResponse(view))
}

// GetProgress 处理 GET /v1/progress?userId&videoId。
func (h *ProgressHandler) GetProgress(ctx khttp.Context) error {
	userID, err := queryUUID(ctx, "userId")
	if err != nil {
		return kerrors.BadRequest("INVALID_ARGUMENT", err.Error())
	}
	videoID, err := queryUUID(ctx, "videoId")
	if err != nil {
		return kerrors.BadRequest("INVALID_ARGUMENT", err.Error())
	}

	timeoutCtx, cancel := h.WithTimeout(ctx, HandlerTypeQuery)
	defer cancel()

	view, err := h.progress.GetProgress(timeoutCtx, userID, videoID)
	if err != nil {
		return mapRewardError(err)
	}
	return ctx.Result(200, dto.ToWatchProgressResponse(view))
}

// ListProgress 处理 GET /v1/progress/{userId}。
func (h *ProgressHandler) ListProgress(ctx khttp.Context) error {
	userID, err := pathUUID(ctx, "userId")
	if err != nil {
		return kerrors.BadRequest("INVALID_ARGUMENT", err.Error())
	}
	limit, offset := pagination(ctx)

	timeoutCtx, cancel := h.WithTimeout(ctx, HandlerTypeQuery)
	defer cancel()

	views, err := h.progress.ListProgress(timeoutCtx, userID, limit, offset)
	if err != nil {
		return mapRewardError(err)
	}
	return ctx.Result(200, dto.ToWatchProgressListResponse(views))
}

func pagination(ctx khttp.Context) (limit, offset int32) {
	limit = defaultPageSize
	query := ctx.Query()
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 32); err == nil && parsed > 0 {
			limit = int32(parsed)
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if raw := strings.TrimSpace(query.Get("offset")); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 32); err == nil && parsed >= 0 {
			offset = int32(parsed)
		}
	}
	return limit, offset
}
