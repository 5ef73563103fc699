package dto

import (
	"fmt"
	"time"

	"github.com/mikey1384/twinkle-vite-sub013/internal/models/vo"

	"github.com/google/uuid"
)

// ReportProgressRequest 为 PUT /v1/progress 的请求体。
type ReportProgressRequest struct {
	UserID          string  `json:"userId"`
	VideoID         string  `json:"videoId"`
	PositionSeconds float64 `json:"positionSeconds"`
	DeltaSeconds    float64 `json:"deltaSeconds"`
}

// Validate 校验请求体并解析标识符。
func (r *ReportProgressRequest) Validate() (userID, videoID uuid.UUID, err error) {
	userID, err = uuid.Parse(r.UserID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid userId: %w", err)
	}
	videoID, err = uuid.Parse(r.VideoID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid videoId: %w", err)
	}
	if r.PositionSeconds < 0 {
		return uuid.Nil, uuid.Nil, fmt.Errorf("positionSeconds must be non-negative")
	}
	return userID, videoID, nil
}

// WatchProgressResponse 为进度查询与上报的响应体。
type WatchProgressResponse struct {
	VideoID               string     `json:"videoId"`
	LastPositionSeconds   float64    `json:"lastPositionSeconds"`
	LifetimeViewSeconds   float64    `json:"lifetimeViewSeconds"`
	SuspectedRewatchAbuse bool       `json:"suspectedRewatchAbuse"`
	LastWatchedAt         *time.Time `json:"lastWatchedAt,omitempty"`
}

// ToWatchProgressResponse 将进度视图映射为响应体。
func ToWatchProgressResponse(view *vo.WatchProgress) *WatchProgressResponse {
	if view == nil {
		return &WatchProgressResponse{}
	}
	return &WatchProgressResponse{
		VideoID:               view.VideoID,
		LastPositionSeconds:   view.LastPositionSeconds,
		LifetimeViewSeconds:   view.LifetimeViewSeconds,
		SuspectedRewatchAbuse: view.SuspectedRewatchAbuse,
		LastWatchedAt:         view.LastWatchedAt,
	}
}

// WatchProgressListResponse 为 GET /v1/progress 列表的响应体。
type WatchProgressListResponse struct {
	Items []*WatchProgressResponse `json:"items"`
}

// ToWatchProgressListResponse 将进度视图列表映射为响应体。
func ToWatchProgressListResponse(views []*vo.WatchProgress) *WatchProgressListResponse {
	items := make([]*WatchProgressResponse, 0, len(views))
	for _, view := range views {
		items = append(items, ToWatchProgressResponse(view))
	}
	return &WatchProgressListResponse{Items: items}
}
