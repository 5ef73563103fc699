package dto

import (
	"fmt"

	"github.com/google/uuid"
)

// SessionRequest 为会话守卫接口的公共请求体。
type SessionRequest struct {
	UserID       string `json:"userId"`
	SessionToken string `json:"sessionToken"`
	RewardLevel  int32  `json:"rewardLevel,omitempty"`
}

// Validate 校验请求体并解析标识符。
func (r *SessionRequest) Validate() (userID, token uuid.UUID, err error) {
	userID, err = uuid.Parse(r.UserID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid userId: %w", err)
	}
	token, err = uuid.Parse(r.SessionToken)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid sessionToken: %w", err)
	}
	if r.RewardLevel < 0 || r.RewardLevel > 5 {
		return uuid.Nil, uuid.Nil, fmt.Errorf("rewardLevel out of range")
	}
	return userID, token, nil
}

// SessionActivateResponse 为 POST /v1/session/activate 的响应体。
type SessionActivateResponse struct {
	Activated bool `json:"activated"`
}

// SessionHeartbeatResponse 为 POST /v1/session/heartbeat 的响应体。
type SessionHeartbeatResponse struct {
	StillActive bool `json:"stillActive"`
}

// SessionReleaseResponse 为 POST /v1/session/release 的响应体。
type SessionReleaseResponse struct {
	Released bool `json:"released"`
}
