// Package dto 定义 HTTP API 的请求与响应载荷，以及到视图对象的映射。
package dto

import (
	"fmt"

	"github.com/mikey1384/twinkle-vite-sub013/internal/models/po"
	"github.com/mikey1384/twinkle-vite-sub013/internal/models/vo"

	"github.com/google/uuid"
)

// ClaimRewardRequest 为 POST /v1/reward/claim 的请求体。
type ClaimRewardRequest struct {
	UserID        string  `json:"userId"`
	VideoID       string  `json:"videoId"`
	XPAmount      int64   `json:"xpAmount"`
	CoinAmount    int64   `json:"coinAmount"`
	TotalDuration float64 `json:"totalDuration"`
	SessionToken  string  `json:"sessionToken"`
}

// Validate 校验请求体并解析标识符。
func (r *ClaimRewardRequest) Validate() (userID, videoID uuid.UUID, token *uuid.UUID, err error) {
	userID, err = uuid.Parse(r.UserID)
	if err != nil {
		return uuid.Nil, uuid.Nil, nil, fmt.Errorf("invalid userId: %w", err)
	}
	videoID, err = uuid.Parse(r.VideoID)
	if err != nil {
		return uuid.Nil, uuid.Nil, nil, fmt.Errorf("invalid videoId: %w", err)
	}
	if r.XPAmount < 0 || r.CoinAmount < 0 {
		return uuid.Nil, uuid.Nil, nil, fmt.Errorf("amounts must be non-negative")
	}
	if r.XPAmount == 0 && r.CoinAmount == 0 {
		return uuid.Nil, uuid.Nil, nil, fmt.Errorf("claim must carry a non-zero amount")
	}
	if r.SessionToken != "" {
		parsed, perr := uuid.Parse(r.SessionToken)
		if perr != nil {
			return uuid.Nil, uuid.Nil, nil, fmt.Errorf("invalid sessionToken: %w", perr)
		}
		token = &parsed
	}
	return userID, videoID, token, nil
}

// ClaimRewardResponse 为申领接口的响应体。
type ClaimRewardResponse struct {
	Granted         bool  `json:"granted"`
	AlreadyDone     bool  `json:"alreadyDone"`
	DailyCapReached bool  `json:"dailyCapReached"`
	MaxReached      bool  `json:"maxReached"`
	XPGranted       int64 `json:"xpGranted"`
	CoinsGranted    int64 `json:"coinsGranted"`
	NewXPTotal      int64 `json:"newXpTotal"`
	NewCoinTotal    int64 `json:"newCoinTotal"`
}

// ToClaimRewardResponse 将裁决结果映射为响应体。
func ToClaimRewardResponse(verdict *vo.ClaimVerdict) *ClaimRewardResponse {
	if verdict == nil {
		return &ClaimRewardResponse{}
	}
	return &ClaimRewardResponse{
		Granted:         verdict.Granted,
		AlreadyDone:     verdict.AlreadyDone,
		DailyCapReached: verdict.DailyCapReached,
		MaxReached:      verdict.MaxReached,
		XPGranted:       verdict.XPGranted,
		CoinsGranted:    verdict.CoinsGranted,
		NewXPTotal:      verdict.NewXPTotal,
		NewCoinTotal:    verdict.NewCoinTotal,
	}
}

// BalanceResponse 为 GET /v1/reward/balance 的响应体。
type BalanceResponse struct {
	UserID    string `json:"userId"`
	XPTotal   int64  `json:"xpTotal"`
	CoinTotal int64  `json:"coinTotal"`
}

// ToBalanceResponse 将余额实体映射为响应体。
func ToBalanceResponse(balance *po.UserBalance) *BalanceResponse {
	if balance == nil {
		return &BalanceResponse{}
	}
	return &BalanceResponse{
		UserID:    balance.UserID.String(),
		XPTotal:   balance.XPTotal,
		CoinTotal: balance.CoinTotal,
	}
}
