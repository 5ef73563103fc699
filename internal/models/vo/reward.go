// Package vo 定义奖励服务在控制器与客户端之间交互使用的视图对象。
package vo

import "time"

// ClaimVerdict 表示一次奖励申领的裁决结果。
// Granted 与 AlreadyDone 互斥；cap 标志可与两者叠加。
type ClaimVerdict struct {
	Granted         bool
	AlreadyDone     bool
	DailyCapReached bool
	MaxReached      bool
	XPGranted       int64
	CoinsGranted    int64
	NewXPTotal      int64
	NewCoinTotal    int64
}

// WatchProgress 表示向上层返回的观看进度视图。
type WatchProgress struct {
	VideoID               string
	LastPositionSeconds   float64
	LifetimeViewSeconds   float64
	SuspectedRewatchAbuse bool
	LastWatchedAt         *time.Time
}

// SessionActivation 表示并发守卫的激活结果。
type SessionActivation struct {
	Activated bool
}

// SessionHeartbeat 表示心跳续约结果。
type SessionHeartbeat struct {
	StillActive bool
}
