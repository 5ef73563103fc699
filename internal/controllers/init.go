// Package controllers 实现 HTTP 传输层的请求处理器。
// 该层负责请求解析、参数校验与超时控制，并将调用委托给 Services 层。
package controllers

import "github.com/google/wire"

// ProviderSet 暴露 Controllers 层的构造函数供 Wire 依赖注入使用。
var ProviderSet = wire.NewSet(
	NewBaseHandler,
	NewRewardHandler,
	NewProgressHandler,
	NewSessionHandler,
)
