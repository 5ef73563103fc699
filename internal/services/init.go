// Package services 包含应用业务用例的编排逻辑。
// 该层负责协调 Repository 和并发守卫，实现奖励发放规则，不直接依赖传输层或基础设施细节。
package services

import "github.com/google/wire"

// ProviderSet 暴露 Services 层的构造函数供 Wire 依赖注入使用。
// 包含所有 Usecase 的构造器。
var ProviderSet = wire.NewSet(
	NewRewardService,
	NewWatchProgressService,
	NewSessionGuardService,
	NewVideoProjectionService,
)
