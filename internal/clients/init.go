// Package clients 封装与奖励服务交互的出站客户端。
// 该层负责将远程 HTTP 调用封装为观看引擎所需的接口。
package clients

import "github.com/google/wire"

// ProviderSet 暴露 Clients 层的构造函数供 Wire 依赖注入使用。
var ProviderSet = wire.NewSet(NewRewardsClient)
