//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

//go:generate go run github.com/google/wire/cmd/wire

package main

import (
	"context"

	"github.com/mikey1384/twinkle-vite-sub013/internal/controllers"
	configloader "github.com/mikey1384/twinkle-vite-sub013/internal/infrastructure/configloader"
	httpserver "github.com/mikey1384/twinkle-vite-sub013/internal/infrastructure/httpserver"
	"github.com/mikey1384/twinkle-vite-sub013/internal/repositories"
	"github.com/mikey1384/twinkle-vite-sub013/internal/services"
	outboxtasks "github.com/mikey1384/twinkle-vite-sub013/internal/tasks/outbox"

	"github.com/bionicotaku/lingo-utils/gcjwt"
	"github.com/bionicotaku/lingo-utils/gclog"
	"github.com/bionicotaku/lingo-utils/gcpubsub"
	obswire "github.com/bionicotaku/lingo-utils/observability"
	"github.com/bionicotaku/lingo-utils/pgxpoolx"
	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2"
	"github.com/google/wire"
)

// wireApp 构建整个 Kratos 应用，分阶段装配依赖。
//
// 依赖注入顺序:
//  1. 配置加载: configloader.ProviderSet 解析配置并派生组件配置
//  2. 基础设施: gclog → observability → gcjwt → pgxpoolx → txmanager → gcpubsub
//  3. 业务层: repositories → services → controllers
//  4. 服务器: httpserver.ProviderSet 组装 HTTP Server
//  5. 后台任务: outbox 发布器与会话守卫清理 worker
//  6. 应用: newApp 创建 Kratos App
func wireApp(context.Context, configloader.Params) (*kratos.App, func(), error) {
	panic(wire.Build(
		configloader.ProviderSet, // 配置加载与解析
		gclog.ProviderSet,        // 结构化日志
		gcjwt.ProviderSet,        // JWT 认证中间件
		obswire.ProviderSet,      // OpenTelemetry 追踪和指标
		pgxpoolx.ProviderSet,     // PostgreSQL 连接池
		txmanager.ProviderSet,    // 事务管理器
		gcpubsub.ProviderSet,     // Pub/Sub 发布与订阅
		httpserver.ProviderSet,   // HTTP Server
		repositories.ProviderSet, // 数据访问层
		wire.Bind(new(services.LedgerRepository), new(*repositories.RewardLedgerRepository)),
		wire.Bind(new(services.BalancesRepository), new(*repositories.UserBalancesRepository)),
		wire.Bind(new(services.VideoProjectionReader), new(*repositories.VideoProjectionRepository)),
		wire.Bind(new(services.VideoProjectionWriter), new(*repositories.VideoProjectionRepository)),
		wire.Bind(new(services.OutboxEnqueuer), new(*repositories.OutboxRepository)),
		wire.Bind(new(services.ProgressRepository), new(*repositories.WatchProgressRepository)),
		services.ProviderSet, // 业务逻辑层
		wire.Bind(new(services.RewardServiceInterface), new(*services.RewardService)),
		wire.Bind(new(services.WatchProgressServiceInterface), new(*services.WatchProgressService)),
		wire.Bind(new(services.SessionGuardInterface), new(*services.SessionGuardService)),
		controllers.ProviderSet, // 控制器层（HTTP handlers）
		outboxtasks.ProvideRunner,
		newApp, // 组装 Kratos 应用
	))
}
