// Package httpserver 负责装配入站 HTTP Server 及其中间件栈。
// 包括：追踪、日志、限流、恢复等中间件，以及路由注册。
package httpserver

import (
	"github.com/mikey1384/twinkle-vite-sub013/internal/controllers"
	configloader "github.com/mikey1384/twinkle-vite-sub013/internal/infrastructure/configloader"

	"github.com/bionicotaku/lingo-utils/gcjwt"
	obsTrace "github.com/bionicotaku/lingo-utils/observability/tracing"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	"github.com/go-kratos/kratos/v2/middleware/metadata"
	"github.com/go-kratos/kratos/v2/middleware/ratelimit"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// NewHTTPServer 构造配置完整的 Kratos HTTP Server 实例。
//
// 中间件链（按执行顺序）：
// 1. obsTrace.Server() - OpenTelemetry 追踪，自动创建 Span
// 2. recovery.Recovery() - Panic 恢复，防止服务崩溃
// 3. metadata.Server() - 元数据传播
// 4. JWT 校验（按配置启用）
// 5. ratelimit.Server() - 限流保护
// 6. logging.Server() - 结构化日志记录（含 trace_id/span_id）
func NewHTTPServer(
	cfg configloader.ServerConfig,
	jwt gcjwt.ServerMiddleware,
	reward *controllers.RewardHandler,
	progress *controllers.ProgressHandler,
	session *controllers.SessionHandler,
	logger log.Logger,
) *khttp.Server {
	mws := []middleware.Middleware{
		obsTrace.Server(),
		recovery.Recovery(),
		metadata.Server(metadata.WithPropagatedPrefix(cfg.MetadataKeys...)),
	}
	if jwt != nil {
		mws = append(mws, middleware.Middleware(jwt))
	}
	mws = append(mws,
		ratelimit.Server(),
		logging.Server(logger),
	)

	opts := []khttp.ServerOption{
		khttp.Middleware(mws...),
	}
	if cfg.Network != "" {
		opts = append(opts, khttp.Network(cfg.Network))
	}
	if cfg.Address != "" {
		opts = append(opts, khttp.Address(cfg.Address))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, khttp.Timeout(cfg.Timeout))
	}

	srv := khttp.NewServer(opts...)
	router := srv.Route("/v1")
	if reward != nil {
		reward.RegisterRoutes(router)
	}
	if progress != nil {
		progress.RegisterRoutes(router)
	}
	if session != nil {
		session.RegisterRoutes(router)
	}
	return srv
}
