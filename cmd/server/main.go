// Package main 提供奖励服务 HTTP Server 的启动入口。
// 负责加载配置、通过 Wire 装配依赖、启动 Server 与后台 worker 并优雅关闭。
package main

import (
	"context"
	"errors"
	"flag"
	"sync"

	configloader "github.com/mikey1384/twinkle-vite-sub013/internal/infrastructure/configloader"
	"github.com/mikey1384/twinkle-vite-sub013/internal/services"

	obswire "github.com/bionicotaku/lingo-utils/observability"
	outboxpublisher "github.com/bionicotaku/lingo-utils/outbox/publisher"
	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"

	_ "go.uber.org/automaxprocs" // 自动设置 GOMAXPROCS 为容器 CPU 配额
)

// newApp 组装 Kratos 应用：观测组件、日志器、服务元信息、HTTP Server，
// 以及随应用生命周期运行的后台 worker（outbox 发布器、会话守卫清理）。
func newApp(
	_ *obswire.Component,
	logger log.Logger,
	hs *khttp.Server,
	meta configloader.ServiceInfo,
	publisher *outboxpublisher.Runner,
	guard *services.SessionGuardService,
) *kratos.App {
	options := []kratos.Option{
		kratos.ID(meta.InstanceID),
		kratos.Name(meta.Name),
		kratos.Version(meta.Version),
		kratos.Metadata(map[string]string{"environment": meta.Environment}),
		kratos.Logger(logger),
		kratos.Server(hs),
	}

	type worker struct {
		name string
		run  func(context.Context) error
	}

	var workers []worker
	if publisher != nil {
		workers = append(workers, worker{name: "outbox publisher", run: publisher.Run})
	}
	if guard != nil {
		workers = append(workers, worker{name: "session guard sweeper", run: guard.Run})
	}
	if len(workers) > 0 {
		var (
			wg      sync.WaitGroup
			cancels []context.CancelFunc
		)
		helper := log.NewHelper(logger)

		options = append(options,
			kratos.BeforeStart(func(ctx context.Context) error {
				cancels = make([]context.CancelFunc, len(workers))
				for i := range workers {
					runCtx, cancel := context.WithCancel(ctx)
					cancels[i] = cancel
					wg.Add(1)
					worker := workers[i]
					go func() {
						defer wg.Done()
						if err := worker.run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
							helper.Warnf("%s stopped: %v", worker.name, err)
						}
					}()
				}
				return nil
			}),
			kratos.AfterStop(func(ctx context.Context) error {
				for _, cancel := range cancels {
					if cancel != nil {
						cancel()
					}
				}
				done := make(chan struct{})
				go func() {
					wg.Wait()
					close(done)
				}()
				select {
				case <-ctx.Done():
				case <-done:
				}
				return nil
			}),
		)
	}

	return kratos.New(options...)
}

func main() {
	ctx := context.Background()

	confFlag := flag.String("conf", "", "config path or directory, eg: -conf configs/config.yaml")
	flag.Parse()

	params := configloader.Params{
		ConfPath: *confFlag,
	}

	app, cleanupApp, err := wireApp(ctx, params)
	if err != nil {
		panic(err)
	}
	defer cleanupApp()

	if err := app.Run(); err != nil {
		panic(err)
	}
}
