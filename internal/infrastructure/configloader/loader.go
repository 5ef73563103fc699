package configloader

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/joho/godotenv"
)

// Params 控制配置加载的输入参数。
type Params struct {
	ConfPath string
}

const (
	defaultConfPath       = "configs/config.yaml"
	envConfPath           = "CONF_PATH"
	envDatabaseURL        = "DATABASE_URL"
	envPort               = "PORT"
	envServiceName        = "SERVICE_NAME"
	envServiceVersion     = "SERVICE_VERSION"
	envEnvironment        = "APP_ENV"
	defaultServiceName    = "rewards"
	defaultServiceVersion = "dev"
	defaultEnvironment    = "development"
)

// bootstrap 镜像 configs/config.yaml 的结构；时间字段以字符串表示，
// 由归一化阶段解析为 time.Duration。
type bootstrap struct {
	Server        bootstrapServer        `json:"server"`
	Data          bootstrapData          `json:"data"`
	Observability bootstrapObservability `json:"observability"`
	Messaging     bootstrapMessaging     `json:"messaging"`
	Rewards       bootstrapRewards       `json:"rewards"`
}

type bootstrapServer struct {
	HTTP struct {
		Network string `json:"network"`
		Addr    string `json:"addr"`
		Timeout string `json:"timeout"`
	} `json:"http"`
	JWT struct {
		ExpectedAudience string `json:"expected_audience"`
		SkipValidate     bool   `json:"skip_validate"`
		Required         bool   `json:"required"`
		HeaderKey        string `json:"header_key"`
	} `json:"jwt"`
	Handlers struct {
		Default string `json:"default"`
		Command string `json:"command"`
		Query   string `json:"query"`
	} `json:"handlers"`
	MetadataKeys []string `json:"metadata_keys"`
}

type bootstrapData struct {
	Postgres struct {
		DSN               string `json:"dsn"`
		MaxOpenConns      int    `json:"max_open_conns"`
		MinOpenConns      int    `json:"min_open_conns"`
		MaxConnLifetime   string `json:"max_conn_lifetime"`
		MaxConnIdleTime   string `json:"max_conn_idle_time"`
		HealthCheckPeriod string `json:"health_check_period"`
		Schema            string `json:"schema"`
		PreparedStmts     bool   `json:"prepared_stmts"`
		PoolMetrics       bool   `json:"pool_metrics"`
		Transaction       struct {
			DefaultIsolation string `json:"default_isolation"`
			DefaultTimeout   string `json:"default_timeout"`
			LockTimeout      string `json:"lock_timeout"`
			MaxRetries       int    `json:"max_retries"`
			MetricsEnabled   bool   `json:"metrics_enabled"`
		} `json:"transaction"`
	} `json:"postgres"`
	HTTPClient struct {
		Endpoint string `json:"endpoint"`
		Timeout  string `json:"timeout"`
		JWT      struct {
			Audience  string `json:"audience"`
			Disabled  bool   `json:"disabled"`
			HeaderKey string `json:"header_key"`
		} `json:"jwt"`
	} `json:"http_client"`
}

type bootstrapObservability struct {
	GlobalAttributes map[string]string `json:"global_attributes"`
	Tracing          struct {
		Enabled            bool              `json:"enabled"`
		Exporter           string            `json:"exporter"`
		Endpoint           string            `json:"endpoint"`
		Headers            map[string]string `json:"headers"`
		Insecure           bool              `json:"insecure"`
		SamplingRatio      float64           `json:"sampling_ratio"`
		BatchTimeout       string            `json:"batch_timeout"`
		ExportTimeout      string            `json:"export_timeout"`
		MaxQueueSize       int               `json:"max_queue_size"`
		MaxExportBatchSize int               `json:"max_export_batch_size"`
		Required           bool              `json:"required"`
		Attributes         map[string]string `json:"attributes"`
	} `json:"tracing"`
	Metrics struct {
		Enabled             bool              `json:"enabled"`
		Exporter            string            `json:"exporter"`
		Endpoint            string            `json:"endpoint"`
		Headers             map[string]string `json:"headers"`
		Insecure            bool              `json:"insecure"`
		Interval            string            `json:"interval"`
		DisableRuntimeStats bool              `json:"disable_runtime_stats"`
		Required            bool              `json:"required"`
		ResourceAttributes  map[string]string `json:"resource_attributes"`
	} `json:"metrics"`
}

type bootstrapPubSub struct {
	ProjectID           string `json:"project_id"`
	TopicID             string `json:"topic_id"`
	SubscriptionID      string `json:"subscription_id"`
	OrderingKeyEnabled  bool   `json:"ordering_key_enabled"`
	LoggingEnabled      bool   `json:"logging_enabled"`
	MetricsEnabled      bool   `json:"metrics_enabled"`
	EmulatorEndpoint    string `json:"emulator_endpoint"`
	PublishTimeout      string `json:"publish_timeout"`
	ExactlyOnceDelivery bool   `json:"exactly_once_delivery"`
	DeadLetterTopicID   string `json:"dead_letter_topic_id"`
	Receive             struct {
		NumGoroutines          int    `json:"num_goroutines"`
		MaxOutstandingMessages int    `json:"max_outstanding_messages"`
		MaxOutstandingBytes    int    `json:"max_outstanding_bytes"`
		MaxExtension           string `json:"max_extension"`
		MaxExtensionPeriod     string `json:"max_extension_period"`
	} `json:"receive"`
}

type bootstrapMessaging struct {
	Schema       string          `json:"schema"`
	PubSub       bootstrapPubSub `json:"pubsub"`
	CatalogInbox bootstrapPubSub `json:"catalog_inbox"`
	Outbox       struct {
		BatchSize      int    `json:"batch_size"`
		TickInterval   string `json:"tick_interval"`
		InitialBackoff string `json:"initial_backoff"`
		MaxBackoff     string `json:"max_backoff"`
		MaxAttempts    int    `json:"max_attempts"`
		PublishTimeout string `json:"publish_timeout"`
		Workers        int    `json:"workers"`
		LockTTL        string `json:"lock_ttl"`
		LoggingEnabled *bool  `json:"logging_enabled"`
		MetricsEnabled *bool  `json:"metrics_enabled"`
	} `json:"outbox"`
	Inbox struct {
		SourceService  string `json:"source_service"`
		MaxConcurrency int    `json:"max_concurrency"`
		LoggingEnabled *bool  `json:"logging_enabled"`
		MetricsEnabled *bool  `json:"metrics_enabled"`
	} `json:"inbox"`
}

type bootstrapRewards struct {
	ClaimWindow      string  `json:"claim_window"`
	DailyCap         int64   `json:"daily_cap"`
	PerVideoXPFactor float64 `json:"per_video_xp_factor"`
	GuardTTL         string  `json:"guard_ttl"`
	Engine           struct {
		TickInterval          string  `json:"tick_interval"`
		ClaimThresholdSeconds float64 `json:"claim_threshold_seconds"`
		PerMinuteXPRate       int64   `json:"per_minute_xp_rate"`
		PerMinuteCoinRate     int64   `json:"per_minute_coin_rate"`
	} `json:"engine"`
}

// Load 解析配置文件并返回归一化的 RuntimeConfig。
func Load(params Params) (RuntimeConfig, error) {
	confPath := resolveConfPath(params.ConfPath)
	if err := loadEnvFiles(confPath); err != nil {
		return RuntimeConfig{}, fmt.Errorf("load env files: %w", err)
	}

	boot, err := loadBootstrap(confPath)
	if err != nil {
		return RuntimeConfig{}, err
	}

	runtime := fromBootstrap(boot)
	runtime.Service = buildServiceInfo()
	fillDefaults(&runtime)

	return runtime, nil
}

func resolveConfPath(explicit string) string {
	switch {
	case explicit != "":
		return explicit
	case os.Getenv(envConfPath) != "":
		return os.Getenv(envConfPath)
	default:
		return defaultConfPath
	}
}

func loadEnvFiles(confPath string) error {
	dirs := candidateDirs(confPath)
	var files []string
	seen := map[string]struct{}{}
	for _, dir := range dirs {
		for _, name := range []string{".env.local", ".env"} {
			fp := filepath.Join(dir, name)
			if _, err := os.Stat(fp); err != nil {
				continue
			}
			if _, ok := seen[fp]; ok {
				continue
			}
			files = append(files, fp)
			seen[fp] = struct{}{}
		}
	}
	if len(files) == 0 {
		return nil
	}
	return godotenv.Overload(files...)
}

func candidateDirs(confPath string) []string {
	var dirs []string
	add := func(path string) {
		if path == "" {
			return
		}
		clean := filepath.Clean(path)
		for _, exist := range dirs {
			if exist == clean {
				return
			}
		}
		dirs = append(dirs, clean)
	}

	if info, err := os.Stat(confPath); err == nil {
		if info.IsDir() {
			add(confPath)
		} else {
			add(filepath.Dir(confPath))
		}
	}

	if cwd, err := os.Getwd(); err == nil {
		add(cwd)
	}
	return dirs
}

func loadBootstrap(confPath string) (*bootstrap, error) {
	c := config.New(config.WithSource(file.NewSource(confPath)))
	if err := c.Load(); err != nil {
		return nil, fmt.Errorf("load config %q: %w", confPath, err)
	}
	defer c.Close()

	var boot bootstrap
	if err := c.Scan(&boot); err != nil {
		return nil, fmt.Errorf("scan config %q: %w", confPath, err)
	}

	applyEnvOverrides(&boot)
	return &boot, nil
}

func buildServiceInfo() ServiceInfo {
	name := firstNonEmpty(os.Getenv(envServiceName), defaultServiceName)
	version := firstNonEmpty(os.Getenv(envServiceVersion), defaultServiceVersion)
	env := resolveEnvironment(os.Getenv(envEnvironment))
	instance := hostnameOrDefault()

	return ServiceInfo{
		Name:        name,
		Version:     version,
		Environment: env,
		InstanceID:  instance,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func resolveEnvironment(raw string) string {
	if raw == "" {
		return defaultEnvironment
	}
	switch raw {
	case "dev", "development":
		return defaultEnvironment
	case "staging":
		return "staging"
	case "prod", "production":
		return "production"
	default:
		return raw
	}
}

func hostnameOrDefault() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "unknown-instance"
	}
	return host
}

func applyEnvOverrides(b *bootstrap) {
	if b == nil {
		return
	}
	if dsn := os.Getenv(envDatabaseURL); dsn != "" {
		b.Data.Postgres.DSN = dsn
	}
	if port := os.Getenv(envPort); port != "" {
		b.Server.HTTP.Addr = replacePort(b.Server.HTTP.Addr, port)
	}
}

func replacePort(addr, port string) string {
	if addr == "" {
		return ":" + port
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return ":" + port
	}
	return net.JoinHostPort(host, port)
}
