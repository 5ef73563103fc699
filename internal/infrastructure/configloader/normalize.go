package configloader

import "time"

const (
	defaultHandlerTimeout = 5 * time.Second
	defaultQueryTimeout   = 3 * time.Second
	defaultClaimWindow    = 60 * time.Second
	defaultDailyCap       = 5000
	defaultXPFactor       = 1.5
	defaultGuardTTL       = 4 * time.Second
	defaultTickInterval   = 2 * time.Second
	defaultThreshold      = 60.0
	defaultXPRate         = 20
	defaultCoinRate       = 5
	defaultMetadataPrefix = "x-md-"
)

func fromBootstrap(b *bootstrap) RuntimeConfig {
	if b == nil {
		return RuntimeConfig{}
	}
	return RuntimeConfig{
		Server:        serverFromBootstrap(b.Server),
		Database:      databaseFromBootstrap(b.Data),
		Client:        clientFromBootstrap(b.Data),
		Observability: observabilityFromBootstrap(b.Observability),
		Messaging:     messagingFromBootstrap(b.Messaging),
		Rewards:       rewardsFromBootstrap(b.Rewards),
	}
}

func serverFromBootstrap(s bootstrapServer) ServerConfig {
	return ServerConfig{
		Network: s.HTTP.Network,
		Address: s.HTTP.Addr,
		Timeout: parseDuration(s.HTTP.Timeout),
		JWT: ServerJWTConfig{
			ExpectedAudience: s.JWT.ExpectedAudience,
			SkipValidate:     s.JWT.SkipValidate,
			Required:         s.JWT.Required,
			HeaderKey:        firstNonEmpty(s.JWT.HeaderKey, "authorization"),
		},
		Handlers: HandlerTimeoutConfig{
			Default: parseDuration(s.Handlers.Default),
			Command: parseDuration(s.Handlers.Command),
			Query:   parseDuration(s.Handlers.Query),
		},
		MetadataKeys: append([]string(nil), s.MetadataKeys...),
	}
}

func databaseFromBootstrap(d bootstrapData) DatabaseConfig {
	pg := d.Postgres
	return DatabaseConfig{
		DSN:               pg.DSN,
		MaxOpenConns:      pg.MaxOpenConns,
		MinOpenConns:      pg.MinOpenConns,
		MaxConnLifetime:   parseDuration(pg.MaxConnLifetime),
		MaxConnIdleTime:   parseDuration(pg.MaxConnIdleTime),
		HealthCheckPeriod: parseDuration(pg.HealthCheckPeriod),
		Schema:            pg.Schema,
		PreparedStmts:     pg.PreparedStmts,
		PoolMetrics:       pg.PoolMetrics,
		Transaction: TransactionConfig{
			DefaultIsolation: pg.Transaction.DefaultIsolation,
			DefaultTimeout:   parseDuration(pg.Transaction.DefaultTimeout),
			LockTimeout:      parseDuration(pg.Transaction.LockTimeout),
			MaxRetries:       pg.Transaction.MaxRetries,
			MetricsEnabled:   pg.Transaction.MetricsEnabled,
		},
	}
}

func clientFromBootstrap(d bootstrapData) ClientConfig {
	c := d.HTTPClient
	return ClientConfig{
		Endpoint: c.Endpoint,
		Timeout:  parseDuration(c.Timeout),
		JWT: ClientJWTConfig{
			Audience:  c.JWT.Audience,
			Disabled:  c.JWT.Disabled,
			HeaderKey: c.JWT.HeaderKey,
		},
	}
}

func observabilityFromBootstrap(o bootstrapObservability) ObservabilityConfig {
	return ObservabilityConfig{
		GlobalAttributes: o.GlobalAttributes,
		Tracing: TracingConfig{
			Enabled:            o.Tracing.Enabled,
			Exporter:           o.Tracing.Exporter,
			Endpoint:           o.Tracing.Endpoint,
			Headers:            o.Tracing.Headers,
			Insecure:           o.Tracing.Insecure,
			SamplingRatio:      o.Tracing.SamplingRatio,
			BatchTimeout:       parseDuration(o.Tracing.BatchTimeout),
			ExportTimeout:      parseDuration(o.Tracing.ExportTimeout),
			MaxQueueSize:       o.Tracing.MaxQueueSize,
			MaxExportBatchSize: o.Tracing.MaxExportBatchSize,
			Required:           o.Tracing.Required,
			Attributes:         o.Tracing.Attributes,
		},
		Metrics: MetricsConfig{
			Enabled:             o.Metrics.Enabled,
			Exporter:            o.Metrics.Exporter,
			Endpoint:            o.Metrics.Endpoint,
			Headers:             o.Metrics.Headers,
			Insecure:            o.Metrics.Insecure,
			Interval:            parseDuration(o.Metrics.Interval),
			DisableRuntimeStats: o.Metrics.DisableRuntimeStats,
			Required:            o.Metrics.Required,
			ResourceAttributes:  o.Metrics.ResourceAttributes,
		},
	}
}

func messagingFromBootstrap(m bootstrapMessaging) MessagingConfig {
	return MessagingConfig{
		Schema:       m.Schema,
		PubSub:       pubsubFromBootstrap(m.PubSub),
		CatalogInbox: pubsubFromBootstrap(m.CatalogInbox),
		Outbox: OutboxPublisherConfig{
			BatchSize:      m.Outbox.BatchSize,
			TickInterval:   parseDuration(m.Outbox.TickInterval),
			InitialBackoff: parseDuration(m.Outbox.InitialBackoff),
			MaxBackoff:     parseDuration(m.Outbox.MaxBackoff),
			MaxAttempts:    m.Outbox.MaxAttempts,
			PublishTimeout: parseDuration(m.Outbox.PublishTimeout),
			Workers:        m.Outbox.Workers,
			LockTTL:        parseDuration(m.Outbox.LockTTL),
			LoggingEnabled: m.Outbox.LoggingEnabled,
			MetricsEnabled: m.Outbox.MetricsEnabled,
		},
		Inbox: InboxConfig{
			SourceService:  m.Inbox.SourceService,
			MaxConcurrency: m.Inbox.MaxConcurrency,
			LoggingEnabled: m.Inbox.LoggingEnabled,
			MetricsEnabled: m.Inbox.MetricsEnabled,
		},
	}
}

func pubsubFromBootstrap(p bootstrapPubSub) PubSubConfig {
	return PubSubConfig{
		ProjectID:           p.ProjectID,
		TopicID:             p.TopicID,
		SubscriptionID:      p.SubscriptionID,
		OrderingKeyEnabled:  p.OrderingKeyEnabled,
		LoggingEnabled:      p.LoggingEnabled,
		MetricsEnabled:      p.MetricsEnabled,
		EmulatorEndpoint:    p.EmulatorEndpoint,
		PublishTimeout:      parseDuration(p.PublishTimeout),
		ExactlyOnceDelivery: p.ExactlyOnceDelivery,
		DeadLetterTopicID:   p.DeadLetterTopicID,
		Receive: PubSubReceiveConfig{
			NumGoroutines:          p.Receive.NumGoroutines,
			MaxOutstandingMessages: p.Receive.MaxOutstandingMessages,
			MaxOutstandingBytes:    p.Receive.MaxOutstandingBytes,
			MaxExtension:           parseDuration(p.Receive.MaxExtension),
			MaxExtensionPeriod:     parseDuration(p.Receive.MaxExtensionPeriod),
		},
	}
}

func rewardsFromBootstrap(r bootstrapRewards) RewardsConfig {
	return RewardsConfig{
		ClaimWindow:      parseDuration(r.ClaimWindow),
		DailyCap:         r.DailyCap,
		PerVideoXPFactor: r.PerVideoXPFactor,
		GuardTTL:         parseDuration(r.GuardTTL),
		Engine: EngineConfig{
			TickInterval:          parseDuration(r.Engine.TickInterval),
			ClaimThresholdSeconds: r.Engine.ClaimThresholdSeconds,
			PerMinuteXPRate:       r.Engine.PerMinuteXPRate,
			PerMinuteCoinRate:     r.Engine.PerMinuteCoinRate,
		},
	}
}

func fillDefaults(rc *RuntimeConfig) {
	if rc == nil {
		return
	}
	if rc.Server.Handlers.Default <= 0 {
		rc.Server.Handlers.Default = defaultHandlerTimeout
	}
	if rc.Server.Handlers.Command <= 0 {
		rc.Server.Handlers.Command = rc.Server.Handlers.Default
	}
	if rc.Server.Handlers.Query <= 0 {
		rc.Server.Handlers.Query = defaultQueryTimeout
	}
	if len(rc.Server.MetadataKeys) == 0 {
		rc.Server.MetadataKeys = []string{defaultMetadataPrefix}
	}
	if rc.Database.Schema == "" {
		rc.Database.Schema = "rewards"
	}
	if rc.Messaging.Schema == "" {
		rc.Messaging.Schema = rc.Database.Schema
	}
	if rc.Rewards.ClaimWindow <= 0 {
		rc.Rewards.ClaimWindow = defaultClaimWindow
	}
	if rc.Rewards.DailyCap <= 0 {
		rc.Rewards.DailyCap = defaultDailyCap
	}
	if rc.Rewards.PerVideoXPFactor <= 0 {
		rc.Rewards.PerVideoXPFactor = defaultXPFactor
	}
	if rc.Rewards.GuardTTL <= 0 {
		rc.Rewards.GuardTTL = defaultGuardTTL
	}
	if rc.Rewards.Engine.TickInterval <= 0 {
		rc.Rewards.Engine.TickInterval = defaultTickInterval
	}
	if rc.Rewards.Engine.ClaimThresholdSeconds <= 0 {
		rc.Rewards.Engine.ClaimThresholdSeconds = defaultThreshold
	}
	if rc.Rewards.Engine.PerMinuteXPRate <= 0 {
		rc.Rewards.Engine.PerMinuteXPRate = defaultXPRate
	}
	if rc.Rewards.Engine.PerMinuteCoinRate <= 0 {
		rc.Rewards.Engine.PerMinuteCoinRate = defaultCoinRate
	}
}

func parseDuration(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0
	}
	return d
}
