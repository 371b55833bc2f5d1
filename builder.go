package yggAuth

import (
	"go.uber.org/zap"
)

// Builder assembles an [Engine]. A Builder is single-use: Build may only
// succeed once.
type Builder struct {
	config Config
	client RemoteClient
	logger *zap.Logger

	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The builder keeps its own copy.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRemoteClient sets the Yggdrasil client used for every remote call.
func (b *Builder) WithRemoteClient(client RemoteClient) *Builder {
	b.client = client
	return b
}

// WithLogger sets the structured logger. The engine logs under the
// "yggauth" name; a nil logger disables logging.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the sink that receives audit events when
// Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled overrides Config.Metrics.Enabled.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms overrides Config.Metrics.EnableLatencyHistograms.
// Histograms are only recorded while metrics are enabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}
	if b.client == nil {
		return nil, ErrRemoteClientRequired
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("yggauth")

	engine := &Engine{
		config:  cfg,
		client:  b.client,
		logger:  logger,
		metrics: NewMetrics(cfg.Metrics),
		audit:   newAuditDispatcher(cfg.Audit, b.auditSink, logger.Named("audit")),
	}

	b.built = true
	return engine, nil
}
