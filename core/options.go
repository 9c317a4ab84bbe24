package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type runtimeBuilder struct {
	runtimeConfig   Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	metadataStore   MetadataStore
	dispatcher      *Dispatcher
	transport       TransportAdapter
	now             func() time.Time
}

type Option func(*runtimeBuilder)

func WithLogger(logger Logger) Option {
	return func(b *runtimeBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *runtimeBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *runtimeBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *runtimeBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *runtimeBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *runtimeBuilder) {
		b.optionsResolver = resolver
	}
}

func WithMetadataStore(store MetadataStore) Option {
	return func(b *runtimeBuilder) {
		b.metadataStore = store
	}
}

func WithDispatcher(dispatcher *Dispatcher) Option {
	return func(b *runtimeBuilder) {
		b.dispatcher = dispatcher
	}
}

func WithTransport(adapter TransportAdapter) Option {
	return func(b *runtimeBuilder) {
		b.transport = adapter
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *runtimeBuilder) {
		b.now = now
	}
}

func defaultRuntimeBuilder(runtime Config) runtimeBuilder {
	loggerProvider, logger := glog.Resolve("payments", nil, nil)
	return runtimeBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		errorMapper:     paymentErrorMapper,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// GoOptionsResolver merges defaults, loaded config, and runtime config
// as layered scopes with ascending priority.
type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}
	if includeZero || cfg.MetadataTTL > 0 {
		layer["metadata_ttl"] = cfg.MetadataTTL
	}

	paypal := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.PayPal.ClientID) != "" {
		paypal["client_id"] = cfg.PayPal.ClientID
	}
	if includeZero || strings.TrimSpace(cfg.PayPal.ClientSecret) != "" {
		paypal["client_secret"] = cfg.PayPal.ClientSecret
	}
	if includeZero || strings.TrimSpace(cfg.PayPal.Environment) != "" {
		paypal["environment"] = cfg.PayPal.Environment
	}
	if includeZero || strings.TrimSpace(cfg.PayPal.BrandName) != "" {
		paypal["brand_name"] = cfg.PayPal.BrandName
	}
	if includeZero || strings.TrimSpace(cfg.PayPal.Currency) != "" {
		paypal["currency"] = cfg.PayPal.Currency
	}
	if includeZero || cfg.PayPal.TokenTTL > 0 {
		paypal["token_ttl"] = cfg.PayPal.TokenTTL
	}
	if len(paypal) > 0 {
		layer["paypal"] = paypal
	}

	coinbase := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Coinbase.APIKey) != "" {
		coinbase["api_key"] = cfg.Coinbase.APIKey
	}
	if includeZero || strings.TrimSpace(cfg.Coinbase.WebhookSecret) != "" {
		coinbase["webhook_secret"] = cfg.Coinbase.WebhookSecret
	}
	if includeZero || strings.TrimSpace(cfg.Coinbase.BaseURL) != "" {
		coinbase["base_url"] = cfg.Coinbase.BaseURL
	}
	if includeZero || strings.TrimSpace(cfg.Coinbase.Currency) != "" {
		coinbase["currency"] = cfg.Coinbase.Currency
	}
	if len(coinbase) > 0 {
		layer["coinbase"] = coinbase
	}

	return layer
}
