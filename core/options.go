package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type serviceBuilder struct {
	runtimeConfig    Config
	logger           Logger
	loggerProvider   LoggerProvider
	metricsRecorder  MetricsRecorder
	errorMapper      ErrorMapper
	configProvider   ConfigProvider
	optionsResolver  OptionsResolver
	storage          KeyValueStorage
	refresher        Refresher
	refreshScheduler RefreshBackoffScheduler
	jobEnqueuer      JobEnqueuer
	jobDequeuer      JobDequeuer
	clock            func() time.Time
}

type Option func(*serviceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *serviceBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *serviceBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *serviceBuilder) {
		b.optionsResolver = resolver
	}
}

// WithStorage sets where the credential pair is persisted. Defaults to
// process memory.
func WithStorage(storage KeyValueStorage) Option {
	return func(b *serviceBuilder) {
		b.storage = storage
	}
}

func WithRefresher(refresher Refresher) Option {
	return func(b *serviceBuilder) {
		b.refresher = refresher
	}
}

func WithRefreshBackoffScheduler(scheduler RefreshBackoffScheduler) Option {
	return func(b *serviceBuilder) {
		b.refreshScheduler = scheduler
	}
}

func WithJobEnqueuer(enqueuer JobEnqueuer) Option {
	return func(b *serviceBuilder) {
		b.jobEnqueuer = enqueuer
	}
}

func WithJobDequeuer(dequeuer JobDequeuer) Option {
	return func(b *serviceBuilder) {
		b.jobDequeuer = dequeuer
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *serviceBuilder) {
		b.clock = now
	}
}

func defaultServiceBuilder(runtime Config) serviceBuilder {
	loggerProvider, logger := glog.Resolve("puthelp", nil, nil)
	return serviceBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		errorMapper:     defaultErrorMapper,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
		clock:           time.Now,
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return errorMapper(err)
}

type StaticConfigLoader struct {
	Values map[string]any
}

func (l StaticConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
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
		loader = StaticConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	if err := normalizeDurations(raw); err != nil {
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

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
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
	setString(layer, "service_name", cfg.ServiceName, includeZero)
	setString(layer, "base_url", cfg.BaseURL, includeZero)

	auth := map[string]any{}
	setString(auth, "signin_path", cfg.Auth.SignInPath, includeZero)
	setString(auth, "signup_path", cfg.Auth.SignUpPath, includeZero)
	setString(auth, "signout_path", cfg.Auth.SignOutPath, includeZero)
	setString(auth, "refresh_path", cfg.Auth.RefreshPath, includeZero)
	setString(auth, "me_path", cfg.Auth.MePath, includeZero)
	setString(auth, "change_password_path", cfg.Auth.ChangePasswordPath, includeZero)
	setSection(layer, "auth", auth)

	storage := map[string]any{}
	setString(storage, "access_token_key", cfg.Storage.AccessTokenKey, includeZero)
	setString(storage, "refresh_token_key", cfg.Storage.RefreshTokenKey, includeZero)
	setSection(layer, "storage", storage)

	refresh := map[string]any{}
	setDuration(refresh, "timeout", cfg.Refresh.Timeout, includeZero)
	if includeZero || cfg.Refresh.MaxAttempts != 0 {
		refresh["max_attempts"] = cfg.Refresh.MaxAttempts
	}
	setDuration(refresh, "initial_backoff", cfg.Refresh.InitialBackoff, includeZero)
	setDuration(refresh, "max_backoff", cfg.Refresh.MaxBackoff, includeZero)
	setDuration(refresh, "lead_window", cfg.Refresh.LeadWindow, includeZero)
	setSection(layer, "refresh", refresh)

	httpSection := map[string]any{}
	setDuration(httpSection, "timeout", cfg.HTTP.Timeout, includeZero)
	if includeZero || cfg.HTTP.MaxResponseBodyBytes != 0 {
		httpSection["max_response_body_bytes"] = cfg.HTTP.MaxResponseBodyBytes
	}
	setSection(layer, "http", httpSection)
	return layer
}

func setString(layer map[string]any, key string, value string, includeZero bool) {
	if includeZero || strings.TrimSpace(value) != "" {
		layer[key] = value
	}
}

func setDuration(layer map[string]any, key string, value time.Duration, includeZero bool) {
	if includeZero || value != 0 {
		layer[key] = value
	}
}

func setSection(layer map[string]any, key string, section map[string]any) {
	if len(section) > 0 {
		layer[key] = section
	}
}

var durationKeys = map[string][]string{
	"refresh": {"timeout", "initial_backoff", "max_backoff", "lead_window"},
	"http":    {"timeout"},
}

// normalizeDurations converts duration strings such as "5s" in raw loader
// output into time.Duration values.
func normalizeDurations(raw map[string]any) error {
	for section, keys := range durationKeys {
		values, ok := raw[section].(map[string]any)
		if !ok {
			continue
		}
		for _, key := range keys {
			text, ok := values[key].(string)
			if !ok {
				continue
			}
			parsed, err := time.ParseDuration(strings.TrimSpace(text))
			if err != nil {
				return fmt.Errorf("core: %s.%s is invalid: %w", section, key, err)
			}
			values[key] = parsed
		}
	}
	return nil
}
