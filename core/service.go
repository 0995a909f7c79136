package core

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Service owns the client session: configuration, the credential store, the
// refresh coordinator and the access guard.
type Service struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	observer        *Observer
	storage         KeyValueStorage
	session         *SessionStore
	coordinator     *RefreshCoordinator
	guard           *AccessGuard
	scheduler       *RefreshScheduler
	jobRunner       *RefreshJobRunner
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("puthelp", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("puthelp"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.storage == nil {
		builder.storage = NewMemoryStorage()
	}
	if builder.clock == nil {
		builder.clock = time.Now
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.refreshScheduler == nil {
		builder.refreshScheduler = ExponentialBackoffScheduler{
			Initial: finalConfig.Refresh.InitialBackoff,
			Max:     finalConfig.Refresh.MaxBackoff,
		}
	}

	observer := NewObserver(logger, builder.metricsRecorder)
	session := NewSessionStore(builder.storage,
		WithStorageKeys(finalConfig.Storage.AccessTokenKey, finalConfig.Storage.RefreshTokenKey),
		WithSessionClock(builder.clock),
	)
	coordinator := NewRefreshCoordinator(session, builder.refresher,
		WithRefreshTimeout(finalConfig.Refresh.Timeout),
		WithRefreshMaxAttempts(finalConfig.Refresh.MaxAttempts),
		WithRefreshBackoff(builder.refreshScheduler),
		WithRefreshObserver(observer),
	)

	svc := &Service{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorMapper:     builder.errorMapper,
		configProvider:  builder.configProvider,
		optionsResolver: builder.optionsResolver,
		observer:        observer,
		storage:         builder.storage,
		session:         session,
		coordinator:     coordinator,
		guard:           NewAccessGuard(session),
	}
	if builder.jobEnqueuer != nil {
		svc.scheduler = NewRefreshScheduler(session, builder.jobEnqueuer, finalConfig.Refresh.LeadWindow, observer)
	}
	if builder.jobDequeuer != nil {
		svc.jobRunner = NewRefreshJobRunner(builder.jobDequeuer, coordinator, session, finalConfig.Refresh.LeadWindow, observer)
	}
	return svc, nil
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Logger() Logger {
	if s == nil {
		return glog.Nop()
	}
	return s.logger
}

func (s *Service) LoggerProvider() LoggerProvider {
	if s == nil {
		return nil
	}
	return s.loggerProvider
}

func (s *Service) MetricsRecorder() MetricsRecorder {
	if s == nil {
		return NopMetricsRecorder{}
	}
	return s.metricsRecorder
}

func (s *Service) Observer() *Observer {
	if s == nil {
		return NewObserver(nil, nil)
	}
	return s.observer
}

func (s *Service) Session() *SessionStore {
	if s == nil {
		return nil
	}
	return s.session
}

func (s *Service) Storage() KeyValueStorage {
	if s == nil {
		return nil
	}
	return s.storage
}

func (s *Service) Coordinator() *RefreshCoordinator {
	if s == nil {
		return nil
	}
	return s.coordinator
}

func (s *Service) Guard() *AccessGuard {
	if s == nil {
		return nil
	}
	return s.guard
}

// BindRefresher sets the refresher used by later refreshes. Clients built on
// top of the session call this once their transport exists.
func (s *Service) BindRefresher(refresher Refresher) {
	if s == nil || s.coordinator == nil {
		return
	}
	s.coordinator.SetRefresher(refresher)
}

// HasRefresher reports whether refreshes have somewhere to go.
func (s *Service) HasRefresher() bool {
	if s == nil || s.coordinator == nil {
		return false
	}
	return s.coordinator.currentRefresher() != nil
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

// MapError exposes the configured error mapper.
func (s *Service) MapError(err error) error {
	return s.mapError(err)
}

// RefreshSession forces a refresh through the coordinator.
func (s *Service) RefreshSession(ctx context.Context) (Credential, error) {
	if s == nil {
		return Credential{}, fmt.Errorf("core: service is nil")
	}
	return s.coordinator.Refresh(ctx)
}

// ScheduleRefresh enqueues a refresh job when the session is close to
// expiry.
func (s *Service) ScheduleRefresh(ctx context.Context) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("core: service is nil")
	}
	if s.scheduler == nil {
		return false, s.mapError(goerrors.New("core: job enqueuer is not configured", goerrors.CategoryInternal))
	}
	enqueued, err := s.scheduler.Check(ctx)
	return enqueued, s.mapError(err)
}

// ProcessRefreshJob handles one queued refresh job.
func (s *Service) ProcessRefreshJob(ctx context.Context) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("core: service is nil")
	}
	if s.jobRunner == nil {
		return false, s.mapError(goerrors.New("core: job dequeuer is not configured", goerrors.CategoryInternal))
	}
	processed, err := s.jobRunner.RunOnce(ctx)
	return processed, s.mapError(err)
}
