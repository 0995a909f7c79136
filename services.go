package puthelp

import "github.com/goliatone/go-puthelp/core"

type Config = core.Config

type Option = core.Option

type Service = core.Service

type Credential = core.Credential
type TokenState = core.TokenState
type SessionStore = core.SessionStore
type KeyValueStorage = core.KeyValueStorage
type Refresher = core.Refresher
type RefreshBackoffScheduler = core.RefreshBackoffScheduler
type JobEnqueuer = core.JobEnqueuer
type JobDequeuer = core.JobDequeuer
type SessionRefreshJob = core.SessionRefreshJob

type GuardDecision = core.GuardDecision

const (
	GuardAllow         = core.GuardAllow
	GuardRedirectLogin = core.GuardRedirectLogin
	GuardRedirectHome  = core.GuardRedirectHome
)

var (
	WithLogger                  = core.WithLogger
	WithLoggerProvider          = core.WithLoggerProvider
	WithMetricsRecorder         = core.WithMetricsRecorder
	WithErrorMapper             = core.WithErrorMapper
	WithConfigProvider          = core.WithConfigProvider
	WithOptionsResolver         = core.WithOptionsResolver
	WithStorage                 = core.WithStorage
	WithRefresher               = core.WithRefresher
	WithRefreshBackoffScheduler = core.WithRefreshBackoffScheduler
	WithJobEnqueuer             = core.WithJobEnqueuer
	WithJobDequeuer             = core.WithJobDequeuer
	WithClock                   = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

// Setup builds a service whose configuration is read from PUTHELP_*
// environment variables. A WithConfigProvider in opts replaces the
// environment loader.
func Setup(cfg Config, opts ...Option) (*Service, error) {
	loader := core.NewCfgxConfigProvider(core.NewEnvConfigLoader())
	return core.NewService(cfg, append([]Option{core.WithConfigProvider(loader)}, opts...)...)
}
