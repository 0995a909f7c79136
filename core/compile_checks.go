package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ CredentialStore         = (*SessionStore)(nil)
	_ ProfileStore            = (*SessionStore)(nil)
	_ SessionView             = (*SessionStore)(nil)
	_ TokenStateReader        = (*SessionStore)(nil)
	_ KeyValueStorage         = (*MemoryStorage)(nil)
	_ MetricsRecorder         = NopMetricsRecorder{}
	_ MetricsRecorder         = (*MemoryMetricsRecorder)(nil)
	_ Refresher               = RefresherFunc(nil)
	_ RefreshBackoffScheduler = ExponentialBackoffScheduler{}
	_ RefreshBackoffScheduler = NoBackoff{}
	_ RawConfigLoader         = StaticConfigLoader{}
	_ RawConfigLoader         = (*EnvConfigLoader)(nil)
	_ RawConfigLoader         = YAMLConfigLoader{}
	_ RawConfigLoader         = LayeredConfigLoader(nil)

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
