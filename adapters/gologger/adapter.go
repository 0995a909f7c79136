// Package gologger bridges glog loggers to the go-job worker logging contract.
package gologger

import (
	"strings"

	job "github.com/goliatone/go-job"
	glog "github.com/goliatone/go-logger/glog"
)

const DefaultName = "puthelp"

// Resolve uses deterministic precedence provider > logger > nop. An empty
// name resolves to DefaultName.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	return glog.Resolve(componentName(name), provider, logger)
}

// Component resolves the logger for a named client component, such as
// "transport" or "jobs", under DefaultName.
func Component(provider glog.LoggerProvider, component string) glog.Logger {
	name := DefaultName
	if component = strings.Trim(strings.TrimSpace(component), "."); component != "" {
		name += "." + component
	}
	_, logger := glog.Resolve(name, provider, nil)
	return logger
}

// ToJobProvider maps a glog provider to the go-job logger provider contract.
func ToJobProvider(provider glog.LoggerProvider) job.LoggerProvider {
	if provider == nil {
		return nil
	}
	return job.GoLoggerProvider(provider)
}

// ToJobLogger maps a glog logger to the go-job logger contract.
func ToJobLogger(logger glog.Logger) job.Logger {
	if logger == nil {
		return nil
	}
	return job.GoLogger(logger)
}

// ResolveForJob resolves glog logger/provider then returns equivalent go-job adapters.
func ResolveForJob(
	name string,
	provider glog.LoggerProvider,
	logger glog.Logger,
) (glog.LoggerProvider, glog.Logger, job.LoggerProvider, job.Logger) {
	resolvedProvider, resolvedLogger := Resolve(name, provider, logger)
	return resolvedProvider, resolvedLogger, ToJobProvider(resolvedProvider), ToJobLogger(resolvedLogger)
}

func componentName(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return DefaultName
}
