// Package zaplogger backs the glog logging contracts with go.uber.org/zap.
package zaplogger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Level string `koanf:"level" mapstructure:"level"`
	// Dev switches to the console encoder with development defaults.
	Dev bool `koanf:"dev" mapstructure:"dev"`
	// File enables rotated file output in addition to stdout.
	File FileConfig `koanf:"file" mapstructure:"file"`
}

type FileConfig struct {
	Path         string        `koanf:"path" mapstructure:"path"`
	MaxAge       time.Duration `koanf:"max_age" mapstructure:"max_age"`
	RotationTime time.Duration `koanf:"rotation_time" mapstructure:"rotation_time"`
}

// ConfigFromEnv reads PUTHELP_LOG_LEVEL, PUTHELP_LOG_DEV and PUTHELP_LOG_FILE.
func ConfigFromEnv() Config {
	dev := os.Getenv("PUTHELP_LOG_DEV") == "1"
	lvl := os.Getenv("PUTHELP_LOG_LEVEL")
	if lvl == "" {
		if dev {
			lvl = "debug"
		} else {
			lvl = "info"
		}
	}
	return Config{Level: lvl, Dev: dev, File: FileConfig{Path: os.Getenv("PUTHELP_LOG_FILE")}}
}

func levelFromString(l string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "trace", "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger adapts a *zap.SugaredLogger to glog.Logger and glog.FieldsLogger.
type Logger struct {
	sugar *zap.SugaredLogger
}

// New builds the zap core described by cfg. The returned closer releases the
// rotated log file when one is configured.
func New(cfg Config) (*Logger, io.Closer, error) {
	lvl := levelFromString(cfg.Level)

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var encoder zapcore.Encoder
	if cfg.Dev {
		devCfg := zap.NewDevelopmentEncoderConfig()
		encoder = zapcore.NewConsoleEncoder(devCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	cores := []zapcore.Core{zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), lvl)}
	var closer io.Closer = nopCloser{}
	if path := strings.TrimSpace(cfg.File.Path); path != "" {
		writer, err := newRotatingWriter(cfg.File)
		if err != nil {
			return nil, nil, err
		}
		closer = writer
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(writer), lvl))
	}

	opts := []zap.Option{zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.Dev {
		opts = append(opts, zap.Development())
	}
	return Wrap(zap.New(zapcore.NewTee(cores...), opts...)), closer, nil
}

func newRotatingWriter(cfg FileConfig) (*rotatelogs.RotateLogs, error) {
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 7 * 24 * time.Hour
	}
	rotation := cfg.RotationTime
	if rotation <= 0 {
		rotation = 24 * time.Hour
	}
	path := strings.TrimSpace(cfg.Path)
	writer, err := rotatelogs.New(
		path+".%Y%m%d",
		rotatelogs.WithLinkName(path),
		rotatelogs.WithMaxAge(maxAge),
		rotatelogs.WithRotationTime(rotation),
	)
	if err != nil {
		return nil, fmt.Errorf("zaplogger: open rotating log %s: %w", path, err)
	}
	return writer, nil
}

// Wrap adapts an existing zap logger. A nil logger becomes zap.NewNop.
func Wrap(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{sugar: logger.Sugar()}
}

func (l *Logger) Zap() *zap.Logger {
	return l.sugar.Desugar()
}

func (l *Logger) Trace(msg string, args ...any) { l.sugar.Debugw(msg, args...) }
func (l *Logger) Debug(msg string, args ...any) { l.sugar.Debugw(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.sugar.Infow(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.sugar.Warnw(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.sugar.Errorw(msg, args...) }
func (l *Logger) Fatal(msg string, args ...any) { l.sugar.Fatalw(msg, args...) }

func (l *Logger) WithContext(context.Context) glog.Logger {
	return l
}

func (l *Logger) WithFields(fields map[string]any) glog.Logger {
	if len(fields) == 0 {
		return l
	}
	args := make([]any, 0, len(fields)*2)
	for key, value := range fields {
		args = append(args, key, value)
	}
	return &Logger{sugar: l.sugar.With(args...)}
}

func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

// Provider hands out loggers named after the requesting component.
type Provider struct {
	root *Logger
}

func NewProvider(root *Logger) *Provider {
	if root == nil {
		root = Wrap(nil)
	}
	return &Provider{root: root}
}

func (p *Provider) GetLogger(name string) glog.Logger {
	name = strings.TrimSpace(name)
	if name == "" {
		return p.root
	}
	return &Logger{sugar: p.root.sugar.Named(name)}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

var (
	_ glog.Logger         = (*Logger)(nil)
	_ glog.FieldsLogger   = (*Logger)(nil)
	_ glog.LoggerProvider = (*Provider)(nil)
)
