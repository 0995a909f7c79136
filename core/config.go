package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL              = "http://localhost:8080/api"
	DefaultAccessTokenKey       = "access_token"
	DefaultRefreshTokenKey      = "refresh_token"
	DefaultRefreshMaxAttempts   = 1
	DefaultHTTPTimeout          = 30 * time.Second
	DefaultMaxResponseBodyBytes = int64(10 << 20)
)

type AuthConfig struct {
	SignInPath         string `koanf:"signin_path" mapstructure:"signin_path"`
	SignUpPath         string `koanf:"signup_path" mapstructure:"signup_path"`
	SignOutPath        string `koanf:"signout_path" mapstructure:"signout_path"`
	RefreshPath        string `koanf:"refresh_path" mapstructure:"refresh_path"`
	MePath             string `koanf:"me_path" mapstructure:"me_path"`
	ChangePasswordPath string `koanf:"change_password_path" mapstructure:"change_password_path"`
}

type StorageConfig struct {
	AccessTokenKey  string `koanf:"access_token_key" mapstructure:"access_token_key"`
	RefreshTokenKey string `koanf:"refresh_token_key" mapstructure:"refresh_token_key"`
}

// RefreshConfig bounds the single-flight refresh. A zero Timeout leaves the
// deadline to the HTTP client.
type RefreshConfig struct {
	Timeout        time.Duration `koanf:"timeout" mapstructure:"timeout"`
	MaxAttempts    int           `koanf:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff time.Duration `koanf:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `koanf:"max_backoff" mapstructure:"max_backoff"`
	LeadWindow     time.Duration `koanf:"lead_window" mapstructure:"lead_window"`
}

type HTTPConfig struct {
	Timeout              time.Duration `koanf:"timeout" mapstructure:"timeout"`
	MaxResponseBodyBytes int64         `koanf:"max_response_body_bytes" mapstructure:"max_response_body_bytes"`
}

type Config struct {
	ServiceName string        `koanf:"service_name" mapstructure:"service_name"`
	BaseURL     string        `koanf:"base_url" mapstructure:"base_url"`
	Auth        AuthConfig    `koanf:"auth" mapstructure:"auth"`
	Storage     StorageConfig `koanf:"storage" mapstructure:"storage"`
	Refresh     RefreshConfig `koanf:"refresh" mapstructure:"refresh"`
	HTTP        HTTPConfig    `koanf:"http" mapstructure:"http"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "puthelp",
		BaseURL:     DefaultBaseURL,
		Auth: AuthConfig{
			SignInPath:         "/auth/signin",
			SignUpPath:         "/auth/signup",
			SignOutPath:        "/auth/signout",
			RefreshPath:        "/auth/refresh",
			MePath:             "/auth/me",
			ChangePasswordPath: "/auth/change-password",
		},
		Storage: StorageConfig{
			AccessTokenKey:  DefaultAccessTokenKey,
			RefreshTokenKey: DefaultRefreshTokenKey,
		},
		Refresh: RefreshConfig{
			MaxAttempts:    DefaultRefreshMaxAttempts,
			InitialBackoff: defaultRefreshInitialBackoff,
			MaxBackoff:     defaultRefreshMaxBackoff,
			LeadWindow:     DefaultRefreshLeadWindow,
		},
		HTTP: HTTPConfig{
			Timeout:              DefaultHTTPTimeout,
			MaxResponseBodyBytes: DefaultMaxResponseBodyBytes,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("core: base_url is required")
	}
	parsed, err := url.Parse(strings.TrimSpace(c.BaseURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("core: base_url %q is invalid", c.BaseURL)
	}
	if strings.TrimSpace(c.Auth.RefreshPath) == "" {
		return fmt.Errorf("core: auth.refresh_path is required")
	}
	if strings.TrimSpace(c.Storage.AccessTokenKey) == "" || strings.TrimSpace(c.Storage.RefreshTokenKey) == "" {
		return fmt.Errorf("core: storage token keys are required")
	}
	if c.Storage.AccessTokenKey == c.Storage.RefreshTokenKey {
		return fmt.Errorf("core: storage token keys must differ")
	}
	if c.Refresh.MaxAttempts < 1 {
		return fmt.Errorf("core: refresh.max_attempts must be at least 1")
	}
	if c.Refresh.Timeout < 0 {
		return fmt.Errorf("core: refresh.timeout must not be negative")
	}
	if c.HTTP.MaxResponseBodyBytes < 0 {
		return fmt.Errorf("core: http.max_response_body_bytes must not be negative")
	}
	return nil
}

// Endpoint joins the configured base URL with an API path.
func (c Config) Endpoint(path string) string {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	path = strings.TrimSpace(path)
	if path == "" {
		return base
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}
