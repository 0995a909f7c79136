package core

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultEnvPrefix = "PUTHELP_"

type envBinding struct {
	path    []string
	integer bool
}

var envBindings = map[string]envBinding{
	"SERVICE_NAME":                 {path: []string{"service_name"}},
	"BASE_URL":                     {path: []string{"base_url"}},
	"AUTH_SIGNIN_PATH":             {path: []string{"auth", "signin_path"}},
	"AUTH_SIGNUP_PATH":             {path: []string{"auth", "signup_path"}},
	"AUTH_SIGNOUT_PATH":            {path: []string{"auth", "signout_path"}},
	"AUTH_REFRESH_PATH":            {path: []string{"auth", "refresh_path"}},
	"AUTH_ME_PATH":                 {path: []string{"auth", "me_path"}},
	"AUTH_CHANGE_PASSWORD_PATH":    {path: []string{"auth", "change_password_path"}},
	"STORAGE_ACCESS_TOKEN_KEY":     {path: []string{"storage", "access_token_key"}},
	"STORAGE_REFRESH_TOKEN_KEY":    {path: []string{"storage", "refresh_token_key"}},
	"REFRESH_TIMEOUT":              {path: []string{"refresh", "timeout"}},
	"REFRESH_MAX_ATTEMPTS":         {path: []string{"refresh", "max_attempts"}, integer: true},
	"REFRESH_INITIAL_BACKOFF":      {path: []string{"refresh", "initial_backoff"}},
	"REFRESH_MAX_BACKOFF":          {path: []string{"refresh", "max_backoff"}},
	"REFRESH_LEAD_WINDOW":          {path: []string{"refresh", "lead_window"}},
	"HTTP_TIMEOUT":                 {path: []string{"http", "timeout"}},
	"HTTP_MAX_RESPONSE_BODY_BYTES": {path: []string{"http", "max_response_body_bytes"}, integer: true},
}

// EnvConfigLoader reads PUTHELP_* variables. Files are dotenv files read
// first; the process environment wins over them.
type EnvConfigLoader struct {
	Prefix string
	Files  []string
	lookup func(string) (string, bool)
}

func NewEnvConfigLoader(files ...string) *EnvConfigLoader {
	return &EnvConfigLoader{Prefix: DefaultEnvPrefix, Files: files, lookup: os.LookupEnv}
}

func (l *EnvConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if l == nil {
		return map[string]any{}, nil
	}
	prefix := l.Prefix
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	lookup := l.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	fileValues := map[string]string{}
	if len(l.Files) > 0 {
		values, err := godotenv.Read(l.Files...)
		if err != nil {
			return nil, fmt.Errorf("core: read env files: %w", err)
		}
		fileValues = values
	}

	raw := map[string]any{}
	for suffix, binding := range envBindings {
		name := prefix + suffix
		value, ok := lookup(name)
		if !ok {
			value, ok = fileValues[name]
		}
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		var typed any = strings.TrimSpace(value)
		if binding.integer {
			parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("core: %s must be an integer: %w", name, err)
			}
			typed = int(parsed)
			if binding.path[len(binding.path)-1] == "max_response_body_bytes" {
				typed = parsed
			}
		}
		setPath(raw, binding.path, typed)
	}
	return raw, nil
}

func setPath(raw map[string]any, path []string, value any) {
	current := raw
	for _, key := range path[:len(path)-1] {
		next, ok := current[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[key] = next
		}
		current = next
	}
	current[path[len(path)-1]] = value
}

// YAMLConfigLoader reads configuration from a YAML document whose keys match
// the Config koanf tags.
type YAMLConfigLoader struct {
	Path string
}

func (l YAMLConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	path := strings.TrimSpace(l.Path)
	if path == "" {
		return map[string]any{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("core: read config file: %w", err)
	}
	return ParseYAMLConfig(data)
}

func ParseYAMLConfig(data []byte) (map[string]any, error) {
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("core: parse config yaml: %w", err)
	}
	return raw, nil
}

// LayeredConfigLoader merges loaders in order; later loaders win.
type LayeredConfigLoader []RawConfigLoader

func (l LayeredConfigLoader) LoadRaw(ctx context.Context) (map[string]any, error) {
	merged := map[string]any{}
	for _, loader := range l {
		if loader == nil {
			continue
		}
		raw, err := loader.LoadRaw(ctx)
		if err != nil {
			return nil, err
		}
		mergeRaw(merged, raw)
	}
	return merged, nil
}

func mergeRaw(dst map[string]any, src map[string]any) {
	for key, value := range src {
		srcSection, srcIsMap := value.(map[string]any)
		dstSection, dstIsMap := dst[key].(map[string]any)
		if srcIsMap && dstIsMap {
			mergeRaw(dstSection, srcSection)
			continue
		}
		if srcIsMap {
			copied := map[string]any{}
			mergeRaw(copied, srcSection)
			dst[key] = copied
			continue
		}
		dst[key] = value
	}
}
