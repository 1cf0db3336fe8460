package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Identity names the application for env prefixes and config locations.
type Identity struct {
	BinaryName string
	EnvPrefix  string
	ConfigName string
}

// DefaultIdentity is the r2fm identity.
var DefaultIdentity = Identity{
	BinaryName: "r2fm",
	EnvPrefix:  "R2FM",
	ConfigName: "r2fm",
}

// EnvSpec maps one environment variable to a config path.
type EnvSpec struct {
	Name string
	Path string
}

var envPaths = []struct{ suffix, path string }{
	{"HOST", "server.host"},
	{"PORT", "server.port"},
	{"READ_TIMEOUT", "server.read_timeout"},
	{"WRITE_TIMEOUT", "server.write_timeout"},
	{"IDLE_TIMEOUT", "server.idle_timeout"},
	{"SHUTDOWN_TIMEOUT", "server.shutdown_timeout"},
	{"LOG_LEVEL", "logging.level"},
	{"LOG_PROFILE", "logging.profile"},
	{"METRICS_ENABLED", "metrics.enabled"},
	{"METRICS_PATH", "metrics.path"},
	{"HEALTH_ENABLED", "health.enabled"},
	{"STORE_BACKEND", "store.backend"},
	{"STORE_BUCKET", "store.bucket"},
	{"STORE_ACCOUNT_ID", "store.account_id"},
	{"STORE_ENDPOINT", "store.endpoint"},
	{"STORE_REGION", "store.region"},
	{"STORE_PROFILE", "store.profile"},
	{"STORE_ACCESS_KEY_ID", "store.access_key_id"},
	{"STORE_SECRET_ACCESS_KEY", "store.secret_access_key"},
	{"STORE_FORCE_PATH_STYLE", "store.force_path_style"},
	{"STORE_MAX_KEYS", "store.max_keys"},
	{"STORE_RATE_LIMIT", "store.rate_limit"},
	{"STORE_BASE_DIR", "store.base_dir"},
	{"UPLOAD_MAX_FILE_SIZE", "upload.max_file_size"},
	{"PUBLIC_HOST", "upload.public_host"},
	{"PRESIGN_TTL", "upload.presign_ttl"},
	{"UPLOAD_CONCURRENCY", "upload.concurrency"},
	{"DELETE_CONCURRENCY", "delete.concurrency"},
}

var (
	configMu    sync.RWMutex
	appIdentity *Identity
	appConfig   *Config
	configFile  string
)

// SetConfigFile sets an explicit config file. A missing explicit file is an
// error at Load; the per-user file is optional.
func SetConfigFile(path string) {
	configMu.Lock()
	defer configMu.Unlock()
	configFile = path
}

// Load builds the configuration and stores it for GetConfig.
//
// Precedence, lowest first: defaults, config file, environment, overrides.
// Overrides are nested maps mirroring the config structure.
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	configMu.Lock()
	defer configMu.Unlock()

	if appIdentity == nil {
		id := DefaultIdentity
		appIdentity = &id
	}

	v := viper.New()
	SetDefaults(v)

	if err := mergeConfigFiles(v); err != nil {
		return nil, err
	}

	for _, spec := range envSpecsLocked() {
		if err := v.BindEnv(spec.Path, spec.Name); err != nil {
			return nil, fmt.Errorf("bind %s: %w", spec.Name, err)
		}
	}

	for _, o := range overrides {
		for key, val := range flatten("", o) {
			v.Set(key, val)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	appConfig = &cfg
	return &cfg, nil
}

// GetConfig returns the most recently loaded configuration, or nil.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// GetIdentity returns the application identity, or nil before Load.
func GetIdentity() *Identity {
	configMu.RLock()
	defer configMu.RUnlock()
	return appIdentity
}

func mergeConfigFiles(v *viper.Viper) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.MergeInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", configFile, err)
		}
		return nil
	}

	for _, path := range getUserConfigPathsLocked() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return nil
}

// UserConfigPath returns where the per-user config file is read from,
// whether or not it exists.
func UserConfigPath() (string, error) {
	configMu.RLock()
	id := appIdentity
	configMu.RUnlock()
	if id == nil {
		id = &DefaultIdentity
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, id.ConfigName, "config.yaml"), nil
}

func getUserConfigPaths() []string {
	configMu.RLock()
	defer configMu.RUnlock()
	return getUserConfigPathsLocked()
}

func getUserConfigPathsLocked() []string {
	if appIdentity == nil {
		return []string{}
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return []string{}
	}
	return []string{filepath.Join(dir, appIdentity.ConfigName, "config.yaml")}
}

func getEnvSpecs() []EnvSpec {
	configMu.RLock()
	defer configMu.RUnlock()
	return envSpecsLocked()
}

func envSpecsLocked() []EnvSpec {
	if appIdentity == nil {
		return []EnvSpec{}
	}
	specs := make([]EnvSpec, 0, len(envPaths))
	for _, p := range envPaths {
		specs = append(specs, EnvSpec{Name: appIdentity.EnvPrefix + "_" + p.suffix, Path: p.path})
	}
	return specs
}

// flatten turns nested override maps into dotted viper keys.
func flatten(prefix string, m map[string]any) map[string]any {
	out := map[string]any{}
	for k, val := range m {
		key := strings.ToLower(k)
		if prefix != "" {
			key = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = val
	}
	return out
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		byteSizeHook(),
	)
}

var int64Type = reflect.TypeOf(int64(0))

// byteSizeHook decodes human sizes ("10MiB", "512 kB") into int64 fields.
func byteSizeHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != int64Type {
			return data, nil
		}
		s := strings.TrimSpace(data.(string))
		if s == "" {
			return int64(0), nil
		}
		n, err := humanize.ParseBytes(s)
		if err != nil {
			return nil, fmt.Errorf("invalid size %q: %w", s, err)
		}
		return int64(n), nil
	}
}
