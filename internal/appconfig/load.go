package appconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. LOOPSTER_CAPTURE_TIMEOUT_SECONDS.
const EnvPrefix = "LOOPSTER"

// ErrUnsupportedVersion reports a config file written for another schema.
var ErrUnsupportedVersion = errors.New("unsupported config_version")

// KnownProviders lists the accepted values of the provider key.
var KnownProviders = []string{"openai", "chatgpt", "gpt", "google", "gemini", "fake"}

// Load reads configuration from path, layering defaults, the file, LOOPSTER_*
// environment variables and finally key=value overrides. An empty path uses
// DefaultConfigPath and tolerates a missing file.
func Load(path string, overrides ...string) (Config, error) {
	explicit := path != ""
	if !explicit {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg := DefaultConfig()
	v := newViper(cfg)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigFile(path)
	v.SetConfigType(configType(path))

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
		if !missing || explicit {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.InConfig("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if got := v.GetInt("config_version"); got != CurrentConfigVersion {
			return Config{}, fmt.Errorf("%w %d; expected %d", ErrUnsupportedVersion, got, CurrentConfigVersion)
		}
	}

	if err := applyOverrides(v, overrides); err != nil {
		return Config{}, err
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	normalizeMethod(&cfg)
	expandConfigEnv(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyOverrides returns cfg with key=value assignments applied. Keys use the
// dotted file layout, e.g. capture.timeout_seconds=30.
func ApplyOverrides(cfg Config, overrides []string) (Config, error) {
	v := newViper(cfg)
	if err := applyOverrides(v, overrides); err != nil {
		return Config{}, err
	}
	out := Config{}
	if err := v.Unmarshal(&out); err != nil {
		return Config{}, err
	}
	normalizeMethod(&out)
	if err := Validate(out); err != nil {
		return Config{}, err
	}
	return out, nil
}

func newViper(cfg Config) *viper.Viper {
	v := viper.New()
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("provider", cfg.Provider)
	v.SetDefault("model", cfg.Model)
	v.SetDefault("tool", cfg.Tool)
	v.SetDefault("tool_config_path", cfg.ToolConfigPath)
	v.SetDefault("log_dir", cfg.LogDir)
	v.SetDefault("capture.method", cfg.Capture.Method)
	v.SetDefault("capture.shell", cfg.Capture.Shell)
	v.SetDefault("capture.shell_args", cfg.Capture.ShellArgs)
	v.SetDefault("capture.timeout_seconds", cfg.Capture.TimeoutSeconds)
	v.SetDefault("capture.mirror", cfg.Capture.Mirror)
	v.SetDefault("capture.include_invocation", cfg.Capture.IncludeInvocation)
	v.SetDefault("capture.poll_interval_ms", cfg.Capture.PollIntervalMS)
	v.SetDefault("capture.chunk_size", cfg.Capture.ChunkSize)
	v.SetDefault("capture.reap_grace_ms", cfg.Capture.ReapGraceMS)
	v.SetDefault("llm.request_timeout_seconds", cfg.LLM.RequestTimeoutSeconds)
	v.SetDefault("llm.openai.base_url", cfg.LLM.OpenAI.BaseURL)
	v.SetDefault("llm.openai.api_key_env", cfg.LLM.OpenAI.APIKeyEnv)
	v.SetDefault("llm.google.base_url", cfg.LLM.Google.BaseURL)
	v.SetDefault("llm.google.api_key_env", cfg.LLM.Google.APIKeyEnv)
	v.SetDefault("output.color", cfg.Output.Color)
	return v
}

func applyOverrides(v *viper.Viper, overrides []string) error {
	known := map[string]bool{}
	for _, key := range v.AllKeys() {
		known[key] = true
	}
	for _, entry := range overrides {
		key, value, ok := strings.Cut(entry, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		if !ok || key == "" {
			return fmt.Errorf("invalid override %q; expected key=value", entry)
		}
		if !known[key] {
			return fmt.Errorf("unknown config key %q", key)
		}
		if key == "capture.shell_args" {
			v.Set(key, strings.Fields(value))
			continue
		}
		v.Set(key, strings.TrimSpace(value))
	}
	return nil
}

// Keys lists every configuration key in dotted form.
func Keys() []string {
	keys := newViper(DefaultConfig()).AllKeys()
	sort.Strings(keys)
	return keys
}

// legacyMethods are capture backends older configs may name. They all run on
// the pipe backend.
var legacyMethods = map[string]bool{"pty": true, "script": true}

func normalizeMethod(cfg *Config) {
	method := strings.ToLower(strings.TrimSpace(cfg.Capture.Method))
	if !legacyMethods[method] {
		return
	}
	cfg.Capture.Method = "pipe"
	cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("capture.method %q is not supported; using pipe", method))
}

// Validate checks enumerated values and numeric ranges.
func Validate(cfg Config) error {
	switch cfg.Capture.Method {
	case "auto", "pipe":
	default:
		return fmt.Errorf("capture.method must be auto or pipe, got %q", cfg.Capture.Method)
	}
	switch cfg.Output.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("output.color must be auto, always or never, got %q", cfg.Output.Color)
	}
	if provider := strings.ToLower(strings.TrimSpace(cfg.Provider)); provider != "" {
		found := false
		for _, known := range KnownProviders {
			if provider == known {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unsupported provider %q", cfg.Provider)
		}
	}
	if strings.TrimSpace(cfg.Capture.Shell) == "" {
		return fmt.Errorf("capture.shell is required")
	}
	if cfg.Capture.TimeoutSeconds < 0 {
		return fmt.Errorf("capture.timeout_seconds must not be negative")
	}
	if cfg.Capture.PollIntervalMS < 0 || cfg.Capture.ChunkSize < 0 || cfg.Capture.ReapGraceMS < 0 {
		return fmt.Errorf("capture poll_interval_ms, chunk_size and reap_grace_ms must not be negative")
	}
	if cfg.LLM.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("llm.request_timeout_seconds must not be negative")
	}
	return nil
}

func configType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return "toml"
	default:
		return "yaml"
	}
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.ToolConfigPath = expandEnv(cfg.ToolConfigPath)
	cfg.LogDir = expandEnv(cfg.LogDir)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	if value == "~" || strings.HasPrefix(value, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			value = home + value[1:]
		}
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// Marshal renders cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// Save writes cfg to path as TOML when the extension is .toml, else YAML.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("config path is required")
	}
	var data []byte
	if configType(path) == "toml" {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return err
		}
		data = buf.Bytes()
	} else {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		data = out
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}
	if err := Save(path, DefaultConfig()); err != nil {
		return "", err
	}
	return path, nil
}
