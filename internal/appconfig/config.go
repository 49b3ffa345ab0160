package appconfig

import (
	"os"
	"path/filepath"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion  int           `mapstructure:"config_version" yaml:"config_version" toml:"config_version"`
	Provider       string        `mapstructure:"provider" yaml:"provider" toml:"provider"`
	Model          string        `mapstructure:"model" yaml:"model" toml:"model"`
	Tool           string        `mapstructure:"tool" yaml:"tool" toml:"tool"`
	ToolConfigPath string        `mapstructure:"tool_config_path" yaml:"tool_config_path" toml:"tool_config_path"`
	LogDir         string        `mapstructure:"log_dir" yaml:"log_dir" toml:"log_dir"`
	Capture        CaptureConfig `mapstructure:"capture" yaml:"capture" toml:"capture"`
	LLM            LLMConfig     `mapstructure:"llm" yaml:"llm" toml:"llm"`
	Output         OutputConfig  `mapstructure:"output" yaml:"output" toml:"output"`

	// Warnings collects non-fatal notes produced while loading.
	Warnings []string `mapstructure:"-" yaml:"-" toml:"-"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// CaptureConfig controls how commands are spawned and recorded.
type CaptureConfig struct {
	Method            string   `mapstructure:"method" yaml:"method" toml:"method"`
	Shell             string   `mapstructure:"shell" yaml:"shell" toml:"shell"`
	ShellArgs         []string `mapstructure:"shell_args" yaml:"shell_args" toml:"shell_args"`
	TimeoutSeconds    float64  `mapstructure:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`
	Mirror            bool     `mapstructure:"mirror" yaml:"mirror" toml:"mirror"`
	IncludeInvocation bool     `mapstructure:"include_invocation" yaml:"include_invocation" toml:"include_invocation"`
	PollIntervalMS    int      `mapstructure:"poll_interval_ms" yaml:"poll_interval_ms" toml:"poll_interval_ms"`
	ChunkSize         int      `mapstructure:"chunk_size" yaml:"chunk_size" toml:"chunk_size"`
	ReapGraceMS       int      `mapstructure:"reap_grace_ms" yaml:"reap_grace_ms" toml:"reap_grace_ms"`
}

// LLMConfig configures the summarize/analyze providers.
type LLMConfig struct {
	RequestTimeoutSeconds int            `mapstructure:"request_timeout_seconds" yaml:"request_timeout_seconds" toml:"request_timeout_seconds"`
	OpenAI                ProviderConfig `mapstructure:"openai" yaml:"openai" toml:"openai"`
	Google                ProviderConfig `mapstructure:"google" yaml:"google" toml:"google"`
}

// ProviderConfig locates a provider endpoint and the variable holding its key.
type ProviderConfig struct {
	BaseURL   string `mapstructure:"base_url" yaml:"base_url" toml:"base_url"`
	APIKeyEnv string `mapstructure:"api_key_env" yaml:"api_key_env" toml:"api_key_env"`
}

// OutputConfig controls terminal rendering.
type OutputConfig struct {
	Color string `mapstructure:"color" yaml:"color" toml:"color"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Capture: CaptureConfig{
			Method:         "auto",
			Shell:          "bash",
			ShellArgs:      []string{"-lc"},
			TimeoutSeconds: 0,
			Mirror:         true,
			PollIntervalMS: 100,
			ChunkSize:      4096,
			ReapGraceMS:    1000,
		},
		LLM: LLMConfig{
			RequestTimeoutSeconds: 120,
			OpenAI: ProviderConfig{
				BaseURL:   "https://api.openai.com/v1",
				APIKeyEnv: "OPENAI_API_KEY",
			},
			Google: ProviderConfig{
				BaseURL:   "https://generativelanguage.googleapis.com/v1beta",
				APIKeyEnv: "GOOGLE_API_KEY",
			},
		},
		Output: OutputConfig{
			Color: "auto",
		},
	}
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".loopster", "config.yaml"), nil
}
