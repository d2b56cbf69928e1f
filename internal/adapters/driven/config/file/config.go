// Package file loads the application configuration from a TOML file.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Index driver names.
const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
)

// Source kinds.
const (
	SourceFilesystem  = "filesystem"
	SourceGoogleDrive = "google-drive"
)

// Config is the full application configuration.
type Config struct {
	Index      IndexConfig  `toml:"index"`
	Source     SourceConfig `toml:"source"`
	Embedding  ModelConfig  `toml:"embedding"`
	Generation ModelConfig  `toml:"generation"`
	Agent      AgentConfig  `toml:"agent"`
}

// IndexConfig configures index persistence.
type IndexConfig struct {
	// Driver selects the store backend: "json" or "sqlite".
	Driver string `toml:"driver"`
	// Path is the index file location. Empty means the default under
	// ~/.presale/data/.
	Path string `toml:"path"`
}

// SourceConfig configures the document source.
type SourceConfig struct {
	// Kind selects the source: "filesystem" or "google-drive".
	Kind string `toml:"kind"`
	// Root is the directory for the filesystem source.
	Root string `toml:"root"`
	// FolderID is the folder for the google-drive source.
	FolderID string `toml:"folder_id"`
	// AccessToken authenticates the google-drive source.
	AccessToken string `toml:"access_token"`
	// PageSize is the Drive listing page size.
	PageSize int64 `toml:"page_size"`
}

// ModelConfig configures one model backend.
type ModelConfig struct {
	// Provider selects the backend: "gemini" or "ollama".
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
	// TimeoutSeconds is the per-request timeout.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration, or 0 when
// unset so adapters apply their own default.
func (m ModelConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// Default sampling parameters.
const (
	defaultTemperature = 0.7
	defaultTopP        = 0.8
)

// AgentConfig configures answer behaviour.
type AgentConfig struct {
	// TopK is the number of documents retrieved per answer.
	TopK int `toml:"top_k"`
	// Temperature and TopP are pointers so an explicit 0 in the file
	// (deterministic generation) is distinguishable from an absent key.
	Temperature     *float64 `toml:"temperature"`
	TopP            *float64 `toml:"top_p"`
	TopKSampling    int      `toml:"top_k_sampling"`
	MaxOutputTokens int      `toml:"max_output_tokens"`
}

// SamplingTemperature returns the configured temperature, falling back
// to the default only when the key is absent.
func (a AgentConfig) SamplingTemperature() float64 {
	if a.Temperature != nil {
		return *a.Temperature
	}
	return defaultTemperature
}

// SamplingTopP returns the configured nucleus cutoff, falling back to
// the default only when the key is absent.
func (a AgentConfig) SamplingTopP() float64 {
	if a.TopP != nil {
		return *a.TopP
	}
	return defaultTopP
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Index: IndexConfig{
			Driver: DriverJSON,
		},
		Source: SourceConfig{
			Kind: SourceFilesystem,
			Root: ".",
		},
		Embedding: ModelConfig{
			Provider: "gemini",
		},
		Generation: ModelConfig{
			Provider: "gemini",
		},
		Agent: AgentConfig{
			TopK:            3,
			Temperature:     floatPtr(defaultTemperature),
			TopP:            floatPtr(defaultTopP),
			TopKSampling:    40,
			MaxOutputTokens: 1024,
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".presale", "config.toml"), nil
}

// Load reads the configuration file, filling unset fields with
// defaults. A missing file yields the defaults; API keys may also come
// from the environment (GEMINI_API_KEY).
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return cfg, err
		}
		path = defaultPath
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		applyEnv(&cfg)
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	applyDefaults(&cfg)
	applyEnv(&cfg)
	return cfg, nil
}

// applyDefaults fills fields the file left empty.
func applyDefaults(cfg *Config) {
	defaults := Default()
	if cfg.Index.Driver == "" {
		cfg.Index.Driver = defaults.Index.Driver
	}
	if cfg.Source.Kind == "" {
		cfg.Source.Kind = defaults.Source.Kind
	}
	if cfg.Source.Root == "" {
		cfg.Source.Root = defaults.Source.Root
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = defaults.Embedding.Provider
	}
	if cfg.Generation.Provider == "" {
		cfg.Generation.Provider = defaults.Generation.Provider
	}
	if cfg.Agent.TopK == 0 {
		cfg.Agent.TopK = defaults.Agent.TopK
	}
	if cfg.Agent.Temperature == nil {
		cfg.Agent.Temperature = defaults.Agent.Temperature
	}
	if cfg.Agent.TopP == nil {
		cfg.Agent.TopP = defaults.Agent.TopP
	}
	if cfg.Agent.TopKSampling == 0 {
		cfg.Agent.TopKSampling = defaults.Agent.TopKSampling
	}
	if cfg.Agent.MaxOutputTokens == 0 {
		cfg.Agent.MaxOutputTokens = defaults.Agent.MaxOutputTokens
	}
}

func floatPtr(v float64) *float64 {
	return &v
}

// applyEnv overlays secrets from the environment so they never have to
// live in the config file.
func applyEnv(cfg *Config) {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		if cfg.Embedding.APIKey == "" {
			cfg.Embedding.APIKey = key
		}
		if cfg.Generation.APIKey == "" {
			cfg.Generation.APIKey = key
		}
	}
	if token := os.Getenv("GOOGLE_DRIVE_ACCESS_TOKEN"); token != "" && cfg.Source.AccessToken == "" {
		cfg.Source.AccessToken = token
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	switch c.Index.Driver {
	case DriverJSON, DriverSQLite:
	default:
		return fmt.Errorf("unknown index driver %q", c.Index.Driver)
	}

	switch c.Source.Kind {
	case SourceFilesystem:
	case SourceGoogleDrive:
		if c.Source.AccessToken == "" {
			return fmt.Errorf("google-drive source requires an access token")
		}
	default:
		return fmt.Errorf("unknown source kind %q", c.Source.Kind)
	}

	return nil
}
