package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Sync        SyncConfig        `toml:"sync"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	YouTube YouTubeConfig `toml:"youtube"`
}

// SpotifyConfig contains Spotify API credentials.
//
// RefreshToken is expected to be pre-acquired; the CLI refreshes access
// tokens but does not run the interactive authorization flow.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RefreshToken string `toml:"refresh_token"`
}

// YouTubeConfig contains settings for the YouTube Music proxy.
type YouTubeConfig struct {
	ProxyURL    string `toml:"proxy_url"`
	HeadersPath string `toml:"headers_path"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// SyncConfig contains sync engine settings.
type SyncConfig struct {
	Threshold          float64       `toml:"threshold"`            // Minimum composite score for a match
	MaxConcurrency     int           `toml:"max_concurrency"`      // In-flight item limit
	MirrorMode         bool          `toml:"mirror_mode"`          // Allow removal of destination tracks absent from source
	CheckpointEvery    int           `toml:"checkpoint_every"`     // Persist after every N resolved items
	CheckpointInterval Duration      `toml:"checkpoint_interval"`  // Persist at least this often while running
	JobTimeout         Duration      `toml:"job_timeout"`          // Wall-clock budget, zero disables
	SearchLimit        int           `toml:"search_limit"`         // Candidates requested per entry
	ProviderRateLimit  float64       `toml:"provider_rate_limit"`  // Requests per second against each provider
	Retry              RetryConfig   `toml:"retry"`
	Weights            WeightsConfig `toml:"weights"`
}

// RetryConfig contains per-item retry policy settings.
type RetryConfig struct {
	MaxAttempts    int      `toml:"max_attempts"`
	BaseDelay      Duration `toml:"base_delay"`
	MaxDelay       Duration `toml:"max_delay"`
	Jitter         float64  `toml:"jitter"`
	AttemptTimeout Duration `toml:"attempt_timeout"`
}

// WeightsConfig pins the matcher's scoring weights so results are
// reproducible across runs and installs.
type WeightsConfig struct {
	Title    float64 `toml:"title"`
	Artist   float64 `toml:"artist"`
	Duration float64 `toml:"duration"`
}

// Duration wraps [time.Duration] for TOML decoding of strings like "500ms".
type Duration time.Duration

// UnmarshalText implements [encoding.TextUnmarshaler] for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements [encoding.TextMarshaler] for TOML encoding.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the wrapped [time.Duration].
func (d Duration) Std() time.Duration { return time.Duration(d) }

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// SaveConfig writes the configuration back to disk as TOML. An empty path is
// a no-op so in-memory-only configs can pass through the same code path.
func SaveConfig(path string, config *Config) error {
	if path == "" {
		return nil
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
