// Package config handles configuration management using Viper
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Presentation paths accepted by display.path.
const (
	PathScanout   = "scanout"
	PathComposite = "composite"
)

// Config represents the application configuration
type Config struct {
	// Display output configuration
	Display DisplayConfig `mapstructure:"display"`

	// Texture renderer configuration
	Renderer RendererConfig `mapstructure:"renderer"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`

	// Metrics endpoint configuration
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// DisplayConfig describes the output video is presented on
type DisplayConfig struct {
	Device       string `mapstructure:"device"`        // DRM card node
	Path         string `mapstructure:"path"`          // "scanout" or "composite"
	LimitedRange bool   `mapstructure:"limited_range"` // Output expects 16-235 RGB
	Width        int    `mapstructure:"width"`
	Height       int    `mapstructure:"height"`
}

// RendererConfig contains composite renderer settings
type RendererConfig struct {
	Slots int `mapstructure:"slots"` // Buffers in flight between decoder and GPU
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	LogLevel string `mapstructure:"log_level"` // Override LOG_LEVEL env var
}

// MetricsConfig contains the Prometheus endpoint settings
type MetricsConfig struct {
	ListenAddress string `mapstructure:"listen_address"` // Empty disables the endpoint
}

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Display: DisplayConfig{
			Device:       "/dev/dri/card0",
			Path:         PathScanout,
			LimitedRange: false,
			Width:        1920,
			Height:       1080,
		},
		Renderer: RendererConfig{
			Slots: 4,
		},
		Logging: LoggingConfig{
			LogLevel: "", // Empty means use LOG_LEVEL env var
		},
		Metrics: MetricsConfig{
			ListenAddress: "",
		},
	}

	// Global config instance
	cfg *Config

	// Override config path if set
	configPathOverride string
)

// SetConfigPath allows overriding the config path
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system
func Init() error {
	// .env only fills variables that are not already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error loading .env: %w", err)
	}

	viper.SetConfigName("primelayer")
	viper.SetConfigType("toml")

	// If a specific path is set, use only that
	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		viper.AddConfigPath("/etc/primelayer")

		// If running with sudo, try the real user's config
		if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
			viper.AddConfigPath(fmt.Sprintf("/home/%s/.config/primelayer", sudoUser))
		} else if home := os.Getenv("HOME"); home != "" && home != "/root" {
			viper.AddConfigPath(filepath.Join(home, ".config", "primelayer"))
		}

		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("PRIMELAYER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set defaults - need to set individual fields for proper merging
	viper.SetDefault("display.device", DefaultConfig.Display.Device)
	viper.SetDefault("display.path", DefaultConfig.Display.Path)
	viper.SetDefault("display.limited_range", DefaultConfig.Display.LimitedRange)
	viper.SetDefault("display.width", DefaultConfig.Display.Width)
	viper.SetDefault("display.height", DefaultConfig.Display.Height)

	viper.SetDefault("renderer.slots", DefaultConfig.Renderer.Slots)

	viper.SetDefault("logging.log_level", DefaultConfig.Logging.LogLevel)

	viper.SetDefault("metrics.listen_address", DefaultConfig.Metrics.ListenAddress)

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults
	}

	c := &Config{}
	if err := viper.Unmarshal(c); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c

	return nil
}

// Validate rejects settings the presentation paths cannot run with
func (c *Config) Validate() error {
	switch c.Display.Path {
	case PathScanout, PathComposite:
	default:
		return fmt.Errorf("invalid display.path %q: want %q or %q", c.Display.Path, PathScanout, PathComposite)
	}
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		return fmt.Errorf("invalid display size %dx%d", c.Display.Width, c.Display.Height)
	}
	if c.Renderer.Slots < 1 {
		return fmt.Errorf("invalid renderer.slots %d: need at least 1", c.Renderer.Slots)
	}
	return nil
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		// Return defaults if not initialized
		def := DefaultConfig
		return &def
	}
	return cfg
}

// Set sets the current configuration (for testing)
func Set(c *Config) {
	cfg = c
}

// Save saves the current configuration to file
func Save() error {
	configPath := GetConfigPath()

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		// /etc/primelayer needs sudo
		if os.IsPermission(err) && strings.Contains(configPath, "/etc/") {
			return fmt.Errorf("failed to create config directory %s: permission denied. Try running with sudo", dir)
		}
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if configPathOverride != "" {
		return configPathOverride
	}

	if viper.ConfigFileUsed() != "" {
		return viper.ConfigFileUsed()
	}

	// For system services/sudo, prefer system config
	if os.Getuid() == 0 || os.Getenv("SUDO_USER") != "" {
		return "/etc/primelayer/primelayer.toml"
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "/etc/primelayer/primelayer.toml"
	}

	return filepath.Join(home, ".config", "primelayer", "primelayer.toml")
}
