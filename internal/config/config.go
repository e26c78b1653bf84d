// Package config loads vault daemon and CLI settings from file, environment and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/and161185/localvault/internal/fileops"
)

// EnvPrefix prefixes every environment override, e.g. LOCALVAULT_VAULT_DIR.
const EnvPrefix = "LOCALVAULT"

// Config is the full settings tree.
type Config struct {
	Vault  VaultConfig  `mapstructure:"vault"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
}

// VaultConfig controls the on-disk vault and unlock policy.
type VaultConfig struct {
	Dir         string        `mapstructure:"dir"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"` // 0 disables auto-lock
	MaxFailures int           `mapstructure:"max_failures"` // 0 disables the limiter
	Window      time.Duration `mapstructure:"window"`
	Lockout     time.Duration `mapstructure:"lockout"`
}

// ServerConfig controls the daemon socket and session tokens.
type ServerConfig struct {
	Socket   string        `mapstructure:"socket"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// Load reads configPath (optional), LOCALVAULT_* environment variables and defaults.
// Without an explicit path, config.yaml in the user config directory is used if present.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Vault.Dir = fileops.ExpandPath(cfg.Vault.Dir)
	cfg.Server.Socket = fileops.ExpandPath(cfg.Server.Socket)
	if cfg.Server.Socket == "" {
		cfg.Server.Socket = filepath.Join(cfg.Vault.Dir, "vaultd.sock")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the daemon cannot run with.
func (c *Config) Validate() error {
	var errList []error
	if c.Vault.Dir == "" {
		errList = append(errList, errors.New("vault.dir is empty"))
	}
	if c.Vault.IdleTimeout < 0 {
		errList = append(errList, errors.New("vault.idle_timeout must not be negative"))
	}
	if c.Vault.MaxFailures < 0 {
		errList = append(errList, errors.New("vault.max_failures must not be negative"))
	}
	if c.Server.TokenTTL <= 0 {
		errList = append(errList, errors.New("server.token_ttl must be positive"))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errList = append(errList, fmt.Errorf("log.format %q: want json or console", c.Log.Format))
	}
	if err := errors.Join(errList...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("vault.dir", DataDir())
	v.SetDefault("vault.idle_timeout", 15*time.Minute)
	v.SetDefault("vault.max_failures", 5)
	v.SetDefault("vault.window", 15*time.Minute)
	v.SetDefault("vault.lockout", 30*time.Second)
	v.SetDefault("server.socket", runtimeSocket())
	v.SetDefault("server.token_ttl", 15*time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// ConfigDir is $XDG_CONFIG_HOME/localvault or ~/.config/localvault.
func ConfigDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "localvault")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "localvault")
}

// DataDir is $XDG_DATA_HOME/localvault or ~/.local/share/localvault.
func DataDir() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return filepath.Join(v, "localvault")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "localvault")
}

// runtimeSocket prefers $XDG_RUNTIME_DIR; empty means "inside the vault directory".
func runtimeSocket() string {
	if v := os.Getenv("XDG_RUNTIME_DIR"); v != "" {
		return filepath.Join(v, "localvault.sock")
	}
	return ""
}
