// Package config provides YAML-based configuration loading for the
// transport tooling.
package config

import (
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"

    "github.com/spf13/viper"
)

// Config is the root application configuration.
type Config struct {
    // Remote is the default remote address when none is given on the
    // command line.
    Remote string `mapstructure:"remote"`

    // Service selects the remote service program, git-upload-pack by
    // default.
    Service string `mapstructure:"service"`

    // DesiredVersion is the protocol version asked for during the
    // handshake: 0, 1 or 2. The server's answer wins.
    DesiredVersion int `mapstructure:"desired_version"`

    // Log holds logging configuration.
    Log LogConfig `mapstructure:"log"`

    // SSH configures the secure-shell scheme.
    SSH SSHConfig `mapstructure:"ssh"`

    // HTTP configures the HTTP scheme.
    HTTP HTTPConfig `mapstructure:"http"`

    // Daemon configures the bare TCP scheme.
    Daemon DaemonConfig `mapstructure:"daemon"`

    // TraceFile, when set, receives a CBOR packet trace of every exchange.
    TraceFile string `mapstructure:"trace_file"`
}

// LogConfig defines logger settings.
type LogConfig struct {
    // Level: debug, info, warn, error
    Level string `mapstructure:"level"`
    // Format: console or json
    Format string `mapstructure:"format"`
    // Outputs: list of outputs: stdout, stderr, or file paths
    Outputs []string `mapstructure:"outputs"`

    // Rotation controls file rotation when writing to files
    Rotation RotationConfig `mapstructure:"rotation"`
    // Development toggles development-friendly logging options
    Development bool `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
    Enable     bool   `mapstructure:"enable"`
    Filename   string `mapstructure:"filename"`
    MaxSizeMB  int    `mapstructure:"max_size_mb"`
    MaxBackups int    `mapstructure:"max_backups"`
    MaxAgeDays int    `mapstructure:"max_age_days"`
    Compress   bool   `mapstructure:"compress"`
}

// SSHConfig selects the secure-shell client.
type SSHConfig struct {
    // Program is the client executable, "ssh" when empty.
    Program string `mapstructure:"program"`
    // ExtraArgs are passed to the client before the destination.
    ExtraArgs []string `mapstructure:"extra_args"`
}

// HTTPConfig tunes the HTTP scheme.
type HTTPConfig struct {
    UserAgent string `mapstructure:"user_agent"`
}

// DaemonConfig tunes the bare TCP scheme.
type DaemonConfig struct {
    // VirtualHost overrides the host announced in the connect request.
    VirtualHost string `mapstructure:"virtual_host"`
    VirtualPort int    `mapstructure:"virtual_port"`
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
    return &Config{
        Service:        "git-upload-pack",
        DesiredVersion: 2,
        Log: LogConfig{
            Level:       "info",
            Format:      "console",
            Outputs:     []string{"stderr"},
            Development: false,
            Rotation: RotationConfig{
                Enable:     false,
                Filename:   "logs/gitwire.log",
                MaxSizeMB:  50,
                MaxBackups: 3,
                MaxAgeDays: 28,
                Compress:   true,
            },
        },
    }
}

// Load reads configuration from the provided path (if non-empty), otherwise
// it searches common locations and supports environment overrides.
// Environment variables use the prefix GITWIRE and `.`/`-` are replaced
// with `_`. Example: GITWIRE_LOG_LEVEL=debug
func Load(path string) (*Config, error) {
    cfg := Default()

    v := viper.New()
    v.SetConfigType("yaml")
    v.SetEnvPrefix("GITWIRE")
    v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
    v.AutomaticEnv()

    // seed defaults for viper so env-only configs work
    v.SetDefault("remote", cfg.Remote)
    v.SetDefault("service", cfg.Service)
    v.SetDefault("desired_version", cfg.DesiredVersion)
    v.SetDefault("trace_file", cfg.TraceFile)
    v.SetDefault("log.level", cfg.Log.Level)
    v.SetDefault("log.format", cfg.Log.Format)
    v.SetDefault("log.outputs", cfg.Log.Outputs)
    v.SetDefault("log.development", cfg.Log.Development)
    v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
    v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
    v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
    v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
    v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
    v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
    v.SetDefault("ssh.program", cfg.SSH.Program)
    v.SetDefault("ssh.extra_args", cfg.SSH.ExtraArgs)
    v.SetDefault("http.user_agent", cfg.HTTP.UserAgent)
    v.SetDefault("daemon.virtual_host", cfg.Daemon.VirtualHost)
    v.SetDefault("daemon.virtual_port", cfg.Daemon.VirtualPort)

    if path == "" {
        if envPath := os.Getenv("GITWIRE_CONFIG"); envPath != "" {
            path = envPath
        }
    }

    if path != "" {
        v.SetConfigFile(path)
    } else {
        v.SetConfigName("gitwire")
        v.AddConfigPath(".")
        v.AddConfigPath("./configs")
        if home, err := os.UserHomeDir(); err == nil {
            v.AddConfigPath(filepath.Join(home, ".gitwire"))
        }
    }

    // Read config file if present; if not found, continue with defaults/env
    if err := v.ReadInConfig(); err != nil {
        var notFound viper.ConfigFileNotFoundError
        if !errors.As(err, &notFound) {
            return nil, fmt.Errorf("read config: %w", err)
        }
    }

    if err := v.Unmarshal(&cfg); err != nil {
        return nil, fmt.Errorf("decode config: %w", err)
    }

    if err := cfg.validate(); err != nil {
        return nil, err
    }
    return cfg, nil
}

func (c *Config) validate() error {
    lvl := strings.ToLower(strings.TrimSpace(c.Log.Level))
    switch lvl {
    case "debug", "info", "warn", "warning", "error":
        // ok
    default:
        return fmt.Errorf("invalid log.level: %q", c.Log.Level)
    }

    if c.Log.Format == "" {
        c.Log.Format = "console"
    }
    if len(c.Log.Outputs) == 0 {
        c.Log.Outputs = []string{"stderr"}
    }
    switch c.DesiredVersion {
    case 0, 1, 2:
        // ok
    default:
        return fmt.Errorf("invalid desired_version: %d", c.DesiredVersion)
    }
    switch c.Service {
    case "git-upload-pack", "git-receive-pack", "git-upload-archive":
        // ok
    default:
        return fmt.Errorf("invalid service: %q", c.Service)
    }
    return nil
}

// MustLoad is a convenience that panics on error.
func MustLoad(path string) *Config {
    cfg, err := Load(path)
    if err != nil {
        panic(err)
    }
    return cfg
}
