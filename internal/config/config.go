// Package config loads daemon configuration via viper, the same
// config-file-plus-environment-override pattern the teacher's own
// internal/config package uses, generalized to irrecvd's domain:
// receiver backends, the kernel decoder cache, and timing tolerances.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/irrecv/irrecv/irp"
)

// Config holds all configuration for irrecvd.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Receiver  ReceiverConfig  `mapstructure:"receiver"`
	Decode    DecodeConfig    `mapstructure:"decode"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Keymap    KeymapConfig    `mapstructure:"keymap"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Mirror    MirrorConfig    `mapstructure:"mirror"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
}

// ServerConfig contains the introspection HTTP+WebSocket surface's
// listen settings (§10.6).
type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	AuthKey string `mapstructure:"auth_key"`
}

// ReceiverConfig selects and configures the hardware backend.
type ReceiverConfig struct {
	Backend   string `mapstructure:"backend"` // lirc, gpio-periph, gpio-rpio, serial, mock
	Device    string `mapstructure:"device"`
	PinName   string `mapstructure:"pin_name"`
	Pin       int    `mapstructure:"pin"`
	BaudRate  int    `mapstructure:"baud_rate"`
	TimeoutUs uint32 `mapstructure:"timeout_us"`
}

// DecodeConfig marshals into irp.Options — the timing tolerances and
// metadata the core's compile step needs, kept out of the core itself
// per spec.md §6.
type DecodeConfig struct {
	Name       string          `mapstructure:"name"`
	MaxGap     float64         `mapstructure:"max_gap"`
	AEps       float64         `mapstructure:"aeps"`
	Eps        float64         `mapstructure:"eps"`
	RepeatMask map[string]bool `mapstructure:"repeat_mask"`
	Debug      bool            `mapstructure:"debug"`
}

// ToIRPOptions marshals DecodeConfig into the core's irp.Options
// record — the caller-side marshaling spec.md §6 assigns to the CLI
// rather than the core.
func (d DecodeConfig) ToIRPOptions() irp.Options {
	opts := irp.DefaultOptions(d.Name)
	if d.Eps != 0 {
		opts.Eps = d.Eps
	}
	if d.AEps != 0 {
		opts.AEps = d.AEps
	}
	opts.MaxGap = d.MaxGap
	opts.RepeatMask = d.RepeatMask
	opts.Debug = d.Debug
	return opts
}

// CacheConfig configures the compiled-decoder cache (§10.4).
type CacheConfig struct {
	Path string `mapstructure:"path"`
}

// LoggerConfig configures internal/logger (§10.1).
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	LogDir     string `mapstructure:"log_dir"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// KeymapConfig configures internal/keymapwatch (§10.2).
type KeymapConfig struct {
	Dir string `mapstructure:"dir"`
}

// TelemetryConfig configures internal/telemetry (§10.5).
type TelemetryConfig struct {
	InfluxURL    string `mapstructure:"influx_url"`
	InfluxToken  string `mapstructure:"influx_token"`
	InfluxOrg    string `mapstructure:"influx_org"`
	InfluxBucket string `mapstructure:"influx_bucket"`
	RedisAddr    string `mapstructure:"redis_addr"`
	RedisChannel string `mapstructure:"redis_channel"`
}

// MirrorConfig configures internal/irdbsync's community lircd.conf
// mirror sync (§10.10).
type MirrorConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	RemoteRoot string `mapstructure:"remote_root"`
}

// ArchiveConfig configures internal/archive's fleet upload (§10.7). An
// empty Bucket leaves archival disabled.
type ArchiveConfig struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// DumpYAML renders the effective configuration (defaults, file, and
// environment overrides all merged) as YAML, for an operator to
// inspect via the introspection surface without having to reconstruct
// viper's precedence rules by hand.
func DumpYAML(cfg *Config) ([]byte, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("config: marshal yaml: %w", err)
	}
	return out, nil
}

// Load reads configuration from file and environment variables. An
// empty configPath searches ./configs, ., and ~/.irrecvd for a
// "config" file, same precedence order as the teacher's Load.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		v.AddConfigPath(getConfigDir())
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	v.SetEnvPrefix("IRRECVD")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8390)

	v.SetDefault("receiver.backend", "mock")
	v.SetDefault("receiver.device", "/dev/lirc0")
	v.SetDefault("receiver.baud_rate", 115200)

	v.SetDefault("decode.eps", 3)
	v.SetDefault("decode.aeps", 100)

	v.SetDefault("cache.path", "./data/irrecvd.db")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.log_dir", "./logs")
	v.SetDefault("logger.max_size_mb", 50)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age_days", 7)
	v.SetDefault("logger.compress", true)

	v.SetDefault("keymap.dir", "./keymaps")

	v.SetDefault("telemetry.redis_channel", "irrecvd.decode")

	v.SetDefault("mirror.port", 21)
	v.SetDefault("mirror.remote_root", "/")
}

func getConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".irrecvd")
}
