// Package config loads server configuration from an optional YAML file and
// WILDWOOD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	goerrors "github.com/pixil98/go-errors"
	"github.com/spf13/viper"

	"github.com/thraizz/wildwood-server-go/internal/game"
	"github.com/thraizz/wildwood-server-go/internal/game/scheduler"
	"github.com/thraizz/wildwood-server-go/internal/storage"
)

// EnvPrefix prefixes every environment override, e.g. WILDWOOD_GAME_MAX_DAYS.
const EnvPrefix = "WILDWOOD"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Game      GameConfig      `mapstructure:"game"`
	Content   ContentConfig   `mapstructure:"content"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Sessions  SessionConfig   `mapstructure:"sessions"`
}

type ServerConfig struct {
	HTTP HTTPConfig `mapstructure:"http"`
	GRPC GRPCConfig `mapstructure:"grpc"`
}

type HTTPConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type GRPCConfig struct {
	Address              string `mapstructure:"address"`
	MaxConcurrentStreams int    `mapstructure:"max_concurrent_streams"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Path   string `mapstructure:"path"`
}

// GameConfig mirrors game.Config.
type GameConfig struct {
	MaxDays        int           `mapstructure:"max_days"`
	HandSize       int           `mapstructure:"hand_size"`
	EquipSlots     int           `mapstructure:"equip_slots"`
	StartingHealth int           `mapstructure:"starting_health"`
	StartingGold   int           `mapstructure:"starting_gold"`
	RestockCost    int           `mapstructure:"restock_cost"`
	DisplaySize    int           `mapstructure:"display_size"`
	DuskDelay      time.Duration `mapstructure:"dusk_delay"`
	KeepLimit      int           `mapstructure:"keep_limit"`
	ContentTimeout time.Duration `mapstructure:"content_timeout"`
}

type ContentConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// NATSConfig enables the NATS effect sink when URL is set or Embedded is
// true.
type NATSConfig struct {
	URL      string `mapstructure:"url"`
	Subject  string `mapstructure:"subject"`
	Embedded bool   `mapstructure:"embedded"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
}

type QueueConfig struct {
	Duration time.Duration `mapstructure:"duration"`
	Floor    time.Duration `mapstructure:"floor"`
}

type SchedulerConfig struct {
	Banner    QueueConfig `mapstructure:"banner"`
	Animation QueueConfig `mapstructure:"animation"`
}

type SessionConfig struct {
	MaxSessions int           `mapstructure:"max_sessions"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

func setDefaults(v *viper.Viper) {
	def := game.DefaultConfig()

	v.SetDefault("server.http.address", ":8080")
	v.SetDefault("server.http.read_timeout", 10*time.Second)
	v.SetDefault("server.http.write_timeout", 10*time.Second)
	v.SetDefault("server.grpc.address", ":9090")
	v.SetDefault("server.grpc.max_concurrent_streams", 100)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("storage.driver", storage.DriverMemory)
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.path", "")

	v.SetDefault("game.max_days", def.MaxDays)
	v.SetDefault("game.hand_size", def.HandSize)
	v.SetDefault("game.equip_slots", def.EquipSlots)
	v.SetDefault("game.starting_health", def.StartingHealth)
	v.SetDefault("game.starting_gold", def.StartingGold)
	v.SetDefault("game.restock_cost", def.RestockCost)
	v.SetDefault("game.display_size", def.DisplaySize)
	v.SetDefault("game.dusk_delay", def.DuskDelay)
	v.SetDefault("game.keep_limit", def.KeepLimit)
	v.SetDefault("game.content_timeout", def.ContentTimeout)

	v.SetDefault("content.enabled", true)

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", "wildwood.effects")
	v.SetDefault("nats.embedded", false)
	v.SetDefault("nats.host", "127.0.0.1")
	v.SetDefault("nats.port", 4222)

	v.SetDefault("scheduler.banner.duration", 2500*time.Millisecond)
	v.SetDefault("scheduler.banner.floor", 800*time.Millisecond)
	v.SetDefault("scheduler.animation.duration", 600*time.Millisecond)
	v.SetDefault("scheduler.animation.floor", 200*time.Millisecond)

	v.SetDefault("sessions.max_sessions", 1000)
	v.SetDefault("sessions.idle_timeout", 2*time.Hour)
}

// Load reads path when it exists, applies environment overrides and
// validates the result. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	el := goerrors.NewErrorList()
	el.Add(c.Server.validate())
	el.Add(c.Logging.validate())
	el.Add(c.Storage.validate())
	el.Add(c.Game.validate())
	el.Add(c.Sessions.validate())
	el.Add(c.NATS.validate())
	return el.Err()
}

func (c *ServerConfig) validate() error {
	el := goerrors.NewErrorList()
	if c.HTTP.Address == "" {
		el.Add(fmt.Errorf("server.http.address is required"))
	}
	if c.HTTP.ReadTimeout < 0 || c.HTTP.WriteTimeout < 0 {
		el.Add(fmt.Errorf("server.http timeouts must not be negative"))
	}
	if c.GRPC.MaxConcurrentStreams < 0 {
		el.Add(fmt.Errorf("server.grpc.max_concurrent_streams must not be negative"))
	}
	return el.Err()
}

func (c *LoggingConfig) validate() error {
	el := goerrors.NewErrorList()
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		el.Add(fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Level))
	}
	switch c.Format {
	case "json", "console":
	default:
		el.Add(fmt.Errorf("logging.format %q is not json or console", c.Format))
	}
	return el.Err()
}

func (c *StorageConfig) validate() error {
	el := goerrors.NewErrorList()
	switch c.Driver {
	case storage.DriverMemory:
	case storage.DriverFile, storage.DriverSQLite, storage.DriverBolt:
		if c.Path == "" {
			el.Add(fmt.Errorf("storage.path is required for the %s driver", c.Driver))
		}
	case storage.DriverPostgres:
		if c.DSN == "" {
			el.Add(fmt.Errorf("storage.dsn is required for the postgres driver"))
		}
	default:
		el.Add(fmt.Errorf("storage.driver %q is not one of %s", c.Driver, strings.Join(storage.Drivers, ", ")))
	}
	return el.Err()
}

func (c *GameConfig) validate() error {
	el := goerrors.NewErrorList()
	for _, f := range []struct {
		key   string
		value int
	}{
		{"game.max_days", c.MaxDays},
		{"game.hand_size", c.HandSize},
		{"game.equip_slots", c.EquipSlots},
		{"game.starting_health", c.StartingHealth},
		{"game.display_size", c.DisplaySize},
		{"game.keep_limit", c.KeepLimit},
	} {
		if f.value <= 0 {
			el.Add(fmt.Errorf("%s must be positive", f.key))
		}
	}
	if c.StartingGold < 0 {
		el.Add(fmt.Errorf("game.starting_gold must not be negative"))
	}
	if c.RestockCost < 0 {
		el.Add(fmt.Errorf("game.restock_cost must not be negative"))
	}
	if c.DuskDelay < 0 {
		el.Add(fmt.Errorf("game.dusk_delay must not be negative"))
	}
	return el.Err()
}

func (c *NATSConfig) validate() error {
	if (c.URL != "" || c.Embedded) && c.Subject == "" {
		return fmt.Errorf("nats.subject is required when nats is enabled")
	}
	return nil
}

func (c *SessionConfig) validate() error {
	if c.MaxSessions <= 0 {
		return fmt.Errorf("sessions.max_sessions must be positive")
	}
	return nil
}

// Rules converts the game section into engine rules.
func (c *Config) Rules() game.Config {
	return game.Config{
		MaxDays:        c.Game.MaxDays,
		HandSize:       c.Game.HandSize,
		EquipSlots:     c.Game.EquipSlots,
		StartingHealth: c.Game.StartingHealth,
		StartingGold:   c.Game.StartingGold,
		RestockCost:    c.Game.RestockCost,
		DisplaySize:    c.Game.DisplaySize,
		DuskDelay:      c.Game.DuskDelay,
		KeepLimit:      c.Game.KeepLimit,
		ContentTimeout: c.Game.ContentTimeout,
		ContentEnabled: c.Content.Enabled,
	}
}

// StorageBackend converts the storage section for storage.Open.
func (c *Config) StorageBackend() storage.Config {
	return storage.Config{Driver: c.Storage.Driver, DSN: c.Storage.DSN, Path: c.Storage.Path}
}

// Queues returns the banner and animation queue options.
func (c *Config) Queues() (banners, animations scheduler.Options) {
	banners = scheduler.Options{
		DefaultDuration: c.Scheduler.Banner.Duration,
		Floor:           c.Scheduler.Banner.Floor,
	}
	animations = scheduler.Options{
		DefaultDuration: c.Scheduler.Animation.Duration,
		Floor:           c.Scheduler.Animation.Floor,
	}
	return banners, animations
}
