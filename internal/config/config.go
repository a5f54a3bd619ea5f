package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/jengzang/car-location-go/internal/algorithm"
	"github.com/jengzang/car-location-go/internal/models"
)

// EnvPrefix prefixes every environment override, e.g. CARLOC_SERVER_PORT
const EnvPrefix = "CARLOC"

// Config holds application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Vehicle  VehicleConfig  `mapstructure:"vehicle"`
	Source   SourceConfig   `mapstructure:"source"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Session  SessionConfig  `mapstructure:"session"`
	History  HistoryConfig  `mapstructure:"history"`

	v *viper.Viper
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // gin mode: debug, release, test
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

type DatabaseConfig struct {
	Driver        string `mapstructure:"driver"` // sqlite or mongo
	Path          string `mapstructure:"path"`
	MaxOpenConns  int    `mapstructure:"max_open_conns"`
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`
}

type CacheConfig struct {
	RedisURL string `mapstructure:"redis_url"`
}

type VehicleConfig struct {
	Model string `mapstructure:"model"`
}

type SourceConfig struct {
	Mode          string              `mapstructure:"mode"` // default mode for sessions started without one
	Interval      time.Duration       `mapstructure:"interval"`
	BufferSize    int                 `mapstructure:"buffer_size"`
	Fixtures      []models.Coordinate `mapstructure:"fixtures"`
	LiveDevice    string              `mapstructure:"live_device"`
	LivePermitted bool                `mapstructure:"live_permitted"`
	AutoStart     bool                `mapstructure:"auto_start"`
}

type PipelineConfig struct {
	BatchSize          int     `mapstructure:"batch_size"`
	WriterQueue        int     `mapstructure:"writer_queue"`
	WindowSize         int     `mapstructure:"window_size"`
	MaxSpeedMps        float64 `mapstructure:"max_speed_mps"`
	DistancePerSecond  float64 `mapstructure:"distance_per_second"`
	SpeedPerSecond     float64 `mapstructure:"speed_per_second"`
	HorizontalAccuracy float64 `mapstructure:"horizontal_accuracy"`
}

// AlgorithmOptions converts the pipeline tuning into filter options
func (p PipelineConfig) AlgorithmOptions() algorithm.Options {
	return algorithm.Options{
		WindowSize:         p.WindowSize,
		MaxSpeedMps:        p.MaxSpeedMps,
		DistancePerSecond:  p.DistancePerSecond,
		SpeedPerSecond:     p.SpeedPerSecond,
		HorizontalAccuracy: p.HorizontalAccuracy,
	}
}

type SessionConfig struct {
	MaxPoints int `mapstructure:"max_points"` // 0 keeps every point of the session
}

type HistoryConfig struct {
	StreamLimit int `mapstructure:"stream_limit"` // 0 streams the whole history
}

func setDefaults(v *viper.Viper) {
	opts := algorithm.DefaultOptions()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", gin.ReleaseMode)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/locations/locations.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.mongo_uri", "")
	v.SetDefault("database.mongo_database", "car_location")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("vehicle.model", models.ModelA.String())
	v.SetDefault("source.mode", string(models.SourceSimulated))
	v.SetDefault("source.interval", 3*time.Second)
	v.SetDefault("source.buffer_size", 16)
	v.SetDefault("source.live_device", "")
	v.SetDefault("source.live_permitted", false)
	v.SetDefault("source.auto_start", false)
	v.SetDefault("pipeline.batch_size", 1)
	v.SetDefault("pipeline.writer_queue", 256)
	v.SetDefault("pipeline.window_size", opts.WindowSize)
	v.SetDefault("pipeline.max_speed_mps", opts.MaxSpeedMps)
	v.SetDefault("pipeline.distance_per_second", opts.DistancePerSecond)
	v.SetDefault("pipeline.speed_per_second", opts.SpeedPerSecond)
	v.SetDefault("pipeline.horizontal_accuracy", opts.HorizontalAccuracy)
	v.SetDefault("session.max_points", 0)
	v.SetDefault("history.stream_limit", 0)
}

// LoadConfig reads configPath, or configs/config.yaml when configPath is empty.
// A missing default file is not an error; defaults and CARLOC_* environment
// variables still apply.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.v = v
	return &cfg, nil
}

// GetConfigPath returns CARLOC_CONFIG_PATH, else configs/config.yaml when present
func GetConfigPath() string {
	if path := os.Getenv(EnvPrefix + "_CONFIG_PATH"); path != "" {
		return path
	}

	configPath := filepath.Join("configs", "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return configPath
	}
	return ""
}

// File returns the config file in use, empty when running on defaults
func (c *Config) File() string {
	if c.v == nil {
		return ""
	}
	return c.v.ConfigFileUsed()
}

// Validate checks values that cannot be corrected later
func (c *Config) Validate() error {
	if _, err := c.VehicleModel(); err != nil {
		return err
	}
	switch c.Server.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	default:
		return fmt.Errorf("unsupported server mode %q", c.Server.Mode)
	}
	switch c.Database.Driver {
	case "sqlite", "mongo":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.Driver == "mongo" && c.Database.MongoURI == "" {
		return errors.New("database.mongo_uri is required for the mongo driver")
	}
	switch models.SourceMode(c.Source.Mode) {
	case models.SourceSimulated, models.SourceLive:
	default:
		return fmt.Errorf("unsupported source mode %q", c.Source.Mode)
	}
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging level: %w", err)
	}
	return nil
}

// VehicleModel parses the configured vehicle model
func (c *Config) VehicleModel() (models.VehicleModel, error) {
	model, err := models.ParseVehicleModel(c.Vehicle.Model)
	if err != nil {
		return 0, fmt.Errorf("vehicle.model: %w", err)
	}
	return model, nil
}

// NewLogger builds a logrus logger from the logging section
func NewLogger(cfg LoggingConfig) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if err := cfg.Apply(logger); err != nil {
		return nil, err
	}
	return logger, nil
}

// Apply sets the level and formatter of logger
func (l LoggingConfig) Apply(logger *logrus.Logger) error {
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return fmt.Errorf("invalid logging level: %w", err)
	}
	logger.SetLevel(level)

	if strings.EqualFold(l.Format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return nil
}

var watchMu sync.Mutex

// Watch reloads the config file on change and re-applies the logging
// section to logger. Other sections need a restart. No-op without a file.
func (c *Config) Watch(logger *logrus.Logger) {
	if c.File() == "" {
		return
	}

	c.v.OnConfigChange(func(e fsnotify.Event) {
		watchMu.Lock()
		defer watchMu.Unlock()

		next, err := unmarshal(c.v)
		if err != nil {
			logger.WithError(err).Warn("Config reload failed")
			return
		}
		if err := next.Logging.Apply(logger); err != nil {
			logger.WithError(err).Warn("Config reload ignored invalid logging section")
			return
		}
		logger.WithFields(logrus.Fields{
			"file":  e.Name,
			"level": next.Logging.Level,
		}).Info("Configuration reloaded")
	})
	c.v.WatchConfig()
}
