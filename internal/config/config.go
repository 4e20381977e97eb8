// Package config reads the application configuration from config/config.yaml
// and VISUALS_* environment variables.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	App      AppConfig      `mapstructure:"app"`
}

type ServerConfig struct {
	Port        string        `mapstructure:"port"`
	Mode        string        `mapstructure:"mode"`
	Timeout     time.Duration `mapstructure:"timeout"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	LogLevel    string        `mapstructure:"log_level"`
}

// PostgresConfig: an empty DSN keeps visual records in memory.
type PostgresConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// RedisConfig: an empty Addr disables the shared frame cache.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	FrameTTL time.Duration `mapstructure:"frame_ttl"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
}

type AppConfig struct {
	DataDir     string        `mapstructure:"data_dir"`
	StorageDir  string        `mapstructure:"storage_dir"`
	BaseURL     string        `mapstructure:"base_url"`
	SessionTTL  time.Duration `mapstructure:"session_ttl"`
	ExportScale int           `mapstructure:"export_scale"`
	MaxScale    int           `mapstructure:"max_scale"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("redis.frame_ttl", 24*time.Hour)
	v.SetDefault("app.data_dir", "data")
	v.SetDefault("app.storage_dir", "storage")
	v.SetDefault("app.base_url", "http://localhost:8080/media")
	v.SetDefault("app.session_ttl", 30*time.Minute)
	v.SetDefault("app.export_scale", 4)
	v.SetDefault("app.max_scale", 8)
}

// LoadConfig reads ./config/config.yaml when present. Every key can be
// overridden by an env var, e.g. VISUALS_SERVER_PORT.
func LoadConfig() (*viper.Viper, error) {
	viperInstance := viper.New()
	setDefaults(viperInstance)

	viperInstance.AddConfigPath("./config")
	viperInstance.SetConfigName("config")
	viperInstance.SetConfigType("yaml")

	viperInstance.SetEnvPrefix("visuals")
	viperInstance.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperInstance.AutomaticEnv()

	if err := viperInstance.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}
	return viperInstance, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	if c.App.ExportScale < 1 {
		return nil, errors.New("app.export_scale must be at least 1")
	}
	if c.App.MaxScale < c.App.ExportScale {
		c.App.MaxScale = c.App.ExportScale
	}
	return &c, nil
}
