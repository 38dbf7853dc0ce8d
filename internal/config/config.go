package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	App struct {
		Env      string
		Timezone string
	} `mapstructure:"app"`

	Telegram struct {
		Token       string
		PollTimeout int `mapstructure:"poll_timeout"`
		Workers     int // сколько чатов обрабатываются одновременно
	} `mapstructure:"telegram"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Storage struct {
		Driver string
	} `mapstructure:"storage"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Session struct {
		IdleTTL   time.Duration `mapstructure:"idle_ttl"`
		SweepSpec string        `mapstructure:"sweep_spec"`
	} `mapstructure:"session"`
}

// Load читает YAML по path; переменные окружения APP_* (APP_TELEGRAM_TOKEN,
// APP_POSTGRES_DSN, ...) имеют приоритет. Файл .env, если есть, подхватывается первым.
func Load(path string) (Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app.env", "prod")
	v.SetDefault("app.timezone", "UTC")
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.poll_timeout", 60)
	v.SetDefault("telegram.workers", 16)
	v.SetDefault("http.addr", ":10000")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("storage.driver", StoragePostgres)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("session.idle_ttl", "24h")
	v.SetDefault("session.sweep_spec", "@every 10m")

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, c.validate()
}

func (c Config) validate() error {
	switch c.Storage.Driver {
	case StorageMemory:
	case StoragePostgres:
		if c.Postgres.DSN == "" {
			return errors.New("config: postgres.dsn is required for postgres storage")
		}
	default:
		return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}
	if c.Telegram.Workers <= 0 {
		return errors.New("config: telegram.workers must be positive")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("config: app.timezone: %w", err)
	}
	return nil
}

// Location зона, в которой считается «сегодня».
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
