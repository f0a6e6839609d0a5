package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"novelhub/pkg/database"
)

// Config is the full runtime configuration of the scraper and API server.
type Config struct {
	DB       DBConfig       `mapstructure:"db"`
	Log      LogConfig      `mapstructure:"log"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	GRPC     GrpcConfig     `mapstructure:"grpc"`
	Events   EventsConfig   `mapstructure:"events"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Fetcher  FetcherConfig  `mapstructure:"fetcher"`
	Scrape   ScrapeConfig   `mapstructure:"scrape"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Site     SiteConfig     `mapstructure:"site"`
}

type DBConfig struct {
	Path          string `mapstructure:"path"`
	BusyTimeoutMS int    `mapstructure:"busy_timeout_ms"`
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type GrpcConfig struct {
	Addr string `mapstructure:"addr"`
}

type EventsConfig struct {
	TCPAddr string `mapstructure:"tcp_addr"`
}

type AuthConfig struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type FetcherConfig struct {
	Mode      string        `mapstructure:"mode"` // "http" or "browser"
	Timeout   time.Duration `mapstructure:"timeout"`
	Attempts  uint          `mapstructure:"attempts"`
	Delay     time.Duration `mapstructure:"delay"`
	UserAgent string        `mapstructure:"user_agent"`
	Headless  bool          `mapstructure:"headless"`
}

type ScrapeConfig struct {
	FetchContent bool `mapstructure:"fetch_content"`
	Workers      int  `mapstructure:"workers"`
}

type ScheduleConfig struct {
	Refresh string `mapstructure:"refresh"`
}

type SiteConfig struct {
	SitemapURL string `mapstructure:"sitemap_url"`
}

// Database converts the db section into the store's own config.
func (c Config) Database() database.Config {
	return database.Config{Path: c.DB.Path, BusyTimeoutMS: c.DB.BusyTimeoutMS}
}

func setDefaults(v *viper.Viper) {
	dbDefaults := database.DefaultConfig()
	v.SetDefault("db.path", dbDefaults.Path)
	v.SetDefault("db.busy_timeout_ms", dbDefaults.BusyTimeoutMS)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("grpc.addr", ":9090")
	v.SetDefault("events.tcp_addr", ":7070")
	// dev default (change for production)
	v.SetDefault("auth.secret", "dev-secret-change-me")
	v.SetDefault("auth.issuer", "novelhub")
	v.SetDefault("auth.ttl", 24*time.Hour)
	v.SetDefault("fetcher.mode", "http")
	v.SetDefault("fetcher.timeout", 30*time.Second)
	v.SetDefault("fetcher.attempts", 3)
	v.SetDefault("fetcher.delay", time.Second)
	v.SetDefault("fetcher.user_agent", "novelhub/1.0 (+https://github.com/novelhub)")
	v.SetDefault("fetcher.headless", true)
	v.SetDefault("scrape.fetch_content", true)
	v.SetDefault("scrape.workers", 1)
	v.SetDefault("schedule.refresh", "")
	v.SetDefault("site.sitemap_url", "https://novlove.com/sitemap-0.xml")
}

// LoadConfig reads defaults, an optional config file and NOVELHUB_*
// environment variables, in increasing order of precedence. A .env file in
// the working directory is loaded into the environment first when present.
func LoadConfig(cfgFile string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("NOVELHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".novelhub"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Scrape.Workers < 1 {
		cfg.Scrape.Workers = 1
	}
	return cfg, nil
}
