// Package config содержит логику чтения конфигурации сервиса аккаунт-оверлея.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/mmeshcher/account-overlay/internal/model"
	"github.com/mmeshcher/account-overlay/internal/validation"
)

const (
	defaultRunAddress     = "localhost:8080"
	defaultSalesChannelID = "default"
	defaultCacheTimeout   = 300
)

// Config содержит параметры конфигурации сервиса аккаунт-оверлея.
type Config struct {
	RunAddress     string `env:"RUN_ADDRESS"`
	DatabaseURI    string `env:"DATABASE_URI"`
	SecretKey      string `env:"SECRET_KEY"`
	SalesChannelID string `env:"SALES_CHANNEL_ID"`

	// Overlay содержит настройки оверлея, действующие для каналов продаж без собственной записи в БД.
	Overlay model.OverlaySettings
}

// overlayEnv хранит значения переменных окружения для настроек оверлея.
// nil означает, что переменная не задана и действует значение флага.
type overlayEnv struct {
	EnableCaching *bool `env:"ENABLE_CACHING"`
	CacheTimeout  *int  `env:"CACHE_TIMEOUT"`
	LoadOnHover   *bool `env:"LOAD_ON_HOVER"`
	LoadOnClick   *bool `env:"LOAD_ON_CLICK"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	var overlay overlayEnv
	if err := env.Parse(&overlay); err != nil {
		return nil, fmt.Errorf("parse overlay env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envSecretKey := cfg.SecretKey
	envSalesChannelID := cfg.SalesChannelID

	var cacheTimeoutSeconds int

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.SecretKey, "s", "", "secret key for session cookies")
	flag.StringVar(&cfg.SalesChannelID, "c", defaultSalesChannelID, "default sales channel id")
	flag.BoolVar(&cfg.Overlay.EnableCaching, "cache", true, "allow caching of overlay responses")
	flag.IntVar(&cacheTimeoutSeconds, "cache-timeout", defaultCacheTimeout, "overlay cache timeout in seconds")
	flag.BoolVar(&cfg.Overlay.LoadOnHover, "hover", true, "load overlay on hover")
	flag.BoolVar(&cfg.Overlay.LoadOnClick, "click", false, "load overlay on click")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envSecretKey != "" {
		cfg.SecretKey = envSecretKey
	}
	if envSalesChannelID != "" {
		cfg.SalesChannelID = envSalesChannelID
	}
	if overlay.EnableCaching != nil {
		cfg.Overlay.EnableCaching = *overlay.EnableCaching
	}
	if overlay.CacheTimeout != nil {
		cacheTimeoutSeconds = *overlay.CacheTimeout
	}
	if overlay.LoadOnHover != nil {
		cfg.Overlay.LoadOnHover = *overlay.LoadOnHover
	}
	if overlay.LoadOnClick != nil {
		cfg.Overlay.LoadOnClick = *overlay.LoadOnClick
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.SalesChannelID == "" {
		cfg.SalesChannelID = defaultSalesChannelID
	}

	cfg.Overlay.CacheTimeout = time.Duration(cacheTimeoutSeconds) * time.Second
	if !validation.IsValidCacheTimeout(cfg.Overlay.CacheTimeout) {
		return nil, fmt.Errorf("invalid cache timeout: %d seconds", cacheTimeoutSeconds)
	}

	return cfg, nil
}
