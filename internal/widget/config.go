package widget

import (
	"math"
	"time"

	"github.com/mmeshcher/account-overlay/internal/model"
)

// Значения конфигурации по умолчанию.
const (
	DefaultOverlayURL      = "/account/overlay"
	DefaultConfigURL       = "/account/overlay/config"
	DefaultTriggerSelector = "[data-account-overlay-trigger]"
	DefaultContentSelector = "[data-account-overlay-content]"
	DefaultNameSelector    = "[data-account-name]"
	DefaultLoginURL        = "/account/login"
	DefaultCacheTimeout    = 5 * time.Minute
	DefaultHideDelay       = 200 * time.Millisecond
)

// maxRemoteCacheTimeout равен наибольшему числу миллисекунд, представимому в time.Duration.
const maxRemoteCacheTimeout = math.MaxInt64 / int64(time.Millisecond)

// Config хранит неизменяемую конфигурацию виджета.
// Новые значения получаются только через NewConfig и Merge.
type Config struct {
	OverlayURL      string
	ConfigURL       string
	TriggerSelector string
	ContentSelector string
	NameSelector    string
	LoginURL        string
	CacheTimeout    time.Duration
	HideDelay       time.Duration
	LoadOnHover     bool
	LoadOnClick     bool
	EnableCaching   bool
}

// Options содержит параметры, переданные при создании виджета. Пустые поля не меняют значения по умолчанию.
type Options struct {
	OverlayURL      string         `yaml:"overlayUrl"`
	ConfigURL       string         `yaml:"configUrl"`
	TriggerSelector string         `yaml:"triggerSelector"`
	ContentSelector string         `yaml:"contentSelector"`
	NameSelector    string         `yaml:"nameSelector"`
	LoginURL        string         `yaml:"loginUrl"`
	CacheTimeout    *time.Duration `yaml:"cacheTimeout"`
	HideDelay       *time.Duration `yaml:"hideDelay"`
	LoadOnHover     *bool          `yaml:"loadOnHover"`
	LoadOnClick     *bool          `yaml:"loadOnClick"`
	EnableCaching   *bool          `yaml:"enableCaching"`
}

// DefaultConfig возвращает конфигурацию по умолчанию.
func DefaultConfig() Config {
	return Config{
		OverlayURL:      DefaultOverlayURL,
		ConfigURL:       DefaultConfigURL,
		TriggerSelector: DefaultTriggerSelector,
		ContentSelector: DefaultContentSelector,
		NameSelector:    DefaultNameSelector,
		LoginURL:        DefaultLoginURL,
		CacheTimeout:    DefaultCacheTimeout,
		HideDelay:       DefaultHideDelay,
		LoadOnHover:     true,
		LoadOnClick:     false,
		EnableCaching:   true,
	}
}

// NewConfig накладывает параметры вызывающего кода на значения по умолчанию.
func NewConfig(o Options) Config {
	c := DefaultConfig()

	setString(&c.OverlayURL, o.OverlayURL)
	setString(&c.ConfigURL, o.ConfigURL)
	setString(&c.TriggerSelector, o.TriggerSelector)
	setString(&c.ContentSelector, o.ContentSelector)
	setString(&c.NameSelector, o.NameSelector)
	setString(&c.LoginURL, o.LoginURL)

	if o.CacheTimeout != nil && *o.CacheTimeout > 0 {
		c.CacheTimeout = *o.CacheTimeout
	}
	if o.HideDelay != nil && *o.HideDelay >= 0 {
		c.HideDelay = *o.HideDelay
	}
	setBool(&c.LoadOnHover, o.LoadOnHover)
	setBool(&c.LoadOnClick, o.LoadOnClick)
	setBool(&c.EnableCaching, o.EnableCaching)

	return c
}

// Merge возвращает конфигурацию c, дополненную удалённой конфигурацией.
// Отсутствующие поля сохраняют прежние значения. Неположительный cacheTimeout, как и
// не помещающийся в time.Duration, считается отсутствующим.
func Merge(c Config, r model.RemoteConfig) Config {
	if r.CacheTimeout != nil && *r.CacheTimeout > 0 && *r.CacheTimeout <= maxRemoteCacheTimeout {
		c.CacheTimeout = time.Duration(*r.CacheTimeout) * time.Millisecond
	}
	setBool(&c.LoadOnHover, r.LoadOnHover)
	setBool(&c.LoadOnClick, r.LoadOnClick)
	setBool(&c.EnableCaching, r.EnableCaching)
	return c
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
