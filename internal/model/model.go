// Package model содержит доменные сущности и форматы обмена сервиса аккаунт-оверлея.
package model

import "time"

// Customer представляет покупателя магазина.
type Customer struct {
	ID           int64
	Email        string
	FirstName    string
	LastName     string
	PasswordHash []byte
	Guest        bool
	CreatedAt    time.Time
}

// FullName возвращает имя покупателя в том виде, в котором оно показывается в шапке.
func (c Customer) FullName() string {
	return c.FirstName + " " + c.LastName
}

// OverlaySettings описывает настройки оверлея для одного канала продаж.
type OverlaySettings struct {
	EnableCaching bool
	CacheTimeout  time.Duration
	LoadOnHover   bool
	LoadOnClick   bool
}

// RemoteConfig описывает конфигурацию виджета, которую отдаёт эндпоинт config.
// Поля-указатели позволяют клиенту отличать отсутствующие значения от нулевых.
type RemoteConfig struct {
	EnableCaching *bool  `json:"enableCaching,omitempty"`
	CacheTimeout  *int64 `json:"cacheTimeout,omitempty"` // миллисекунды
	LoadOnHover   *bool  `json:"loadOnHover,omitempty"`
	LoadOnClick   *bool  `json:"loadOnClick,omitempty"`
}

// NewRemoteConfig переводит настройки канала продаж в формат ответа.
func NewRemoteConfig(s OverlaySettings) RemoteConfig {
	timeout := s.CacheTimeout.Milliseconds()
	return RemoteConfig{
		EnableCaching: &s.EnableCaching,
		CacheTimeout:  &timeout,
		LoadOnHover:   &s.LoadOnHover,
		LoadOnClick:   &s.LoadOnClick,
	}
}

// Links содержит ссылки меню аккаунта. Набор заполненных полей зависит от статуса входа.
type Links struct {
	Overview  string `json:"overview,omitempty"`
	Profile   string `json:"profile,omitempty"`
	Addresses string `json:"addresses,omitempty"`
	Orders    string `json:"orders,omitempty"`
	Logout    string `json:"logout,omitempty"`
	Login     string `json:"login,omitempty"`
	Register  string `json:"register,omitempty"`
}

// OverlayPayload описывает ответ эндпоинта overlay.
type OverlayPayload struct {
	IsLoggedIn    bool          `json:"isLoggedIn"`
	CustomerName  string        `json:"customerName,omitempty"`
	CustomerEmail string        `json:"customerEmail,omitempty"`
	Links         Links         `json:"links"`
	Config        *RemoteConfig `json:"config,omitempty"`
}
