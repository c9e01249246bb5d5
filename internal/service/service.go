// Package service реализует бизнес-логику сервиса аккаунт-оверлея.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/account-overlay/internal/model"
	"github.com/mmeshcher/account-overlay/internal/repository"
	"github.com/mmeshcher/account-overlay/internal/validation"
)

// ErrInvalidCredentials возвращается при неверной паре почта/пароль.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidSettings возвращается при попытке сохранить некорректные настройки оверлея.
var ErrInvalidSettings = errors.New("invalid overlay settings")

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateCustomer(ctx context.Context, c model.Customer) (int64, error)
	GetCustomerByEmail(ctx context.Context, email string) (*model.Customer, error)
	GetCustomerByID(ctx context.Context, id int64) (*model.Customer, error)
	GetOverlaySettings(ctx context.Context, salesChannelID string) (*model.OverlaySettings, error)
	SaveOverlaySettings(ctx context.Context, salesChannelID string, s model.OverlaySettings) error
}

// Routes содержит адреса страниц аккаунта, на которые ссылается меню.
type Routes struct {
	Overview  string
	Profile   string
	Addresses string
	Orders    string
	Logout    string
	Login     string
	Register  string
}

// DefaultRoutes возвращает адреса страниц аккаунта витрины.
func DefaultRoutes() Routes {
	return Routes{
		Overview:  "/account",
		Profile:   "/account/profile",
		Addresses: "/account/address",
		Orders:    "/account/order",
		Logout:    "/account/logout",
		Login:     "/account/login",
		Register:  "/account/login",
	}
}

// Service содержит бизнес-логику сервиса аккаунт-оверлея.
type Service struct {
	repo     Repository
	defaults model.OverlaySettings
	routes   Routes
}

// NewService создаёт новый сервис. defaults применяются к каналам продаж без собственных настроек.
func NewService(repo Repository, defaults model.OverlaySettings, routes Routes) *Service {
	return &Service{
		repo:     repo,
		defaults: defaults,
		routes:   routes,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterCustomer регистрирует нового покупателя.
func (s *Service) RegisterCustomer(ctx context.Context, email, password, firstName, lastName string) (int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.repo.CreateCustomer(ctx, model.Customer{
		Email:        normalizeEmail(email),
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, repository.ErrCustomerExists) {
			return 0, repository.ErrCustomerExists
		}
		return 0, err
	}
	return id, nil
}

// AuthenticateCustomer проверяет почту и пароль покупателя и возвращает его идентификатор.
// Гостевые учётные записи войти не могут.
func (s *Service) AuthenticateCustomer(ctx context.Context, email, password string) (int64, error) {
	email = normalizeEmail(email)
	c, err := s.repo.GetCustomerByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			return 0, ErrInvalidCredentials
		}
		return 0, err
	}

	if c.Guest || bcrypt.CompareHashAndPassword(c.PasswordHash, []byte(password)) != nil {
		return 0, ErrInvalidCredentials
	}

	return c.ID, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Settings возвращает настройки оверлея канала продаж, либо настройки по умолчанию.
func (s *Service) Settings(ctx context.Context, salesChannelID string) (model.OverlaySettings, error) {
	settings, err := s.repo.GetOverlaySettings(ctx, salesChannelID)
	if err != nil {
		if errors.Is(err, repository.ErrSettingsNotFound) {
			return s.defaults, nil
		}
		return model.OverlaySettings{}, fmt.Errorf("load settings for %q: %w", salesChannelID, err)
	}
	return *settings, nil
}

// UpdateSettings проверяет и сохраняет настройки оверлея канала продаж.
func (s *Service) UpdateSettings(ctx context.Context, salesChannelID string, settings model.OverlaySettings) error {
	if strings.TrimSpace(salesChannelID) == "" || !validation.IsValidCacheTimeout(settings.CacheTimeout) {
		return ErrInvalidSettings
	}
	return s.repo.SaveOverlaySettings(ctx, salesChannelID, settings)
}

// Overlay собирает содержимое меню аккаунта. customerID == 0 означает анонимного посетителя.
// Вместе с содержимым возвращаются действующие настройки канала продаж.
func (s *Service) Overlay(ctx context.Context, customerID int64, salesChannelID string) (model.OverlayPayload, model.OverlaySettings, error) {
	settings, err := s.Settings(ctx, salesChannelID)
	if err != nil {
		return model.OverlayPayload{}, model.OverlaySettings{}, err
	}

	customer, err := s.customer(ctx, customerID)
	if err != nil {
		return model.OverlayPayload{}, model.OverlaySettings{}, err
	}

	cfg := model.NewRemoteConfig(settings)

	if customer == nil || customer.Guest {
		return model.OverlayPayload{
			IsLoggedIn: false,
			Links: model.Links{
				Login:    s.routes.Login,
				Register: s.routes.Register,
			},
			Config: &cfg,
		}, settings, nil
	}

	return model.OverlayPayload{
		IsLoggedIn:    true,
		CustomerName:  customer.FullName(),
		CustomerEmail: customer.Email,
		Links: model.Links{
			Overview:  s.routes.Overview,
			Profile:   s.routes.Profile,
			Addresses: s.routes.Addresses,
			Orders:    s.routes.Orders,
			Logout:    s.routes.Logout,
		},
		Config: &cfg,
	}, settings, nil
}

// customer возвращает покупателя сессии. Удалённый покупатель с ещё действующим cookie считается анонимным.
func (s *Service) customer(ctx context.Context, customerID int64) (*model.Customer, error) {
	if customerID == 0 {
		return nil, nil
	}

	c, err := s.repo.GetCustomerByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load customer %d: %w", customerID, err)
	}
	return c, nil
}
