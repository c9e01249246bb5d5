// Package handler содержит HTTP-обработчики сервиса аккаунт-оверлея.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mmeshcher/account-overlay/internal/middleware"
	"github.com/mmeshcher/account-overlay/internal/model"
	"github.com/mmeshcher/account-overlay/internal/repository"
	"github.com/mmeshcher/account-overlay/internal/service"
	"github.com/mmeshcher/account-overlay/internal/validation"
)

// SalesChannelHeader задаёт заголовок, которым витрина передаёт идентификатор канала продаж.
const SalesChannelHeader = "X-Sales-Channel-Id"

// configMaxAge задаёт время, на которое браузер может закешировать конфигурацию виджета.
const configMaxAge = 60 * time.Second

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterCustomer(ctx context.Context, email, password, firstName, lastName string) (int64, error)
	AuthenticateCustomer(ctx context.Context, email, password string) (int64, error)
	Settings(ctx context.Context, salesChannelID string) (model.OverlaySettings, error)
	UpdateSettings(ctx context.Context, salesChannelID string, settings model.OverlaySettings) error
	Overlay(ctx context.Context, customerID int64, salesChannelID string) (model.OverlayPayload, model.OverlaySettings, error)
}

// Handler реализует HTTP-обработчики сервиса аккаунт-оверлея.
type Handler struct {
	service             Service
	logger              *zap.Logger
	authMiddleware      *middleware.AuthMiddleware
	defaultSalesChannel string
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, defaultSalesChannel string) *Handler {
	return &Handler{
		service:             s,
		logger:              logger,
		authMiddleware:      auth,
		defaultSalesChannel: defaultSalesChannel,
	}
}

func (h *Handler) salesChannel(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(SalesChannelHeader)); id != "" {
		return id
	}
	return h.defaultSalesChannel
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

// Overlay возвращает содержимое меню аккаунта в зависимости от статуса входа покупателя.
func (h *Handler) Overlay(w http.ResponseWriter, r *http.Request) {
	customerID, _ := middleware.GetCustomerIDFromContext(r.Context())
	salesChannel := h.salesChannel(r)

	payload, settings, err := h.service.Overlay(r.Context(), customerID, salesChannel)
	if err != nil {
		h.logger.Error("overlay error", zap.Error(err), zap.Int64("customerID", customerID), zap.String("salesChannel", salesChannel))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", overlayCacheControl(settings))
	h.writeJSON(w, payload)
}

func overlayCacheControl(s model.OverlaySettings) string {
	seconds := int64(s.CacheTimeout / time.Second)
	if s.EnableCaching && seconds > 0 {
		return fmt.Sprintf("private, max-age=%d", seconds)
	}
	return "private, no-cache, no-store, must-revalidate"
}

// Config возвращает конфигурацию виджета для канала продаж.
func (h *Handler) Config(w http.ResponseWriter, r *http.Request) {
	salesChannel := h.salesChannel(r)

	settings, err := h.service.Settings(r.Context(), salesChannel)
	if err != nil {
		h.logger.Error("config error", zap.Error(err), zap.String("salesChannel", salesChannel))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", fmt.Sprintf("private, max-age=%d", int64(configMaxAge/time.Second)))
	h.writeJSON(w, model.NewRemoteConfig(settings))
}

type settingsRequest struct {
	EnableCaching bool  `json:"enableCaching"`
	CacheTimeout  int64 `json:"cacheTimeout"` // миллисекунды
	LoadOnHover   bool  `json:"loadOnHover"`
	LoadOnClick   bool  `json:"loadOnClick"`
}

// UpdateSettings сохраняет настройки оверлея канала продаж, переданного в пути.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	salesChannel := chi.URLParam(r, "salesChannelID")

	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	err := h.service.UpdateSettings(r.Context(), salesChannel, model.OverlaySettings{
		EnableCaching: req.EnableCaching,
		CacheTimeout:  time.Duration(req.CacheTimeout) * time.Millisecond,
		LoadOnHover:   req.LoadOnHover,
		LoadOnClick:   req.LoadOnClick,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidSettings) {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		h.logger.Error("update settings error", zap.Error(err), zap.String("salesChannel", salesChannel))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Register обрабатывает регистрацию нового покупателя и сразу открывает ему сессию.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidEmail(req.Email) || !validation.IsValidPassword(req.Password) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	customerID, err := h.service.RegisterCustomer(r.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		if errors.Is(err, repository.ErrCustomerExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("register customer error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, customerID)
	w.WriteHeader(http.StatusOK)
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login выполняет аутентификацию покупателя и устанавливает cookie сессии.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	customerID, err := h.service.AuthenticateCustomer(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login customer error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, customerID)
	w.WriteHeader(http.StatusOK)
}

// Logout закрывает сессию покупателя и возвращает его на главную страницу.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authMiddleware.ClearAuthCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
