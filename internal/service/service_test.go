package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/account-overlay/internal/model"
	"github.com/mmeshcher/account-overlay/internal/repository"
)

func TestRegisterCustomer_PasswordRoundTrip(t *testing.T) {
	repo := &stubRepo{createID: 1}
	svc := NewService(repo, testDefaults, DefaultRoutes())

	_, err := svc.RegisterCustomer(context.Background(), "jane@example.com", "pass-word", "Jane", "Doe")
	require.NoError(t, err)
	first := repo.created.PasswordHash

	_, err = svc.RegisterCustomer(context.Background(), "jane@example.com", "pass-word", "Jane", "Doe")
	require.NoError(t, err)
	second := repo.created.PasswordHash

	assert.NotEqual(t, first, second, "hashes of the same password must be salted")
	require.NoError(t, bcrypt.CompareHashAndPassword(first, []byte("pass-word")))
	require.NoError(t, bcrypt.CompareHashAndPassword(second, []byte("pass-word")))
	assert.ErrorIs(t, bcrypt.CompareHashAndPassword(first, []byte("other")), bcrypt.ErrMismatchedHashAndPassword)

	repo.byEmail = &model.Customer{ID: 1, PasswordHash: first}
	id, err := svc.AuthenticateCustomer(context.Background(), "Jane@Example.com", "pass-word")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestRegisterCustomer_PasswordTooLong(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, testDefaults, DefaultRoutes())

	_, err := svc.RegisterCustomer(context.Background(), "jane@example.com", strings.Repeat("a", 73), "Jane", "Doe")
	require.ErrorIs(t, err, bcrypt.ErrPasswordTooLong)
	assert.Empty(t, repo.created.Email)
}

type stubRepo struct {
	created       model.Customer
	createID      int64
	createErr     error
	byEmail       *model.Customer
	byEmailErr    error
	byID          *model.Customer
	byIDErr       error
	settings      *model.OverlaySettings
	settingsErr   error
	savedChannel  string
	savedSettings model.OverlaySettings
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) CreateCustomer(ctx context.Context, c model.Customer) (int64, error) {
	s.created = c
	return s.createID, s.createErr
}

func (s *stubRepo) GetCustomerByEmail(ctx context.Context, email string) (*model.Customer, error) {
	return s.byEmail, s.byEmailErr
}

func (s *stubRepo) GetCustomerByID(ctx context.Context, id int64) (*model.Customer, error) {
	return s.byID, s.byIDErr
}

func (s *stubRepo) GetOverlaySettings(ctx context.Context, salesChannelID string) (*model.OverlaySettings, error) {
	if s.settings == nil && s.settingsErr == nil {
		return nil, repository.ErrSettingsNotFound
	}
	return s.settings, s.settingsErr
}

func (s *stubRepo) SaveOverlaySettings(ctx context.Context, salesChannelID string, settings model.OverlaySettings) error {
	s.savedChannel = salesChannelID
	s.savedSettings = settings
	return nil
}

var testDefaults = model.OverlaySettings{
	EnableCaching: true,
	CacheTimeout:  5 * time.Minute,
	LoadOnHover:   true,
}

func TestRegisterCustomer_NormalizesEmail(t *testing.T) {
	repo := &stubRepo{createID: 7}
	svc := NewService(repo, testDefaults, DefaultRoutes())

	id, err := svc.RegisterCustomer(context.Background(), "  Jane@Example.COM ", "secret", "Jane", "Doe")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, "jane@example.com", repo.created.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword(repo.created.PasswordHash, []byte("secret")))
}

func TestRegisterCustomer_PropagatesDuplicateError(t *testing.T) {
	repo := &stubRepo{
		createErr: repository.ErrCustomerExists,
	}
	svc := NewService(repo, testDefaults, DefaultRoutes())

	_, err := svc.RegisterCustomer(context.Background(), "jane@example.com", "secret", "Jane", "Doe")
	if !errors.Is(err, repository.ErrCustomerExists) {
		t.Fatalf("expected ErrCustomerExists, got %v", err)
	}
}

func TestAuthenticateCustomer(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name    string
		repo    *stubRepo
		pass    string
		wantID  int64
		wantErr error
	}{
		{
			name:   "valid",
			repo:   &stubRepo{byEmail: &model.Customer{ID: 3, PasswordHash: hashed}},
			pass:   "correct",
			wantID: 3,
		},
		{
			name:    "wrong password",
			repo:    &stubRepo{byEmail: &model.Customer{ID: 3, PasswordHash: hashed}},
			pass:    "wrong",
			wantErr: ErrInvalidCredentials,
		},
		{
			name:    "guest account",
			repo:    &stubRepo{byEmail: &model.Customer{ID: 3, PasswordHash: hashed, Guest: true}},
			pass:    "correct",
			wantErr: ErrInvalidCredentials,
		},
		{
			name:    "unknown email",
			repo:    &stubRepo{byEmailErr: repository.ErrCustomerNotFound},
			pass:    "correct",
			wantErr: ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.repo, testDefaults, DefaultRoutes())

			id, err := svc.AuthenticateCustomer(context.Background(), "jane@example.com", tt.pass)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestSettings_FallsBackToDefaults(t *testing.T) {
	svc := NewService(&stubRepo{}, testDefaults, DefaultRoutes())

	settings, err := svc.Settings(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Equal(t, testDefaults, settings)
}

func TestSettings_UsesStoredRow(t *testing.T) {
	stored := model.OverlaySettings{CacheTimeout: time.Minute, LoadOnClick: true}
	svc := NewService(&stubRepo{settings: &stored}, testDefaults, DefaultRoutes())

	settings, err := svc.Settings(context.Background(), "de")
	require.NoError(t, err)
	assert.Equal(t, stored, settings)
}

func TestSettings_PropagatesStorageError(t *testing.T) {
	svc := NewService(&stubRepo{settingsErr: errors.New("boom")}, testDefaults, DefaultRoutes())

	_, err := svc.Settings(context.Background(), "de")
	require.Error(t, err)
}

func TestUpdateSettings(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, testDefaults, DefaultRoutes())

	err := svc.UpdateSettings(context.Background(), "de", model.OverlaySettings{CacheTimeout: -time.Second})
	require.ErrorIs(t, err, ErrInvalidSettings)

	err = svc.UpdateSettings(context.Background(), "de", model.OverlaySettings{CacheTimeout: 1500 * time.Millisecond})
	require.ErrorIs(t, err, ErrInvalidSettings)
	assert.Empty(t, repo.savedChannel)

	err = svc.UpdateSettings(context.Background(), "", testDefaults)
	require.ErrorIs(t, err, ErrInvalidSettings)

	require.NoError(t, svc.UpdateSettings(context.Background(), "de", testDefaults))
	assert.Equal(t, "de", repo.savedChannel)
	assert.Equal(t, testDefaults, repo.savedSettings)
}

func TestOverlay_Guest(t *testing.T) {
	svc := NewService(&stubRepo{}, testDefaults, DefaultRoutes())

	payload, settings, err := svc.Overlay(context.Background(), 0, "default")
	require.NoError(t, err)

	assert.False(t, payload.IsLoggedIn)
	assert.Empty(t, payload.CustomerName)
	assert.Equal(t, model.Links{Login: "/account/login", Register: "/account/login"}, payload.Links)
	assert.Equal(t, testDefaults, settings)
	require.NotNil(t, payload.Config)
	assert.Equal(t, int64(300000), *payload.Config.CacheTimeout)
}

func TestOverlay_LoggedIn(t *testing.T) {
	repo := &stubRepo{
		byID: &model.Customer{ID: 9, Email: "jane@example.com", FirstName: "Jane", LastName: "Doe"},
	}
	svc := NewService(repo, testDefaults, DefaultRoutes())

	payload, _, err := svc.Overlay(context.Background(), 9, "default")
	require.NoError(t, err)

	assert.True(t, payload.IsLoggedIn)
	assert.Equal(t, "Jane Doe", payload.CustomerName)
	assert.Equal(t, "jane@example.com", payload.CustomerEmail)
	assert.Equal(t, model.Links{
		Overview:  "/account",
		Profile:   "/account/profile",
		Addresses: "/account/address",
		Orders:    "/account/order",
		Logout:    "/account/logout",
	}, payload.Links)
}

func TestOverlay_GuestCustomerTreatedAsAnonymous(t *testing.T) {
	repo := &stubRepo{
		byID: &model.Customer{ID: 9, FirstName: "Guest", Guest: true},
	}
	svc := NewService(repo, testDefaults, DefaultRoutes())

	payload, _, err := svc.Overlay(context.Background(), 9, "default")
	require.NoError(t, err)
	assert.False(t, payload.IsLoggedIn)
	assert.Empty(t, payload.CustomerName)
}

func TestOverlay_DeletedCustomerTreatedAsAnonymous(t *testing.T) {
	svc := NewService(&stubRepo{byIDErr: repository.ErrCustomerNotFound}, testDefaults, DefaultRoutes())

	payload, _, err := svc.Overlay(context.Background(), 9, "default")
	require.NoError(t, err)
	assert.False(t, payload.IsLoggedIn)
}

func TestOverlay_StorageError(t *testing.T) {
	svc := NewService(&stubRepo{byIDErr: errors.New("connection refused")}, testDefaults, DefaultRoutes())

	_, _, err := svc.Overlay(context.Background(), 9, "default")
	require.Error(t, err)
}
