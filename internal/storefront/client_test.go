package storefront

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/account-overlay/internal/model"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	c, err := NewClient(ts.URL)
	require.NoError(t, err)
	return c
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestFetchConfig_OK(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/account/overlay/config", r.URL.Path)
		assert.Equal(t, "XMLHttpRequest", r.Header.Get("X-Requested-With"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"cacheTimeout":60000,"loadOnClick":true}`))
	}))

	cfg, err := c.FetchConfig(testContext(t), "/account/overlay/config")
	require.NoError(t, err)

	require.NotNil(t, cfg.CacheTimeout)
	assert.Equal(t, int64(60000), *cfg.CacheTimeout)
	require.NotNil(t, cfg.LoadOnClick)
	assert.True(t, *cfg.LoadOnClick)
	assert.Nil(t, cfg.LoadOnHover)
	assert.Nil(t, cfg.EnableCaching)
}

func TestFetchOverlay_OK(t *testing.T) {
	want := model.OverlayPayload{
		IsLoggedIn:   true,
		CustomerName: "Jane Doe",
		Links:        model.Links{Overview: "/o", Profile: "/p", Addresses: "/a", Orders: "/r", Logout: "/l"},
	}

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(want)
	}))

	got, err := c.FetchOverlay(testContext(t), "/account/overlay")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFetch_UnexpectedStatus(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := c.FetchOverlay(testContext(t), "/account/overlay")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedStatus))

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.Code)
}

func TestFetch_MalformedBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"cacheTimeout":`))
	}))

	_, err := c.FetchConfig(testContext(t), "/account/overlay/config")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnexpectedStatus))
	assert.Contains(t, err.Error(), "decode response")
}

func TestLogin_KeepsSessionCookie(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/account/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "overlay_session", Value: "token", Path: "/"})
	})
	mux.HandleFunc("/account/overlay", func(w http.ResponseWriter, r *http.Request) {
		_, err := r.Cookie("overlay_session")
		_ = json.NewEncoder(w).Encode(model.OverlayPayload{IsLoggedIn: err == nil})
	})

	c := newTestClient(t, mux)
	ctx := testContext(t)

	err := c.Login(ctx, "/account/login", "jane@example.com", "wrong")
	assert.True(t, errors.Is(err, ErrUnexpectedStatus))

	payload, err := c.FetchOverlay(ctx, "/account/overlay")
	require.NoError(t, err)
	assert.False(t, payload.IsLoggedIn)

	require.NoError(t, c.Login(ctx, "/account/login", "jane@example.com", "secret"))

	payload, err = c.FetchOverlay(ctx, "/account/overlay")
	require.NoError(t, err)
	assert.True(t, payload.IsLoggedIn)
}

func TestNewClient_AddsScheme(t *testing.T) {
	c, err := NewClient("localhost:8080/")
	require.NoError(t, err)

	req, err := c.newRequest(context.Background(), http.MethodGet, "/account/overlay", nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(req.URL.String(), "http://localhost:8080/account/overlay"))
}
