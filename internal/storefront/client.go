// Package storefront предоставляет HTTP-клиент виджета для эндпоинтов витрины.
package storefront

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/mmeshcher/account-overlay/internal/model"
)

// ErrUnexpectedStatus возвращается, если витрина ответила статусом вне диапазона 2xx.
var ErrUnexpectedStatus = errors.New("unexpected status")

// StatusError содержит код ответа, отличный от 2xx.
type StatusError struct {
	Method string
	URL    string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %s: %d", e.Method, e.URL, ErrUnexpectedStatus, e.Code)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// Client инкапсулирует HTTP-взаимодействие виджета с витриной.
// Cookie сессии хранятся в общем jar, как у браузера на одном origin.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// NewClient создаёт клиент витрины по указанному адресу.
func NewClient(baseURL string) (*Client, error) {
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}

	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
			Jar:     jar,
		},
	}, nil
}

// FetchConfig запрашивает конфигурацию виджета.
func (c *Client) FetchConfig(ctx context.Context, path string) (model.RemoteConfig, error) {
	var cfg model.RemoteConfig
	if err := c.getJSON(ctx, path, &cfg); err != nil {
		return model.RemoteConfig{}, err
	}
	return cfg, nil
}

// FetchOverlay запрашивает содержимое меню аккаунта.
func (c *Client) FetchOverlay(ctx context.Context, path string) (model.OverlayPayload, error) {
	var payload model.OverlayPayload
	if err := c.getJSON(ctx, path, &payload); err != nil {
		return model.OverlayPayload{}, err
	}
	return payload, nil
}

// Login открывает сессию покупателя; полученная cookie используется последующими запросами.
func (c *Client) Login(ctx context.Context, path, email, password string) error {
	body, err := json.Marshal(struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{email, password})
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: req.Method, URL: req.URL.String(), Code: resp.StatusCode}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parse path %q: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.ResolveReference(ref).String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Method: req.Method, URL: req.URL.String(), Code: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
