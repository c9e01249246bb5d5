// Package render собирает разметку меню аккаунта, совпадающую с серверной версией витрины.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/mmeshcher/account-overlay/internal/model"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// Overlay возвращает разметку меню для покупателя или гостя в зависимости от payload.IsLoggedIn.
func Overlay(payload model.OverlayPayload) (string, error) {
	name := "guest.html"
	if payload.IsLoggedIn {
		name = "member.html"
	}
	return execute(name, payload)
}

// Error возвращает панель ошибки со ссылкой на страницу входа.
func Error(loginURL string) (string, error) {
	return execute("error.html", struct{ LoginURL string }{loginURL})
}

func execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("execute template %s: %w", name, err)
	}
	return buf.String(), nil
}
