// Package validation содержит проверки входных данных сервиса аккаунт-оверлея.
package validation

import (
	"net/mail"
	"strings"
	"time"
)

// MaxCacheTimeout ограничивает время жизни кеша оверлея сверху.
const MaxCacheTimeout = 24 * time.Hour

// MaxPasswordLength совпадает с пределом bcrypt: более длинные пароли не хешируются.
const MaxPasswordLength = 72

// IsValidEmail проверяет, что строка является одиночным адресом электронной почты без отображаемого имени.
func IsValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}

	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}

	return addr.Name == "" && addr.Address == email
}

// IsValidCacheTimeout проверяет, что таймаут кеша неотрицателен, не превышает MaxCacheTimeout
// и задан целым числом секунд: хранилище не держит дробных значений.
// Нулевое значение допустимо и означает отключённое кеширование ответа.
func IsValidCacheTimeout(d time.Duration) bool {
	return d >= 0 && d <= MaxCacheTimeout && d%time.Second == 0
}

// IsValidPassword проверяет минимальные требования к паролю.
func IsValidPassword(password string) bool {
	return len(password) >= 6 && len(password) <= MaxPasswordLength && strings.TrimSpace(password) != ""
}
