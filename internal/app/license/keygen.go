package license

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

const (
	keyBytes = 8
	// KeyLength длина ключа вместе с дефисами: XXXX-XXXX-XXXX-XXXX
	KeyLength = 19
)

var keyPattern = regexp.MustCompile(`^[A-F0-9]{4}-[A-F0-9]{4}-[A-F0-9]{4}-[A-F0-9]{4}$`)

// GenerateKey возвращает новый ключ из 64 случайных бит в виде
// четырёх групп по четыре hex-символа в верхнем регистре.
func GenerateKey() (string, error) {
	buf := make([]byte, keyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	raw := strings.ToUpper(hex.EncodeToString(buf))
	groups := make([]string, 0, 4)
	for i := 0; i < len(raw); i += 4 {
		groups = append(groups, raw[i:i+4])
	}
	return strings.Join(groups, "-"), nil
}

// ValidKey проверяет формат ключа.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}

// NormalizeKey приводит ключ, введённый пользователем, к каноническому виду.
func NormalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}
