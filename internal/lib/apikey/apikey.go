// Package apikey выводит общий секрет API лаунчера из парольной фразы.
// Схема согласована с лаунчером: первые 32 hex-символа sha256 от фразы.
// Сама фраза приходит из конфигурации и нигде не зашита в код.
package apikey

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Derive возвращает ключ API для заданной парольной фразы.
func Derive(passphrase string) string {
	sum := sha256.Sum256([]byte(passphrase))
	return hex.EncodeToString(sum[:])[:32]
}

// Verify сравнивает предъявленный ключ с ожидаемым за постоянное время.
func Verify(expected, presented string) bool {
	return subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) == 1
}
