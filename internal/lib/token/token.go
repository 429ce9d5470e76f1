// Package token генерирует непрозрачные случайные идентификаторы:
// сессионные токены лаунчера и ключи активации. Источник случайности —
// crypto/rand, угадывание токена перебором практически исключено.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// KeyPrefix — фиксированный префикс ключей активации.
const KeyPrefix = "RAVEN-"

const keyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const keyLength = 16

// NewSessionToken возвращает 64-символьный hex-токен сессии.
func NewSessionToken() (string, error) {
	const op = "token.NewSessionToken"
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return hex.EncodeToString(buf), nil
}

// NewRedemptionKey возвращает ключ активации вида RAVEN-XXXXXXXXXXXXXXXX,
// где X — случайная заглавная буква или цифра.
func NewRedemptionKey() (string, error) {
	const op = "token.NewRedemptionKey"
	out := make([]byte, keyLength)
	max := big.NewInt(int64(len(keyAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		out[i] = keyAlphabet[n.Int64()]
	}
	return KeyPrefix + string(out), nil
}
