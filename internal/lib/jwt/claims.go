// Package jwt реализует генерацию и парсинг JWT токенов операторов
// панели магазина.
package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// OperatorClaims описывает данные оператора, хранящиеся в JWT.
type OperatorClaims struct {
	OperatorID           int64  `json:"operator_id"` // Внешний id оператора
	Username             string `json:"username"`    // Логин оператора
	jwt.RegisteredClaims        // Стандартные claims (ExpiresAt, IssuedAt и пр.)
}

// Maker описывает интерфейс для генерации и парсинга токенов операторов.
type Maker interface {
	GenerateToken(operatorID int64, username string) (string, error)
	ParseToken(tokenStr string) (*OperatorClaims, error)
}

// MakerImpl реализует Maker с секретным ключом и временем жизни токена.
type MakerImpl struct {
	secretKey string
	tokenTTL  time.Duration
}

// NewMaker создаёт новый экземпляр MakerImpl.
func NewMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
	}
}
