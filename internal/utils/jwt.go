// internal/utils/jwt.go
package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/javajoker/nepshop-backend/internal/models"
)

const tokenIssuer = "nepshop"

type JWTClaims struct {
	UserID string      `json:"user_id"`
	Name   string      `json:"name"`
	Role   models.Role `json:"role"`
	Avatar string      `json:"avatar,omitempty"`
	jwt.RegisteredClaims
}

// Identity converts verified claims into the caller identity used by services.
func (c *JWTClaims) Identity() (models.Identity, error) {
	userID, err := uuid.Parse(c.UserID)
	if err != nil {
		return models.Identity{}, errors.New("invalid user id in token")
	}
	if !c.Role.Valid() {
		return models.Identity{}, errors.New("invalid role in token")
	}

	return models.Identity{
		UserID:    userID,
		Role:      c.Role,
		Name:      c.Name,
		AvatarURL: c.Avatar,
	}, nil
}

type JWTManager struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTManager(secret string, ttlHours int) *JWTManager {
	return &JWTManager{
		secret: []byte(secret),
		ttl:    time.Duration(ttlHours) * time.Hour,
	}
}

func (m *JWTManager) Generate(identity models.Identity) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		UserID: identity.UserID.String(),
		Name:   identity.Name,
		Role:   identity.Role,
		Avatar: identity.AvatarURL,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   identity.UserID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *JWTManager) Validate(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
