package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"casino-backend/internal/config"
)

const tokenIssuer = "casino-backend"

type Claims struct {
	Player    string `json:"player"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// JWTService issues the resume tokens handed out on login. The same tokens
// authorize the REST endpoints.
type JWTService struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTService(cfg *config.Config) *JWTService {
	return &JWTService{secret: []byte(cfg.JWTSecret), ttl: cfg.JWTTTL}
}

func (j *JWTService) GenerateToken(player, sessionID string) (string, error) {
	now := time.Now()
	claims := Claims{
		Player:    player,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   player,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

func (j *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return j.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Player == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
