package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/retrato-app/retrato/config"
)

// ErrInvalidToken 令牌无效或已过期
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenManager JWT 会话令牌管理器
type TokenManager struct {
	secret    []byte
	expiresIn time.Duration
}

// NewTokenManager 创建新的 Token 管理器
func NewTokenManager(cfg *config.Config) (*TokenManager, error) {
	if len(cfg.JwtSecret) < 32 {
		return nil, fmt.Errorf("JWT secret must be at least 32 characters long, got %d", len(cfg.JwtSecret))
	}

	expiresIn, err := time.ParseDuration(cfg.JwtExpiresIn)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT expires_in: %s", cfg.JwtExpiresIn)
	}

	return &TokenManager{
		secret:    []byte(cfg.JwtSecret),
		expiresIn: expiresIn,
	}, nil
}

// GenerateAccessToken 为所有者标识签发访问令牌
func (tm *TokenManager) GenerateAccessToken(ownerID string) (string, time.Time, error) {
	expiry := time.Now().Add(tm.expiresIn)
	claims := jwt.MapClaims{
		"owner_id": ownerID,
		"type":     "access",
		"exp":      expiry.Unix(),
		"iat":      time.Now().Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate access token: %w", err)
	}

	return token, expiry, nil
}

// ParseToken 解析并验证访问令牌，返回所有者标识
func (tm *TokenManager) ParseToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}

	ownerID, ok := claims["owner_id"].(string)
	if !ok || ownerID == "" {
		return "", ErrInvalidToken
	}

	return ownerID, nil
}

// ExpiresIn 返回令牌有效期
func (tm *TokenManager) ExpiresIn() time.Duration {
	return tm.expiresIn
}
