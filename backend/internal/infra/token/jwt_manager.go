package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTManager 基于对称密钥为管理端签发访问令牌。
type JWTManager struct {
	secret    string
	accessTTL time.Duration
}

// NewJWTManager 创建 JWT 管理器，配置签名密钥与访问令牌有效期。
func NewJWTManager(secret string, accessTTL time.Duration) *JWTManager {
	return &JWTManager{secret: secret, accessTTL: accessTTL}
}

// AccessToken 描述签发结果。
type AccessToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Issue 为指定主体签发访问令牌。
func (m *JWTManager) Issue(subject string) (AccessToken, error) {
	ttl := m.accessTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	expiresAt := time.Now().Add(ttl)

	claims := jwt.MapClaims{
		"sub": subject,
		"jti": uuid.NewString(),
		"exp": expiresAt.Unix(),
		"iat": time.Now().Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.secret))
	if err != nil {
		return AccessToken{}, fmt.Errorf("sign access token: %w", err)
	}

	return AccessToken{Token: signed, ExpiresAt: expiresAt}, nil
}
