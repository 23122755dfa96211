package auth

import (
	"errors"

	"crux-monitor-app/backend/internal/infra/token"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials 表示用户名或密码不匹配。
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service 校验管理员凭据并签发访问令牌。
// 管理端只有一个主体，凭据来自环境变量，密码以 bcrypt 哈希保存。
type Service struct {
	username     string
	passwordHash string
	tokens       *token.JWTManager
}

// NewService 构造鉴权服务。
func NewService(username, passwordHash string, tokens *token.JWTManager) *Service {
	return &Service{username: username, passwordHash: passwordHash, tokens: tokens}
}

// Login 校验凭据，成功时返回访问令牌。
func (s *Service) Login(username, password string) (token.AccessToken, error) {
	if username != s.username {
		return token.AccessToken{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
		return token.AccessToken{}, ErrInvalidCredentials
	}
	return s.tokens.Issue(username)
}
