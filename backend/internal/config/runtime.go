package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	defaultPort      = "3000"
	defaultAccessTTL = 12 * time.Hour
)

// Runtime 汇总 HTTP 服务与后台管理鉴权所需的运行期配置。
type Runtime struct {
	Port              string
	JWTSecret         string
	AdminUsername     string
	AdminPasswordHash string
	AccessTTL         time.Duration
}

// LoadRuntime 从环境变量读取运行期配置并校验必填项。
// 管理端三元组（用户名/密码哈希/签名密钥）缺一不可，缺失视为启动失败。
func LoadRuntime() (Runtime, error) {
	LoadEnvFiles()

	cfg := Runtime{
		Port:              strings.TrimSpace(os.Getenv("PORT")),
		JWTSecret:         strings.TrimSpace(os.Getenv("ADMIN_JWT_SECRET")),
		AdminUsername:     strings.TrimSpace(os.Getenv("ADMIN_USERNAME")),
		AdminPasswordHash: strings.TrimSpace(os.Getenv("ADMIN_PASSWORD_HASH")),
		AccessTTL:         defaultAccessTTL,
	}

	if cfg.Port == "" {
		cfg.Port = defaultPort
	}

	if raw := strings.TrimSpace(os.Getenv("ADMIN_TOKEN_TTL")); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return Runtime{}, fmt.Errorf("invalid ADMIN_TOKEN_TTL: %w", err)
		}
		if ttl > 0 {
			cfg.AccessTTL = ttl
		}
	}

	if cfg.JWTSecret == "" {
		return Runtime{}, fmt.Errorf("ADMIN_JWT_SECRET is required")
	}
	if cfg.AdminUsername == "" {
		return Runtime{}, fmt.Errorf("ADMIN_USERNAME is required")
	}
	if cfg.AdminPasswordHash == "" {
		return Runtime{}, fmt.Errorf("ADMIN_PASSWORD_HASH is required")
	}

	return cfg, nil
}
