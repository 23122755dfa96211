package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"crux-monitor-app/backend/internal/config"
	metricdomain "crux-monitor-app/backend/internal/domain/metric"
	sitedomain "crux-monitor-app/backend/internal/domain/site"
	"crux-monitor-app/backend/internal/infra/client"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// AppConfig 汇总启动期解析完成的外部依赖配置。
type AppConfig struct {
	MySQL client.MySQLConfig
}

// Resources 持有进程级共享资源：数据库连接与可选的 Redis。
type Resources struct {
	Config AppConfig
	DB     *gorm.DB
	SQLDB  *sql.DB
	Redis  *redis.Client
}

// Bootstrap 加载环境配置并建立数据库连接，完成表结构迁移。
// Redis 未配置时降级为不启用查询缓存，不算启动失败。
func Bootstrap(ctx context.Context) (*Resources, error) {
	config.LoadEnvFiles()

	mysqlCfg, err := client.LoadMySQLConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("load mysql config: %w", err)
	}

	gormDB, sqlDB, err := client.NewGORMMySQL(mysqlCfg)
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}

	if err := gormDB.AutoMigrate(&sitedomain.Site{}, &metricdomain.Snapshot{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	resources := &Resources{
		Config: AppConfig{MySQL: mysqlCfg},
		DB:     gormDB,
		SQLDB:  sqlDB,
	}

	redisOpts, enabled, err := client.LoadRedisOptionsFromEnv()
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("load redis config: %w", err)
	}
	if enabled {
		redisClient, err := client.NewRedisClient(redisOpts)
		if err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		resources.Redis = redisClient
	} else {
		log.Println("[app] redis not configured, query cache disabled")
	}

	return resources, nil
}

// Close 释放进程级资源。
func (r *Resources) Close() error {
	if r == nil {
		return nil
	}
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			return err
		}
	}
	if r.SQLDB != nil {
		if err := r.SQLDB.Close(); err != nil {
			return err
		}
	}
	return nil
}
