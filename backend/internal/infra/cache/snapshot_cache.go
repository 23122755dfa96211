// Package cache 提供查询结果的 Redis 缓存。
// 这是对旧版前端里按 URL+设备类型做进程内缓存的显式化改造：
// 生命周期通过 TTL 与站点版本号控制，不再依赖模块级共享状态。
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"crux-monitor-app/backend/internal/domain/metric"

	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL = 10 * time.Minute

	envCacheTTL = "QUERY_CACHE_TTL"

	keyPrefix        = "crux:q:"
	versionKeyPrefix = "crux:qv:"
)

// SnapshotCache 缓存按查询参数物化的快照列表。
// 客户端为 nil 时所有操作都是空操作，调用方无需判空分支。
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotCache 构造缓存组件，ttl<=0 时使用默认 10 分钟。
func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &SnapshotCache{client: client, ttl: ttl}
}

// TTLFromEnv 解析 QUERY_CACHE_TTL，非法或缺失时返回默认值。
func TTLFromEnv() time.Duration {
	raw := strings.TrimSpace(os.Getenv(envCacheTTL))
	if raw == "" {
		return defaultTTL
	}
	ttl, err := time.ParseDuration(raw)
	if err != nil || ttl <= 0 {
		return defaultTTL
	}
	return ttl
}

// Enabled 报告缓存是否可用。
func (c *SnapshotCache) Enabled() bool {
	return c != nil && c.client != nil
}

// Key 由站点当前版本号与查询参数拼出缓存键。
// 版本号随每次新快照写入递增，旧键不再命中，靠 TTL 自然过期，无需 SCAN 清理。
func (c *SnapshotCache) Key(ctx context.Context, siteID, metricName, formFactor, period, groupBy string) (string, error) {
	if !c.Enabled() {
		return "", nil
	}

	version, err := c.client.Get(ctx, versionKeyPrefix+siteID).Result()
	if err != nil {
		if err != redis.Nil {
			return "", fmt.Errorf("get site cache version: %w", err)
		}
		version = "0"
	}

	return fmt.Sprintf("%s%s:%s:%s:%s:%s:%s",
		keyPrefix, siteID, version, metricName, formFactor, period, groupBy), nil
}

// Get 读取缓存命中的快照列表，未命中时第二个返回值为 false。
func (c *SnapshotCache) Get(ctx context.Context, key string) ([]metric.Snapshot, bool) {
	if !c.Enabled() || key == "" {
		return nil, false
	}

	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}

	var snapshots []metric.Snapshot
	if err := json.Unmarshal(payload, &snapshots); err != nil {
		return nil, false
	}
	return snapshots, true
}

// Set 写入查询结果，序列化失败或写入失败时静默放弃（缓存不可影响主流程）。
func (c *SnapshotCache) Set(ctx context.Context, key string, snapshots []metric.Snapshot) {
	if !c.Enabled() || key == "" {
		return
	}

	payload, err := json.Marshal(snapshots)
	if err != nil {
		return
	}
	c.client.Set(ctx, key, payload, c.ttl)
}

// BumpSite 使站点的所有缓存条目失效（版本号自增）。
func (c *SnapshotCache) BumpSite(ctx context.Context, siteID string) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Incr(ctx, versionKeyPrefix+siteID).Err()
}
