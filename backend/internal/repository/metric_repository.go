package repository

import (
	"context"
	"time"

	"crux-monitor-app/backend/internal/domain/metric"

	"gorm.io/gorm"
)

// MetricRepository 提供 metrics 表的读写封装。快照只插入、不更新。
type MetricRepository struct {
	db *gorm.DB
}

// NewMetricRepository 构造仓储实例。
func NewMetricRepository(db *gorm.DB) *MetricRepository {
	return &MetricRepository{db: db}
}

// Insert 追加一条快照。
func (r *MetricRepository) Insert(ctx context.Context, snapshot *metric.Snapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

// FindBySiteAndPeriod 返回指定站点采集区间起点不早于 periodStart 的快照，
// 按区间起点升序排列。
func (r *MetricRepository) FindBySiteAndPeriod(ctx context.Context, siteID string, periodStart time.Time) ([]metric.Snapshot, error) {
	var snapshots []metric.Snapshot
	if err := r.db.WithContext(ctx).
		Where("site_id = ? AND collection_period_start >= ?", siteID, periodStart).
		Order("collection_period_start ASC").
		Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}
