package repository

import (
	"context"

	"crux-monitor-app/backend/internal/domain/site"

	"gorm.io/gorm"
)

// SiteRepository 提供 sites 表的读写封装。
type SiteRepository struct {
	db *gorm.DB
}

// NewSiteRepository 构造仓储实例。
func NewSiteRepository(db *gorm.DB) *SiteRepository {
	return &SiteRepository{db: db}
}

// List 按创建时间倒序返回全部站点。
func (r *SiteRepository) List(ctx context.Context) ([]site.Site, error) {
	var sites []site.Site
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&sites).Error; err != nil {
		return nil, err
	}
	return sites, nil
}

// FindActive 返回所有参与定时采集的站点。
func (r *SiteRepository) FindActive(ctx context.Context) ([]site.Site, error) {
	var sites []site.Site
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Find(&sites).Error; err != nil {
		return nil, err
	}
	return sites, nil
}

// FindByID 根据主键查找站点。
func (r *SiteRepository) FindByID(ctx context.Context, id string) (*site.Site, error) {
	var record site.Site
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByURL 根据唯一地址查找站点。
func (r *SiteRepository) FindByURL(ctx context.Context, url string) (*site.Site, error) {
	var record site.Site
	if err := r.db.WithContext(ctx).First(&record, "url = ?", url).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// Create 新增站点。
func (r *SiteRepository) Create(ctx context.Context, record *site.Site) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// Update 按主键保存站点变更。
func (r *SiteRepository) Update(ctx context.Context, record *site.Site) error {
	return r.db.WithContext(ctx).Save(record).Error
}
