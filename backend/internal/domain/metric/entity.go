package metric

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Snapshot 对应一次采集落库的站点性能快照。
// 记录只增不改：payload 写入后不再变更，清理与保留策略不在本服务范围内。
type Snapshot struct {
	ID                    string         `gorm:"type:char(36);primaryKey" json:"id"`                       // 主键 UUID
	SiteID                string         `gorm:"type:char(36);index;not null" json:"siteId"`               // 所属站点
	CreateCollectionDate  time.Time      `gorm:"type:date" json:"createCollectionDate"`                    // 调度器执行采集的日期
	CollectionPeriodStart time.Time      `gorm:"type:date;index" json:"collectionPeriodStart"`             // 上游报告区间起点
	CollectionPeriodEnd   time.Time      `gorm:"type:date" json:"collectionPeriodEnd"`                     // 上游报告区间终点
	CruxData              datatypes.JSON `gorm:"type:json" json:"cruxData"`                                // 上游完整响应，原样保存
	CreatedAt             time.Time      `json:"createdAt"`                                                // 入库时间
}

// TableName 指定数据库表名。
func (Snapshot) TableName() string {
	return "metrics"
}

// BeforeCreate 在写入前补齐 UUID 主键。
func (s *Snapshot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
