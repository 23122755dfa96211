package site

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Site 对应被监控的站点记录。
type Site struct {
	ID        string    `gorm:"type:char(36);primaryKey" json:"id"`     // 主键 UUID
	URL       string    `gorm:"size:512;uniqueIndex;not null" json:"url"` // 站点地址，全局唯一
	Name      string    `gorm:"size:255;not null" json:"name"`          // 展示名称
	IsActive  bool      `gorm:"default:true" json:"isActive"`           // 是否参与定时采集
	CreatedAt time.Time `json:"createdAt"`                              // 创建时间
	UpdatedAt time.Time `json:"updatedAt"`                              // 更新时间
}

// TableName 指定数据库表名。
func (Site) TableName() string {
	return "sites"
}

// BeforeCreate 在写入前补齐 UUID 主键。
func (s *Site) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
