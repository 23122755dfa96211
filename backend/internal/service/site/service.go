package site

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	sitedomain "crux-monitor-app/backend/internal/domain/site"
	"crux-monitor-app/backend/internal/repository"

	"gorm.io/gorm"
)

var (
	// ErrNotFound 表示站点不存在。
	ErrNotFound = errors.New("site not found")
	// ErrURLConflict 表示站点地址已被占用。
	ErrURLConflict = errors.New("site url already exists")
)

// CreateParams 描述新增站点所需的字段。
type CreateParams struct {
	URL      string
	Name     string
	IsActive *bool
}

// UpdateParams 描述可部分更新的字段，nil 表示保持原值。
type UpdateParams struct {
	Name     *string
	IsActive *bool
}

// Service 承载站点的增改查规则。
type Service struct {
	repo *repository.SiteRepository
}

// NewService 构造站点服务。
func NewService(repo *repository.SiteRepository) *Service {
	return &Service{repo: repo}
}

// List 返回全部站点，按创建时间倒序。
func (s *Service) List(ctx context.Context) ([]sitedomain.Site, error) {
	return s.repo.List(ctx)
}

// FindByID 按主键查找站点，不存在时返回 ErrNotFound。
func (s *Service) FindByID(ctx context.Context, id string) (*sitedomain.Site, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return record, nil
}

// Create 新增站点：校验 URL 格式、保证地址唯一，默认参与采集。
func (s *Service) Create(ctx context.Context, params CreateParams) (*sitedomain.Site, error) {
	rawURL := strings.TrimSpace(params.URL)
	name := strings.TrimSpace(params.Name)
	if rawURL == "" || name == "" {
		return nil, fmt.Errorf("url and name are required")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid url format: %q", rawURL)
	}

	if _, err := s.repo.FindByURL(ctx, rawURL); err == nil {
		return nil, ErrURLConflict
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	record := &sitedomain.Site{
		URL:      rawURL,
		Name:     name,
		IsActive: true,
	}
	if params.IsActive != nil {
		record.IsActive = *params.IsActive
	}

	if err := s.repo.Create(ctx, record); err != nil {
		// 并发创建时唯一索引兜底。
		if strings.Contains(strings.ToLower(err.Error()), "duplicate") ||
			strings.Contains(strings.ToLower(err.Error()), "unique") {
			return nil, ErrURLConflict
		}
		return nil, err
	}
	return record, nil
}

// Update 部分更新站点的名称与采集开关。
func (s *Service) Update(ctx context.Context, id string, params UpdateParams) (*sitedomain.Site, error) {
	record, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			return nil, fmt.Errorf("name must not be empty")
		}
		record.Name = name
	}
	if params.IsActive != nil {
		record.IsActive = *params.IsActive
	}

	if err := s.repo.Update(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}
