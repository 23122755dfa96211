package handler

import (
	"errors"
	"net/http"

	response "crux-monitor-app/backend/internal/infra/common"
	appLogger "crux-monitor-app/backend/internal/infra/logger"
	sitesvc "crux-monitor-app/backend/internal/service/site"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SiteHandler 提供站点管理的 HTTP 入口。
type SiteHandler struct {
	service *sitesvc.Service
	logger  *zap.SugaredLogger
}

// NewSiteHandler 构造 handler。
func NewSiteHandler(service *sitesvc.Service) *SiteHandler {
	return &SiteHandler{
		service: service,
		logger:  appLogger.S().With("component", "site.handler"),
	}
}

type createSiteRequest struct {
	URL      string `json:"url" binding:"required"`
	Name     string `json:"name" binding:"required"`
	IsActive *bool  `json:"isActive"`
}

type updateSiteRequest struct {
	Name     *string `json:"name"`
	IsActive *bool   `json:"isActive"`
}

// List 返回全部站点。
func (h *SiteHandler) List(c *gin.Context) {
	sites, err := h.service.List(c.Request.Context())
	if err != nil {
		h.logger.Errorw("list sites failed", "error", err)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "list sites failed", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"items": sites}, nil)
}

// Create 新增被监控站点，仅限管理员。
func (h *SiteHandler) Create(c *gin.Context) {
	var req createSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	record, err := h.service.Create(c.Request.Context(), sitesvc.CreateParams{
		URL:      req.URL,
		Name:     req.Name,
		IsActive: req.IsActive,
	})
	if err != nil {
		if errors.Is(err, sitesvc.ErrURLConflict) {
			response.Fail(c, http.StatusConflict, response.ErrConflict, "site url already exists", nil)
			return
		}
		h.logger.Warnw("create site failed", "error", err, "url", req.URL)
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	response.Created(c, record, nil)
}

// Update 编辑站点名称与采集开关，仅限管理员。
func (h *SiteHandler) Update(c *gin.Context) {
	id := c.Param("id")

	var req updateSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	record, err := h.service.Update(c.Request.Context(), id, sitesvc.UpdateParams{
		Name:     req.Name,
		IsActive: req.IsActive,
	})
	if err != nil {
		if errors.Is(err, sitesvc.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound, "site not found", nil)
			return
		}
		h.logger.Warnw("update site failed", "error", err, "id", id)
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	response.Success(c, http.StatusOK, record, nil)
}
