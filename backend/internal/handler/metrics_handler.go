package handler

import (
	"context"
	"errors"
	"net/http"

	response "crux-monitor-app/backend/internal/infra/common"
	appLogger "crux-monitor-app/backend/internal/infra/logger"
	querysvc "crux-monitor-app/backend/internal/service/metricsquery"
	sitesvc "crux-monitor-app/backend/internal/service/site"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CollectionTrigger 抽象手动触发采集的能力。
type CollectionTrigger interface {
	TryRunAsync(ctx context.Context) bool
}

// MetricsHandler 提供快照查询与手动采集触发的 HTTP 入口。
type MetricsHandler struct {
	query     *querysvc.Service
	sites     *sitesvc.Service
	collector CollectionTrigger
	logger    *zap.SugaredLogger
}

// NewMetricsHandler 构造 handler。
func NewMetricsHandler(query *querysvc.Service, sites *sitesvc.Service, collector CollectionTrigger) *MetricsHandler {
	return &MetricsHandler{
		query:     query,
		sites:     sites,
		collector: collector,
		logger:    appLogger.S().With("component", "metrics.handler"),
	}
}

type metricsQueryRequest struct {
	Metric     string `form:"metric"`
	FormFactor string `form:"formFactor"`
	Period     string `form:"period"`
	GroupBy    string `form:"groupBy"`
}

// GetMetrics 返回站点在指定时间窗内的快照序列。
// 查询失败直接整体报错，不返回残缺图表数据。
func (h *MetricsHandler) GetMetrics(c *gin.Context) {
	siteID := c.Param("siteId")

	var req metricsQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	if _, err := h.sites.FindByID(c.Request.Context(), siteID); err != nil {
		if errors.Is(err, sitesvc.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound, "site not found", nil)
			return
		}
		h.logger.Errorw("load site failed", "error", err, "site_id", siteID)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "load site failed", nil)
		return
	}

	snapshots, err := h.query.Query(c.Request.Context(), querysvc.Params{
		SiteID:     siteID,
		Metric:     req.Metric,
		FormFactor: req.FormFactor,
		Period:     querysvc.Period(req.Period),
		GroupBy:    querysvc.GroupBy(req.GroupBy),
	})
	if err != nil {
		if errors.Is(err, querysvc.ErrInvalidParams) {
			response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
			return
		}
		h.logger.Errorw("query metrics failed", "error", err, "site_id", siteID)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "query metrics failed", nil)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"items": snapshots}, nil)
}

// TriggerCollection 手动触发一轮采集，仅限管理员。
// 上一轮未结束时返回 409，触发被丢弃而非排队。
func (h *MetricsHandler) TriggerCollection(c *gin.Context) {
	if h.collector == nil {
		response.Fail(c, http.StatusServiceUnavailable, response.ErrInternal, "collector not available", nil)
		return
	}

	// 采集串行且可能耗时数分钟，在后台执行，不占住请求协程。
	runCtx := context.WithoutCancel(c.Request.Context())
	if accepted := h.collector.TryRunAsync(runCtx); !accepted {
		response.Fail(c, http.StatusConflict, response.ErrCollectionRunning, "collection run already in progress", nil)
		return
	}
	response.Success(c, http.StatusAccepted, gin.H{"status": "started"}, nil)
}
