// Package metricsquery 实现面向仪表盘的快照查询：
// 时间窗过滤、指标与设备类型筛选、按日/周/月降采样。
package metricsquery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"crux-monitor-app/backend/internal/domain/metric"
	"crux-monitor-app/backend/internal/infra/cache"
	"crux-monitor-app/backend/internal/infra/crux"
	appLogger "crux-monitor-app/backend/internal/infra/logger"
	"crux-monitor-app/backend/internal/repository"

	"go.uber.org/zap"
)

// Period 为查询时间窗。
type Period string

const (
	PeriodMonth      Period = "1m"
	PeriodQuarter    Period = "3m"
	PeriodHalfYear   Period = "6m"
	PeriodYear       Period = "1y"
)

// GroupBy 为降采样粒度。
type GroupBy string

const (
	GroupByDay   GroupBy = "day"
	GroupByWeek  GroupBy = "week"
	GroupByMonth GroupBy = "month"
)

// FormFactorAll 表示不过滤设备类型（聚合记录）。
const FormFactorAll = "ALL"

// ErrInvalidParams 表示查询条件不合法，调用方应映射为 400。
var ErrInvalidParams = errors.New("invalid query params")

// Params 描述一次查询的全部条件。
type Params struct {
	SiteID     string
	Metric     string
	FormFactor string
	Period     Period
	GroupBy    GroupBy
}

// normalize 填充默认值并校验枚举取值。
func (p *Params) normalize() error {
	if strings.TrimSpace(p.SiteID) == "" {
		return fmt.Errorf("%w: site id is required", ErrInvalidParams)
	}
	if p.FormFactor == "" {
		p.FormFactor = FormFactorAll
	}
	if p.Period == "" {
		p.Period = PeriodMonth
	}
	if p.GroupBy == "" {
		p.GroupBy = GroupByDay
	}

	switch p.Period {
	case PeriodMonth, PeriodQuarter, PeriodHalfYear, PeriodYear:
	default:
		return fmt.Errorf("%w: invalid period %q", ErrInvalidParams, p.Period)
	}
	switch p.GroupBy {
	case GroupByDay, GroupByWeek, GroupByMonth:
	default:
		return fmt.Errorf("%w: invalid groupBy %q", ErrInvalidParams, p.GroupBy)
	}
	switch strings.ToUpper(p.FormFactor) {
	case FormFactorAll, string(crux.FormFactorPhone), string(crux.FormFactorTablet), string(crux.FormFactorDesktop):
		p.FormFactor = strings.ToUpper(p.FormFactor)
	default:
		return fmt.Errorf("%w: invalid formFactor %q", ErrInvalidParams, p.FormFactor)
	}
	return nil
}

// Service 是查询引擎。存储层错误原样上抛，不做部分降级。
type Service struct {
	snapshots  *repository.MetricRepository
	queryCache *cache.SnapshotCache
	logger     *zap.SugaredLogger
	now        func() time.Time
}

// NewService 构造查询引擎，logger 为空时使用默认日志实例。
func NewService(snapshots *repository.MetricRepository, queryCache *cache.SnapshotCache, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = appLogger.S().With("component", "service.metricsquery")
	}
	return &Service{
		snapshots:  snapshots,
		queryCache: queryCache,
		logger:     logger,
		now:        time.Now,
	}
}

// Query 返回时间升序的快照列表，每条仍携带完整 payload 供调用方自行取值。
func (s *Service) Query(ctx context.Context, params Params) ([]metric.Snapshot, error) {
	if err := params.normalize(); err != nil {
		return nil, err
	}

	cacheKey := ""
	if s.queryCache.Enabled() {
		key, err := s.queryCache.Key(ctx, params.SiteID, params.Metric, params.FormFactor, string(params.Period), string(params.GroupBy))
		if err != nil {
			s.logger.Warnw("build cache key failed", "error", err)
		} else {
			cacheKey = key
			if cached, ok := s.queryCache.Get(ctx, cacheKey); ok {
				return cached, nil
			}
		}
	}

	// 第一步：存储层按站点与时间窗过滤，时间升序。
	snapshots, err := s.snapshots.FindBySiteAndPeriod(ctx, params.SiteID, s.periodStart(params.Period))
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}

	// 第二、三步：按指标名与设备类型在内存中筛选。
	if params.Metric != "" || params.FormFactor != FormFactorAll {
		snapshots = s.filterByPayload(snapshots, params.Metric, params.FormFactor)
	}

	// 第四步：按粒度降采样，day 原样返回。
	if params.GroupBy != GroupByDay {
		snapshots = groupSnapshots(snapshots, params.GroupBy)
	}

	if cacheKey != "" {
		s.queryCache.Set(ctx, cacheKey, snapshots)
	}
	return snapshots, nil
}

// periodStart 把时间窗换算成存储层过滤的起始时刻。
func (s *Service) periodStart(period Period) time.Time {
	now := s.now()
	switch period {
	case PeriodQuarter:
		return now.AddDate(0, -3, 0)
	case PeriodHalfYear:
		return now.AddDate(0, -6, 0)
	case PeriodYear:
		return now.AddDate(-1, 0, 0)
	default:
		return now.AddDate(0, -1, 0)
	}
}

// filterByPayload 解码 payload 并套用指标名与设备类型条件。
// 指定具体设备类型时，聚合记录（无 formFactor）一律排除；
// payload 解码失败的快照同样排除，不让脏数据进入图表。
func (s *Service) filterByPayload(snapshots []metric.Snapshot, metricName, formFactor string) []metric.Snapshot {
	filtered := snapshots[:0:0]
	for _, snapshot := range snapshots {
		var payload crux.Response
		if err := json.Unmarshal(snapshot.CruxData, &payload); err != nil || payload.Record == nil {
			continue
		}

		if metricName != "" {
			if _, ok := payload.Record.Metrics[metricName]; !ok {
				continue
			}
		}

		if formFactor != FormFactorAll {
			recordFormFactor := payload.Record.Key.FormFactor
			if recordFormFactor == "" || !strings.EqualFold(recordFormFactor, formFactor) {
				continue
			}
		}

		filtered = append(filtered, snapshot)
	}
	return filtered
}

// groupSnapshots 按分组键保留每组遇到的第一条快照。
// 输入已按时间升序，因此保留的是各桶最早的样本——这是有意的
// 代表性采样语义，不是求均值；改为聚合会改变上报数字。
func groupSnapshots(snapshots []metric.Snapshot, groupBy GroupBy) []metric.Snapshot {
	seen := make(map[string]struct{}, len(snapshots))
	grouped := snapshots[:0:0]

	for _, snapshot := range snapshots {
		key := groupKey(snapshot.CollectionPeriodStart, groupBy)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		grouped = append(grouped, snapshot)
	}
	return grouped
}

// groupKey 计算快照的分组键：月为 YYYY-MM，周为 ISO-8601 的 YYYY-Www。
func groupKey(t time.Time, groupBy GroupBy) string {
	if groupBy == GroupByWeek {
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	}
	return t.Format("2006-01")
}
