// Package collector 实现定时采集任务：按计划拉取所有活跃站点的
// CrUX 记录并落库，单站点失败不影响整轮执行。
package collector

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"crux-monitor-app/backend/internal/domain/metric"
	sitedomain "crux-monitor-app/backend/internal/domain/site"
	"crux-monitor-app/backend/internal/infra/cache"
	"crux-monitor-app/backend/internal/infra/crux"
	appLogger "crux-monitor-app/backend/internal/infra/logger"
	appMetrics "crux-monitor-app/backend/internal/infra/metrics"
	"crux-monitor-app/backend/internal/infra/retry"
	"crux-monitor-app/backend/internal/repository"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Fetcher 抽象采集任务对上游客户端的依赖。
type Fetcher interface {
	QueryRecord(ctx context.Context, urlOrOrigin string) (*crux.Response, error)
}

// Service 是采集调度器。运行状态用 atomic.Bool 显式管理：
// 新触发（定时或手动）到来时若上一轮仍在执行则直接丢弃并告警，不排队。
type Service struct {
	sites     *repository.SiteRepository
	snapshots *repository.MetricRepository
	fetcher   Fetcher
	queryCache *cache.SnapshotCache
	schedule  Schedule
	retryOpts retry.Options
	logger    *zap.SugaredLogger
	running   atomic.Bool
	now       func() time.Time
}

// NewService 构造采集调度器，logger 为空时使用默认日志实例。
func NewService(
	sites *repository.SiteRepository,
	snapshots *repository.MetricRepository,
	fetcher Fetcher,
	queryCache *cache.SnapshotCache,
	schedule Schedule,
	retryOpts retry.Options,
	logger *zap.SugaredLogger,
) *Service {
	if logger == nil {
		logger = appLogger.S().With("component", "service.collector")
	}
	return &Service{
		sites:      sites,
		snapshots:  snapshots,
		fetcher:    fetcher,
		queryCache: queryCache,
		schedule:   schedule,
		retryOpts:  retryOpts,
		logger:     logger,
		now:        time.Now,
	}
}

// Start 启动后台调度循环，ctx 结束时退出。
func (s *Service) Start(ctx context.Context) {
	go func() {
		s.logger.Infow("collector scheduler started",
			"run_at", s.schedule.RunAt,
			"timezone", s.schedule.Location.String(),
			"interval", s.schedule.Interval,
		)

		for {
			wait := s.schedule.nextWait(s.now())
			timer := time.NewTimer(wait)

			select {
			case <-ctx.Done():
				timer.Stop()
				s.logger.Infow("collector scheduler stopped")
				return
			case <-timer.C:
				s.TryRun(ctx)
			}
		}
	}()
}

// TryRun 触发一轮采集；上一轮尚未结束时丢弃本次触发并返回 false。
func (s *Service) TryRun(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warnw("collection run already in progress, trigger dropped")
		return false
	}
	defer s.running.Store(false)

	s.runOnce(ctx)
	return true
}

// TryRunAsync 在后台触发一轮采集，供手动触发入口使用；
// 返回 false 表示上一轮尚未结束，本次触发被丢弃。
func (s *Service) TryRunAsync(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warnw("collection run already in progress, trigger dropped")
		return false
	}

	go func() {
		defer s.running.Store(false)
		s.runOnce(ctx)
	}()
	return true
}

// Running 报告当前是否有采集在执行。
func (s *Service) Running() bool {
	return s.running.Load()
}

// runOnce 执行一轮采集：加载活跃站点后逐个串行处理。
// 串行既是对上游限频的天然保护，也让单个慢站点的影响容易定位。
func (s *Service) runOnce(ctx context.Context) {
	activeSites, err := s.sites.FindActive(ctx)
	if err != nil {
		s.logger.Errorw("load active sites failed", "error", err)
		appMetrics.ObserveCollectionRun("error")
		return
	}

	if len(activeSites) == 0 {
		s.logger.Infow("no active sites to collect")
		appMetrics.ObserveCollectionRun("empty")
		return
	}

	s.logger.Infow("collection run started", "sites", len(activeSites))

	for _, st := range activeSites {
		if err := s.processSite(ctx, st); err != nil {
			// 单站点失败只记录，不中断整轮——这是采集链路的核心可靠性约定。
			s.logger.Errorw("process site failed", "site", st.URL, "error", err)
		}
	}

	s.logger.Infow("collection run finished")
	appMetrics.ObserveCollectionRun("completed")
}

// processSite 拉取并持久化单个站点的快照。
func (s *Service) processSite(ctx context.Context, st sitedomain.Site) error {
	s.logger.Infow("collecting site", "site", st.URL)

	opts := s.retryOpts
	if opts.OnRetry == nil {
		opts.OnRetry = func(attempt int, wait time.Duration, err error) {
			s.logger.Warnw("crux fetch attempt failed, will retry",
				"site", st.URL, "attempt", attempt, "wait", wait, "error", err)
		}
	}

	started := s.now()
	resp, err := retry.Do(ctx, func(ctx context.Context) (*crux.Response, error) {
		return s.fetcher.QueryRecord(ctx, st.URL)
	}, opts)
	appMetrics.ObserveFetchDuration(time.Since(started))
	if err != nil {
		appMetrics.ObserveSiteFailure("fetch")
		return fmt.Errorf("fetch crux record: %w", err)
	}

	// 传输成功但上游在响应体里报错，按该站点的失败处理。
	if resp.Error != nil {
		appMetrics.ObserveSiteFailure("fetch")
		return fmt.Errorf("crux api returned error: %s", resp.Error.Message)
	}

	// 上游没有该站点的数据不是错误：记一笔日志后跳过。
	if resp.Record == nil {
		s.logger.Warnw("no crux record for site, skipped", "site", st.URL)
		return nil
	}
	period := resp.Record.CollectionPeriod
	if period == nil {
		s.logger.Warnw("no collection period for site, skipped", "site", st.URL)
		return nil
	}

	snapshot := &metric.Snapshot{
		SiteID:                st.ID,
		CreateCollectionDate:  s.now(),
		CollectionPeriodStart: s.dateOf(period.FirstDate),
		CollectionPeriodEnd:   s.dateOf(period.LastDate),
		CruxData:              datatypes.JSON(resp.Raw),
	}

	if err := s.snapshots.Insert(ctx, snapshot); err != nil {
		appMetrics.ObserveSiteFailure("persist")
		return fmt.Errorf("persist snapshot: %w", err)
	}
	appMetrics.ObserveSnapshotPersisted()

	if err := s.queryCache.BumpSite(ctx, st.ID); err != nil {
		s.logger.Warnw("bump site cache version failed", "site", st.URL, "error", err)
	}

	s.logger.Infow("snapshot persisted", "site", st.URL,
		"period_start", snapshot.CollectionPeriodStart.Format("2006-01-02"),
		"period_end", snapshot.CollectionPeriodEnd.Format("2006-01-02"),
	)
	return nil
}

// dateOf 把上游日期转换为调度时区的零点时刻。
// 上游的月份从 1 计数，time.Month 同样从 1 计数，可直接取值。
func (s *Service) dateOf(d crux.Date) time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, s.schedule.Location)
}
