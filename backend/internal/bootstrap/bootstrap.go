package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"crux-monitor-app/backend/internal/app"
	"crux-monitor-app/backend/internal/config"
	"crux-monitor-app/backend/internal/handler"
	"crux-monitor-app/backend/internal/infra/cache"
	"crux-monitor-app/backend/internal/infra/crux"
	"crux-monitor-app/backend/internal/infra/metrics"
	"crux-monitor-app/backend/internal/infra/token"
	"crux-monitor-app/backend/internal/middleware"
	"crux-monitor-app/backend/internal/repository"
	"crux-monitor-app/backend/internal/server"
	authsvc "crux-monitor-app/backend/internal/service/auth"
	"crux-monitor-app/backend/internal/service/collector"
	querysvc "crux-monitor-app/backend/internal/service/metricsquery"
	sitesvc "crux-monitor-app/backend/internal/service/site"

	"go.uber.org/zap"
)

// Application 聚合构建完成的服务与路由，供 cmd/server 启动。
type Application struct {
	Resources *app.Resources
	Collector *collector.Service
	Router    http.Handler
}

// BuildApplication 按依赖顺序组装仓储、服务与 HTTP 路由。
func BuildApplication(ctx context.Context, logger *zap.SugaredLogger, resources *app.Resources, cfg config.Runtime) (*Application, error) {
	metrics.MustRegister()

	cruxOpts, err := crux.LoadOptionsFromEnv()
	if err != nil {
		return nil, fmt.Errorf("load crux config: %w", err)
	}
	cruxClient, err := crux.NewClient(cruxOpts)
	if err != nil {
		return nil, fmt.Errorf("build crux client: %w", err)
	}

	schedule, err := collector.LoadScheduleFromEnv()
	if err != nil {
		return nil, fmt.Errorf("load collect schedule: %w", err)
	}
	retryOpts, err := collector.LoadRetryOptionsFromEnv()
	if err != nil {
		return nil, fmt.Errorf("load retry config: %w", err)
	}

	siteRepo := repository.NewSiteRepository(resources.DB)
	metricRepo := repository.NewMetricRepository(resources.DB)

	queryCache := cache.NewSnapshotCache(resources.Redis, cache.TTLFromEnv())
	if !queryCache.Enabled() {
		logger.Infow("snapshot query cache disabled")
	}

	collectorSvc := collector.NewService(siteRepo, metricRepo, cruxClient, queryCache, schedule, retryOpts, nil)
	querySvc := querysvc.NewService(metricRepo, queryCache, nil)
	siteSvc := sitesvc.NewService(siteRepo)

	tokens := token.NewJWTManager(cfg.JWTSecret, cfg.AccessTTL)
	authSvc := authsvc.NewService(cfg.AdminUsername, cfg.AdminPasswordHash, tokens)

	router := server.NewRouter(server.RouterOptions{
		AuthHandler:    handler.NewAuthHandler(authSvc),
		SiteHandler:    handler.NewSiteHandler(siteSvc),
		MetricsHandler: handler.NewMetricsHandler(querySvc, siteSvc, collectorSvc),
		AuthMW:         middleware.NewAuthMiddleware(cfg.JWTSecret),
	})

	return &Application{
		Resources: resources,
		Collector: collectorSvc,
		Router:    router,
	}, nil
}
