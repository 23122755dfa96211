package server

import (
	"fmt"
	"strings"
	"time"

	"crux-monitor-app/backend/internal/handler"
	"crux-monitor-app/backend/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterOptions 汇总构建路由所需的 handler 与中间件。
type RouterOptions struct {
	AuthHandler    *handler.AuthHandler
	SiteHandler    *handler.SiteHandler
	MetricsHandler *handler.MetricsHandler
	AuthMW         *middleware.AuthMiddleware
}

// NewRouter 构建应用的 Gin Engine，汇总 REST 接口与公共中间件配置。
// 读接口（站点列表、快照查询）对仪表盘开放，写接口与手动采集需要管理员令牌。
func NewRouter(opts RouterOptions) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  false,
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
		AllowOriginFunc: func(origin string) bool {
			if origin == "" {
				return false
			}
			if strings.HasPrefix(origin, "http://localhost:") {
				return true
			}
			if strings.HasPrefix(origin, "http://127.0.0.1:") {
				return true
			}
			return false
		},
	}))
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: gin.LogFormatter(func(params gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s\" %d %s\n",
				params.ClientIP,
				params.TimeStamp.Format(time.RFC3339),
				params.Method,
				params.Path,
				params.StatusCode,
				params.Latency,
			)
		}),
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		if opts.AuthHandler != nil {
			api.POST("/auth/login", opts.AuthHandler.Login)
		}

		if opts.SiteHandler != nil {
			api.GET("/sites", opts.SiteHandler.List)

			adminSites := api.Group("/sites")
			if opts.AuthMW != nil {
				adminSites.Use(opts.AuthMW.Handle())
			}
			adminSites.POST("", opts.SiteHandler.Create)
			adminSites.PATCH("/:id", opts.SiteHandler.Update)
		}

		if opts.MetricsHandler != nil {
			api.GET("/metrics/:siteId", opts.MetricsHandler.GetMetrics)

			collect := api.Group("/collect")
			if opts.AuthMW != nil {
				collect.Use(opts.AuthMW.Handle())
			}
			collect.POST("", opts.MetricsHandler.TriggerCollection)
		}
	}

	return r
}
