package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zcradar/zcradar/internal/interfaces/http/handlers"
	"github.com/zcradar/zcradar/internal/interfaces/websocket"
)

// Server HTTP服务器
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// Config HTTP服务器配置
type Config struct {
	Host string
	Port int
	Mode string // local, production
}

// NewServer 创建HTTP服务器
func NewServer(
	cfg Config,
	sourceHandler *handlers.SourceHandler,
	taskHandler *handlers.TaskHandler,
	reportHandler *handlers.ReportHandler,
	providerHandler *handlers.ProviderHandler,
	wsHandler *websocket.Handler,
	logger *zap.Logger,
) *Server {
	// 设置Gin模式
	if cfg.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logger))

	setupRoutes(router, sourceHandler, taskHandler, reportHandler, providerHandler, wsHandler)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	return &Server{
		server: server,
		logger: logger,
	}
}

// Start 启动服务器
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server", zap.String("address", s.server.Addr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop 停止服务器
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}

// setupRoutes 设置路由
func setupRoutes(
	router *gin.Engine,
	sourceHandler *handlers.SourceHandler,
	taskHandler *handlers.TaskHandler,
	reportHandler *handlers.ReportHandler,
	providerHandler *handlers.ProviderHandler,
	wsHandler *websocket.Handler,
) {
	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})

	// 任务事件流
	router.GET("/ws/tasks", func(c *gin.Context) {
		wsHandler.ServeWS(c.Writer, c.Request)
	})

	v1 := router.Group("/api/v1")
	{
		sources := v1.Group("/sources")
		{
			sources.GET("", sourceHandler.List)
			sources.GET("/:id", sourceHandler.Get)
			sources.POST("", sourceHandler.Create)
			sources.PUT("/:id", sourceHandler.Update)
			sources.DELETE("/:id", sourceHandler.Delete)
		}

		tasks := v1.Group("/tasks")
		{
			tasks.POST("/trigger", taskHandler.Trigger)
			tasks.GET("", taskHandler.List)
			tasks.GET("/running", taskHandler.Running)
			tasks.GET("/batch/:batch_id", taskHandler.Batch)
			tasks.POST("/batch/:batch_id/cancel", taskHandler.CancelBatch)
			tasks.GET("/:id/progress", taskHandler.Progress)
			tasks.POST("/:id/cancel", taskHandler.Cancel)
		}

		reports := v1.Group("/reports")
		{
			reports.GET("/latest", reportHandler.Latest)
			reports.GET("/:id", reportHandler.Get)
			reports.GET("/:id/results", reportHandler.Results)
		}

		v1.GET("/providers", providerHandler.List)
	}
}

// ginLogger Gin日志中间件
func ginLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", statusCode),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
