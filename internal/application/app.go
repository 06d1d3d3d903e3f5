package application

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zcradar/zcradar/internal/domain/entity"
	"github.com/zcradar/zcradar/internal/domain/repository"
	"github.com/zcradar/zcradar/internal/domain/service"
	"github.com/zcradar/zcradar/internal/infrastructure/browser"
	"github.com/zcradar/zcradar/internal/infrastructure/config"
	"github.com/zcradar/zcradar/internal/infrastructure/document"
	"github.com/zcradar/zcradar/internal/infrastructure/llm"
	_ "github.com/zcradar/zcradar/internal/infrastructure/llm/openai" // register openai provider factory
	"github.com/zcradar/zcradar/internal/infrastructure/notify"
	"github.com/zcradar/zcradar/internal/infrastructure/persistence"
	toolpkg "github.com/zcradar/zcradar/internal/infrastructure/tool"
	httpServer "github.com/zcradar/zcradar/internal/interfaces/http"
	"github.com/zcradar/zcradar/internal/interfaces/http/handlers"
	"github.com/zcradar/zcradar/internal/interfaces/websocket"
	"github.com/zcradar/zcradar/pkg/safego"
)

// App 应用程序（依赖注入容器）
type App struct {
	config *config.Config
	logger *zap.Logger
	db     *gorm.DB

	// 仓储层
	sourceRepo repository.SourceRepository
	taskRepo   repository.TaskRepository
	resultRepo repository.ResultRepository
	reportRepo repository.ReportRepository

	// 基础设施
	llmRouter    *llm.Router
	fetcher      *browser.Fetcher
	pageAdapter  *browser.ServiceAdapter
	rulesWatcher *config.RulesWatcher
	notifier     *notify.Engine

	// 领域服务
	orchestrator *service.Orchestrator
	reporter     *service.ReportBuilder
	batchRunner  *service.BatchRunner

	// 接口层
	wsHub      *websocket.Hub
	httpServer *httpServer.Server
	scheduler  *Scheduler
}

// NewApp 创建应用程序
func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	// Bootstrap: ensure ~/.zcradar/ exists with default files on first run
	if err := config.Bootstrap(logger); err != nil {
		logger.Warn("Bootstrap failed (non-fatal)", zap.Error(err))
	}

	app := &App{
		config: cfg,
		logger: logger,
	}

	if err := app.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	if err := app.initInfrastructure(); err != nil {
		return nil, fmt.Errorf("failed to init infrastructure: %w", err)
	}

	if err := app.initDomainServices(); err != nil {
		return nil, fmt.Errorf("failed to init domain services: %w", err)
	}

	app.initInterfaces()

	return app, nil
}

// initRepositories 初始化仓储层
func (app *App) initRepositories() error {
	app.logger.Info("Initializing repositories")

	db, err := persistence.NewDBConnection(&app.config.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.db = db

	app.sourceRepo = persistence.NewGormSourceRepository(db)
	app.taskRepo = persistence.NewGormTaskRepository(db)
	app.resultRepo = persistence.NewGormResultRepository(db)
	app.reportRepo = persistence.NewGormReportRepository(db)

	return nil
}

// initInfrastructure 初始化基础设施
func (app *App) initInfrastructure() error {
	app.logger.Info("Initializing infrastructure")

	// LLM Router (modular provider factory with failover)
	app.llmRouter = llm.NewRouter(app.logger)
	for _, p := range app.config.LLM.Providers {
		provider, err := llm.CreateProvider(llm.ProviderConfig{
			Name:     p.Name,
			BaseURL:  p.BaseURL,
			APIKey:   p.APIKey,
			Models:   p.Models,
			Priority: p.Priority,
		}, app.logger)
		if err != nil {
			app.logger.Error("Failed to create LLM provider",
				zap.String("name", p.Name),
				zap.Error(err),
			)
			continue
		}
		app.llmRouter.AddProvider(provider)
	}
	app.logger.Info("LLM Router initialized",
		zap.Int("providers", len(app.config.LLM.Providers)),
	)

	// 浏览器
	browserCfg := browser.DefaultConfig()
	if app.config.Crawler.PageDelay > 0 {
		browserCfg.HostDelay = app.config.Crawler.PageDelay
	}
	app.fetcher = browser.NewFetcher(browserCfg, app.logger)
	app.pageAdapter = browser.NewServiceAdapter(app.fetcher)

	// 栏目筛选规则 (热更新)
	app.rulesWatcher = config.NewRulesWatcher(
		app.config.ResolveRulesFile(),
		service.DefaultCrawlRules,
		app.logger,
	)

	// 推送引擎
	app.notifier = notify.NewEngine(app.config.Notify, app.logger)

	return nil
}

// initDomainServices 初始化领域服务
func (app *App) initDomainServices() error {
	app.logger.Info("Initializing domain services")

	retry := service.RetryConfig{
		MaxRetries:  app.config.LLM.MaxRetries,
		BaseWait:    app.config.LLM.RetryBaseWait,
		CallTimeout: app.config.LLM.CallTimeout,
	}

	// 每个任务的工具集 (浏览/保存/下载/读文档/收尾)
	reader := document.NewReader()
	downloader := document.NewDownloader(app.config.DownloadDir(), browser.DefaultConfig().UserAgent, app.logger).
		WithMaxSize(int64(app.config.Crawler.MaxFileSizeMB) << 20)
	toolsets := toolpkg.NewFactory(app.fetcher, reader, downloader, app.logger)

	app.orchestrator = service.NewOrchestrator(
		app.llmRouter,
		app.pageAdapter,
		toolsets,
		app.rulesWatcher,
		app.taskRepo,
		app.resultRepo,
		service.OrchestratorConfig{
			Model:             app.config.LLM.DefaultModel,
			SectionMaxTurns:   app.config.Crawler.MaxTurns,
			LLMMaxConcurrency: int64(app.config.LLM.MaxConcurrency),
			Retry:             retry,
		},
		app.logger,
	)

	app.reporter = service.NewReportBuilder(app.llmRouter, app.config.LLM.DefaultModel, retry, app.logger)

	// WebSocket 事件中心在这里建好，批次事件直接挂上去
	app.wsHub = websocket.NewHub(app.logger)

	app.batchRunner = service.NewBatchRunner(
		app.sourceRepo,
		app.taskRepo,
		app.resultRepo,
		app.reportRepo,
		app.orchestrator,
		app.reporter,
		app.notifier,
		app.pageAdapter,
		app.wsHub.Broadcast,
		service.BatchRunnerConfig{
			MaxConcurrency: int64(app.config.Crawler.MaxConcurrency),
		},
		app.logger,
	)

	if app.config.Schedule.Enabled {
		app.scheduler = NewScheduler(app.batchRunner, app.config.Schedule.Interval, app.logger)
	}

	return nil
}

// initInterfaces 初始化接口层
func (app *App) initInterfaces() {
	app.logger.Info("Initializing interfaces")

	sourceHandler := handlers.NewSourceHandler(app.sourceRepo, app.batchRunner, app.logger)
	taskHandler := handlers.NewTaskHandler(app.taskRepo, app.batchRunner, app.logger)
	reportHandler := handlers.NewReportHandler(app.reportRepo, app.resultRepo, app.logger)
	providerHandler := handlers.NewProviderHandler(app.llmRouter)
	wsHandler := websocket.NewHandler(app.wsHub, app.logger)

	app.httpServer = httpServer.NewServer(
		httpServer.Config{
			Host: app.config.Server.Host,
			Port: app.config.Server.Port,
			Mode: app.config.Server.Mode,
		},
		sourceHandler,
		taskHandler,
		reportHandler,
		providerHandler,
		wsHandler,
		app.logger,
	)
}

// Start 启动应用
func (app *App) Start(ctx context.Context) error {
	safego.Go(app.logger, "ws-hub", func() {
		app.wsHub.Run(ctx)
	})

	if app.scheduler != nil {
		safego.Go(app.logger, "scheduler", func() {
			app.scheduler.Run(ctx)
		})
	}

	return app.httpServer.Start(ctx)
}

// Stop 优雅停机
func (app *App) Stop(ctx context.Context) error {
	app.logger.Info("Shutting down")

	if err := app.httpServer.Stop(ctx); err != nil {
		app.logger.Warn("HTTP server stop failed", zap.Error(err))
	}

	if app.rulesWatcher != nil {
		_ = app.rulesWatcher.Close()
	}
	if app.pageAdapter != nil {
		_ = app.pageAdapter.Close()
	}

	if app.db != nil {
		if sqlDB, err := app.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	return nil
}

// RunBatch 执行一个采集批次并阻塞到结束，供 CLI 手动触发使用。
// sourceIDs 为空表示全部启用的源
func (app *App) RunBatch(ctx context.Context, sourceIDs []uint) (string, error) {
	return app.batchRunner.RunBatch(ctx, sourceIDs, entity.TriggerManual)
}

// BatchRunner 暴露批次执行器（测试与 CLI 用）
func (app *App) BatchRunner() *service.BatchRunner {
	return app.batchRunner
}
