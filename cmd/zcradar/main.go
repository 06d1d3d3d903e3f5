package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zcradar/zcradar/internal/application"
	"github.com/zcradar/zcradar/internal/infrastructure/config"
	"github.com/zcradar/zcradar/internal/infrastructure/logger"
)

const (
	appName    = "zcradar"
	appVersion = "0.1.0"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "ZCRadar — 政策情报采集助手",
		Long:  "ZCRadar — 定时巡查政府/行业网站, LLM 智能采集新发布的政策与新闻, 生成汇总报告并推送",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "启动服务 (HTTP API + WebSocket + 定时采集)",
		RunE:  runServe,
	}

	triggerCmd := &cobra.Command{
		Use:   "trigger",
		Short: "立即执行一个采集批次并等待完成",
		RunE:  runTrigger,
	}
	triggerCmd.Flags().UintSlice("source", nil, "只采集指定的源ID, 可重复 (默认全部启用的源)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(triggerCmd)
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "显示版本",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s v%s\n", appName, appVersion)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildApp 初始化日志、配置与应用容器
func buildApp(logFormat string) (*application.App, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	if logFormat == "" {
		logFormat = cfg.Log.Format
	}
	logOutput := cfg.Log.Output
	if logOutput == "file" {
		logOutput = logger.FilePath(cfg.ResolveDataDir())
	}
	log, err := logger.NewLogger(logger.Config{
		Level:      cfg.Log.Level,
		Format:     logFormat,
		OutputPath: logOutput,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}

	app, err := application.NewApp(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("init application: %w", err)
	}
	return app, log, nil
}

// runServe 启动常驻服务, 收到信号后优雅停机
func runServe(cmd *cobra.Command, args []string) error {
	app, log, err := buildApp("")
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("Starting ZCRadar",
		zap.String("name", appName),
		zap.String("version", appVersion),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("start application: %w", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Info("Received shutdown signal", zap.String("signal", sig.String()))
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		log.Error("Error during shutdown", zap.Error(err))
		return err
	}

	log.Info("Application stopped successfully")
	return nil
}

// runTrigger 手动跑一个批次, Ctrl+C 可中断
func runTrigger(cmd *cobra.Command, args []string) error {
	app, log, err := buildApp("console")
	if err != nil {
		return err
	}
	defer log.Sync()

	sourceIDs, _ := cmd.Flags().GetUintSlice("source")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	batchID, err := app.RunBatch(ctx, sourceIDs)
	if err != nil {
		return fmt.Errorf("batch %s failed: %w", batchID, err)
	}

	fmt.Printf("批次 %s 执行完成\n", batchID)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return app.Stop(shutdownCtx)
}
