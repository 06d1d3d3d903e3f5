package tool

import (
	"go.uber.org/zap"

	"github.com/zcradar/zcradar/internal/domain/entity"
	"github.com/zcradar/zcradar/internal/domain/service"
	domaintool "github.com/zcradar/zcradar/internal/domain/tool"
	"github.com/zcradar/zcradar/internal/infrastructure/browser"
	"github.com/zcradar/zcradar/internal/infrastructure/document"
)

// Factory 为每个采集任务组装一套工具。
// 保存类工具绑定任务自己的收集器，浏览器与文档组件进程内共享。
type Factory struct {
	fetcher    *browser.Fetcher
	reader     *document.Reader
	downloader *document.Downloader
	logger     *zap.Logger
}

func NewFactory(fetcher *browser.Fetcher, reader *document.Reader, downloader *document.Downloader, logger *zap.Logger) *Factory {
	return &Factory{
		fetcher:    fetcher,
		reader:     reader,
		downloader: downloader,
		logger:     logger,
	}
}

var _ service.ToolsetFactory = (*Factory)(nil)

// ForTask 构造绑定到 source 与 collector 的工具执行器
func (f *Factory) ForTask(source *entity.MonitorSource, collector *service.ItemCollector) service.ToolExecutor {
	registry := domaintool.NewInMemoryRegistry()

	tools := []domaintool.Tool{
		NewBrowseTool(f.fetcher, source.AllowCrossDomain, f.logger),
		NewSaveResultTool(source, collector),
		NewSaveBatchTool(source, collector),
		NewDownloadTool(f.downloader),
		NewReadDocumentTool(f.reader),
		NewFinishTool(),
	}
	for _, t := range tools {
		if err := registry.Register(t); err != nil {
			f.logger.Warn("Tool registration failed", zap.String("tool", t.Name()), zap.Error(err))
		}
	}

	return NewExecutor(registry, f.logger.With(zap.String("source", source.Name)))
}
