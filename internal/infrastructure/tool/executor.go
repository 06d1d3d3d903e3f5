package tool

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zcradar/zcradar/internal/domain/service"
	domaintool "github.com/zcradar/zcradar/internal/domain/tool"
)

// Executor 把注册表里的工具适配成采集循环的 service.ToolExecutor。
// 任何失败（含 panic）都折叠成带错误信息的结果交还模型，不中断循环。
type Executor struct {
	registry domaintool.Registry
	logger   *zap.Logger
}

func NewExecutor(registry domaintool.Registry, logger *zap.Logger) *Executor {
	return &Executor{registry: registry, logger: logger}
}

var _ service.ToolExecutor = (*Executor)(nil)

// Execute 按名称执行工具
func (e *Executor) Execute(ctx context.Context, name string, args map[string]interface{}) (result *domaintool.Result, err error) {
	t, ok := e.registry.Get(name)
	if !ok {
		e.logger.Warn("Tool not found", zap.String("tool", name))
		return &domaintool.Result{
			Success: false,
			Error:   fmt.Sprintf("未知工具: %s", name),
		}, nil
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Tool panicked",
				zap.String("tool", name),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			result = &domaintool.Result{
				Success: false,
				Error:   fmt.Sprintf("工具执行异常: %v", r),
			}
			err = nil
		}
	}()

	start := time.Now()
	result, err = t.Execute(ctx, args)
	e.logger.Debug("Tool executed",
		zap.String("tool", name),
		zap.Duration("duration", time.Since(start)),
	)
	return result, err
}

// Definitions 返回指定名称的工具定义，names 为空时返回全部
func (e *Executor) Definitions(names []string) []domaintool.Definition {
	if len(names) == 0 {
		return e.registry.List()
	}

	defs := make([]domaintool.Definition, 0, len(names))
	for _, name := range names {
		t, ok := e.registry.Get(name)
		if !ok {
			continue
		}
		defs = append(defs, domaintool.Definition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		})
	}
	return defs
}
