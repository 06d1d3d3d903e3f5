package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// RulesWatcher 从文件加载栏目筛选规则并通过 fsnotify 热更新。
// 文件不存在或为空时回落到内置默认规则。
type RulesWatcher struct {
	path     string
	fallback string
	logger   *zap.Logger

	mu      sync.RWMutex
	current string

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewRulesWatcher 创建规则加载器并立即读取一次。监听失败不致命，只失去热更新能力。
func NewRulesWatcher(path, fallback string, logger *zap.Logger) *RulesWatcher {
	w := &RulesWatcher{
		path:     path,
		fallback: fallback,
		logger:   logger,
		done:     make(chan struct{}),
	}
	w.reload()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("Rules watcher init failed, hot reload disabled", zap.Error(err))
		return w
	}
	// 监听目录而不是文件本身，编辑器的原子替换 (rename+create) 才能被捕捉到
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		logger.Warn("Rules watcher add failed, hot reload disabled",
			zap.String("dir", filepath.Dir(path)),
			zap.Error(err),
		)
		_ = watcher.Close()
		return w
	}
	w.watcher = watcher
	go w.run()
	return w
}

// Rules 返回当前生效的规则文本
func (w *RulesWatcher) Rules() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Close 停止监听
func (w *RulesWatcher) Close() error {
	close(w.done)
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

func (w *RulesWatcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.reload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Rules watcher error", zap.Error(err))
		}
	}
}

func (w *RulesWatcher) reload() {
	data, err := os.ReadFile(w.path)
	text := strings.TrimSpace(string(data))
	if err != nil || text == "" {
		w.mu.Lock()
		w.current = w.fallback
		w.mu.Unlock()
		if err != nil && !os.IsNotExist(err) {
			w.logger.Warn("Rules file unreadable, using builtin rules",
				zap.String("path", w.path),
				zap.Error(err),
			)
		}
		return
	}

	w.mu.Lock()
	changed := w.current != text
	w.current = text
	w.mu.Unlock()

	if changed {
		w.logger.Info("Crawl rules reloaded",
			zap.String("path", w.path),
			zap.Int("bytes", len(text)),
		)
	}
}
