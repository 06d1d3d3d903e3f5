package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRulesWatcherFallback(t *testing.T) {
	dir := t.TempDir()
	w := NewRulesWatcher(filepath.Join(dir, "missing.md"), "内置规则", zap.NewNop())
	defer w.Close()

	if w.Rules() != "内置规则" {
		t.Errorf("rules = %q, want fallback", w.Rules())
	}
}

func TestRulesWatcherLoadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.md")
	if err := os.WriteFile(path, []byte("只采集政策\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := NewRulesWatcher(path, "内置规则", zap.NewNop())
	defer w.Close()

	if w.Rules() != "只采集政策" {
		t.Errorf("rules = %q", w.Rules())
	}
}

func TestRulesWatcherHotReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.md")
	if err := os.WriteFile(path, []byte("旧规则"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := NewRulesWatcher(path, "内置规则", zap.NewNop())
	defer w.Close()

	if err := os.WriteFile(path, []byte("新规则"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(3 * time.Second)
	for w.Rules() != "新规则" {
		select {
		case <-deadline:
			t.Fatalf("rules not reloaded, still %q", w.Rules())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestRulesWatcherEmptyFileFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.md")
	if err := os.WriteFile(path, []byte("   \n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := NewRulesWatcher(path, "内置规则", zap.NewNop())
	defer w.Close()

	if w.Rules() != "内置规则" {
		t.Errorf("blank file should fall back, got %q", w.Rules())
	}
}
