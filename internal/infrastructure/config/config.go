package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	DataDir  string         `mapstructure:"data_dir"` // 下载文件、规则文件的根目录 (空=~/.zcradar)
}

// ServerConfig HTTP API 服务配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // local, production
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Type string `mapstructure:"type"` // sqlite, postgres
	DSN  string `mapstructure:"dsn"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"` // stdout | stderr | file | 文件路径
}

// LLMConfig LLM 调用配置
type LLMConfig struct {
	DefaultModel   string              `mapstructure:"default_model"`   // 格式 "provider/model"
	Providers      []LLMProviderConfig `mapstructure:"providers"`       // 可用 Provider 列表
	MaxRetries     int                 `mapstructure:"max_retries"`     // 瞬时错误最大重试次数
	RetryBaseWait  time.Duration       `mapstructure:"retry_base_wait"` // 重试基础等待（指数退避）
	CallTimeout    time.Duration       `mapstructure:"call_timeout"`    // 单次调用超时
	MaxConcurrency int                 `mapstructure:"max_concurrency"` // 摘要阶段并发上限
}

// LLMProviderConfig 单个 LLM Provider 配置
type LLMProviderConfig struct {
	Name     string   `mapstructure:"name"`
	BaseURL  string   `mapstructure:"base_url"`
	APIKey   string   `mapstructure:"api_key"`
	Models   []string `mapstructure:"models"`
	Priority int      `mapstructure:"priority"`
}

// CrawlerConfig 采集器配置
type CrawlerConfig struct {
	MaxTurns       int           `mapstructure:"max_turns"`        // 单个 Agent 最大 LLM 轮次
	PageDelay      time.Duration `mapstructure:"page_delay"`       // 同主机页面访问间隔（反爬）
	MaxConcurrency int           `mapstructure:"max_concurrency"`  // 并行采集的监控源数量上限
	MaxFileSizeMB  int           `mapstructure:"max_file_size_mb"` // 附件下载大小上限
	RulesFile      string        `mapstructure:"rules_file"`       // 栏目筛选规则文件路径 (空=数据目录下 rules.md)
}

// ScheduleConfig 定时采集配置
type ScheduleConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"` // 批次间隔，如 24h
}

// NotifyConfig 报告推送配置
type NotifyConfig struct {
	Email    EmailConfig          `mapstructure:"email"`
	Telegram TelegramNotifyConfig `mapstructure:"telegram"`
}

// EmailConfig SMTP 邮件推送配置
type EmailConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	UseTLS      bool     `mapstructure:"use_tls"`
	Username    string   `mapstructure:"username"`
	Password    string   `mapstructure:"password"`
	SenderEmail string   `mapstructure:"sender_email"`
	SenderName  string   `mapstructure:"sender_name"`
	Recipients  []string `mapstructure:"recipients"`
}

// TelegramNotifyConfig Telegram 推送配置
type TelegramNotifyConfig struct {
	Enabled  bool    `mapstructure:"enabled"`
	BotToken string  `mapstructure:"bot_token"`
	ChatIDs  []int64 `mapstructure:"chat_ids"`
}

// ResolveDataDir 返回数据目录，空值回落到 ~/.zcradar
func (c *Config) ResolveDataDir() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	return HomeDir()
}

// DownloadDir 附件下载目录
func (c *Config) DownloadDir() string {
	return filepath.Join(c.ResolveDataDir(), "downloads")
}

// ResolveRulesFile 栏目筛选规则文件路径，空值回落到数据目录下的 rules.md
func (c *Config) ResolveRulesFile() string {
	if c.Crawler.RulesFile != "" {
		return c.Crawler.RulesFile
	}
	return filepath.Join(c.ResolveDataDir(), "rules.md")
}

// Load 加载配置
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// ─── 分层配置加载 ───
	// 优先级 (低 → 高): 默认值 → 全局 ~/.zcradar/ → 项目本地 → 环境变量
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Layer 1: 全局配置 ~/.zcradar/config.yaml (基础层 — API keys, SMTP 凭据)
	v.AddConfigPath(HomeDir())
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read global config: %w", err)
		}
	}

	// Layer 2: 项目本地配置 (覆盖层 — 数据库、调度、并发等)
	for _, localDir := range []string{"./config", "."} {
		localPath := filepath.Join(localDir, "config.yaml")
		if _, err := os.Stat(localPath); err == nil {
			v2 := viper.New()
			v2.SetConfigFile(localPath)
			if err := v2.ReadInConfig(); err == nil {
				_ = v.MergeConfigMap(v2.AllSettings())
			}
			break // 只取第一个找到的本地配置
		}
	}

	// 环境变量覆盖
	v.SetEnvPrefix("ZCRADAR")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults 设置默认配置
func setDefaults(v *viper.Viper) {
	// Server 默认值
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 18820)
	v.SetDefault("server.mode", "local")

	// Database 默认值
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "zcradar.db")

	// Log 默认值
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	// LLM 默认值
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_base_wait", "2s")
	v.SetDefault("llm.call_timeout", "60s")
	v.SetDefault("llm.max_concurrency", 3)

	// Crawler 默认值
	v.SetDefault("crawler.max_turns", 15)
	v.SetDefault("crawler.page_delay", "2s")
	v.SetDefault("crawler.max_concurrency", 5)
	v.SetDefault("crawler.max_file_size_mb", 20)

	// Schedule 默认值
	v.SetDefault("schedule.enabled", false)
	v.SetDefault("schedule.interval", "24h")

	// Notify 默认值
	v.SetDefault("notify.email.port", 465)
	v.SetDefault("notify.email.use_tls", true)
}
