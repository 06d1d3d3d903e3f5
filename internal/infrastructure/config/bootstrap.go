package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// AppName is the canonical application name
const AppName = "zcradar"

// HomeDir returns the user's configuration home: ~/.zcradar
func HomeDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "."+AppName)
}

// Bootstrap ensures the ~/.zcradar directory exists with all default content.
// Called once at startup. Safe to call multiple times — only creates missing items.
func Bootstrap(logger *zap.Logger) error {
	root := HomeDir()

	dirs := []string{
		root,
		filepath.Join(root, "downloads"),
		filepath.Join(root, "logs"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	// Default files — only written if they don't already exist (never overwrite user edits)
	defaults := map[string]string{
		filepath.Join(root, "config.yaml"): defaultConfig,
		filepath.Join(root, "rules.md"):    defaultRules,
	}

	created := 0
	for path, content := range defaults {
		if _, err := os.Stat(path); err == nil {
			continue // Already exists, skip
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			logger.Warn("Failed to write default file", zap.String("path", path), zap.Error(err))
			continue
		}
		created++
	}

	if created > 0 {
		logger.Info("Bootstrap complete",
			zap.String("home", root),
			zap.Int("files_created", created),
		)
	} else {
		logger.Debug("Home directory OK", zap.String("home", root))
	}

	return nil
}

// ──────────────────────────────────────────────────────────────
// Embedded default file contents
// ──────────────────────────────────────────────────────────────

const defaultConfig = `# ═══════════════════════════════════════════════════════════════
# ZCRadar Configuration / 政策雷达配置文件
# Auto-generated on first launch — feel free to edit
# 首次启动自动生成 — 可自由编辑
# ═══════════════════════════════════════════════════════════════

# ─── API Server / API 服务 ────────────────────────────────────
server:
  host: 0.0.0.0
  port: 18820
  mode: local                  # local | production

# ─── Database / 数据库 ───────────────────────────────────────
# Sources, tasks, results and reports storage.
# 监控源、任务、采集结果与报告存储。
database:
  type: sqlite                 # sqlite | postgres
  dsn: zcradar.db              # File path (sqlite) or connection string (postgres)

# ─── Logging / 日志 ──────────────────────────────────────────
log:
  level: info                  # debug | info | warn | error
  format: console              # console | json
  output: stdout               # stdout | stderr | file (~/.zcradar/logs/zcradar.log) | 自定义路径

# ─── LLM Providers / LLM 服务商 ──────────────────────────────
# Add one or more OpenAI-compatible providers. Lower priority = preferred.
# 添加一个或多个 OpenAI 兼容 Provider。priority 越小越优先。
llm:
  default_model: ""            # e.g. "openai/gpt-4o" / 格式: "provider/model"
  max_retries: 3               # Auto-retry on transient failure / 瞬时失败自动重试
  retry_base_wait: 2s          # Retry backoff base / 重试等待基数
  call_timeout: 60s            # Single call timeout / 单次调用超时
  max_concurrency: 3           # Parallel summarization calls / 摘要并发上限
  providers: []
  # Example / 示例:
  # providers:
  #   - name: openai
  #     base_url: "https://api.openai.com/v1"
  #     api_key: "sk-..."
  #     models:
  #       - "openai/gpt-4o"
  #       - "openai/gpt-4o-mini"
  #     priority: 1

# ─── Crawler / 采集器 ────────────────────────────────────────
crawler:
  max_turns: 15                # Max agent LLM rounds per page / 单页 Agent 最大轮次
  page_delay: 2s               # Same-host visit spacing / 同主机访问间隔（反爬）
  max_concurrency: 5           # Parallel source agents / 并行采集源数量
  max_file_size_mb: 20         # Attachment download cap / 附件下载上限
  rules_file: ""               # Section filter rules / 栏目筛选规则 (空=~/.zcradar/rules.md)

# ─── Schedule / 定时采集 ─────────────────────────────────────
schedule:
  enabled: false
  interval: 24h                # Batch interval / 批次间隔

# ─── Notifications / 报告推送 ────────────────────────────────
notify:
  email:
    enabled: false
    host: ""                   # SMTP host / SMTP 服务器
    port: 465
    use_tls: true
    username: ""
    password: ""
    sender_email: ""
    sender_name: "政策情报助手"
    recipients: []
  telegram:
    enabled: false
    bot_token: ""              # Get from @BotFather / 从 @BotFather 获取
    chat_ids: []               # Target chat IDs / 推送目标会话 ID
`

const defaultRules = `## 栏目筛选规则

### 优先采集的栏目类型
- 本单位工作动态、要闻（如"局工作动态"、"部门新闻"）
- 政策文件、法规（如"最新文件"、"政策法规"、"规范性文件"）
- 新闻发布、数据发布（如"新闻发布"、"统计数据"）
- 政策解读（如"解读回应"、"答记者问"）

### 应排除的栏目类型
- 名称含"派出机构"、"地方"、"区域"的栏目（地方性内容，价值较低）
- 名称含"项目核准"、"审批"、"注册登记"的栏目（行政审批流程）
- 名称含"留言"、"举报"、"互动"、"信访"、"咨询"的栏目（互动服务类）
- 名称含"简介"、"指南"、"机构设置"、"领导信息"的栏目（静态信息页）
- 名称含"年度报告"、"报表"的栏目（低频周期性文件）

### 栏目数量限制
- 最多选择5个栏目进行深入采集
- 内容高度相似的栏目应合并（如"最新文件"和"通知"只选一个）

### 内容优先级（从高到低）
1. 国家层面重大政策（法律法规、国务院文件、部委规章）
2. 高级领导人讲话、活动、人事变动
3. 全国性会议、全国性新闻、全国性数据发布
4. 行业报告、政策解读、标准规范
5. 地方性通知、地方项目（低优先级）
6. 地方监管局/监管办日常动态（最低优先级，一般跳过）
`
