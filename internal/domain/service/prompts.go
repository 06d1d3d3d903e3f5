package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/zcradar/zcradar/internal/domain/entity"
)

// DefaultCrawlRules 默认栏目筛选规则，可被配置文件中的规则覆盖
const DefaultCrawlRules = `## 栏目筛选规则

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
6. 地方监管局/监管办日常动态（最低优先级，一般跳过）`

// 每个栏目子代理最多选择的栏目数
const MaxSections = 5

// FormatDateRange 拼出采集日期范围文本，如 "2026-08-18 至 2026-08-24"
func FormatDateRange(start, end time.Time) string {
	return fmt.Sprintf("%s 至 %s", start.Format(entity.DateLayout), end.Format(entity.DateLayout))
}

func existingURLsSection(existing []string) string {
	if len(existing) == 0 {
		return ""
	}
	if len(existing) > 100 {
		existing = existing[:100]
	}
	var sb strings.Builder
	sb.WriteString("\n## 已采集URL（请跳过）\n以下URL已在之前的采集中收录，请不要重复采集：\n")
	for _, u := range existing {
		sb.WriteString("- ")
		sb.WriteString(u)
		sb.WriteString("\n")
	}
	return sb.String()
}

// contentPrioritySection 从采集规则中截取内容优先级段落，找不到时整体注入
func contentPrioritySection(crawlRules string) string {
	const marker = "### 内容优先级"
	if crawlRules != "" {
		if idx := strings.Index(crawlRules, marker); idx >= 0 {
			return "\n## 内容筛选优先级（请严格遵守）\n" + crawlRules[idx:]
		}
		return "\n## 采集规则（请严格遵守）\n" + crawlRules
	}
	return `
## 内容筛选优先级
当条目数量超过上限时，优先保留以下内容：
1. 国家层面重大政策（法律法规、国务院文件、部委规划、指导意见）
2. 高级领导人讲话、重要批示、人事任免
3. 全国性新闻、全国性会议
4. 行业统计数据、发展报告
5. 地方性通知、执行层面文件（优先级较低）
6. 地方监管局日常工作动态、来访接待（优先级最低，可不采集）`
}

// BuildSectionPrompt 构造栏目子代理的系统提示词
func BuildSectionPrompt(sectionName, sectionURL, dateRange string, maxItems int, existing []string, crawlRules string) string {
	return fmt.Sprintf(`你是政策信息采集助手。请采集以下栏目列表页中，日期范围内的内容条目。

## 任务
- **栏目**: %s
- **列表页URL**: %s
- **采集日期范围**: %s
- **最大采集条数**: %d 条

## 工作流程
1. 用 browse_page 打开列表页
2. browse_page 返回的末尾有"可直接采集的条目"JSON数组
   - 筛选日期范围内的条目，用 save_results_batch 批量保存
   - 对没有标注日期的条目，从URL路径中分析日期（见下方示例）
   - summary 字段留空
3. 如有"下一页"链接且未达到采集上限，翻页继续
4. 采集完成后调用 finish
%s

## content_type 分类
- policy: 法规、规划、指导意见、管理办法等正式文件
- notice: 通知、公告、公示
- news: 新闻、动态、讲话、会议
- interpretation: 政策解读、答记者问

## URL日期示例

没有显示日期时，从URL路径分析：

| URL | 日期 |
|-----|------|
| /20260203/xxx.html | 2026-02-03 |
| /2026-01/15/xxx.htm | 2026-01-15 |
| /art/2026/2/3/xxx.html | 2026-02-03 |
| /202601/t20260115_xxx.html | 2026-01-15 |
%s`, sectionName, sectionURL, dateRange, maxItems, contentPrioritySection(crawlRules), existingURLsSection(existing))
}

// SectionUserMessage 栏目子代理的首条用户消息
func SectionUserMessage(sectionName, sectionURL string) string {
	return fmt.Sprintf("请开始采集栏目「%s」的列表页：%s", sectionName, sectionURL)
}

// 栏目识别提示词
const identifySectionsSystem = "你是网页结构分析专家。请从链接列表中识别出值得深入采集的栏目列表页URL。"

// BuildIdentifySectionsPrompt 构造首页栏目识别的用户提示词
func BuildIdentifySectionsPrompt(sourceName, sourceURL, crawlRules, linkList string) string {
	return fmt.Sprintf(`以下是 %s（%s）首页的链接列表。
请从中找出值得深入采集的栏目列表页链接。

## 栏目筛选规则（请严格遵守）
%s

要求：
- 返回JSON数组：[{"name": "栏目名", "url": "列表页完整URL"}]
- 只返回能进入文章列表的栏目页链接（如 /zcfg/、/tzgg/、/gzdt/ 等栏目入口），不要具体文章详情链接
- 栏目入口URL通常较短、不含日期，文章URL通常较长、含日期路径
- 如果找到多个匹配栏目，都列出来
- 直接输出JSON，不加其他内容

链接列表：
%s`, sourceName, sourceURL, crawlRules, linkList)
}

// 首页条目质量筛选提示词
const filterItemsSystem = "你是政策信息筛选专家，服务于咨询公司行业顾问。请严格按照规则筛选高价值条目。"

// BuildFilterItemsPrompt 构造首页条目质量筛选的用户提示词
func BuildFilterItemsPrompt(crawlRules string, items []*entity.ArticleItem) string {
	lines := make([]string, 0, len(items))
	for i, it := range items {
		u := it.URL
		if len(u) > 80 {
			u = u[:80]
		}
		lines = append(lines, fmt.Sprintf("[%d] %s | %s | %s", i, it.Date, it.Title, u))
	}
	return fmt.Sprintf(`请根据以下采集规则，从首页提取的 %d 条条目中筛选出值得保留的高价值内容。

## 采集规则
%s

## 条目列表
%s

筛选要求：
- 排除地方监管局/监管办的日常工作动态
- 保留国家层面政策、高层领导活动、全国性新闻数据
- 不确定的条目应保留
- 返回保留的编号JSON数组，如 [0, 3, 5]
- 直接输出JSON，不加其他内容`, len(items), crawlRules, strings.Join(lines, "\n"))
}

// 摘要生成提示词
const summarizeSystem = "你是政策情报分析师，服务于咨询公司的行业顾问团队。\n请根据提供的文章正文撰写一段简练摘要并标注主题标签，帮助顾问快速了解文章核心内容。"

// 摘要取正文前多少字符
const summaryBodyLimit = 6000

// BuildSummarizePrompt 构造单条摘要的用户提示词
func BuildSummarizePrompt(title, body string) string {
	runes := []rune(body)
	if len(runes) > summaryBodyLimit {
		body = string(runes[:summaryBodyLimit])
	}
	return fmt.Sprintf(`请为以下文章撰写摘要并打主题标签。

要求：
- summary: 2-3句话，100-200字，提炼核心政策要点、关键数据或主要措施，不要复述标题
- tags: 1-5个主题标签，如 ["新能源", "专项债", "出口管制"]
- 输出JSON对象：{"summary": "...", "tags": ["...", "..."]}
- 直接输出JSON，不加其他内容

标题：%s

正文：
%s`, title, body)
}

// 战略排序提示词
const rankSystem = "你是咨询公司高级政策顾问，负责为企业客户筛选和排序政策情报。你非常善于区分国家级和地方级内容的重要性差异。"

var kindLabels = map[entity.ContentKind]string{
	entity.KindNews:           "新闻",
	entity.KindPolicy:         "政策",
	entity.KindNotice:         "通知",
	entity.KindInterpretation: "解读",
	entity.KindOther:          "内容",
}

// KindLabel 返回内容类型的中文标签
func KindLabel(kind entity.ContentKind) string {
	if label, ok := kindLabels[kind]; ok {
		return label
	}
	return "内容"
}

// BuildRankPrompt 构造战略重要性排序的用户提示词
func BuildRankPrompt(items []*entity.ArticleItem) string {
	lines := make([]string, 0, len(items))
	for i, it := range items {
		line := fmt.Sprintf("[%d] [%s] %s | %s", i, KindLabel(it.Kind), it.Date, it.Title)
		if it.Summary != "" {
			snippet := []rune(it.Summary)
			if len(snippet) > 80 {
				snippet = snippet[:80]
			}
			line += " — " + string(snippet)
		}
		lines = append(lines, line)
	}
	return fmt.Sprintf(`请将以下%d条政策/新闻条目按战略重要性从高到低排序。

排序原则（严格按层级排序，高层级的一定排在低层级前面）：

第一层（最重要）：
- 国家层面重大政策：国务院、部委发布的法律法规、规划纲要、指导意见、改革方案
- 高级领导人（国家级、部级）讲话、批示、署名文章
- 高级领导人事任免（部级及以上）

第二层：
- 全国性重要会议（国务院常务会议、部委工作会议、全国性行业会议）
- 全国性重大新闻（全国数据发布、重大项目、行业里程碑）
- 国家级行业标准、规范发布

第三层：
- 部委通知、公告
- 行业统计数据、发展报告
- 政策解读、答记者问

第四层：
- 地方性政策文件、省级通知
- 地方项目核准、地方会议

第五层（最不重要）：
- 地方监管局日常工作动态
- 来访接待、调研视察（非高级领导）
- 一般性工作简报

关键判断方法：标题中含有"国务院""国家""全国""部"等关键词的通常是第一、二层；含有省份名、"XX局""XX办"等地方机构名的通常是第四、五层。
同一层级内，日期较新的优先。

请只返回排序后的编号JSON数组，如 [3, 0, 7, 1, 5]
不要输出任何其他内容。

条目列表：
%s`, len(items), strings.Join(lines, "\n"))
}

// 综述生成提示词
const overviewSystem = "你是咨询公司高级行业顾问，擅长撰写结构清晰、重点突出的政策情报简报。" +
	"你的读者是企业高管和行业分析师，他们需要快速把握政策走向和行业动态。"

// BuildOverviewPrompt 构造报告综述的用户提示词
func BuildOverviewPrompt(bySource map[string][]*entity.ArticleItem, order []string) string {
	var sb strings.Builder
	for _, name := range order {
		items := bySource[name]
		sb.WriteString(fmt.Sprintf("【%s】共%d条:\n", name, len(items)))
		limit := len(items)
		if limit > 20 {
			limit = 20
		}
		for _, it := range items[:limit] {
			line := fmt.Sprintf("- [%s] %s", KindLabel(it.Kind), it.Title)
			if it.Summary != "" {
				snippet := []rune(it.Summary)
				if len(snippet) > 150 {
					snippet = snippet[:150]
				}
				line += ": " + string(snippet)
			}
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}

	return fmt.Sprintf(`请根据以下采集条目，撰写一份结构化的政策情报概述（300-600字）。

按以下模板输出（## 标题独占一行，正文另起一行，段落之间空一行）：

## 核心要点

1-2句话点明本期最重要的政策信号或行业变化。

## 重大政策动态

如有国家级政策、法规、规划，概述其要点和影响（2-3句话）。

## 行业数据与趋势

如有统计数据发布、行业里程碑，提炼关键数字（2-3句话）。

## 监管与执行动态

如有监管行动、地方执行、标准发布，简要归纳（2-3句话）。

严格格式要求：
- 每个部分以 ## 标题开头，标题独占一行，标题后空一行再写正文
- 正文中用 **粗体** 强调关键信息（如政策名称、数据）
- 如果某个部分没有对应内容，直接省略该部分
- 不要使用编号列表（1. 2. 3.），用自然段落叙述
- 用具体数据和事实说明，不要空泛评价
- 直接输出，不加"概述""以下是"等前缀

采集条目：
%s`, sb.String())
}
