package tool

import (
	"context"
	"fmt"
	"path/filepath"

	domaintool "github.com/zcradar/zcradar/internal/domain/tool"
	"github.com/zcradar/zcradar/internal/infrastructure/document"
)

// DownloadTool 下载附件到本地，供后续 read_document 读取
type DownloadTool struct {
	downloader *document.Downloader
}

func NewDownloadTool(downloader *document.Downloader) *DownloadTool {
	return &DownloadTool{downloader: downloader}
}

func (t *DownloadTool) Name() string { return "download_file" }

func (t *DownloadTool) Description() string {
	return "下载 URL 指向的附件文件（PDF/DOC/DOCX/XLS/XLSX），返回本地路径，可用 read_document 读取内容。"
}

func (t *DownloadTool) Kind() domaintool.Kind { return domaintool.KindFetch }

func (t *DownloadTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"url": map[string]interface{}{
				"type":        "string",
				"description": "附件下载 URL",
			},
			"filename": map[string]interface{}{
				"type":        "string",
				"description": "附件文件名，如 policy.pdf",
			},
		},
		"required": []string{"url", "filename"},
	}
}

func (t *DownloadTool) Execute(ctx context.Context, args map[string]interface{}) (*domaintool.Result, error) {
	url := domaintool.StringArg(args, "url")
	if url == "" {
		return &domaintool.Result{Success: false, Error: "缺少 url 参数"}, nil
	}
	filename := domaintool.StringArg(args, "filename")
	if filename == "" {
		filename = filepath.Base(url)
	}

	path, err := t.downloader.Download(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &domaintool.Result{Success: false, Error: err.Error()}, nil
	}

	return &domaintool.Result{
		Output:  fmt.Sprintf("附件已下载: %s\n本地路径: %s\n可调用 read_document 读取全文。", filename, path),
		Display: fmt.Sprintf("下载: %s", filename),
		Success: true,
		Metadata: map[string]interface{}{
			"path": path,
		},
	}, nil
}

// ReadDocumentTool 读取本地文档（PDF/DOCX/XLSX）的文本内容
type ReadDocumentTool struct {
	reader *document.Reader
}

func NewReadDocumentTool(reader *document.Reader) *ReadDocumentTool {
	return &ReadDocumentTool{reader: reader}
}

func (t *ReadDocumentTool) Name() string { return "read_document" }

func (t *ReadDocumentTool) Description() string {
	return "读取本地文档文件（PDF/DOCX/XLSX）的文本内容，用于为附件撰写摘要。"
}

func (t *ReadDocumentTool) Kind() domaintool.Kind { return domaintool.KindRead }

func (t *ReadDocumentTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"file_path": map[string]interface{}{
				"type":        "string",
				"description": "download_file 返回的本地文件路径",
			},
		},
		"required": []string{"file_path"},
	}
}

func (t *ReadDocumentTool) Execute(ctx context.Context, args map[string]interface{}) (*domaintool.Result, error) {
	path := domaintool.StringArg(args, "file_path")
	if path == "" {
		return &domaintool.Result{Success: false, Error: "缺少 file_path 参数"}, nil
	}

	text, err := t.reader.Extract(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &domaintool.Result{Success: false, Error: err.Error()}, nil
	}

	return &domaintool.Result{
		Output:  text,
		Display: fmt.Sprintf("读取文档: %s", filepath.Base(path)),
		Success: true,
	}, nil
}

// FinishTool 收尾工具。采集循环在执行前拦截它，这里只是提供定义与兜底实现。
type FinishTool struct{}

func NewFinishTool() *FinishTool { return &FinishTool{} }

func (t *FinishTool) Name() string { return "finish" }

func (t *FinishTool) Description() string {
	return "结束本栏目的采集，summary 为本次采集情况的简短说明。"
}

func (t *FinishTool) Kind() domaintool.Kind { return domaintool.KindControl }

func (t *FinishTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"summary": map[string]interface{}{
				"type":        "string",
				"description": "本次采集情况说明",
			},
		},
		"required": []string{"summary"},
	}
}

func (t *FinishTool) Execute(ctx context.Context, args map[string]interface{}) (*domaintool.Result, error) {
	return &domaintool.Result{Output: "ok", Success: true}, nil
}
