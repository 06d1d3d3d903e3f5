package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"

	apperrors "github.com/zcradar/zcradar/pkg/errors"
)

// MaxTextLen 提取文本上限（rune），与页面文本上限保持一致
const MaxTextLen = 15000

// 附件正文截断标记
const truncationMarker = "...[文档内容截断]"

// Reader 本地文档文本提取器，支持 PDF / DOCX / XLSX
type Reader struct{}

// NewReader 创建文档读取器
func NewReader() *Reader {
	return &Reader{}
}

// SupportedExtensions 返回支持的扩展名
func (r *Reader) SupportedExtensions() []string {
	return []string{".pdf", ".docx", ".xlsx"}
}

// Extract 提取文档纯文本。不支持的格式返回 INVALID_INPUT 错误。
func (r *Reader) Extract(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	var (
		text string
		err  error
	)
	switch ext {
	case ".pdf":
		text, err = r.extractPDF(ctx, path)
	case ".docx":
		text, err = r.extractDocx(path)
	case ".xlsx":
		text, err = r.extractXlsx(ctx, path)
	default:
		return "", apperrors.Newf(apperrors.CodeInvalidInput, "不支持的文档格式: %s", ext)
	}
	if err != nil {
		return "", err
	}
	return capText(text), nil
}

func (r *Reader) extractPDF(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeToolUsage, "打开 PDF 失败", err)
	}
	file, err := os.Open(path)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeToolUsage, "打开 PDF 失败", err)
	}
	defer file.Close()

	reader, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeToolUsage, "解析 PDF 失败", err)
	}

	var parts []string
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func (r *Reader) extractDocx(path string) (string, error) {
	doc, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeToolUsage, "解析 Word 文档失败", err)
	}
	defer doc.Close()
	return doc.Editable().GetContent(), nil
}

func (r *Reader) extractXlsx(ctx context.Context, path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeToolUsage, "解析 Excel 文档失败", err)
	}
	defer f.Close()

	var parts []string
	for _, sheet := range f.GetSheetList() {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("--- %s ---\n", sheet))
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line != "" {
				sb.WriteString(line)
				sb.WriteString("\n")
			}
		}
		parts = append(parts, strings.TrimSpace(sb.String()))
	}
	return strings.Join(parts, "\n\n"), nil
}

func capText(s string) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= MaxTextLen {
		return string(runes)
	}
	return string(runes[:MaxTextLen]) + truncationMarker
}
