package document

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/zcradar/zcradar/pkg/errors"
)

// 附件下载默认限制
const (
	DefaultMaxFileSize = 20 << 20 // 20MB
	downloadTimeout    = 60 * time.Second
)

// 允许下载的附件扩展名
var allowedExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".xls":  true,
	".xlsx": true,
	".txt":  true,
}

// Downloader 附件下载器，落盘到工作目录
type Downloader struct {
	dir       string
	maxSize   int64
	userAgent string
	client    *http.Client
	logger    *zap.Logger
}

// NewDownloader 创建下载器，dir 为附件保存目录
func NewDownloader(dir, userAgent string, logger *zap.Logger) *Downloader {
	return &Downloader{
		dir:       dir,
		maxSize:   DefaultMaxFileSize,
		userAgent: userAgent,
		client:    &http.Client{Timeout: downloadTimeout},
		logger:    logger,
	}
}

// WithMaxSize 覆盖附件大小上限（字节），非正值保持默认
func (d *Downloader) WithMaxSize(bytes int64) *Downloader {
	if bytes > 0 {
		d.maxSize = bytes
	}
	return d
}

// Download 下载 URL 指向的附件，返回本地路径。
// 扩展名不在白名单或超出大小上限时拒绝。
func (d *Downloader) Download(ctx context.Context, rawURL string) (string, error) {
	ext := strings.ToLower(filepath.Ext(strings.SplitN(rawURL, "?", 2)[0]))
	if !allowedExtensions[ext] {
		return "", apperrors.Newf(apperrors.CodeInvalidInput, "不支持的附件类型: %s", ext)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeInvalidInput, "无效的下载地址", err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeTransientNetwork, "附件下载失败", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.Newf(apperrors.CodeTransientNetwork, "附件下载失败: HTTP %d", resp.StatusCode)
	}
	if resp.ContentLength > d.maxSize {
		return "", apperrors.Newf(apperrors.CodeLimitExhausted, "附件超出大小上限: %d bytes", resp.ContentLength)
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", apperrors.Wrap(apperrors.CodeInternal, "创建下载目录失败", err)
	}

	name := fmt.Sprintf("%s%s", strings.ReplaceAll(uuid.NewString(), "-", "")[:12], ext)
	path := filepath.Join(d.dir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeInternal, "创建附件文件失败", err)
	}
	defer file.Close()

	written, err := io.Copy(file, io.LimitReader(resp.Body, d.maxSize+1))
	if err != nil {
		os.Remove(path)
		return "", apperrors.Wrap(apperrors.CodeTransientNetwork, "附件写入失败", err)
	}
	if written > d.maxSize {
		os.Remove(path)
		return "", apperrors.Newf(apperrors.CodeLimitExhausted, "附件超出大小上限: %d bytes", d.maxSize)
	}

	d.logger.Info("Attachment downloaded",
		zap.String("url", rawURL),
		zap.String("path", path),
		zap.Int64("size", written),
	)
	return path, nil
}
