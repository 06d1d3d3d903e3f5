package notify

import (
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/zcradar/zcradar/internal/infrastructure/config"
)

// EmailSender 通过 SMTP 发送 HTML 报告邮件
type EmailSender struct {
	cfg    config.EmailConfig
	logger *zap.Logger
}

// NewEmailSender 创建邮件发送器
func NewEmailSender(cfg config.EmailConfig, logger *zap.Logger) *EmailSender {
	return &EmailSender{cfg: cfg, logger: logger}
}

// Configured 检查发送所需的最小配置是否齐全
func (s *EmailSender) Configured() bool {
	return s.cfg.Host != "" && s.cfg.SenderEmail != "" && len(s.cfg.Recipients) > 0
}

// Send 向配置的收件人发送 multipart/alternative 邮件（纯文本 + HTML）
func (s *EmailSender) Send(subject, htmlBody, textBody string) error {
	if !s.Configured() {
		return fmt.Errorf("email not configured")
	}

	msg := s.buildMessage(subject, htmlBody, textBody)
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if s.cfg.UseTLS {
		return s.sendTLS(addr, auth, msg)
	}
	return smtp.SendMail(addr, auth, s.cfg.SenderEmail, s.cfg.Recipients, msg)
}

// sendTLS 走隐式 TLS（465 端口常见），net/smtp 的 SendMail 只支持 STARTTLS
func (s *EmailSender) sendTLS(addr string, auth smtp.Auth, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.cfg.Host})
	if err != nil {
		return fmt.Errorf("tls dial: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(s.cfg.SenderEmail); err != nil {
		return fmt.Errorf("smtp mail: %w", err)
	}
	for _, rcpt := range s.cfg.Recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp rcpt %s: %w", rcpt, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	return client.Quit()
}

// buildMessage 构造 multipart/alternative MIME 报文
func (s *EmailSender) buildMessage(subject, htmlBody, textBody string) []byte {
	const boundary = "zcradar-report-boundary"

	from := s.cfg.SenderEmail
	if s.cfg.SenderName != "" {
		from = fmt.Sprintf("%s <%s>", encodeHeader(s.cfg.SenderName), s.cfg.SenderEmail)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(s.cfg.Recipients, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", encodeHeader(subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n", boundary)
	b.WriteString("\r\n")

	if textBody != "" {
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
		b.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
		b.WriteString(wrapBase64(textBody))
		b.WriteString("\r\n")
	}

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
	b.WriteString(wrapBase64(htmlBody))
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String())
}

// encodeHeader RFC 2047 编码含非 ASCII 的邮件头
func encodeHeader(s string) string {
	for _, r := range s {
		if r > 127 {
			return "=?UTF-8?B?" + base64.StdEncoding.EncodeToString([]byte(s)) + "?="
		}
	}
	return s
}

// wrapBase64 按 76 列折行的 base64 编码
func wrapBase64(s string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(s))
	var b strings.Builder
	for len(encoded) > 76 {
		b.WriteString(encoded[:76])
		b.WriteString("\r\n")
		encoded = encoded[76:]
	}
	b.WriteString(encoded)
	return b.String()
}
