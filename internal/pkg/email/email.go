package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"sort"
	"strings"

	"github.com/qs3c/ats_resume_server/config"
)

// SendFunc 与 smtp.SendMail 签名一致，便于测试替换
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Service struct {
	cfg  *config.EmailConfig
	send SendFunc
}

func NewService(cfg *config.EmailConfig) *Service {
	return &Service{cfg: cfg, send: smtp.SendMail}
}

// WithSender 替换底层发送函数
func (s *Service) WithSender(fn SendFunc) *Service {
	s.send = fn
	return s
}

// Enabled 未配置 SMTP 时跳过发送
func (s *Service) Enabled() bool {
	return s.cfg != nil && s.cfg.SMTPHost != ""
}

var layout = template.Must(template.New("mail").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">{{.Title}}</h2>
        {{range .Paragraphs}}<p>{{.}}</p>
        {{end}}{{if .Link}}<div style="text-align: center; margin: 30px 0;">
            <a href="{{.Link}}" style="background-color: #2563eb; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px;">{{.LinkText}}</a>
        </div>{{end}}
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">This is an automated message, please do not reply.</p>
    </div>
</body>
</html>`))

type mailContent struct {
	Title      string
	Paragraphs []string
	Link       string
	LinkText   string
}

// SendWelcome 注册欢迎邮件
func (s *Service) SendWelcome(to, name, appURL string) error {
	return s.render(to, "Welcome to ResumeATS", mailContent{
		Title: "Welcome aboard!",
		Paragraphs: []string{
			fmt.Sprintf("Hi %s,", name),
			"Your account is ready. Upload a résumé to get your ATS score and see how each section performs.",
			"Free accounts include 3 analyses per day.",
		},
		Link:     appURL,
		LinkText: "Analyze my résumé",
	})
}

// SendPaymentReceipt 支付成功通知
func (s *Service) SendPaymentReceipt(to, planName, amount, expiresAt string) error {
	return s.render(to, "Your Premium subscription is active", mailContent{
		Title: "Payment received",
		Paragraphs: []string{
			fmt.Sprintf("Thanks for upgrading to %s (%s).", planName, amount),
			fmt.Sprintf("Your Premium access is valid until %s.", expiresAt),
		},
	})
}

// SendRefundNotice 退款通知
func (s *Service) SendRefundNotice(to, amount, reason string) error {
	return s.render(to, "Your refund has been processed", mailContent{
		Title: "Refund processed",
		Paragraphs: []string{
			fmt.Sprintf("A refund of %s has been issued.", amount),
			fmt.Sprintf("Reason: %s", reason),
		},
	})
}

func (s *Service) render(to, subject string, content mailContent) error {
	if !s.Enabled() {
		return nil
	}
	var body bytes.Buffer
	if err := layout.Execute(&body, content); err != nil {
		return fmt.Errorf("render email: %w", err)
	}
	return s.sendHTML(to, subject, body.String())
}

// buildMessage 生成 RFC 5322 报文，头部按字母序输出
func buildMessage(from, to, subject, body string) []byte {
	headers := map[string]string{
		"From":         from,
		"To":           to,
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Content-Type": "text/html; charset=UTF-8",
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var msg strings.Builder
	for _, k := range keys {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", k, headers[k]))
	}
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return []byte(msg.String())
}

func (s *Service) sendHTML(to, subject, body string) error {
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	return s.send(addr, auth, s.cfg.From, []string{to}, buildMessage(s.cfg.From, to, subject, body))
}
