package email

import (
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/ats_resume_server/config"
)

type captured struct {
	addr string
	from string
	to   []string
	msg  string
}

func newTestService(cfg *config.EmailConfig) (*Service, *[]captured) {
	var sent []captured
	svc := NewService(cfg).WithSender(func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		sent = append(sent, captured{addr: addr, from: from, to: to, msg: string(msg)})
		return nil
	})
	return svc, &sent
}

func TestService_Disabled(t *testing.T) {
	svc, sent := newTestService(&config.EmailConfig{})

	require.NoError(t, svc.SendWelcome("a@example.com", "Ann", "https://app.test"))
	assert.Empty(t, *sent)
}

func TestService_SendWelcome(t *testing.T) {
	svc, sent := newTestService(&config.EmailConfig{
		SMTPHost: "smtp.test", SMTPPort: 587, From: "noreply@app.test",
	})

	require.NoError(t, svc.SendWelcome("a@example.com", "<Ann>", "https://app.test"))
	require.Len(t, *sent, 1)

	m := (*sent)[0]
	assert.Equal(t, "smtp.test:587", m.addr)
	assert.Equal(t, []string{"a@example.com"}, m.to)
	assert.Contains(t, m.msg, "Subject: Welcome to ResumeATS\r\n")
	assert.Contains(t, m.msg, "Content-Type: text/html; charset=UTF-8\r\n")
	// 用户名需要转义
	assert.Contains(t, m.msg, "&lt;Ann&gt;")
	assert.Contains(t, m.msg, `href="https://app.test"`)
}

func TestService_PaymentMails(t *testing.T) {
	svc, sent := newTestService(&config.EmailConfig{SMTPHost: "smtp.test", SMTPPort: 25})

	require.NoError(t, svc.SendPaymentReceipt("b@example.com", "Premium Monthly", "INR 499.00", "2026-11-18"))
	require.NoError(t, svc.SendRefundNotice("b@example.com", "INR 499.00", "duplicate charge"))
	require.Len(t, *sent, 2)
	assert.Contains(t, (*sent)[0].msg, "Premium Monthly")
	assert.Contains(t, (*sent)[1].msg, "duplicate charge")
}

func TestBuildMessage_HeaderOrder(t *testing.T) {
	msg := string(buildMessage("f@x", "t@x", "Hi", "<p>body</p>"))
	head, body, ok := strings.Cut(msg, "\r\n\r\n")
	require.True(t, ok)
	assert.Equal(t, "<p>body</p>", body)
	assert.True(t, strings.HasPrefix(head, "Content-Type:"))
}
