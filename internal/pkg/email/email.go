package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"github.com/qs3c/sub_go_server/config"
)

// Receipt 回执邮件内容
type Receipt struct {
	Username       string
	InvoiceNumber  string
	PlanName       string
	Amount         string
	PaymentMethod  string
	BilledAt       string
	PeriodEnd      string
	ArchiveURL     string
	CurrencySymbol string
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">Payment receipt</h2>
        <p>Hi {{.Username}},</p>
        <p>Thanks for subscribing to <strong>{{.PlanName}}</strong>.</p>
        <table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
            <tr><td>Invoice</td><td>{{.InvoiceNumber}}</td></tr>
            <tr><td>Amount</td><td>{{.CurrencySymbol}}{{.Amount}}</td></tr>
            <tr><td>Paid with</td><td>{{.PaymentMethod}}</td></tr>
            <tr><td>Date</td><td>{{.BilledAt}}</td></tr>
            <tr><td>Valid until</td><td>{{.PeriodEnd}}</td></tr>
        </table>
        {{if .ArchiveURL}}<p><a href="{{.ArchiveURL}}">Download receipt</a></p>{{end}}
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">This email was sent automatically, please do not reply.</p>
    </div>
</body>
</html>
`))

type Service struct {
	cfg *config.EmailConfig
}

func NewService(cfg *config.EmailConfig) *Service {
	return &Service{cfg: cfg}
}

// Enabled 是否配置了 SMTP
func (s *Service) Enabled() bool {
	return s.cfg != nil && s.cfg.SMTPHost != ""
}

// SendReceipt 发送账单回执
func (s *Service) SendReceipt(to string, r *Receipt) error {
	body, err := RenderReceipt(r)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Receipt %s - %s", r.InvoiceNumber, r.PlanName)
	return s.sendHTML(to, subject, body)
}

// RenderReceipt 渲染回执 HTML
func RenderReceipt(r *Receipt) (string, error) {
	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, r); err != nil {
		return "", fmt.Errorf("failed to render receipt: %w", err)
	}
	return buf.String(), nil
}

// sendHTML 发送 HTML 邮件
func (s *Service) sendHTML(to, subject, body string) error {
	var msg strings.Builder
	msg.WriteString(buildHeaders(s.cfg.From, to, subject))
	msg.WriteString("\r\n")
	msg.WriteString(body)

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	return smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg.String()))
}

func buildHeaders(from, to, subject string) string {
	headers := [][2]string{
		{"From", from},
		{"To", to},
		{"Subject", subject},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
	}

	var b strings.Builder
	for _, h := range headers {
		b.WriteString(fmt.Sprintf("%s: %s\r\n", h[0], h[1]))
	}
	return b.String()
}
