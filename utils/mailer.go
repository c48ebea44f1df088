package utils

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"time"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"taxnexy/config"
)

// sendTimeout bounds one SMTP send; a timeout is reported as a send
// failure and the caller retries on its own schedule.
const sendTimeout = 15 * time.Second

// Embedded email templates
var emailTemplates = map[string]string{
	"drip_intro": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header"><h2>Let's get your taxes started</h2></div>
    <p>Hi {{.FirstName}},</p>
    <p>Tax season is here. We'd love to prepare your return this year — most of our clients
    are done in under a week once we have their documents.</p>
    <p>Reply to this email or give us a call to get started.</p>
    <div class="footer"><p>© {{.Year}} {{.FirmName}}. All rights reserved.</p></div>
</body>
</html>`,

	"drip_refund_amounts": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .highlight { font-size: 20px; font-weight: bold; color: #27ae60; text-align: center; margin: 20px 0; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header"><h2>What could your refund look like?</h2></div>
    <p>Hi {{.FirstName}},</p>
    <div class="highlight">Our average client refund last season was over $2,800</div>
    <p>Every filing situation is different, but missed credits and deductions are the most
    common reason refunds come in low. A quick review is free.</p>
    <div class="footer"><p>© {{.Year}} {{.FirmName}}. All rights reserved.</p></div>
</body>
</html>`,

	"drip_urgency": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #c0392b; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header"><h2>The filing deadline is getting close</h2></div>
    <p>Hi {{.FirstName}},</p>
    <p>Appointment slots fill up fast in the final weeks before the deadline. If you'd like
    us to handle your return this year, now is the time to book.</p>
    <p>This is the last reminder we'll send — we don't want to clutter your inbox.</p>
    <div class="footer"><p>© {{.Year}} {{.FirmName}}. All rights reserved.</p></div>
</body>
</html>`,

	"document_request": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .button { display: inline-block; padding: 10px 20px; background-color: #3498db; color: white; text-decoration: none; border-radius: 4px; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header"><h2>Documents needed for your tax return</h2></div>
    <p>Hi {{.FirstName}},</p>
    <p>To prepare your return we still need the following:</p>
    <ul>
    {{range .Items}}<li>{{.}}</li>{{end}}
    </ul>
    <p style="text-align: center;"><a href="{{.Link}}" class="button">Upload your documents</a></p>
    <p>This secure link expires on {{.ExpiresAt}}. No login is required.</p>
    <p>Or copy and paste this link into your browser:<br><small>{{.Link}}</small></p>
    <div class="footer"><p>For your security, don't forward this link to anyone.</p>
    <p>© {{.Year}} {{.FirmName}}. All rights reserved.</p></div>
</body>
</html>`,

	"intake_link": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .button { display: inline-block; padding: 10px 20px; background-color: #3498db; color: white; text-decoration: none; border-radius: 4px; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header"><h2>Start your tax intake</h2></div>
    <p>Hi {{.FirstName}},</p>
    <p>Use your personal link below to fill out our intake questionnaire. It takes about
    ten minutes and you can upload documents as you go.</p>
    <p style="text-align: center;"><a href="{{.Link}}" class="button">Start intake</a></p>
    <p>This link expires on {{.ExpiresAt}}.</p>
    <div class="footer"><p>© {{.Year}} {{.FirmName}}. All rights reserved.</p></div>
</body>
</html>`,
}

var dripSubjects = map[string]string{
	"intro":          "Let's get your tax return started",
	"refund_amounts": "What could your refund look like this year?",
	"urgency":        "Last call before the filing deadline",
}

// MailService sends templated transactional and drip email over SMTP.
type MailService struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	FirmName string
	Logger   *log.Logger
}

func NewMailService(logger *log.Logger) *MailService {
	cfg := config.AppConfig
	return &MailService{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.FromEmail,
		FromName: cfg.FromName,
		FirmName: cfg.FirmName,
		Logger:   logger,
	}
}

// SendDripEmail renders and sends the drip template for emailType.
func (m *MailService) SendDripEmail(ctx context.Context, to, firstName, emailType string) error {
	subject, ok := dripSubjects[emailType]
	if !ok {
		return fmt.Errorf("unknown drip email type %q", emailType)
	}
	data := struct {
		FirstName string
		FirmName  string
		Year      int
	}{firstName, m.FirmName, time.Now().UTC().Year()}

	return m.send(ctx, to, subject, "drip_"+emailType, data)
}

// SendDocumentRequestEmail emails the client their upload link with the
// requested checklist.
func (m *MailService) SendDocumentRequestEmail(ctx context.Context, to, firstName, link string, items []string, expiresAt time.Time) error {
	data := struct {
		FirstName string
		Items     []string
		Link      string
		ExpiresAt string
		FirmName  string
		Year      int
	}{firstName, items, link, expiresAt.UTC().Format("January 2, 2006"), m.FirmName, time.Now().UTC().Year()}

	return m.send(ctx, to, "Documents needed for your tax return", "document_request", data)
}

// SendIntakeLinkEmail emails a self-service intake invitation.
func (m *MailService) SendIntakeLinkEmail(ctx context.Context, to, firstName, link string, expiresAt time.Time) error {
	data := struct {
		FirstName string
		Link      string
		ExpiresAt string
		FirmName  string
		Year      int
	}{firstName, link, expiresAt.UTC().Format("January 2, 2006"), m.FirmName, time.Now().UTC().Year()}

	return m.send(ctx, to, "Start your tax intake", "intake_link", data)
}

func (m *MailService) send(ctx context.Context, to, subject, templateName string, data interface{}) error {
	tmplContent, ok := emailTemplates[templateName]
	if !ok {
		return fmt.Errorf("template '%s' not found", templateName)
	}

	tmpl, err := template.New("email").Parse(tmplContent)
	if err != nil {
		return fmt.Errorf("error parsing template: %v", err)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("error executing template: %v", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", fmt.Sprintf("%s <%s>", m.FromName, m.From))
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetHeader("Message-ID", fmt.Sprintf("<%s@%s>", uuid.New().String(), m.Host))
	msg.SetBody("text/html", body.String())

	dialer := gomail.NewDialer(m.Host, m.Port, m.Username, m.Password)

	// gomail has no context support; bound the send ourselves.
	done := make(chan error, 1)
	go func() { done <- dialer.DialAndSend(msg) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("error sending email: %v", err)
		}
		m.Logger.Printf("Sent %q email to %s", templateName, to)
		return nil
	case <-time.After(sendTimeout):
		return fmt.Errorf("smtp send to %s timed out after %s", to, sendTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
