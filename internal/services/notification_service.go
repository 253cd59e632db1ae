// internal/services/notification_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/javajoker/nepshop-backend/internal/config"
	"github.com/javajoker/nepshop-backend/internal/models"
)

// Mailer delivers a single HTML email.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPMailer sends through an SMTP relay. Without a configured host it only logs.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(cfg config.EmailConfig) *SMTPMailer {
	m := &SMTPMailer{from: fmt.Sprintf("%s <%s>", cfg.AppName, cfg.FromEmail)}
	if cfg.SMTPHost != "" {
		m.dialer = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	}
	return m
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if m.dialer == nil {
		// Email not configured, just log
		logrus.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("Email would be sent")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	return m.dialer.DialAndSend(msg)
}

type NotificationService struct {
	mailer Mailer
	config *config.Config
}

func NewNotificationService(mailer Mailer, config *config.Config) *NotificationService {
	return &NotificationService{
		mailer: mailer,
		config: config,
	}
}

func (s *NotificationService) SendPasswordResetOTP(ctx context.Context, user *models.User, otp string) error {
	data := map[string]interface{}{
		"Name":    user.Name,
		"OTP":     otp,
		"Minutes": s.config.Store.OTPTTLMinutes,
		"AppName": s.config.Email.AppName,
	}

	body, err := renderTemplate(passwordResetTemplate, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	subject := fmt.Sprintf("%s password recovery", s.config.Email.AppName)
	return s.mailer.Send(ctx, user.Email, subject, body)
}

// SendOrderConfirmation is best effort; failures are logged and never reach the caller.
func (s *NotificationService) SendOrderConfirmation(ctx context.Context, user *models.User, order *models.Order) {
	data := map[string]interface{}{
		"Name":    user.Name,
		"OrderID": order.ID,
		"Items":   order.OrderItems,
		"Total":   order.TotalAmount.StringFixed(2),
		"Method":  order.PaymentMethod,
		"AppName": s.config.Email.AppName,
	}

	body, err := renderTemplate(orderConfirmationTemplate, data)
	if err != nil {
		logrus.WithError(err).Error("Failed to render order confirmation")
		return
	}

	subject := fmt.Sprintf("%s order %s received", s.config.Email.AppName, order.ID)
	if err := s.mailer.Send(ctx, user.Email, subject, body); err != nil {
		logrus.WithError(err).WithField("order_id", order.ID).Warn("Failed to send order confirmation")
	}
}

func renderTemplate(tmpl *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var passwordResetTemplate = template.Must(template.New("password_reset").Parse(`
<!DOCTYPE html>
<html>
<body>
	<h2>Password recovery</h2>
	<p>Hello {{.Name}},</p>
	<p>Your one-time password reset code is <strong>{{.OTP}}</strong>.</p>
	<p>It expires in {{.Minutes}} minutes. If you did not ask for it, ignore this email.</p>
	<p>Best regards,<br>{{.AppName}} Team</p>
</body>
</html>`))

var orderConfirmationTemplate = template.Must(template.New("order_confirmation").Parse(`
<!DOCTYPE html>
<html>
<body>
	<h2>Thank you for your order</h2>
	<p>Hello {{.Name}},</p>
	<p>We received order {{.OrderID}} ({{.Method}}).</p>
	<ul>
	{{range .Items}}<li>{{.Quantity}} x {{.Name}} @ {{.Price.StringFixed 2}}</li>
	{{end}}</ul>
	<p>Total: {{.Total}}</p>
	<p>Best regards,<br>{{.AppName}} Team</p>
</body>
</html>`))
