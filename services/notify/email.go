package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"yamisign/services/autosign"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel/codes"
)

type EmailConfig struct {
	Server       string   `json:"server" yaml:"server"`
	Port         int      `json:"port" yaml:"port"`
	EmailAddress string   `json:"email_address" yaml:"email_address"`
	Password     string   `json:"password" yaml:"password"`
	To           []string `json:"to" yaml:"to"`
}

// EmailNotifier mails summaries. Progress updates are too chatty for
// e-mail and are dropped.
type EmailNotifier struct {
	config EmailConfig
}

func NewEmailNotifier(config EmailConfig) (EmailNotifier, error) {
	if config.Server == "" || config.Port == 0 {
		return EmailNotifier{}, fmt.Errorf("email notifier: server and port are required")
	}
	if len(config.To) == 0 {
		return EmailNotifier{}, fmt.Errorf("email notifier: no recipients")
	}
	return EmailNotifier{config: config}, nil
}

func (e EmailNotifier) SendProgress(ctx context.Context, report autosign.Report) error {
	return nil
}

func (e EmailNotifier) SendSummary(ctx context.Context, text string) error {
	_, span := tracer.Start(ctx, "EmailNotifier.SendSummary")
	defer span.End()

	title, body := splitSummary(text)

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("yamisign <%s>", e.config.EmailAddress)
	mail.To = e.config.To
	mail.Subject = title
	mail.Text = []byte(body)

	addr := fmt.Sprintf("%s:%d", e.config.Server, e.config.Port)
	err := mail.Send(addr, smtp.PlainAuth("", e.config.EmailAddress, e.config.Password, e.config.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return fmt.Errorf("send summary email: %w", err)
	}
	return nil
}
