// Package notify delivers run reports by email.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

// Subjects of SendFreight reports.
const (
	SubjectReport = "VT DataRail Tools - SendFreight - REPORT"
	SubjectError  = "VT DataRail Tools - SendFreight - ERROR"
)

const senderName = "VT DataRail Tools"

// Notifier sends a plain-text report.
type Notifier interface {
	Send(ctx context.Context, subject, body string) error
}

// Nop discards reports. Used when email is off.
type Nop struct{}

func (Nop) Send(context.Context, string, string) error { return nil }

// SMTPConfig configures an SMTPNotifier.
type SMTPConfig struct {
	Server   string
	Port     int
	From     string
	To       []string
	Username string
	Password string
	TLS      bool
	Timeout  time.Duration
}

// SMTPNotifier sends reports through an SMTP relay.
type SMTPNotifier struct {
	cfg SMTPConfig
}

// NewSMTP validates cfg and returns a notifier.
func NewSMTP(cfg SMTPConfig) (*SMTPNotifier, error) {
	if cfg.Server == "" {
		return nil, fmt.Errorf("smtp server is required")
	}
	if cfg.From == "" || len(cfg.To) == 0 {
		return nil, fmt.Errorf("smtp sender and recipients are required")
	}
	if cfg.Port == 0 {
		cfg.Port = 25
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTPNotifier{cfg: cfg}, nil
}

// Message builds the email for a report.
func (n *SMTPNotifier) Message(subject, body string) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.FromFormat(senderName, n.cfg.From); err != nil {
		return nil, fmt.Errorf("sender %q: %w", n.cfg.From, err)
	}
	if err := m.To(n.cfg.To...); err != nil {
		return nil, fmt.Errorf("recipients: %w", err)
	}
	m.Subject(subject)
	m.SetBodyString(mail.TypeTextPlain, body)
	return m, nil
}

// Send delivers one report.
func (n *SMTPNotifier) Send(ctx context.Context, subject, body string) error {
	m, err := n.Message(subject, body)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(n.cfg.Port),
		mail.WithTimeout(n.cfg.Timeout),
		mail.WithTLSPolicy(mail.NoTLS),
	}
	if n.cfg.TLS {
		opts[2] = mail.WithTLSPolicy(mail.TLSMandatory)
	}
	if n.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(n.cfg.Username),
			mail.WithPassword(n.cfg.Password),
		)
	}
	client, err := mail.NewClient(n.cfg.Server, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send %q: %w", subject, err)
	}
	return nil
}
