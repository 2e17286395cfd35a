// Package mailer delivers one-time sign-in codes.
package mailer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Payphone-Digital/sprintdesk/config"
	"github.com/Payphone-Digital/sprintdesk/pkg/circuit"
	"github.com/Payphone-Digital/sprintdesk/pkg/logger"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

type deliverFunc func(ctx context.Context, msg *mail.Msg) error

// SMTPMailer sends codes through an SMTP relay, upgrading to TLS when the
// server offers STARTTLS.
type SMTPMailer struct {
	appName   string
	host      string
	from      string
	options   []mail.Option
	templates *templates
	deliver   deliverFunc
	now       func() time.Time
}

func NewSMTPMailer(appName string, cfg config.SMTPConfig) (*SMTPMailer, error) {
	if err := mail.NewMsg().From(cfg.From); err != nil {
		return nil, fmt.Errorf("invalid SMTP_FROM: %w", err)
	}
	tpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}

	options := []mail.Option{
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
		mail.WithPort(cfg.Port),
	}
	if cfg.Timeout > 0 {
		options = append(options, mail.WithTimeout(cfg.Timeout))
	}
	if cfg.User != "" {
		options = append(options,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.User),
			mail.WithPassword(cfg.Password),
		)
	}

	m := &SMTPMailer{
		appName:   appName,
		host:      cfg.Host,
		from:      cfg.From,
		options:   options,
		templates: tpl,
		now:       time.Now,
	}
	m.deliver = m.dialAndSend
	return m, nil
}

// SendOTP renders and sends the code. Dialling and the SMTP exchange both
// stop when ctx is done.
func (m *SMTPMailer) SendOTP(ctx context.Context, email, code string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rendered, err := m.templates.renderOTP(otpData{
		AppName: m.appName,
		Code:    code,
		Minutes: int(math.Ceil(ttl.Minutes())),
	})
	if err != nil {
		return fmt.Errorf("render otp email: %w", err)
	}

	msg, err := m.compose(email, rendered)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := m.deliver(ctx, msg); err != nil {
		logger.WarnWithContext(ctx, "SMTP delivery failed").
			String("smtp_host", m.host).
			Err(err).
			Log()
		return fmt.Errorf("smtp send: %w", err)
	}

	logger.InfoWithContext(ctx, "Sign-in code sent").
		String("smtp_host", m.host).
		Duration(time.Since(start)).
		Log()
	return nil
}

func (m *SMTPMailer) compose(to string, rendered *renderedMessage) (*mail.Msg, error) {
	msg := mail.NewMsg(mail.WithEncoding(mail.NoEncoding))
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("compose email: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("compose email: %w", err)
	}
	msg.Subject(rendered.Subject)
	msg.SetDateWithValue(m.now())
	msg.SetBodyString(mail.TypeTextPlain, rendered.Text)
	msg.AddAlternativeString(mail.TypeTextHTML, rendered.HTML)
	return msg, nil
}

// dialAndSend opens one connection per message.
func (m *SMTPMailer) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	client, err := mail.NewClient(m.host, m.options...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// LogMailer writes codes to the log instead of sending them. Used in
// development when no SMTP host is configured.
type LogMailer struct{}

func (LogMailer) SendOTP(ctx context.Context, email, code string, ttl time.Duration) error {
	logger.GetLogger().Info("Sign-in code (log mailer)",
		zap.String("email", email),
		zap.String("code", code),
		zap.Duration("ttl", ttl),
	)
	return nil
}

// Sender is satisfied by both mailers.
type Sender interface {
	SendOTP(ctx context.Context, email, code string, ttl time.Duration) error
}

// GuardedSender fails fast while the relay keeps failing.
type GuardedSender struct {
	next    Sender
	breaker *circuit.Breaker
}

func NewGuardedSender(next Sender, breaker *circuit.Breaker) *GuardedSender {
	return &GuardedSender{next: next, breaker: breaker}
}

func (g *GuardedSender) SendOTP(ctx context.Context, email, code string, ttl time.Duration) error {
	return g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.next.SendOTP(ctx, email, code, ttl)
	})
}

// New picks the SMTP mailer when a host is configured, the log mailer
// otherwise. The log mailer is refused in production. A non-nil breaker
// guards the SMTP relay.
func New(cfg *config.Config, breaker *circuit.Breaker) (Sender, error) {
	if cfg.SMTP.Host == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("SMTP_HOST must be set in production")
		}
		return LogMailer{}, nil
	}
	m, err := NewSMTPMailer(cfg.App.Name, cfg.SMTP)
	if err != nil {
		return nil, err
	}
	if breaker == nil {
		return m, nil
	}
	return NewGuardedSender(m, breaker), nil
}
