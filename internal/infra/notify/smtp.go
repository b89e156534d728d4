package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/mail"
	gosmtp "net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/securehealth/identity/internal/core/port"
	"github.com/securehealth/identity/internal/infra/config"
	"github.com/securehealth/identity/internal/infra/logger"
)

const otpSubject = "SecureHealth Login OTP"

// deliverFunc hands a rendered RFC 5322 message to the mail transport.
type deliverFunc func(ctx context.Context, from string, to []string, msg []byte) error

// SMTPNotifier sends one-time codes by email over STARTTLS.
type SMTPNotifier struct {
	cfg     config.SMTPSettings
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time
	deliver deliverFunc
}

// NewSMTPNotifier constructs an SMTP notifier. ttl is only used in the message body.
func NewSMTPNotifier(cfg config.SMTPSettings, ttl time.Duration, log *zap.Logger) (*SMTPNotifier, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if _, err := mail.ParseAddress(cfg.From); err != nil {
		return nil, fmt.Errorf("parse smtp from address: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}

	n := &SMTPNotifier{
		cfg:    cfg,
		ttl:    ttl,
		logger: log,
		now:    time.Now,
	}
	n.deliver = n.sendStartTLS
	return n, nil
}

// SendOTP emails code to email. The code itself is never logged.
func (n *SMTPNotifier) SendOTP(ctx context.Context, email, code string) error {
	from, err := mail.ParseAddress(n.cfg.From)
	if err != nil {
		return fmt.Errorf("parse smtp from address: %w", err)
	}
	to, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("parse recipient address: %w", err)
	}

	msg := n.renderOTPMessage(from, to, code)
	if err := n.deliver(ctx, from.Address, []string{to.Address}, msg); err != nil {
		return fmt.Errorf("deliver otp email: %w", err)
	}

	logger.FromContext(ctx, n.logger).Info("otp email sent", zap.String("email", logger.MaskEmail(email)))
	return nil
}

func (n *SMTPNotifier) renderOTPMessage(from, to *mail.Address, code string) []byte {
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from.String()))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to.String()))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", otpSubject))
	msg.WriteString(fmt.Sprintf("Date: %s\r\n", n.now().UTC().Format(time.RFC1123Z)))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(fmt.Sprintf("Your OTP is: %s\r\n", code))
	if n.ttl > 0 {
		msg.WriteString(fmt.Sprintf("It expires in %d minutes.\r\n", int(n.ttl.Minutes())))
	}
	return []byte(msg.String())
}

func (n *SMTPNotifier) sendStartTLS(ctx context.Context, from string, to []string, msg []byte) error {
	addr := net.JoinHostPort(n.cfg.Host, fmt.Sprintf("%d", n.cfg.Port))

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := gosmtp.NewClient(conn, n.cfg.Host)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: n.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("starting TLS: %w", err)
		}
	}

	if n.cfg.Username != "" {
		auth := gosmtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("authenticating: %w", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	for _, recipient := range to {
		if err := client.Rcpt(recipient); err != nil {
			return fmt.Errorf("RCPT TO: %w", err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing data: %w", err)
	}
	return client.Quit()
}

var _ port.Notifier = (*SMTPNotifier)(nil)
