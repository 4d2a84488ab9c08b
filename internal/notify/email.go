package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"nyurban_tracker/internal/config"
	"nyurban_tracker/internal/logging"
	"nyurban_tracker/internal/metrics"
	"nyurban_tracker/internal/model"
)

// smtpClient is the subset of *smtp.Client used for delivery.
type smtpClient interface {
	StartTLS(cfg *tls.Config) error
	Auth(a smtp.Auth) error
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Reset() error
	Quit() error
	Close() error
}

type dialFunc func(ctx context.Context, addr string) (smtpClient, error)

// sessionTimeout bounds an SMTP session when ctx carries no deadline.
const sessionTimeout = 2 * time.Minute

// EmailSettings configures the email notifier.
type EmailSettings struct {
	Enabled    bool
	Server     string
	Port       int
	Sender     string
	Password   string
	Recipients []string
	BookURL    string
}

// EmailSettingsFromConfig extracts the email settings from cfg.
func EmailSettingsFromConfig(cfg *config.Config) EmailSettings {
	return EmailSettings{
		Enabled:    cfg.EmailEnabled,
		Server:     cfg.EmailSMTPServer,
		Port:       cfg.EmailSMTPPort,
		Sender:     cfg.EmailSender,
		Password:   cfg.EmailPassword,
		Recipients: cfg.EmailRecipients,
		BookURL:    cfg.BaseURL,
	}
}

// Email sends one message per recipient over a single SMTP session.
type Email struct {
	settings EmailSettings
	dial     dialFunc
	now      func() time.Time
	log      *slog.Logger
}

// NewEmail creates an email notifier.
func NewEmail(settings EmailSettings, log *slog.Logger) *Email {
	return &Email{
		settings: settings,
		dial:     dialSMTP,
		now:      time.Now,
		log:      log,
	}
}

func dialSMTP(ctx context.Context, addr string) (smtpClient, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(sessionTimeout)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		_ = conn.Close()
		return nil, err
	}
	host, _, _ := net.SplitHostPort(addr)
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

// Notify emails slots to every recipient. Disabled or incomplete settings
// make it a no-op.
func (e *Email) Notify(ctx context.Context, slots []model.Slot) error {
	s := e.settings
	if !s.Enabled || len(slots) == 0 {
		return nil
	}
	log := logging.FromContext(ctx, e.log)
	if s.Sender == "" || len(s.Recipients) == 0 {
		log.Warn("email enabled but sender or recipient not configured")
		return nil
	}

	var recipients []string
	for _, r := range s.Recipients {
		if r = strings.TrimSpace(r); r != "" {
			recipients = append(recipients, r)
		}
	}
	if len(recipients) == 0 {
		log.Warn("no valid email recipients found")
		return nil
	}

	body := FormatBody(slots, s.BookURL, e.now())
	subject := mime.QEncoding.Encode("utf-8", Subject(len(slots)))

	addr := net.JoinHostPort(s.Server, strconv.Itoa(s.Port))
	c, err := e.dial(ctx, addr)
	if err != nil {
		metrics.ObserveNotification("email", err)
		return fmt.Errorf("dial smtp %s: %w", addr, err)
	}
	defer func() { _ = c.Close() }()

	if err := c.StartTLS(&tls.Config{ServerName: s.Server, MinVersion: tls.VersionTLS12}); err != nil {
		metrics.ObserveNotification("email", err)
		return fmt.Errorf("starttls: %w", err)
	}
	if err := c.Auth(smtp.PlainAuth("", s.Sender, s.Password, s.Server)); err != nil {
		metrics.ObserveNotification("email", err)
		return fmt.Errorf("smtp auth: %w", err)
	}

	sent := 0
	for _, to := range recipients {
		err := e.send(c, to, subject, body)
		metrics.ObserveNotification("email", err)
		if err != nil {
			log.Error("send email", "recipient", to, "error", err)
			_ = c.Reset()
			continue
		}
		sent++
	}

	if err := c.Quit(); err != nil {
		log.Debug("smtp quit", "error", err)
	}

	if sent > 0 {
		log.Info("email notification sent", "sent", sent, "recipients", len(recipients))
	}
	return nil
}

func (e *Email) send(c smtpClient, to, subject, body string) error {
	if err := c.Mail(e.settings.Sender); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", e.settings.Sender)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))

	if _, err := io.WriteString(w, msg.String()); err != nil {
		_ = w.Close()
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close message: %w", err)
	}
	return nil
}
