package gmail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"time"
)

// DefaultSMTPAddr is Gmail's submission endpoint.
const DefaultSMTPAddr = "smtp.gmail.com:587"

const smtpDialTimeout = 30 * time.Second

// SMTPSender submits mail over SMTP with STARTTLS and PLAIN auth, the way
// Gmail accepts app passwords.
type SMTPSender struct {
	Addr     string
	Email    string
	Password string

	// TLSConfig overrides the STARTTLS configuration. ServerName defaults
	// to the host of Addr.
	TLSConfig *tls.Config
}

// NewSMTPSender returns a sender for email on DefaultSMTPAddr.
func NewSMTPSender(email, password string) *SMTPSender {
	return &SMTPSender{Addr: DefaultSMTPAddr, Email: email, Password: password}
}

// Verify connects and authenticates without sending anything.
func (s *SMTPSender) Verify(ctx context.Context) error {
	return s.session(ctx, func(*smtp.Client) error { return nil })
}

// Send delivers m. An empty From is filled with the sender's address.
func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	if m.From == "" {
		m.From = s.Email
	}
	raw, err := m.Build(false)
	if err != nil {
		return err
	}

	return s.session(ctx, func(c *smtp.Client) error {
		if err := c.Mail(s.Email); err != nil {
			return fmt.Errorf("smtp MAIL FROM: %w", err)
		}
		for _, rcpt := range m.Recipients() {
			if err := c.Rcpt(rcpt); err != nil {
				return fmt.Errorf("smtp RCPT TO %s: %w", rcpt, err)
			}
		}
		w, err := c.Data()
		if err != nil {
			return fmt.Errorf("smtp DATA: %w", err)
		}
		if _, err := w.Write(raw); err != nil {
			_ = w.Close()
			return fmt.Errorf("smtp DATA: %w", err)
		}
		return w.Close()
	})
}

// session dials, upgrades to TLS when offered, authenticates and runs fn.
// Cancelling ctx closes the connection.
func (s *SMTPSender) session(ctx context.Context, fn func(*smtp.Client) error) error {
	if s.Email == "" || s.Password == "" {
		return errors.New("smtp credentials not configured")
	}
	host, _, err := net.SplitHostPort(s.Addr)
	if err != nil {
		return fmt.Errorf("invalid smtp address %q: %w", s.Addr, err)
	}

	dialer := &net.Dialer{Timeout: smtpDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		cfg := s.TLSConfig
		if cfg == nil {
			cfg = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
		}
		if err := c.StartTLS(cfg); err != nil {
			return fmt.Errorf("smtp STARTTLS: %w", err)
		}
	}
	if err := c.Auth(smtp.PlainAuth("", s.Email, s.Password, host)); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}

	if err := fn(c); err != nil {
		return err
	}
	return c.Quit()
}
