package delivery

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/scoutwatch/scout/internal/config"
)

// sendFunc matches smtp.SendMail; swapped out in tests.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPDeliverer sends the digest as a multipart/alternative email.
type SMTPDeliverer struct {
	cfg  config.SMTPConfig
	log  zerolog.Logger
	now  func() time.Time
	send sendFunc
}

// NewSMTP builds the SMTP adapter from config.
func NewSMTP(cfg config.SMTPConfig, log zerolog.Logger) *SMTPDeliverer {
	return &SMTPDeliverer{
		cfg:  cfg,
		log:  log.With().Str("transport", "smtp").Logger(),
		now:  time.Now,
		send: smtp.SendMail,
	}
}

// Deliver sends the message to every configured recipient in one
// transaction. net/smtp has no context support, so the send runs in a
// goroutine and cancellation abandons the wait.
func (d *SMTPDeliverer) Deliver(ctx context.Context, msg Message) (Receipt, error) {
	if len(d.cfg.Recipients) == 0 {
		return Receipt{}, fmt.Errorf("smtp delivery: no recipients configured")
	}

	body, err := buildMIME(d.cfg.From, d.cfg.Recipients, msg)
	if err != nil {
		return Receipt{}, fmt.Errorf("smtp delivery: %w", err)
	}

	var auth smtp.Auth
	if d.cfg.Username != "" {
		host := d.cfg.Addr
		if i := strings.IndexByte(host, ':'); i >= 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", d.cfg.Username, d.cfg.Password, host)
	}

	done := make(chan error, 1)
	go func() {
		done <- d.send(d.cfg.Addr, auth, d.cfg.From, d.cfg.Recipients, body)
	}()

	select {
	case <-ctx.Done():
		return Receipt{}, fmt.Errorf("smtp delivery: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return Receipt{}, fmt.Errorf("smtp delivery: %w", err)
		}
	}

	receipt := newReceipt("smtp", d.cfg.Recipients, d.now().UTC())
	d.log.Info().
		Str("provider_id", receipt.ProviderID).
		Int("recipients", len(d.cfg.Recipients)).
		Msg("digest delivered")
	return receipt, nil
}

// buildMIME assembles a multipart/alternative message with the text
// part first so clients that cannot render HTML fall back cleanly.
func buildMIME(from string, to []string, msg Message) ([]byte, error) {
	var b strings.Builder
	mp := multipart.NewWriter(&b)

	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", mp.Boundary())

	text, err := mp.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=utf-8"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := text.Write(msg.Text); err != nil {
		return nil, err
	}

	html, err := mp.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/html; charset=utf-8"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := html.Write(msg.HTML); err != nil {
		return nil, err
	}

	if err := mp.Close(); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}
