package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"time"

	"github.com/PabloGalante/flashcoach/internal/domain"
	"github.com/PabloGalante/flashcoach/internal/observability"
)

// DefaultFallbackRecipient receives escalations when neither the teacher
// nor the configuration names a mentor.
const DefaultFallbackRecipient = "admin@flashcoach.com"

const (
	defaultPrimaryPort  = 465 // implicit TLS
	defaultFallbackPort = 587 // STARTTLS
	defaultTimeout      = 15 * time.Second
)

type Config struct {
	Host     string
	Sender   string
	Password string

	// FallbackRecipient is used when a notice has no recipient.
	FallbackRecipient string

	PrimaryPort  int
	FallbackPort int
	Timeout      time.Duration
}

type sendFunc func(ctx context.Context, addr, to string, msg []byte) error

// Mailer delivers escalation notices over SMTP. It first tries an
// implicit TLS connection and falls back to STARTTLS once. Without
// credentials it only logs the message it would have sent.
type Mailer struct {
	cfg Config

	primary  sendFunc
	fallback sendFunc
}

func NewMailer(cfg Config) *Mailer {
	if cfg.PrimaryPort == 0 {
		cfg.PrimaryPort = defaultPrimaryPort
	}
	if cfg.FallbackPort == 0 {
		cfg.FallbackPort = defaultFallbackPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	m := &Mailer{cfg: cfg}
	m.primary = m.sendImplicitTLS
	m.fallback = m.sendStartTLS
	return m
}

// Configured implements domain.Notifier.
func (m *Mailer) Configured() bool {
	return m.cfg.Sender != "" && m.cfg.Password != ""
}

// SendEscalation implements domain.Notifier.
func (m *Mailer) SendEscalation(ctx context.Context, notice domain.EscalationNotice) error {
	log := observability.LoggerFromContext(ctx)

	to := m.recipient(notice.RecipientEmail)
	if notice.RecipientEmail != "" {
		log.Info("escalation uses teacher mentor address", "to", to)
	} else {
		log.Warn("teacher mentor address missing, using fallback", "to", to)
	}

	subject := "ESCALATION: Issue with " + notice.TeacherName

	if !m.Configured() {
		log.Warn("email credentials not set, simulating send",
			"to", to,
			"subject", subject,
			"body", notice.IssueSummary)
		return nil
	}

	addr, err := mail.ParseAddress(to)
	if err != nil {
		log.Error("invalid escalation recipient", "to", to, "error", err)
		return fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	to = addr.Address

	msg, err := buildMessage(m.cfg.Sender, to, subject, notice)
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}

	primaryAddr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.PrimaryPort))
	primaryErr := m.primary(ctx, primaryAddr, to, msg)
	if primaryErr == nil {
		log.Info("escalation email sent", "transport", "tls", "addr", primaryAddr)
		return nil
	}
	log.Warn("implicit TLS send failed, retrying with STARTTLS", "error", primaryErr)

	fallbackAddr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.FallbackPort))
	fallbackErr := m.fallback(ctx, fallbackAddr, to, msg)
	if fallbackErr == nil {
		log.Info("escalation email sent", "transport", "starttls", "addr", fallbackAddr)
		return nil
	}

	err = fmt.Errorf("ssl failed: %w | tls failed: %w", primaryErr, fallbackErr)
	log.Error("email send failed on both transports", "error", err)
	return err
}

func (m *Mailer) recipient(to string) string {
	switch {
	case to != "":
		return to
	case m.cfg.FallbackRecipient != "":
		return m.cfg.FallbackRecipient
	default:
		return DefaultFallbackRecipient
	}
}

func (m *Mailer) sendImplicitTLS(ctx context.Context, addr, to string, msg []byte) error {
	d := tls.Dialer{
		NetDialer: &net.Dialer{Timeout: m.cfg.Timeout},
		Config:    &tls.Config{ServerName: m.cfg.Host},
	}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	return m.deliver(ctx, conn, false, to, msg)
}

func (m *Mailer) sendStartTLS(ctx context.Context, addr, to string, msg []byte) error {
	d := net.Dialer{Timeout: m.cfg.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	return m.deliver(ctx, conn, true, to, msg)
}

func (m *Mailer) deliver(ctx context.Context, conn net.Conn, startTLS bool, to string, msg []byte) error {
	deadline := time.Now().Add(m.cfg.Timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = conn.SetDeadline(deadline)

	c, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if startTLS {
		if err := c.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if err := c.Auth(smtp.PlainAuth("", m.cfg.Sender, m.cfg.Password, m.cfg.Host)); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := c.Mail(m.cfg.Sender); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("smtp RCPT TO: %w", err)
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close message: %w", err)
	}
	return c.Quit()
}

// buildMessage renders a plain text message. Header values are RFC 2047
// encoded, so non-ASCII names survive and CR/LF in them cannot start a new
// header line. The body is quoted-printable.
func buildMessage(from, to, subject string, notice domain.EscalationNotice) ([]byte, error) {
	var b bytes.Buffer

	writeHeader(&b, "From", from)
	writeHeader(&b, "To", to)
	writeHeader(&b, "Subject", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("Content-Transfer-Encoding: quoted-printable\r\n")
	b.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&b)
	fmt.Fprintf(qp, "Teacher Name: %s\r\n", notice.TeacherName)
	fmt.Fprintf(qp, "Teacher Email: %s\r\n", notice.TeacherEmail)
	fmt.Fprint(qp, "\r\n")
	fmt.Fprint(qp, "Issue Summary:\r\n")
	fmt.Fprint(qp, notice.IssueSummary+"\r\n")
	fmt.Fprint(qp, "\r\n")
	fmt.Fprint(qp, "Message: \"AI solution failed 3 times. Human intervention required.\"\r\n")
	if err := qp.Close(); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

func writeHeader(b *bytes.Buffer, key, value string) {
	fmt.Fprintf(b, "%s: %s\r\n", key, mime.QEncoding.Encode("utf-8", value))
}
