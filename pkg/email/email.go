package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oakwoodlegal/intake-agent/pkg/circuitbreaker"
	"github.com/oakwoodlegal/intake-agent/pkg/logger"
	"github.com/oakwoodlegal/intake-agent/pkg/metrics"
	"github.com/oakwoodlegal/intake-agent/pkg/otel"
	"github.com/oakwoodlegal/intake-agent/pkg/retry"
)

// Config holds SMTP settings
type Config struct {
	Host       string
	Port       int
	User       string
	Password   string
	SenderName string
}

// Message is one outgoing email
type Message struct {
	To      []string
	CC      []string
	BCC     []string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
}

// Result reports a completed send
type Result struct {
	MessageID string
}

// Sender delivers email over SMTP with STARTTLS
type Sender struct {
	cfg     Config
	breaker *circuitbreaker.CircuitBreaker
	log     *zap.Logger
}

func NewSender(cfg Config, log *zap.Logger) *Sender {
	return &Sender{
		cfg:     cfg,
		breaker: circuitbreaker.New("smtp", circuitbreaker.DefaultConfig()),
		log:     log.Named("email"),
	}
}

// Configured reports whether SMTP credentials are present
func (s *Sender) Configured() bool {
	return s.cfg.User != "" && s.cfg.Password != ""
}

// Send delivers the message, retrying transient failures
func (s *Sender) Send(ctx context.Context, msg Message) (*Result, error) {
	if !s.Configured() {
		return nil, errors.New("SMTP credentials not configured")
	}

	to := normalizeRecipients(msg.To)
	if len(to) == 0 {
		return nil, errors.New("no recipients provided")
	}
	cc := normalizeRecipients(msg.CC)
	bcc := normalizeRecipients(msg.BCC)

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), s.cfg.Host)
	payload := s.buildMessage(msg, to, cc, messageID)
	rcpts := dedupe(append(append(append([]string{}, to...), cc...), bcc...))

	started := time.Now()
	err := otel.WithServiceSpan(ctx, "smtp", "send", func(ctx context.Context) error {
		return s.breaker.Execute(ctx, func() error {
			return retry.Do(ctx, retry.DefaultConfig(), func() error {
				return s.deliver(rcpts, payload)
			})
		})
	})
	metrics.RecordServiceCall("smtp", err == nil, time.Since(started))
	if err != nil {
		return nil, err
	}

	s.log.Info("Email sent",
		logger.MaskEmail("to", to[0]),
		zap.String("subject", msg.Subject),
	)
	return &Result{MessageID: messageID}, nil
}

func (s *Sender) deliver(rcpts []string, payload []byte) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
		return fmt.Errorf("starttls: %w", err)
	}
	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}

	if err := client.Mail(s.cfg.User); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range rcpts {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close message: %w", err)
	}

	return client.Quit()
}

const boundary = "=_oakwood_alt_boundary"

func (s *Sender) buildMessage(msg Message, to, cc []string, messageID string) []byte {
	text := msg.Text
	if text == "" {
		text = stripHTML(msg.HTML)
	}

	from := s.cfg.User
	if s.cfg.SenderName != "" {
		from = fmt.Sprintf("%s <%s>", s.cfg.SenderName, s.cfg.User)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	if len(cc) > 0 {
		fmt.Fprintf(&b, "Cc: %s\r\n", strings.Join(cc, ", "))
	}
	if msg.ReplyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", msg.ReplyTo)
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Message-ID: %s\r\n", messageID)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")

	if msg.HTML == "" {
		b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		b.WriteString(text)
		return []byte(b.String())
	}

	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n", boundary, text)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=utf-8\r\n\r\n%s\r\n", boundary, msg.HTML)
	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String())
}

// normalizeRecipients trims entries and splits comma-joined addresses
func normalizeRecipients(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// stripHTML produces a rough plain-text fallback body
func stripHTML(html string) string {
	replacer := strings.NewReplacer(
		"<br>", "\n", "<br/>", "\n", "<br />", "\n",
		"<p>", "", "</p>", "\n",
		"<strong>", "", "</strong>", "",
		"<em>", "", "</em>", "",
		"<ul>", "", "</ul>", "",
		"<li>", "- ", "</li>", "\n",
	)
	return strings.TrimSpace(replacer.Replace(html))
}
