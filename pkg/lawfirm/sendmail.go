package lawfirm

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/oakwoodlegal/intake-agent/pkg/email"
)

// SendEmail delivers an arbitrary message on the agent's behalf and
// logs the outcome to email_logs. A failed audit write never masks a
// successful send.
func (f *Functions) SendEmail(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	if f.deps.Email == nil || !f.deps.Email.Configured() {
		return nil, errors.New("email credentials not configured")
	}

	to := argString(args, "to")
	if to == "" {
		return nil, errors.New("to is required")
	}
	subject := argString(args, "subject")
	html := argStringOr(args, "html", argString(args, "body"))

	msg := email.Message{
		To:      []string{to},
		Subject: subject,
		HTML:    html,
		Text:    argString(args, "text"),
	}
	if cc := argString(args, "cc"); cc != "" {
		msg.CC = []string{cc}
	}
	if bcc := argString(args, "bcc"); bcc != "" {
		msg.BCC = []string{bcc}
	}
	if replyTo := argString(args, "reply_to"); replyTo != "" {
		msg.ReplyTo = replyTo
	}

	result := map[string]interface{}{
		"to":      to,
		"subject": subject,
	}
	sent, err := f.deps.Email.Send(ctx, msg)
	if err != nil {
		result["ok"] = false
		result["error"] = err.Error()
	} else {
		result["ok"] = true
		result["message_id"] = sent.MessageID
	}

	f.logEmail(to, subject, html, result)
	return result, nil
}

func (f *Functions) logEmail(to, subject, html string, result map[string]interface{}) {
	if f.deps.DB == nil {
		return
	}
	status := "error"
	if ok, _ := result["ok"].(bool); ok {
		status = "sent"
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := f.deps.DB.Pool().Exec(ctx,
			`INSERT INTO email_logs (email_type, subject, body, status)
			 VALUES ($1, $2, $3, $4)`,
			"outbound", subject, html, status,
		); err != nil {
			f.log.Warn("Failed to log outbound email",
				zap.String("to", to),
				zap.Error(err))
		}
	}()
}
