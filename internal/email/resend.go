package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

// ErrRateLimited marks a send refused by Resend's rate limit. Callers retry
// later rather than immediately.
var ErrRateLimited = errors.New("email rate limit exceeded")

// message is one rendered notification. reference identifies the thing it
// announces (a payment, an admin) so a retried job does not mail twice.
type message struct {
	template  string
	event     string
	reference string
	to        string
	subject   string
	html      string
}

// tags labels the message for delivery analytics by template and event.
func (m message) tags() []resend.Tag {
	tags := []resend.Tag{{Name: "template", Value: strings.TrimSuffix(m.template, ".html")}}
	if m.event != "" {
		tags = append(tags, resend.Tag{Name: "event", Value: strings.ToLower(m.event)})
	}
	return tags
}

func (m message) idempotencyKey() string {
	if m.reference == "" {
		return ""
	}
	return strings.TrimSuffix(m.template, ".html") + "/" + m.reference
}

type sender interface {
	send(ctx context.Context, m message) (string, error)
}

// resendSender delivers messages through the Resend API.
type resendSender struct {
	client  *resend.Client
	from    string
	replyTo string
	logger  zerolog.Logger
}

func newResendSender(apiKey, from, replyTo string, logger zerolog.Logger) *resendSender {
	return &resendSender{
		client:  resend.NewClient(apiKey),
		from:    from,
		replyTo: replyTo,
		logger:  logger,
	}
}

func (r *resendSender) send(ctx context.Context, m message) (string, error) {
	req := &resend.SendEmailRequest{
		From:    r.from,
		To:      []string{m.to},
		ReplyTo: r.replyTo,
		Subject: m.subject,
		Html:    m.html,
		Tags:    m.tags(),
	}

	sent, err := r.client.Emails.SendWithOptions(ctx, req, &resend.SendEmailOptions{IdempotencyKey: m.idempotencyKey()})
	if err != nil {
		var limited *resend.RateLimitError
		if errors.As(err, &limited) {
			r.logger.Warn().
				Str("template", m.template).
				Str("limit", limited.Limit).
				Str("remaining", limited.Remaining).
				Str("reset", limited.Reset).
				Msg("resend rate limit exceeded")
			return "", fmt.Errorf("%w (limit %s, resets in %ss): %v", ErrRateLimited, limited.Limit, limited.Reset, err)
		}
		return "", fmt.Errorf("send %s via resend: %w", m.template, err)
	}
	return sent.Id, nil
}
