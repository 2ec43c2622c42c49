// Package email sends transactional mail through Resend.
package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dscnitrourkela/project-zucchini/internal/config"
	"github.com/dscnitrourkela/project-zucchini/internal/metrics"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	templatePaymentConfirmation = "payment_confirmation.html"
	templateAdminApproved       = "admin_approved.html"
)

type Service struct {
	config    config.EmailConfig
	templates *template.Template
	sender    sender
	logger    zerolog.Logger
	now       func() time.Time
}

// PaymentConfirmation is rendered into the receipt sent after a payment is
// verified. Amount is in rupees.
type PaymentConfirmation struct {
	Name      string
	Event     string
	Amount    int
	PaymentID string
	OrderID   string
	TeamID    string
}

type paymentData struct {
	PaymentConfirmation
	EventTitle  string
	CurrentYear int
}

type adminData struct {
	Name        string
	LoginURL    string
	CurrentYear int
}

// NewService parses the embedded templates. A disabled service renders
// templates but only logs instead of sending.
func NewService(cfg config.EmailConfig, logger zerolog.Logger) (*Service, error) {
	if cfg.Enabled {
		if err := validateEmailAddress(cfg.From); err != nil {
			return nil, fmt.Errorf("invalid sender email in config: %w", err)
		}
		if cfg.ResendAPIKey == "" {
			return nil, fmt.Errorf("RESEND_API_KEY is required when email is enabled")
		}
	}

	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}

	s := &Service{
		config:    cfg,
		templates: templates,
		logger:    logger.With().Str("component", "email").Logger(),
		now:       time.Now,
	}
	if cfg.Enabled {
		s.sender = newResendSender(cfg.ResendAPIKey, cfg.From, cfg.ReplyTo, s.logger)
	}
	return s, nil
}

// SendPaymentConfirmation mails the receipt for a verified payment.
func (s *Service) SendPaymentConfirmation(ctx context.Context, to string, p PaymentConfirmation) error {
	title := "NITRUTSAV 2026"
	if p.Event == "MUN" {
		title = "NITRUTSAV MUN 2026"
	}

	body, err := s.render(templatePaymentConfirmation, paymentData{
		PaymentConfirmation: p,
		EventTitle:          title,
		CurrentYear:         s.now().Year(),
	})
	if err != nil {
		return err
	}
	return s.deliver(ctx, message{
		template:  templatePaymentConfirmation,
		event:     p.Event,
		reference: p.PaymentID,
		to:        to,
		subject:   "Payment confirmed: " + title,
		html:      body,
	})
}

// SendAdminApproved tells a newly approved admin they can sign in.
func (s *Service) SendAdminApproved(ctx context.Context, to, name, loginURL string) error {
	body, err := s.render(templateAdminApproved, adminData{
		Name:        name,
		LoginURL:    loginURL,
		CurrentYear: s.now().Year(),
	})
	if err != nil {
		return err
	}
	return s.deliver(ctx, message{
		template:  templateAdminApproved,
		reference: strings.ToLower(to),
		to:        to,
		subject:   "Your NITRUTSAV admin access is approved",
		html:      body,
	})
}

func (s *Service) deliver(ctx context.Context, m message) error {
	if err := validateEmailAddress(m.to); err != nil {
		metrics.EmailsTotal.WithLabelValues(m.template, "invalid").Inc()
		return fmt.Errorf("invalid recipient email: %w", err)
	}

	if !s.config.Enabled || s.sender == nil {
		metrics.EmailsTotal.WithLabelValues(m.template, "skipped").Inc()
		s.logger.Info().Str("to", m.to).Str("template", m.template).Msg("email service disabled, skipping email")
		return nil
	}

	id, err := s.sender.send(ctx, m)
	if err != nil {
		metrics.EmailsTotal.WithLabelValues(m.template, "error").Inc()
		return err
	}
	metrics.EmailsTotal.WithLabelValues(m.template, "sent").Inc()
	s.logger.Info().
		Str("email_id", id).
		Str("template", m.template).
		Str("reference", m.reference).
		Msg("email sent")
	return nil
}

// validateEmailAddress rejects malformed addresses and header injection.
func validateEmailAddress(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	if strings.ContainsAny(addr.Address, "\r\n") {
		return fmt.Errorf("invalid email address: contains newline characters")
	}
	return nil
}

func (s *Service) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("execute template %s: %w", name, err)
	}
	return buf.String(), nil
}
