// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/quickres/quickres/internal/config"
	"github.com/quickres/quickres/internal/i18n"
)

// SMTPSender delivers notifications as localized plain-text emails.
type SMTPSender struct {
	cfg     *config.SMTPConfig
	baseURL string
}

// NewSMTPSender creates an SMTP-backed sender.
func NewSMTPSender(cfg *config.SMTPConfig, baseURL string) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}

	return &SMTPSender{
		cfg:     cfg,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Send renders the email for the given kind and delivers it.
func (s *SMTPSender) Send(ctx context.Context, kind Kind, recipient string, data Data) error {
	var subject, body string

	switch kind {
	case KindVerificationRequested:
		subject = i18n.T(ctx, "email_verification_subject")
		body = i18n.TData(ctx, "email_verification_body", map[string]any{
			"UserName":   data["user_name"],
			"EventName":  data["event_name"],
			"SpotCount":  data["spot_count"],
			"TTLMinutes": data["ttl_minutes"],
			"VerifyURL":  fmt.Sprintf("%s/api/verify/%s", s.baseURL, data["verification_token"]),
		})

	case KindReservationConfirmed:
		tokens, _ := data["check_in_tokens"].([]string)
		subject = i18n.TData(ctx, "email_confirmation_subject", map[string]any{
			"EventName": data["event_name"],
		})
		body = i18n.TData(ctx, "email_confirmation_body", map[string]any{
			"UserName":    data["user_name"],
			"EventName":   data["event_name"],
			"TokenList":   strings.Join(tokens, "\n"),
			"RetrieveURL": fmt.Sprintf("%s/api/reservations/%s", s.baseURL, data["reservation_id"]),
		})

	default:
		return fmt.Errorf("unknown notification kind %q", kind)
	}

	return s.send(recipient, subject, body)
}

// send delivers an email via SMTP using go-mail.
func (s *SMTPSender) send(to, subject, body string) error {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	// Use implicit TLS (SSL) for port 465, STARTTLS for others
	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}
