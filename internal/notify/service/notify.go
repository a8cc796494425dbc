package service

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	mdomain "github.com/corvusHold/shopmail/internal/mail/domain"
	ndomain "github.com/corvusHold/shopmail/internal/notify/domain"
)

//go:embed templates/*
var templateFS embed.FS

var (
	htmlTmpl = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html"))
	textTmpl = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.txt"))
)

// Sender is the part of the mail dispatcher notifications need.
type Sender interface {
	SendMail(ctx context.Context, tenantID uuid.UUID, msg mdomain.OutboundMessage) mdomain.SendResult
	Profile(ctx context.Context, tenantID uuid.UUID) mdomain.SenderProfile
}

var _ ndomain.Notifier = (*Service)(nil)

// Service renders customer notifications and sends them as the tenant.
type Service struct {
	mail Sender
	log  zerolog.Logger
}

func New(mail Sender, log zerolog.Logger) *Service {
	return &Service{mail: mail, log: log}
}

type statusView struct {
	ndomain.StatusChange
	ShopName string
	OldLabel string
	NewLabel string
}

type feedbackView struct {
	ndomain.FeedbackRequest
	ShopName string
}

// StatusChanged mails the customer about a repair status change.
// Rendering errors are returned; delivery failures are reported in the result.
func (s *Service) StatusChanged(ctx context.Context, tenantID uuid.UUID, n ndomain.StatusChange) (mdomain.SendResult, error) {
	profile := s.mail.Profile(ctx, tenantID)
	view := statusView{
		StatusChange: n,
		ShopName:     profile.ShopName,
		NewLabel:     ndomain.StatusLabel(n.NewStatus),
	}
	if n.OldStatus != "" && n.OldStatus != n.NewStatus {
		view.OldLabel = ndomain.StatusLabel(n.OldStatus)
	}
	subject := fmt.Sprintf("Auftrag %s: %s", n.OrderNumber, view.NewLabel)
	return s.send(ctx, tenantID, n.CustomerEmail, profile.Email, subject, "status_change", view)
}

// FeedbackRequest asks the customer for a review of a finished order.
func (s *Service) FeedbackRequest(ctx context.Context, tenantID uuid.UUID, n ndomain.FeedbackRequest) (mdomain.SendResult, error) {
	profile := s.mail.Profile(ctx, tenantID)
	view := feedbackView{FeedbackRequest: n, ShopName: profile.ShopName}
	subject := fmt.Sprintf("Wie zufrieden waren Sie mit %s?", profile.ShopName)
	return s.send(ctx, tenantID, n.CustomerEmail, profile.Email, subject, "feedback_request", view)
}

func (s *Service) send(ctx context.Context, tenantID uuid.UUID, to, replyTo, subject, name string, view any) (mdomain.SendResult, error) {
	var html, text bytes.Buffer
	if err := htmlTmpl.ExecuteTemplate(&html, name+".html", view); err != nil {
		return mdomain.SendResult{}, fmt.Errorf("render %s html: %w", name, err)
	}
	if err := textTmpl.ExecuteTemplate(&text, name+".txt", view); err != nil {
		return mdomain.SendResult{}, fmt.Errorf("render %s text: %w", name, err)
	}
	msg := mdomain.OutboundMessage{
		To:      []string{strings.TrimSpace(to)},
		Subject: subject,
		HTML:    html.String(),
		Text:    text.String(),
		Headers: map[string]string{"X-Shopmail-Notification": name},
	}
	if mdomain.IsEmail(replyTo) {
		msg.ReplyTo = replyTo
	}
	res := s.mail.SendMail(ctx, tenantID, msg)
	ev := s.log.Info()
	if !res.Success {
		ev = s.log.Warn().Str("error", res.Error)
	}
	ev.Str("tenant_id", tenantID.String()).
		Str("notification", name).
		Bool("used_fallback", res.UsedFallback).
		Msg("customer notification")
	return res, nil
}
