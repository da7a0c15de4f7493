package support

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smartsite-dev/api/internal/store"
	"github.com/smartsite-dev/api/pkg/apperrors"
	"github.com/smartsite-dev/api/pkg/logging"
)

// rule matches ticket text against keywords and offers a canned
// self-service suggestion. Rules are checked in order; first match wins.
type rule struct {
	keywords   []string
	suggestion string
}

var suggestionRules = []rule{
	{
		keywords:   []string{"password", "login", "sign in", "locked out"},
		suggestion: "You can reset your password from the login page via 'Forgot password'. A reset link is emailed within a few minutes.",
	},
	{
		keywords:   []string{"publish", "not showing", "not live", "draft"},
		suggestion: "Pages must be published from the page builder before they appear on the live site. Check the page status in the admin dashboard.",
	},
	{
		keywords:   []string{"domain", "dns", "ssl", "certificate"},
		suggestion: "Domain and SSL changes can take up to 24 hours to propagate. Verify your DNS records point at the address shown under Settings > Domain.",
	},
	{
		keywords:   []string{"invoice", "billing", "payment", "subscription"},
		suggestion: "Invoices and payment details are available under Settings > Billing. Payment changes apply from the next billing cycle.",
	},
	{
		keywords:   []string{"upload", "image", "media", "logo"},
		suggestion: "Media uploads are limited to 10MB per file. If an upload stalls, re-try from the media library rather than the page editor.",
	},
}

// Engine runs the self-resolving support ticket flow: tickets open as
// new, gain an automatic suggestion when a rule matches, and can be
// escalated to developers or resolved. Resolved is terminal.
type Engine struct {
	store store.Store
}

// NewEngine creates a support engine
func NewEngine(s store.Store) *Engine {
	return &Engine{store: s}
}

// CreateTicket records a new ticket, attaching an automatic suggestion
// when one of the rules matches the subject or message.
func (e *Engine) CreateTicket(ctx context.Context, email, subject, message string) (*store.SupportTicket, error) {
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperrors.Validation("email", "must be a valid email address")
	}
	if strings.TrimSpace(message) == "" {
		return nil, apperrors.Validation("message", "is required")
	}
	if strings.TrimSpace(subject) == "" {
		return nil, apperrors.Validation("subject", "is required")
	}

	now := time.Now().UTC()
	ticket := &store.SupportTicket{
		ID:        uuid.New().String(),
		Email:     email,
		Subject:   subject,
		Message:   message,
		Status:    store.TicketStatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if suggestion, ok := suggest(subject + " " + message); ok {
		ticket.Status = store.TicketStatusAutoSuggested
		ticket.Suggestion = &suggestion
	}

	if err := e.store.CreateTicket(ctx, ticket); err != nil {
		return nil, apperrors.Upstream("failed to create ticket", err)
	}

	logging.Logger.Info("Support ticket created",
		zap.String("ticket", ticket.ID),
		zap.String("status", ticket.Status))

	return ticket, nil
}

// GetTicket returns the ticket with the given id
func (e *Engine) GetTicket(ctx context.Context, id string) (*store.SupportTicket, error) {
	ticket, err := e.store.GetTicket(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("ticket", id)
		}
		return nil, apperrors.Upstream("failed to load ticket", err)
	}
	return ticket, nil
}

// Escalate hands a ticket to the developers. Only new or auto_suggested
// tickets can be escalated.
func (e *Engine) Escalate(ctx context.Context, id string) (*store.SupportTicket, error) {
	ticket, err := e.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	switch ticket.Status {
	case store.TicketStatusNew, store.TicketStatusAutoSuggested:
	default:
		return nil, apperrors.Precondition("ticket cannot be escalated from status " + ticket.Status)
	}

	ticket.Status = store.TicketStatusEscalated
	if err := e.store.UpdateTicket(ctx, ticket); err != nil {
		return nil, apperrors.Upstream("failed to escalate ticket", err)
	}

	logging.Logger.Info("Support ticket escalated", zap.String("ticket", ticket.ID))
	return ticket, nil
}

// Resolve closes a ticket with a resolution note. Resolved is terminal.
func (e *Engine) Resolve(ctx context.Context, id, resolution string) (*store.SupportTicket, error) {
	ticket, err := e.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if ticket.Status == store.TicketStatusResolved {
		return nil, apperrors.Precondition("ticket is already resolved")
	}
	if strings.TrimSpace(resolution) == "" {
		return nil, apperrors.Validation("resolution", "is required")
	}

	ticket.Status = store.TicketStatusResolved
	ticket.Resolution = &resolution
	if err := e.store.UpdateTicket(ctx, ticket); err != nil {
		return nil, apperrors.Upstream("failed to resolve ticket", err)
	}

	logging.Logger.Info("Support ticket resolved", zap.String("ticket", ticket.ID))
	return ticket, nil
}

// suggest returns the first rule suggestion matching the text
func suggest(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, r := range suggestionRules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.suggestion, true
			}
		}
	}
	return "", false
}
