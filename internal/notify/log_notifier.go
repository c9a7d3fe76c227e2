// Package notify provides the default core.Notifier implementation. The
// chat-bot delivery surface that would actually message a human is out of
// scope (spec.md Non-goals); this package gives the core something concrete
// to call so every notification point in the domain logic is exercised.
package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Muahhidun/zakupwedrink/internal/core"
)

// LogNotifier logs every notification at info level instead of delivering
// it anywhere. Swapping in a real channel (Telegram, email, push) means
// implementing core.Notifier and wiring it in cmd/server/main.go; nothing
// else in the core changes.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "notifier").Logger()}
}

func (n *LogNotifier) NotifyNewSubmission(ctx context.Context, companyID int, submissionID int64, submittedBy int64) error {
	n.log.Info().
		Int("company_id", companyID).
		Int64("submission_id", submissionID).
		Int64("submitted_by", submittedBy).
		Msg("new stock submission awaiting review")
	return nil
}

func (n *LogNotifier) NotifySubmissionReviewed(ctx context.Context, submittedBy int64, submissionID int64, approved bool, reason string) error {
	event := n.log.Info().
		Int64("submitted_by", submittedBy).
		Int64("submission_id", submissionID).
		Bool("approved", approved)
	if reason != "" {
		event = event.Str("reason", reason)
	}
	event.Msg("stock submission reviewed")
	return nil
}

func (n *LogNotifier) NotifyOrderReady(ctx context.Context, companyID int, summary core.OrderSummary) error {
	n.log.Info().
		Int("company_id", companyID).
		Int("lines", len(summary.Lines)).
		Str("total_cost", summary.TotalCost.String()).
		Bool("should_notify", summary.ShouldNotify).
		Msg("order proposal ready")
	return nil
}
