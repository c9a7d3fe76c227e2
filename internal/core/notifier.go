package core

import "context"

// Notifier is the component named in spec.md §4 ("Notifier"). The core only
// depends on this interface; the chat-bot / push-notification surface that
// actually delivers messages is explicitly out of scope (spec.md Non-goals)
// and lives behind a concrete implementation in internal/notify.
type Notifier interface {
	// NotifyNewSubmission tells every admin of companyID that submissionID
	// is awaiting moderation.
	NotifyNewSubmission(ctx context.Context, companyID int, submissionID int64, submittedBy int64) error
	// NotifySubmissionReviewed tells submittedBy the outcome of moderation.
	NotifySubmissionReviewed(ctx context.Context, submittedBy int64, submissionID int64, approved bool, reason string) error
	// NotifyOrderReady tells every admin of companyID that an auto-generated
	// order proposal is ready for review (spec.md §9, scheduled path).
	NotifyOrderReady(ctx context.Context, companyID int, summary OrderSummary) error
}
