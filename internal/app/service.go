// Package app wires the core components into one facade, the way the
// teacher's internal/app/service.go composes its domain services for both
// the web adapter and the cmd/ binaries to share.
package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Muahhidun/zakupwedrink/internal/config"
	"github.com/Muahhidun/zakupwedrink/internal/core"
	"github.com/Muahhidun/zakupwedrink/internal/draftcache"
)

// Service is the single entrypoint the web adapter and the scheduled
// reminder depend on; cmd/server/main.go and cmd/reminder/main.go each wire
// one. The seed and migrate tools do not use it.
type Service struct {
	Tenants     core.TenantStore
	Access      core.AccessPolicy
	Catalog     core.Catalog
	Ledger      core.Ledger
	Forecaster  core.Forecaster
	Orders      core.OrderBook
	Submissions core.SubmissionQueue
	Notifier    core.Notifier
	Clock       core.Clock
	Drafts      *draftcache.Store
	Business    config.Business
}

// SubmitStock enforces access control and delegates to SubmissionQueue,
// notifying admins of the company on success.
func (s *Service) SubmitStock(ctx context.Context, actor core.Actor, date core.DateKey, items []core.StockSubmissionItem) (*core.StockSubmission, error) {
	if err := s.Access.Authorize(actor, core.ActionSubmitStock, actor.CompanyID); err != nil {
		return nil, err
	}
	submission, err := s.Submissions.SubmitStock(ctx, actor.CompanyID, actor.UserID, date, items)
	if err != nil {
		return nil, err
	}
	if s.Notifier != nil {
		_ = s.Notifier.NotifyNewSubmission(ctx, actor.CompanyID, submission.ID, actor.UserID)
	}
	return submission, nil
}

// ApproveSubmission enforces moderation access, applies the submission, and
// notifies the submitter.
func (s *Service) ApproveSubmission(ctx context.Context, actor core.Actor, submissionID int64) error {
	if err := s.Access.Authorize(actor, core.ActionModerateSubmission, actor.CompanyID); err != nil {
		return err
	}
	submittedBy, err := s.Submissions.Approve(ctx, actor.CompanyID, submissionID, actor.UserID)
	if err != nil {
		return err
	}
	if s.Notifier != nil {
		_ = s.Notifier.NotifySubmissionReviewed(ctx, submittedBy, submissionID, true, "")
	}
	return nil
}

// RejectSubmission enforces moderation access, rejects with reason, and
// notifies the submitter.
func (s *Service) RejectSubmission(ctx context.Context, actor core.Actor, submissionID int64, reason string) error {
	if err := s.Access.Authorize(actor, core.ActionModerateSubmission, actor.CompanyID); err != nil {
		return err
	}
	submittedBy, err := s.Submissions.Reject(ctx, actor.CompanyID, submissionID, actor.UserID, reason)
	if err != nil {
		return err
	}
	if s.Notifier != nil {
		_ = s.Notifier.NotifySubmissionReviewed(ctx, submittedBy, submissionID, false, reason)
	}
	return nil
}

// BuildOrderDraft runs the forecaster over the company's catalog and caches
// the resulting proposal list for later edit/confirm, returning a draft
// token (spec.md §9).
func (s *Service) BuildOrderDraft(ctx context.Context, actor core.Actor, includePending bool) (string, core.OrderSummary, error) {
	if err := s.Access.Authorize(actor, core.ActionCreateOrder, actor.CompanyID); err != nil {
		return "", core.OrderSummary{}, err
	}
	lines, err := s.Forecaster.SelectItemsToOrder(ctx, actor.CompanyID, s.Business.DaysThreshold, s.Business.OrderDays, true, includePending)
	if err != nil {
		return "", core.OrderSummary{}, err
	}
	threshold, _ := decimal.NewFromString(s.Business.NotifyThresholdAmount)
	summary, err := s.Forecaster.SummarizeOrder(ctx, actor.CompanyID, lines, threshold)
	if err != nil {
		return "", core.OrderSummary{}, err
	}
	token := s.Drafts.Put(draftcache.Draft{CompanyID: actor.CompanyID, CreatedBy: actor.UserID, Lines: summary.Lines})
	return token, summary, nil
}

// ConfirmOrderDraft turns a cached draft into a real PendingOrder and
// removes it from the cache.
func (s *Service) ConfirmOrderDraft(ctx context.Context, actor core.Actor, token string, notes string) (*core.PendingOrder, error) {
	if err := s.Access.Authorize(actor, core.ActionCreateOrder, actor.CompanyID); err != nil {
		return nil, err
	}
	draft, ok := s.Drafts.Get(token)
	if !ok {
		return nil, core.NotFound("order draft %q not found or expired", token)
	}
	if draft.CompanyID != actor.CompanyID {
		return nil, core.Forbidden("draft %q does not belong to company %d", token, actor.CompanyID)
	}

	lines := make([]core.PendingOrderLine, 0, len(draft.Lines))
	for _, l := range draft.Lines {
		lines = append(lines, core.PendingOrderLine{
			ProductID:     l.ProductID,
			BoxesOrdered:  l.Boxes,
			WeightOrdered: l.NeededWeight,
			Cost:          l.Cost,
		})
	}
	order, err := s.Orders.CreateOrder(ctx, actor.CompanyID, actor.UserID, lines, notes)
	if err != nil {
		return nil, err
	}
	s.Drafts.Delete(token)
	return order, nil
}

// CompleteOrder enforces access, transitions the order, and stamps today's
// working date as the supply date.
func (s *Service) CompleteOrder(ctx context.Context, actor core.Actor, orderID int64) error {
	if err := s.Access.Authorize(actor, core.ActionCompleteOrder, actor.CompanyID); err != nil {
		return err
	}
	return s.Orders.CompleteOrder(ctx, actor.CompanyID, orderID, s.Clock.WorkingDate())
}

// CancelOrder enforces access and transitions the order to cancelled.
func (s *Service) CancelOrder(ctx context.Context, actor core.Actor, orderID int64) error {
	if err := s.Access.Authorize(actor, core.ActionCancelOrder, actor.CompanyID); err != nil {
		return err
	}
	return s.Orders.CancelOrder(ctx, actor.CompanyID, orderID)
}

// ListCatalog enforces access and returns the company's active products.
func (s *Service) ListCatalog(ctx context.Context, actor core.Actor) ([]core.Product, error) {
	if err := s.Access.Authorize(actor, core.ActionViewCatalog, actor.CompanyID); err != nil {
		return nil, err
	}
	return s.Catalog.ListProducts(ctx, actor.CompanyID, true)
}

// AddProduct enforces catalog-management access and delegates to Catalog.
func (s *Service) AddProduct(ctx context.Context, actor core.Actor, p core.Product) (*core.Product, error) {
	if err := s.Access.Authorize(actor, core.ActionManageCatalog, actor.CompanyID); err != nil {
		return nil, err
	}
	p.CompanyID = actor.CompanyID
	return s.Catalog.AddProduct(ctx, p)
}

// RecordSnapshot writes a snapshot directly, bypassing moderation — used for
// corrective/admin entries. The actor must belong to the company and hold
// the admin role.
func (s *Service) RecordSnapshot(ctx context.Context, actor core.Actor, productID int, date core.DateKey, quantity, weight decimal.Decimal) error {
	if err := s.Access.Authorize(actor, core.ActionManageCatalog, actor.CompanyID); err != nil {
		return err
	}
	if actor.Role != core.RoleAdmin {
		return core.Forbidden("direct snapshot writes require the admin role")
	}
	return s.Ledger.RecordSnapshot(ctx, core.StockSnapshot{
		CompanyID: actor.CompanyID, ProductID: productID, Date: date, Quantity: quantity, Weight: weight, RecordedBy: actor.UserID,
	})
}

// CreateCompany is platform-admin-only; it also seeds the new tenant's
// catalog from the system template (spec.md §4.1/§9).
func (s *Service) CreateCompany(ctx context.Context, actor core.Actor, name string) (*core.Company, error) {
	if err := s.Access.Authorize(actor, core.ActionManagePlatform, core.SystemCompanyID); err != nil {
		return nil, err
	}
	company, err := s.Tenants.CreateCompany(ctx, name)
	if err != nil {
		return nil, err
	}
	if _, err := s.Tenants.CloneCatalogFromSystem(ctx, company.ID); err != nil {
		return nil, err
	}
	return company, nil
}

// DashboardDigest is a read model combining a small daily status snapshot,
// the kind of summary an admin wants first thing in the morning
// (spec.md §9's scheduled-reminder surface calls this before dispatch).
type DashboardDigest struct {
	CompanyID       int
	GeneratedAt     time.Time
	OrderCandidates []core.OrderLineProposal
}

// BuildDashboardDigest computes the forecast-only read model used by the
// scheduled reminder path; it never mutates state.
func (s *Service) BuildDashboardDigest(ctx context.Context, companyID int) (DashboardDigest, error) {
	lines, err := s.Forecaster.SelectItemsToOrder(ctx, companyID, s.Business.DaysThreshold, s.Business.OrderDays, true, true)
	if err != nil {
		return DashboardDigest{}, err
	}
	return DashboardDigest{CompanyID: companyID, GeneratedAt: s.Clock.Now(), OrderCandidates: lines}, nil
}
