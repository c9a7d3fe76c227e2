// Package web exposes the app.Service facade over HTTP+JSON. Per
// spec.md Non-goals, a full HTML presentation layer is out of scope; this
// package exists to give the core something to be driven by in tests and
// to exercise chi the way the teacher does.
package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Muahhidun/zakupwedrink/internal/app"
	"github.com/Muahhidun/zakupwedrink/internal/core"
)

type Handler struct {
	svc *app.Service
}

func NewHandler(svc *app.Service) *Handler {
	return &Handler{svc: svc}
}

// actorFromRequest resolves the caller's Actor from the X-User-ID header.
// A real deployment would derive this from a session/JWT; spec.md leaves
// the transport-level auth mechanism to the (out of scope) presentation
// layer, so this header stands in for it.
func (h *Handler) actorFromRequest(r *http.Request) (core.Actor, error) {
	raw := r.Header.Get("X-User-ID")
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return core.Actor{}, core.Validation("missing or invalid X-User-ID header")
	}
	return h.svc.Access.ResolveActor(r.Context(), userID)
}

func (h *Handler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actorFromRequest(r)
	if err != nil {
		writeCoreError(w, r, err)
		return
	}
	products, err := h.svc.ListCatalog(r.Context(), actor)
	if err != nil {
		writeCoreError(w, r, err)
		return
	}
	writeJSON(w, products)
}

type addProductRequest struct {
	NameInternal  string `json:"name_internal"`
	NameRussian   string `json:"name_russian"`
	NameChinese   string `json:"name_chinese"`
	PackageWeight string `json:"package_weight"`
	UnitsPerBox   string `json:"units_per_box"`
	BoxWeight     string `json:"box_weight"`
	PricePerBox   string `json:"price_per_box"`
	Unit          string `json:"unit"`
}

func (h *Handler) AddProduct(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actorFromRequest(r)
	if err != nil {
		writeCoreError(w, r, err)
		return
	}
	var req addProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid request body", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}

	packageWeight, err1 := decimal.NewFromString(req.PackageWeight)
	unitsPerBox, err2 := decimal.NewFromString(req.UnitsPerBox)
	boxWeight, err3 := decimal.NewFromString(req.BoxWeight)
	pricePerBox, err4 := decimal.NewFromString(req.PricePerBox)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		writeError(w, r, "invalid numeric field", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}

	product, err := h.svc.AddProduct(r.Context(), actor, core.Product{
		NameInternal:  req.NameInternal,
		NameRussian:   req.NameRussian,
		NameChinese:   req.NameChinese,
		PackageWeight: packageWeight,
		UnitsPerBox:   unitsPerBox,
		BoxWeight:     boxWeight,
		PricePerBox:   pricePerBox,
		Unit:          core.Unit(req.Unit),
	})
	if err != nil {
		writeCoreError(w, r, err)
		return
	}
	writeJSON(w, product)
}

type submitStockRequest struct {
	Date  string `json:"date"`
	Items []struct {
		ProductID int    `json:"product_id"`
		Quantity  string `json:"quantity"`
		Weight    string `json:"weight"`
	} `json:"items"`
}

func (h *Handler) SubmitStock(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actorFromRequest(r)
	if err != nil {
		writeCoreError(w, r, err)
		return
	}
	var req submitStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid request body", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	date, err := core.ParseDateKey(req.Date)
	if err != nil {
		writeCoreError(w, r, err)
		return
	}

	items := make([]core.StockSubmissionItem, 0, len(req.Items))
	for _, it := range req.Items {
		quantity, qErr := decimal.NewFromString(it.Quantity)
		weight, wErr := decimal.NewFromString(it.Weight)
		if qErr != nil || wErr != nil {
			writeError(w, r, "invalid numeric field", "VALIDATION_ERROR", http.StatusBadRequest)
			return
		}
		items = append(items, core.StockSubmissionItem{ProductID: it.ProductID, Quantity: quantity, Weight: weight})
	}

	submission, err := h.svc.SubmitStock(r.Context(), actor, date, items)
	if err != nil {
		writeCoreError(w, r, err)
		return
	}
	writeJSON(w, submission)
}

func (h *Handler) ListPendingSubmissions(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actorFromRequest(r)
	if err != nil {
		writeCoreError(w, r, err)
		return
	}
	if err := h.svc.Access.Authorize(actor, core.ActionModerateSubmission, actor.CompanyID); err != nil {
		writeCoreError(w, r, err)
		return
	}
	subs, err := h.svc.Submissions.ListPendingForCompany(r.Context(), actor.CompanyID)
	if err != nil {
		writeCoreError(w, r, err)
		return
	}
	writeJSON(w, subs)
}

func (h *Handler) ApproveSubmission(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actorFromRequest(r)
	if err != nil {
		writeCoreError(w, r, err)
		return
	}
	submissionID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, r, "invalid submission id", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	if err := h.svc.ApproveSubmission(r.Context(), actor, submissionID); err != nil {
		writeCoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type rejectSubmissionRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) RejectSubmission(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actorFromRequest(r)
	if err != nil {
		writeCoreError(w, r, err)
		return
	}
	submissionID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, r, "invalid submission id", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	var req rejectSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid request body", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	if err := h.svc.RejectSubmission(r.Context(), actor, submissionID, req.Reason); err != nil {
		writeCoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) BuildOrderDraft(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actorFromRequest(r)
	if err != nil {
		writeCoreError(w, r, err)
		return
	}
	includePending := r.URL.Query().Get("include_pending") == "true"
	token, summary, err := h.svc.BuildOrderDraft(r.Context(), actor, includePending)
	if err != nil {
		writeCoreError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"draft_token": token, "summary": summary})
}

type confirmDraftRequest struct {
	Token string `json:"draft_token"`
	Notes string `json:"notes"`
}

func (h *Handler) ConfirmOrderDraft(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actorFromRequest(r)
	if err != nil {
		writeCoreError(w, r, err)
		return
	}
	var req confirmDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid request body", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	order, err := h.svc.ConfirmOrderDraft(r.Context(), actor, req.Token, req.Notes)
	if err != nil {
		writeCoreError(w, r, err)
		return
	}
	writeJSON(w, order)
}

func (h *Handler) CompleteOrder(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actorFromRequest(r)
	if err != nil {
		writeCoreError(w, r, err)
		return
	}
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, r, "invalid order id", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	if err := h.svc.CompleteOrder(r.Context(), actor, orderID); err != nil {
		writeCoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actorFromRequest(r)
	if err != nil {
		writeCoreError(w, r, err)
		return
	}
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, r, "invalid order id", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	if err := h.svc.CancelOrder(r.Context(), actor, orderID); err != nil {
		writeCoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actorFromRequest(r)
	if err != nil {
		writeCoreError(w, r, err)
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid request body", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	company, err := h.svc.CreateCompany(r.Context(), actor, req.Name)
	if err != nil {
		writeCoreError(w, r, err)
		return
	}
	writeJSON(w, company)
}
