package handlers

import (
	"context"
	"net/http"

	"github.com/dvloznov/bookkeeper/internal/api/middleware"
	"github.com/dvloznov/bookkeeper/internal/reconcile"
	"github.com/dvloznov/bookkeeper/internal/logger"
)

// BankService answers the bank and reconciliation endpoints.
type BankService interface {
	Overview(ctx context.Context, tag string) (reconcile.Overview, error)
	ProviderReport(ctx context.Context, provider string) (reconcile.Report, error)
	AssociationReport(ctx context.Context) (reconcile.Report, error)
	Rates() reconcile.Schedule
	AttachmentURL(ctx context.Context, id string) (string, error)
}

// BankHandler handles the /bank endpoints.
type BankHandler struct {
	svc BankService
}

// NewBankHandler creates a new bank handler.
func NewBankHandler(svc BankService) *BankHandler {
	return &BankHandler{
		svc: svc,
	}
}

// Overview handles GET /bank
func (h *BankHandler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.svc.Overview(r.Context(), r.URL.Query().Get("tag"))
	if err != nil {
		middleware.WriteDomainError(w, logger.FromContext(r.Context()), err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, overview)
}

// Rates handles GET /bank/rates
func (h *BankHandler) Rates(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"rates": h.svc.Rates(),
	})
}

// Attachment handles GET /bank/attachments/{id} by redirecting to the document.
func (h *BankHandler) Attachment(w http.ResponseWriter, r *http.Request) {
	url, err := h.svc.AttachmentURL(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.WriteDomainError(w, logger.FromContext(r.Context()), err)
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

// Association handles GET /bank/asso
func (h *BankHandler) Association(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.AssociationReport(r.Context())
	if err != nil {
		middleware.WriteDomainError(w, logger.FromContext(r.Context()), err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, report)
}

// Provider handles GET /bank/{provider}
func (h *BankHandler) Provider(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")

	report, err := h.svc.ProviderReport(r.Context(), provider)
	if err != nil {
		middleware.WriteDomainError(w, logger.FromContext(r.Context()).With().Str("provider", provider).Logger(), err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, report)
}
