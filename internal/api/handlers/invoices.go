package handlers

import (
	"context"
	"net/http"

	"github.com/dvloznov/bookkeeper/internal/api/middleware"
	"github.com/dvloznov/bookkeeper/internal/cloudbilling"
	"github.com/dvloznov/bookkeeper/internal/domain"
	"github.com/dvloznov/bookkeeper/internal/logger"
)

// InvoiceSource lists cloud-provider invoices.
type InvoiceSource interface {
	Invoices(ctx context.Context) ([]cloudbilling.Invoice, error)
}

// InvoicesHandler handles the /invoices endpoints.
type InvoicesHandler struct {
	scaleway InvoiceSource
}

// NewInvoicesHandler creates a new invoices handler.
func NewInvoicesHandler(scaleway InvoiceSource) *InvoicesHandler {
	return &InvoicesHandler{
		scaleway: scaleway,
	}
}

// Scaleway handles GET /invoices/scaleway
func (h *InvoicesHandler) Scaleway(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.scaleway.Invoices(r.Context())
	if err != nil {
		middleware.WriteDomainError(w, logger.FromContext(r.Context()), domain.Upstream("list scaleway invoices", err))
		return
	}

	if invoices == nil {
		invoices = []cloudbilling.Invoice{}
	}
	middleware.WriteJSON(w, http.StatusOK, invoices)
}
