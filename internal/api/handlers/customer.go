package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dvloznov/bookkeeper/internal/api/middleware"
	"github.com/dvloznov/bookkeeper/internal/customer"
	"github.com/dvloznov/bookkeeper/internal/domain"
	"github.com/dvloznov/bookkeeper/internal/logger"
)

// CustomerService manages the customers of authenticated members.
type CustomerService interface {
	List(ctx context.Context, member domain.Member) ([]domain.Customer, error)
	CreatePending(ctx context.Context, member domain.Member) (domain.Customer, error)
	Complete(ctx context.Context, id string, o customer.Onboarding) error
}

// CustomerHandler handles the /customer endpoints.
type CustomerHandler struct {
	svc CustomerService
}

// NewCustomerHandler creates a new customer handler.
func NewCustomerHandler(svc CustomerService) *CustomerHandler {
	return &CustomerHandler{
		svc: svc,
	}
}

// List handles GET /customer/list
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	member, ok := middleware.MemberFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, middleware.MsgAuth)
		return
	}

	customers, err := h.svc.List(r.Context(), member)
	if err != nil {
		middleware.WriteDomainError(w, logger.FromContext(r.Context()), err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, customers)
}

// Create handles POST /customer
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	member, ok := middleware.MemberFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, middleware.MsgAuth)
		return
	}

	c, err := h.svc.CreatePending(r.Context(), member)
	if err != nil {
		middleware.WriteDomainError(w, logger.FromContext(r.Context()), err)
		return
	}

	log := logger.FromContext(r.Context())
	log.Info().
		Str("customer_id", c.ID).
		Str("provider", member.Description).
		Msg("Pending customer created")

	middleware.WriteJSON(w, http.StatusOK, c)
}

// Complete handles PUT /customer/{id}. It is reachable without credentials
// so the end customer can fill in their own details.
func (h *CustomerHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var o customer.Onboarding
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id := r.PathValue("id")
	if err := h.svc.Complete(r.Context(), id, o); err != nil {
		middleware.WriteDomainError(w, logger.FromContext(r.Context()).With().Str("customer_id", id).Logger(), err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
