package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/dvloznov/bookkeeper/internal/api/middleware"
	"github.com/dvloznov/bookkeeper/internal/domain"
	"github.com/dvloznov/bookkeeper/internal/logger"
)

// AccountSource describes the billing account.
type AccountSource interface {
	Account(ctx context.Context) (domain.Account, error)
}

// PingHandler handles GET /ping
type PingHandler struct {
	accounts AccountSource
}

// NewPingHandler creates a new ping handler.
func NewPingHandler(accounts AccountSource) *PingHandler {
	return &PingHandler{
		accounts: accounts,
	}
}

// Ping returns the organization's account name, URL and support address.
func (h *PingHandler) Ping(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.Account(r.Context())
	if err != nil {
		middleware.WriteDomainError(w, logger.FromContext(r.Context()), domain.Upstream("get account", err))
		return
	}

	middleware.WriteJSON(w, http.StatusOK, account)
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
