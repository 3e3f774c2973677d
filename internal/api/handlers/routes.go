package handlers

import (
	"net/http"

	"github.com/dvloznov/bookkeeper/internal/api/middleware"
)

// Routes groups the handlers served by the API. Nil handlers leave their
// endpoints unregistered.
type Routes struct {
	Bank     *BankHandler
	Customer *CustomerHandler
	Invoices *InvoicesHandler
	Ping     *PingHandler
	Exports  *ExportsHandler

	// Auth guards the member area.
	Auth func(http.Handler) http.Handler
}

// Mux registers every configured endpoint on a new ServeMux.
func (rt Routes) Mux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", Health)

	if rt.Ping != nil {
		mux.HandleFunc("GET /ping", rt.Ping.Ping)
	}

	if rt.Bank != nil {
		mux.HandleFunc("GET /bank", rt.Bank.Overview)
		mux.HandleFunc("GET /bank/rates", rt.Bank.Rates)
		mux.HandleFunc("GET /bank/asso", rt.Bank.Association)
		mux.HandleFunc("GET /bank/attachments/{id}", rt.Bank.Attachment)
		mux.HandleFunc("GET /bank/{provider}", rt.Bank.Provider)
	}

	if rt.Customer != nil {
		auth := rt.Auth
		if auth == nil {
			auth = denyAll
		}
		mux.Handle("GET /customer/list", auth(http.HandlerFunc(rt.Customer.List)))
		mux.Handle("POST /customer", auth(http.HandlerFunc(rt.Customer.Create)))
		mux.HandleFunc("PUT /customer/{id}", rt.Customer.Complete)
	}

	if rt.Invoices != nil {
		mux.HandleFunc("GET /invoices/scaleway", rt.Invoices.Scaleway)
	}

	if rt.Exports != nil {
		mux.HandleFunc("POST /exports", rt.Exports.Create)
		mux.HandleFunc("GET /exports", rt.Exports.List)
		mux.HandleFunc("GET /exports/{id}", rt.Exports.Get)
	}

	return mux
}

func denyAll(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusUnauthorized, middleware.MsgAuth)
	})
}
