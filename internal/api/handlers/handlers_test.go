package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/bookkeeper/internal/api/middleware"
	"github.com/dvloznov/bookkeeper/internal/cloudbilling"
	"github.com/dvloznov/bookkeeper/internal/customer"
	"github.com/dvloznov/bookkeeper/internal/domain"
	"github.com/dvloznov/bookkeeper/internal/jobs"
	"github.com/dvloznov/bookkeeper/internal/jobs/inmemory"
	"github.com/dvloznov/bookkeeper/internal/logger"
	"github.com/dvloznov/bookkeeper/internal/reconcile"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockBank is a mock implementation of BankService.
type MockBank struct {
	OverviewFunc          func(ctx context.Context, tag string) (reconcile.Overview, error)
	ProviderReportFunc    func(ctx context.Context, provider string) (reconcile.Report, error)
	AssociationReportFunc func(ctx context.Context) (reconcile.Report, error)
	AttachmentURLFunc     func(ctx context.Context, id string) (string, error)
}

func (m *MockBank) Overview(ctx context.Context, tag string) (reconcile.Overview, error) {
	return m.OverviewFunc(ctx, tag)
}

func (m *MockBank) ProviderReport(ctx context.Context, provider string) (reconcile.Report, error) {
	return m.ProviderReportFunc(ctx, provider)
}

func (m *MockBank) AssociationReport(ctx context.Context) (reconcile.Report, error) {
	return m.AssociationReportFunc(ctx)
}

func (m *MockBank) Rates() reconcile.Schedule {
	return reconcile.DefaultSchedule
}

func (m *MockBank) AttachmentURL(ctx context.Context, id string) (string, error) {
	return m.AttachmentURLFunc(ctx, id)
}

// MockCustomers is a mock implementation of CustomerService.
type MockCustomers struct {
	ListFunc          func(ctx context.Context, member domain.Member) ([]domain.Customer, error)
	CreatePendingFunc func(ctx context.Context, member domain.Member) (domain.Customer, error)
	CompleteFunc      func(ctx context.Context, id string, o customer.Onboarding) error
}

func (m *MockCustomers) List(ctx context.Context, member domain.Member) ([]domain.Customer, error) {
	return m.ListFunc(ctx, member)
}

func (m *MockCustomers) CreatePending(ctx context.Context, member domain.Member) (domain.Customer, error) {
	return m.CreatePendingFunc(ctx, member)
}

func (m *MockCustomers) Complete(ctx context.Context, id string, o customer.Onboarding) error {
	return m.CompleteFunc(ctx, id, o)
}

type invoicesFunc func(ctx context.Context) ([]cloudbilling.Invoice, error)

func (f invoicesFunc) Invoices(ctx context.Context) ([]cloudbilling.Invoice, error) { return f(ctx) }

type accountFunc func(ctx context.Context) (domain.Account, error)

func (f accountFunc) Account(ctx context.Context) (domain.Account, error) { return f(ctx) }

// memberAuth admits any credentials as the member "alice".
var memberAuth = middleware.BasicAuth(authenticatorFunc(func(ctx context.Context, login, password string) (domain.Member, error) {
	return domain.Member{Customer: domain.Customer{ID: "cus_alice", Description: "alice"}}, nil
}), zerolog.Nop())

type authenticatorFunc func(ctx context.Context, login, password string) (domain.Member, error)

func (f authenticatorFunc) Authenticate(ctx context.Context, login, password string) (domain.Member, error) {
	return f(ctx, login, password)
}

func serve(t *testing.T, h http.Handler, method, target, body string, withAuth bool) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if withAuth {
		req.SetBasicAuth("alice@example.com", "pw")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestBank_Overview(t *testing.T) {
	var gotTag string
	bank := &MockBank{OverviewFunc: func(ctx context.Context, tag string) (reconcile.Overview, error) {
		gotTag = tag
		return reconcile.Overview{
			Balance: 700,
			Transactions: []reconcile.ClassifiedTransaction{{
				Date:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
				Label:  domain.PlainLabel("Rent"),
				Amount: 700,
				Type:   domain.SideCredit,
			}},
		}, nil
	}}
	mux := Routes{Bank: NewBankHandler(bank)}.Mux()

	rec := serve(t, mux, http.MethodGet, "/bank?tag=hosting", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hosting", gotTag)

	var body struct {
		Balance      int64 `json:"balance"`
		Transactions []struct {
			Label struct {
				Label string `json:"label"`
			} `json:"label"`
		} `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(700), body.Balance)
	require.Len(t, body.Transactions, 1)
	assert.Equal(t, "Rent", body.Transactions[0].Label.Label)
}

func TestBank_UpstreamFailureHidesCause(t *testing.T) {
	bank := &MockBank{OverviewFunc: func(ctx context.Context, tag string) (reconcile.Overview, error) {
		return reconcile.Overview{}, domain.Upstream("list transactions", errors.New("qonto token expired"))
	}}
	mux := Routes{Bank: NewBankHandler(bank)}.Mux()

	rec := serve(t, mux, http.MethodGet, "/bank", "", false)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Something goes wrong"}`, rec.Body.String())
}

func TestBank_Rates(t *testing.T) {
	mux := Routes{Bank: NewBankHandler(&MockBank{})}.Mux()

	rec := serve(t, mux, http.MethodGet, "/bank/rates", "", false)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Rates []reconcile.Bracket `json:"rates"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []reconcile.Bracket(reconcile.DefaultSchedule), body.Rates)
}

func TestBank_Attachment(t *testing.T) {
	bank := &MockBank{AttachmentURLFunc: func(ctx context.Context, id string) (string, error) {
		if id == "att_1" {
			return "https://files.example/att_1.pdf", nil
		}
		return "", domain.Upstream("get attachment", errors.New("404"))
	}}
	mux := Routes{Bank: NewBankHandler(bank)}.Mux()

	rec := serve(t, mux, http.MethodGet, "/bank/attachments/att_1", "", false)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://files.example/att_1.pdf", rec.Header().Get("Location"))

	rec = serve(t, mux, http.MethodGet, "/bank/attachments/missing", "", false)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestBank_ReportRouting(t *testing.T) {
	var calls []string
	bank := &MockBank{
		ProviderReportFunc: func(ctx context.Context, provider string) (reconcile.Report, error) {
			calls = append(calls, "provider:"+provider)
			return reconcile.Report{Balance: 1, Transactions: []reconcile.Entry{}}, nil
		},
		AssociationReportFunc: func(ctx context.Context) (reconcile.Report, error) {
			calls = append(calls, "asso")
			return reconcile.Report{Balance: 2, Transactions: []reconcile.Entry{}}, nil
		},
	}
	mux := Routes{Bank: NewBankHandler(bank)}.Mux()

	rec := serve(t, mux, http.MethodGet, "/bank/asso", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = serve(t, mux, http.MethodGet, "/bank/alice", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"bbFeeAverage":0`)

	assert.Equal(t, []string{"asso", "provider:alice"}, calls)
}

func customerRoutes(svc CustomerService) http.Handler {
	return Routes{Customer: NewCustomerHandler(svc), Auth: memberAuth}.Mux()
}

func TestCustomer_ListRequiresAuth(t *testing.T) {
	svc := &MockCustomers{ListFunc: func(ctx context.Context, member domain.Member) ([]domain.Customer, error) {
		assert.Equal(t, "alice", member.Description)
		return []domain.Customer{{ID: "cus_1", Metadata: map[string]string{"provider": "alice"}}}, nil
	}}
	h := customerRoutes(svc)

	rec := serve(t, h, http.MethodGet, "/customer/list", "", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(t, h, http.MethodGet, "/customer/list", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"cus_1"`)
}

func TestCustomer_Create(t *testing.T) {
	svc := &MockCustomers{CreatePendingFunc: func(ctx context.Context, member domain.Member) (domain.Customer, error) {
		return domain.Customer{ID: "cus_new", Metadata: map[string]string{"provider": member.Description, "status": "pending"}}, nil
	}}

	rec := serve(t, customerRoutes(svc), http.MethodPost, "/customer", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"pending"`)
}

func TestCustomer_Complete(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{name: "completed", body: `{"name":"Bob"}`, wantStatus: http.StatusOK, wantBody: `{"ok":true}`},
		{name: "malformed body", body: `{`, wantStatus: http.StatusBadRequest, wantBody: `{"error":"Invalid request body"}`},
		{name: "invalid payload", body: `{}`, err: domain.Invalid(`"name" is required`), wantStatus: http.StatusBadRequest, wantBody: `{"error":"\"name\" is required"}`},
		{name: "not pending", body: `{"name":"Bob"}`, err: domain.StateConflict("Customer not editable"), wantStatus: http.StatusForbidden, wantBody: `{"error":"Customer not editable"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID string
			svc := &MockCustomers{CompleteFunc: func(ctx context.Context, id string, o customer.Onboarding) error {
				gotID = id
				return tt.err
			}}

			// No credentials: the onboarding form is public.
			rec := serve(t, customerRoutes(svc), http.MethodPut, "/customer/cus_1", tt.body, false)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			if tt.wantStatus != http.StatusBadRequest || tt.err != nil {
				assert.Equal(t, "cus_1", gotID)
			}
		})
	}
}

func TestCustomer_NoAuthConfiguredDenies(t *testing.T) {
	h := Routes{Customer: NewCustomerHandler(&MockCustomers{})}.Mux()
	rec := serve(t, h, http.MethodGet, "/customer/list", "", true)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestInvoices_Scaleway(t *testing.T) {
	src := invoicesFunc(func(ctx context.Context) ([]cloudbilling.Invoice, error) {
		return []cloudbilling.Invoice{{
			Total:    cloudbilling.Totals{HT: decimal.RequireFromString("10.5"), Tax: decimal.RequireFromString("2.1"), TTC: decimal.RequireFromString("12.6")},
			State:    "paid",
			Currency: "EUR",
			Number:   "42",
			ID:       "inv_1",
		}}, nil
	})
	mux := Routes{Invoices: NewInvoicesHandler(src)}.Mux()

	rec := serve(t, mux, http.MethodGet, "/invoices/scaleway", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":{"ht":10.5,"tax":2.1,"ttc":12.6}`)

	failing := invoicesFunc(func(ctx context.Context) ([]cloudbilling.Invoice, error) {
		return nil, errors.New("forbidden")
	})
	mux = Routes{Invoices: NewInvoicesHandler(failing)}.Mux()
	rec = serve(t, mux, http.MethodGet, "/invoices/scaleway", "", false)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Something goes wrong"}`, rec.Body.String())
}

func TestPing(t *testing.T) {
	src := accountFunc(func(ctx context.Context) (domain.Account, error) {
		return domain.Account{Name: "Bug Builders", URL: "https://bugbuilders.example"}, nil
	})
	mux := Routes{Ping: NewPingHandler(src)}.Mux()

	rec := serve(t, mux, http.MethodGet, "/ping", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"name":"Bug Builders","url":"https://bugbuilders.example","address":null}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	rec := serve(t, Routes{}.Mux(), http.MethodGet, "/health", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)

	rec = serve(t, Routes{}.Mux(), http.MethodGet, "/bank", "", false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExports(t *testing.T) {
	store := inmemory.NewStore()
	queue := inmemory.NewQueue(10, 1, store)
	defer queue.Close()
	mux := Routes{Exports: NewExportsHandler(queue, store)}.Mux()

	rec := serve(t, mux, http.MethodPost, "/exports", `{"provider":"alice"}`, false)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var created jobs.ExportReportJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "alice", created.Provider)
	assert.Equal(t, jobs.JobStatusPending, created.Status)

	rec = serve(t, mux, http.MethodPost, "/exports", "", false)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = serve(t, mux, http.MethodPost, "/exports", `[`, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, mux, http.MethodGet, "/exports/"+created.JobID, "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), created.JobID)

	rec = serve(t, mux, http.MethodGet, "/exports/unknown", "", false)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, mux, http.MethodGet, "/exports?provider=alice", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)
}

func TestHandlers_LogWithRequestLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	bank := &MockBank{ProviderReportFunc: func(ctx context.Context, provider string) (reconcile.Report, error) {
		return reconcile.Report{}, domain.Upstream("list invoices", errors.New("stripe down"))
	}}
	h := middleware.Chain(Routes{Bank: NewBankHandler(bank)}.Mux(),
		middleware.RequestID,
		middleware.Logger(logger.NewWithWriter(buf)),
	)

	req := httptest.NewRequest(http.MethodGet, "/bank/alice", nil)
	req.Header.Set("X-Request-ID", "req-7")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	out := buf.String()
	assert.Contains(t, out, `"message":"Upstream request failed"`)
	assert.Contains(t, out, `"provider":"alice"`)
	assert.Contains(t, out, `"request_id":"req-7"`)
}

func TestCustomer_CreateLogsWithRequestLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	svc := &MockCustomers{CreatePendingFunc: func(ctx context.Context, member domain.Member) (domain.Customer, error) {
		return domain.Customer{ID: "cus_new"}, nil
	}}
	h := middleware.Chain(customerRoutes(svc), middleware.RequestID, middleware.Logger(logger.NewWithWriter(buf)))

	rec := serve(t, h, http.MethodPost, "/customer", "", true)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, buf.String(), `"customer_id":"cus_new"`)
	assert.Contains(t, buf.String(), `"message":"Pending customer created"`)
}
