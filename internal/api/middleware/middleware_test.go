package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dvloznov/bookkeeper/internal/domain"
	"github.com/dvloznov/bookkeeper/internal/logger"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authFunc func(ctx context.Context, login, password string) (domain.Member, error)

func (f authFunc) Authenticate(ctx context.Context, login, password string) (domain.Member, error) {
	return f(ctx, login, password)
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func TestRecovery(t *testing.T) {
	h := Recovery(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Something goes wrong"}`, rec.Body.String())
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "given")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "given", seen)
}

func TestLogger_StoresRequestLogger(t *testing.T) {
	buf := &captureWriter{}
	log := logger.NewWithWriter(buf)

	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := logger.FromContext(r.Context())
		l.Info().Msg("inside")
		w.WriteHeader(http.StatusTeapot)
	}), RequestID, Logger(log))

	req := httptest.NewRequest(http.MethodGet, "/bank", nil)
	req.Header.Set("X-Request-ID", "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	assert.Contains(t, out, `"message":"inside"`)
	assert.Contains(t, out, `"request_id":"req-1"`)
	assert.Contains(t, out, `"status":418`)
}

func TestCORS(t *testing.T) {
	h := CORS(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodOptions, "/bank", nil)
	req.Header.Set("Origin", "https://bugbuilders.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestBasicAuth(t *testing.T) {
	auth := authFunc(func(ctx context.Context, login, password string) (domain.Member, error) {
		if login == "alice@example.com" && password == "pw" {
			return domain.Member{Customer: domain.Customer{ID: "cus_alice"}}, nil
		}
		if login == "down@example.com" {
			return domain.Member{}, domain.Upstream("list customers", errors.New("down"))
		}
		return domain.Member{}, domain.Unauthorized("Authentication required.")
	})

	var member domain.Member
	h := BasicAuth(auth, zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m, ok := MemberFromContext(r.Context())
		require.True(t, ok)
		member = m
		okHandler(w, r)
	}))

	tests := []struct {
		name       string
		login      string
		password   string
		noAuth     bool
		wantStatus int
	}{
		{name: "valid", login: "alice@example.com", password: "pw", wantStatus: http.StatusOK},
		{name: "wrong password", login: "alice@example.com", password: "nope", wantStatus: http.StatusUnauthorized},
		{name: "no header", noAuth: true, wantStatus: http.StatusUnauthorized},
		{name: "upstream failure", login: "down@example.com", password: "x", wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/customer/list", nil)
			if !tt.noAuth {
				req.SetBasicAuth(tt.login, tt.password)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.JSONEq(t, `{"error":"Authentication required."}`, rec.Body.String())
			}
		})
	}
	assert.Equal(t, "cus_alice", member.ID)
}

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantBody   string
	}{
		{domain.Upstream("op", errors.New("x")), http.StatusInternalServerError, `{"error":"Something goes wrong"}`},
		{errors.New("plain"), http.StatusInternalServerError, `{"error":"Something goes wrong"}`},
		{domain.Unauthorized("whatever"), http.StatusUnauthorized, `{"error":"Authentication required."}`},
		{domain.Invalid(`"name" is required`), http.StatusBadRequest, `{"error":"\"name\" is required"}`},
		{domain.StateConflict("Customer not editable"), http.StatusForbidden, `{"error":"Customer not editable"}`},
		{domain.NotFound("job"), http.StatusNotFound, `{"error":"Not found"}`},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteDomainError(rec, zerolog.Nop(), tt.err)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

type captureWriter struct {
	data []byte
}

func (c *captureWriter) Write(p []byte) (int, error) {
	c.data = append(c.data, p...)
	return len(p), nil
}

func (c *captureWriter) String() string { return string(c.data) }
