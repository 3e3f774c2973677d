package cloudbilling

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/invoices", r.URL.Path)
		assert.Equal(t, "scw-token", r.Header.Get("X-Auth-Token"))
		fmt.Fprint(w, `{"invoices":[{
			"id":"inv-1","number":42,"state":"paid","currency":"EUR",
			"issued_date":"2023-02-01T00:00:00Z",
			"total_untaxed":"10.50","total_tax":"2.10","total_taxed":"12.60",
			"organization_id":"org-1","organization_name":"Bug Builders"
		}]}`)
	}))
	defer server.Close()

	c := NewClient(server.URL+"/", "scw-token", 0, zerolog.Nop())
	invoices, err := c.Invoices(context.Background())
	require.NoError(t, err)
	require.Len(t, invoices, 1)

	inv := invoices[0]
	assert.Equal(t, "42", inv.Number)
	assert.Equal(t, "Bug Builders", inv.Organization.Name)
	assert.Equal(t, "12.6", inv.Total.TTC.String())

	b, err := json.Marshal(inv)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"total":{"ht":10.5,"tax":2.1,"ttc":12.6},
		"state":"paid","currency":"EUR","number":"42","id":"inv-1",
		"issued":"2023-02-01T00:00:00Z",
		"organization":{"name":"Bug Builders","id":"org-1"}
	}`, string(b))
}

func TestInvoices_StringNumber(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"invoices":[{"id":"inv-2","number":"SCW-7","total_untaxed":1,"total_tax":0,"total_taxed":1}]}`)
	}))
	defer server.Close()

	invoices, err := NewClient(server.URL, "t", 0, zerolog.Nop()).Invoices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "SCW-7", invoices[0].Number)
}

func TestInvoices_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "bad", 0, zerolog.Nop()).Invoices(context.Background())
	assert.ErrorContains(t, err, "403")
}
