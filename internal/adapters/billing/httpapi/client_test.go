package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/plebchat-cli/internal/domain"
	"github.com/bnema/plebchat-cli/internal/ports"
)

func TestRequestInvoice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, requestPath, r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 100000, body["amtinsats"])
		assert.Equal(t, "plebai@getcurrent.io", body["nip05"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pr":"lnbc1invoice","verify":"https://pay.example/verify/abc"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	invoice, err := client.RequestInvoice(context.Background(), 100000, "plebai@getcurrent.io")

	require.NoError(t, err)
	assert.Equal(t, "lnbc1invoice", invoice.PaymentRequest)
	assert.Equal(t, "https://pay.example/verify/abc", invoice.VerifyRef)
}

func TestRequestInvoiceSchemaViolation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing pr", `{"verify":"https://pay.example/verify/abc"}`},
		{"missing verify", `{"pr":"lnbc1invoice"}`},
		{"verify not a url", `{"pr":"lnbc1invoice","verify":"not a url"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, time.Second)
			_, err := client.RequestInvoice(context.Background(), 1000, "payee")

			assert.ErrorIs(t, err, domain.ErrInvalidBillingResponse)
		})
	}
}

func TestRequestInvoiceServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.RequestInvoice(context.Background(), 1000, "payee")

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrInvalidBillingResponse, "transport failures are not schema failures")
}

func TestVerifySettlement(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, verifyPath, r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://pay.example/verify/abc", body["verifyUrl"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"settled":true,"preimage":"deadbeef"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	settlement, err := client.Verify(context.Background(), "https://pay.example/verify/abc")

	require.NoError(t, err)
	assert.True(t, settlement.Settled)
	assert.Equal(t, "deadbeef", settlement.Preimage)
}

func TestVerifyUnsettledFalseIsValid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"settled":false}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	settlement, err := client.Verify(context.Background(), "ref")

	require.NoError(t, err, "settled=false is a valid payload, not a schema violation")
	assert.False(t, settlement.Settled)
}

func TestVerifyMissingSettledRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"preimage":"deadbeef"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.Verify(context.Background(), "ref")

	assert.ErrorIs(t, err, domain.ErrInvalidBillingResponse)
}

func TestIsSettledCrossChecksPreimage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"settled":true,"preimage":"deadbeef"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	invoice := ports.Invoice{PaymentRequest: "lnbc1", VerifyRef: "ref"}

	settled, err := client.IsSettled(context.Background(), invoice, "deadbeef")
	require.NoError(t, err)
	assert.True(t, settled)

	_, err = client.IsSettled(context.Background(), invoice, "feedface")
	assert.ErrorIs(t, err, domain.ErrInvalidBillingResponse)
}
