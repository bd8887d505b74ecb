package forward

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickets-poeple101/parisriverseine/internal/reconcile"
)

func testPayload() *reconcile.Payload {
	return &reconcile.Payload{
		DeliveryID:  "d-1",
		SessionID:   "cs_1",
		AmountTotal: 9800,
		Currency:    "eur",
		LineItems: []reconcile.LineItem{
			{SKU: "PARISIENS_ADULT", Quantity: 3, UnitAmount: 1800, Currency: "eur", PriceRef: "price_adult"},
		},
	}
}

func TestForward_Success(t *testing.T) {
	var gotAuth, gotSource string
	var gotBody reconcile.Payload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotSource = r.Header.Get("X-Source")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := New(srv.Client(), srv.URL, "shared-secret", log.New(os.Stdout, "", 0))
	require.NoError(t, f.Forward(context.Background(), testPayload()))

	assert.Equal(t, "Bearer shared-secret", gotAuth)
	assert.Equal(t, "stripe", gotSource)
	assert.Equal(t, "cs_1", gotBody.SessionID)
	require.Len(t, gotBody.LineItems, 1)
	assert.Equal(t, "PARISIENS_ADULT", gotBody.LineItems[0].SKU)
}

func TestForward_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "workflow offline", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := New(srv.Client(), srv.URL, "shared-secret", log.New(os.Stdout, "", 0))
	err := f.Forward(context.Background(), testPayload())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestForward_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	f := New(nil, srv.URL, "shared-secret", log.New(os.Stdout, "", 0))
	err := f.Forward(context.Background(), testPayload())
	require.Error(t, err)
}
