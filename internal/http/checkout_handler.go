package httpapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/tickets-poeple101/parisriverseine/internal/cart"
	"github.com/tickets-poeple101/parisriverseine/internal/catalog"
	"github.com/tickets-poeple101/parisriverseine/internal/payments"
)

// SessionCreator is the slice of the payments client the checkout endpoint
// needs.
type SessionCreator interface {
	CreateCheckoutSession(ctx context.Context, req payments.SessionRequest) (*payments.CheckoutSession, error)
}

type CheckoutHandler struct {
	catalog *catalog.Catalog
	gateway SessionCreator
	baseURL string
	timeout time.Duration
	logger  *log.Logger
}

func NewCheckoutHandler(cat *catalog.Catalog, gateway SessionCreator, baseURL string, timeout time.Duration, logger *log.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		catalog: cat,
		gateway: gateway,
		baseURL: baseURL,
		timeout: timeout,
		logger:  logger,
	}
}

type checkoutRequest struct {
	Items         []json.RawMessage `json:"items"`
	Date          string            `json:"date,omitempty"`
	CustomerEmail string            `json:"customerEmail,omitempty"`
	SuccessURL    string            `json:"successUrl,omitempty"`
	CancelURL     string            `json:"cancelUrl,omitempty"`
}

// CreateSession turns a client cart into one Stripe checkout session and
// returns the redirect URL.
func (h *CheckoutHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() { checkoutDuration.Observe(time.Since(start).Seconds()) }()

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, http.StatusBadRequest, cart.ErrInvalidPayload.Error())
		return
	}

	lines, records, err := cart.Normalize(h.catalog, req.Items, req.Date)
	if err != nil {
		// ErrInvalidPayload or ErrNoValidItems; both are client errors.
		h.fail(w, http.StatusBadRequest, err.Error())
		return
	}

	sessionReq := payments.SessionRequest{
		LineItems:     lines,
		SuccessURL:    orDefault(req.SuccessURL, h.baseURL+"/success"),
		CancelURL:     orDefault(req.CancelURL, h.baseURL+"/cancel"),
		CustomerEmail: req.CustomerEmail,
		Metadata:      sessionMetadata(req.Date, records),
	}
	sessionReq.IdempotencyKey = idempotencyKey(sessionReq)

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	session, err := h.gateway.CreateCheckoutSession(ctx, sessionReq)
	if err != nil {
		var gwErr *payments.GatewayError
		if errors.As(err, &gwErr) {
			h.logger.Printf("stripe rejected checkout: %v", gwErr)
			h.fail(w, http.StatusInternalServerError, gwErr.Message)
			return
		}
		h.logger.Printf("checkout session error: %v", err)
		h.fail(w, http.StatusInternalServerError, "failed to create checkout session")
		return
	}

	checkoutRequestsTotal.WithLabelValues(strconv.Itoa(http.StatusOK)).Inc()
	writeJSON(w, http.StatusOK, map[string]string{"url": session.URL})
}

func (h *CheckoutHandler) fail(w http.ResponseWriter, status int, msg string) {
	checkoutRequestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
	writeError(w, status, msg)
}

func sessionMetadata(date string, records []cart.Record) map[string]string {
	md := map[string]string{"source": "web"}
	if date != "" {
		md["date"] = date
	}
	if encoded := cart.EncodeRecords(records, cart.MetadataBudget); encoded != "" {
		md["items"] = encoded
	}
	return md
}

// idempotencyKey derives a stable key from the full normalized request, so
// identical resubmissions (a double-clicked pay button) collapse into one
// billable session while any change to items, dates, redirects or email
// produces a fresh one.
func idempotencyKey(req payments.SessionRequest) string {
	data, err := json.Marshal(req)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return "checkout:" + hex.EncodeToString(sum[:])
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
