package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	stripe "github.com/stripe/stripe-go/v82"

	"github.com/tickets-poeple101/parisriverseine/internal/cart"
)

// lineItemPageLimit bounds the line-item re-fetch. The catalog has single
// digit cardinality, so one page is always enough.
const lineItemPageLimit = 100

// Client talks to the Stripe REST API over plain HTTP with form-encoded
// requests. The base URL is overridable so tests can point it at an
// httptest server.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
	logger     *log.Logger
}

func NewClient(httpClient *http.Client, baseURL, secretKey string, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		secretKey:  secretKey,
		logger:     logger,
	}
}

// SessionRequest carries everything needed to open one checkout session.
type SessionRequest struct {
	LineItems     []cart.LineItem
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
	Metadata      map[string]string

	// IdempotencyKey collapses identical resubmissions into one session.
	IdempotencyKey string
}

// CreateCheckoutSession opens a payment-mode checkout session and returns
// Stripe's view of it, including the redirect URL.
func (c *Client) CreateCheckoutSession(ctx context.Context, req SessionRequest) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	for i, li := range req.LineItems {
		form.Set(fmt.Sprintf("line_items[%d][price]", i), li.PriceRef)
		form.Set(fmt.Sprintf("line_items[%d][quantity]", i), strconv.FormatInt(li.Quantity, 10))
	}
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	if req.CustomerEmail != "" {
		form.Set("customer_email", req.CustomerEmail)
	}
	for k, v := range req.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	var session CheckoutSession
	if err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", form, req.IdempotencyKey, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetCheckoutSession re-fetches a session by reference. The webhook payload
// alone is not self-sufficient, so reconciliation always pulls fresh state.
func (c *Client) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	var session CheckoutSession
	path := "/v1/checkout/sessions/" + url.PathEscape(sessionID)
	if err := c.do(ctx, http.MethodGet, path, nil, "", &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListLineItems fetches the session's line items, expanded with their
// product so a human-readable name is available, capped at one page.
func (c *Client) ListLineItems(ctx context.Context, sessionID string) ([]LineItem, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(lineItemPageLimit))
	query.Add("expand[]", "data.price.product")

	var list lineItemList
	path := "/v1/checkout/sessions/" + url.PathEscape(sessionID) + "/line_items"
	if err := c.do(ctx, http.MethodGet, path+"?"+query.Encode(), nil, "", &list); err != nil {
		return nil, err
	}
	if list.HasMore && c.logger != nil {
		c.logger.Printf("session %s has more than %d line items, extra items ignored", sessionID, lineItemPageLimit)
	}
	return list.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, idempotencyKey string, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build stripe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Stripe-Version", stripe.APIVersion)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("stripe request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.errorFrom(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode stripe response: %w", err)
	}
	return nil
}

func (c *Client) errorFrom(resp *http.Response) error {
	gwErr := &GatewayError{StatusCode: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return gwErr
	}
	var parsed gatewayErrorResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return gwErr
	}
	gwErr.Type = parsed.Error.Type
	gwErr.Code = parsed.Error.Code
	gwErr.Message = parsed.Error.Message
	return gwErr
}
