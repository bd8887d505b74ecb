package forward

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/tickets-poeple101/parisriverseine/internal/reconcile"
)

// Forwarder delivers reconciled payloads to the automation endpoint that
// issues tickets. A failed delivery is reported to the caller but is never a
// reason to fail the webhook handler; the operator re-drives it out-of-band.
type Forwarder struct {
	httpClient *http.Client
	url        string
	secret     string
	logger     *log.Logger
}

func New(httpClient *http.Client, url, secret string, logger *log.Logger) *Forwarder {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Forwarder{httpClient: httpClient, url: url, secret: secret, logger: logger}
}

// Forward posts the payload with the shared-secret bearer credential. Any
// 2xx answer counts as delivered.
func (f *Forwarder) Forward(ctx context.Context, payload *reconcile.Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build forward request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.secret)
	req.Header.Set("X-Source", "stripe")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("forward session %s: %w", payload.SessionID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("forward session %s: automation endpoint returned %d: %s",
			payload.SessionID, resp.StatusCode, snippet)
	}

	f.logger.Printf("forwarded session %s (%d line items) to automation", payload.SessionID, len(payload.LineItems))
	return nil
}
