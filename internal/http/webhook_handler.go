package httpapi

import (
	"context"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/tickets-poeple101/parisriverseine/internal/payments"
	"github.com/tickets-poeple101/parisriverseine/internal/reconcile"
)

// maxWebhookBody caps how much of a delivery we are willing to read.
const maxWebhookBody = 1 << 20

// EventVerifier authenticates a raw delivery. Nothing downstream of it may
// be trusted until it passes.
type EventVerifier interface {
	Verify(payload []byte, sigHeader string) (*payments.Event, error)
}

// EventProcessor reconciles a verified event into a forwardable payload.
type EventProcessor interface {
	Process(ctx context.Context, ev *payments.Event) (*reconcile.Result, error)
}

// PayloadForwarder hands the reconciled payload to the automation endpoint.
type PayloadForwarder interface {
	Forward(ctx context.Context, payload *reconcile.Payload) error
}

type WebhookHandler struct {
	verifier  EventVerifier
	processor EventProcessor
	forwarder PayloadForwarder
	timeout   time.Duration
	logger    *log.Logger
}

func NewWebhookHandler(verifier EventVerifier, processor EventProcessor, forwarder PayloadForwarder, timeout time.Duration, logger *log.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifier:  verifier,
		processor: processor,
		forwarder: forwarder,
		timeout:   timeout,
		logger:    logger,
	}
}

// Handle processes one Stripe delivery. The only 4xx it ever returns is for
// a failed signature check; every verified outcome answers 200 so Stripe
// stops redelivering. Deliveries are at-least-once and the pipeline is safe
// to run repeatedly for the same session.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		webhookEventsTotal.WithLabelValues("rejected").Inc()
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	ev, err := h.verifier.Verify(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger.Printf("webhook rejected: %v", err)
		webhookEventsTotal.WithLabelValues(reconcile.StateRejected.String()).Inc()
		writeError(w, http.StatusBadRequest, "bad signature")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.processor.Process(ctx, ev)
	if err != nil {
		// The session could not be pulled back from Stripe. Acknowledge
		// anyway: once the signature has passed, a retryable-looking
		// status would only cause a redelivery storm.
		h.logger.Printf("webhook %s degraded: %v", ev.ID, err)
		webhookEventsTotal.WithLabelValues(reconcile.StateDegraded.String()).Inc()
		h.ack(w)
		return
	}

	switch res.State {
	case reconcile.StateDegraded:
		webhookEventsTotal.WithLabelValues(res.State.String()).Inc()
	case reconcile.StateReady, reconcile.StatePartialFailure:
		webhookEventsTotal.WithLabelValues(res.State.String()).Inc()
		if err := h.forwarder.Forward(ctx, res.Payload); err != nil {
			// Reported, not retried here; the gateway still gets a 200.
			h.logger.Printf("forwarding failure for session %s: %v", res.Payload.SessionID, err)
			forwardsTotal.WithLabelValues("failed").Inc()
		} else {
			forwardsTotal.WithLabelValues("ok").Inc()
		}
	default:
		h.logger.Printf("webhook %s ended in unexpected state %s", ev.ID, res.State)
		webhookEventsTotal.WithLabelValues(res.State.String()).Inc()
	}

	h.ack(w)
}

func (h *WebhookHandler) ack(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
