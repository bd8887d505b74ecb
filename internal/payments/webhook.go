package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"
)

// ErrBadSignature means the webhook delivery failed authentication: missing
// header or secret, signature mismatch, or a timestamp outside the tolerance
// window. Callers must reject the request without processing anything.
var ErrBadSignature = errors.New("bad webhook signature")

// EventTypeCheckoutCompleted is the only event type the reconciliation
// pipeline acts on.
const EventTypeCheckoutCompleted = "checkout.session.completed"

// Event is a verified webhook delivery. Fields are only populated after the
// signature over the raw body has checked out.
type Event struct {
	ID        string
	Type      string
	SessionID string
	Object    json.RawMessage
}

// Verifier authenticates inbound Stripe webhook deliveries. This is the sole
// authentication boundary of the reconciliation path.
type Verifier struct {
	secret    string
	tolerance time.Duration
}

func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	return &Verifier{secret: secret, tolerance: tolerance}
}

// Verify checks the Stripe-Signature header against the exact raw body and
// returns the typed event. It fails closed on any missing input.
func (v *Verifier) Verify(payload []byte, sigHeader string) (*Event, error) {
	if v.secret == "" || sigHeader == "" {
		return nil, ErrBadSignature
	}

	ev, err := webhook.ConstructEventWithOptions(payload, sigHeader, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	out := &Event{
		ID:     ev.ID,
		Type:   string(ev.Type),
		Object: ev.Data.Raw,
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(ev.Data.Raw, &obj); err == nil {
		out.SessionID = obj.ID
	}
	return out, nil
}
