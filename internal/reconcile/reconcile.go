package reconcile

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/tickets-poeple101/parisriverseine/internal/cart"
	"github.com/tickets-poeple101/parisriverseine/internal/payments"
)

// State tracks one webhook delivery through the reconciliation pipeline.
// Received → Verified → Expanded → Joined → Ready, with Rejected, Degraded
// and PartialFailure as terminal outcomes.
type State int

const (
	StateReceived State = iota
	StateVerified
	StateExpanded
	StateJoined
	StateReady
	StateRejected
	StateDegraded
	StatePartialFailure
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateVerified:
		return "verified"
	case StateExpanded:
		return "expanded"
	case StateJoined:
		return "joined"
	case StateReady:
		return "ready"
	case StateRejected:
		return "rejected"
	case StateDegraded:
		return "degraded"
	case StatePartialFailure:
		return "partial_failure"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// SessionFetcher is the slice of the payments client reconciliation needs.
type SessionFetcher interface {
	GetCheckoutSession(ctx context.Context, sessionID string) (*payments.CheckoutSession, error)
	ListLineItems(ctx context.Context, sessionID string) ([]payments.LineItem, error)
}

// LineItem is one outbound reconciled line: money from Stripe, SKU and date
// from the metadata side channel where available.
type LineItem struct {
	SKU         string `json:"sku"`
	Description string `json:"description,omitempty"`
	Quantity    int64  `json:"quantity"`
	UnitAmount  int64  `json:"unit_amount"`
	AmountTotal int64  `json:"amount_total"`
	Currency    string `json:"currency"`
	Date        string `json:"date,omitempty"`
	PriceRef    string `json:"price_ref"`
	ProductRef  string `json:"product_ref,omitempty"`
}

// Payload is what gets forwarded to the automation endpoint for ticket
// issuance. Metadata is passed through raw for audit.
type Payload struct {
	DeliveryID    string            `json:"delivery_id"`
	EventID       string            `json:"event_id"`
	SessionID     string            `json:"session_id"`
	Mode          string            `json:"mode"`
	PaymentStatus string            `json:"payment_status"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	CustomerEmail string            `json:"customer_email,omitempty"`
	Date          string            `json:"date,omitempty"`
	LineItems     []LineItem        `json:"line_items"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Result is the terminal outcome for one delivery.
type Result struct {
	State   State
	Payload *Payload
}

// Builder turns a verified webhook event into a forwardable payload. It
// holds no state across deliveries; processing the same session twice is
// safe and produces equivalent payloads (modulo the delivery ID).
type Builder struct {
	gateway SessionFetcher
	logger  *log.Logger
}

func NewBuilder(gateway SessionFetcher, logger *log.Logger) *Builder {
	return &Builder{gateway: gateway, logger: logger}
}

// Process handles one verified event. Non-completed event types are a
// Degraded no-op so the gateway stops redelivering them. Errors mean the
// session state could not be pulled back from Stripe.
func (b *Builder) Process(ctx context.Context, ev *payments.Event) (*Result, error) {
	state := StateVerified
	if ev.Type != payments.EventTypeCheckoutCompleted {
		b.logger.Printf("event %s type %s ignored", ev.ID, ev.Type)
		return &Result{State: StateDegraded}, nil
	}

	// The webhook body is not self-sufficient; pull the full session and
	// its line items back from Stripe.
	session, err := b.gateway.GetCheckoutSession(ctx, ev.SessionID)
	if err != nil {
		return nil, fmt.Errorf("fetch session %s (state %s): %w", ev.SessionID, state, err)
	}
	items, err := b.gateway.ListLineItems(ctx, ev.SessionID)
	if err != nil {
		return nil, fmt.Errorf("fetch line items for %s (state %s): %w", ev.SessionID, state, err)
	}
	state = StateExpanded
	b.logger.Printf("event %s session %s: %s, %d line items", ev.ID, session.ID, state, len(items))

	records := cart.DecodeRecords(session.Metadata["items"])
	sessionDate := session.Metadata["date"]

	lines, partial := join(items, records, sessionDate)
	state = StateJoined
	b.logger.Printf("event %s session %s: %s against %d side-channel records", ev.ID, session.ID, state, len(records))

	payload := &Payload{
		DeliveryID:    uuid.NewString(),
		EventID:       ev.ID,
		SessionID:     session.ID,
		Mode:          session.Mode,
		PaymentStatus: session.PaymentStatus,
		AmountTotal:   session.AmountTotal,
		Currency:      session.Currency,
		CustomerEmail: session.Email(),
		Date:          sessionDate,
		LineItems:     lines,
		Metadata:      session.Metadata,
	}

	state = StateReady
	if partial {
		state = StatePartialFailure
		b.logger.Printf("session %s reconciled with degraded fidelity: %d line items, %d side-channel records",
			session.ID, len(items), len(records))
	}
	b.logger.Printf("event %s session %s: %s", ev.ID, session.ID, state)
	return &Result{State: state, Payload: payload}, nil
}

// join pairs Stripe's merged line items positionally with the side-channel
// records. Indices past the shorter list fall back to the session-level date
// and to Stripe's own price nickname or product name as a substitute SKU; a
// length mismatch never fails the reconciliation.
func join(items []payments.LineItem, records []cart.Record, sessionDate string) ([]LineItem, bool) {
	lines := make([]LineItem, 0, len(items))
	for i, li := range items {
		out := LineItem{
			Description: li.Description,
			Quantity:    li.Quantity,
			AmountTotal: li.AmountTotal,
			Currency:    li.Currency,
			Date:        sessionDate,
		}
		if li.Price != nil {
			out.PriceRef = li.Price.ID
			out.UnitAmount = li.Price.UnitAmount
			if out.Currency == "" {
				out.Currency = li.Price.Currency
			}
			if li.Price.Product != nil {
				out.ProductRef = li.Price.Product.ID
			}
		}

		if i < len(records) {
			out.SKU = records[i].SKU
			if records[i].Date != nil {
				out.Date = *records[i].Date
			}
		} else {
			out.SKU = substituteSKU(li)
		}

		lines = append(lines, out)
	}
	return lines, len(records) < len(items)
}

func substituteSKU(li payments.LineItem) string {
	if li.Price != nil {
		if li.Price.Nickname != "" {
			return li.Price.Nickname
		}
		if li.Price.Product != nil && li.Price.Product.Name != "" {
			return li.Price.Product.Name
		}
	}
	if li.Description != "" {
		return li.Description
	}
	return "ITEM"
}
