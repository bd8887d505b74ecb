package cart

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"

	"github.com/tickets-poeple101/parisriverseine/internal/catalog"
)

var (
	// ErrInvalidPayload means the cart as a whole was malformed (not a
	// non-empty list). Individual bad entries are dropped instead.
	ErrInvalidPayload = errors.New("invalid payload: items[] required")

	// ErrNoValidItems means every entry was dropped during normalization.
	ErrNoValidItems = errors.New("no valid items in cart")
)

// Quantity bounds enforced on every normalized line item.
const (
	MinQuantity = 1
	MaxQuantity = 50
)

// LineItem is a gateway-ready line item. PriceRef values are unique within
// one normalized cart and quantities are always within [MinQuantity,
// MaxQuantity].
type LineItem struct {
	PriceRef string
	Quantity int64
}

// Record is the side-channel counterpart of one pre-merge cart entry. It
// rides in the checkout session metadata so the webhook can recover the
// original SKU and travel date, which Stripe's merged line items lose.
type Record struct {
	SKU      string  `json:"sku"`
	Quantity int64   `json:"quantity"`
	Date     *string `json:"date"`
}

// Normalize validates and coerces an untrusted client cart into merged line
// items plus the order-preserving side-channel records.
//
// Entries that are not objects, lack a string sku, or name a SKU the catalog
// does not know are dropped; only a malformed or empty list fails the whole
// request. Quantities are floored and clamped, absent or unparseable values
// default to 1. Entries resolving to the same price are merged by summing
// quantities, so the returned priceRef set has no duplicates.
func Normalize(cat *catalog.Catalog, items []json.RawMessage, defaultDate string) ([]LineItem, []Record, error) {
	if len(items) == 0 {
		return nil, nil, ErrInvalidPayload
	}

	var (
		lines   []LineItem
		records []Record
		byPrice = map[string]int{}
	)

	for _, raw := range items {
		entry, ok := parseEntry(raw)
		if !ok {
			continue
		}
		priceRef, err := cat.Resolve(entry.sku)
		if err != nil {
			// Tampered or stale-cache SKU. Drop the item rather than
			// failing the whole cart.
			continue
		}

		qty := clampQuantity(entry.quantity, entry.hasQuantity)

		if i, seen := byPrice[priceRef]; seen {
			lines[i].Quantity = clampSum(lines[i].Quantity, qty)
		} else {
			byPrice[priceRef] = len(lines)
			lines = append(lines, LineItem{PriceRef: priceRef, Quantity: qty})
		}

		rec := Record{SKU: catalog.Normalize(entry.sku), Quantity: qty}
		switch {
		case entry.date != "":
			d := entry.date
			rec.Date = &d
		case defaultDate != "":
			d := defaultDate
			rec.Date = &d
		}
		records = append(records, rec)
	}

	if len(lines) == 0 {
		return nil, nil, ErrNoValidItems
	}
	return lines, records, nil
}

type rawEntry struct {
	sku         string
	quantity    float64
	hasQuantity bool
	date        string
}

// parseEntry coerces one untrusted cart entry. Anything that fails coercion
// is treated as absent; only a missing sku string rejects the entry.
func parseEntry(raw json.RawMessage) (rawEntry, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return rawEntry{}, false
	}

	var e rawEntry
	if err := json.Unmarshal(fields["sku"], &e.sku); err != nil || e.sku == "" {
		return rawEntry{}, false
	}

	if q, ok := fields["quantity"]; ok {
		var n float64
		if err := json.Unmarshal(q, &n); err == nil {
			e.quantity, e.hasQuantity = n, true
		} else {
			var s string
			if err := json.Unmarshal(q, &s); err == nil {
				if n, err := strconv.ParseFloat(s, 64); err == nil {
					e.quantity, e.hasQuantity = n, true
				}
			}
		}
	}

	if d, ok := fields["date"]; ok {
		var s string
		if err := json.Unmarshal(d, &s); err == nil {
			e.date = s
		}
	}

	return e, true
}

func clampQuantity(q float64, present bool) int64 {
	if !present || math.IsNaN(q) || math.IsInf(q, 0) {
		return MinQuantity
	}
	n := int64(math.Floor(q))
	if n < MinQuantity {
		return MinQuantity
	}
	if n > MaxQuantity {
		return MaxQuantity
	}
	return n
}

func clampSum(a, b int64) int64 {
	if s := a + b; s <= MaxQuantity {
		return s
	}
	return MaxQuantity
}
