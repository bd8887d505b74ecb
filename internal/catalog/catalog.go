package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrUnknownSKU is returned when a normalized SKU has no Stripe price mapped.
var ErrUnknownSKU = errors.New("unknown sku")

// defaultPrices maps shop SKUs to Stripe price IDs. SKUs are stored in
// normalized form (see Normalize).
var defaultPrices = map[string]string{
	"PARISIENS_ADULT":   "price_1SFuSsBq3JaiOlPJhMq7H9YM",
	"PARISIENS_CHILD":   "price_1SFuTDBq3JaiOlPJrLzArpUb",
	"MOUCHES_ADULT":     "price_1SFuTmBq3JaiOlPJNYtSb4I3",
	"MOUCHES_CHILD":     "price_1SFuTyBq3JaiOlPJy4lutU4K",
	"BIGBUSCOMBO_ADULT": "price_1SFuUZBq3JaiOlPJjrdeFNVL",
	"BIGBUSCOMBO_CHILD": "price_1SFuV4Bq3JaiOlPJtSPjwSO9",
}

// Catalog is the read-only SKU to Stripe price mapping. It is built once at
// startup and safe for concurrent readers.
type Catalog struct {
	prices map[string]string
}

// Default returns a catalog backed by the built-in price map.
func Default() *Catalog {
	return New(defaultPrices)
}

// New builds a catalog from the given mapping, normalizing the keys.
func New(prices map[string]string) *Catalog {
	m := make(map[string]string, len(prices))
	for sku, price := range prices {
		m[Normalize(sku)] = price
	}
	return &Catalog{prices: m}
}

// LoadFile reads a JSON object of {"SKU": "price_..."} pairs.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var prices map[string]string
	if err := json.Unmarshal(data, &prices); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("catalog %s is empty", path)
	}
	return New(prices), nil
}

// Resolve maps a raw client SKU to its Stripe price ID. The input is
// normalized first so casing and separator typos do not cause spurious
// failures. Unknown SKUs return ErrUnknownSKU; callers decide whether that
// drops the item or fails the request.
func (c *Catalog) Resolve(sku string) (string, error) {
	price, ok := c.prices[Normalize(sku)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSKU, sku)
	}
	return price, nil
}

// Len reports the number of known SKUs.
func (c *Catalog) Len() int { return len(c.prices) }

// Normalize canonicalizes a client-submitted SKU: trim, uppercase, and
// collapse runs of separators (hyphen, underscore, space) into one underscore.
func Normalize(sku string) string {
	s := strings.ToUpper(strings.TrimSpace(sku))
	var b strings.Builder
	b.Grow(len(s))
	sep := false
	for _, r := range s {
		switch r {
		case '-', '_', ' ':
			sep = true
		default:
			if sep && b.Len() > 0 {
				b.WriteByte('_')
			}
			sep = false
			b.WriteRune(r)
		}
	}
	return b.String()
}
