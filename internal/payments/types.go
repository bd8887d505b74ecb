package payments

import (
	"encoding/json"
	"fmt"
)

// CheckoutSession mirrors the fields of Stripe's checkout session object
// this service reads.
type CheckoutSession struct {
	ID              string            `json:"id"`
	URL             string            `json:"url"`
	Mode            string            `json:"mode"`
	PaymentStatus   string            `json:"payment_status"`
	AmountTotal     int64             `json:"amount_total"`
	Currency        string            `json:"currency"`
	CustomerEmail   string            `json:"customer_email"`
	CustomerDetails *CustomerDetails  `json:"customer_details"`
	Metadata        map[string]string `json:"metadata"`
}

type CustomerDetails struct {
	Email string `json:"email"`
}

// Email returns the buyer email Stripe collected during checkout, falling
// back to the email the session was created with.
func (s *CheckoutSession) Email() string {
	if s.CustomerDetails != nil && s.CustomerDetails.Email != "" {
		return s.CustomerDetails.Email
	}
	return s.CustomerEmail
}

// LineItem is one merged line of a checkout session as Stripe reports it.
// Amounts here are authoritative for money; business fields (SKU, date) come
// from the metadata side channel.
type LineItem struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	AmountTotal int64  `json:"amount_total"`
	Currency    string `json:"currency"`
	Price       *Price `json:"price"`
}

type Price struct {
	ID         string   `json:"id"`
	UnitAmount int64    `json:"unit_amount"`
	Currency   string   `json:"currency"`
	Nickname   string   `json:"nickname"`
	Product    *Product `json:"product"`
}

// Product is either a bare ID string or an expanded object, depending on
// whether the request asked for expansion.
type Product struct {
	ID   string
	Name string
}

func (p *Product) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &p.ID)
	}
	var obj struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	p.ID, p.Name = obj.ID, obj.Name
	return nil
}

func (p Product) MarshalJSON() ([]byte, error) {
	if p.Name == "" {
		return json.Marshal(p.ID)
	}
	return json.Marshal(struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}{p.ID, p.Name})
}

type lineItemList struct {
	Data    []LineItem `json:"data"`
	HasMore bool       `json:"has_more"`
}

// GatewayError is a non-2xx answer from Stripe. Message is safe to surface
// to the caller; it never contains credentials.
type GatewayError struct {
	StatusCode int
	Type       string
	Code       string
	Message    string
}

func (e *GatewayError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "request rejected"
	}
	return fmt.Sprintf("stripe: %s (status %d)", msg, e.StatusCode)
}

type gatewayErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
