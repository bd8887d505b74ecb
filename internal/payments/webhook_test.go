package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigningSecret = "whsec_test_secret"

// signPayload builds a Stripe-Signature header over the raw payload the way
// Stripe does: HMAC-SHA256 of "<timestamp>.<payload>".
func signPayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func completedEventPayload() []byte {
	return []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_test_9", "object": "checkout.session"}}
	}`)
}

func TestVerify_Valid(t *testing.T) {
	v := NewVerifier(testSigningSecret, 5*time.Minute)
	payload := completedEventPayload()
	header := signPayload(payload, testSigningSecret, time.Now())

	ev, err := v.Verify(payload, header)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, EventTypeCheckoutCompleted, ev.Type)
	assert.Equal(t, "cs_test_9", ev.SessionID)
}

func TestVerify_TamperedByte(t *testing.T) {
	v := NewVerifier(testSigningSecret, 5*time.Minute)
	payload := completedEventPayload()
	header := signPayload(payload, testSigningSecret, time.Now())

	tampered := append([]byte(nil), payload...)
	tampered[len(tampered)/2] ^= 0x01

	_, err := v.Verify(tampered, header)
	require.ErrorIs(t, err, ErrBadSignature)
}

func TestVerify_RepeatedDeliveryAccepted(t *testing.T) {
	// At-least-once delivery: the identical payload/signature pair must
	// verify every time, with no dedup required.
	v := NewVerifier(testSigningSecret, 5*time.Minute)
	payload := completedEventPayload()
	header := signPayload(payload, testSigningSecret, time.Now())

	for i := 0; i < 2; i++ {
		_, err := v.Verify(payload, header)
		require.NoError(t, err, "delivery %d", i+1)
	}
}

func TestVerify_StaleTimestamp(t *testing.T) {
	v := NewVerifier(testSigningSecret, 5*time.Minute)
	payload := completedEventPayload()
	header := signPayload(payload, testSigningSecret, time.Now().Add(-time.Hour))

	_, err := v.Verify(payload, header)
	require.ErrorIs(t, err, ErrBadSignature)
}

func TestVerify_MissingInputs(t *testing.T) {
	payload := completedEventPayload()

	_, err := NewVerifier(testSigningSecret, 5*time.Minute).Verify(payload, "")
	require.ErrorIs(t, err, ErrBadSignature)

	header := signPayload(payload, testSigningSecret, time.Now())
	_, err = NewVerifier("", 5*time.Minute).Verify(payload, header)
	require.ErrorIs(t, err, ErrBadSignature)
}

func TestVerify_WrongSecret(t *testing.T) {
	v := NewVerifier(testSigningSecret, 5*time.Minute)
	payload := completedEventPayload()
	header := signPayload(payload, "whsec_other", time.Now())

	_, err := v.Verify(payload, header)
	require.ErrorIs(t, err, ErrBadSignature)
}
