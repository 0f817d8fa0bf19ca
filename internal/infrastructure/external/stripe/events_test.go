package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/human-catalyst/catalyst-hub/internal/domain/billing"
	"github.com/human-catalyst/catalyst-hub/internal/domain/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test_secret"

// signPayload produces a valid Stripe-Signature header for the payload.
func signPayload(t *testing.T, payload []byte, secret string, at time.Time) string {
	t.Helper()
	ts := at.Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func decodeSigned(t *testing.T, payload string) (billing.Event, error) {
	t.Helper()
	d := NewWebhookDecoder(testWebhookSecret)
	header := signPayload(t, []byte(payload), testWebhookSecret, time.Now())
	return d.Decode([]byte(payload), header)
}

func TestDecodeRejectsBadSignature(t *testing.T) {
	d := NewWebhookDecoder(testWebhookSecret)
	payload := []byte(`{"id":"evt_1","type":"invoice.payment_failed"}`)

	header := signPayload(t, payload, "whsec_wrong_secret", time.Now())
	_, err := d.Decode(payload, header)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrWebhookSignature))

	_, err = d.Decode(payload, "not-a-signature")
	assert.Error(t, err)
}

func TestDecodeRejectsStaleSignature(t *testing.T) {
	d := NewWebhookDecoder(testWebhookSecret)
	payload := []byte(`{"id":"evt_1","type":"invoice.payment_failed"}`)

	header := signPayload(t, payload, testWebhookSecret, time.Now().Add(-2*time.Hour))
	_, err := d.Decode(payload, header)
	assert.Error(t, err)
}

func TestDecodeCheckoutCompleted(t *testing.T) {
	payload := `{
		"id": "evt_checkout_1",
		"type": "checkout.session.completed",
		"created": 1700000000,
		"data": {
			"object": {
				"id": "cs_test_1",
				"customer": {"id": "cus_123"},
				"subscription": {"id": "sub_456"},
				"metadata": {"user_id": "user-1", "plan_type": "teacher", "cadence": "yearly"}
			}
		}
	}`

	event, err := decodeSigned(t, payload)
	require.NoError(t, err)

	checkout, ok := event.(billing.CheckoutCompleted)
	require.True(t, ok, "expected CheckoutCompleted, got %T", event)
	assert.Equal(t, "evt_checkout_1", checkout.ProviderEventID())
	assert.Equal(t, "user-1", checkout.UserID)
	assert.Equal(t, "teacher", checkout.PlanTag)
	assert.Equal(t, "yearly", checkout.Cadence)
	assert.Equal(t, "cus_123", checkout.CustomerID)
	assert.Equal(t, "sub_456", checkout.SubscriptionID)
}

func TestDecodeSubscriptionUpdated(t *testing.T) {
	payload := `{
		"id": "evt_sub_1",
		"type": "customer.subscription.updated",
		"created": 1700000000,
		"data": {
			"object": {
				"id": "sub_456",
				"customer": {"id": "cus_123"},
				"status": "past_due",
				"current_period_end": 1702592000,
				"items": {
					"data": [
						{"price": {"recurring": {"interval": "year"}}}
					]
				}
			}
		}
	}`

	event, err := decodeSigned(t, payload)
	require.NoError(t, err)

	updated, ok := event.(billing.SubscriptionUpdated)
	require.True(t, ok, "expected SubscriptionUpdated, got %T", event)
	assert.Equal(t, "sub_456", updated.SubscriptionID)
	assert.Equal(t, "cus_123", updated.CustomerID)
	assert.Equal(t, "past_due", updated.Status)
	assert.Equal(t, "year", updated.PriceInterval)
	assert.Equal(t, time.Unix(1702592000, 0).UTC(), updated.CurrentPeriodEnd)
}

func TestDecodeSubscriptionDeleted(t *testing.T) {
	payload := `{
		"id": "evt_sub_2",
		"type": "customer.subscription.deleted",
		"created": 1700000000,
		"data": {
			"object": {
				"id": "sub_456",
				"customer": {"id": "cus_123"},
				"status": "canceled"
			}
		}
	}`

	event, err := decodeSigned(t, payload)
	require.NoError(t, err)

	deleted, ok := event.(billing.SubscriptionDeleted)
	require.True(t, ok, "expected SubscriptionDeleted, got %T", event)
	assert.Equal(t, "sub_456", deleted.SubscriptionID)
	assert.Equal(t, "cus_123", deleted.CustomerID)
}

func TestDecodePaymentEvents(t *testing.T) {
	paid := `{
		"id": "evt_inv_1",
		"type": "invoice.payment_succeeded",
		"created": 1700000000,
		"data": {
			"object": {
				"id": "in_1",
				"customer": {"id": "cus_123"},
				"amount_paid": 2900
			}
		}
	}`

	event, err := decodeSigned(t, paid)
	require.NoError(t, err)
	succeeded, ok := event.(billing.PaymentSucceeded)
	require.True(t, ok, "expected PaymentSucceeded, got %T", event)
	assert.Equal(t, "cus_123", succeeded.CustomerID)
	assert.Equal(t, "in_1", succeeded.InvoiceID)
	assert.Equal(t, int64(2900), succeeded.AmountPaid)

	failed := `{
		"id": "evt_inv_2",
		"type": "invoice.payment_failed",
		"created": 1700000000,
		"data": {
			"object": {
				"id": "in_2",
				"customer": {"id": "cus_123"}
			}
		}
	}`

	event, err = decodeSigned(t, failed)
	require.NoError(t, err)
	fail, ok := event.(billing.PaymentFailed)
	require.True(t, ok, "expected PaymentFailed, got %T", event)
	assert.Equal(t, "in_2", fail.InvoiceID)
}

func TestDecodeUnknownTypeIsUnhandled(t *testing.T) {
	payload := `{
		"id": "evt_other_1",
		"type": "customer.updated",
		"created": 1700000000,
		"data": {"object": {}}
	}`

	event, err := decodeSigned(t, payload)
	require.NoError(t, err)

	unhandled, ok := event.(billing.Unhandled)
	require.True(t, ok, "expected Unhandled, got %T", event)
	assert.Equal(t, "customer.updated", unhandled.Type)
	assert.Equal(t, "evt_other_1", unhandled.ProviderEventID())
}
