package payment

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v72"
)

func TestSessionFromCompletedEvent(t *testing.T) {
	raw := json.RawMessage(`{"id":"cs_test_1","object":"checkout.session","client_reference_id":"user-1","amount_total":999,"currency":"usd"}`)
	sess, err := sessionFromEvent(stripe.Event{Type: EventCheckoutCompleted, Data: &stripe.EventData{Raw: raw}})
	require.NoError(t, err)
	require.NotNil(t, sess)

	assert.Equal(t, "cs_test_1", sess.ID)
	assert.Equal(t, "user-1", sess.UserID)
	assert.Equal(t, int64(999), sess.Amount)
	assert.Equal(t, "usd", sess.Currency)
}

func TestSessionFromOtherEventIsIgnored(t *testing.T) {
	sess, err := sessionFromEvent(stripe.Event{Type: "payment_intent.created"})
	assert.NoError(t, err)
	assert.Nil(t, sess)
}

func TestParseWebhookRejectsBadSignature(t *testing.T) {
	client := NewStripeClient(Config{SecretKey: "sk_test", WebhookKey: "whsec_test"})
	_, err := client.ParseWebhook([]byte(`{}`), "t=1,v1=deadbeef")
	assert.Error(t, err)

	unconfigured := NewStripeClient(Config{SecretKey: "sk_test"})
	_, err = unconfigured.ParseWebhook([]byte(`{}`), "sig")
	assert.Error(t, err)
}

func TestCheckoutSessionCarriesPublishableKey(t *testing.T) {
	client := NewStripeClient(Config{SecretKey: "sk_test", PublicKey: "pk_test"})
	sess := client.checkoutSession(&stripe.CheckoutSession{
		ID:          "cs_test_2",
		URL:         "https://checkout.stripe.com/c/cs_test_2",
		AmountTotal: 999,
		Currency:    stripe.CurrencyUSD,
	}, "user-2")

	assert.Equal(t, "cs_test_2", sess.ID)
	assert.Equal(t, "user-2", sess.UserID)
	assert.Equal(t, "usd", sess.Currency)
	assert.Equal(t, "pk_test", sess.PublishableKey)
}
