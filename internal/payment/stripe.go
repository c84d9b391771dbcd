// internal/payment/stripe.go
package payment

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/checkout/session"
	"github.com/stripe/stripe-go/v72/webhook"
)

// EventCheckoutCompleted is the only webhook event that changes account state.
const EventCheckoutCompleted = "checkout.session.completed"

type Config struct {
	SecretKey  string
	PublicKey  string
	WebhookKey string
	ProductID  string
	PriceID    string
	SuccessURL string
	CancelURL  string
}

// Session is the subset of a Checkout session the service records.
type Session struct {
	ID       string
	URL      string
	UserID   string
	Amount   int64
	Currency string
	// PublishableKey lets the browser open the session with Stripe.js.
	PublishableKey string
}

type StripeClient struct {
	secretKey     string
	publicKey     string
	webhookSecret string
	priceID       string
	productID     string
	successURL    string
	cancelURL     string
}

func NewStripeClient(cfg Config) *StripeClient {
	// Set the secret key for backend operations
	stripe.Key = cfg.SecretKey

	return &StripeClient{
		secretKey:     cfg.SecretKey,
		publicKey:     cfg.PublicKey,
		webhookSecret: cfg.WebhookKey,
		priceID:       cfg.PriceID,
		productID:     cfg.ProductID,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
	}
}

// PublicKey is the publishable key handed to clients alongside a session.
func (s *StripeClient) PublicKey() string {
	return s.publicKey
}

// CreateCheckoutSession starts a one-off premium purchase for the user. The
// user ID travels as the client reference so the webhook can credit it.
func (s *StripeClient) CreateCheckoutSession(userID string) (*Session, error) {
	if stripe.Key != s.secretKey {
		stripe.Key = s.secretKey
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{
			"card",
		}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(s.priceID),
				Quantity: stripe.Int64(1),
			},
		},
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(s.successURL),
		CancelURL:         stripe.String(s.cancelURL),
		ClientReferenceID: stripe.String(userID),
	}
	params.AddMetadata("product_id", s.productID)

	sess, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return s.checkoutSession(sess, userID), nil
}

func (s *StripeClient) checkoutSession(sess *stripe.CheckoutSession, userID string) *Session {
	return &Session{
		ID:             sess.ID,
		URL:            sess.URL,
		UserID:         userID,
		Amount:         sess.AmountTotal,
		Currency:       string(sess.Currency),
		PublishableKey: s.PublicKey(),
	}
}

// ParseWebhook verifies the Stripe signature and, for completed checkouts,
// returns the session. Other event types yield a nil session and no error.
func (s *StripeClient) ParseWebhook(payload []byte, sig string) (*Session, error) {
	if s.webhookSecret == "" {
		return nil, fmt.Errorf("webhook secret is not configured")
	}
	event, err := webhook.ConstructEvent(payload, sig, s.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("verify webhook signature: %w", err)
	}
	return sessionFromEvent(event)
}

func sessionFromEvent(event stripe.Event) (*Session, error) {
	if event.Type != EventCheckoutCompleted {
		return nil, nil
	}
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	return &Session{
		ID:       sess.ID,
		URL:      sess.URL,
		UserID:   sess.ClientReferenceID,
		Amount:   sess.AmountTotal,
		Currency: string(sess.Currency),
	}, nil
}
