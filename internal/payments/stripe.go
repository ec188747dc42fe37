// Package payments wraps the Stripe SDK: checkout session creation, session
// retrieval for the verify-payment path, and webhook signature verification.
package payments

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/webhook"
)

// CheckoutLine is one cart line at session-creation time.
type CheckoutLine struct {
	ProductID string
	Name      string
	Image     string
	Price     float64
	Quantity  int
}

type CheckoutSession struct {
	ID  string `json:"sessionId"`
	URL string `json:"url"`
}

type Stripe struct {
	frontendURL string
}

func NewStripe(apiKey, frontendURL string) (*Stripe, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("stripe api key is empty")
	}
	if frontendURL == "" {
		return nil, fmt.Errorf("frontend url is empty")
	}
	stripe.Key = apiKey
	return &Stripe{frontendURL: strings.TrimRight(frontendURL, "/")}, nil
}

// MinorUnits converts a decimal currency amount to the processor's minor
// units. Simple round-half-away-from-zero; the same conversion is used at
// session creation and at verification so totals never drift.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromMinorUnits is the inverse conversion, used when recording the
// processor's authoritative session totals.
func FromMinorUnits(amount int64) float64 {
	return float64(amount) / 100
}

// CreateCheckoutSession creates a hosted payment session for the given cart
// lines. The session metadata carries a compact descriptor of the transaction
// so orders can be reconstructed later without re-reading the cart.
func (s *Stripe) CreateCheckoutSession(ctx context.Context, userID, addressID string, lines []CheckoutLine) (CheckoutSession, error) {
	items := make([]TxnItem, 0, len(lines))
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(lines))
	for _, line := range lines {
		qty := line.Quantity
		if qty <= 0 {
			qty = 1
		}

		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(line.Name),
		}
		if strings.HasPrefix(line.Image, "http://") || strings.HasPrefix(line.Image, "https://") {
			productData.Images = stripe.StringSlice([]string{line.Image})
		}

		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(string(stripe.CurrencyINR)),
				ProductData: productData,
				UnitAmount:  stripe.Int64(MinorUnits(line.Price)),
			},
			Quantity: stripe.Int64(int64(qty)),
		})
		items = append(items, TxnItem{ProductID: line.ProductID, Quantity: qty})
	}

	encoded, err := EncodeItems(items)
	if err != nil {
		return CheckoutSession{}, err
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          lineItems,
		SuccessURL:         stripe.String(s.frontendURL + "/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:          stripe.String(s.frontendURL + "/checkout?cancelled=true"),
		Metadata: map[string]string{
			metadataKeyUserID:    userID,
			metadataKeyAddressID: addressID,
			metadataKeyItems:     encoded,
		},
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("creating checkout session: %w", err)
	}
	return CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// RetrieveSession fetches a session with its payment intent expanded, as
// needed by the verify-payment path.
func (s *Stripe) RetrieveSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent")

	sess, err := session.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("retrieving checkout session %s: %w", sessionID, err)
	}
	return sess, nil
}

// WebhookVerifier authenticates incoming Stripe events. The signing secret is
// mandatory: an unverified webhook is an order-forgery endpoint.
type WebhookVerifier struct {
	secret string
}

func NewWebhookVerifier(secret string) (*WebhookVerifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("webhook signing secret is empty")
	}
	return &WebhookVerifier{secret: secret}, nil
}

func (w *WebhookVerifier) ParseEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	// Signature checking stays strict; the API version pin does not. Stripe
	// sends events at the account's version, which routinely trails or leads
	// the SDK's pin.
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, w.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("verifying webhook signature: %w", err)
	}
	return event, nil
}
