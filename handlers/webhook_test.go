package handlers

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Ubiquity89/QuikKart/internal/orders"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81/webhook"
)

func webhookEvent(t *testing.T, eventType, sessionID, items string) []byte {
	t.Helper()
	session := map[string]interface{}{
		"id":              sessionID,
		"object":          "checkout.session",
		"payment_status":  "paid",
		"amount_subtotal": 20000,
		"amount_total":    20000,
		"payment_intent":  "pi_123",
		"metadata": map[string]string{
			"userId":    "user-1",
			"addressId": "A1",
			"items":     items,
		},
	}
	event := map[string]interface{}{
		"id":   "evt_1",
		"type": eventType,
		"data": map[string]interface{}{"object": session},
	}
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return raw
}

func signedWebhookRequest(t *testing.T, payload []byte, secret string) *http.Request {
	t.Helper()
	now := time.Now()
	signature := webhook.ComputeSignature(now, payload, secret)
	req := httptest.NewRequest(http.MethodPost, "/api/order/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature",
		fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(signature)))
	return req
}

func TestWebhookCompletedCreatesOrders(t *testing.T) {
	env := newTestEnv(t)

	payload := webhookEvent(t, "checkout.session.completed", "cs_1", `[{"p":"P1","q":2}]`)
	w := env.do(signedWebhookRequest(t, payload, testWebhookSecret))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"received":true`)

	rows := env.orders.allRows()
	require.Len(t, rows, 1)
	require.Equal(t, orders.StatusPaid, rows[0].PaymentStatus)
	require.Equal(t, "pi_123", rows[0].PaymentID)
	require.Equal(t, 200.0, rows[0].TotalAmt)
	require.Equal(t, "A1", rows[0].DeliveryAddress)
	require.Equal(t, 1, env.cart.clearedFor("user-1"))
	require.Equal(t, 1, env.producer.count())
}

func TestWebhookInvalidSignature(t *testing.T) {
	env := newTestEnv(t)

	payload := webhookEvent(t, "checkout.session.completed", "cs_1", `[{"p":"P1","q":2}]`)
	w := env.do(signedWebhookRequest(t, payload, "whsec_wrong_secret"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, env.orders.allRows())
	require.Zero(t, env.cart.clearedFor("user-1"))
	require.Zero(t, env.producer.count())
}

func TestWebhookDuplicateDelivery(t *testing.T) {
	env := newTestEnv(t)

	payload := webhookEvent(t, "checkout.session.completed", "cs_1", `[{"p":"P1","q":2},{"p":"P2","q":1}]`)
	first := env.do(signedWebhookRequest(t, payload, testWebhookSecret))
	require.Equal(t, http.StatusOK, first.Code)
	require.Len(t, env.orders.allRows(), 2)

	second := env.do(signedWebhookRequest(t, payload, testWebhookSecret))
	require.Equal(t, http.StatusOK, second.Code)
	require.Len(t, env.orders.allRows(), 2)

	// The second delivery changed nothing: no extra cart clear, no extra events.
	require.Equal(t, 1, env.cart.clearedFor("user-1"))
	require.Equal(t, 2, env.producer.count())
}

func TestWebhookThenVerifyConverges(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.stored["cs_1"] = paidSession("cs_1", `[{"p":"P1","q":2}]`)

	payload := webhookEvent(t, "checkout.session.completed", "cs_1", `[{"p":"P1","q":2}]`)
	w := env.do(signedWebhookRequest(t, payload, testWebhookSecret))
	require.Equal(t, http.StatusOK, w.Code)

	resp := env.do(httptest.NewRequest(http.MethodGet, "/api/order/verify-payment?session_id=cs_1", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	// Both paths fired; exactly one order set exists and verify returned it.
	rows := env.orders.allRows()
	require.Len(t, rows, 1)
	require.Equal(t, rows[0].OrderID, decodeOrders(t, resp)[0].OrderID)
}

func TestWebhookExpiredBeforeOrdersIsNoop(t *testing.T) {
	env := newTestEnv(t)

	payload := webhookEvent(t, "checkout.session.expired", "cs_gone", `[{"p":"P1","q":1}]`)
	w := env.do(signedWebhookRequest(t, payload, testWebhookSecret))
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, env.orders.allRows())
}

func TestWebhookUnhandledEventType(t *testing.T) {
	env := newTestEnv(t)

	payload := webhookEvent(t, "payment_intent.created", "cs_1", `[]`)
	w := env.do(signedWebhookRequest(t, payload, testWebhookSecret))
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, env.orders.allRows())
}
