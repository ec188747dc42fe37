package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Ubiquity89/QuikKart/internal/auth"
	"github.com/Ubiquity89/QuikKart/internal/orders"
	"github.com/Ubiquity89/QuikKart/internal/payments"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
)

const testWebhookSecret = "whsec_test_secret"

type testEnv struct {
	router   *gin.Engine
	orders   *fakeOrderStore
	cart     *fakeCartStore
	gateway  *fakeGateway
	producer *fakeProducer
	users    *fakeUserStore
	keys     *auth.Keys
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	keys, err := auth.NewKeys("access-secret", "refresh-secret")
	require.NoError(t, err)

	verifier, err := payments.NewWebhookVerifier(testWebhookSecret)
	require.NoError(t, err)

	env := &testEnv{
		orders:   &fakeOrderStore{},
		cart:     newFakeCartStore(),
		gateway:  newFakeGateway(),
		producer: &fakeProducer{},
		users:    newFakeUserStore(),
		keys:     keys,
	}
	env.router = API(Config{
		Keys:     keys,
		Orders:   env.orders,
		Cart:     env.cart,
		Users:    env.users,
		Payments: env.gateway,
		Webhook:  verifier,
		Producer: env.producer,
	})
	return env
}

func (e *testEnv) bearer(t *testing.T, userID, role string) string {
	t.Helper()
	token, err := e.keys.NewAccessToken(userID, role)
	require.NoError(t, err)
	return "Bearer " + token
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func postJSON(t *testing.T, path, bearer string, body interface{}) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	return req
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var envelope map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope
}

func decodeOrders(t *testing.T, w *httptest.ResponseRecorder) []orders.Order {
	t.Helper()
	envelope := decodeEnvelope(t, w)
	var list []orders.Order
	require.NoError(t, json.Unmarshal(envelope["data"], &list))
	return list
}

func codBody(lines ...orders.Line) map[string]interface{} {
	var sub float64
	for _, l := range lines {
		qty := l.Quantity
		if qty <= 0 {
			qty = 1
		}
		sub += l.Price * float64(qty)
	}
	return map[string]interface{}{
		"list_items":  lines,
		"addressId":   "A1",
		"subTotalAmt": sub,
		"totalAmt":    sub,
	}
}

func TestCashOnDelivery(t *testing.T) {
	env := newTestEnv(t)
	bearer := env.bearer(t, "user-1", auth.RoleUser)

	line := orders.Line{
		ProductID:      "P1",
		Quantity:       2,
		Price:          100,
		ProductDetails: orders.ProductDetails{Name: "Widget", Image: "https://img.example/p1.png"},
	}
	w := env.do(postJSON(t, "/api/order/cash-on-delivery", bearer, codBody(line)))
	require.Equal(t, http.StatusOK, w.Code)

	created := decodeOrders(t, w)
	require.Len(t, created, 1)
	require.Equal(t, "P1", created[0].ProductID)
	require.Equal(t, orders.StatusCashOnDelivery, created[0].PaymentStatus)
	require.Equal(t, 200.0, created[0].TotalAmt)
	require.Equal(t, 2, created[0].Quantity)
	require.Empty(t, created[0].PaymentID)
	require.Equal(t, 1, env.cart.clearedFor("user-1"))
}

func TestCashOnDeliveryGroupsLines(t *testing.T) {
	env := newTestEnv(t)
	bearer := env.bearer(t, "user-1", auth.RoleUser)

	lines := []orders.Line{
		{ProductID: "P1", Quantity: 1, Price: 50},
		{ProductID: "P2", Quantity: 3, Price: 20},
		{ProductID: "P3", Quantity: 1, Price: 10},
	}
	w := env.do(postJSON(t, "/api/order/cash-on-delivery", bearer, codBody(lines...)))
	require.Equal(t, http.StatusOK, w.Code)

	created := decodeOrders(t, w)
	require.Len(t, created, 3)
	for _, o := range created {
		require.Equal(t, created[0].OrderID, o.OrderID)
	}
	require.Equal(t, 1, env.cart.clearedFor("user-1"))
}

func TestCashOnDeliveryValidation(t *testing.T) {
	env := newTestEnv(t)
	bearer := env.bearer(t, "user-1", auth.RoleUser)

	tests := []struct {
		name string
		body map[string]interface{}
		msg  string
	}{
		{
			name: "empty cart",
			body: map[string]interface{}{"list_items": []orders.Line{}, "addressId": "A1"},
			msg:  "No items in cart",
		},
		{
			name: "missing address",
			body: map[string]interface{}{"list_items": []orders.Line{{ProductID: "P1", Price: 10}}},
			msg:  "Please select an address",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(postJSON(t, "/api/order/cash-on-delivery", bearer, tt.body))
			require.Equal(t, http.StatusBadRequest, w.Code)
			require.Contains(t, w.Body.String(), tt.msg)
			require.Empty(t, env.orders.allRows())
		})
	}
}

func TestCheckoutCreatesSessionWithoutOrders(t *testing.T) {
	env := newTestEnv(t)
	bearer := env.bearer(t, "user-1", auth.RoleUser)

	line := orders.Line{ProductID: "P1", Quantity: 2, Price: 100}
	w := env.do(postJSON(t, "/api/order/create-checkout-session", bearer, codBody(line)))
	require.Equal(t, http.StatusOK, w.Code)

	envelope := decodeEnvelope(t, w)
	var sess payments.CheckoutSession
	require.NoError(t, json.Unmarshal(envelope["data"], &sess))
	require.Equal(t, "cs_test_123", sess.ID)
	require.NotEmpty(t, sess.URL)

	// No local writes until the payment is confirmed.
	require.Empty(t, env.orders.allRows())
	require.Zero(t, env.cart.clearedFor("user-1"))
}

func TestCheckoutGatewayFailure(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.createErr = errFake
	bearer := env.bearer(t, "user-1", auth.RoleUser)

	line := orders.Line{ProductID: "P1", Quantity: 1, Price: 10}
	w := env.do(postJSON(t, "/api/order/create-checkout-session", bearer, codBody(line)))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, w.Body.String(), "Error creating payment session")
	require.Empty(t, env.orders.allRows())
}

func TestCheckoutRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	line := orders.Line{ProductID: "P1", Quantity: 1, Price: 10}
	w := env.do(postJSON(t, "/api/order/create-checkout-session", "", codBody(line)))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func paidSession(id string, items string) *stripe.CheckoutSession {
	return &stripe.CheckoutSession{
		ID:             id,
		PaymentStatus:  stripe.CheckoutSessionPaymentStatusPaid,
		AmountSubtotal: 20000,
		AmountTotal:    20000,
		PaymentIntent:  &stripe.PaymentIntent{ID: "pi_123"},
		Metadata: map[string]string{
			"userId":    "user-1",
			"addressId": "A1",
			"items":     items,
		},
	}
}

func TestVerifyPayment(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.stored["cs_1"] = paidSession("cs_1", `[{"p":"P1","q":2}]`)

	req := httptest.NewRequest(http.MethodGet, "/api/order/verify-payment?session_id=cs_1", nil)
	w := env.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	created := decodeOrders(t, w)
	require.Len(t, created, 1)
	require.Equal(t, orders.StatusPaid, created[0].PaymentStatus)
	require.Equal(t, "pi_123", created[0].PaymentID)
	// 20000 minor units recorded as the decimal amount.
	require.Equal(t, 200.0, created[0].TotalAmt)
	require.Equal(t, 2, created[0].Quantity)
	require.Equal(t, 1, env.cart.clearedFor("user-1"))
}

func TestVerifyPaymentMissingSessionID(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/order/verify-payment", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "Session ID is required")
}

func TestVerifyPaymentUnpaidSession(t *testing.T) {
	env := newTestEnv(t)
	sess := paidSession("cs_1", `[{"p":"P1","q":1}]`)
	sess.PaymentStatus = stripe.CheckoutSessionPaymentStatusUnpaid
	env.gateway.stored["cs_1"] = sess

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/order/verify-payment?session_id=cs_1", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "Payment not completed")
	require.Empty(t, env.orders.allRows())
	require.Zero(t, env.cart.clearedFor("user-1"))
}

func TestVerifyPaymentIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.stored["cs_1"] = paidSession("cs_1", `[{"p":"P1","q":2}]`)

	first := env.do(httptest.NewRequest(http.MethodGet, "/api/order/verify-payment?session_id=cs_1", nil))
	require.Equal(t, http.StatusOK, first.Code)
	second := env.do(httptest.NewRequest(http.MethodGet, "/api/order/verify-payment?session_id=cs_1", nil))
	require.Equal(t, http.StatusOK, second.Code)

	require.Len(t, env.orders.allRows(), 1)
	require.Equal(t, decodeOrders(t, first)[0].OrderID, decodeOrders(t, second)[0].OrderID)
}

func TestOrderListNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	bearer := env.bearer(t, "user-1", auth.RoleUser)

	w := env.do(postJSON(t, "/api/order/cash-on-delivery", bearer,
		codBody(orders.Line{ProductID: "P1", Quantity: 1, Price: 10})))
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(postJSON(t, "/api/order/cash-on-delivery", bearer,
		codBody(orders.Line{ProductID: "P2", Quantity: 1, Price: 20})))
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/order/order-list", nil)
	req.Header.Set("Authorization", bearer)
	resp := env.do(req)
	require.Equal(t, http.StatusOK, resp.Code)

	list := decodeOrders(t, resp)
	require.Len(t, list, 2)
	require.Equal(t, "P2", list[0].ProductID)
	require.Equal(t, "P1", list[1].ProductID)
}
