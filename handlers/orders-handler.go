package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/Ubiquity89/QuikKart/internal/orders"
	"github.com/Ubiquity89/QuikKart/internal/payments"
	"github.com/Ubiquity89/QuikKart/internal/stores/kafka"
	"github.com/Ubiquity89/QuikKart/pkg/ctxmanage"
	"github.com/Ubiquity89/QuikKart/pkg/logkey"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v81"
)

type checkoutRequest struct {
	ListItems   []orders.Line `json:"list_items"`
	AddressID   string        `json:"addressId"`
	SubTotalAmt float64       `json:"subTotalAmt"`
	TotalAmt    float64       `json:"totalAmt"`
}

func (r *checkoutRequest) validate() (status int, msg string) {
	if len(r.ListItems) == 0 {
		return http.StatusBadRequest, "No items in cart"
	}
	if r.AddressID == "" {
		return http.StatusBadRequest, "Please select an address"
	}
	if r.SubTotalAmt < 0 || r.TotalAmt < 0 {
		return http.StatusBadRequest, "Amounts must be non-negative"
	}
	for _, line := range r.ListItems {
		if line.ProductID == "" {
			return http.StatusBadRequest, "Product ID missing in cart items"
		}
		if line.Price < 0 || line.Quantity < 0 {
			return http.StatusBadRequest, "Invalid cart line"
		}
	}
	return 0, ""
}

// Checkout creates a hosted Stripe checkout session for the submitted cart
// snapshot. Nothing is written locally: orders materialize later, when the
// webhook or the verify call confirms payment.
func (h *Handler) Checkout(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := claimsFromRequest(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("invalid checkout request body", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if status, msg := req.validate(); status != 0 {
		slog.Error("checkout validation failed", slog.String(logkey.TraceID, traceId), slog.String("Reason", msg))
		respondError(c, status, msg)
		return
	}

	lines := make([]payments.CheckoutLine, 0, len(req.ListItems))
	for _, item := range req.ListItems {
		lines = append(lines, payments.CheckoutLine{
			ProductID: item.ProductID,
			Name:      item.ProductDetails.Name,
			Image:     item.ProductDetails.Image,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}

	sess, err := h.pay.CreateCheckoutSession(c.Request.Context(), claims.Subject, req.AddressID, lines)
	if err != nil {
		slog.Error("error creating checkout session", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, claims.Subject), slog.String(logkey.ERROR, err.Error()))
		respondError(c, http.StatusInternalServerError, "Error creating payment session")
		return
	}

	slog.Info("checkout session created", slog.String(logkey.TraceID, traceId),
		slog.String(logkey.UserID, claims.Subject), slog.String(logkey.SessionID, sess.ID))
	respondData(c, "Checkout session created", sess)
}

// CashOnDelivery places the order synchronously: one row per cart line in a
// single batch, then the cart is cleared. Orders are committed before the
// cart clear so a failure in between never loses an order.
func (h *Handler) CashOnDelivery(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := claimsFromRequest(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("invalid cash-on-delivery request body", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if status, msg := req.validate(); status != 0 {
		slog.Error("cash-on-delivery validation failed", slog.String(logkey.TraceID, traceId), slog.String("Reason", msg))
		respondError(c, status, msg)
		return
	}

	created, err := h.o.CreateCODGroup(c.Request.Context(), claims.Subject, req.AddressID, req.ListItems, req.SubTotalAmt, req.TotalAmt)
	if err != nil {
		slog.Error("error creating cash-on-delivery orders", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, claims.Subject), slog.String(logkey.ERROR, err.Error()))
		respondError(c, http.StatusInternalServerError, "Order creation failed")
		return
	}

	if err := h.c.Clear(c.Request.Context(), claims.Subject); err != nil {
		// The order is already committed; a stale cart is recoverable.
		slog.Error("failed to clear cart after cash-on-delivery order", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, claims.Subject), slog.String(logkey.ERROR, err.Error()))
	}

	slog.Info("cash-on-delivery order placed", slog.String(logkey.TraceID, traceId),
		slog.String(logkey.UserID, claims.Subject), slog.String(logkey.OrderID, created[0].OrderID),
		slog.Int("Lines", len(created)))
	respondData(c, "Order successfully", created)
}

// VerifyPayment is the client-driven half of online-payment reconciliation.
// It races the webhook; both run through materializeSession and converge on
// one order set.
func (h *Handler) VerifyPayment(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	sessionID := c.Query("session_id")
	if sessionID == "" {
		respondError(c, http.StatusBadRequest, "Session ID is required")
		return
	}

	sess, err := h.pay.RetrieveSession(c.Request.Context(), sessionID)
	if err != nil {
		slog.Error("error retrieving checkout session", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.SessionID, sessionID), slog.String(logkey.ERROR, err.Error()))
		respondError(c, http.StatusInternalServerError, "Error verifying payment")
		return
	}

	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		slog.Error("verify called on unpaid session", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.SessionID, sessionID), slog.String("PaymentStatus", string(sess.PaymentStatus)))
		respondError(c, http.StatusBadRequest, "Payment not completed")
		return
	}

	created, err := h.materializeSession(c.Request.Context(), traceId, sess)
	if err != nil {
		slog.Error("error materializing session orders", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.SessionID, sessionID), slog.String(logkey.ERROR, err.Error()))
		respondError(c, http.StatusInternalServerError, "Error verifying payment")
		return
	}

	respondData(c, "Order created successfully", created)
}

// OrderList returns the caller's orders, newest first.
func (h *Handler) OrderList(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := claimsFromRequest(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	list, err := h.o.ListByUser(c.Request.Context(), claims.Subject)
	if err != nil {
		slog.Error("error fetching order list", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, claims.Subject), slog.String(logkey.ERROR, err.Error()))
		respondError(c, http.StatusInternalServerError, "Failed to fetch orders")
		return
	}
	if list == nil {
		list = []orders.Order{}
	}
	respondData(c, "order list", list)
}

// materializeSession turns a paid checkout session into an order group. The
// creation is idempotent at the storage layer, so it does not matter whether
// the webhook, the verify call, or both get here, in any order.
func (h *Handler) materializeSession(ctx context.Context, traceId string, sess *stripe.CheckoutSession) ([]orders.Order, error) {
	userID, addressID, items, err := payments.SessionMetadata(sess.Metadata)
	if err != nil {
		return nil, err
	}

	sessionItems := make([]orders.SessionItem, 0, len(items))
	for _, item := range items {
		sessionItems = append(sessionItems, orders.SessionItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	var paymentID string
	if sess.PaymentIntent != nil {
		paymentID = sess.PaymentIntent.ID
	}

	group := orders.SessionGroup{
		SessionID: sess.ID,
		PaymentID: paymentID,
		UserID:    userID,
		AddressID: addressID,
		Items:     sessionItems,
		// The processor's totals are authoritative; metadata amounts are
		// never trusted or recomputed.
		SubTotalAmt: payments.FromMinorUnits(sess.AmountSubtotal),
		TotalAmt:    payments.FromMinorUnits(sess.AmountTotal),
	}

	created, fresh, err := h.o.CreateFromSession(ctx, group)
	if err != nil {
		return nil, err
	}
	if !fresh {
		slog.Info("session orders already materialized", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.SessionID, sess.ID))
		return created, nil
	}

	if err := h.c.Clear(ctx, userID); err != nil {
		slog.Error("failed to clear cart after payment", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, userID), slog.String(logkey.ERROR, err.Error()))
	}
	h.produceOrderPaidEvents(traceId, created)

	slog.Info("session orders materialized", slog.String(logkey.TraceID, traceId),
		slog.String(logkey.SessionID, sess.ID), slog.String(logkey.OrderID, created[0].OrderID),
		slog.Int("Lines", len(created)))
	return created, nil
}

func (h *Handler) produceOrderPaidEvents(traceId string, created []orders.Order) {
	if h.k == nil {
		return
	}
	for _, o := range created {
		jsonData, err := json.Marshal(kafka.OrderPaidEvent{
			OrderId:   o.OrderID,
			ProductId: o.ProductID,
			Quantity:  o.Quantity,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			slog.Error("failed to marshal order paid event", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			return
		}
		if err := h.k.ProduceMessage(kafka.TopicOrderPaid, []byte(o.OrderID), jsonData); err != nil {
			slog.Error("failed to produce order paid event", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.OrderID, o.OrderID), slog.String(logkey.ERROR, err.Error()))
			return
		}
	}
}
