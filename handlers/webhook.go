package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/Ubiquity89/QuikKart/pkg/ctxmanage"
	"github.com/Ubiquity89/QuikKart/pkg/logkey"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v81"
)

// Webhook handles Stripe's asynchronous session notifications. Once an event
// is authenticated and parsed the response is always 200: Stripe retries
// anything else, and order creation is idempotent anyway, so downstream
// failures are logged rather than surfaced.
func (h *Handler) Webhook(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	const MaxBodyBytes = int64(65536)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		slog.Error("failed to read webhook body", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	event, err := h.wh.ParseEvent(payload, c.Request.Header.Get("Stripe-Signature"))
	if err != nil {
		slog.Error("webhook signature verification failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		respondError(c, http.StatusBadRequest, "Webhook signature verification failed")
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			slog.Error("failed to unmarshal checkout session", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			respondError(c, http.StatusBadRequest, "Malformed event payload")
			return
		}

		if _, err := h.materializeSession(c.Request.Context(), traceId, &sess); err != nil {
			slog.Error("error materializing session orders from webhook", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.SessionID, sess.ID), slog.String(logkey.ERROR, err.Error()))
		}

	case "checkout.session.expired":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			slog.Error("failed to unmarshal checkout session", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			respondError(c, http.StatusBadRequest, "Malformed event payload")
			return
		}

		n, err := h.o.ExpireSession(c.Request.Context(), sess.ID)
		if err != nil {
			slog.Error("error expiring session orders", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.SessionID, sess.ID), slog.String(logkey.ERROR, err.Error()))
		} else {
			slog.Info("session expired", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.SessionID, sess.ID), slog.Int64("RowsUpdated", n))
		}

	default:
		slog.Info("unhandled webhook event type", slog.String(logkey.TraceID, traceId),
			slog.String("EventType", string(event.Type)))
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
