package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Ubiquity89/QuikKart/pkg/ctxmanage"
	"github.com/Ubiquity89/QuikKart/pkg/logkey"

	"github.com/gin-gonic/gin"
)

type cartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) AddToCart(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := claimsFromRequest(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var request cartItemRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		slog.Error("invalid request body", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if request.ProductID == "" || request.Quantity <= 0 {
		respondError(c, http.StatusBadRequest, "Product ID and quantity must be valid")
		return
	}

	err := h.c.AddToCartDB(c.Request.Context(), claims.Subject, request.ProductID, request.Quantity)
	if err != nil {
		slog.Error("error adding product to cart", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ProductID, request.ProductID), slog.String(logkey.ERROR, err.Error()))
		respondError(c, http.StatusInternalServerError, "Failed to add product to cart")
		return
	}

	slog.Info("product added to cart", slog.String(logkey.TraceID, traceId),
		slog.String(logkey.ProductID, request.ProductID), slog.Int("Quantity", request.Quantity),
		slog.String(logkey.UserID, claims.Subject))
	respondData(c, "Product added to cart successfully", nil)
}

func (h *Handler) GetCartItems(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := claimsFromRequest(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	cartResponse, err := h.c.GetActiveCartItems(c.Request.Context(), claims.Subject)
	if err != nil {
		slog.Error("error fetching active cart items", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, claims.Subject), slog.String(logkey.ERROR, err.Error()))
		respondError(c, http.StatusInternalServerError, "Failed to fetch cart items")
		return
	}

	respondData(c, "Cart items", cartResponse)
}

func (h *Handler) UpdateCartQuantity(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := claimsFromRequest(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var request cartItemRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if request.ProductID == "" || request.Quantity <= 0 {
		respondError(c, http.StatusBadRequest, "Product ID and quantity must be valid")
		return
	}

	err := h.c.UpdateQuantity(c.Request.Context(), claims.Subject, request.ProductID, request.Quantity)
	if err != nil {
		slog.Error("error updating cart quantity", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ProductID, request.ProductID), slog.String(logkey.ERROR, err.Error()))
		respondError(c, http.StatusInternalServerError, "Failed to update cart item")
		return
	}

	respondData(c, "Cart item updated", nil)
}

func (h *Handler) DeleteCartItem(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := claimsFromRequest(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	productID := c.Param("productID")
	if productID == "" {
		respondError(c, http.StatusBadRequest, "Product ID is required")
		return
	}

	if err := h.c.DeleteItem(c.Request.Context(), claims.Subject, productID); err != nil {
		slog.Error("error deleting cart item", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ProductID, productID), slog.String(logkey.ERROR, err.Error()))
		respondError(c, http.StatusInternalServerError, "Failed to delete cart item")
		return
	}

	respondData(c, "Cart item removed", nil)
}
