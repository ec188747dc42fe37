package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Ubiquity89/QuikKart/internal/address"
	"github.com/Ubiquity89/QuikKart/pkg/ctxmanage"
	"github.com/Ubiquity89/QuikKart/pkg/logkey"

	"github.com/gin-gonic/gin"
)

func (h *Handler) CreateAddress(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := claimsFromRequest(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var na address.NewAddress
	if err := c.ShouldBindJSON(&na); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg, ok := h.validateStruct(traceId, na); !ok {
		respondError(c, http.StatusBadRequest, msg)
		return
	}

	created, err := h.addr.InsertAddress(c.Request.Context(), claims.Subject, na)
	if err != nil {
		slog.Error("error inserting address", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, claims.Subject), slog.String(logkey.ERROR, err.Error()))
		respondError(c, http.StatusInternalServerError, "Address creation failed")
		return
	}
	respondData(c, "Address created successfully", created)
}

func (h *Handler) ListAddresses(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := claimsFromRequest(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	list, err := h.addr.ListAddresses(c.Request.Context(), claims.Subject)
	if err != nil {
		slog.Error("error listing addresses", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, claims.Subject), slog.String(logkey.ERROR, err.Error()))
		respondError(c, http.StatusInternalServerError, "Failed to fetch addresses")
		return
	}
	if list == nil {
		list = []address.Address{}
	}
	respondData(c, "Address list", list)
}

func (h *Handler) UpdateAddress(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := claimsFromRequest(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id := c.Param("id")
	var na address.NewAddress
	if err := c.ShouldBindJSON(&na); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg, ok := h.validateStruct(traceId, na); !ok {
		respondError(c, http.StatusBadRequest, msg)
		return
	}

	updated, err := h.addr.UpdateAddress(c.Request.Context(), claims.Subject, id, na)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(c, http.StatusNotFound, "Address not found")
			return
		}
		slog.Error("error updating address", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, claims.Subject), slog.String(logkey.ERROR, err.Error()))
		respondError(c, http.StatusInternalServerError, "Address update failed")
		return
	}
	respondData(c, "Address updated successfully", updated)
}

func (h *Handler) DisableAddress(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := claimsFromRequest(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id := c.Param("id")
	if err := h.addr.DisableAddress(c.Request.Context(), claims.Subject, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(c, http.StatusNotFound, "Address not found")
			return
		}
		slog.Error("error disabling address", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, claims.Subject), slog.String(logkey.ERROR, err.Error()))
		respondError(c, http.StatusInternalServerError, "Address removal failed")
		return
	}
	respondData(c, "Address removed", gin.H{"id": id})
}
