package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Ubiquity89/QuikKart/internal/categories"
	"github.com/Ubiquity89/QuikKart/pkg/ctxmanage"
	"github.com/Ubiquity89/QuikKart/pkg/logkey"

	"github.com/gin-gonic/gin"
)

func (h *Handler) CreateCategory(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var nc categories.NewCategory
	if err := c.ShouldBindJSON(&nc); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg, ok := h.validateStruct(traceId, nc); !ok {
		respondError(c, http.StatusBadRequest, msg)
		return
	}

	created, err := h.cat.InsertCategory(c.Request.Context(), nc)
	if err != nil {
		slog.Error("error inserting category", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		respondError(c, http.StatusInternalServerError, "Category creation failed")
		return
	}
	respondData(c, "Category created successfully", created)
}

func (h *Handler) ListCategories(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	list, err := h.cat.ListCategories(c.Request.Context())
	if err != nil {
		slog.Error("error listing categories", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		respondError(c, http.StatusInternalServerError, "Failed to fetch categories")
		return
	}
	if list == nil {
		list = []categories.Category{}
	}
	respondData(c, "Category list", list)
}

func (h *Handler) UpdateCategory(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	id := c.Param("id")

	var nc categories.NewCategory
	if err := c.ShouldBindJSON(&nc); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg, ok := h.validateStruct(traceId, nc); !ok {
		respondError(c, http.StatusBadRequest, msg)
		return
	}

	updated, err := h.cat.UpdateCategory(c.Request.Context(), id, nc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(c, http.StatusNotFound, "Category not found")
			return
		}
		slog.Error("error updating category", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		respondError(c, http.StatusInternalServerError, "Category update failed")
		return
	}
	respondData(c, "Category updated successfully", updated)
}

func (h *Handler) DeleteCategory(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	id := c.Param("id")

	if err := h.cat.DeleteCategory(c.Request.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(c, http.StatusNotFound, "Category not found")
			return
		}
		slog.Error("error deleting category", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		respondError(c, http.StatusInternalServerError, "Category deletion failed")
		return
	}
	respondData(c, "Category deleted successfully", gin.H{"id": id})
}
