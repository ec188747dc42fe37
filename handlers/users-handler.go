package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Ubiquity89/QuikKart/internal/users"
	"github.com/Ubiquity89/QuikKart/pkg/ctxmanage"
	"github.com/Ubiquity89/QuikKart/pkg/logkey"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func (h *Handler) Signup(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var newUser users.NewUser
	if err := c.ShouldBindJSON(&newUser); err != nil {
		slog.Error("invalid signup body", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg, ok := h.validateStruct(traceId, newUser); !ok {
		respondError(c, http.StatusBadRequest, msg)
		return
	}

	user, err := h.u.InsertUser(c.Request.Context(), newUser)
	if err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			respondError(c, http.StatusConflict, "Email already registered")
			return
		}
		slog.Error("error inserting user", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		respondError(c, http.StatusInternalServerError, "Signup failed")
		return
	}

	slog.Info("user created", slog.String(logkey.TraceID, traceId), slog.String(logkey.UserID, user.ID))
	respondData(c, "User created successfully", user)
}

func (h *Handler) Login(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var login users.Login
	if err := c.ShouldBindJSON(&login); err != nil {
		slog.Error("invalid login body", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg, ok := h.validateStruct(traceId, login); !ok {
		respondError(c, http.StatusBadRequest, msg)
		return
	}

	user, err := h.u.Authenticate(c.Request.Context(), login.Email, login.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			respondError(c, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		slog.Error("error authenticating user", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		respondError(c, http.StatusInternalServerError, "Login failed")
		return
	}

	accessToken, err := h.keys.NewAccessToken(user.ID, user.Role)
	if err != nil {
		slog.Error("error minting access token", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		respondError(c, http.StatusInternalServerError, "Login failed")
		return
	}
	refreshToken, err := h.keys.NewRefreshToken(user.ID, user.Role)
	if err != nil {
		slog.Error("error minting refresh token", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		respondError(c, http.StatusInternalServerError, "Login failed")
		return
	}

	slog.Info("user logged in", slog.String(logkey.TraceID, traceId), slog.String(logkey.UserID, user.ID))
	respondData(c, "Login successful", gin.H{
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
		"user":         user,
	})
}

// RefreshToken exchanges a valid refresh token (sent as a bearer token) for a
// fresh access token. This is the single server-side mint point the client's
// refresh coordination funnels into.
func (h *Handler) RefreshToken(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	parts := strings.Split(c.Request.Header.Get("Authorization"), " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		respondError(c, http.StatusUnauthorized, "Provide token")
		return
	}

	claims, err := h.keys.VerifyRefreshToken(parts[1])
	if err != nil {
		slog.Error("refresh token verification failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		respondError(c, http.StatusUnauthorized, "Invalid token")
		return
	}

	accessToken, err := h.keys.NewAccessToken(claims.Subject, claims.Role)
	if err != nil {
		slog.Error("error minting access token", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		respondError(c, http.StatusInternalServerError, "Token refresh failed")
		return
	}

	respondData(c, "Token refreshed", gin.H{"accessToken": accessToken})
}

// validateStruct runs the validator and maps the first failure to a
// user-facing message.
func (h *Handler) validateStruct(traceId string, s interface{}) (string, bool) {
	err := h.validate.Struct(s)
	if err == nil {
		return "", true
	}

	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		for _, vErr := range vErrs {
			switch vErr.Tag() {
			case "required":
				return vErr.Field() + " value missing", false
			case "min":
				return vErr.Field() + " value is less than " + vErr.Param(), false
			case "email":
				return "Invalid email address", false
			default:
				return http.StatusText(http.StatusBadRequest), false
			}
		}
	}

	slog.Error("validation failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
	return http.StatusText(http.StatusBadRequest), false
}
