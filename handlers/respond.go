package handlers

import (
	"github.com/Ubiquity89/QuikKart/internal/auth"

	"github.com/gin-gonic/gin"
)

// Every endpoint answers in the same envelope so clients have one error shape
// to deal with.

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"message": message,
		"error":   true,
		"success": false,
	})
}

func respondData(c *gin.Context, message string, data interface{}) {
	c.JSON(200, gin.H{
		"message": message,
		"data":    data,
		"error":   false,
		"success": true,
	})
}

func claimsFromRequest(c *gin.Context) (auth.Claims, bool) {
	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	return claims, ok
}
