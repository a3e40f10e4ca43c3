package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campuspulse/attendance-api/internal/middleware"
	"github.com/campuspulse/attendance-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v, err := strconv.Atoi(c.DefaultQuery(key, strconv.Itoa(fallback))); err == nil {
		return v
	}
	return fallback
}
