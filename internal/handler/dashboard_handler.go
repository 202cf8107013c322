package handler

import (
	"net/http"

	"messmate/internal/dashboard"

	"github.com/gin-gonic/gin"
)

// Dashboard serves the fixed dataset of role. Role checks happen in the
// router group.
func Dashboard(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ds, ok := dashboard.ForRole(role)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown dashboard"})
			return
		}
		c.JSON(http.StatusOK, ds)
	}
}
