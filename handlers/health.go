// File: handlers/health.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"slotify/utils"
)

// Health handles GET /health and /health/database. 503 when the database is
// down; degraded redis only flags, since the engine stays correct without its
// caches.
func Health(c *gin.Context) {
	status := utils.GetHealthStatus()
	code := http.StatusOK
	if !status.Database {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
