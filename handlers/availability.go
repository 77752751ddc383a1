// File: handlers/availability.go
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"slotify/services/availability"
	"slotify/services/booking"
	"slotify/utils"
)

// Availability is wired in main before routes are registered.
var Availability availability.Service

const maxAvailabilityWindow = 31 * 24 * time.Hour

// ListAvailability handles GET /v1/availability. The response is advisory:
// a listed start can still sell out before the booking call lands.
func ListAvailability(c *gin.Context) {
	tenantID, err := strconv.ParseInt(c.Query("tenant"), 10, 64)
	if err != nil || tenantID <= 0 {
		utils.JSONProblem(c, http.StatusBadRequest, booking.CodeInvalidRequest, "tenant query parameter is required")
		return
	}
	serviceID, err := strconv.ParseInt(c.Query("service"), 10, 64)
	if err != nil || serviceID <= 0 {
		utils.JSONProblem(c, http.StatusBadRequest, booking.CodeInvalidRequest, "service query parameter is required")
		return
	}

	now := time.Now().UTC()
	from := now
	to := now.Add(7 * 24 * time.Hour)
	if v := c.Query("from"); v != "" {
		if from, err = time.Parse(time.RFC3339, v); err != nil {
			utils.JSONProblem(c, http.StatusBadRequest, booking.CodeInvalidRequest, "from must be RFC 3339")
			return
		}
	}
	if v := c.Query("to"); v != "" {
		if to, err = time.Parse(time.RFC3339, v); err != nil {
			utils.JSONProblem(c, http.StatusBadRequest, booking.CodeInvalidRequest, "to must be RFC 3339")
			return
		}
	}
	if !from.Before(to) {
		utils.JSONProblem(c, http.StatusBadRequest, booking.CodeValidationFailed, "from must be before to")
		return
	}
	if to.Sub(from) > maxAvailabilityWindow {
		utils.JSONProblem(c, http.StatusBadRequest, booking.CodeValidationFailed, "window must not exceed 31 days")
		return
	}

	starts, err := Availability.ListStarts(c.Request.Context(), tenantID, serviceID, from.UTC(), to.UTC())
	if err != nil {
		renderBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tenant_id":  tenantID,
		"service_id": serviceID,
		"from":       from.UTC(),
		"to":         to.UTC(),
		"starts":     starts,
	})
}
