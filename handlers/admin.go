// File: handlers/admin.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	catalogRepo "slotify/database/repository/catalog"
	"slotify/services/booking"
	"slotify/services/schedule"
	"slotify/utils"
)

// Compiler is wired in main before routes are registered.
var Compiler schedule.CompilerService

// RecompileSchedule handles POST /v1/admin/schedule/:resourceID/recompile.
// Returns the reconciliation report, conflicts included, so operators can see
// which booked slots blocked a schedule change.
func RecompileSchedule(c *gin.Context) {
	tenantID := tenantFromContext(c)
	if tenantID <= 0 {
		utils.JSONProblem(c, http.StatusUnauthorized, "unauthorized", "tenant authentication required")
		return
	}
	resourceID, err := strconv.ParseInt(c.Param("resourceID"), 10, 64)
	if err != nil || resourceID <= 0 {
		utils.JSONProblem(c, http.StatusBadRequest, booking.CodeInvalidRequest, "resource id must be a positive integer")
		return
	}

	var in struct {
		From time.Time `json:"from"`
		To   time.Time `json:"to"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			utils.JSONProblem(c, http.StatusBadRequest, booking.CodeInvalidRequest, "request body is not valid JSON")
			return
		}
	}
	if in.From.IsZero() {
		in.From = time.Now().UTC()
	}
	if in.To.IsZero() {
		in.To = in.From.AddDate(0, 0, 30)
	}
	if !in.From.Before(in.To) {
		utils.JSONProblem(c, http.StatusBadRequest, booking.CodeValidationFailed, "from must be before to")
		return
	}

	report, err := Compiler.CompileResource(c.Request.Context(), tenantID, resourceID, in.From, in.To)
	if err != nil {
		if errors.Is(err, catalogRepo.ErrNotFound) {
			utils.JSONProblem(c, http.StatusNotFound, booking.CodeValidationFailed, "resource not found")
			return
		}
		renderBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
