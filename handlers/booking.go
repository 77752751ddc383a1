// File: handlers/booking.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"slotify/config"
	"slotify/models"
	"slotify/services/booking"
	"slotify/utils"
)

// Coordinator is wired in main before routes are registered.
var Coordinator booking.CoordinatorService

// CreateBooking handles POST /v1/public/bookings. The raw body is captured
// before decoding because its canonical hash is the idempotency fingerprint.
func CreateBooking(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		utils.JSONProblem(c, http.StatusBadRequest, booking.CodeInvalidRequest, "could not read request body")
		return
	}

	var in models.BookingInput
	if err := json.Unmarshal(raw, &in); err != nil {
		utils.JSONProblem(c, http.StatusBadRequest, booking.CodeInvalidRequest, "request body is not valid JSON")
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := Coordinator.CreateBooking(ctx, booking.CreateRequest{
		Input:          in,
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
		RawBody:        raw,
	})
	if err != nil {
		renderBookingError(c, err)
		return
	}

	if res.Replayed {
		c.Header("Idempotency-Replayed", "true")
	}
	contentType := "application/json"
	if res.StatusCode >= http.StatusBadRequest {
		contentType = "application/problem+json"
	}
	c.Data(res.StatusCode, contentType, res.Body)
}

// CancelBooking handles POST /v1/bookings/:id/cancel.
func CancelBooking(c *gin.Context) {
	tenantID, bookingID, ok := tenantAndBookingID(c)
	if !ok {
		return
	}

	var in models.CancelInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			utils.JSONProblem(c, http.StatusBadRequest, booking.CodeInvalidRequest, "request body is not valid JSON")
			return
		}
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	bk, err := Coordinator.CancelBooking(ctx, tenantID, bookingID, in)
	if err != nil {
		renderBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, bk)
}

// GetBooking handles GET /v1/bookings/:id.
func GetBooking(c *gin.Context) {
	tenantID, bookingID, ok := tenantAndBookingID(c)
	if !ok {
		return
	}

	resp, err := Coordinator.GetBooking(c.Request.Context(), tenantID, bookingID)
	if err != nil {
		renderBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// requestContext bounds mutating requests so an abandoned client cannot hold
// row locks past the deadline; the transaction aborts with it.
func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	timeout := time.Duration(config.AppConfig.RequestTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return context.WithTimeout(c.Request.Context(), timeout)
}

func tenantAndBookingID(c *gin.Context) (tenantID, bookingID int64, ok bool) {
	bookingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || bookingID <= 0 {
		utils.JSONProblem(c, http.StatusBadRequest, booking.CodeInvalidRequest, "booking id must be a positive integer")
		return 0, 0, false
	}
	tenantID = tenantFromContext(c)
	if tenantID <= 0 {
		tenantID, err = strconv.ParseInt(c.Query("tenant"), 10, 64)
		if err != nil || tenantID <= 0 {
			utils.JSONProblem(c, http.StatusBadRequest, booking.CodeInvalidRequest, "tenant query parameter is required")
			return 0, 0, false
		}
	}
	return tenantID, bookingID, true
}

// tenantFromContext reads the tenant the auth middleware resolved, if any.
func tenantFromContext(c *gin.Context) int64 {
	if v, exists := c.Get("tenant_id"); exists {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}

// renderBookingError maps coded business errors to problem responses and
// everything else to an opaque internal problem.
func renderBookingError(c *gin.Context, err error) {
	var coded *booking.Error
	if errors.As(err, &coded) {
		details := make([]utils.ProblemDetail, 0, len(coded.Details))
		for field, reason := range coded.Details {
			details = append(details, utils.ProblemDetail{Field: field, Reason: reason})
		}
		sort.Slice(details, func(i, j int) bool { return details[i].Field < details[j].Field })
		utils.JSONProblem(c, booking.StatusForCode(coded.Code), coded.Code, coded.Message, details...)
		return
	}
	utils.GetLogger().Error("booking request failed", zap.String("path", c.FullPath()), zap.Error(err))
	utils.JSONProblem(c, http.StatusInternalServerError, booking.CodeInternal,
		"An unexpected error occurred. Please try again later.")
}
