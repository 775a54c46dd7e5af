package booking

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"sore/internal/auth"
	"sore/internal/dispute"
	"sore/internal/kol"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// writeError maps service errors onto HTTP statuses shared by every
// booking endpoint.
func writeError(c *gin.Context, err error) {
	var vErr *ValidationError

	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Reason})
	case errors.Is(err, ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
	case errors.Is(err, kol.ErrKOLNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "KOL not found"})
	case errors.Is(err, dispute.ErrDisputeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Dispute not found"})
	case errors.Is(err, ErrNotAllowed):
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not allowed to perform this action"})
	case errors.Is(err, ErrInsufficientFunds):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "Insufficient wallet balance"})
	case errors.Is(err, ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "Invalid booking status transition"})
	case errors.Is(err, ErrAlreadyDisputed):
		c.JSON(http.StatusConflict, gin.H{"error": "Booking already disputed"})
	case errors.Is(err, ErrSessionNotEnded):
		c.JSON(http.StatusConflict, gin.H{"error": "Session has not ended yet"})
	case errors.Is(err, dispute.ErrAlreadyResolved):
		c.JSON(http.StatusConflict, gin.H{"error": "Dispute already resolved"})
	case errors.Is(err, ErrLedgerTimeout):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Ledger unavailable, please retry"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

// CreateBooking godoc
// @Summary      Request a consultation booking
// @Description  Creates a pending booking and locks the full price in escrow. Fails without a booking if the wallet balance is too low.
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateBookingRequest  true  "Booking request"
// @Success      201      {object}  Booking
// @Failure      400      {object}  gin.H
// @Failure      402      {object}  gin.H
// @Failure      404      {object}  gin.H
// @Router       /bookings [post]
func (h *Handler) CreateBooking(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	b, err := h.service.CreateBooking(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, b)
}

// UpdateStatus godoc
// @Summary      Transition a booking
// @Description  Accept, reject, cancel or complete a booking. Settles escrow according to the transition.
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        bookingID  path      int                  true  "Booking ID"
// @Param        request    body      UpdateStatusRequest  true  "Target status"
// @Success      200        {object}  Booking
// @Failure      403        {object}  gin.H
// @Failure      404        {object}  gin.H
// @Failure      409        {object}  gin.H
// @Router       /bookings/{bookingID}/status [put]
func (h *Handler) UpdateStatus(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	bookingID, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	b, err := h.service.UpdateStatus(c.Request.Context(), bookingID, userID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

// GetBooking godoc
// @Summary      Get a booking
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  Booking
// @Failure      404        {object}  gin.H
// @Router       /bookings/{bookingID} [get]
func (h *Handler) GetBooking(c *gin.Context) {
	bookingID, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	b, err := h.service.GetBooking(c.Request.Context(), bookingID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

// ListMyBookings godoc
// @Summary      List own bookings as buyer
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  Booking
// @Router       /bookings [get]
func (h *Handler) ListMyBookings(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	bookings, err := h.service.ListForBuyer(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// ListKOLBookings godoc
// @Summary      List bookings for a KOL
// @Description  Only the KOL owner or an admin may list a KOL's bookings.
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        kolID  path     int  true  "KOL ID"
// @Success      200    {array}  Booking
// @Failure      403    {object} gin.H
// @Failure      404    {object} gin.H
// @Router       /kols/{kolID}/bookings [get]
func (h *Handler) ListKOLBookings(c *gin.Context) {
	h.listKOLBookings(c, nil)
}

// ListKOLPendingBookings godoc
// @Summary      List pending booking requests for a KOL
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        kolID  path     int  true  "KOL ID"
// @Success      200    {array}  Booking
// @Failure      403    {object} gin.H
// @Router       /kols/{kolID}/bookings/pending [get]
func (h *Handler) ListKOLPendingBookings(c *gin.Context) {
	pending := StatusPending
	h.listKOLBookings(c, &pending)
}

func (h *Handler) listKOLBookings(c *gin.Context, status *Status) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	role, _ := auth.GetUserRole(c)

	kolID, err := strconv.Atoi(c.Param("kolID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid KOL ID"})
		return
	}

	bookings, err := h.service.ListForKOL(c.Request.Context(), kolID, userID, role, status)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// ReportDispute godoc
// @Summary      Dispute an accepted booking
// @Description  Freezes the booking; escrowed funds stay held until an admin resolves it.
// @Tags         disputes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        bookingID  path      int             true  "Booking ID"
// @Param        request    body      DisputeRequest  true  "Dispute reason"
// @Success      201        {object}  dispute.Dispute
// @Failure      403        {object}  gin.H
// @Failure      409        {object}  gin.H
// @Router       /bookings/{bookingID}/dispute [post]
func (h *Handler) ReportDispute(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	bookingID, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	var req DisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	d, err := h.service.ReportDispute(c.Request.Context(), bookingID, userID, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, d)
}

// ListOpenDisputes godoc
// @Summary      List open disputes
// @Tags         disputes
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  dispute.Dispute
// @Router       /admin/disputes [get]
func (h *Handler) ListOpenDisputes(c *gin.Context) {
	disputes, err := h.service.ListOpenDisputes(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, disputes)
}

// ResolveDispute godoc
// @Summary      Resolve a dispute
// @Description  Completed pays the KOL minus the platform fee; cancelled refunds the buyer in full.
// @Tags         disputes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        disputeID  path      int                     true  "Dispute ID"
// @Param        request    body      dispute.ResolveRequest  true  "Resolution"
// @Success      200        {object}  Booking
// @Failure      404        {object}  gin.H
// @Failure      409        {object}  gin.H
// @Router       /admin/disputes/{disputeID}/resolve [put]
func (h *Handler) ResolveDispute(c *gin.Context) {
	adminID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	disputeID, err := strconv.Atoi(c.Param("disputeID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dispute ID"})
		return
	}

	var req dispute.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	b, err := h.service.ResolveDispute(c.Request.Context(), disputeID, adminID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

// Analytics godoc
// @Summary      Booking analytics
// @Description  Aggregates bookings created in the last `days` days (default 30).
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        days  query     int  false  "Lookback window in days"
// @Success      200   {object}  Stats
// @Router       /admin/analytics/bookings [get]
func (h *Handler) Analytics(c *gin.Context) {
	days := 30
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid days parameter"})
			return
		}
		days = parsed
	}

	since := time.Now().AddDate(0, 0, -days)
	stats, err := h.service.Analytics(c.Request.Context(), since)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
