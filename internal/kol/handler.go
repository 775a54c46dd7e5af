package kol

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sore/internal/auth"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// ListKOLs godoc
// @Summary      List available KOLs
// @Tags         kols
// @Produce      json
// @Success      200  {array}   KOL
// @Failure      500  {object}  gin.H
// @Router       /kols [get]
func (h *Handler) ListKOLs(c *gin.Context) {
	kols, err := h.service.ListAvailable(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch kols"})
		return
	}
	c.JSON(http.StatusOK, kols)
}

// GetKOL godoc
// @Summary      Get KOL profile
// @Tags         kols
// @Produce      json
// @Param        kolID  path      int  true  "KOL ID"
// @Success      200    {object}  KOL
// @Failure      404    {object}  gin.H
// @Router       /kols/{kolID} [get]
func (h *Handler) GetKOL(c *gin.Context) {
	kolID, err := strconv.Atoi(c.Param("kolID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid KOL ID"})
		return
	}

	k, err := h.service.GetKOL(c.Request.Context(), kolID)
	if err != nil {
		if errors.Is(err, ErrKOLNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "KOL not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch kol"})
		return
	}

	c.JSON(http.StatusOK, k)
}

// Leaderboard godoc
// @Summary      Reputation leaderboard
// @Description  Top KOLs by externally supplied reputation score. The response says whether it was served from cache or, degraded, straight from the database.
// @Tags         kols
// @Produce      json
// @Success      200  {object}  LeaderboardResult
// @Failure      500  {object}  gin.H
// @Router       /kols/leaderboard [get]
func (h *Handler) Leaderboard(c *gin.Context) {
	result, err := h.service.Leaderboard(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch leaderboard"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// BecomeKOL godoc
// @Summary      Create a KOL profile
// @Tags         kols
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Success      201  {object}  KOL
// @Failure      400  {object}  gin.H
// @Failure      409  {object}  gin.H
// @Router       /kols [post]
func (h *Handler) BecomeKOL(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req CreateKOLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	k, err := h.service.BecomeKOL(c.Request.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidPolicy):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, ErrAlreadyKOL):
			c.JSON(http.StatusConflict, gin.H{"error": "You already have a KOL profile"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create kol profile"})
		}
		return
	}

	c.JSON(http.StatusCreated, k)
}

// UpdatePricing godoc
// @Summary      Update pricing policy
// @Description  Applies only to bookings created after the change.
// @Tags         kols
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        kolID  path      int  true  "KOL ID"
// @Success      200    {object}  KOL
// @Failure      400    {object}  gin.H
// @Failure      404    {object}  gin.H
// @Router       /kols/{kolID}/pricing [put]
func (h *Handler) UpdatePricing(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	kolID, err := strconv.Atoi(c.Param("kolID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid KOL ID"})
		return
	}

	var req PricingUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	k, err := h.service.SetPolicy(c.Request.Context(), kolID, userID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrKOLNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "KOL not found"})
		case errors.Is(err, ErrInvalidPolicy):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update pricing"})
		}
		return
	}

	c.JSON(http.StatusOK, k)
}

// UpdateReputation godoc
// @Summary      Ingest external reputation score
// @Description  Accepts an opaque score from the external reputation feed. Admin only.
// @Tags         kols
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        kolID  path      int  true  "KOL ID"
// @Success      200    {object}  KOL
// @Failure      404    {object}  gin.H
// @Router       /admin/kols/{kolID}/reputation [put]
func (h *Handler) UpdateReputation(c *gin.Context) {
	kolID, err := strconv.Atoi(c.Param("kolID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid KOL ID"})
		return
	}

	var req ReputationUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	k, err := h.service.SetReputation(c.Request.Context(), kolID, req.Score)
	if err != nil {
		if errors.Is(err, ErrKOLNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "KOL not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update reputation"})
		return
	}

	c.JSON(http.StatusOK, k)
}
