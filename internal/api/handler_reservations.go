package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func reservationID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid reservation ID"})
		return 0, false
	}
	return id, true
}

// PauseReservation handles POST /api/reservations/{id}/pause.
func (h *Handler) PauseReservation(c *gin.Context) {
	id, ok := reservationID(c)
	if !ok {
		return
	}
	if err := h.visits.Pause(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ResumeReservation handles POST /api/reservations/{id}/resume.
func (h *Handler) ResumeReservation(c *gin.Context) {
	id, ok := reservationID(c)
	if !ok {
		return
	}
	if err := h.visits.Resume(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RecalculateReservation handles POST /api/reservations/{id}/recalculate.
func (h *Handler) RecalculateReservation(c *gin.Context) {
	id, ok := reservationID(c)
	if !ok {
		return
	}
	if err := h.visits.Recalculate(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type extendRequest struct {
	Hours   int `json:"hours" binding:"min=0"`
	Minutes int `json:"minutes" binding:"min=0"`
}

// ExtendReservation handles POST /api/reservations/{id}/extend.
func (h *Handler) ExtendReservation(c *gin.Context) {
	id, ok := reservationID(c)
	if !ok {
		return
	}

	var req extendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Hours == 0 && req.Minutes == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "extension must be positive"})
		return
	}

	if err := h.visits.Extend(c.Request.Context(), id, req.Hours, req.Minutes); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// CancelReservation handles POST /api/reservations/{id}/cancel.
func (h *Handler) CancelReservation(c *gin.Context) {
	id, ok := reservationID(c)
	if !ok {
		return
	}

	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.visits.Cancel(c.Request.Context(), id, req.Reason); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type attachPromotionRequest struct {
	PromotionID int64 `json:"promotion_id" binding:"required"`
}

// AttachPromotion handles POST /api/reservations/{id}/promotion.
func (h *Handler) AttachPromotion(c *gin.Context) {
	id, ok := reservationID(c)
	if !ok {
		return
	}

	var req attachPromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.visits.AttachPromotion(c.Request.Context(), id, req.PromotionID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DetachPromotion handles DELETE /api/reservations/{id}/promotion.
func (h *Handler) DetachPromotion(c *gin.Context) {
	id, ok := reservationID(c)
	if !ok {
		return
	}
	if err := h.visits.DetachPromotion(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// QuoteReservation handles GET /api/reservations/{id}/quote.
func (h *Handler) QuoteReservation(c *gin.Context) {
	id, ok := reservationID(c)
	if !ok {
		return
	}

	quote, err := h.visits.Quote(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}
