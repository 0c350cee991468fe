package api

import (
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"hotel-ops-backend/internal/store"
	"hotel-ops-backend/internal/visit"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	visits  *visit.Service
	webpush *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, visits *visit.Service, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:   s,
		visits:  visits,
		webpush: webpushOptions,
	}
}

// fail maps a state-machine failure result onto an HTTP response.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, visit.ErrReservationNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, visit.ErrReasonTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, visit.ErrNotActive),
		errors.Is(err, visit.ErrNotPaused),
		errors.Is(err, visit.ErrDefinitivePause),
		errors.Is(err, visit.ErrAlreadyCancelled),
		errors.Is(err, visit.ErrStaleRecalculation),
		errors.Is(err, store.ErrRoomUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
