package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"hotel-ops-backend/internal/model"
)

type bookRequest struct {
	StartTime *time.Time `json:"start_time"`
	Hours     int        `json:"hours" binding:"min=0"`
	Minutes   int        `json:"minutes" binding:"min=0"`
}

// BookRoom handles POST /api/rooms/{room_id}/book.
func (h *Handler) BookRoom(c *gin.Context) {
	roomID, err := strconv.ParseInt(c.Param("room_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID"})
		return
	}

	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Hours == 0 && req.Minutes == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "booked duration must be positive"})
		return
	}

	start := time.Now().UTC()
	if req.StartTime != nil {
		start = *req.StartTime
	}

	reservation, err := h.visits.Book(c.Request.Context(), roomID, start, req.Hours, req.Minutes)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, reservation)
}

// FinalizeRoom handles POST /api/rooms/{room_id}/finalize.
func (h *Handler) FinalizeRoom(c *gin.Context) {
	roomID, err := strconv.ParseInt(c.Param("room_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID"})
		return
	}

	if err := h.visits.Finalize(c.Request.Context(), roomID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// roomStatusResponse is the flattened structure for the room listing.
type roomStatusResponse struct {
	model.Room
	OccupancyCancelled bool `json:"occupancyCancelled"`
}

// GetRooms handles the GET /api/rooms request.
func GetRooms(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rooms []model.Room
		if err := db.Preload("Category").Find(&rooms).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve rooms"})
			return
		}

		occupancyIDs := make([]int64, 0, len(rooms))
		for _, r := range rooms {
			if r.OccupancyID != nil {
				occupancyIDs = append(occupancyIDs, *r.OccupancyID)
			}
		}

		cancelled := make(map[int64]bool, len(occupancyIDs))
		if len(occupancyIDs) > 0 {
			var occupancies []model.Occupancy
			if err := db.Find(&occupancies, occupancyIDs).Error; err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve occupancies"})
				return
			}
			for _, o := range occupancies {
				cancelled[o.ID] = o.Cancelled()
			}
		}

		responses := make([]roomStatusResponse, 0, len(rooms))
		for _, r := range rooms {
			resp := roomStatusResponse{Room: r}
			if r.OccupancyID != nil {
				resp.OccupancyCancelled = cancelled[*r.OccupancyID]
			}
			responses = append(responses, resp)
		}
		c.JSON(http.StatusOK, responses)
	}
}
