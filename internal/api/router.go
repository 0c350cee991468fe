package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"hotel-ops-backend/config"
	"hotel-ops-backend/internal/mw"
	"hotel-ops-backend/internal/store"
	"hotel-ops-backend/internal/visit"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, visits *visit.Service, webpushOptions *webpush.Options, serverCfg *config.ServerConfig) *gin.Engine {
	r := gin.Default()

	db := s.DB()
	handler := NewHandler(s, visits, webpushOptions)

	rateLimit := 10.0
	if serverCfg != nil && serverCfg.RateLimitPerSec > 0 {
		rateLimit = serverCfg.RateLimitPerSec
	}
	rateLimiter := mw.RateLimiter(rate.Limit(rateLimit), int(rateLimit)/2+1)

	// Room status tolerates a short staleness window; quotes and mutations
	// bypass the cache.
	cacheTTL := 30 * time.Second
	if serverCfg != nil && serverCfg.CacheTTLSeconds > 0 {
		cacheTTL = time.Duration(serverCfg.CacheTTLSeconds) * time.Second
	}
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/rooms", caching, GetRooms(db))
		api.POST("/rooms/:room_id/book", handler.BookRoom)
		api.POST("/rooms/:room_id/finalize", handler.FinalizeRoom)

		api.POST("/reservations/:id/pause", handler.PauseReservation)
		api.POST("/reservations/:id/resume", handler.ResumeReservation)
		api.POST("/reservations/:id/recalculate", handler.RecalculateReservation)
		api.POST("/reservations/:id/extend", handler.ExtendReservation)
		api.POST("/reservations/:id/cancel", handler.CancelReservation)
		api.POST("/reservations/:id/promotion", handler.AttachPromotion)
		api.DELETE("/reservations/:id/promotion", handler.DetachPromotion)
		api.GET("/reservations/:id/quote", handler.QuoteReservation)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
