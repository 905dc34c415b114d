package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-ip-ledger/internal/api/middleware"
	"github.com/feral-file/ff-ip-ledger/internal/ratelimit"
)

// SetupRoutes configures all REST API routes. A nil limiter disables
// rate limiting.
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig, limiter ratelimit.Limiter) {
	// Health check endpoint (no auth, no version prefix, no limit)
	router.GET("/health", handler.HealthCheck)

	auth := middleware.Auth(authCfg)

	// Anonymous requests are limited by client IP, authenticated ones by
	// actor, so the limit middleware runs after Auth on mutation routes
	limited := func(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
		if limiter == nil {
			return handlers
		}
		limit := middleware.RateLimit(limiter)
		chain := make([]gin.HandlerFunc, 0, len(handlers)+1)
		chain = append(chain, handlers[:len(handlers)-1]...)
		chain = append(chain, limit, handlers[len(handlers)-1])
		return chain
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Ownership queries (public read access)
		v1.GET("/assets/:id/owners", limited(handler.GetOwners)...)
		v1.GET("/assets/:id/ownership/history", limited(handler.GetHistory)...)
		v1.GET("/assets/:id/ownership/summary", limited(handler.GetSummary)...)

		// Split dry-run validation (open, touches nothing)
		v1.POST("/ownership/validate", limited(handler.ValidateSplit)...)

		// Ownership mutations (requires authentication)
		v1.POST("/assets/:id/ownership", limited(auth, handler.SetOwnership)...)
		v1.POST("/assets/:id/ownership/transfer", limited(auth, handler.TransferOwnership)...)
		v1.PATCH("/ownership/:id/provenance", limited(auth, handler.UpdateProvenance)...)

		// Dispute lifecycle (requires authentication; resolution and the
		// queue are additionally admin-only at the workflow layer)
		v1.POST("/ownership/:id/dispute", limited(auth, handler.FlagDispute)...)
		v1.POST("/ownership/:id/dispute/resolve", limited(auth, handler.ResolveDispute)...)
		v1.GET("/disputes", limited(auth, handler.ListDisputes)...)
	}
}
