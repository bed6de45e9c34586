package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/MarioJames/super-lotto/internal/config"
	"github.com/MarioJames/super-lotto/internal/handlers"
	"github.com/MarioJames/super-lotto/internal/middleware"
	"github.com/MarioJames/super-lotto/pkg/jwt"
)

// HandlerDependencies holds all the handler instances needed by the router
type HandlerDependencies struct {
	AuthHandler     *handlers.AuthHandler
	ActivityHandler *handlers.ActivityHandler
	DrawHandler     *handlers.DrawHandler
	// Tokens is required when cfg.Auth.Enabled is true.
	Tokens *jwt.Manager
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, deps HandlerDependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(cfg.Server.AllowedOrigins))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware())

	api := router.Group("/api/v1")

	// Public routes
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "storage": cfg.Storage.Driver})
	})
	api.POST("/auth/login", deps.AuthHandler.Login)
	api.GET("/templates/participants", deps.ActivityHandler.ParticipantTemplate)

	// Everything else; writes require a token when auth is enabled.
	protected := api.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.MutationsOnly(middleware.JWTAuthMiddleware(deps.Tokens)))
	}

	activities := protected.Group("/activities")
	{
		activities.GET("", deps.ActivityHandler.ListActivities)
		activities.POST("", deps.ActivityHandler.CreateActivity)
		activities.GET("/:id", deps.ActivityHandler.GetActivity)
		activities.PUT("/:id", deps.ActivityHandler.UpdateActivity)
		activities.DELETE("/:id", deps.ActivityHandler.DeleteActivity)
		activities.GET("/:id/participants", deps.ActivityHandler.ListParticipants)
		activities.POST("/:id/participants", deps.ActivityHandler.AddParticipants)
		activities.POST("/:id/participants/import", deps.ActivityHandler.ImportParticipants)
		activities.POST("/:id/rounds", deps.ActivityHandler.ConfigureRound)
		activities.PUT("/:id/rounds/order", deps.ActivityHandler.ReorderRounds)
		activities.GET("/:id/winners", deps.ActivityHandler.GetActivityWinners)
	}

	participants := protected.Group("/participants")
	{
		participants.PUT("/:id", deps.ActivityHandler.UpdateParticipant)
		participants.DELETE("/:id", deps.ActivityHandler.DeleteParticipant)
	}

	rounds := protected.Group("/rounds")
	{
		rounds.GET("/:id", deps.ActivityHandler.GetRound)
		rounds.PUT("/:id", deps.ActivityHandler.UpdateRound)
		rounds.DELETE("/:id", deps.ActivityHandler.DeleteRound)
	}

	lottery := protected.Group("/lottery")
	{
		lottery.GET("/available/:activityId", deps.DrawHandler.ListAvailable)
		lottery.POST("/draw", deps.DrawHandler.ExecuteDraw)
		lottery.GET("/results/:roundId", deps.DrawHandler.GetDrawResult)
		lottery.DELETE("/results/:roundId", deps.DrawHandler.Redraw)
	}

	return router
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			cfg.AllowCredentials = false
			return cors.New(cfg)
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
		return cors.New(cfg)
	}
	cfg.AllowOrigins = origins
	return cors.New(cfg)
}
