package handler

import (
	"deal_room/internal/config"
	"deal_room/internal/middleware"
	"deal_room/pkg/logger"

	"github.com/gin-gonic/gin"
)

func SetupRouter(
	handlers *Handlers,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler(log))

	router.GET("/health", handlers.Health.Check)

	v1 := router.Group("/api/v1")
	v1.Use(authMiddleware.RequireAuth(), rateLimitMiddleware.Limit())
	{
		dealRooms := v1.Group("/deal-rooms")
		{
			dealRooms.POST("", handlers.DealRoom.Create)
			dealRooms.GET("", handlers.DealRoom.List)
			dealRooms.GET("/:id", handlers.DealRoom.Get)
			dealRooms.PATCH("/:id", handlers.DealRoom.Rename)
			dealRooms.POST("/:id/archive", handlers.DealRoom.Archive)
			dealRooms.POST("/:id/members", handlers.DealRoom.AddMember)
			dealRooms.POST("/:id/invitations", handlers.Invitation.Invite)
		}

		messages := v1.Group("/deal-rooms/:id/messages")
		{
			messages.POST("", handlers.Message.Send)
			messages.GET("/search", handlers.Message.Search)
			messages.PUT("/:messageId", handlers.Message.Edit)
			messages.POST("/:messageId/pin", handlers.Message.TogglePin)
			messages.PUT("/:messageId/reaction", handlers.Message.React)
			messages.GET("/:messageId/analysis", handlers.Message.Analysis)
		}

		notes := v1.Group("/deal-rooms/:id/notes")
		{
			notes.POST("", handlers.Note.Add)
			notes.PATCH("/:noteId", handlers.Note.Update)
		}

		calls := v1.Group("/deal-rooms/:id/calls")
		{
			calls.POST("", handlers.Call.Start)
			calls.GET("", handlers.Call.Get)
			calls.DELETE("", handlers.Call.End)
			calls.POST("/token", handlers.Call.Token)
		}

		summaries := v1.Group("/deal-rooms/:id/summaries")
		{
			summaries.POST("/daily", handlers.Summary.Daily)
			summaries.POST("/weekly", handlers.Summary.Weekly)
		}

		v1.POST("/invitations/accept", handlers.Invitation.Accept)
	}

	// Браузер не может передать заголовок Authorization при открытии WebSocket
	router.GET("/ws/deal-rooms/:id", authMiddleware.RequireAuthQuery(), handlers.WebSocket.StreamRoom)

	return router
}
