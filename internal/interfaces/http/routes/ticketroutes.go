package routes

import (
	"github.com/gin-gonic/gin"

	tickethandlers "github.com/infusio/infusio/internal/interfaces/http/handlers/ticket"
	"github.com/infusio/infusio/internal/interfaces/http/middleware"
)

type TicketRouteConfig struct {
	TicketHandler      *tickethandlers.TicketHandler
	IdentityMiddleware *middleware.UserIdentityMiddleware
}

// SetupTicketRoutes mounts the dashboard's support routes under /api/suporte.
func SetupTicketRoutes(engine *gin.Engine, config *TicketRouteConfig) {
	suporte := engine.Group("/api/suporte")
	suporte.Use(config.IdentityMiddleware.RequireUser())
	{
		suporte.GET("/stream", config.TicketHandler.Stream)
		suporte.GET("/meus", config.TicketHandler.ListMine)

		suporte.POST("/tickets", config.TicketHandler.CreateTicket)

		suporte.POST("/tickets/:id/mensagens", config.TicketHandler.AddMessage)
		suporte.POST("/tickets/:id/resolver", config.TicketHandler.ResolveTicket)
		suporte.GET("/tickets/:id", config.TicketHandler.GetTicket)
	}
}
