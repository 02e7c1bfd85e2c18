package routes

import (
	"github.com/gin-gonic/gin"

	config "github.com/rider9600/felicity-event-management-sub001/config"
	controllers "github.com/rider9600/felicity-event-management-sub001/controllers"
	middleware "github.com/rider9600/felicity-event-management-sub001/middleware"
	models "github.com/rider9600/felicity-event-management-sub001/models"
	services "github.com/rider9600/felicity-event-management-sub001/services"
	"github.com/rider9600/felicity-event-management-sub001/store"
)

func SetupRoutes(r *gin.Engine, cfg *config.Config, st store.Store, svc *services.Service, revoker middleware.Revoker) {
	// public
	r.POST("/auth/register", controllers.Register(st))
	r.POST("/auth/login", controllers.Login(cfg, st))

	r.GET("/events", controllers.ListEvents(svc))
	r.GET("/events/:id", controllers.GetEvent(svc))

	// protected
	auth := middleware.AuthMiddleware(cfg, revoker)
	organizer := middleware.RequireRole(models.RoleOrganizer, models.RoleAdmin)

	authed := r.Group("/auth")
	authed.Use(auth)
	{
		authed.POST("/logout", controllers.Logout(revoker))
		authed.GET("/me", controllers.Me(st))
	}

	events := r.Group("/events")
	events.Use(auth)
	{
		events.POST("", organizer, controllers.CreateEvent(svc))
		events.PATCH("/:id", organizer, controllers.UpdateEvent(svc))
		events.POST("/:id/status", organizer, controllers.TransitionEvent(svc))
		events.POST("/:id/images", organizer, controllers.UploadEventPoster(svc))
		events.DELETE("/:id", organizer, controllers.DeleteEvent(svc))

		events.POST("/:id/register", controllers.RegisterForEvent(svc))
		events.POST("/:id/purchase", controllers.PurchaseItem(svc))
		events.POST("/:id/teams", controllers.CreateTeam(svc))
		events.POST("/:id/teams/join", controllers.JoinTeam(svc))

		events.GET("/:id/tickets", organizer, controllers.EventTickets(svc))
		events.GET("/:id/tickets/export", organizer, controllers.ExportEventTickets(svc))
	}

	tickets := r.Group("/tickets")
	tickets.Use(auth)
	{
		tickets.GET("", controllers.MyTickets(svc))
		tickets.GET("/:id", controllers.GetTicket(svc))
		tickets.POST("/:id/accept", organizer, controllers.AcceptRegistration(svc))
		tickets.POST("/:id/reject", organizer, controllers.RejectRegistration(svc))
		tickets.POST("/:id/attend", organizer, controllers.MarkAttendance(svc))
		tickets.POST("/:id/payment/approve", organizer, controllers.ApprovePayment(svc))
		tickets.POST("/:id/payment/reject", organizer, controllers.RejectPayment(svc))
	}

	teams := r.Group("/teams")
	teams.Use(auth)
	{
		teams.GET("/:id", controllers.GetTeam(svc))
		teams.POST("/:id/respond", controllers.RespondToInvite(svc))
		teams.POST("/:id/reconcile", organizer, controllers.ReconcileTeam(svc))
		teams.DELETE("/:id", controllers.DeleteTeam(svc))
	}
}
