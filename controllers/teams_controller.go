package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/rider9600/felicity-event-management-sub001/models"
	services "github.com/rider9600/felicity-event-management-sub001/services"
)

// ---------------- CREATE ----------------
func CreateTeam(svc *services.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFromContext(c)
		if !ok {
			return
		}

		eventID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
			return
		}

		var input struct {
			TeamName string `json:"team_name" binding:"required"`
			TeamSize int    `json:"team_size" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		team, err := svc.CreateTeam(ctx, caller, eventID, input.TeamName, input.TeamSize)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusCreated, team)
	}
}

// ---------------- JOIN ----------------
func JoinTeam(svc *services.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFromContext(c)
		if !ok {
			return
		}

		eventID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
			return
		}

		var input struct {
			InviteCode string `json:"invite_code" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		team, err := svc.JoinByCode(ctx, caller, eventID, input.InviteCode)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, team)
	}
}

// ---------------- RESPOND ----------------
func RespondToInvite(svc *services.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFromContext(c)
		if !ok {
			return
		}

		teamID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid team id"})
			return
		}

		var input struct {
			Accept *bool `json:"accept" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		team, err := svc.RespondToInvite(ctx, caller, teamID, *input.Accept)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, team)
	}
}

// ---------------- GET ----------------
func GetTeam(svc *services.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFromContext(c)
		if !ok {
			return
		}

		teamID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid team id"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		team, err := svc.Store().GetTeam(ctx, teamID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "team not found"})
			return
		}

		// Members, the organizer of the event and admins may view the roster.
		if team.Member(caller.ID) == nil && caller.Role != models.RoleAdmin {
			event, err := svc.Store().GetEvent(ctx, team.EventID)
			if err != nil || event.OrganizerID != caller.ID {
				c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
				return
			}
		}
		c.JSON(http.StatusOK, team)
	}
}

// ---------------- RECONCILE ----------------
func ReconcileTeam(svc *services.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		teamID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid team id"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := svc.ReconcileTeamTickets(ctx, teamID); err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "team tickets reconciled"})
	}
}

// ---------------- DELETE ----------------
func DeleteTeam(svc *services.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFromContext(c)
		if !ok {
			return
		}

		teamID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid team id"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := svc.DeleteTeam(ctx, caller, teamID); err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "team deleted", "id": teamID.Hex()})
	}
}
