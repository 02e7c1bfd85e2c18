package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	services "github.com/rider9600/felicity-event-management-sub001/services"
)

// ---------------- PURCHASE ----------------
func PurchaseItem(svc *services.Service) gin.HandlerFunc {
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
			Item     services.ItemSelector `json:"item" binding:"required"`
			Quantity int                   `json:"quantity"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if input.Quantity == 0 {
			input.Quantity = 1
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		ticket, err := svc.Purchase(ctx, caller, eventID, input.Item, input.Quantity)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusCreated, ticket)
	}
}
