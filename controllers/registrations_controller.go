package controllers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/rider9600/felicity-event-management-sub001/models"
	services "github.com/rider9600/felicity-event-management-sub001/services"
	utils "github.com/rider9600/felicity-event-management-sub001/utils"
)

// ---------------- REGISTER ----------------
func RegisterForEvent(svc *services.Service) gin.HandlerFunc {
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
			FormData map[string]string `json:"form_data"`
		}
		// Empty body is fine when the event has no custom form.
		_ = c.ShouldBindJSON(&input)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		ticket, err := svc.Register(ctx, caller, eventID, input.FormData)
		if err != nil {
			writeServiceError(c, err)
			return
		}

		c.JSON(http.StatusCreated, ticket)
	}
}

// ---------------- MY TICKETS ----------------
func MyTickets(svc *services.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFromContext(c)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		tickets, err := svc.Store().ListUserTickets(ctx, caller.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch tickets"})
			return
		}
		if tickets == nil {
			tickets = []models.Ticket{}
		}
		c.JSON(http.StatusOK, tickets)
	}
}

// ---------------- GET TICKET ----------------
// Lookup by the business ticket id printed in the QR payload, so a scanned
// code resolves straight to the record.
func GetTicket(svc *services.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFromContext(c)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		ticket, err := svc.Store().GetTicketByTicketID(ctx, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
			return
		}

		if ticket.UserID != caller.ID && caller.Role == models.RoleParticipant {
			c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}
		c.JSON(http.StatusOK, ticket)
	}
}

// ---------------- EVENT TICKETS ----------------
func EventTickets(svc *services.Service) gin.HandlerFunc {
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

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		event, err := svc.Store().GetEvent(ctx, eventID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		if caller.Role != models.RoleAdmin && event.OrganizerID != caller.ID {
			c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}

		tickets, err := svc.Store().ListEventTickets(ctx, eventID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch tickets"})
			return
		}
		if tickets == nil {
			tickets = []models.Ticket{}
		}
		c.JSON(http.StatusOK, tickets)
	}
}

// ---------------- EXPORT ----------------
func ExportEventTickets(svc *services.Service) gin.HandlerFunc {
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

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		event, err := svc.Store().GetEvent(ctx, eventID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		if caller.Role != models.RoleAdmin && event.OrganizerID != caller.ID {
			c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}

		tickets, err := svc.Store().ListEventTickets(ctx, eventID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch tickets"})
			return
		}

		var buf bytes.Buffer
		if err := utils.WriteTicketsCSV(&buf, tickets); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not render csv"})
			return
		}

		filename := fmt.Sprintf("tickets-%s.csv", eventID.Hex())
		c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
		c.Data(http.StatusOK, "text/csv", buf.Bytes())
	}
}

// ---------------- ACCEPT / REJECT ----------------
func AcceptRegistration(svc *services.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFromContext(c)
		if !ok {
			return
		}
		ticketOID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := svc.AcceptRegistration(ctx, caller, ticketOID); err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "registration accepted"})
	}
}

func RejectRegistration(svc *services.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFromContext(c)
		if !ok {
			return
		}
		ticketOID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
			return
		}

		var input struct {
			Reason string `json:"reason"`
		}
		_ = c.ShouldBindJSON(&input)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := svc.RejectRegistration(ctx, caller, ticketOID, input.Reason); err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "registration rejected"})
	}
}

// ---------------- ATTENDANCE ----------------
func MarkAttendance(svc *services.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFromContext(c)
		if !ok {
			return
		}
		ticketOID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := svc.MarkAttendance(ctx, caller, ticketOID); err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "attendance marked"})
	}
}

// ---------------- PAYMENT REVIEW ----------------
func ApprovePayment(svc *services.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFromContext(c)
		if !ok {
			return
		}
		ticketOID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := svc.ApprovePayment(ctx, caller, ticketOID); err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "payment approved"})
	}
}

func RejectPayment(svc *services.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFromContext(c)
		if !ok {
			return
		}
		ticketOID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
			return
		}

		var input struct {
			Reason string `json:"reason"`
		}
		_ = c.ShouldBindJSON(&input)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := svc.RejectPayment(ctx, caller, ticketOID, input.Reason); err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "payment rejected"})
	}
}
