package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/rider9600/felicity-event-management-sub001/models"
	services "github.com/rider9600/felicity-event-management-sub001/services"
	"github.com/rider9600/felicity-event-management-sub001/store"
	utils "github.com/rider9600/felicity-event-management-sub001/utils"
)

type eventInput struct {
	Name                 string              `json:"name"`
	Description          string              `json:"description"`
	Type                 string              `json:"type"`
	Eligibility          string              `json:"eligibility"`
	RegistrationDeadline *time.Time          `json:"registration_deadline"`
	StartDate            *time.Time          `json:"start_date"`
	EndDate              *time.Time          `json:"end_date"`
	RegistrationLimit    *int                `json:"registration_limit"`
	RegistrationFee      *float64            `json:"registration_fee"`
	CustomForm           []models.FormField  `json:"custom_form"`
	Merchandise          *models.Merchandise `json:"merchandise"`
	RequiresPaymentProof *bool               `json:"requires_payment_proof"`
}

// ---------------- CREATE ----------------
func CreateEvent(svc *services.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFromContext(c)
		if !ok {
			return
		}

		var input eventInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if input.Name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
			return
		}
		if input.Type != models.EventTypeNormal && input.Type != models.EventTypeMerchandise {
			c.JSON(http.StatusBadRequest, gin.H{"error": "type must be normal or merchandise"})
			return
		}

		eligibility := input.Eligibility
		if eligibility == "" {
			eligibility = models.EligibilityAll
		}

		now := time.Now()
		event := &models.Event{
			OrganizerID:          caller.ID,
			Name:                 input.Name,
			Description:          input.Description,
			Type:                 input.Type,
			Eligibility:          eligibility,
			RegistrationDeadline: input.RegistrationDeadline,
			StartDate:            input.StartDate,
			EndDate:              input.EndDate,
			Status:               models.EventStatusDraft,
			CustomForm:           input.CustomForm,
			Images:               []string{},
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		if input.RegistrationLimit != nil {
			event.RegistrationLimit = *input.RegistrationLimit
		}
		if input.RegistrationFee != nil {
			event.RegistrationFee = *input.RegistrationFee
		}
		if input.Merchandise != nil {
			event.Merchandise = *input.Merchandise
		}
		if input.RequiresPaymentProof != nil {
			event.RequiresPaymentProof = *input.RequiresPaymentProof
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := svc.Store().CreateEvent(ctx, event); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create event"})
			return
		}

		c.JSON(http.StatusCreated, event)
	}
}

// ---------------- LIST ----------------
func ListEvents(svc *services.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		filter := store.EventFilter{
			Status: c.Query("status"),
			Type:   c.Query("type"),
		}
		if org := c.Query("organizer_id"); org != "" {
			oid, err := primitive.ObjectIDFromHex(org)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid organizer_id"})
				return
			}
			filter.OrganizerID = &oid
		}

		events, err := svc.Store().ListEvents(ctx, filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch events"})
			return
		}
		if len(events) == 0 {
			c.JSON(http.StatusOK, []models.Event{})
			return
		}

		// Display status is recomputed from timestamps so reads never wait on
		// the background sweep.
		now := time.Now()
		for i := range events {
			events[i].Status = services.EffectiveStatus(&events[i], now)
		}

		latest := events[0]
		for _, ev := range events {
			if ev.UpdatedAt.After(latest.UpdatedAt) {
				latest = ev
			}
		}

		etag := utils.GenerateETag(latest.ID, latest.UpdatedAt)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Header("ETag", etag)
		c.Header("Last-Modified", latest.UpdatedAt.UTC().Format(http.TimeFormat))

		c.JSON(http.StatusOK, events)
	}
}

// ---------------- GET ----------------
func GetEvent(svc *services.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		event, err := svc.Store().GetEvent(ctx, eventID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		event.Status = services.EffectiveStatus(event, time.Now())

		etag := utils.GenerateETag(event.ID, event.UpdatedAt)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Header("ETag", etag)

		c.JSON(http.StatusOK, event)
	}
}

// ---------------- UPDATE ----------------
func UpdateEvent(svc *services.Service) gin.HandlerFunc {
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

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		existing, err := svc.Store().GetEvent(ctx, eventID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		if caller.Role != models.RoleAdmin && existing.OrganizerID != caller.ID {
			c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}

		var input eventInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		fields := map[string]any{}
		if input.Name != "" {
			fields["name"] = input.Name
		}
		if input.Description != "" {
			fields["description"] = input.Description
		}
		if input.Eligibility != "" {
			fields["eligibility"] = input.Eligibility
		}
		if input.RegistrationDeadline != nil {
			fields["registration_deadline"] = input.RegistrationDeadline
		}
		if input.StartDate != nil {
			fields["start_date"] = input.StartDate
		}
		if input.EndDate != nil {
			fields["end_date"] = input.EndDate
		}
		if input.RegistrationLimit != nil {
			fields["registration_limit"] = *input.RegistrationLimit
		}
		if input.RegistrationFee != nil {
			fields["registration_fee"] = *input.RegistrationFee
		}
		if input.CustomForm != nil {
			fields["custom_form"] = input.CustomForm
		}
		if input.Merchandise != nil {
			fields["merchandise"] = *input.Merchandise
		}
		if input.RequiresPaymentProof != nil {
			fields["requires_payment_proof"] = *input.RequiresPaymentProof
		}
		if len(fields) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
			return
		}

		names := make([]string, 0, len(fields))
		for k := range fields {
			names = append(names, k)
		}
		if err := services.ValidateEdit(existing, names); err != nil {
			writeServiceError(c, err)
			return
		}

		if err := svc.Store().UpdateEventFields(ctx, eventID, fields); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update event"})
			return
		}

		updated, err := svc.Store().GetEvent(ctx, eventID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve updated event"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "event updated successfully",
			"event":   updated,
		})
	}
}

// ---------------- STATUS ----------------
func TransitionEvent(svc *services.Service) gin.HandlerFunc {
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
			Status string `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		existing, err := svc.Store().GetEvent(ctx, eventID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		if caller.Role != models.RoleAdmin && existing.OrganizerID != caller.ID {
			c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}

		if err := svc.TransitionEvent(ctx, eventID, input.Status); err != nil {
			writeServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "status updated", "status": input.Status})
	}
}

// ---------------- POSTER UPLOAD ----------------
func UploadEventPoster(svc *services.Service) gin.HandlerFunc {
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

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		existing, err := svc.Store().GetEvent(ctx, eventID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		if caller.Role != models.RoleAdmin && existing.OrganizerID != caller.ID {
			c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}
		if err := services.ValidateEdit(existing, []string{"images"}); err != nil {
			writeServiceError(c, err)
			return
		}

		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data"})
			return
		}

		urls := existing.Images
		for _, fileHeader := range form.File["images"] {
			file, err := fileHeader.Open()
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open file"})
				return
			}
			url, err := utils.UploadPoster(file, fileHeader)
			file.Close()
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{
					"error":   "image upload failed",
					"details": err.Error(),
					"file":    fileHeader.Filename,
				})
				return
			}
			urls = append(urls, url)
		}

		if err := svc.Store().UpdateEventFields(ctx, eventID, map[string]any{"images": urls}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update event"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"images": urls})
	}
}

// ---------------- DELETE ----------------
func DeleteEvent(svc *services.Service) gin.HandlerFunc {
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

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		existing, err := svc.Store().GetEvent(ctx, eventID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		if caller.Role != models.RoleAdmin && existing.OrganizerID != caller.ID {
			c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}

		if err := svc.Store().DeleteEvent(ctx, eventID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete event"})
			return
		}

		for _, img := range existing.Images {
			_ = utils.DeletePoster(img)
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "event deleted successfully",
			"id":      eventID.Hex(),
		})
	}
}
