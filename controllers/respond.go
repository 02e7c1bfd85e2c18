package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/rider9600/felicity-event-management-sub001/models"
	services "github.com/rider9600/felicity-event-management-sub001/services"
)

// callerFromContext rebuilds the authenticated identity from the claims the
// auth middleware attached. No database round trip: the core only needs id,
// role and participant type.
func callerFromContext(c *gin.Context) (*models.User, bool) {
	uid, err := primitive.ObjectIDFromHex(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user id"})
		return nil, false
	}
	return &models.User{
		ID:              uid,
		Role:            c.GetString("role"),
		ParticipantType: c.GetString("participant_type"),
	}, true
}

// writeServiceError maps the core error taxonomy onto HTTP. Every response
// carries the machine-checkable kind plus the human-readable reason; capacity
// and stock races read as retryable, not permanent denial.
func writeServiceError(c *gin.Context, err error) {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusInternalServerError
	switch svcErr.Kind {
	case services.KindValidation:
		status = http.StatusBadRequest
	case services.KindNotFound:
		status = http.StatusNotFound
	case services.KindAuthorization:
		status = http.StatusForbidden
	case services.KindStateConflict, services.KindCapacity, services.KindStockConflict:
		status = http.StatusConflict
	case services.KindDependency:
		status = http.StatusBadGateway
	}

	body := gin.H{"error": svcErr.Reason, "kind": string(svcErr.Kind)}
	if svcErr.Kind == services.KindCapacity || svcErr.Kind == services.KindStockConflict {
		body["retryable"] = true
	}
	c.JSON(status, body)
}
