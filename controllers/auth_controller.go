package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	config "github.com/rider9600/felicity-event-management-sub001/config"
	middleware "github.com/rider9600/felicity-event-management-sub001/middleware"
	models "github.com/rider9600/felicity-event-management-sub001/models"
	"github.com/rider9600/felicity-event-management-sub001/store"
)

const tokenTTL = 24 * time.Hour

// ---------------- REGISTER ----------------
func Register(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Name            string `json:"name" binding:"required"`
			Email           string `json:"email" binding:"required,email"`
			Password        string `json:"password" binding:"required,min=8"`
			Role            string `json:"role"`
			ParticipantType string `json:"participant_type"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		role := input.Role
		switch role {
		case "", models.RoleParticipant:
			role = models.RoleParticipant
		case models.RoleOrganizer:
			// organizer accounts are created by admins elsewhere; self-service
			// signup stays participant-only
			c.JSON(http.StatusForbidden, gin.H{"error": "organizer accounts are admin-managed"})
			return
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
			return
		}

		ptype := input.ParticipantType
		if ptype != models.ParticipantIIIT && ptype != models.ParticipantNonIIIT {
			ptype = models.ParticipantNonIIIT
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not hash password"})
			return
		}

		now := time.Now()
		user := &models.User{
			Name:            input.Name,
			Email:           input.Email,
			Password:        string(hash),
			Role:            role,
			ParticipantType: ptype,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := st.CreateUser(ctx, user); err != nil {
			if err == store.ErrDuplicate {
				c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create user"})
			return
		}

		c.JSON(http.StatusCreated, user)
	}
}

// ---------------- LOGIN ----------------
func Login(cfg *config.Config, st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		user, err := st.GetUserByEmail(ctx, input.Email)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)) != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}

		now := time.Now()
		claims := middleware.Claims{
			Role:            user.Role,
			ParticipantType: user.ParticipantType,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   user.ID.Hex(),
				ID:        uuid.NewString(),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not sign token"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
	}
}

// ---------------- LOGOUT ----------------
func Logout(revoker middleware.Revoker) gin.HandlerFunc {
	return func(c *gin.Context) {
		jti := c.GetString("jti")
		if jti == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token has no session id"})
			return
		}
		exp, _ := c.Get("token_exp")
		expiresAt, ok := exp.(time.Time)
		if !ok {
			expiresAt = time.Now().Add(tokenTTL)
		}
		if err := revoker.Revoke(c.Request.Context(), jti, expiresAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not revoke session"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
	}
}

// ---------------- ME ----------------
func Me(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFromContext(c)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		user, err := st.GetUser(ctx, caller.ID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusOK, user)
	}
}
