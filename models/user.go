package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleParticipant = "participant"
	RoleOrganizer   = "organizer"
	RoleAdmin       = "admin"
)

const (
	ParticipantIIIT    = "iiit"
	ParticipantNonIIIT = "non-iiit"
)

type User struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name            string               `bson:"name" json:"name"`
	Email           string               `bson:"email" json:"email"`
	Password        string               `bson:"password" json:"-"`
	Role            string               `bson:"role" json:"role"`
	ParticipantType string               `bson:"participant_type,omitempty" json:"participant_type,omitempty"`
	FollowedClubs   []primitive.ObjectID `bson:"followed_clubs,omitempty" json:"followed_clubs,omitempty"`
	CreatedAt       time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time            `bson:"updated_at" json:"updated_at"`
}

// Eligible reports whether the user's participant type satisfies an event's
// eligibility filter.
func (u *User) Eligible(filter string) bool {
	switch filter {
	case "", EligibilityAll:
		return true
	case EligibilityIIIT:
		return u.ParticipantType == ParticipantIIIT
	case EligibilityNonIIIT:
		return u.ParticipantType == ParticipantNonIIIT
	default:
		return false
	}
}
