package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	TeamStatusForming   = "forming"
	TeamStatusComplete  = "complete"
	TeamStatusCancelled = "cancelled"
)

const (
	MemberInvited  = "invited"
	MemberAccepted = "accepted"
	MemberDeclined = "declined"
)

const (
	TeamSizeMin = 2
	TeamSizeMax = 10
)

type TeamMember struct {
	UserID   primitive.ObjectID `bson:"user_id" json:"user_id"`
	Status   string             `bson:"status" json:"status"`
	JoinedAt *time.Time         `bson:"joined_at,omitempty" json:"joined_at,omitempty"`
}

// Team assembles members by invite code. Once RegistrationComplete is set the
// team is immutable: no deletion, no further membership change.
type Team struct {
	ID                      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EventID                 primitive.ObjectID `bson:"event_id" json:"event_id"`
	LeaderID                primitive.ObjectID `bson:"leader_id" json:"leader_id"`
	TeamName                string             `bson:"team_name" json:"team_name"`
	TeamSize                int                `bson:"team_size" json:"team_size"`
	InviteCode              string             `bson:"invite_code" json:"invite_code"`
	Members                 []TeamMember       `bson:"members" json:"members"`
	Status                  string             `bson:"status" json:"status"`
	RegistrationComplete    bool               `bson:"registration_complete" json:"registration_complete"`
	RegistrationCompletedAt *time.Time         `bson:"registration_completed_at,omitempty" json:"registration_completed_at,omitempty"`
	CountApplied            bool               `bson:"count_applied" json:"-"` // event counter already incremented for this team
	CreatedAt               time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt               time.Time          `bson:"updated_at" json:"updated_at"`
}

// AcceptedCount returns the number of members who have accepted their invite.
func (t *Team) AcceptedCount() int {
	n := 0
	for _, m := range t.Members {
		if m.Status == MemberAccepted {
			n++
		}
	}
	return n
}

// Member returns the membership entry for a user, or nil.
func (t *Team) Member(userID primitive.ObjectID) *TeamMember {
	for i := range t.Members {
		if t.Members[i].UserID == userID {
			return &t.Members[i]
		}
	}
	return nil
}
