package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/rider9600/felicity-event-management-sub001/models"
)

var (
	// ErrNotFound means the id or lookup key resolved to nothing.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate means a unique key (ticket_id, invite_code, email,
	// registration per event/user) already exists.
	ErrDuplicate = errors.New("duplicate key")
	// ErrConflict means a conditional update found its guard no longer true:
	// capacity exhausted, stock gone, status moved, or a race was lost.
	ErrConflict = errors.New("condition not met")
)

// EventFilter narrows ListEvents.
type EventFilter struct {
	OrganizerID *primitive.ObjectID
	Status      string
	Type        string
}

// Store is the persistence boundary of the core. Every method that guards an
// invariant (capacity, stock, one-time completion) is a single conditional
// atomic update on the storage side; callers never read-then-write those
// fields.
type Store interface {
	// Users.
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// Events.
	CreateEvent(ctx context.Context, e *models.Event) error
	GetEvent(ctx context.Context, id primitive.ObjectID) (*models.Event, error)
	ListEvents(ctx context.Context, f EventFilter) ([]models.Event, error)
	UpdateEventFields(ctx context.Context, id primitive.ObjectID, fields map[string]any) error
	// SetEventStatus moves status to `to` only while it is one of `from`.
	SetEventStatus(ctx context.Context, id primitive.ObjectID, from []string, to string) error
	DeleteEvent(ctx context.Context, id primitive.ObjectID) error

	// Inventory ledger.
	//
	// AdmitRegistration increments registration_count by one only while the
	// event is published and under its limit, returning the count before the
	// increment. ErrConflict when the guard fails.
	AdmitRegistration(ctx context.Context, eventID primitive.ObjectID) (int, error)
	// ReleaseRegistration is the compensating decrement for a failed admit.
	ReleaseRegistration(ctx context.Context, eventID primitive.ObjectID) error
	// LockCustomForm sets custom_form_locked; idempotent, never unset.
	LockCustomForm(ctx context.Context, eventID primitive.ObjectID) error
	// DecrementStock applies "decrement by qty only if stock >= qty" to the
	// exact item variant, bumping registration_count and revenue in the same
	// update. ErrConflict when another buyer won the race.
	DecrementStock(ctx context.Context, eventID primitive.ObjectID, item models.MerchItem, qty int, amount float64) error
	// RestoreStock is the compensating inverse of DecrementStock.
	RestoreStock(ctx context.Context, eventID primitive.ObjectID, item models.MerchItem, qty int, amount float64) error
	// AddRegistrations bumps registration_count by n (team completion).
	AddRegistrations(ctx context.Context, eventID primitive.ObjectID, n int) error

	// Status sweep primitives. Pure conditional bulk updates, safe to run
	// concurrently with themselves and with live registrations.
	PromoteOngoing(ctx context.Context, now time.Time) (int64, error)
	CompleteEnded(ctx context.Context, now time.Time) (int64, error)
	CloseDeadlinePassed(ctx context.Context, now time.Time) (int64, error)

	// Tickets.
	CreateTicket(ctx context.Context, t *models.Ticket) error
	GetTicket(ctx context.Context, id primitive.ObjectID) (*models.Ticket, error)
	GetTicketByTicketID(ctx context.Context, ticketID string) (*models.Ticket, error)
	GetRegistrationTicket(ctx context.Context, eventID, userID primitive.ObjectID) (*models.Ticket, error)
	ListEventTickets(ctx context.Context, eventID primitive.ObjectID) ([]models.Ticket, error)
	ListUserTickets(ctx context.Context, userID primitive.ObjectID) ([]models.Ticket, error)
	CountTeamTickets(ctx context.Context, teamID primitive.ObjectID) (int, error)
	SumPurchasedQuantity(ctx context.Context, eventID, userID primitive.ObjectID, itemName string) (int, error)
	// UpdateTicket applies `set` and appends `audit` only while every field in
	// `when` still holds. ErrConflict otherwise.
	UpdateTicket(ctx context.Context, id primitive.ObjectID, when map[string]any, set map[string]any, audit *models.AuditEntry) error

	// Teams.
	CreateTeam(ctx context.Context, t *models.Team) error
	GetTeam(ctx context.Context, id primitive.ObjectID) (*models.Team, error)
	GetTeamByInviteCode(ctx context.Context, eventID primitive.ObjectID, code string) (*models.Team, error)
	// AddTeamMember pushes a member only while the team is forming, the user
	// is absent and accepted members are below team_size.
	AddTeamMember(ctx context.Context, teamID primitive.ObjectID, m models.TeamMember) error
	// SetMemberStatus moves one member from -> to. ErrConflict when the member
	// is not currently in `from` (duplicate accept, decline after accept).
	SetMemberStatus(ctx context.Context, teamID, userID primitive.ObjectID, from, to string, joinedAt *time.Time) error
	// CompleteTeam flips the team to complete exactly once, only when every
	// seat is accepted. Returns true for the single caller that won the flip.
	CompleteTeam(ctx context.Context, teamID primitive.ObjectID, at time.Time) (bool, error)
	// MarkTeamCounted records that the event counter was incremented for this
	// team. Returns true for the single caller that should apply it.
	MarkTeamCounted(ctx context.Context, teamID primitive.ObjectID) (bool, error)
	// DeleteTeam removes a team only while registration_complete is false.
	DeleteTeam(ctx context.Context, teamID primitive.ObjectID) error
}
