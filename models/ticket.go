package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	TicketStatusActive    = "active"
	TicketStatusCompleted = "completed"
	TicketStatusCancelled = "cancelled"
	TicketStatusRejected  = "rejected"
)

const (
	RegistrationPending  = "pending"
	RegistrationAccepted = "accepted"
	RegistrationRejected = "rejected"
)

const (
	PaymentPending         = "pending"
	PaymentPendingApproval = "pending_approval"
	PaymentPaid            = "paid"
	PaymentRejected        = "rejected"
	PaymentRefunded        = "refunded"
	PaymentNotRequired     = "not_required"
)

// Ticket kinds. Normal-event registrations are unique per (event, user);
// merchandise purchases may repeat up to the item's purchase limit.
const (
	TicketKindRegistration = "registration"
	TicketKindPurchase     = "purchase"
	TicketKindTeam         = "team"
)

// AuditEntry is one append-only record of a mutation applied to a ticket.
type AuditEntry struct {
	Action      string    `bson:"action" json:"action"`
	PerformedBy string    `bson:"performed_by" json:"performed_by"`
	Reason      string    `bson:"reason,omitempty" json:"reason,omitempty"`
	Timestamp   time.Time `bson:"timestamp" json:"timestamp"`
}

// PurchaseDetails records the exact merchandise variant a ticket paid for.
type PurchaseDetails struct {
	ItemName string  `bson:"item_name" json:"item_name"`
	Size     string  `bson:"size,omitempty" json:"size,omitempty"`
	Color    string  `bson:"color,omitempty" json:"color,omitempty"`
	Variant  string  `bson:"variant,omitempty" json:"variant,omitempty"`
	Quantity int     `bson:"quantity" json:"quantity"`
	Price    float64 `bson:"price" json:"price"` // total paid
}

// Ticket is never deleted; cancelled/rejected are terminal statuses.
type Ticket struct {
	ID                 primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	TicketID           string              `bson:"ticket_id" json:"ticket_id"` // unique business id, independent of _id
	EventID            primitive.ObjectID  `bson:"event_id" json:"event_id"`
	UserID             primitive.ObjectID  `bson:"user_id" json:"user_id"`
	TeamID             *primitive.ObjectID `bson:"team_id,omitempty" json:"team_id,omitempty"`
	Kind               string              `bson:"kind" json:"kind"`
	Status             string              `bson:"status" json:"status"`
	RegistrationStatus string              `bson:"registration_status,omitempty" json:"registration_status,omitempty"`
	PaymentStatus      string              `bson:"payment_status" json:"payment_status"`
	QRCode             string              `bson:"qr_code,omitempty" json:"qr_code,omitempty"` // empty when encoding is pending
	FormData           map[string]string   `bson:"form_data,omitempty" json:"form_data,omitempty"`
	PurchaseDetails    *PurchaseDetails    `bson:"purchase_details,omitempty" json:"purchase_details,omitempty"`
	Attended           bool                `bson:"attended" json:"attended"`
	AttendedAt         *time.Time          `bson:"attended_at,omitempty" json:"attended_at,omitempty"`
	AuditLog           []AuditEntry        `bson:"audit_log,omitempty" json:"audit_log,omitempty"`
	CreatedAt          time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time           `bson:"updated_at" json:"updated_at"`
}
