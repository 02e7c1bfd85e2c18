package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event statuses. Transitions are forward only:
// draft -> published -> ongoing -> completed, with closed reachable
// from published/ongoing once the registration deadline passes.
const (
	EventStatusDraft     = "draft"
	EventStatusPublished = "published"
	EventStatusOngoing   = "ongoing"
	EventStatusCompleted = "completed"
	EventStatusClosed    = "closed"
)

const (
	EventTypeNormal      = "normal"
	EventTypeMerchandise = "merchandise"
)

// Eligibility filters applied at registration time.
const (
	EligibilityAll     = "all"
	EligibilityIIIT    = "iiit"
	EligibilityNonIIIT = "non-iiit"
)

// FormField is one entry of an event's custom registration form.
type FormField struct {
	Name     string   `bson:"name" json:"name"`
	Label    string   `bson:"label" json:"label"`
	Type     string   `bson:"type" json:"type"` // text, number, select, checkbox
	Required bool     `bson:"required" json:"required"`
	Options  []string `bson:"options,omitempty" json:"options,omitempty"`
}

// MerchItem is a fully qualified merchandise variant. (Name, Size, Color,
// Variant) together identify exactly one item within an event.
type MerchItem struct {
	Name          string  `bson:"name" json:"name"`
	Size          string  `bson:"size" json:"size"`
	Color         string  `bson:"color" json:"color"`
	Variant       string  `bson:"variant" json:"variant"`
	Price         float64 `bson:"price" json:"price"`
	Stock         int     `bson:"stock" json:"stock"`
	PurchaseLimit int     `bson:"purchase_limit,omitempty" json:"purchase_limit,omitempty"` // 0 = unlimited
}

type Merchandise struct {
	Items []MerchItem `bson:"items" json:"items"`
}

type Event struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrganizerID          primitive.ObjectID `bson:"organizer_id" json:"organizer_id"`
	Name                 string             `bson:"name" json:"name"`
	Description          string             `bson:"description,omitempty" json:"description,omitempty"`
	Type                 string             `bson:"type" json:"type"`               // normal, merchandise
	Eligibility          string             `bson:"eligibility" json:"eligibility"` // all, iiit, non-iiit
	RegistrationDeadline *time.Time         `bson:"registration_deadline,omitempty" json:"registration_deadline,omitempty"`
	StartDate            *time.Time         `bson:"start_date,omitempty" json:"start_date,omitempty"`
	EndDate              *time.Time         `bson:"end_date,omitempty" json:"end_date,omitempty"`
	RegistrationLimit    int                `bson:"registration_limit,omitempty" json:"registration_limit,omitempty"` // 0 = unlimited
	RegistrationFee      float64            `bson:"registration_fee,omitempty" json:"registration_fee,omitempty"`
	Status               string             `bson:"status" json:"status"`
	RegistrationCount    int                `bson:"registration_count" json:"registration_count"`
	Revenue              float64            `bson:"revenue" json:"revenue"`
	CustomForm           []FormField        `bson:"custom_form,omitempty" json:"custom_form,omitempty"`
	CustomFormLocked     bool               `bson:"custom_form_locked" json:"custom_form_locked"`
	Merchandise          Merchandise        `bson:"merchandise,omitempty" json:"merchandise,omitempty"`
	RequiresPaymentProof bool               `bson:"requires_payment_proof" json:"requires_payment_proof"`
	Images               []string           `bson:"images" json:"images"`
	CreatedAt            time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt            time.Time          `bson:"updated_at" json:"updated_at"`
}

// FindItem resolves a fully qualified selector to the index of the matching
// merchandise item, or -1 when no item matches.
func (e *Event) FindItem(name, size, color, variant string) int {
	for i, it := range e.Merchandise.Items {
		if it.Name == name && it.Size == size && it.Color == color && it.Variant == variant {
			return i
		}
	}
	return -1
}
