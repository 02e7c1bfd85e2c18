package services

import (
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/rider9600/felicity-event-management-sub001/models"
	"github.com/rider9600/felicity-event-management-sub001/store"
)

// emitRecorder captures domain events synchronously so tests can assert on
// them without a running notifier.
type emitRecorder struct {
	mu     sync.Mutex
	events []DomainEvent
}

func (r *emitRecorder) record(ev DomainEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *emitRecorder) byType(t string) []DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []DomainEvent
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func newTestService(t *testing.T) (*Service, *store.MemStore, *emitRecorder) {
	t.Helper()
	st := store.NewMemStore()
	rec := &emitRecorder{}
	encode := func(payload string) (string, error) { return "qr:" + payload, nil }
	return NewService(st, encode, rec.record), st, rec
}

func futureTime(d time.Duration) *time.Time {
	t := time.Now().Add(d)
	return &t
}

func participant(ptype string) *models.User {
	return &models.User{
		ID:              primitive.NewObjectID(),
		Name:            "tester",
		Email:           "tester@example.com",
		Role:            models.RoleParticipant,
		ParticipantType: ptype,
	}
}

func organizerUser() *models.User {
	return &models.User{
		ID:   primitive.NewObjectID(),
		Name: "organizer",
		Role: models.RoleOrganizer,
	}
}

// seedNormalEvent stores a published normal event owned by org with the given
// limit (0 = unlimited) and a deadline comfortably in the future.
func seedNormalEvent(t *testing.T, st *store.MemStore, org *models.User, limit int) *models.Event {
	t.Helper()
	now := time.Now()
	e := &models.Event{
		OrganizerID:          org.ID,
		Name:                 "Robotics Workshop",
		Type:                 models.EventTypeNormal,
		Eligibility:          models.EligibilityAll,
		RegistrationDeadline: futureTime(24 * time.Hour),
		StartDate:            futureTime(48 * time.Hour),
		EndDate:              futureTime(72 * time.Hour),
		RegistrationLimit:    limit,
		Status:               models.EventStatusPublished,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := st.CreateEvent(t.Context(), e); err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return e
}

func seedMerchEvent(t *testing.T, st *store.MemStore, org *models.User, items ...models.MerchItem) *models.Event {
	t.Helper()
	now := time.Now()
	e := &models.Event{
		OrganizerID:          org.ID,
		Name:                 "Fest Merch Store",
		Type:                 models.EventTypeMerchandise,
		Eligibility:          models.EligibilityAll,
		RegistrationDeadline: futureTime(24 * time.Hour),
		Status:               models.EventStatusPublished,
		Merchandise:          models.Merchandise{Items: items},
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := st.CreateEvent(t.Context(), e); err != nil {
		t.Fatalf("seed merch event: %v", err)
	}
	return e
}
