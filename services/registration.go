package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/rider9600/felicity-event-management-sub001/models"
	"github.com/rider9600/felicity-event-management-sub001/store"
)

// Register admits a participant into a normal event and issues a ticket.
//
// Preconditions are checked in order, each a distinct failure mode: event
// type, duplicate, deadline, capacity, eligibility, required form fields.
// The authoritative capacity check is the conditional counter increment in
// the store; the pre-read only produces the ordered error. A failed ticket
// insert decrements the counter back (compensating write).
func (s *Service) Register(ctx context.Context, participant *models.User, eventID primitive.ObjectID, formData map[string]string) (*models.Ticket, error) {
	now := time.Now()

	e, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, ErrEventNotFound
	}
	if e.Type != models.EventTypeNormal {
		return nil, ErrInvalidEventType
	}
	if _, err := s.store.GetRegistrationTicket(ctx, eventID, participant.ID); err == nil {
		return nil, ErrDuplicateRegistration
	}
	if e.RegistrationDeadline != nil && !e.RegistrationDeadline.After(now) {
		return nil, ErrDeadlinePassed
	}
	if e.Status != models.EventStatusPublished {
		return nil, ErrRegistrationClosed
	}
	if e.RegistrationLimit > 0 && e.RegistrationCount >= e.RegistrationLimit {
		return nil, ErrCapacityExceeded
	}
	if !participant.Eligible(e.Eligibility) {
		return nil, ErrNotEligible
	}
	for _, f := range e.CustomForm {
		if f.Required && strings.TrimSpace(formData[f.Name]) == "" {
			return nil, errf(KindValidation, "missing required field %q", f.Name)
		}
	}

	// Admission: single conditional increment guarded by status and limit.
	prevCount, err := s.store.AdmitRegistration(ctx, eventID)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, s.classifyAdmitFailure(ctx, eventID, now)
		}
		return nil, err
	}

	// First successful registration locks the custom form permanently; the
	// lock is independent of later count changes.
	if prevCount == 0 && !e.CustomFormLocked {
		if err := s.store.LockCustomForm(ctx, eventID); err != nil {
			logger.Errorf("lock custom form for event %s: %v", eventID.Hex(), err)
		}
	}

	fee := models.PaymentNotRequired
	if e.RegistrationFee > 0 {
		fee = models.PaymentPending
	}
	ticketID := newTicketID()
	t := &models.Ticket{
		TicketID:           ticketID,
		EventID:            eventID,
		UserID:             participant.ID,
		Kind:               models.TicketKindRegistration,
		Status:             models.TicketStatusActive,
		RegistrationStatus: models.RegistrationPending,
		PaymentStatus:      fee,
		QRCode:             s.issueQR(ticketID, eventID, participant.ID, ""),
		FormData:           formData,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.CreateTicket(ctx, t); err != nil {
		_ = s.store.ReleaseRegistration(ctx, eventID)
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrDuplicateRegistration
		}
		return nil, err
	}

	// No notification here: the confirmation email goes out when an organizer
	// accepts the registration.
	return t, nil
}

// classifyAdmitFailure turns a lost conditional admit into the precise ordered
// error the caller expects.
func (s *Service) classifyAdmitFailure(ctx context.Context, eventID primitive.ObjectID, now time.Time) error {
	e, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return ErrEventNotFound
	}
	if e.Status != models.EventStatusPublished {
		return ErrRegistrationClosed
	}
	if e.RegistrationDeadline != nil && !e.RegistrationDeadline.After(now) {
		return ErrDeadlinePassed
	}
	return ErrCapacityExceeded
}
