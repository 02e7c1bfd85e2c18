package services

import (
	"context"
	"time"

	"github.com/google/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/rider9600/felicity-event-management-sub001/models"
)

// forward transitions; closed is additionally reachable from published and
// ongoing via the deadline sweep or an explicit close.
var allowedTransitions = map[string][]string{
	models.EventStatusDraft:     {models.EventStatusPublished},
	models.EventStatusPublished: {models.EventStatusOngoing, models.EventStatusClosed},
	models.EventStatusOngoing:   {models.EventStatusCompleted, models.EventStatusClosed},
	models.EventStatusCompleted: {},
	models.EventStatusClosed:    {},
}

// editableFields narrows as status advances. Draft events are fully editable;
// closed events are frozen.
var editableFields = map[string]map[string]bool{
	models.EventStatusDraft: {
		"name": true, "description": true, "eligibility": true,
		"registration_deadline": true, "start_date": true, "end_date": true,
		"registration_limit": true, "registration_fee": true,
		"custom_form": true, "merchandise": true, "requires_payment_proof": true,
		"images": true, "status": true,
	},
	models.EventStatusPublished: {
		"description": true, "registration_deadline": true,
		"registration_limit": true, "status": true,
	},
	models.EventStatusOngoing:   {"status": true},
	models.EventStatusCompleted: {"status": true},
	models.EventStatusClosed:    {},
}

// ValidTransition reports whether status may move from -> to.
func ValidTransition(from, to string) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateEdit rejects any field the event's current status does not permit.
// The custom form is additionally frozen once locked by the first
// registration, regardless of status.
func ValidateEdit(e *models.Event, fields []string) error {
	allowed := editableFields[e.Status]
	for _, f := range fields {
		if !allowed[f] {
			return errf(KindStateConflict, "field %q is not editable while event is %s", f, e.Status)
		}
		if f == "custom_form" && e.CustomFormLocked {
			return errf(KindStateConflict, "custom form is locked after the first registration")
		}
	}
	return nil
}

// EffectiveStatus recomputes the display status from stored status plus
// timestamps, so reads never trigger writes while the sweep is behind.
func EffectiveStatus(e *models.Event, now time.Time) string {
	switch e.Status {
	case models.EventStatusPublished:
		if e.StartDate != nil && !e.StartDate.After(now) {
			if e.EndDate != nil && !e.EndDate.After(now) {
				return models.EventStatusCompleted
			}
			return models.EventStatusOngoing
		}
		if e.RegistrationDeadline != nil && !e.RegistrationDeadline.After(now) {
			return models.EventStatusClosed
		}
	case models.EventStatusOngoing:
		if e.EndDate != nil && !e.EndDate.After(now) {
			return models.EventStatusCompleted
		}
		if e.RegistrationDeadline != nil && !e.RegistrationDeadline.After(now) {
			return models.EventStatusClosed
		}
	}
	return e.Status
}

// RegistrationOpen: published, deadline not passed, capacity remaining.
func RegistrationOpen(e *models.Event, now time.Time) bool {
	if e.Status != models.EventStatusPublished {
		return false
	}
	if e.RegistrationDeadline != nil && !e.RegistrationDeadline.After(now) {
		return false
	}
	if e.RegistrationLimit > 0 && e.RegistrationCount >= e.RegistrationLimit {
		return false
	}
	return true
}

// TransitionEvent applies an explicit organizer/admin status change.
func (s *Service) TransitionEvent(ctx context.Context, eventID primitive.ObjectID, to string) error {
	e, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return ErrEventNotFound
	}
	if !ValidTransition(e.Status, to) {
		return errf(KindStateConflict, "cannot move event from %s to %s", e.Status, to)
	}
	if err := s.store.SetEventStatus(ctx, eventID, []string{e.Status}, to); err != nil {
		return errf(KindStateConflict, "event status changed concurrently, retry")
	}
	return nil
}

// Sweep promotes statuses by time. Every step is a pure conditional bulk
// update, so overlapping sweeps and live registrations are safe. End-of-event
// completion runs before deadline closure so an event past both its end and
// its deadline completes rather than closes.
func (s *Service) Sweep(ctx context.Context, now time.Time) error {
	started, err := s.store.PromoteOngoing(ctx, now)
	if err != nil {
		return err
	}
	ended, err := s.store.CompleteEnded(ctx, now)
	if err != nil {
		return err
	}
	closed, err := s.store.CloseDeadlinePassed(ctx, now)
	if err != nil {
		return err
	}
	if started+ended+closed > 0 {
		logger.Infof("status sweep: %d started, %d completed, %d closed", started, ended, closed)
	}
	return nil
}
