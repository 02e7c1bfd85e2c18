package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/logger"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/rider9600/felicity-event-management-sub001/models"
	"github.com/rider9600/felicity-event-management-sub001/store"
)

// qrPayload is the tuple a scanned code resolves to.
type qrPayload struct {
	TicketID string `json:"ticket_id"`
	EventID  string `json:"event_id"`
	UserID   string `json:"user_id"`
	Item     string `json:"item,omitempty"`
}

func newTicketID() string {
	return "FEL-" + uuid.NewString()
}

// issueQR renders the encoded payload for a ticket. Encoding failure is
// non-fatal: the ticket persists with an empty code and admission rights are
// unaffected.
func (s *Service) issueQR(ticketID string, eventID, userID primitive.ObjectID, item string) string {
	raw, err := json.Marshal(qrPayload{
		TicketID: ticketID,
		EventID:  eventID.Hex(),
		UserID:   userID.Hex(),
		Item:     item,
	})
	if err != nil {
		logger.Errorf("qr payload marshal for %s: %v", ticketID, err)
		return ""
	}
	code, err := s.encode(string(raw))
	if err != nil {
		logger.Warningf("qr encoding pending for %s: %v", ticketID, err)
		return ""
	}
	return code
}

// requireEventRole loads a ticket and its event, checking the caller owns the
// event or is an admin.
func (s *Service) requireEventRole(ctx context.Context, caller *models.User, ticketOID primitive.ObjectID) (*models.Ticket, *models.Event, error) {
	t, err := s.store.GetTicket(ctx, ticketOID)
	if err != nil {
		return nil, nil, ErrTicketNotFound
	}
	e, err := s.store.GetEvent(ctx, t.EventID)
	if err != nil {
		return nil, nil, ErrEventNotFound
	}
	if caller.Role != models.RoleAdmin && e.OrganizerID != caller.ID {
		return nil, nil, ErrNotOwner
	}
	return t, e, nil
}

// AcceptRegistration moves a pending registration to accepted and emits the
// deferred confirmation notification. Registration emails are sent here, not
// at submission time.
func (s *Service) AcceptRegistration(ctx context.Context, caller *models.User, ticketOID primitive.ObjectID) error {
	t, _, err := s.requireEventRole(ctx, caller, ticketOID)
	if err != nil {
		return err
	}
	audit := &models.AuditEntry{
		Action:      "registration_accepted",
		PerformedBy: caller.ID.Hex(),
		Timestamp:   time.Now(),
	}
	err = s.store.UpdateTicket(ctx, ticketOID,
		map[string]any{"registration_status": models.RegistrationPending},
		map[string]any{"registration_status": models.RegistrationAccepted},
		audit)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return errf(KindStateConflict, "registration is not pending")
		}
		return err
	}
	s.emit(DomainEvent{
		Type:     EventRegistrationAccepted,
		EventID:  t.EventID,
		UserID:   t.UserID,
		TicketID: t.TicketID,
		At:       time.Now(),
	})
	return nil
}

// RejectRegistration is terminal for the ticket; the record is kept, never
// deleted.
func (s *Service) RejectRegistration(ctx context.Context, caller *models.User, ticketOID primitive.ObjectID, reason string) error {
	_, _, err := s.requireEventRole(ctx, caller, ticketOID)
	if err != nil {
		return err
	}
	audit := &models.AuditEntry{
		Action:      "registration_rejected",
		PerformedBy: caller.ID.Hex(),
		Reason:      reason,
		Timestamp:   time.Now(),
	}
	err = s.store.UpdateTicket(ctx, ticketOID,
		map[string]any{"registration_status": models.RegistrationPending},
		map[string]any{
			"registration_status": models.RegistrationRejected,
			"status":              models.TicketStatusRejected,
		},
		audit)
	if errors.Is(err, store.ErrConflict) {
		return errf(KindStateConflict, "registration is not pending")
	}
	return err
}

// MarkAttendance records that the ticket holder showed up. One-shot.
func (s *Service) MarkAttendance(ctx context.Context, caller *models.User, ticketOID primitive.ObjectID) error {
	t, _, err := s.requireEventRole(ctx, caller, ticketOID)
	if err != nil {
		return err
	}
	if t.Status != models.TicketStatusActive {
		return errf(KindStateConflict, "ticket is %s", t.Status)
	}
	now := time.Now()
	audit := &models.AuditEntry{
		Action:      "attendance_marked",
		PerformedBy: caller.ID.Hex(),
		Timestamp:   now,
	}
	err = s.store.UpdateTicket(ctx, ticketOID,
		map[string]any{"attended": false},
		map[string]any{"attended": true, "attended_at": &now},
		audit)
	if errors.Is(err, store.ErrConflict) {
		return errf(KindStateConflict, "attendance already marked")
	}
	return err
}

// ApprovePayment confirms a payment proof: pending_approval -> paid.
func (s *Service) ApprovePayment(ctx context.Context, caller *models.User, ticketOID primitive.ObjectID) error {
	t, _, err := s.requireEventRole(ctx, caller, ticketOID)
	if err != nil {
		return err
	}
	audit := &models.AuditEntry{
		Action:      "payment_approved",
		PerformedBy: caller.ID.Hex(),
		Timestamp:   time.Now(),
	}
	err = s.store.UpdateTicket(ctx, ticketOID,
		map[string]any{"payment_status": models.PaymentPendingApproval},
		map[string]any{"payment_status": models.PaymentPaid},
		audit)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return errf(KindStateConflict, "payment is not awaiting approval")
		}
		return err
	}
	s.emit(DomainEvent{
		Type:     EventPaymentApproved,
		EventID:  t.EventID,
		UserID:   t.UserID,
		TicketID: t.TicketID,
		At:       time.Now(),
	})
	return nil
}

// RejectPayment declines a payment proof with a reason.
func (s *Service) RejectPayment(ctx context.Context, caller *models.User, ticketOID primitive.ObjectID, reason string) error {
	_, _, err := s.requireEventRole(ctx, caller, ticketOID)
	if err != nil {
		return err
	}
	audit := &models.AuditEntry{
		Action:      "payment_rejected",
		PerformedBy: caller.ID.Hex(),
		Reason:      reason,
		Timestamp:   time.Now(),
	}
	err = s.store.UpdateTicket(ctx, ticketOID,
		map[string]any{"payment_status": models.PaymentPendingApproval},
		map[string]any{
			"payment_status": models.PaymentRejected,
			"status":         models.TicketStatusRejected,
		},
		audit)
	if errors.Is(err, store.ErrConflict) {
		return errf(KindStateConflict, "payment is not awaiting approval")
	}
	return err
}
