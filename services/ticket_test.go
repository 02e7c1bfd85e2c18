package services

import (
	"errors"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/rider9600/felicity-event-management-sub001/models"
	"github.com/rider9600/felicity-event-management-sub001/store"
)

func TestTicketSurvivesEncoderFailure(t *testing.T) {
	st := store.NewMemStore()
	rec := &emitRecorder{}
	svc := NewService(st, func(string) (string, error) {
		return "", fmt.Errorf("encoder offline")
	}, rec.record)

	org := organizerUser()
	e := seedNormalEvent(t, st, org, 0)

	ticket, err := svc.Register(t.Context(), participant(models.ParticipantIIIT), e.ID, nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if ticket.QRCode != "" {
		t.Errorf("qr = %q, want empty when encoding fails", ticket.QRCode)
	}
	if ticket.Status != models.TicketStatusActive {
		t.Errorf("status = %q, admission rights must not depend on the QR", ticket.Status)
	}
}

func TestAcceptRegistration(t *testing.T) {
	svc, st, rec := newTestService(t)
	org := organizerUser()
	e := seedNormalEvent(t, st, org, 0)
	p := participant(models.ParticipantIIIT)

	ticket, err := svc.Register(t.Context(), p, e.ID, nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if n := len(rec.byType(EventRegistrationAccepted)); n != 0 {
		t.Fatalf("events before acceptance = %d, want 0", n)
	}

	if err := svc.AcceptRegistration(t.Context(), org, ticket.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	got, _ := st.GetTicket(t.Context(), ticket.ID)
	if got.RegistrationStatus != models.RegistrationAccepted {
		t.Errorf("status = %q, want accepted", got.RegistrationStatus)
	}
	if len(got.AuditLog) != 1 || got.AuditLog[0].Action != "registration_accepted" {
		t.Errorf("audit log = %+v, want one registration_accepted entry", got.AuditLog)
	}
	if n := len(rec.byType(EventRegistrationAccepted)); n != 1 {
		t.Errorf("events after acceptance = %d, want 1", n)
	}

	// Accepting twice is a state conflict.
	if err := svc.AcceptRegistration(t.Context(), org, ticket.ID); KindOf(err) != KindStateConflict {
		t.Errorf("second accept: err = %v, want state conflict", err)
	}
}

func TestRejectRegistrationKeepsRecord(t *testing.T) {
	svc, st, _ := newTestService(t)
	org := organizerUser()
	e := seedNormalEvent(t, st, org, 0)

	ticket, err := svc.Register(t.Context(), participant(models.ParticipantIIIT), e.ID, nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.RejectRegistration(t.Context(), org, ticket.ID, "incomplete form"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	got, _ := st.GetTicket(t.Context(), ticket.ID)
	if got.RegistrationStatus != models.RegistrationRejected {
		t.Errorf("registration status = %q, want rejected", got.RegistrationStatus)
	}
	if got.Status != models.TicketStatusRejected {
		t.Errorf("ticket status = %q, want rejected", got.Status)
	}
	if len(got.AuditLog) != 1 || got.AuditLog[0].Reason != "incomplete form" {
		t.Errorf("audit log = %+v, want the rejection reason recorded", got.AuditLog)
	}
}

func TestOnlyEventOwnerReviewsTickets(t *testing.T) {
	svc, st, _ := newTestService(t)
	owner := organizerUser()
	other := organizerUser()
	admin := &models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
	e := seedNormalEvent(t, st, owner, 0)

	ticket, err := svc.Register(t.Context(), participant(models.ParticipantIIIT), e.ID, nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := svc.AcceptRegistration(t.Context(), other, ticket.ID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("foreign organizer: err = %v, want ErrNotOwner", err)
	}
	if err := svc.AcceptRegistration(t.Context(), admin, ticket.ID); err != nil {
		t.Fatalf("admin: %v", err)
	}
}

func TestMarkAttendanceOnce(t *testing.T) {
	svc, st, _ := newTestService(t)
	org := organizerUser()
	e := seedNormalEvent(t, st, org, 0)

	ticket, err := svc.Register(t.Context(), participant(models.ParticipantIIIT), e.ID, nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := svc.MarkAttendance(t.Context(), org, ticket.ID); err != nil {
		t.Fatalf("mark: %v", err)
	}
	got, _ := st.GetTicket(t.Context(), ticket.ID)
	if !got.Attended || got.AttendedAt == nil {
		t.Fatalf("ticket = attended %v at %v, want both set", got.Attended, got.AttendedAt)
	}

	if err := svc.MarkAttendance(t.Context(), org, ticket.ID); KindOf(err) != KindStateConflict {
		t.Fatalf("second mark: err = %v, want state conflict", err)
	}
}

func TestAttendanceRequiresActiveTicket(t *testing.T) {
	svc, st, _ := newTestService(t)
	org := organizerUser()
	e := seedNormalEvent(t, st, org, 0)

	ticket, err := svc.Register(t.Context(), participant(models.ParticipantIIIT), e.ID, nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.RejectRegistration(t.Context(), org, ticket.ID, ""); err != nil {
		t.Fatalf("reject: %v", err)
	}

	if err := svc.MarkAttendance(t.Context(), org, ticket.ID); KindOf(err) != KindStateConflict {
		t.Fatalf("err = %v, want state conflict on a rejected ticket", err)
	}
}

func TestPaymentReviewFlow(t *testing.T) {
	svc, st, rec := newTestService(t)
	org := organizerUser()
	e := seedMerchEvent(t, st, org, models.MerchItem{Name: "poster", Price: 8, Stock: 10})
	if err := st.UpdateEventFields(t.Context(), e.ID, map[string]any{"requires_payment_proof": true}); err != nil {
		t.Fatal(err)
	}

	t.Run("approve", func(t *testing.T) {
		ticket, err := svc.Purchase(t.Context(), participant(models.ParticipantIIIT), e.ID, ItemSelector{Name: "poster"}, 1)
		if err != nil {
			t.Fatalf("purchase: %v", err)
		}
		if err := svc.ApprovePayment(t.Context(), org, ticket.ID); err != nil {
			t.Fatalf("approve: %v", err)
		}
		got, _ := st.GetTicket(t.Context(), ticket.ID)
		if got.PaymentStatus != models.PaymentPaid {
			t.Errorf("payment = %q, want paid", got.PaymentStatus)
		}
		if n := len(rec.byType(EventPaymentApproved)); n != 1 {
			t.Errorf("payment events = %d, want 1", n)
		}
		if err := svc.ApprovePayment(t.Context(), org, ticket.ID); KindOf(err) != KindStateConflict {
			t.Errorf("double approve: err = %v, want state conflict", err)
		}
	})

	t.Run("reject", func(t *testing.T) {
		ticket, err := svc.Purchase(t.Context(), participant(models.ParticipantNonIIIT), e.ID, ItemSelector{Name: "poster"}, 1)
		if err != nil {
			t.Fatalf("purchase: %v", err)
		}
		if err := svc.RejectPayment(t.Context(), org, ticket.ID, "proof unreadable"); err != nil {
			t.Fatalf("reject: %v", err)
		}
		got, _ := st.GetTicket(t.Context(), ticket.ID)
		if got.PaymentStatus != models.PaymentRejected {
			t.Errorf("payment = %q, want rejected", got.PaymentStatus)
		}
		if got.Status != models.TicketStatusRejected {
			t.Errorf("ticket status = %q, want rejected", got.Status)
		}
	})
}
