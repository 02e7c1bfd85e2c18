package services

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/rider9600/felicity-event-management-sub001/models"
)

func TestRegisterIssuesTicket(t *testing.T) {
	svc, st, _ := newTestService(t)
	org := organizerUser()
	e := seedNormalEvent(t, st, org, 0)
	p := participant(models.ParticipantIIIT)

	ticket, err := svc.Register(t.Context(), p, e.ID, nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if ticket.Kind != models.TicketKindRegistration {
		t.Errorf("kind = %q, want %q", ticket.Kind, models.TicketKindRegistration)
	}
	if ticket.RegistrationStatus != models.RegistrationPending {
		t.Errorf("registration status = %q, want pending", ticket.RegistrationStatus)
	}
	if ticket.PaymentStatus != models.PaymentNotRequired {
		t.Errorf("payment status = %q, want not_required for free event", ticket.PaymentStatus)
	}
	if ticket.QRCode == "" {
		t.Error("expected a QR code on the issued ticket")
	}

	got, err := st.GetEvent(t.Context(), e.ID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if got.RegistrationCount != 1 {
		t.Errorf("registration count = %d, want 1", got.RegistrationCount)
	}
}

func TestRegisterPaidEventStartsPaymentPending(t *testing.T) {
	svc, st, _ := newTestService(t)
	org := organizerUser()
	e := seedNormalEvent(t, st, org, 0)
	if err := st.UpdateEventFields(t.Context(), e.ID, map[string]any{"registration_fee": 150.0}); err != nil {
		t.Fatalf("set fee: %v", err)
	}

	ticket, err := svc.Register(t.Context(), participant(models.ParticipantIIIT), e.ID, nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if ticket.PaymentStatus != models.PaymentPending {
		t.Errorf("payment status = %q, want pending", ticket.PaymentStatus)
	}
}

func TestRegisterPreconditionOrder(t *testing.T) {
	svc, st, _ := newTestService(t)
	org := organizerUser()

	t.Run("unknown event", func(t *testing.T) {
		p := participant(models.ParticipantIIIT)
		_, err := svc.Register(t.Context(), p, primitive.NewObjectID(), nil)
		if !errors.Is(err, ErrEventNotFound) {
			t.Fatalf("err = %v, want ErrEventNotFound", err)
		}
	})

	t.Run("merchandise event rejects registration", func(t *testing.T) {
		e := seedMerchEvent(t, st, org, models.MerchItem{Name: "tee", Stock: 5, Price: 10})
		_, err := svc.Register(t.Context(), participant(models.ParticipantIIIT), e.ID, nil)
		if !errors.Is(err, ErrInvalidEventType) {
			t.Fatalf("err = %v, want ErrInvalidEventType", err)
		}
	})

	t.Run("duplicate", func(t *testing.T) {
		e := seedNormalEvent(t, st, org, 0)
		p := participant(models.ParticipantIIIT)
		if _, err := svc.Register(t.Context(), p, e.ID, nil); err != nil {
			t.Fatalf("first register: %v", err)
		}
		_, err := svc.Register(t.Context(), p, e.ID, nil)
		if !errors.Is(err, ErrDuplicateRegistration) {
			t.Fatalf("err = %v, want ErrDuplicateRegistration", err)
		}
	})

	t.Run("deadline passed", func(t *testing.T) {
		e := seedNormalEvent(t, st, org, 0)
		past := time.Now().Add(-time.Hour)
		if err := st.UpdateEventFields(t.Context(), e.ID, map[string]any{"registration_deadline": &past}); err != nil {
			t.Fatalf("set deadline: %v", err)
		}
		_, err := svc.Register(t.Context(), participant(models.ParticipantIIIT), e.ID, nil)
		if !errors.Is(err, ErrDeadlinePassed) {
			t.Fatalf("err = %v, want ErrDeadlinePassed", err)
		}
	})

	t.Run("draft event is closed", func(t *testing.T) {
		e := seedNormalEvent(t, st, org, 0)
		if err := st.UpdateEventFields(t.Context(), e.ID, map[string]any{"status": models.EventStatusDraft}); err != nil {
			t.Fatalf("set status: %v", err)
		}
		_, err := svc.Register(t.Context(), participant(models.ParticipantIIIT), e.ID, nil)
		if !errors.Is(err, ErrRegistrationClosed) {
			t.Fatalf("err = %v, want ErrRegistrationClosed", err)
		}
	})

	t.Run("capacity full", func(t *testing.T) {
		e := seedNormalEvent(t, st, org, 1)
		if _, err := svc.Register(t.Context(), participant(models.ParticipantIIIT), e.ID, nil); err != nil {
			t.Fatalf("first register: %v", err)
		}
		_, err := svc.Register(t.Context(), participant(models.ParticipantNonIIIT), e.ID, nil)
		if !errors.Is(err, ErrCapacityExceeded) {
			t.Fatalf("err = %v, want ErrCapacityExceeded", err)
		}
	})

	t.Run("eligibility", func(t *testing.T) {
		e := seedNormalEvent(t, st, org, 0)
		if err := st.UpdateEventFields(t.Context(), e.ID, map[string]any{"eligibility": models.EligibilityIIIT}); err != nil {
			t.Fatalf("set eligibility: %v", err)
		}
		_, err := svc.Register(t.Context(), participant(models.ParticipantNonIIIT), e.ID, nil)
		if !errors.Is(err, ErrNotEligible) {
			t.Fatalf("err = %v, want ErrNotEligible", err)
		}
	})

	t.Run("missing required form field", func(t *testing.T) {
		e := seedNormalEvent(t, st, org, 0)
		form := []models.FormField{{Name: "roll_no", Label: "Roll number", Type: "text", Required: true}}
		if err := st.UpdateEventFields(t.Context(), e.ID, map[string]any{"custom_form": form}); err != nil {
			t.Fatalf("set form: %v", err)
		}
		_, err := svc.Register(t.Context(), participant(models.ParticipantIIIT), e.ID, map[string]string{"roll_no": "   "})
		if KindOf(err) != KindValidation {
			t.Fatalf("err = %v, want a validation error", err)
		}
	})
}

func TestRegisterConcurrentLastSeat(t *testing.T) {
	svc, st, _ := newTestService(t)
	org := organizerUser()
	e := seedNormalEvent(t, st, org, 1)

	a := participant(models.ParticipantIIIT)
	b := participant(models.ParticipantNonIIIT)

	var wg sync.WaitGroup
	var won, lost atomic.Int32
	for _, p := range []*models.User{a, b} {
		wg.Add(1)
		go func(u *models.User) {
			defer wg.Done()
			_, err := svc.Register(t.Context(), u, e.ID, nil)
			switch {
			case err == nil:
				won.Add(1)
			case errors.Is(err, ErrCapacityExceeded):
				lost.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(p)
	}
	wg.Wait()

	if won.Load() != 1 || lost.Load() != 1 {
		t.Fatalf("won=%d lost=%d, want exactly one of each", won.Load(), lost.Load())
	}
	got, _ := st.GetEvent(t.Context(), e.ID)
	if got.RegistrationCount != 1 {
		t.Errorf("registration count = %d, want 1", got.RegistrationCount)
	}
}

func TestRegisterConcurrentNeverExceedsLimit(t *testing.T) {
	svc, st, _ := newTestService(t)
	org := organizerUser()
	const limit = 10
	const contenders = 25
	e := seedNormalEvent(t, st, org, limit)

	var wg sync.WaitGroup
	var accepted atomic.Int32
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Register(t.Context(), participant(models.ParticipantIIIT), e.ID, nil); err == nil {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()

	if accepted.Load() != limit {
		t.Errorf("accepted = %d, want %d", accepted.Load(), limit)
	}
	got, _ := st.GetEvent(t.Context(), e.ID)
	if got.RegistrationCount != limit {
		t.Errorf("registration count = %d, want %d", got.RegistrationCount, limit)
	}
	tickets, _ := st.ListEventTickets(t.Context(), e.ID)
	if len(tickets) != limit {
		t.Errorf("tickets = %d, want %d", len(tickets), limit)
	}
}

func TestFirstRegistrationLocksCustomForm(t *testing.T) {
	svc, st, _ := newTestService(t)
	org := organizerUser()
	e := seedNormalEvent(t, st, org, 0)

	if _, err := svc.Register(t.Context(), participant(models.ParticipantIIIT), e.ID, nil); err != nil {
		t.Fatalf("register: %v", err)
	}

	got, _ := st.GetEvent(t.Context(), e.ID)
	if !got.CustomFormLocked {
		t.Fatal("custom form not locked after first registration")
	}

	// The lock survives later registrations and never flips back.
	if _, err := svc.Register(t.Context(), participant(models.ParticipantNonIIIT), e.ID, nil); err != nil {
		t.Fatalf("second register: %v", err)
	}
	got, _ = st.GetEvent(t.Context(), e.ID)
	if !got.CustomFormLocked {
		t.Error("custom form lock did not persist")
	}

	err := ValidateEdit(got, []string{"custom_form"})
	if KindOf(err) != KindStateConflict {
		t.Fatalf("editing a locked form: err = %v, want state conflict", err)
	}
}
