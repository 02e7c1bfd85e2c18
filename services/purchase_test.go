package services

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	models "github.com/rider9600/felicity-event-management-sub001/models"
)

func TestPurchaseIssuesTicketAndUpdatesLedger(t *testing.T) {
	svc, st, rec := newTestService(t)
	org := organizerUser()
	e := seedMerchEvent(t, st, org, models.MerchItem{Name: "hoodie", Size: "M", Color: "black", Price: 40, Stock: 5})
	p := participant(models.ParticipantIIIT)

	ticket, err := svc.Purchase(t.Context(), p, e.ID, ItemSelector{Name: "hoodie", Size: "M", Color: "black"}, 2)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if ticket.Kind != models.TicketKindPurchase {
		t.Errorf("kind = %q, want purchase", ticket.Kind)
	}
	if ticket.PaymentStatus != models.PaymentPaid {
		t.Errorf("payment status = %q, want paid", ticket.PaymentStatus)
	}
	if ticket.PurchaseDetails == nil || ticket.PurchaseDetails.Quantity != 2 || ticket.PurchaseDetails.Price != 80 {
		t.Errorf("purchase details = %+v, want qty 2 price 80", ticket.PurchaseDetails)
	}

	got, _ := st.GetEvent(t.Context(), e.ID)
	if got.Merchandise.Items[0].Stock != 3 {
		t.Errorf("stock = %d, want 3", got.Merchandise.Items[0].Stock)
	}
	if got.RegistrationCount != 1 {
		t.Errorf("registration count = %d, want 1", got.RegistrationCount)
	}
	if got.Revenue != 80 {
		t.Errorf("revenue = %.2f, want 80", got.Revenue)
	}

	if n := len(rec.byType(EventPaymentApproved)); n != 1 {
		t.Errorf("payment events = %d, want 1", n)
	}
}

func TestPurchaseRequiresProofDefersPayment(t *testing.T) {
	svc, st, rec := newTestService(t)
	org := organizerUser()
	e := seedMerchEvent(t, st, org, models.MerchItem{Name: "cap", Price: 15, Stock: 10})
	if err := st.UpdateEventFields(t.Context(), e.ID, map[string]any{"requires_payment_proof": true}); err != nil {
		t.Fatalf("set proof flag: %v", err)
	}

	ticket, err := svc.Purchase(t.Context(), participant(models.ParticipantIIIT), e.ID, ItemSelector{Name: "cap"}, 1)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if ticket.PaymentStatus != models.PaymentPendingApproval {
		t.Errorf("payment status = %q, want pending_approval", ticket.PaymentStatus)
	}
	if n := len(rec.byType(EventPaymentApproved)); n != 0 {
		t.Errorf("payment events = %d, want none until approval", n)
	}
}

func TestPurchaseValidation(t *testing.T) {
	svc, st, _ := newTestService(t)
	org := organizerUser()
	e := seedMerchEvent(t, st, org,
		models.MerchItem{Name: "tee", Size: "S", Price: 20, Stock: 0},
		models.MerchItem{Name: "tee", Size: "L", Price: 20, Stock: 2},
	)
	p := participant(models.ParticipantIIIT)

	t.Run("zero quantity", func(t *testing.T) {
		_, err := svc.Purchase(t.Context(), p, e.ID, ItemSelector{Name: "tee", Size: "L"}, 0)
		if KindOf(err) != KindValidation {
			t.Fatalf("err = %v, want validation", err)
		}
	})

	t.Run("unknown variant", func(t *testing.T) {
		_, err := svc.Purchase(t.Context(), p, e.ID, ItemSelector{Name: "tee", Size: "XL"}, 1)
		if KindOf(err) != KindNotFound {
			t.Fatalf("err = %v, want not found", err)
		}
	})

	t.Run("sold out", func(t *testing.T) {
		_, err := svc.Purchase(t.Context(), p, e.ID, ItemSelector{Name: "tee", Size: "S"}, 1)
		if KindOf(err) != KindStockConflict {
			t.Fatalf("err = %v, want stock conflict", err)
		}
		if !strings.Contains(err.Error(), "sold out") {
			t.Errorf("message %q should mention sold out", err.Error())
		}
	})

	t.Run("insufficient stock for quantity", func(t *testing.T) {
		_, err := svc.Purchase(t.Context(), p, e.ID, ItemSelector{Name: "tee", Size: "L"}, 3)
		if KindOf(err) != KindStockConflict {
			t.Fatalf("err = %v, want stock conflict", err)
		}
	})

	t.Run("normal event rejects purchase", func(t *testing.T) {
		ne := seedNormalEvent(t, st, org, 0)
		_, err := svc.Purchase(t.Context(), p, ne.ID, ItemSelector{Name: "tee"}, 1)
		if !errors.Is(err, ErrInvalidEventType) {
			t.Fatalf("err = %v, want ErrInvalidEventType", err)
		}
	})
}

func TestPurchaseLimitPerParticipant(t *testing.T) {
	svc, st, _ := newTestService(t)
	org := organizerUser()
	e := seedMerchEvent(t, st, org, models.MerchItem{Name: "mug", Price: 10, Stock: 3, PurchaseLimit: 2})
	p := participant(models.ParticipantIIIT)

	if _, err := svc.Purchase(t.Context(), p, e.ID, ItemSelector{Name: "mug"}, 2); err != nil {
		t.Fatalf("first purchase: %v", err)
	}

	_, err := svc.Purchase(t.Context(), p, e.ID, ItemSelector{Name: "mug"}, 2)
	if KindOf(err) != KindCapacity {
		t.Fatalf("err = %v, want capacity", err)
	}
	if !strings.Contains(err.Error(), "0 remaining") {
		t.Errorf("message %q should report 0 remaining", err.Error())
	}

	// Stock untouched by the denied attempt.
	got, _ := st.GetEvent(t.Context(), e.ID)
	if got.Merchandise.Items[0].Stock != 1 {
		t.Errorf("stock = %d, want 1", got.Merchandise.Items[0].Stock)
	}

	// Another participant can still buy the remaining unit.
	if _, err := svc.Purchase(t.Context(), participant(models.ParticipantNonIIIT), e.ID, ItemSelector{Name: "mug"}, 1); err != nil {
		t.Fatalf("other participant: %v", err)
	}
}

func TestPurchaseConcurrentStockNeverNegative(t *testing.T) {
	svc, st, _ := newTestService(t)
	org := organizerUser()
	const stock = 7
	const buyers = 20
	e := seedMerchEvent(t, st, org, models.MerchItem{Name: "badge", Price: 5, Stock: stock})

	var wg sync.WaitGroup
	var sold atomic.Int32
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Purchase(t.Context(), participant(models.ParticipantIIIT), e.ID, ItemSelector{Name: "badge"}, 1)
			switch {
			case err == nil:
				sold.Add(1)
			case KindOf(err) == KindStockConflict:
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if sold.Load() != stock {
		t.Errorf("sold = %d, want %d", sold.Load(), stock)
	}
	got, _ := st.GetEvent(t.Context(), e.ID)
	if got.Merchandise.Items[0].Stock != 0 {
		t.Errorf("stock = %d, want 0", got.Merchandise.Items[0].Stock)
	}
	if got.Revenue != float64(stock)*5 {
		t.Errorf("revenue = %.2f, want %.2f", got.Revenue, float64(stock)*5)
	}
}
