package services

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/rider9600/felicity-event-management-sub001/models"
	"github.com/rider9600/felicity-event-management-sub001/store"
)

// ItemSelector fully qualifies one merchandise variant; ambiguity is not
// possible.
type ItemSelector struct {
	Name    string `json:"name" binding:"required"`
	Size    string `json:"size"`
	Color   string `json:"color"`
	Variant string `json:"variant"`
}

// Purchase admits a merchandise purchase. The stock decrement, registration
// counter and revenue are one conditional atomic update
// (decrement-if-sufficient); a lost race surfaces as a retryable stock
// conflict, never as oversold inventory.
func (s *Service) Purchase(ctx context.Context, participant *models.User, eventID primitive.ObjectID, sel ItemSelector, qty int) (*models.Ticket, error) {
	now := time.Now()

	if qty < 1 {
		return nil, errf(KindValidation, "quantity must be at least 1")
	}

	e, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, ErrEventNotFound
	}
	if e.Type != models.EventTypeMerchandise {
		return nil, ErrInvalidEventType
	}
	if e.Status != models.EventStatusPublished {
		return nil, ErrRegistrationClosed
	}
	if e.RegistrationDeadline != nil && !e.RegistrationDeadline.After(now) {
		return nil, ErrDeadlinePassed
	}

	idx := e.FindItem(sel.Name, sel.Size, sel.Color, sel.Variant)
	if idx < 0 {
		return nil, errf(KindNotFound, "no item matches the given selection")
	}
	item := e.Merchandise.Items[idx]
	if item.Stock <= 0 {
		return nil, errf(KindStockConflict, "%s is sold out", item.Name)
	}
	if item.Stock < qty {
		return nil, errf(KindStockConflict, "only %d of %s left", item.Stock, item.Name)
	}

	if item.PurchaseLimit > 0 {
		prior, err := s.store.SumPurchasedQuantity(ctx, eventID, participant.ID, item.Name)
		if err != nil {
			return nil, err
		}
		if prior+qty > item.PurchaseLimit {
			remaining := item.PurchaseLimit - prior
			if remaining < 0 {
				remaining = 0
			}
			return nil, errf(KindCapacity, "purchase limit for %s is %d, %d remaining", item.Name, item.PurchaseLimit, remaining)
		}
	}

	amount := item.Price * float64(qty)

	// Decrement-by-qty-only-if-stock-sufficient; the same update bumps the
	// registration counter and revenue so the three change together.
	if err := s.store.DecrementStock(ctx, eventID, item, qty, amount); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrStockConflict
		}
		return nil, err
	}

	payment := models.PaymentPaid
	if e.RequiresPaymentProof {
		payment = models.PaymentPendingApproval
	}
	ticketID := newTicketID()
	t := &models.Ticket{
		TicketID:      ticketID,
		EventID:       eventID,
		UserID:        participant.ID,
		Kind:          models.TicketKindPurchase,
		Status:        models.TicketStatusActive,
		PaymentStatus: payment,
		QRCode:        s.issueQR(ticketID, eventID, participant.ID, item.Name),
		PurchaseDetails: &models.PurchaseDetails{
			ItemName: item.Name,
			Size:     item.Size,
			Color:    item.Color,
			Variant:  item.Variant,
			Quantity: qty,
			Price:    amount,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateTicket(ctx, t); err != nil {
		_ = s.store.RestoreStock(ctx, eventID, item, qty, amount)
		return nil, err
	}

	if payment == models.PaymentPaid {
		s.emit(DomainEvent{
			Type:     EventPaymentApproved,
			EventID:  eventID,
			UserID:   participant.ID,
			TicketID: ticketID,
			At:       now,
		})
	}
	return t, nil
}
