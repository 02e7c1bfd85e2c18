package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rider9600/felicity-event-management-sub001/store"
	utils "github.com/rider9600/felicity-event-management-sub001/utils"
)

// Domain event types. Emitted after the transactional core commits; consumed
// asynchronously, never on the request path.
const (
	EventRegistrationAccepted = "registration_accepted"
	EventPaymentApproved      = "payment_approved"
	EventTeamCompleted        = "team_completed"
)

type DomainEvent struct {
	Type     string
	EventID  primitive.ObjectID
	UserID   primitive.ObjectID
	TicketID string
	TeamID   *primitive.ObjectID
	At       time.Time
}

// Notifier consumes domain events and best-effort delivers email. Failures are
// logged and never surface to the operation that emitted the event.
type Notifier struct {
	store store.Store
	ch    chan DomainEvent
}

func NewNotifier(st store.Store, buffer int) *Notifier {
	if buffer <= 0 {
		buffer = 64
	}
	return &Notifier{store: st, ch: make(chan DomainEvent, buffer)}
}

// Emit never blocks; a full buffer drops the notification with a log line.
func (n *Notifier) Emit(ev DomainEvent) {
	select {
	case n.ch <- ev:
	default:
		logger.Warningf("notification buffer full, dropping %s for ticket %s", ev.Type, ev.TicketID)
	}
}

// Run drains the event channel until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-n.ch:
			if err := n.deliver(ctx, ev); err != nil {
				logger.Errorf("notify %s ticket=%s: %v", ev.Type, ev.TicketID, err)
			}
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, ev DomainEvent) error {
	user, err := n.store.GetUser(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("lookup recipient: %w", err)
	}
	event, err := n.store.GetEvent(ctx, ev.EventID)
	if err != nil {
		return fmt.Errorf("lookup event: %w", err)
	}

	var subject, body string
	switch ev.Type {
	case EventRegistrationAccepted:
		subject = fmt.Sprintf("Registration confirmed: %s", event.Name)
		body = fmt.Sprintf("<p>Hi %s,</p><p>Your registration for <b>%s</b> has been accepted.</p><p>Ticket ID: <b>%s</b></p>",
			user.Name, event.Name, ev.TicketID)
	case EventPaymentApproved:
		subject = fmt.Sprintf("Payment confirmed: %s", event.Name)
		body = fmt.Sprintf("<p>Hi %s,</p><p>Your payment for <b>%s</b> is confirmed.</p><p>Ticket ID: <b>%s</b></p>",
			user.Name, event.Name, ev.TicketID)
	case EventTeamCompleted:
		subject = fmt.Sprintf("Team complete: %s", event.Name)
		body = fmt.Sprintf("<p>Hi %s,</p><p>Your team for <b>%s</b> is complete and registered.</p><p>Ticket ID: <b>%s</b></p>",
			user.Name, event.Name, ev.TicketID)
	default:
		return nil
	}

	if t, err := n.store.GetTicketByTicketID(ctx, ev.TicketID); err == nil && t.QRCode != "" {
		body += fmt.Sprintf(`<p><img src="data:image/png;base64,%s" alt="ticket QR"/></p>`, t.QRCode)
	}

	return utils.SendEmail(user.Email, subject, body)
}
