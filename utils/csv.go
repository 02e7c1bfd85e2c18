package utils

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	models "github.com/rider9600/felicity-event-management-sub001/models"
)

// WriteTicketsCSV renders an event's tickets as CSV. Pure function of already
// consistent records; not part of core correctness.
func WriteTicketsCSV(w io.Writer, tickets []models.Ticket) error {
	cw := csv.NewWriter(w)
	header := []string{"ticket_id", "user_id", "kind", "status", "registration_status", "payment_status", "attended", "created_at"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, t := range tickets {
		row := []string{
			t.TicketID,
			t.UserID.Hex(),
			t.Kind,
			t.Status,
			t.RegistrationStatus,
			t.PaymentStatus,
			strconv.FormatBool(t.Attended),
			t.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
