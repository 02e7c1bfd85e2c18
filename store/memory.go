package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/rider9600/felicity-event-management-sub001/models"
)

// MemStore is an in-memory Store with the same conditional-update semantics as
// MongoStore, guarded by a single mutex. Used by unit tests and local dev runs
// without a database.
type MemStore struct {
	mu      sync.Mutex
	events  map[primitive.ObjectID]*models.Event
	tickets map[primitive.ObjectID]*models.Ticket
	teams   map[primitive.ObjectID]*models.Team
	users   map[primitive.ObjectID]*models.User
}

func NewMemStore() *MemStore {
	return &MemStore{
		events:  make(map[primitive.ObjectID]*models.Event),
		tickets: make(map[primitive.ObjectID]*models.Ticket),
		teams:   make(map[primitive.ObjectID]*models.Team),
		users:   make(map[primitive.ObjectID]*models.User),
	}
}

// Copies keep callers from mutating stored documents outside the lock.

func copyEvent(e *models.Event) *models.Event {
	c := *e
	c.CustomForm = append([]models.FormField(nil), e.CustomForm...)
	c.Merchandise.Items = append([]models.MerchItem(nil), e.Merchandise.Items...)
	c.Images = append([]string(nil), e.Images...)
	return &c
}

func copyTicket(t *models.Ticket) *models.Ticket {
	c := *t
	if t.FormData != nil {
		c.FormData = make(map[string]string, len(t.FormData))
		for k, v := range t.FormData {
			c.FormData[k] = v
		}
	}
	if t.PurchaseDetails != nil {
		pd := *t.PurchaseDetails
		c.PurchaseDetails = &pd
	}
	c.AuditLog = append([]models.AuditEntry(nil), t.AuditLog...)
	return &c
}

func copyTeam(t *models.Team) *models.Team {
	c := *t
	c.Members = append([]models.TeamMember(nil), t.Members...)
	return &c
}

// ---------------- USERS ----------------

func (s *MemStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return ErrDuplicate
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *MemStore) GetUser(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// ---------------- EVENTS ----------------

func (s *MemStore) CreateEvent(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	s.events[e.ID] = copyEvent(e)
	return nil
}

func (s *MemStore) GetEvent(_ context.Context, id primitive.ObjectID) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyEvent(e), nil
}

func (s *MemStore) ListEvents(_ context.Context, f EventFilter) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Event
	for _, e := range s.events {
		if f.OrganizerID != nil && e.OrganizerID != *f.OrganizerID {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		out = append(out, *copyEvent(e))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].StartDate, out[j].StartDate
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		return a.Before(*b)
	})
	return out, nil
}

func (s *MemStore) UpdateEventFields(_ context.Context, id primitive.ObjectID, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "name":
			e.Name = v.(string)
		case "description":
			e.Description = v.(string)
		case "eligibility":
			e.Eligibility = v.(string)
		case "registration_deadline":
			e.RegistrationDeadline = v.(*time.Time)
		case "start_date":
			e.StartDate = v.(*time.Time)
		case "end_date":
			e.EndDate = v.(*time.Time)
		case "registration_limit":
			e.RegistrationLimit = v.(int)
		case "registration_fee":
			e.RegistrationFee = v.(float64)
		case "custom_form":
			e.CustomForm = v.([]models.FormField)
		case "merchandise":
			e.Merchandise = v.(models.Merchandise)
		case "requires_payment_proof":
			e.RequiresPaymentProof = v.(bool)
		case "images":
			e.Images = v.([]string)
		case "status":
			e.Status = v.(string)
		}
	}
	e.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) SetEventStatus(_ context.Context, id primitive.ObjectID, from []string, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return ErrNotFound
	}
	for _, f := range from {
		if e.Status == f {
			e.Status = to
			e.UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrConflict
}

func (s *MemStore) DeleteEvent(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return ErrNotFound
	}
	delete(s.events, id)
	return nil
}

// ---------------- INVENTORY LEDGER ----------------

func (s *MemStore) AdmitRegistration(_ context.Context, eventID primitive.ObjectID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok {
		return 0, ErrConflict
	}
	if e.Status != models.EventStatusPublished {
		return 0, ErrConflict
	}
	if e.RegistrationLimit > 0 && e.RegistrationCount >= e.RegistrationLimit {
		return 0, ErrConflict
	}
	prev := e.RegistrationCount
	e.RegistrationCount++
	e.UpdatedAt = time.Now()
	return prev, nil
}

func (s *MemStore) ReleaseRegistration(_ context.Context, eventID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.events[eventID]; ok && e.RegistrationCount > 0 {
		e.RegistrationCount--
	}
	return nil
}

func (s *MemStore) LockCustomForm(_ context.Context, eventID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.events[eventID]; ok {
		e.CustomFormLocked = true
	}
	return nil
}

func sameItem(a, b models.MerchItem) bool {
	return a.Name == b.Name && a.Size == b.Size && a.Color == b.Color && a.Variant == b.Variant
}

func (s *MemStore) DecrementStock(_ context.Context, eventID primitive.ObjectID, item models.MerchItem, qty int, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok {
		return ErrConflict
	}
	for i := range e.Merchandise.Items {
		it := &e.Merchandise.Items[i]
		if !sameItem(*it, item) {
			continue
		}
		if it.Stock < qty {
			return ErrConflict
		}
		it.Stock -= qty
		e.RegistrationCount++
		e.Revenue += amount
		e.UpdatedAt = time.Now()
		return nil
	}
	return ErrConflict
}

func (s *MemStore) RestoreStock(_ context.Context, eventID primitive.ObjectID, item models.MerchItem, qty int, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok {
		return nil
	}
	for i := range e.Merchandise.Items {
		it := &e.Merchandise.Items[i]
		if sameItem(*it, item) {
			it.Stock += qty
			e.RegistrationCount--
			e.Revenue -= amount
			return nil
		}
	}
	return nil
}

func (s *MemStore) AddRegistrations(_ context.Context, eventID primitive.ObjectID, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.events[eventID]; ok {
		e.RegistrationCount += n
		e.UpdatedAt = time.Now()
	}
	return nil
}

// ---------------- STATUS SWEEP ----------------

func (s *MemStore) PromoteOngoing(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, e := range s.events {
		if e.Status == models.EventStatusPublished && e.StartDate != nil && !e.StartDate.After(now) {
			e.Status = models.EventStatusOngoing
			e.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (s *MemStore) CompleteEnded(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, e := range s.events {
		if e.Status == models.EventStatusOngoing && e.EndDate != nil && !e.EndDate.After(now) {
			e.Status = models.EventStatusCompleted
			e.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (s *MemStore) CloseDeadlinePassed(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, e := range s.events {
		if (e.Status == models.EventStatusPublished || e.Status == models.EventStatusOngoing) &&
			e.RegistrationDeadline != nil && !e.RegistrationDeadline.After(now) {
			e.Status = models.EventStatusClosed
			e.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

// ---------------- TICKETS ----------------

func (s *MemStore) CreateTicket(_ context.Context, t *models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.tickets {
		if existing.TicketID == t.TicketID {
			return ErrDuplicate
		}
		if t.Kind == models.TicketKindRegistration &&
			existing.Kind == models.TicketKindRegistration &&
			existing.EventID == t.EventID && existing.UserID == t.UserID {
			return ErrDuplicate
		}
	}
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	s.tickets[t.ID] = copyTicket(t)
	return nil
}

func (s *MemStore) GetTicket(_ context.Context, id primitive.ObjectID) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyTicket(t), nil
}

func (s *MemStore) GetTicketByTicketID(_ context.Context, ticketID string) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tickets {
		if t.TicketID == ticketID {
			return copyTicket(t), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemStore) GetRegistrationTicket(_ context.Context, eventID, userID primitive.ObjectID) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tickets {
		if t.Kind == models.TicketKindRegistration && t.EventID == eventID && t.UserID == userID {
			return copyTicket(t), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemStore) ListEventTickets(_ context.Context, eventID primitive.ObjectID) ([]models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Ticket
	for _, t := range s.tickets {
		if t.EventID == eventID {
			out = append(out, *copyTicket(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemStore) ListUserTickets(_ context.Context, userID primitive.ObjectID) ([]models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Ticket
	for _, t := range s.tickets {
		if t.UserID == userID {
			out = append(out, *copyTicket(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemStore) CountTeamTickets(_ context.Context, teamID primitive.ObjectID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tickets {
		if t.TeamID != nil && *t.TeamID == teamID {
			n++
		}
	}
	return n, nil
}

func (s *MemStore) SumPurchasedQuantity(_ context.Context, eventID, userID primitive.ObjectID, itemName string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, t := range s.tickets {
		if t.Kind != models.TicketKindPurchase || t.EventID != eventID || t.UserID != userID {
			continue
		}
		if t.Status == models.TicketStatusCancelled || t.PurchaseDetails == nil {
			continue
		}
		if strings.EqualFold(t.PurchaseDetails.ItemName, itemName) {
			total += t.PurchaseDetails.Quantity
		}
	}
	return total, nil
}

func ticketFieldMatches(t *models.Ticket, key string, want any) bool {
	switch key {
	case "status":
		return t.Status == want.(string)
	case "registration_status":
		return t.RegistrationStatus == want.(string)
	case "payment_status":
		return t.PaymentStatus == want.(string)
	case "attended":
		return t.Attended == want.(bool)
	default:
		return false
	}
}

func (s *MemStore) UpdateTicket(_ context.Context, id primitive.ObjectID, when map[string]any, set map[string]any, audit *models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range when {
		if !ticketFieldMatches(t, k, v) {
			return ErrConflict
		}
	}
	for k, v := range set {
		switch k {
		case "status":
			t.Status = v.(string)
		case "registration_status":
			t.RegistrationStatus = v.(string)
		case "payment_status":
			t.PaymentStatus = v.(string)
		case "attended":
			t.Attended = v.(bool)
		case "attended_at":
			t.AttendedAt = v.(*time.Time)
		case "qr_code":
			t.QRCode = v.(string)
		}
	}
	if audit != nil {
		t.AuditLog = append(t.AuditLog, *audit)
	}
	t.UpdatedAt = time.Now()
	return nil
}

// ---------------- TEAMS ----------------

func (s *MemStore) CreateTeam(_ context.Context, t *models.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.teams {
		if existing.InviteCode == t.InviteCode {
			return ErrDuplicate
		}
	}
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	s.teams[t.ID] = copyTeam(t)
	return nil
}

func (s *MemStore) GetTeam(_ context.Context, id primitive.ObjectID) (*models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyTeam(t), nil
}

func (s *MemStore) GetTeamByInviteCode(_ context.Context, eventID primitive.ObjectID, code string) (*models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.teams {
		if t.InviteCode == code && t.EventID == eventID {
			return copyTeam(t), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemStore) AddTeamMember(_ context.Context, teamID primitive.ObjectID, m models.TeamMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return ErrNotFound
	}
	if t.Status != models.TeamStatusForming || t.RegistrationComplete {
		return ErrConflict
	}
	if t.Member(m.UserID) != nil {
		return ErrConflict
	}
	if t.AcceptedCount() >= t.TeamSize {
		return ErrConflict
	}
	t.Members = append(t.Members, m)
	t.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) SetMemberStatus(_ context.Context, teamID, userID primitive.ObjectID, from, to string, joinedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return ErrNotFound
	}
	m := t.Member(userID)
	if m == nil || m.Status != from {
		if m == nil {
			return ErrNotFound
		}
		return ErrConflict
	}
	m.Status = to
	if joinedAt != nil {
		m.JoinedAt = joinedAt
	}
	t.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) CompleteTeam(_ context.Context, teamID primitive.ObjectID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return false, ErrNotFound
	}
	if t.RegistrationComplete || t.AcceptedCount() != t.TeamSize {
		return false, nil
	}
	t.Status = models.TeamStatusComplete
	t.RegistrationComplete = true
	completedAt := at
	t.RegistrationCompletedAt = &completedAt
	t.UpdatedAt = at
	return true, nil
}

func (s *MemStore) MarkTeamCounted(_ context.Context, teamID primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return false, ErrNotFound
	}
	if !t.RegistrationComplete || t.CountApplied {
		return false, nil
	}
	t.CountApplied = true
	return true, nil
}

func (s *MemStore) DeleteTeam(_ context.Context, teamID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return ErrNotFound
	}
	if t.RegistrationComplete {
		return ErrConflict
	}
	delete(s.teams, teamID)
	return nil
}
