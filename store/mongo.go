package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	models "github.com/rider9600/felicity-event-management-sub001/models"
)

// MongoStore implements Store on the official driver. All invariant guards are
// expressed in the update filters so the document store applies them
// atomically; a zero ModifiedCount is the losing side of a race.
type MongoStore struct {
	events  *mongo.Collection
	tickets *mongo.Collection
	teams   *mongo.Collection
	users   *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	s := &MongoStore{
		events:  db.Collection("events"),
		tickets: db.Collection("tickets"),
		teams:   db.Collection("teams"),
		users:   db.Collection("users"),
	}
	if err := s.EnsureIndexes(context.Background()); err != nil {
		log.Printf("[warn] EnsureIndexes: %v", err)
	}
	return s
}

func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("users_email_unique"),
		},
	})
	if err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}

	_, err = s.tickets.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "ticket_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("tickets_ticket_id_unique"),
		},
		{
			// One registration ticket per participant per normal event.
			// Purchases repeat, so the index is partial on kind.
			Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"kind": models.TicketKindRegistration}).
				SetName("tickets_event_user_registration_unique"),
		},
		{
			Keys:    bson.D{{Key: "team_id", Value: 1}},
			Options: options.Index().SetName("tickets_team_id"),
		},
	})
	if err != nil {
		return fmt.Errorf("tickets indexes: %w", err)
	}

	_, err = s.teams.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "invite_code", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("teams_invite_code_unique"),
		},
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}},
			Options: options.Index().SetName("teams_event_id"),
		},
	})
	if err != nil {
		return fmt.Errorf("teams indexes: %w", err)
	}
	return nil
}

func mapMongoErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

// ---------------- USERS ----------------

func (s *MongoStore) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	_, err := s.users.InsertOne(ctx, u)
	return mapMongoErr(err)
}

func (s *MongoStore) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, mapMongoErr(err)
	}
	return &u, nil
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		return nil, mapMongoErr(err)
	}
	return &u, nil
}

// ---------------- EVENTS ----------------

func (s *MongoStore) CreateEvent(ctx context.Context, e *models.Event) error {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	_, err := s.events.InsertOne(ctx, e)
	return mapMongoErr(err)
}

func (s *MongoStore) GetEvent(ctx context.Context, id primitive.ObjectID) (*models.Event, error) {
	var e models.Event
	if err := s.events.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		return nil, mapMongoErr(err)
	}
	return &e, nil
}

func (s *MongoStore) ListEvents(ctx context.Context, f EventFilter) ([]models.Event, error) {
	filter := bson.M{}
	if f.OrganizerID != nil {
		filter["organizer_id"] = *f.OrganizerID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	cursor, err := s.events.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "start_date", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var events []models.Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *MongoStore) UpdateEventFields(ctx context.Context, id primitive.ObjectID, fields map[string]any) error {
	set := bson.M{"updated_at": time.Now()}
	for k, v := range fields {
		set[k] = v
	}
	res, err := s.events.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) SetEventStatus(ctx context.Context, id primitive.ObjectID, from []string, to string) error {
	res, err := s.events.UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": from}},
		bson.M{"$set": bson.M{"status": to, "updated_at": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, err := s.GetEvent(ctx, id); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

func (s *MongoStore) DeleteEvent(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.events.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------- INVENTORY LEDGER ----------------

// noLimit matches events whose registration_limit is absent or zero.
var noLimit = bson.M{"registration_limit": bson.M{"$in": bson.A{nil, 0}}}

func (s *MongoStore) AdmitRegistration(ctx context.Context, eventID primitive.ObjectID) (int, error) {
	filter := bson.M{
		"_id":    eventID,
		"status": models.EventStatusPublished,
		"$or": bson.A{
			noLimit,
			bson.M{"$expr": bson.M{"$lt": bson.A{"$registration_count", "$registration_limit"}}},
		},
	}
	update := bson.M{
		"$inc": bson.M{"registration_count": 1},
		"$set": bson.M{"updated_at": time.Now()},
	}

	// Returns the pre-image so the caller can see whether it admitted the
	// first registration (form lock).
	var before models.Event
	err := s.events.FindOneAndUpdate(ctx, filter, update).Decode(&before)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, ErrConflict
		}
		return 0, err
	}
	return before.RegistrationCount, nil
}

func (s *MongoStore) ReleaseRegistration(ctx context.Context, eventID primitive.ObjectID) error {
	_, err := s.events.UpdateOne(ctx,
		bson.M{"_id": eventID, "registration_count": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"registration_count": -1}})
	return err
}

func (s *MongoStore) LockCustomForm(ctx context.Context, eventID primitive.ObjectID) error {
	_, err := s.events.UpdateOne(ctx,
		bson.M{"_id": eventID},
		bson.M{"$set": bson.M{"custom_form_locked": true}})
	return err
}

func itemMatch(item models.MerchItem, extra bson.M) bson.M {
	m := bson.M{
		"name":    item.Name,
		"size":    item.Size,
		"color":   item.Color,
		"variant": item.Variant,
	}
	for k, v := range extra {
		m[k] = v
	}
	return m
}

func (s *MongoStore) DecrementStock(ctx context.Context, eventID primitive.ObjectID, item models.MerchItem, qty int, amount float64) error {
	filter := bson.M{
		"_id": eventID,
		"merchandise.items": bson.M{
			"$elemMatch": itemMatch(item, bson.M{"stock": bson.M{"$gte": qty}}),
		},
	}
	update := bson.M{
		"$inc": bson.M{
			"merchandise.items.$.stock": -qty,
			"registration_count":        1,
			"revenue":                   amount,
		},
		"$set": bson.M{"updated_at": time.Now()},
	}
	res, err := s.events.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return ErrConflict
	}
	return nil
}

func (s *MongoStore) RestoreStock(ctx context.Context, eventID primitive.ObjectID, item models.MerchItem, qty int, amount float64) error {
	filter := bson.M{
		"_id":               eventID,
		"merchandise.items": bson.M{"$elemMatch": itemMatch(item, nil)},
	}
	update := bson.M{
		"$inc": bson.M{
			"merchandise.items.$.stock": qty,
			"registration_count":        -1,
			"revenue":                   -amount,
		},
	}
	_, err := s.events.UpdateOne(ctx, filter, update)
	return err
}

func (s *MongoStore) AddRegistrations(ctx context.Context, eventID primitive.ObjectID, n int) error {
	_, err := s.events.UpdateOne(ctx,
		bson.M{"_id": eventID},
		bson.M{"$inc": bson.M{"registration_count": n}})
	return err
}

// ---------------- STATUS SWEEP ----------------

func (s *MongoStore) PromoteOngoing(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.events.UpdateMany(ctx,
		bson.M{"status": models.EventStatusPublished, "start_date": bson.M{"$lte": now}},
		bson.M{"$set": bson.M{"status": models.EventStatusOngoing, "updated_at": now}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *MongoStore) CompleteEnded(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.events.UpdateMany(ctx,
		bson.M{"status": models.EventStatusOngoing, "end_date": bson.M{"$lte": now}},
		bson.M{"$set": bson.M{"status": models.EventStatusCompleted, "updated_at": now}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *MongoStore) CloseDeadlinePassed(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.events.UpdateMany(ctx,
		bson.M{
			"status":                bson.M{"$in": bson.A{models.EventStatusPublished, models.EventStatusOngoing}},
			"registration_deadline": bson.M{"$lte": now},
		},
		bson.M{"$set": bson.M{"status": models.EventStatusClosed, "updated_at": now}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// ---------------- TICKETS ----------------

func (s *MongoStore) CreateTicket(ctx context.Context, t *models.Ticket) error {
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	_, err := s.tickets.InsertOne(ctx, t)
	return mapMongoErr(err)
}

func (s *MongoStore) GetTicket(ctx context.Context, id primitive.ObjectID) (*models.Ticket, error) {
	var t models.Ticket
	if err := s.tickets.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return nil, mapMongoErr(err)
	}
	return &t, nil
}

func (s *MongoStore) GetTicketByTicketID(ctx context.Context, ticketID string) (*models.Ticket, error) {
	var t models.Ticket
	if err := s.tickets.FindOne(ctx, bson.M{"ticket_id": ticketID}).Decode(&t); err != nil {
		return nil, mapMongoErr(err)
	}
	return &t, nil
}

func (s *MongoStore) GetRegistrationTicket(ctx context.Context, eventID, userID primitive.ObjectID) (*models.Ticket, error) {
	var t models.Ticket
	err := s.tickets.FindOne(ctx, bson.M{
		"event_id": eventID,
		"user_id":  userID,
		"kind":     models.TicketKindRegistration,
	}).Decode(&t)
	if err != nil {
		return nil, mapMongoErr(err)
	}
	return &t, nil
}

func (s *MongoStore) ListEventTickets(ctx context.Context, eventID primitive.ObjectID) ([]models.Ticket, error) {
	cursor, err := s.tickets.Find(ctx, bson.M{"event_id": eventID})
	if err != nil {
		return nil, err
	}
	var tickets []models.Ticket
	if err := cursor.All(ctx, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *MongoStore) ListUserTickets(ctx context.Context, userID primitive.ObjectID) ([]models.Ticket, error) {
	cursor, err := s.tickets.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	var tickets []models.Ticket
	if err := cursor.All(ctx, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *MongoStore) CountTeamTickets(ctx context.Context, teamID primitive.ObjectID) (int, error) {
	n, err := s.tickets.CountDocuments(ctx, bson.M{"team_id": teamID})
	return int(n), err
}

func (s *MongoStore) SumPurchasedQuantity(ctx context.Context, eventID, userID primitive.ObjectID, itemName string) (int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"event_id":                   eventID,
			"user_id":                    userID,
			"kind":                       models.TicketKindPurchase,
			"purchase_details.item_name": itemName,
			"status":                     bson.M{"$ne": models.TicketStatusCancelled},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$purchase_details.quantity"},
		}}},
	}
	cursor, err := s.tickets.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	var out []struct {
		Total int `bson:"total"`
	}
	if err := cursor.All(ctx, &out); err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, nil
	}
	return out[0].Total, nil
}

func (s *MongoStore) UpdateTicket(ctx context.Context, id primitive.ObjectID, when map[string]any, set map[string]any, audit *models.AuditEntry) error {
	filter := bson.M{"_id": id}
	for k, v := range when {
		filter[k] = v
	}
	setDoc := bson.M{"updated_at": time.Now()}
	for k, v := range set {
		setDoc[k] = v
	}
	update := bson.M{"$set": setDoc}
	if audit != nil {
		update["$push"] = bson.M{"audit_log": audit}
	}
	res, err := s.tickets.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, err := s.GetTicket(ctx, id); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

// ---------------- TEAMS ----------------

func (s *MongoStore) CreateTeam(ctx context.Context, t *models.Team) error {
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	_, err := s.teams.InsertOne(ctx, t)
	return mapMongoErr(err)
}

func (s *MongoStore) GetTeam(ctx context.Context, id primitive.ObjectID) (*models.Team, error) {
	var t models.Team
	if err := s.teams.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return nil, mapMongoErr(err)
	}
	return &t, nil
}

func (s *MongoStore) GetTeamByInviteCode(ctx context.Context, eventID primitive.ObjectID, code string) (*models.Team, error) {
	var t models.Team
	err := s.teams.FindOne(ctx, bson.M{"invite_code": code, "event_id": eventID}).Decode(&t)
	if err != nil {
		return nil, mapMongoErr(err)
	}
	return &t, nil
}

// acceptedSize counts accepted members inside an update filter.
var acceptedSize = bson.M{"$size": bson.M{"$filter": bson.M{
	"input": "$members",
	"as":    "m",
	"cond":  bson.M{"$eq": bson.A{"$$m.status", models.MemberAccepted}},
}}}

func (s *MongoStore) AddTeamMember(ctx context.Context, teamID primitive.ObjectID, m models.TeamMember) error {
	filter := bson.M{
		"_id":                   teamID,
		"status":                models.TeamStatusForming,
		"registration_complete": false,
		"members.user_id":       bson.M{"$ne": m.UserID},
		"$expr":                 bson.M{"$lt": bson.A{acceptedSize, "$team_size"}},
	}
	update := bson.M{
		"$push": bson.M{"members": m},
		"$set":  bson.M{"updated_at": time.Now()},
	}
	res, err := s.teams.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		if _, err := s.GetTeam(ctx, teamID); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

func (s *MongoStore) SetMemberStatus(ctx context.Context, teamID, userID primitive.ObjectID, from, to string, joinedAt *time.Time) error {
	filter := bson.M{
		"_id":     teamID,
		"members": bson.M{"$elemMatch": bson.M{"user_id": userID, "status": from}},
	}
	set := bson.M{
		"members.$.status": to,
		"updated_at":       time.Now(),
	}
	if joinedAt != nil {
		set["members.$.joined_at"] = joinedAt
	}
	res, err := s.teams.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		if _, err := s.GetTeam(ctx, teamID); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

func (s *MongoStore) CompleteTeam(ctx context.Context, teamID primitive.ObjectID, at time.Time) (bool, error) {
	filter := bson.M{
		"_id":                   teamID,
		"registration_complete": false,
		"$expr":                 bson.M{"$eq": bson.A{acceptedSize, "$team_size"}},
	}
	update := bson.M{"$set": bson.M{
		"status":                    models.TeamStatusComplete,
		"registration_complete":     true,
		"registration_completed_at": at,
		"updated_at":                at,
	}}
	res, err := s.teams.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (s *MongoStore) MarkTeamCounted(ctx context.Context, teamID primitive.ObjectID) (bool, error) {
	res, err := s.teams.UpdateOne(ctx,
		bson.M{"_id": teamID, "registration_complete": true, "count_applied": false},
		bson.M{"$set": bson.M{"count_applied": true}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (s *MongoStore) DeleteTeam(ctx context.Context, teamID primitive.ObjectID) error {
	res, err := s.teams.DeleteOne(ctx, bson.M{"_id": teamID, "registration_complete": false})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		if _, err := s.GetTeam(ctx, teamID); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}
