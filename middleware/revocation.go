package middleware

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Revoker is the pluggable token-revocation store used by logout. Backed by a
// shared collection so revocation survives restarts and spans instances,
// unlike an in-process blacklist.
type Revoker interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type MongoRevoker struct {
	col *mongo.Collection
}

func NewMongoRevoker(db *mongo.Database) *MongoRevoker {
	col := db.Collection("revoked_tokens")
	// TTL index expires entries once the token itself is expired anyway.
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0).SetName("revoked_tokens_ttl"),
	})
	return &MongoRevoker{col: col}
}

func (r *MongoRevoker) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"_id": jti},
		bson.M{"$set": bson.M{"expires_at": expiresAt}},
		options.Update().SetUpsert(true))
	return err
}

func (r *MongoRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := r.col.FindOne(ctx, bson.M{"_id": jti}).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// MemRevoker is the in-memory Revoker for tests and local dev.
type MemRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewMemRevoker() *MemRevoker {
	return &MemRevoker{revoked: make(map[string]time.Time)}
}

func (r *MemRevoker) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[jti] = expiresAt
	return nil
}

func (r *MemRevoker) IsRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exp, ok := r.revoked[jti]
	if !ok {
		return false, nil
	}
	if time.Now().After(exp) {
		delete(r.revoked, jti)
		return false, nil
	}
	return true, nil
}
