package services

import (
	"github.com/rider9600/felicity-event-management-sub001/store"
)

// EncodeFunc renders an opaque scannable payload (base64 PNG). Failures are
// non-fatal to ticket issuance.
type EncodeFunc func(payload string) (string, error)

// Service wires the core engines to persistence, the QR collaborator and the
// domain-event emitter. Engines never call collaborators before their own
// writes commit.
type Service struct {
	store  store.Store
	encode EncodeFunc
	emit   func(DomainEvent)
}

func NewService(st store.Store, encode EncodeFunc, emit func(DomainEvent)) *Service {
	if encode == nil {
		encode = func(string) (string, error) { return "", nil }
	}
	if emit == nil {
		emit = func(DomainEvent) {}
	}
	return &Service{store: st, encode: encode, emit: emit}
}

// Store exposes the persistence layer to handlers that only read.
func (s *Service) Store() store.Store { return s.store }
