package services

import (
	"errors"
	"fmt"
)

// Kind is the machine-checkable class of a core error.
type Kind string

const (
	KindValidation    Kind = "validation"     // bad or missing input, user-correctable
	KindStateConflict Kind = "state_conflict" // entity not in a state permitting the operation
	KindCapacity      Kind = "capacity"       // registration limit or purchase allowance exhausted
	KindStockConflict Kind = "stock_conflict" // lost a concurrency race on stock; retryable
	KindAuthorization Kind = "authorization"  // caller lacks role or ownership
	KindNotFound      Kind = "not_found"      // id does not resolve
	KindDependency    Kind = "dependency"     // collaborator failed; non-fatal unless payload is meaningless
)

// Error carries a kind plus a human-readable reason.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string { return e.Reason }

// Is matches on kind so sentinels work through wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Reason == e.Reason
}

func errf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from any error in the chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

var (
	ErrEventNotFound         = &Error{Kind: KindNotFound, Reason: "event not found"}
	ErrTicketNotFound        = &Error{Kind: KindNotFound, Reason: "ticket not found"}
	ErrTeamNotFound          = &Error{Kind: KindNotFound, Reason: "team not found"}
	ErrInvalidEventType      = &Error{Kind: KindValidation, Reason: "operation not valid for this event type"}
	ErrDuplicateRegistration = &Error{Kind: KindStateConflict, Reason: "already registered for this event"}
	ErrDeadlinePassed        = &Error{Kind: KindStateConflict, Reason: "registration deadline has passed"}
	ErrRegistrationClosed    = &Error{Kind: KindStateConflict, Reason: "registration is not open"}
	ErrCapacityExceeded      = &Error{Kind: KindCapacity, Reason: "event is full"}
	ErrNotEligible           = &Error{Kind: KindValidation, Reason: "participant does not meet event eligibility"}
	ErrStockConflict         = &Error{Kind: KindStockConflict, Reason: "item sold out or claimed by another buyer, try again"}
	ErrEditNotAllowed        = &Error{Kind: KindStateConflict, Reason: "event status does not permit this edit"}
	ErrTeamFull              = &Error{Kind: KindCapacity, Reason: "team is full"}
	ErrAlreadyMember         = &Error{Kind: KindStateConflict, Reason: "already a member of this team"}
	ErrNoPendingInvite       = &Error{Kind: KindStateConflict, Reason: "no pending invite for this team"}
	ErrTeamLocked            = &Error{Kind: KindStateConflict, Reason: "team registration is complete and can no longer change"}
	ErrTicketGeneration      = &Error{Kind: KindDependency, Reason: "some team tickets could not be generated; retry reconciliation"}
	ErrNotOwner              = &Error{Kind: KindAuthorization, Reason: "caller does not own this resource"}
)
