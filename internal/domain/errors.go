package domain

import (
	"errors"
	"fmt"
)

// ─── Error Kinds ────────────────────────────────────────────────────────────
// Every error returned by the gamification core unwraps to exactly one kind.
// Callers branch with errors.Is(err, ErrNotFound) and so on.

var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrBusinessRule = errors.New("business rule violation")
	ErrStorage      = errors.New("storage error")
)

// Error is a domain error tied to one of the kinds above.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// Unwrap exposes the kind so errors.Is matches both the specific and the kind.
func (e *Error) Unwrap() error { return e.Kind }

// ─── Sentinel Errors ────────────────────────────────────────────────────────

var (
	// Lookup errors
	ErrProfileNotFound = &Error{Kind: ErrNotFound, Msg: "profile not found"}
	ErrItemNotFound    = &Error{Kind: ErrNotFound, Msg: "catalog item not found"}

	// Purchase rule errors
	ErrNotPurchasable    = &Error{Kind: ErrBusinessRule, Msg: "item is not purchasable"}
	ErrAlreadyOwned      = &Error{Kind: ErrBusinessRule, Msg: "item already owned"}
	ErrInsufficientFunds = &Error{Kind: ErrBusinessRule, Msg: "insufficient points"}

	// Concurrency errors
	ErrVersionConflict = &Error{Kind: ErrConflict, Msg: "profile was modified concurrently"}

	// Catalog definition errors
	ErrInvalidCriteria = &Error{Kind: ErrValidation, Msg: "invalid criteria"}
)

// Validationf builds a validation error with a formatted message.
func Validationf(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

// StorageError marks err as a persistence failure. Errors that already carry
// a domain kind are returned unchanged.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != nil {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

// KindOf returns the kind sentinel err unwraps to, or nil for foreign errors.
func KindOf(err error) error {
	for _, k := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrBusinessRule, ErrStorage} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// KindName is the wire name of an error kind, used by the HTTP layer.
func KindName(err error) string {
	switch KindOf(err) {
	case ErrValidation:
		return "validation_error"
	case ErrNotFound:
		return "not_found"
	case ErrConflict:
		return "conflict"
	case ErrBusinessRule:
		return "business_rule"
	case ErrStorage:
		return "storage_error"
	default:
		return "error"
	}
}
