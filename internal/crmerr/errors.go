// Package crmerr holds the domain error taxonomy shared by the store, the
// assignment engine, the session layer and the HTTP handlers.
package crmerr

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Kind classifies a domain error so the HTTP layer can map it to a status
// code without a type switch over every concrete error.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindDuplicateName  Kind = "duplicate_name"
	KindDuplicatePhone Kind = "duplicate_phone"
	KindDuplicateTitle Kind = "duplicate_title"
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindStorage        Kind = "storage"
	KindAuthorization  Kind = "authorization"
)

// Error is the concrete type behind every domain error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, crmerr.ErrNotFound) match any not-found error
// regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is matching by kind.
var (
	ErrValidation     = &Error{Kind: KindValidation}
	ErrDuplicateName  = &Error{Kind: KindDuplicateName}
	ErrDuplicatePhone = &Error{Kind: KindDuplicatePhone}
	ErrDuplicateTitle = &Error{Kind: KindDuplicateTitle}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrConflict       = &Error{Kind: KindConflict}
	ErrStorage        = &Error{Kind: KindStorage}
	ErrAuthorization  = &Error{Kind: KindAuthorization}
)

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func DuplicateName(name string) error {
	return &Error{Kind: KindDuplicateName, Message: fmt.Sprintf("representative name already exists: %s", name)}
}

func DuplicatePhone(phone string) error {
	return &Error{Kind: KindDuplicatePhone, Message: fmt.Sprintf("phone number already registered: %s", phone)}
}

func DuplicateTitle(title string) error {
	return &Error{Kind: KindDuplicateTitle, Message: fmt.Sprintf("site title already exists: %s", title)}
}

func NotFound(entity string, id uuid.UUID) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s not found: %s", entity, id)}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Storage wraps a backing-store failure that has no more specific meaning.
func Storage(op string, err error) error {
	return &Error{Kind: KindStorage, Message: op, Err: err}
}

func Authorization(format string, args ...any) error {
	return &Error{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of the first domain error in err's chain, or
// KindStorage for anything unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}
