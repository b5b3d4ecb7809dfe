// Package errs defines the error taxonomy shared by the storage facade layers.
//
// Every error returned by the service is either one of the sentinel kinds below or an
// *Error that wraps a kind together with the operation, the object location and the
// underlying cause. errors.Is matches both the kind and the cause.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks a missing or invalid configuration field.
	ErrConfiguration = errors.New("configuration error")
	// ErrStore marks a request the backend rejected or failed.
	ErrStore = errors.New("store error")
	// ErrNotFound marks a key that does not exist.
	ErrNotFound = errors.New("object not found")
	// ErrDecode marks a payload that does not match its declared format.
	ErrDecode = errors.New("decode error")
	// ErrValidation marks a caller argument that violates an input contract.
	ErrValidation = errors.New("validation error")
)

// Error carries an error kind with the context it happened in.
type Error struct {
	Kind     error
	Op       string
	Location string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Location != "" {
		fmt.Fprintf(&b, " (location %q)", e.Location)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Store wraps a backend failure.
func Store(op, location string, err error) error {
	return &Error{Kind: ErrStore, Op: op, Location: location, Err: err}
}

// NotFound reports a missing key.
func NotFound(op, location string, err error) error {
	return &Error{Kind: ErrNotFound, Op: op, Location: location, Err: err}
}

// Decode wraps a payload that could not be decoded.
func Decode(op, location string, err error) error {
	return &Error{Kind: ErrDecode, Op: op, Location: location, Err: err}
}

// Validation reports an invalid caller argument.
func Validation(op, location, msg string) error {
	return &Error{Kind: ErrValidation, Op: op, Location: location, Err: errors.New(msg)}
}

// Configuration reports missing or invalid configuration fields.
func Configuration(msg string) error {
	return &Error{Kind: ErrConfiguration, Err: errors.New(msg)}
}

// Is* helpers keep call sites short.

func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsDecode(err error) bool     { return errors.Is(err, ErrDecode) }
func IsStore(err error) bool      { return errors.Is(err, ErrStore) }
