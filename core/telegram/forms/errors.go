package forms

import (
	"errors"
	"fmt"
)

// Sentinels matched with errors.Is against the typed errors below.
var (
	ErrRegistration = errors.New("forms: registration failed")
	ErrLookup       = errors.New("forms: not found")
	ErrValidation   = errors.New("forms: validation failed")
	ErrUnsupported  = errors.New("forms: unsupported entity")
)

// RegistrationError reports an entity that cannot be added to a Registry.
type RegistrationError struct {
	ID     string
	Reason string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("forms: register %q: %s", e.ID, e.Reason)
}

// Code is used by the router when deriving err_code.
func (e *RegistrationError) Code() string { return "registration_error" }

func (e *RegistrationError) Is(target error) bool { return target == ErrRegistration }

// LookupError reports an unknown entity id or state token.
type LookupError struct {
	What string
	ID   string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("forms: %s %q not registered", e.What, e.ID)
}

func (e *LookupError) Code() string { return "lookup_error" }

func (e *LookupError) Is(target error) bool { return target == ErrLookup }

// ValidationError is a rejected input. Rule is the failing validator code.
type ValidationError struct {
	Field string
	Rule  string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("forms: field %q failed %s: %v", e.Field, e.Rule, e.Err)
	}
	return fmt.Sprintf("forms: field %q failed %s", e.Field, e.Rule)
}

func (e *ValidationError) Code() string { return "validation_" + e.Rule }

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// UnsupportedEntityError is returned when an entity kind has no driver.
type UnsupportedEntityError struct {
	ID   string
	Kind Kind
}

func (e *UnsupportedEntityError) Error() string {
	return fmt.Sprintf("forms: entity %q has unsupported kind %s", e.ID, e.Kind)
}

func (e *UnsupportedEntityError) Code() string { return "unsupported_entity" }

func (e *UnsupportedEntityError) Is(target error) bool { return target == ErrUnsupported }
