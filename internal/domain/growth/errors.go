package growth

import (
	"errors"
	"fmt"

	"github.com/cradlecare/cradlecare-hub/internal/domain/shared"
)

const domain = "growth"

// Error kinds surfaced by the engine. All match with errors.Is.
var (
	ErrInput               = shared.ErrInvalidInput
	ErrData                = shared.ErrData
	ErrConfiguration       = shared.ErrConfiguration
	ErrAdvisoryUnavailable = shared.ErrAdvisoryUnavailable
)

// Standard table errors.
var (
	ErrEmptyTable = shared.NewDomainError(domain, "NewTable", shared.ErrConfiguration, "growth standard table has no entries")
	ErrNoTable    = shared.NewDomainError(domain, "NewEngine", shared.ErrConfiguration, "growth standard table is required")
)

// InputError rejects a measurement that reached the engine unchecked.
// Field names the offending input so callers can report it.
type InputError struct {
	Field   string
	Message string
}

// NewInputError creates an InputError.
func NewInputError(field, message string) *InputError {
	return &InputError{Field: field, Message: message}
}

// Error implements the error interface.
func (e *InputError) Error() string {
	return fmt.Sprintf("growth: invalid %s: %s", e.Field, e.Message)
}

// Is matches shared.ErrInvalidInput.
func (e *InputError) Is(target error) bool {
	return target == shared.ErrInvalidInput
}

// AsInputError extracts an InputError from err.
func AsInputError(err error) (*InputError, bool) {
	var ie *InputError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

func configurationError(op, message string) error {
	return shared.NewDomainError(domain, op, shared.ErrConfiguration, message)
}

func dataError(op, message string) error {
	return shared.NewDomainError(domain, op, shared.ErrData, message)
}
