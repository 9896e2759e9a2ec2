package field

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrUnsupportedType      = errors.New("unsupported file type")
	ErrTransferFailed       = errors.New("transfer failed")
	ErrHooksSealed          = errors.New("hooks are sealed")
)

// UnsupportedTypeError is returned for a file whose content type is not in
// the field's allow-list.
type UnsupportedTypeError struct {
	ContentType string
}

func (e *UnsupportedTypeError) Error() string {
	return "Unsupported File Type: " + e.ContentType
}

func (e *UnsupportedTypeError) Unwrap() error {
	return ErrUnsupportedType
}

// PhaseError reports which step of a hook chain failed.
type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}
