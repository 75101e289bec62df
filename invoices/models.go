package invoices

import (
	"errors"
	"fmt"

	"github.com/embercash/payflow/db"
)

type Invoice = db.Invoice

// ParseError means the input matched no known scheme. The destination
// dialog state survives it so the caller can retry with a fresh string.
type ParseError struct {
	Message string
}

func (err *ParseError) Error() string {
	return err.Message
}

func NewParseError(message string) error {
	return &ParseError{Message: message}
}

// ValidationError is a fatal validation outcome: expired invoice, missing
// amount where one is required, or a bad address checksum.
type ValidationError struct {
	Code    string
	Message string
}

func (err *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", err.Code, err.Message)
}

func NewValidationError(code string, message string) error {
	return &ValidationError{Code: code, Message: message}
}

// ValidationWarning is advisory: parsing succeeded, the caller proceeds to
// present the invoice, but should surface the condition to the user.
type ValidationWarning struct {
	Code    string
	Message string
}

type notFoundError struct {
}

func NewNotFoundError() error {
	return &notFoundError{}
}

func (err *notFoundError) Error() string {
	return "the invoice requested was not found"
}

func IsNotFoundError(err error) bool {
	var notFoundErr *notFoundError
	return errors.As(err, &notFoundErr)
}
