package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies errors raised by the conversion service and the relay.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindConversion ErrorKind = "conversion"
	KindStorage    ErrorKind = "storage"
	KindUnexpected ErrorKind = "unexpected"
	KindConfig     ErrorKind = "config"
)

// Error is a classified error with optional cause. With an empty Message the
// cause's text is used as is.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a classified error.
func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func ValidationError(message string) *Error {
	return NewError(KindValidation, message, nil)
}

func ConversionError(message string, err error) *Error {
	return NewError(KindConversion, message, err)
}

func NotFoundError(message string, err error) *Error {
	return NewError(KindNotFound, message, err)
}

func StorageError(message string, err error) *Error {
	return NewError(KindStorage, message, err)
}

func ConfigError(message string, err error) *Error {
	return NewError(KindConfig, message, err)
}

// KindOf returns the kind of the first classified error in err's chain, or
// KindUnexpected when there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}
