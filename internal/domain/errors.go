package domain

import "errors"

// Kinds. Match with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrAuth       = errors.New("unauthorized")
	ErrStorage    = errors.New("storage error")
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

// Error is a domain error: Kind is one of the sentinels above, Msg is safe to show a client,
// Err is the cause and is never rendered.
type Error struct {
	Kind   error
	Msg    string
	Fields []FieldError
	Err    error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func Validation(msg string, fields ...FieldError) error {
	return &Error{Kind: ErrValidation, Msg: msg, Fields: fields}
}
func Conflict(msg string) error     { return &Error{Kind: ErrConflict, Msg: msg} }
func NotFound(msg string) error     { return &Error{Kind: ErrNotFound, Msg: msg} }
func Unauthorized(msg string) error { return &Error{Kind: ErrAuth, Msg: msg} }
func Storage(msg string, err error) error {
	return &Error{Kind: ErrStorage, Msg: msg, Err: err}
}

// FieldsOf returns the field violations carried by a validation error, if any.
func FieldsOf(err error) []FieldError {
	var de *Error
	if errors.As(err, &de) {
		return de.Fields
	}
	return nil
}
