// Package importerr defines the closed error taxonomy of the import pipeline.
// Every failure carries a numeric Status that callers key off of.
package importerr

import (
	"errors"
	"fmt"
)

// Status classifies the terminal disposition of a file.
type Status int

const (
	StatusOK               Status = 0 // success
	StatusNoImplementation Status = 1 // no implementation found or empty document
	StatusAmbiguous        Status = 2 // more than one implementation matched
	StatusParseFailed      Status = 3 // value-level parsing error inside an implementation
	StatusUnsupportedType  Status = 4 // file extension not accepted
	StatusNoActivities     Status = 5 // parsed but zero activities produced
	StatusInvalidActivity  Status = 6 // one or more activities invalid; document discarded
	StatusIgnoredDocument  Status = 7 // document intentionally ignored by an implementation
)

var statusText = map[Status]string{
	StatusOK:               "success",
	StatusNoImplementation: "no implementation found",
	StatusAmbiguous:        "multiple implementations matched",
	StatusParseFailed:      "parsing error",
	StatusUnsupportedType:  "unsupported file extension",
	StatusNoActivities:     "no activities found",
	StatusInvalidActivity:  "invalid activities",
	StatusIgnoredDocument:  "document ignored",
}

func (s Status) String() string {
	if t, ok := statusText[s]; ok {
		return t
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Kind is the category of a failure.
type Kind string

const (
	KindDocument           Kind = "document"
	KindParser             Kind = "parser"
	KindActivityValidation Kind = "activity_validation"
)

// Error is a typed import failure.
type Error struct {
	Kind    Kind
	Status  Status
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error (status %d): %s: %v", e.Kind, e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error (status %d): %s", e.Kind, e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same Kind and Status, so sentinel-style
// comparisons like errors.Is(err, ErrAmbiguous) work on wrapped errors.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Status == e.Status && t.Message == ""
}

// Sentinels for errors.Is checks. They carry no message.
var (
	ErrNoImplementation = &Error{Kind: KindDocument, Status: StatusNoImplementation}
	ErrAmbiguous        = &Error{Kind: KindDocument, Status: StatusAmbiguous}
	ErrUnsupportedType  = &Error{Kind: KindDocument, Status: StatusUnsupportedType}
	ErrIgnoredDocument  = &Error{Kind: KindDocument, Status: StatusIgnoredDocument}
	ErrParseFailed      = &Error{Kind: KindParser, Status: StatusParseFailed}
)

// NewDocumentError reports a file-level failure.
func NewDocumentError(status Status, format string, args ...any) *Error {
	return &Error{Kind: KindDocument, Status: status, Message: fmt.Sprintf(format, args...)}
}

// NewParserError reports a value an implementation could not interpret.
func NewParserError(format string, args ...any) *Error {
	return &Error{Kind: KindParser, Status: StatusParseFailed, Message: fmt.Sprintf(format, args...)}
}

// WrapParserError wraps cause as a parser error.
func WrapParserError(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindParser, Status: StatusParseFailed, Message: fmt.Sprintf(format, args...), Err: cause}
}

// NewActivityValidationError reports an activity that failed semantic
// validation. Raised directly it maps to status 3.
func NewActivityValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindActivityValidation, Status: StatusParseFailed, Message: fmt.Sprintf(format, args...)}
}

// StatusOf extracts the status carried by a typed error anywhere in the chain.
func StatusOf(err error) (Status, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Status, true
	}
	return 0, false
}

// KindOf extracts the kind carried by a typed error anywhere in the chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
