package apperrors

import (
	"errors"
	"fmt"
)

// Kind is the category of a failure in the ingestion or question path
type Kind string

const (
	KindUnsupportedFormat Kind = "unsupported_format"
	KindExtraction        Kind = "extraction"
	KindEmptyDocument     Kind = "empty_document"
	KindEmbedding         Kind = "embedding"
	KindEmptyInput        Kind = "empty_input"
	KindNotFound          Kind = "not_found"
	KindValidation        Kind = "validation"
	KindInternal          Kind = "internal"
)

// Error carries a kind, a human readable message and an optional cause
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind and message to err
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

var (
	ErrUnsupportedFormat = New(KindUnsupportedFormat, "unsupported document format")
	ErrExtraction        = New(KindExtraction, "text extraction failed")
	ErrEmptyDocument     = New(KindEmptyDocument, "no usable passages in document")
	ErrEmbedding         = New(KindEmbedding, "embedding failed")
	ErrEmptyInput        = New(KindEmptyInput, "no texts to index")
	ErrDocumentNotFound  = New(KindNotFound, "document not found")
	ErrInvalidRequest    = New(KindValidation, "invalid request")
)

// DocumentNotFound names the missing identifier
func DocumentNotFound(id string) *Error {
	return New(KindNotFound, fmt.Sprintf("document not found: %s", id))
}

// UnsupportedFormat names the rejected format tag
func UnsupportedFormat(format string) *Error {
	return New(KindUnsupportedFormat, fmt.Sprintf("unsupported document format: %q (supported: pdf, docx)", format))
}

// KindOf returns the kind of err, or "" when err is not an *Error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
