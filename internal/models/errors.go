package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies booklet failures so callers can map them to a response.
type ErrorKind string

const (
	KindInputValidation ErrorKind = "input_validation"
	KindExtraction      ErrorKind = "extraction"
	KindCleaning        ErrorKind = "cleaning"
	KindSynthesis       ErrorKind = "synthesis"
	KindDescription     ErrorKind = "description"
	KindStorage         ErrorKind = "storage"
	KindNotFound        ErrorKind = "not_found"
	KindForbidden       ErrorKind = "forbidden"
)

// BookletError carries the kind of failure and, when known, the booklet and page.
type BookletError struct {
	Kind    ErrorKind
	Message string
	DocID   string
	Page    int
	Err     error
}

func (e *BookletError) Error() string {
	where := ""
	if e.DocID != "" {
		where = " [doc " + e.DocID
		if e.Page > 0 {
			where += fmt.Sprintf(" page %d", e.Page)
		}
		where += "]"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s%s: %s: %v", e.Kind, where, e.Message, e.Err)
	}
	return fmt.Sprintf("%s%s: %s", e.Kind, where, e.Message)
}

func (e *BookletError) Unwrap() error {
	return e.Err
}

// WithPage returns a copy of e scoped to a document page.
func (e *BookletError) WithPage(docID string, page int) *BookletError {
	c := *e
	c.DocID = docID
	c.Page = page
	return &c
}

func newError(kind ErrorKind, message string, err error) *BookletError {
	return &BookletError{Kind: kind, Message: message, Err: err}
}

func InputValidationError(message string, err error) *BookletError {
	return newError(KindInputValidation, message, err)
}

func ExtractionError(message string, err error) *BookletError {
	return newError(KindExtraction, message, err)
}

func CleaningError(message string, err error) *BookletError {
	return newError(KindCleaning, message, err)
}

func SynthesisError(message string, err error) *BookletError {
	return newError(KindSynthesis, message, err)
}

func DescriptionError(message string, err error) *BookletError {
	return newError(KindDescription, message, err)
}

func StorageError(message string, err error) *BookletError {
	return newError(KindStorage, message, err)
}

func NotFoundError(docID string) *BookletError {
	return &BookletError{Kind: KindNotFound, Message: "booklet not found", DocID: docID}
}

// ForbiddenError is returned when a booklet belongs to another owner.
func ForbiddenError(docID string) *BookletError {
	return &BookletError{Kind: KindForbidden, Message: "booklet belongs to another owner", DocID: docID}
}

// KindOf returns the kind of the first BookletError in err's chain, or "".
func KindOf(err error) ErrorKind {
	var be *BookletError
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// CleanupIncomplete is the message of a delete that left objects or the record behind.
const CleanupIncomplete = "cleanup may be incomplete"
