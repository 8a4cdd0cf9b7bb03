package content

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a domain failure so transport code can map it to a
// status code without inspecting error strings.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUpstream
	KindDataShape
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUpstream:
		return "upstream"
	case KindDataShape:
		return "data_shape"
	case KindConfig:
		return "config"
	default:
		return "internal"
	}
}

// HTTPStatus maps a kind to the status code the API surface reports.
// Upstream failures carry their own status when one is known.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is the domain error carried across service boundaries.
type Error struct {
	Kind    Kind
	Message string
	// ExistingID is set on duplicate-ingest conflicts so clients can link
	// to the record that already holds the URL.
	ExistingID string
	// UpstreamStatus is the status code returned by the third-party API,
	// when the failure originated there.
	UpstreamStatus int
	Err            error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus returns the status the API should report for this error.
func (e *Error) HTTPStatus() int {
	if e.Kind == KindUpstream && e.UpstreamStatus >= 400 {
		return e.UpstreamStatus
	}
	return e.Kind.HTTPStatus()
}

func Validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// DuplicateURL reports an ingest conflict, carrying the id of the post
// that already holds the URL.
func DuplicateURL(existingID string) *Error {
	return &Error{
		Kind:       KindConflict,
		Message:    "Tweet already exists in the database",
		ExistingID: existingID,
	}
}

func Upstreamf(status int, format string, args ...interface{}) *Error {
	return &Error{Kind: KindUpstream, UpstreamStatus: status, Message: fmt.Sprintf(format, args...)}
}

func DataShapef(format string, args ...interface{}) *Error {
	return &Error{Kind: KindDataShape, Message: fmt.Sprintf(format, args...)}
}

func Configf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConfig, Message: fmt.Sprintf(format, args...)}
}

func Internalf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected store or runtime failure.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// AsError extracts a domain *Error from err, or wraps err as internal.
func AsError(err error) *Error {
	var derr *Error
	if errors.As(err, &derr) {
		return derr
	}
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// IsKind reports whether err is a domain error of the given kind.
func IsKind(err error, kind Kind) bool {
	var derr *Error
	return errors.As(err, &derr) && derr.Kind == kind
}
