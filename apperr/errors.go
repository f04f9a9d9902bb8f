// Package apperr holds the error taxonomy shared by the server and the client SDK.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error by the context it arose in.
type Kind string

const (
	KindAuthentication Kind = "AUTHENTICATION"
	KindAuthorization  Kind = "AUTHORIZATION"
	KindValidation     Kind = "VALIDATION"
	KindNetwork        Kind = "NETWORK"
	KindBusinessLogic  Kind = "BUSINESS_LOGIC"
	KindSystem         Kind = "SYSTEM"
)

// Error codes carried on the wire in error.code.
const (
	CodeTokenMissing       = "TOKEN_MISSING"
	CodeTokenInvalid       = "TOKEN_INVALID"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeForbidden          = "FORBIDDEN"
	CodeMissingFields      = "MISSING_FIELDS"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeNotFound           = "NOT_FOUND"
	CodeDuplicateAcronym   = "DUPLICATE_ACRONYM"
	CodeDuplicateEntry     = "DUPLICATE_ENTRY"
	CodeOrganizationCycle  = "ORGANIZATION_CYCLE"
	CodeHasSubOrganization = "HAS_SUB_ORGANIZATIONS"
	CodeInUse              = "RESOURCE_IN_USE"
	CodeRateLimited        = "RATE_LIMITED"
	CodeNetwork            = "NETWORK_ERROR"
	CodeInternal           = "INTERNAL_ERROR"
)

// Error is a classified application error.
type Error struct {
	Kind       Kind
	Code       string
	Message    string
	StatusCode int
	Field      string
	Details    map[string]any
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s/%s: %s (%v)", e.Kind, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s/%s: %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Code, so a wrapped copy of a sentinel still satisfies errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithField returns a copy of e attributed to an input field.
func (e *Error) WithField(field string) *Error {
	cp := *e
	cp.Field = field
	return &cp
}

// WithMessage returns a copy of e with a more specific message.
func (e *Error) WithMessage(msg string) *Error {
	cp := *e
	cp.Message = msg
	return &cp
}

// WithDetail returns a copy of e with key set in Details.
func (e *Error) WithDetail(key string, value any) *Error {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

func newError(kind Kind, code string, status int, msg string) *Error {
	return &Error{Kind: kind, Code: code, StatusCode: status, Message: msg}
}

// Authentication builds an AUTHENTICATION error (401).
func Authentication(code, msg string) *Error {
	return newError(KindAuthentication, code, http.StatusUnauthorized, msg)
}

// Authorization builds an AUTHORIZATION error (403).
func Authorization(code, msg string) *Error {
	return newError(KindAuthorization, code, http.StatusForbidden, msg)
}

// Validation builds a VALIDATION error (400) pointing at field.
func Validation(code, field, msg string) *Error {
	e := newError(KindValidation, code, http.StatusBadRequest, msg)
	e.Field = field
	return e
}

// Business builds a BUSINESS_LOGIC error with the given status.
func Business(code string, status int, msg string) *Error {
	return newError(KindBusinessLogic, code, status, msg)
}

// Network builds a NETWORK error. Network errors are the only retryable kind.
func Network(msg string, cause error) *Error {
	e := newError(KindNetwork, CodeNetwork, http.StatusServiceUnavailable, msg)
	e.Err = cause
	return e
}

// System builds a SYSTEM error (500).
func System(msg string, cause error) *Error {
	e := newError(KindSystem, CodeInternal, http.StatusInternalServerError, msg)
	e.Err = cause
	return e
}

var (
	ErrTokenMissing       = Authentication(CodeTokenMissing, "authentication token not provided")
	ErrTokenInvalid       = Authentication(CodeTokenInvalid, "invalid authentication token")
	ErrTokenExpired       = Authentication(CodeTokenExpired, "authentication token expired")
	ErrInvalidCredentials = Authentication(CodeInvalidCredentials, "invalid credentials")

	ErrForbidden = Authorization(CodeForbidden, "insufficient permissions")

	ErrMissingFields = Validation(CodeMissingFields, "", "required fields are missing")
	ErrInvalidInput  = Validation(CodeInvalidInput, "", "invalid input")

	ErrNotFound            = Business(CodeNotFound, http.StatusNotFound, "resource not found")
	ErrDuplicateAcronym    = Business(CodeDuplicateAcronym, http.StatusConflict, "acronym already in use in this organization")
	ErrDuplicateEntry      = Business(CodeDuplicateEntry, http.StatusConflict, "entry already exists")
	ErrOrganizationCycle   = Business(CodeOrganizationCycle, http.StatusBadRequest, "organization cannot be its own parent or descendant")
	ErrHasSubOrganizations = Business(CodeHasSubOrganization, http.StatusConflict, "organization still has active sub-organizations")
	ErrInUse               = Business(CodeInUse, http.StatusConflict, "resource is still referenced")

	ErrRateLimited = &Error{Kind: KindNetwork, Code: CodeRateLimited, StatusCode: http.StatusTooManyRequests, Message: "too many attempts, try again later"}

	ErrInternal = System("internal server error", nil)
)

// From converts any error into an *Error. Unclassified errors become SYSTEM errors.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return System("internal server error", err)
}

// KindOf reports the kind of err, SYSTEM when unclassified.
func KindOf(err error) Kind {
	return From(err).Kind
}

// Retryable reports whether a call failing with err may be retried.
// Only network-classed failures qualify.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == KindNetwork
	}
	return false
}

var byCode = map[string]*Error{}

func init() {
	for _, e := range []*Error{
		ErrTokenMissing, ErrTokenInvalid, ErrTokenExpired, ErrInvalidCredentials,
		ErrForbidden, ErrMissingFields, ErrInvalidInput,
		ErrNotFound, ErrDuplicateAcronym, ErrDuplicateEntry, ErrOrganizationCycle,
		ErrHasSubOrganizations, ErrInUse, ErrRateLimited, ErrInternal,
	} {
		byCode[e.Code] = e
	}
	byCode[CodeNetwork] = Network("network error", nil)
}

// HasDefaultMessage reports whether e still carries the generic message of
// its code, as opposed to one set with WithMessage.
func HasDefaultMessage(e *Error) bool {
	known, ok := byCode[e.Code]
	return ok && known.Message == e.Message
}

// Decode rebuilds an error received from the API. Known codes keep their
// kind; unknown codes are classified by status.
func Decode(code string, status int, msg, field string, details map[string]any) *Error {
	var e Error
	if known, ok := byCode[code]; ok {
		e = *known
	} else {
		e = Error{Kind: kindForStatus(status), Code: code}
	}
	if status != 0 {
		e.StatusCode = status
	}
	if msg != "" {
		e.Message = msg
	}
	e.Field = field
	e.Details = details
	e.Err = nil
	return &e
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindAuthentication
	case status == http.StatusForbidden:
		return KindAuthorization
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusTooManyRequests || status == http.StatusBadGateway ||
		status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout:
		return KindNetwork
	case status >= 500:
		return KindSystem
	default:
		return KindBusinessLogic
	}
}
