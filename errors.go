package authcore

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so callers can distinguish "try again"
// from "this request is invalid" from "you must log in again".
type ErrorKind int

const (
	KindUnknown ErrorKind = iota

	// KindConfiguration - unknown or misconfigured provider. Fatal to the request.
	KindConfiguration

	// KindUpstreamAuth - the OAuth token or userinfo endpoint failed.
	// Retryable by the user; never retried internally.
	KindUpstreamAuth

	// KindValidation - bad OTP code, wrong verification target, missing token material.
	KindValidation

	// KindConflict - identity already linked elsewhere. Surfaced, never silently merged.
	KindConflict

	// KindNotFound - session or account not found, or not owned by the caller.
	KindNotFound

	// KindUnauthenticated - missing or invalid bearer token on an authenticated operation.
	KindUnauthenticated

	// KindStorage - the adapter failed. Adapter errors propagate unchanged underneath.
	KindStorage
)

// Stable error codes carried on AuthError.
const (
	ErrCodeUnknownProvider    = "unknown_provider"
	ErrCodeUpstreamAuth       = "upstream_auth"
	ErrCodeInvalidCode        = "invalid_code"
	ErrCodeUnsupportedTarget  = "unsupported_target"
	ErrCodeMissingContact     = "missing_contact"
	ErrCodeMissingAccessToken = "missing_access_token"
	ErrCodeEmailLinked        = "email_already_linked"
	ErrCodePhoneLinked        = "phone_already_linked"
	ErrCodeAccountLinked      = "account_already_linked"
	ErrCodeSessionNotFound    = "session_not_found"
	ErrCodeNoLinkedAccount    = "no_linked_account"
	ErrCodeInvalidState       = "invalid_state"
	ErrCodeUnauthenticated    = "unauthenticated"
	ErrCodeStorage            = "storage_error"
)

// ErrDuplicate is the sentinel a storage adapter wraps when a create hits a
// uniqueness constraint (duplicate provider account, email or phone). The
// core maps it to a conflict for the caller.
var ErrDuplicate = errors.New("duplicate record")

// AuthError is the typed failure returned by every core operation.
type AuthError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AuthError) Unwrap() error { return e.Err }

// NewAuthError creates an AuthError with no underlying cause.
func NewAuthError(kind ErrorKind, code, message string) *AuthError {
	return &AuthError{Kind: kind, Code: code, Message: message}
}

// WrapAuthError creates an AuthError around an underlying cause.
func WrapAuthError(kind ErrorKind, code, message string, err error) *AuthError {
	return &AuthError{Kind: kind, Code: code, Message: message, Err: err}
}

// KindOf returns the ErrorKind of err, or KindUnknown if err is not an
// AuthError (or nil).
func KindOf(err error) ErrorKind {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// CodeOf returns the error code of err, or "" if err is not an AuthError.
func CodeOf(err error) string {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

func storageError(op string, err error) *AuthError {
	return WrapAuthError(KindStorage, ErrCodeStorage, op+" failed", err)
}
