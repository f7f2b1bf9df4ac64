//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package apierr defines the error kinds surfaced by the forwarding
// endpoints and their mapping to HTTP status codes.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind int

// Error kinds.
const (
	// KindInternal is an unexpected failure during processing.
	KindInternal Kind = iota
	// KindValidation is a missing or malformed request field.
	KindValidation
	// KindConfiguration is a missing required credential or setting.
	KindConfiguration
	// KindUpstream is a non-success response from an external API.
	KindUpstream
	// KindTransport is a network-level failure reaching an external API.
	KindTransport
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConfiguration:
		return "configuration"
	case KindUpstream:
		return "upstream"
	case KindTransport:
		return "transport"
	default:
		return "internal"
	}
}

// Error is the error type returned by forwarders. Message is safe to show
// to callers; Err keeps the underlying cause for logs.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

// Error implements error.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error { return e.Err }

// Validation returns a 400 error.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

// MissingCredential returns a 500 error naming the missing variable.
func MissingCredential(name string) *Error {
	return &Error{
		Kind:    KindConfiguration,
		Status:  http.StatusInternalServerError,
		Message: fmt.Sprintf("%s is missing", name),
	}
}

// Upstream returns an error carrying the upstream status and body verbatim.
// Statuses outside the 4xx/5xx range are reported as 502.
func Upstream(status int, body string) *Error {
	if status < 400 || status > 599 {
		status = http.StatusBadGateway
	}
	return &Error{Kind: KindUpstream, Status: status, Message: body}
}

// Transport returns a 500 error with a generic message; cause is only logged.
func Transport(message string, cause error) *Error {
	return &Error{Kind: KindTransport, Status: http.StatusInternalServerError, Message: message, Err: cause}
}

// Internal returns a 500 error.
func Internal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Status: http.StatusInternalServerError, Message: message, Err: cause}
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// StatusOf returns the HTTP status for err. Unclassified errors are 500.
func StatusOf(err error) int {
	if e, ok := As(err); ok && e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}

// MessageOf returns the caller-facing message for err. Unclassified errors
// expose their text, matching what the endpoints have always returned.
func MessageOf(err error) string {
	if e, ok := As(err); ok {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
