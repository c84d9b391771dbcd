// Package apperr defines the failure kinds surfaced by plan generation.
package apperr

import (
	"errors"
)

type Kind string

const (
	IncompleteProfile    Kind = "incomplete_profile"
	ProviderUnavailable  Kind = "provider_unavailable"
	Cancelled            Kind = "cancelled"
	PlanTruncated        Kind = "plan_truncated"
	MalformedPlanPayload Kind = "malformed_plan_payload"
	InvalidPlanStructure Kind = "invalid_plan_structure"
	InvalidMealType      Kind = "invalid_meal_type"
)

// ExcerptLimit bounds the diagnostic excerpts attached to payload errors.
const ExcerptLimit = 1000

// Error is the structured failure returned by the generation pipeline.
// Message is safe to show to the end user only for IncompleteProfile; use
// PublicMessage for everything else.
type Error struct {
	Kind    Kind
	Message string
	// Value names the offending input, e.g. the rejected meal type.
	Value string
	// RawExcerpt and CleanedExcerpt are for server-side logs only.
	RawExcerpt     string
	CleanedExcerpt string
	Err            error
}

func (e *Error) Error() string {
	msg := string(e.Kind) + ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable reports whether re-running the same request may succeed.
func Retryable(kind Kind) bool {
	switch kind {
	case ProviderUnavailable, PlanTruncated, MalformedPlanPayload, InvalidPlanStructure, InvalidMealType:
		return true
	}
	return false
}

// PublicMessage returns the text shown to end users. Provider internals and
// model output never leave the server.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "Internal server error"
	}
	switch e.Kind {
	case IncompleteProfile:
		return e.Message
	case ProviderUnavailable:
		return "AI service is temporarily unavailable. Please try again."
	case Cancelled:
		return "Request was cancelled"
	case PlanTruncated:
		return "The generated plan was too large. Please try again."
	case MalformedPlanPayload, InvalidPlanStructure, InvalidMealType:
		return "AI generated invalid plan format. Please try again."
	}
	return "Internal server error"
}

// Excerpt truncates s to ExcerptLimit bytes without splitting a UTF-8 rune.
func Excerpt(s string) string {
	if len(s) <= ExcerptLimit {
		return s
	}
	cut := ExcerptLimit
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
