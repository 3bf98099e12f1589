package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"quantumdie/internal/roll"

	"google.golang.org/genai"
)

// ErrMissingCredential is returned when no API key is present in the
// environment at call time.
var ErrMissingCredential = errors.New("API key environment variable not set")

// RateLimitMessage replaces the raw description of rate-limited calls.
const RateLimitMessage = "Request limit reached (429). Wait a moment or reduce the speed/size of batch rolls."

// Kind classifies why a roll could not be acquired.
type Kind int

const (
	KindTransportOrParse Kind = iota
	KindConfigurationMissing
	KindRateLimited
	KindSchemaViolation
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindConfigurationMissing:
		return "configuration_missing"
	case KindRateLimited:
		return "rate_limited"
	case KindSchemaViolation:
		return "schema_violation"
	case KindCancelled:
		return "cancelled"
	default:
		return "transport_or_parse"
	}
}

// Failure is a classified acquisition error. None is retried.
type Failure struct {
	Kind Kind
	Err  error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Kind.String()
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Message is the single human-readable string shown to the user.
func (f *Failure) Message() string {
	switch {
	case f.Kind == KindRateLimited:
		return RateLimitMessage
	case f.Err == nil:
		return "An unexpected error occurred."
	default:
		return f.Err.Error()
	}
}

// IsRateLimit reports whether an error description denotes a quota or rate
// limit from the service.
func IsRateLimit(msg string) bool {
	return strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

// Classify wraps err in a *Failure. A nil error yields nil; an existing
// *Failure is returned as is.
func Classify(err error) *Failure {
	if err == nil {
		return nil
	}

	var f *Failure
	if errors.As(err, &f) {
		return f
	}

	var verr *roll.ValidationError
	var apiErr genai.APIError
	switch {
	case errors.Is(err, ErrMissingCredential):
		return &Failure{Kind: KindConfigurationMissing, Err: err}
	case errors.As(err, &verr):
		return &Failure{Kind: KindSchemaViolation, Err: err}
	case errors.As(err, &apiErr) && apiErr.Code == 429, IsRateLimit(err.Error()):
		return &Failure{Kind: KindRateLimited, Err: err}
	case errors.Is(err, context.Canceled):
		return &Failure{Kind: KindCancelled, Err: err}
	default:
		return &Failure{Kind: KindTransportOrParse, Err: err}
	}
}

// Message returns the user-facing text for any error, or "" for nil.
func Message(err error) string {
	if f := Classify(err); f != nil {
		return f.Message()
	}
	return ""
}
