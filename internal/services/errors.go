package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedEnvironment is defensive only; the selector's guaranteed
	// fallback makes it unreachable in practice.
	ErrUnsupportedEnvironment = errors.New("unsupported environment")
	// ErrEngineInit marks jobs where every backend candidate failed to start.
	ErrEngineInit = errors.New("engine initialization error")
	// ErrSourceDecode marks per-source decode failures. Non-fatal unless the
	// strict audio flag is set.
	ErrSourceDecode = errors.New("source decode error")
	// ErrSubprocess marks non-zero exits or crashes of the external encoder.
	ErrSubprocess = errors.New("subprocess failure")
	// ErrTimeout marks any backend exceeding its wall-clock budget.
	ErrTimeout = errors.New("timeout")
	// ErrCancelled marks user-initiated cancellation; never surfaced as a failure.
	ErrCancelled = errors.New("cancelled")
	// ErrValidation marks rejected inputs (bad settings, malformed timeline).
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks unusable configuration.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error that includes component context while tagging it with
// the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Fatal reports whether err should fail the whole job rather than degrade to
// a warning.
func Fatal(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrSourceDecode):
		return false
	default:
		return true
	}
}

// IsCancellation reports whether err represents user- or context-initiated
// cancellation rather than a failure.
func IsCancellation(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// Message extracts the human-readable portion of a wrapped error, stripping
// the sentinel prefix.
func Message(err error) string {
	if err == nil {
		return ""
	}
	text := err.Error()
	for _, sentinel := range []error{
		ErrUnsupportedEnvironment, ErrEngineInit, ErrSourceDecode,
		ErrSubprocess, ErrTimeout, ErrCancelled, ErrValidation, ErrConfiguration,
	} {
		prefix := sentinel.Error() + ": "
		if strings.HasPrefix(text, prefix) {
			return strings.TrimPrefix(text, prefix)
		}
	}
	return text
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
