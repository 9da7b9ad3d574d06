package resilience

import (
	"context"
	"errors"
	"strings"
)

// ErrorClass names the retry disposition of a failed attempt (spec §4.C).
type ErrorClass string

const (
	Transient  ErrorClass = "transient"
	Recoverable ErrorClass = "recoverable"
	Permanent  ErrorClass = "permanent"
	Fatal      ErrorClass = "fatal"
)

// Classifier decides how a failed attempt's error should be treated.
type Classifier func(error) ErrorClass

// DefaultClassifier pattern-matches the error's message for
// connection/timeout/reset/broken-pipe/deadlock substrings, mirroring
// spec §4.D's checkpointer classification rule, generalized to any
// resilience-wrapped operation. Anything else is Permanent.
func DefaultClassifier(err error) ErrorClass {
	if err == nil {
		return Permanent
	}
	msg := strings.ToLower(err.Error())
	transientMarkers := []string{"connection", "timeout", "reset", "broken pipe", "deadlock", "temporarily unavailable", "eof"}
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return Transient
		}
	}
	return Permanent
}

// classifyWithFallback runs classifier if non-nil, else DefaultClassifier.
func classifyWithFallback(classifier Classifier, err error) ErrorClass {
	if classifier != nil {
		return classifier(err)
	}
	return DefaultClassifier(err)
}

// IsContextErr reports whether err is a context cancellation/deadline
// error, which should never be retried regardless of classification.
func IsContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
