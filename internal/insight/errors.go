package insight

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind partitions every way an insight computation can fail. The
// dashboard renders a different message per kind, so generation code must
// never collapse two kinds into one.
type ErrorKind string

const (
	// KindNoDataInRange means the store holds zero conversations for the range.
	KindNoDataInRange ErrorKind = "no_data_in_range"
	// KindInsufficientRelevantData means conversations exist but none passed the similarity floor.
	KindInsufficientRelevantData ErrorKind = "insufficient_relevant_data"
	// KindRetrievalUnavailable means the embedding or similarity search dependency failed.
	KindRetrievalUnavailable ErrorKind = "retrieval_unavailable"
	// KindGenerationUnavailable means the language model call failed or timed out.
	KindGenerationUnavailable ErrorKind = "generation_unavailable"
	// KindMalformedGeneration means the model responded but the output could not be parsed.
	KindMalformedGeneration ErrorKind = "malformed_generation"
)

// Reason returns the user-facing message for the kind.
func (k ErrorKind) Reason() string {
	switch k {
	case KindNoDataInRange:
		return "no conversations in this date range"
	case KindInsufficientRelevantData:
		return "insufficient data for this analysis"
	case KindRetrievalUnavailable, KindGenerationUnavailable:
		return "analysis service unavailable"
	case KindMalformedGeneration:
		return "unexpected response format"
	default:
		return "analysis failed"
	}
}

// CategoryError is the typed failure returned by the generator boundary.
type CategoryError struct {
	Kind     ErrorKind
	Category Category
	Err      error
}

func (e *CategoryError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Category, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Category, e.Kind, e.Err)
}

func (e *CategoryError) Unwrap() error { return e.Err }

func categoryErr(kind ErrorKind, category Category, err error) *CategoryError {
	return &CategoryError{Kind: kind, Category: category, Err: err}
}

// KindOf extracts the error kind from err, defaulting to generation
// unavailable for untyped failures (timeouts, cancellation, transport).
func KindOf(err error) ErrorKind {
	var ce *CategoryError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindGenerationUnavailable
	}
	return KindGenerationUnavailable
}
