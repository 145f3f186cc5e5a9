package domain

import "errors"

// Common domain errors
var (
	// LLM errors
	ErrLLMOutput    = errors.New("LLM output could not be parsed")
	ErrLLMTransport = errors.New("LLM request failed")

	// Store errors
	ErrStoreTransport = errors.New("store request failed")
	ErrNotFound       = errors.New("resource not found")

	// Validation errors
	ErrSchemaValidation   = errors.New("schema validation failed")
	ErrInvariantViolation = errors.New("invariant violation")
	ErrSelfEdge           = errors.New("semantic edge cannot connect a proposition to itself")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
	ErrEmptyContent       = errors.New("content cannot be empty")
	ErrInvalidRole        = errors.New("invalid message role")
	ErrInvalidInput       = errors.New("invalid input")
)

// ExtractionError wraps a stage failure with the stage name and a
// truncated copy of the raw model output for log inspection.
type ExtractionError struct {
	Err       error
	Stage     string
	RawOutput string
}

func (e *ExtractionError) Error() string {
	if e.Stage != "" {
		return e.Stage + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

const maxRawOutput = 200

// NewExtractionError builds an ExtractionError, truncating raw output to a
// log-safe length.
func NewExtractionError(err error, stage, raw string) *ExtractionError {
	if len(raw) > maxRawOutput {
		raw = raw[:maxRawOutput] + "..."
	}
	return &ExtractionError{
		Err:       err,
		Stage:     stage,
		RawOutput: raw,
	}
}

// IsRetryable reports whether an error is a transport failure that may
// succeed on retry. Output and validation errors are never retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLLMTransport) || errors.Is(err, ErrStoreTransport)
}
