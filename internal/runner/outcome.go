package runner

import "errors"

// Outcome classifies the result of an import attempt. Unmarked errors are
// treated as retryable; transient portal failures are the common case and
// anything genuinely unrecoverable must say so explicitly.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeRetryable
	OutcomeFatal
)

type fatalError struct{ err error }

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// Fatal marks an error as non-retryable. The session goes straight to
// review instead of burning attempts.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// Retryable marks an error as transient.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// ClassifyError maps an import error to an outcome.
func ClassifyError(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}
	var fatal *fatalError
	if errors.As(err, &fatal) {
		return OutcomeFatal
	}
	return OutcomeRetryable
}
