package llm

import "errors"

// Completion failures carry a retry classification so the client knows
// whether to back off on the same endpoint or move down the fallback chain.

// TransientError marks a failure worth retrying on the same endpoint, such
// as a rate limit or an upstream timeout.
type TransientError struct {
	cause error
}

func (e *TransientError) Error() string { return e.cause.Error() }

func (e *TransientError) Unwrap() error { return e.cause }

// NewTransientError classifies err as retryable.
func NewTransientError(err error) error {
	return &TransientError{cause: err}
}

// FatalError marks a failure that no retry can fix, such as a rejected
// request body or bad credentials.
type FatalError struct {
	cause error
}

func (e *FatalError) Error() string { return e.cause.Error() }

func (e *FatalError) Unwrap() error { return e.cause }

// NewFatalError classifies err as non-retryable.
func NewFatalError(err error) error {
	return &FatalError{cause: err}
}

// IsTransient reports whether err carries a retryable classification
// anywhere in its chain.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsFatal reports whether err carries a non-retryable classification
// anywhere in its chain.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}
