package cli

// SilentError wraps an error whose message the command has already printed.
// main checks for it and exits non-zero without printing again.
type SilentError struct {
	err error
}

// NewSilentError wraps err.
func NewSilentError(err error) *SilentError {
	return &SilentError{err: err}
}

func (e *SilentError) Error() string {
	return e.err.Error()
}

func (e *SilentError) Unwrap() error {
	return e.err
}
