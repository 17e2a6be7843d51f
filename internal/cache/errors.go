package cache

// Common errors
var (
	ErrStoreClosed = NewCacheError("storage is closed", false)
)

// CacheError represents a storage backend error
type CacheError struct {
	Message    string
	Retryable  bool
	Underlying error
}

// NewCacheError creates a new cache error
func NewCacheError(message string, retryable bool) *CacheError {
	return &CacheError{
		Message:   message,
		Retryable: retryable,
	}
}

// Error implements the error interface
func (e *CacheError) Error() string {
	if e.Underlying != nil {
		return e.Message + ": " + e.Underlying.Error()
	}
	return e.Message
}

// WithError returns a copy of e wrapping err
func (e *CacheError) WithError(err error) *CacheError {
	c := *e
	c.Underlying = err
	return &c
}

func (e *CacheError) Unwrap() error {
	return e.Underlying
}

// IsRetryable returns whether the error is retryable
func (e *CacheError) IsRetryable() bool {
	return e.Retryable
}
