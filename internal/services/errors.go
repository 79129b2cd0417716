package services

// ValidationError carries per-field messages for the caller to show.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type RateLimitError struct{ Message string }

func (e *RateLimitError) Error() string { return e.Message }
