package pipeline

import "github.com/deixis/shellgate/internal/safety"

// ValidationError is a request that never reached the executor because an
// input was missing or empty.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Missing returns the error for an absent request field.
func Missing(field string) *ValidationError {
	switch field {
	case "cmd":
		return &ValidationError{Field: field, Reason: "No command provided"}
	case "query":
		return &ValidationError{Field: field, Reason: "No query provided"}
	}
	return &ValidationError{Field: field, Reason: "No " + field + " provided"}
}

// RejectedError is a translated command refused by the safety gate.
type RejectedError struct {
	Query   string
	Command string
	Rule    string // name of the matched safety rule
}

func (e *RejectedError) Error() string {
	return safety.RejectionReason
}
