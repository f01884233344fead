package problemservice

import "fmt"

// ProblemNotFoundError is returned when a problem reference does not resolve.
type ProblemNotFoundError struct {
	DomainID string
	PID      string
}

func (e *ProblemNotFoundError) Error() string {
	return fmt.Sprintf("problem %s not found in domain %s", e.PID, e.DomainID)
}
