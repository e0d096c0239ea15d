package logging

import "github.com/google/uuid"

// NewSessionID returns a random identifier for one CLI invocation or
// benchmark run. Every log entry of that run carries it as session_id.
func NewSessionID() string {
	return uuid.NewString()
}
