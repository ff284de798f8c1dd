package hub

import (
	"fmt"
	"strings"
)

// AuthError reports an invalid or missing credential. Always fatal for a run.
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("authentication failed (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

// RemoteError reports a failed remote operation. Whether it is fatal depends
// on the operation: the coordinator treats manifest upload failures as fatal
// and everything else as a logged, tallied warning.
type RemoteError struct {
	Op      string
	Path    string
	Status  int
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "remote %s failed", e.Op)
	if e.Path != "" {
		fmt.Fprintf(&b, " for %s", e.Path)
	}
	if e.Status > 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.Status)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *RemoteError) Unwrap() error { return e.Err }

// isConflict prefers the structured 409 status; the message check is a
// fallback for frontends that rewrite conflict responses.
func isConflict(status int, message string) bool {
	if status == 409 {
		return true
	}
	msg := strings.ToLower(message)
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "already created")
}
