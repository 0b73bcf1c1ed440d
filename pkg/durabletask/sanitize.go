package durabletask

import "strings"

// maxFailureMessageLen bounds how much of a panic/error message is sent
// back to the scheduler; history events are stored indefinitely so we do
// not let a runaway error message balloon them.
const maxFailureMessageLen = 8192

// SanitizeFailureText strips ASCII control characters (other than tab and
// newline) from error messages and stack traces before they are placed on
// a FailureDetail and shipped over the wire. Orchestrator and activity code
// is free to panic with arbitrary bytes; history storage is not.
func SanitizeFailureText(s string) string {
	if len(s) > maxFailureMessageLen {
		s = s[:maxFailureMessageLen] + "...(truncated)"
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\t' || r == '\n':
			b.WriteRune(r)
		case r < 0x20 || r == 0x7f:
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NewFailureDetail builds a sanitized FailureDetail from a Go error, walking
// wrapped causes into the Inner chain up to a fixed depth to avoid unbounded
// recursion on maliciously deep error chains.
func NewFailureDetail(kind string, err error) *FailureDetail {
	return newFailureDetailDepth(kind, err, 8)
}

func newFailureDetailDepth(kind string, err error, depth int) *FailureDetail {
	if err == nil {
		return nil
	}
	fd := &FailureDetail{
		Kind:    kind,
		Message: SanitizeFailureText(err.Error()),
	}
	if depth <= 0 {
		return fd
	}
	if u, ok := err.(interface{ Unwrap() error }); ok {
		if inner := u.Unwrap(); inner != nil {
			fd.Inner = newFailureDetailDepth(kind, inner, depth-1)
		}
	}
	return fd
}
