package converter

import "fmt"

// SerializationError wraps a failure to encode or decode a payload. It is
// always non-retriable: a value that doesn't marshal once won't marshal on
// the next attempt either.
type SerializationError struct {
	Op  string // "marshal" | "unmarshal"
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("converter: %s failed: %v", e.Op, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// StorageError wraps a failure from the payload store side of
// externalization (put/get against the configured payloadstore.Store).
type StorageError struct {
	Op    string // "put" | "get"
	Token string
	Err   error
}

func (e *StorageError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("converter: payload store %s(%s) failed: %v", e.Op, e.Token, e.Err)
	}
	return fmt.Sprintf("converter: payload store %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
