// Package payloadstore implements the blob-like store the data converter
// externalizes large payloads into. It mirrors the role of the teacher's
// pkg/storage package, generalized from cluster-resource persistence to
// opaque token/blob storage.
package payloadstore

import "context"

// Store is the pluggable externalization target for converter.Converter.
// Tokens are opaque to callers; implementations choose their own key space.
type Store interface {
	// Put stores data and returns a token that Get can later resolve.
	Put(ctx context.Context, data []byte) (token string, err error)
	// Get resolves a token produced by Put back to its bytes.
	Get(ctx context.Context, token string) ([]byte, error)
	Close() error
}
