// Package converter implements the data converter described in spec §4.1:
// JSON encoding of user payloads plus large-payload externalization to a
// pluggable payloadstore.Store above a configurable size threshold.
package converter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cuemby/durabletask/pkg/payloadstore"
)

// externalTokenPrefix marks a serialized value as a reference into the
// payload store rather than an inline value. Recognition is prefix-based;
// anything not carrying this prefix passes through untouched on decode.
const externalTokenPrefix = "ext:v1:"

// DefaultThreshold is the externalization cutoff applied when a Converter
// is constructed with threshold <= 0.
const DefaultThreshold = 60 * 1024

// Converter serializes/deserializes orchestration, activity and entity
// payloads, transparently externalizing anything over Threshold bytes.
type Converter struct {
	Store     payloadstore.Store
	Threshold int
}

// New builds a Converter. A nil store disables externalization entirely:
// Serialize then returns an error if the payload exceeds the threshold,
// since there is nowhere to put the overflow.
func New(store payloadstore.Store, threshold int) *Converter {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Converter{Store: store, Threshold: threshold}
}

// Serialize marshals v to JSON, then externalizes the result to the
// payload store and returns an "ext:v1:<token>" reference if it exceeds
// Threshold bytes.
func (c *Converter) Serialize(ctx context.Context, v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, &SerializationError{Op: "marshal", Err: err}
	}
	if len(raw) <= c.Threshold {
		return raw, nil
	}
	if c.Store == nil {
		return nil, &StorageError{Op: "put", Err: fmt.Errorf("payload of %d bytes exceeds threshold %d but no payload store is configured", len(raw), c.Threshold)}
	}
	token, err := c.Store.Put(ctx, raw)
	if err != nil {
		return nil, &StorageError{Op: "put", Err: err}
	}
	return []byte(externalTokenPrefix + token), nil
}

// Deserialize resolves an externalization token (if present) and unmarshals
// the result into v.
func (c *Converter) Deserialize(ctx context.Context, data []byte, v any) error {
	resolved, err := c.resolve(ctx, data)
	if err != nil {
		return err
	}
	if len(resolved) == 0 {
		return nil
	}
	if err := json.Unmarshal(resolved, v); err != nil {
		return &SerializationError{Op: "unmarshal", Err: err}
	}
	return nil
}

// resolve expands an externalization token into its underlying bytes.
// Values not carrying the token prefix are returned unchanged.
func (c *Converter) resolve(ctx context.Context, data []byte) ([]byte, error) {
	if !strings.HasPrefix(string(data), externalTokenPrefix) {
		return data, nil
	}
	if c.Store == nil {
		return nil, &StorageError{Op: "get", Err: fmt.Errorf("encountered externalized payload but no payload store is configured")}
	}
	token := strings.TrimPrefix(string(data), externalTokenPrefix)
	raw, err := c.Store.Get(ctx, token)
	if err != nil {
		return nil, &StorageError{Op: "get", Token: token, Err: err}
	}
	return raw, nil
}

// IsExternalToken reports whether data is an externalization reference
// rather than an inline JSON value.
func IsExternalToken(data []byte) bool {
	return strings.HasPrefix(string(data), externalTokenPrefix)
}
