package channel

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// codecName is registered with grpc/encoding so ForceCodec can select it by
// name, the same mechanism protoc-gen-go-grpc's generated stubs rely on —
// we just never ran protoc to generate those stubs (see DESIGN.md), so the
// stream is driven directly against this codec instead.
const codecName = "durabletask-json"

// jsonCodec implements encoding.Codec over plain JSON so the scheduler
// channel can drive grpc.ClientConn.NewStream without generated message
// types. Every wire message in this package is a plain Go struct with json
// tags; nothing here depends on protobuf reflection.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("channel: codec marshal: %w", err)
	}
	return b, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("channel: codec unmarshal: %w", err)
	}
	return nil
}

func (jsonCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
