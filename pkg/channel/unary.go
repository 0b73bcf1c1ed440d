package channel

import (
	"context"

	"google.golang.org/grpc"
)

// unaryServiceMethod namespaces the client surface's unary RPCs under the
// same service the streaming Hub lives under (spec §4.3: "separate unary
// RPCs for client operations").
const unaryServiceMethod = "/durabletask.Hub/"

// Method builds the full gRPC method path for a client-surface unary RPC
// named name (e.g. "ScheduleOrchestration", "RaiseEvent").
func Method(name string) string {
	return unaryServiceMethod + name
}

// Invoke performs one unary RPC against conn using the scheduler channel's
// JSON codec, the same one the streaming Hub rides (pkg/channel/codec.go).
// There is no generated protobuf stub in this tree (see DESIGN.md), so
// req/resp are plain JSON-tagged structs exactly like the streaming
// envelopes.
func Invoke(ctx context.Context, conn *grpc.ClientConn, method string, req, resp any) error {
	return conn.Invoke(ctx, method, req, resp, grpc.CallContentSubtype(codecName))
}

// Dial opens a plain gRPC connection to cs.Endpoint using the
// Authentication-mode-appropriate transport credentials, for callers (the
// client surface) that need their own *grpc.ClientConn rather than sharing
// the worker's streaming Channel.
func Dial(cs *ConnectionString) (*grpc.ClientConn, error) {
	creds, err := TransportCredentials(cs)
	if err != nil {
		return nil, err
	}
	return grpc.NewClient(cs.Endpoint, grpc.WithTransportCredentials(creds))
}
