// Package channel implements the scheduler channel: a single bidirectional
// streaming RPC connection to the remote task-hub scheduler, with
// reconnect backoff, token-cached authorization headers, and a bounded
// outbound send queue drained by one writer goroutine — the same fan-out
// shape as the teacher's pkg/events.Broker, generalized from "broadcast to
// subscribers" to "serialize writes onto one stream."
//
// There is no generated protobuf stub in this tree (see DESIGN.md): the
// stream is driven through grpc's own generic stream API
// (ClientConn.NewStream with a hand-written StreamDesc) using the JSON
// codec registered in codec.go, which is exactly the mechanism
// protoc-gen-go-grpc's generated code relies on internally.
package channel

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/cuemby/durabletask/pkg/durabletask"
	"github.com/cuemby/durabletask/pkg/log"
	"github.com/cuemby/durabletask/pkg/security"
)

const streamMethod = "/durabletask.Hub/Stream"

var hubStreamDesc = grpc.StreamDesc{
	StreamName:    "Stream",
	ClientStreams: true,
	ServerStreams: true,
}

// sendQueueCapacity bounds the outbound completion queue; once full,
// callers to Send block, providing the backpressure spec §5 requires.
const sendQueueCapacity = 256

// Channel owns one scheduler connection. Start establishes the stream and
// spawns the single writer goroutine; Recv is safe for one reader at a
// time; SendCompletion/SendHealthPong are safe for any number of
// concurrent callers (they enqueue onto the bounded writer channel).
type Channel struct {
	cs         *ConnectionString
	workerID   string
	tokenCache *security.TokenCache
	backoff    BackoffPolicy

	conn   *grpc.ClientConn
	stream grpc.ClientStream

	sendCh  chan outboundEnvelope
	closeCh chan struct{}
	wg      sync.WaitGroup

	mu      sync.Mutex
	started bool
}

// New builds a Channel for the given connection string, worker id and
// token cache. The token cache may be nil only when cs.Authentication is
// AuthNone.
func New(cs *ConnectionString, workerID string, tokenCache *security.TokenCache) *Channel {
	return &Channel{
		cs:         cs,
		workerID:   workerID,
		tokenCache: tokenCache,
		backoff:    DefaultBackoffPolicy(),
		sendCh:     make(chan outboundEnvelope, sendQueueCapacity),
		closeCh:    make(chan struct{}),
	}
}

// Start dials the scheduler, opens the Stream RPC, sends Hello and blocks
// until HelloAck arrives or helloTimeout elapses. It then starts the
// writer goroutine. Start must be called once before Recv/Send.
func (c *Channel) Start(ctx context.Context, capabilities []string, helloTimeout time.Duration) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return fmt.Errorf("channel: already started")
	}
	c.mu.Unlock()

	creds, err := c.transportCredentials()
	if err != nil {
		return fmt.Errorf("channel: %w", err)
	}

	conn, err := grpc.NewClient(c.cs.Endpoint, grpc.WithTransportCredentials(creds))
	if err != nil {
		return fmt.Errorf("channel: dial %s: %w", c.cs.Endpoint, err)
	}

	streamCtx, err := c.attachHeaders(ctx)
	if err != nil {
		conn.Close()
		return err
	}

	stream, err := conn.NewStream(streamCtx, &hubStreamDesc, streamMethod, grpc.CallContentSubtype(codecName))
	if err != nil {
		conn.Close()
		return fmt.Errorf("channel: open stream: %w", err)
	}

	if err := stream.SendMsg(&outboundEnvelope{Hello: &Hello{WorkerID: c.workerID, Capabilities: capabilities}}); err != nil {
		conn.Close()
		return fmt.Errorf("channel: send hello: %w", err)
	}

	ackCh := make(chan error, 1)
	go func() {
		var env inboundEnvelope
		if err := stream.RecvMsg(&env); err != nil {
			ackCh <- err
			return
		}
		if env.HelloAck != nil && !env.HelloAck.Accepted {
			ackCh <- fmt.Errorf("channel: hello rejected: %s", env.HelloAck.Reason)
			return
		}
		ackCh <- nil
	}()

	select {
	case err := <-ackCh:
		if err != nil {
			conn.Close()
			return fmt.Errorf("channel: hello handshake: %w", err)
		}
	case <-time.After(helloTimeout):
		conn.Close()
		return fmt.Errorf("channel: timed out waiting for HelloAck after %s", helloTimeout)
	}

	c.mu.Lock()
	c.conn = conn
	c.stream = stream
	c.started = true
	c.mu.Unlock()

	c.wg.Add(1)
	go c.writerLoop()

	return nil
}

// Recv blocks for the next inbound work item. It returns io.EOF when the
// scheduler closes the stream cleanly.
func (c *Channel) Recv() (*durabletask.WorkItem, error) {
	var env inboundEnvelope
	if err := c.stream.RecvMsg(&env); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("channel: recv: %w", err)
	}
	if env.WorkItem == nil {
		return nil, fmt.Errorf("channel: recv: envelope carried no work item")
	}
	return env.WorkItem, nil
}

// SendCompletion enqueues a completion for the writer goroutine. It blocks
// if the send queue is full (backpressure, spec §5).
func (c *Channel) SendCompletion(ctx context.Context, completion *durabletask.Completion) error {
	select {
	case c.sendCh <- outboundEnvelope{Completion: completion}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.closeCh:
		return fmt.Errorf("channel: closed")
	}
}

// SendHealthPong acknowledges a health ping.
func (c *Channel) SendHealthPong(ctx context.Context, deliveryID string) error {
	select {
	case c.sendCh <- outboundEnvelope{HealthPong: &HealthPong{DeliveryID: deliveryID}}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.closeCh:
		return fmt.Errorf("channel: closed")
	}
}

// Close stops the writer goroutine and tears down the stream.
func (c *Channel) Close() error {
	close(c.closeCh)
	c.wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// writerLoop is the single writer goroutine draining sendCh onto the
// stream, mirroring the teacher's Broker.run fan-out goroutine generalized
// from "publish to many subscribers" to "serialize writes to one stream."
func (c *Channel) writerLoop() {
	defer c.wg.Done()
	logger := log.WithComponent("channel")
	for {
		select {
		case env := <-c.sendCh:
			if err := c.stream.SendMsg(&env); err != nil {
				logger.Error().Err(err).Msg("failed to send outbound message")
			}
		case <-c.closeCh:
			return
		}
	}
}

// transportCredentials resolves grpc transport credentials for the
// configured Authentication mode. Only None is implemented end to end
// here; every other mode resolves to a CredentialProvider the caller must
// supply through the token cache — Azure SDK auth itself is out of
// process scope (spec §1, external collaborators).
func (c *Channel) transportCredentials() (credentials.TransportCredentials, error) {
	return TransportCredentials(c.cs)
}

// attachHeaders returns a context carrying the per-call metadata headers
// required on every RPC (spec §6.1): taskhub, Authorization, user-agent.
func (c *Channel) attachHeaders(ctx context.Context) (context.Context, error) {
	return AttachHeaders(ctx, c.cs, c.tokenCache)
}

// TransportCredentials is the package-level form of the Authentication-mode
// decision above, reused by the client surface's unary RPCs (pkg/client)
// so both the streaming channel and the client dial identically.
func TransportCredentials(cs *ConnectionString) (credentials.TransportCredentials, error) {
	if cs.Authentication == AuthNone {
		return insecure.NewCredentials(), nil
	}
	return credentials.NewTLS(nil), nil
}

// AttachHeaders is the package-level form of the per-call metadata
// attachment above (spec §6.1), reused by pkg/client's unary RPCs.
func AttachHeaders(ctx context.Context, cs *ConnectionString, tokenCache *security.TokenCache) (context.Context, error) {
	md := metadata.Pairs(
		"taskhub", cs.TaskHub,
		"user-agent", "durabletask-worker/0.1.0",
	)

	if cs.Authentication != AuthNone {
		if tokenCache == nil {
			return nil, fmt.Errorf("channel: authentication mode %q requires a token cache", cs.Authentication)
		}
		tok, err := tokenCache.GetToken(ctx, []string{cs.Endpoint + "/.default"})
		if err != nil {
			return nil, fmt.Errorf("channel: acquire token: %w", err)
		}
		md.Set("authorization", "Bearer "+tok.Value)
	}

	return metadata.NewOutgoingContext(ctx, md), nil
}
