package channel

import "github.com/cuemby/durabletask/pkg/durabletask"

// Hello is the first outbound message on a new stream.
type Hello struct {
	WorkerID     string
	Capabilities []string
}

// HelloAck is the scheduler's handshake response.
type HelloAck struct {
	Accepted bool
	Reason   string
}

// inboundEnvelope is the wire shape of every scheduler->worker message.
// Exactly one field is populated; the worker switches on which.
type inboundEnvelope struct {
	HelloAck *HelloAck
	WorkItem *durabletask.WorkItem
}

// outboundEnvelope is the wire shape of every worker->scheduler message.
// Exactly one field is populated; HealthPong acknowledges a HealthPing
// work item (itself delivered as a WorkItem with Kind WorkItemHealthPing).
type outboundEnvelope struct {
	Hello      *Hello
	Completion *durabletask.Completion
	HealthPong *HealthPong
}

// HealthPong acknowledges a HealthPing work item, echoing its delivery id.
type HealthPong struct {
	DeliveryID string
}
