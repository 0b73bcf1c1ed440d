/*
Package events is an in-process, in-memory pub/sub bus for worker
lifecycle notifications: a host application subscribes to learn about
scheduler connectivity and dispatch failures without the worker package
taking a direct dependency on whatever logging/alerting stack the host
uses.

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)
	go func() {
		for ev := range sub {
			fmt.Printf("[%s] %s\n", ev.Type, ev.Message)
		}
	}()

	broker.Publish(&events.Event{
		Type:    events.EventChannelDisconnected,
		Message: "scheduler channel reconnecting",
	})

# Delivery semantics

Publish never blocks on a slow subscriber: broadcast drops an event for
any subscriber whose buffer (50 events) is full rather than waiting.
There is no persistence or replay — a subscriber that was not listening
when an event fired never sees it. This trades guaranteed delivery for a
broker that can never back up the worker's own dispatch loops, the same
trade-off the teacher's cluster event bus made for service/node/secret
notifications.
*/
package events
