package channel

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/cuemby/durabletask/pkg/durabletask"
	"github.com/cuemby/durabletask/pkg/log"
	"github.com/cuemby/durabletask/pkg/metrics"
)

// helloTimeout bounds how long Start waits for HelloAck before giving up
// and retrying under backoff.
const helloTimeout = 30 * time.Second

// Factory constructs a fresh, unstarted Channel for one connection
// attempt. RunWithReconnect calls it again on every reconnect since a
// *Channel is single-use (its send queue and writer goroutine are torn
// down on Close).
type Factory func() *Channel

// RunWithReconnect keeps a scheduler channel alive for the lifetime of
// ctx: on any transport error from Start or Recv it closes the channel,
// waits out a jittered backoff, and reconnects. The scheduler re-issues
// any work items in flight, so no replay buffering happens here (spec
// §4.3). handle is invoked for every work item received on the current
// connection; its return value is ignored — completions are sent
// independently via the Channel the caller keeps a reference to through
// onConnected.
func RunWithReconnect(ctx context.Context, capabilities []string, newChannel Factory, onConnected func(*Channel), handle func(*durabletask.WorkItem)) error {
	logger := log.WithComponent("channel")
	backoff := DefaultBackoffPolicy()
	attempt := 0

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		ch := newChannel()
		if err := ch.Start(ctx, capabilities, helloTimeout); err != nil {
			metrics.ChannelReconnectsTotal.Inc()
			metrics.ChannelConnected.Set(0)
			logger.Warn().Err(err).Int("attempt", attempt).Msg("scheduler channel connect failed")
			if !sleepOrDone(ctx, backoff.Delay(attempt)) {
				return ctx.Err()
			}
			attempt++
			continue
		}

		attempt = 0
		metrics.ChannelConnected.Set(1)
		if onConnected != nil {
			onConnected(ch)
		}

		recvErr := recvLoop(ctx, ch, handle)
		ch.Close()
		metrics.ChannelConnected.Set(0)

		if errors.Is(recvErr, context.Canceled) || ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(recvErr, io.EOF) {
			logger.Info().Msg("scheduler closed stream, reconnecting")
		} else {
			logger.Warn().Err(recvErr).Msg("scheduler channel recv failed, reconnecting")
		}
		metrics.ChannelReconnectsTotal.Inc()
		if !sleepOrDone(ctx, backoff.Delay(0)) {
			return ctx.Err()
		}
	}
}

func recvLoop(ctx context.Context, ch *Channel, handle func(*durabletask.WorkItem)) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		item, err := ch.Recv()
		if err != nil {
			return err
		}
		handle(item)
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
