package client

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cuemby/durabletask/pkg/durabletask"
)

func TestOrchestrationMetadataIsTerminal(t *testing.T) {
	cases := []struct {
		status   durabletask.RuntimeStatus
		terminal bool
	}{
		{durabletask.StatusPending, false},
		{durabletask.StatusRunning, false},
		{durabletask.StatusSuspended, false},
		{durabletask.StatusCompleted, true},
		{durabletask.StatusFailed, true},
		{durabletask.StatusTerminated, true},
		{durabletask.StatusContinued, false},
	}
	for _, tc := range cases {
		m := &OrchestrationMetadata{RuntimeStatus: tc.status}
		assert.Equal(t, tc.terminal, m.IsTerminal(), "status %s", tc.status)
	}
}
