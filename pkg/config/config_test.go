package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/durabletask/pkg/versioning"
)

func TestNormalizeAppliesDefaults(t *testing.T) {
	opts, err := Options{ConnectionString: "Endpoint=https://x;TaskHub=h"}.Normalize()
	require.NoError(t, err)

	assert.Equal(t, DefaultMaximumTimerInterval, opts.MaximumTimerInterval)
	assert.Equal(t, DefaultExternalPayloadThreshold, opts.ExternalPayloadThreshold)
	assert.Equal(t, versioning.DefaultOptions(), opts.Versioning)
	assert.Equal(t, []string{"orchestrations", "activities"}, opts.Capabilities)
}

func TestNormalizeRequiresConnectionString(t *testing.T) {
	_, err := Options{}.Normalize()
	require.Error(t, err)
}

func TestNormalizeAddsEntitiesCapability(t *testing.T) {
	opts, err := Options{ConnectionString: "Endpoint=https://x;TaskHub=h", EnableEntitySupport: true}.Normalize()
	require.NoError(t, err)
	assert.Contains(t, opts.Capabilities, "entities")
}
