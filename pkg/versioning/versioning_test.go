package versioning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateStrictMatch(t *testing.T) {
	opts := Options{WorkerVersion: "2.0.0", MatchStrategy: MatchStrict, FailureStrategy: FailureFail}

	outcome, err := Evaluate(opts, "2.0.0")
	require.NoError(t, err)
	assert.Equal(t, Accept, outcome)

	outcome, err = Evaluate(opts, "1.9.0")
	require.NoError(t, err)
	assert.Equal(t, Fail, outcome)
}

func TestEvaluateCurrentOrLower(t *testing.T) {
	opts := Options{WorkerVersion: "2.5.0", MatchStrategy: MatchCurrentOrLower, FailureStrategy: FailureReject}

	outcome, err := Evaluate(opts, "2.4.9")
	require.NoError(t, err)
	assert.Equal(t, Accept, outcome)

	outcome, err = Evaluate(opts, "2.6.0")
	require.NoError(t, err)
	assert.Equal(t, Reject, outcome)
}

func TestEvaluateAnyAcceptsEverything(t *testing.T) {
	opts := Options{MatchStrategy: MatchAny}
	outcome, err := Evaluate(opts, "whatever")
	require.NoError(t, err)
	assert.Equal(t, Accept, outcome)
}

func TestEvaluateUsesDefaultVersionWhenItemVersionEmpty(t *testing.T) {
	opts := Options{WorkerVersion: "1.0.0", DefaultVersion: "1.0.0", MatchStrategy: MatchStrict}
	outcome, err := Evaluate(opts, "")
	require.NoError(t, err)
	assert.Equal(t, Accept, outcome)
}

func TestCompareVersionsNumericOrdering(t *testing.T) {
	assert.Equal(t, -1, compareVersions("1.2.9", "1.2.10"))
	assert.Equal(t, 0, compareVersions("1.2.3", "1.2.3"))
	assert.Equal(t, 1, compareVersions("2.0.0", "1.9.9"))
}
