// Package versioning implements the worker-version matching rules applied
// by the orchestration dispatcher before the first turn of a work item
// (spec §4.7).
package versioning

import "fmt"

// MatchStrategy controls how a work item's orchestration version is
// compared against this worker's WorkerVersion.
type MatchStrategy string

const (
	// MatchStrict requires an exact version match.
	MatchStrict MatchStrategy = "strict"
	// MatchCurrentOrLower accepts the work item's version if it is equal
	// to or older than WorkerVersion.
	MatchCurrentOrLower MatchStrategy = "currentOrLower"
	// MatchAny accepts any version.
	MatchAny MatchStrategy = "any"
)

// FailureStrategy controls what happens when MatchStrategy rejects a work
// item's version.
type FailureStrategy string

const (
	// FailureReject abandons the work item without running any user code,
	// leaving it for the scheduler to redeliver (e.g. to a newer worker).
	FailureReject FailureStrategy = "reject"
	// FailureFail completes the work item as failed.
	FailureFail FailureStrategy = "fail"
)

// Options configures version matching for a worker instance.
type Options struct {
	WorkerVersion   string
	DefaultVersion  string
	MatchStrategy   MatchStrategy
	FailureStrategy FailureStrategy
}

// DefaultOptions returns the zero-configuration behavior: any version is
// accepted, matching a worker that does not participate in versioning.
func DefaultOptions() Options {
	return Options{MatchStrategy: MatchAny, FailureStrategy: FailureFail}
}

// Outcome is the result of evaluating a work item's version against Options.
type Outcome int

const (
	// Accept means the work item should be dispatched normally.
	Accept Outcome = iota
	// Reject means the work item should be abandoned for redelivery.
	Reject
	// Fail means the work item should be completed as failed.
	Fail
)

// Evaluate decides what to do with a work item carrying itemVersion. An
// empty itemVersion is treated as DefaultVersion.
func Evaluate(opts Options, itemVersion string) (Outcome, error) {
	if itemVersion == "" {
		itemVersion = opts.DefaultVersion
	}

	var ok bool
	switch opts.MatchStrategy {
	case "", MatchAny:
		ok = true
	case MatchStrict:
		ok = itemVersion == opts.WorkerVersion
	case MatchCurrentOrLower:
		ok = itemVersion == opts.WorkerVersion || compareVersions(itemVersion, opts.WorkerVersion) <= 0
	default:
		return Fail, fmt.Errorf("versioning: unknown match strategy %q", opts.MatchStrategy)
	}

	if ok {
		return Accept, nil
	}
	switch opts.FailureStrategy {
	case "", FailureFail:
		return Fail, nil
	case FailureReject:
		return Reject, nil
	default:
		return Fail, fmt.Errorf("versioning: unknown failure strategy %q", opts.FailureStrategy)
	}
}

// compareVersions performs a dotted-numeric comparison ("1.2.10" > "1.2.9"),
// falling back to lexicographic ordering for non-numeric segments so that
// arbitrary version strings never panic this comparison.
func compareVersions(a, b string) int {
	as, bs := splitSegments(a), splitSegments(b)
	for i := 0; i < len(as) || i < len(bs); i++ {
		var av, bv string
		if i < len(as) {
			av = as[i]
		}
		if i < len(bs) {
			bv = bs[i]
		}
		if av == bv {
			continue
		}
		an, aerr := parseSegment(av)
		bn, berr := parseSegment(bv)
		if aerr == nil && berr == nil {
			switch {
			case an < bn:
				return -1
			case an > bn:
				return 1
			default:
				continue
			}
		}
		if av < bv {
			return -1
		}
		return 1
	}
	return 0
}

func splitSegments(v string) []string {
	var segs []string
	start := 0
	for i := 0; i < len(v); i++ {
		if v[i] == '.' {
			segs = append(segs, v[start:i])
			start = i + 1
		}
	}
	segs = append(segs, v[start:])
	return segs
}

func parseSegment(s string) (int, error) {
	n := 0
	if s == "" {
		return 0, fmt.Errorf("empty segment")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-numeric segment %q", s)
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}
