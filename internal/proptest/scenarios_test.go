package proptest_test

import (
	"strconv"
	"strings"
	"testing"

	"github.com/orizon-lang/proptest/internal/proptest"
	orizonassert "github.com/orizon-lang/proptest/internal/testrunner/assert"
	"github.com/orizon-lang/proptest/typeinfo"
)

// TestSquareBoundViolationShrinksToGenuineCounterexample covers spec §8's
// "x*x <= y" scenario: the property is false whenever x is large enough
// relative to y, so Run2 must report FAIL with a counterexample that, once
// parsed back, actually violates x*x <= y — not merely "some failure
// occurred".
func TestSquareBoundViolationShrinksToGenuineCounterexample(t *testing.T) {
	xTI := typeinfo.IntRange(-128, 127)
	yTI := typeinfo.IntRange(0, 65535)

	report := proptest.Run2(proptest.RunConfig{Trials: 300, Seed: 0x5a11}, xTI, yTI,
		func(x, y int) bool { return x*x <= y })

	orizonassert.Equal(t, report.Result, proptest.RunFail)
	orizonassert.NoError(t, report.Err, "shrink driver should have run without erroring")
	orizonassert.Equal(t, len(report.FailingArgs), 2)

	x, err := strconv.Atoi(report.FailingArgs[0])
	orizonassert.NoError(t, err)
	y, err := strconv.Atoi(report.FailingArgs[1])
	orizonassert.NoError(t, err)
	orizonassert.True(t, x*x > y, "reported counterexample x=%d y=%d does not actually violate x*x<=y", x, y)
}

// TestUniqueElementsPropertyShrinksToADuplicatePair covers spec §8's
// linked-list-uniqueness scenario: a small element range over trials=1000,
// seed=12345 all but guarantees a generated slice collides with itself, and
// the reported counterexample must contain a genuine duplicate once
// shrinking finishes.
func TestUniqueElementsPropertyShrinksToADuplicatePair(t *testing.T) {
	elemTI := typeinfo.IntRange(0, 5)
	listTI := typeinfo.Slice(elemTI, 8)

	report := proptest.Run1(proptest.RunConfig{Trials: 1000, Seed: 12345}, listTI,
		func(xs []int) bool { return allDistinct(xs) })

	orizonassert.Equal(t, report.Result, proptest.RunFail)
	orizonassert.Equal(t, len(report.FailingArgs), 1)

	xs := parseIntList(t, report.FailingArgs[0])
	orizonassert.False(t, allDistinct(xs), "shrunk counterexample %v has no duplicate", xs)
}

// TestOverconstrainedBoolPropertyAccountsEveryTrial covers spec §8's
// tautology-violation scenario: a property that fails regardless of its
// bool argument's value can only ever see the two distinct bool values
// once each before every later trial in a 100-trial run lands on bloom-
// filtered duplicates — exercising the "run keeps counting past the first
// failure" behavior spec §4.5's run states require.
func TestOverconstrainedBoolPropertyAccountsEveryTrial(t *testing.T) {
	report := proptest.Run1(proptest.RunConfig{Trials: 100, Seed: 999}, typeinfo.Bool(),
		func(bp bool) bool { return false })

	orizonassert.Equal(t, report.Result, proptest.RunFail)
	orizonassert.Equal(t, report.Passed, 0)
	orizonassert.Equal(t, report.Failed, 2)
	orizonassert.Equal(t, report.Dups, 98)
	orizonassert.Equal(t, report.Trials, 100)
}

func allDistinct(xs []int) bool {
	seen := make(map[int]bool, len(xs))
	for _, x := range xs {
		if seen[x] {
			return false
		}
		seen[x] = true
	}
	return true
}

func parseIntList(t *testing.T, printed string) []int {
	t.Helper()
	trimmed := strings.TrimSuffix(strings.TrimPrefix(printed, "["), "]")
	if trimmed == "" {
		return nil
	}
	fields := strings.Fields(trimmed)
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		orizonassert.NoError(t, err)
		out = append(out, n)
	}
	return out
}
