package proptest

import (
	"bytes"
	"io"
	"testing"

	"github.com/orizon-lang/proptest/internal/bitstream"
	orizonassert "github.com/orizon-lang/proptest/internal/testrunner/assert"
)

func byteTI() TypeInfo[byte] {
	return TypeInfo[byte]{
		Alloc: func(src *bitstream.Source) (byte, error) {
			v, err := src.Bits(8)
			return byte(v), err
		},
		Hash:  func(v byte) uint64 { return uint64(v) },
		Print: func(w io.Writer, v byte) { io.WriteString(w, "byte") },
		Autoshrink: AutoshrinkConfig{
			Enable:          true,
			InitialPoolBits: 64,
		},
	}
}

func TestRun1AlwaysTruePasses(t *testing.T) {
	report := Run1(RunConfig{Trials: 20}, byteTI(), func(b byte) bool { return true })
	orizonassert.Equal(t, report.Result, RunPass)
	orizonassert.Equal(t, report.Passed, 20)
}

func TestRun1FindsAndReportsFailure(t *testing.T) {
	report := Run1(RunConfig{Trials: 50}, byteTI(), func(b byte) bool { return b != 0 })
	orizonassert.Equal(t, report.Result, RunFail)
	orizonassert.True(t, report.Failed >= 1, "expected at least one recorded failure")
}

func TestRun2ValidatesBothDescriptors(t *testing.T) {
	bad := TypeInfo[byte]{}
	report := Run2(RunConfig{Trials: 5}, byteTI(), bad, func(a, b byte) bool { return true })
	orizonassert.Equal(t, report.Result, RunErrorBadArgs)
}

func TestLoggingHooksWritesTrialLines(t *testing.T) {
	var buf bytes.Buffer
	cfg := RunConfig{Trials: 3, Hooks: LoggingHooks(&buf)}
	_ = Run1(cfg, byteTI(), func(b byte) bool { return true })
	orizonassert.True(t, buf.Len() > 0, "expected logging hooks to write output")
}
