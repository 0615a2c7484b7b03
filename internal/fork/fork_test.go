//go:build unix

package fork

import (
	"os"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	orizonassert "github.com/orizon-lang/proptest/internal/testrunner/assert"
)

const (
	testKeyImmediatePass = "fork-test-immediate-pass"
	testKeySleepForever  = "fork-test-sleep-forever"
)

// TestMain registers every key this file's tests Dispatch against before
// checking MaybeRunChild, exactly as internal/fork's package doc requires
// of any fork-mode binary: a re-exec'd test process is the same binary, so
// registration has to happen here too, not just in the parent's test body.
func TestMain(m *testing.M) {
	Register(testKeyImmediatePass, func(seed uint64) bool { return true })
	Register(testKeySleepForever, func(seed uint64) bool {
		time.Sleep(10 * time.Second)
		return true
	})
	if MaybeRunChild(nil) {
		return
	}
	os.Exit(m.Run())
}

func TestDispatchImmediatePass(t *testing.T) {
	outcome, err := Dispatch(testKeyImmediatePass, 1, Policy{Timeout: 2 * time.Second})
	orizonassert.NoError(t, err)
	orizonassert.Equal(t, outcome, OutcomePass)
}

// TestDispatchTimeoutResolvesWithoutLeakingAZombie covers spec §8's
// "~100ms fork timeout" scenario: a child that never exits on its own must
// still be resolved (killed, reaped, and reported OutcomeFail) well within
// a second, and a second non-blocking reap afterward must find nothing
// left over.
func TestDispatchTimeoutResolvesWithoutLeakingAZombie(t *testing.T) {
	start := time.Now()
	outcome, err := Dispatch(testKeySleepForever, 1, Policy{
		Timeout:   100 * time.Millisecond,
		ExitGrace: 20 * time.Millisecond,
	})
	elapsed := time.Since(start)

	orizonassert.NoError(t, err)
	orizonassert.Equal(t, outcome, OutcomeFail)
	orizonassert.True(t, elapsed < time.Second,
		"dispatch took too long to resolve a stuck child")

	// Dispatch already reaped the killed child; a second non-blocking
	// reap here must find no further zombie left behind.
	var ws unix.WaitStatus
	pid, _ := unix.Wait4(-1, &ws, unix.WNOHANG, nil)
	orizonassert.True(t, pid <= 0, "a zombie child was left behind")
}
