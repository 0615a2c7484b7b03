// Package fork isolates a single property evaluation in a forked child
// process, per spec §4.7. Because the child is produced by ForkExec — a
// real exec, not a raw fork that would carry the parent's Go runtime and
// heap across the call — it cannot simply invoke a closure captured in
// the parent's memory. Instead, a property is registered once at startup
// under a stable key together with a function that can rebuild its
// arguments from nothing but a trial seed; the re-executed child reads
// the key and seed from its environment and reconstructs the trial from
// scratch rather than inheriting live state.
//
// This covers top-level trial dispatch, where arguments are generated
// fresh from a seed anyway. A shrink-candidate trial's arguments come
// from a mutated bit pool, not a seed, and serializing that pool across
// a process boundary is out of scope (see DESIGN.md) — shrink-candidate
// trials always run in-process even when fork mode is enabled.
//
// A binary that wants fork-mode property dispatch must call Register for
// every fork-eligible property and then call MaybeRunChild immediately
// afterward, before flag parsing or anything else that could have side
// effects — see cmd/proptest-fuzz. Registration has to run in the child
// too (it is the same re-exec'd binary), which is why it must come first.
//
//go:build unix

package fork

import (
	"errors"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// childEnvKey names the environment variable the parent sets to tell a
// re-executed child which registered property to run.
const childEnvKey = "PROPTEST_FORK_CHILD"

// seedEnvKey carries the trial seed the child should regenerate its
// arguments from.
const seedEnvKey = "PROPTEST_FORK_SEED"

// resultFDEnvKey tells the child which inherited fd to write its one-byte
// result to; Dispatch always places the pipe's write end at fd 3 (stdin,
// stdout, stderr, then the pipe).
const resultFDEnvKey = "PROPTEST_FORK_RESULT_FD"

var (
	registryMu sync.Mutex
	registry   = map[string]func(seed uint64) bool{}
)

// Register associates key with a function that regenerates a trial's
// arguments from a seed and evaluates the property against them. Call
// this once at startup, before any Dispatch, for every property the
// binary might run in fork mode.
func Register(key string, fn func(seed uint64) bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[key] = fn
}

// Unregister removes a previously registered key.
func Unregister(key string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, key)
}

// MaybeRunChild checks whether this process was re-exec'd as a fork-mode
// child. If so, it looks up the registered key, rebuilds the trial from
// the inherited seed, writes a one-byte result to the inherited pipe, and
// calls os.Exit — this function never returns in that case. Otherwise it
// returns false immediately so normal main() execution continues.
func MaybeRunChild(forkPost func()) bool {
	key := os.Getenv(childEnvKey)
	if key == "" {
		return false
	}

	registryMu.Lock()
	fn, ok := registry[key]
	registryMu.Unlock()

	code := byte(resultError)
	if ok {
		seed := parseSeed(os.Getenv(seedEnvKey))
		if forkPost != nil {
			forkPost()
		}
		if fn(seed) {
			code = byte(resultPass)
		} else {
			code = byte(resultFail)
		}
	}

	if fdStr := os.Getenv(resultFDEnvKey); fdStr != "" {
		if fd := parseFD(fdStr); fd >= 0 {
			_, _ = unix.Write(fd, []byte{code})
			_ = unix.Close(fd)
		}
	}
	os.Exit(0)
	panic("unreachable")
}

func parseSeed(s string) uint64 {
	var n uint64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + uint64(c-'0')
	}
	return n
}

func formatSeed(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func parseFD(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return -1
		}
		n = n*10 + int(c-'0')
	}
	return n
}

type resultCode byte

const (
	resultPass resultCode = iota
	resultFail
	resultError
)

// Outcome is the result of a forked dispatch.
type Outcome int

const (
	OutcomePass Outcome = iota
	OutcomeFail
	OutcomeCrash // child exited without writing a result byte
)

// ErrSpawnFailed wraps a ForkExec failure.
var ErrSpawnFailed = errors.New("fork: failed to spawn child")

// Policy mirrors proptest.ForkPolicy without importing that package
// (avoiding an import cycle); the proptest package translates on call.
type Policy struct {
	Timeout   time.Duration
	Signal    int
	ExitGrace time.Duration
}

// DefaultExitGrace is used when Policy.ExitGrace is zero.
const DefaultExitGrace = 100 * time.Millisecond

// Dispatch re-execs the current binary with childEnvKey set to key and
// seedEnvKey set to seed, so the child can look up the function Register
// associated with key and rebuild the trial from seed, and waits for its
// one-byte result, applying policy's timeout and signal escalation. Reap
// is always attempted non-blockingly afterward so zombies do not
// accumulate between forks.
func Dispatch(key string, seed uint64, policy Policy) (Outcome, error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return OutcomeCrash, err
	}
	defer pr.Close()

	exe, err := os.Executable()
	if err != nil {
		pw.Close()
		return OutcomeCrash, err
	}

	procAttr := &os.ProcAttr{
		Files: append(append([]*os.File{}, os.Stdin, os.Stdout, os.Stderr), pw),
		Env: append(os.Environ(),
			childEnvKey+"="+key,
			seedEnvKey+"="+formatSeed(seed),
			resultFDEnvKey+"=3",
		),
	}
	proc, err := startProcessWithBackoff(exe, os.Args, procAttr)
	pw.Close()
	if err != nil {
		return OutcomeCrash, ErrSpawnFailed
	}

	outcome, waitErr := waitForResult(proc, pr, policy)
	reapNonBlocking()
	return outcome, waitErr
}

// maxSpawnRetries bounds the EAGAIN back-off loop in startProcessWithBackoff
// (spec §4.7): 1ns doubling up to 2^10ns, for up to 10 tries.
const maxSpawnRetries = 10

// startProcessWithBackoff retries os.StartProcess on EAGAIN (the kernel is
// momentarily out of process slots), reaping any already-exited children
// between attempts to free one up, and backing off 1ns, 2ns, 4ns, ...,
// 2^10ns before giving up (spec §4.7 "On EAGAIN ... wait for any child to
// reap, sleep with exponential back-off ..., then retry the fork").
func startProcessWithBackoff(exe string, argv []string, attr *os.ProcAttr) (*os.Process, error) {
	var lastErr error
	delay := time.Nanosecond
	for try := 0; try <= maxSpawnRetries; try++ {
		proc, err := os.StartProcess(exe, argv, attr)
		if err == nil {
			return proc, nil
		}
		if !errors.Is(err, unix.EAGAIN) {
			return nil, err
		}
		lastErr = err
		reapNonBlocking()
		time.Sleep(delay)
		delay *= 2
	}
	return nil, lastErr
}

// waitForResult polls the pipe for one byte, bounded by policy.Timeout
// (zero means wait indefinitely). On timeout it escalates: policy.Signal
// (default SIGTERM), then up to ExitGrace for voluntary exit, then
// SIGKILL and a further 10ms wait. The pipe read runs in its own
// goroutine joined via errgroup so a slow or crashed child's read never
// leaks a goroutine past Dispatch's return.
func waitForResult(proc *os.Process, pr *os.File, policy Policy) (Outcome, error) {
	resultCh := make(chan byte, 1)
	var g errgroup.Group
	g.Go(func() error {
		var b [1]byte
		n, _ := pr.Read(b[:])
		if n == 1 {
			resultCh <- b[0]
		}
		close(resultCh)
		return nil
	})
	defer g.Wait()

	var timeoutCh <-chan time.Time
	if policy.Timeout > 0 {
		timer := time.NewTimer(policy.Timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case b, ok := <-resultCh:
		_, _ = proc.Wait()
		if !ok {
			return OutcomeCrash, nil
		}
		return codeToOutcome(resultCode(b)), nil
	case <-timeoutCh:
		return escalate(proc, resultCh, policy)
	}
}

func escalate(proc *os.Process, resultCh chan byte, policy Policy) (Outcome, error) {
	sig := unix.Signal(policy.Signal)
	if sig == 0 {
		sig = unix.SIGTERM
	}
	_ = proc.Signal(sig)

	grace := policy.ExitGrace
	if grace == 0 {
		grace = DefaultExitGrace
	}
	select {
	case b, ok := <-resultCh:
		_, _ = proc.Wait()
		if !ok {
			return OutcomeCrash, nil
		}
		return codeToOutcome(resultCode(b)), nil
	case <-time.After(grace):
	}

	_ = proc.Kill()
	select {
	case b, ok := <-resultCh:
		_, _ = proc.Wait()
		if ok && codeToOutcome(resultCode(b)) == OutcomePass {
			// Exited with success despite the timeout race: spec §4.7
			// counts this as a pass rather than a fail.
			return OutcomePass, nil
		}
		return OutcomeFail, nil
	case <-time.After(10 * time.Millisecond):
		_, _ = proc.Wait()
		return OutcomeFail, nil
	}
}

func codeToOutcome(c resultCode) Outcome {
	switch c {
	case resultPass:
		return OutcomePass
	case resultFail:
		return OutcomeFail
	default:
		return OutcomeCrash
	}
}

// reapNonBlocking reaps any already-exited children without blocking, so
// zombies from prior forks do not accumulate (spec §4.7 "in all cases").
func reapNonBlocking() {
	for {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-1, &ws, unix.WNOHANG, nil)
		if pid <= 0 || err != nil {
			return
		}
	}
}
