package proptest

import (
	"strconv"
	"sync/atomic"

	protoerrors "github.com/orizon-lang/proptest/internal/errors"
	"github.com/orizon-lang/proptest/internal/bitstream"
	"github.com/orizon-lang/proptest/internal/bloom"
	"github.com/orizon-lang/proptest/internal/fork"
	"github.com/orizon-lang/proptest/internal/xrand"
)

var forkKeySeq int64

func nextForkKey() string {
	return "proptest-" + strconv.FormatInt(atomic.AddInt64(&forkKeySeq, 1), 10)
}

// runCore brackets one Run call with the run_pre/run_post hooks (spec §6)
// around runTrials. callProperty reads the live values currently held by
// slots. regenerateAndCall rebuilds an independent copy of the arguments
// from a bare seed and evaluates the property against them — used only
// for forked top-level trial dispatch, since a forked child cannot see
// the parent's in-memory slot state.
func runCore(cfg RunConfig, slots []slot, callProperty func() bool, regenerateAndCall func(seed uint64) bool, printArgs func() []string) Report {
	cfg = cfg.resolved()

	if cfg.Hooks.fireRunPre() == HookError {
		return errorReport(Report{}, RunError, protoerrors.Hook("run_pre", "hook requested Error"))
	}
	report := runTrials(cfg, slots, callProperty, regenerateAndCall, printArgs)
	if cfg.Hooks.fireRunPost(report) == HookError {
		return errorReport(report, RunError, protoerrors.Hook("run_post", "hook requested Error"))
	}
	return report
}

// runTrials drives the seed schedule, generation, bloom dedup, property
// dispatch, and shrink driver shared by every arity; see runCore for the
// run_pre/run_post bracket around it.
func runTrials(cfg RunConfig, slots []slot, callProperty func() bool, regenerateAndCall func(seed uint64) bool, printArgs func() []string) Report {
	allHashable := true
	for _, s := range slots {
		if !s.hashable() {
			allHashable = false
			break
		}
	}

	var filter *bloom.Filter
	if allHashable {
		filter = bloom.New(0, 0)
	}

	var forkKey string
	if cfg.Fork.Enable && regenerateAndCall != nil {
		if cfg.Fork.Key != "" {
			// The caller already registered this key at startup (see
			// RegisterFork1/RegisterFork2 and internal/fork's package
			// doc) so a re-exec'd child can find it; do not re-register
			// or unregister a key we don't own.
			forkKey = cfg.Fork.Key
		} else {
			forkKey = nextForkKey()
			fork.Register(forkKey, regenerateAndCall)
			defer fork.Unregister(forkKey)
		}
	}

	report := Report{Result: RunPass}
	var chainedSeed uint64
	anyPassed := false

	for i := 0; i < cfg.Trials; i++ {
		genArgsResp := cfg.Hooks.fireGenArgsPre()
		if genArgsResp == HookError {
			return errorReport(report, RunError, protoerrors.Hook("gen_args_pre", "hook requested Error"))
		}
		if genArgsResp == Halt {
			break
		}

		seed := cfg.seedFor(i, chainedSeed)
		prng := xrand.New(seed)

		skip, allocErr := generateArgs(slots, prng)
		if allocErr != nil {
			return errorReport(report, RunError, protoerrors.Alloc(-1, allocErr.Error()))
		}
		chainedSeed = prng.Uint64()

		if skip {
			report.Skipped++
			freeAll(slots)
			continue
		}

		if filter != nil {
			key := hashArgs(slots)
			if filter.Check(key) {
				report.Dups++
				freeAll(slots)
				continue
			}
			filter.Mark(key)
		}

		info := TrialInfo{TrialID: i, TrialSeed: seed}
		trialPreResp := cfg.Hooks.fireTrialPre(info)
		if trialPreResp == HookError {
			freeAll(slots)
			return errorReport(report, RunError, protoerrors.Hook("trial_pre", "hook requested Error"))
		}
		if trialPreResp == Halt {
			freeAll(slots)
			break
		}

		passed, dispatchErr := dispatchProperty(cfg, callProperty, regenerateAndCall, forkKey, seed)
		if dispatchErr != nil {
			freeAll(slots)
			return errorReport(report, RunError, protoerrors.Trial(dispatchErr.Error(), nil))
		}

		trialRes := TrialPass
		if !passed {
			trialRes = TrialFail
		}

		resp := cfg.Hooks.fireTrialPost(info, trialRes)
		if resp == HookError {
			freeAll(slots)
			return errorReport(report, RunError, protoerrors.Hook("trial_post", "hook requested Error"))
		}

		if passed {
			report.Passed++
			anyPassed = true
			freeAll(slots)
			if resp == Halt {
				break
			}
			continue
		}

		// Failure: every failing trial counts toward the run (spec §4.5
		// "a run is FAIL if any trial ended in failure that survived to
		// the counter" — the loop keeps running the configured trial
		// count rather than stopping at the first failure; see §8's
		// overconstrained-property scenario, where later trials land on
		// already-seen values and register as dups instead of re-failing).
		// Only the first failure is shrunk and becomes the run's reported
		// counterexample.
		report.Failed++
		if report.Failed == 1 {
			report.FailingSeed = seed

			decide := shrinkDecider(prng)
			if shrinkErr := runShrinkDriver(slots, cfg.Hooks, func() bool {
				p, _ := dispatchProperty(cfg, callProperty, nil, "", 0)
				return p
			}, decide, &report); shrinkErr != nil {
				freeAll(slots)
				return errorReport(report, RunError, shrinkErr)
			}

			report.FailingArgs = printArgs()

			if cfg.Hooks.fireCounterexample(report.FailingSeed, report.FailingArgs) == HookError {
				freeAll(slots)
				return errorReport(report, RunError, protoerrors.Hook("counterexample", "hook requested Error"))
			}
		}

		freeAll(slots)
		if resp == Halt {
			break
		}
	}

	switch {
	case report.Failed > 0:
		report.Result = RunFail
	case anyPassed:
		report.Result = RunPass
	default:
		report.Result = RunSkip
	}
	report.Trials = report.Passed + report.Failed + report.Skipped + report.Dups
	return report
}

func generateArgs(slots []slot, prng bitstream.PRNG) (skip bool, err error) {
	for _, s := range slots {
		if genErr := s.generate(prng); genErr != nil {
			if genErr == ErrAllocSkip {
				return true, nil
			}
			return false, genErr
		}
	}
	return false, nil
}

func hashArgs(slots []slot) uint64 {
	var h uint64
	for _, s := range slots {
		h = h*1099511628211 ^ s.hash()
	}
	return h
}

func freeAll(slots []slot) {
	for _, s := range slots {
		s.free()
	}
}

func errorReport(base Report, result RunResult, err error) Report {
	base.Result = result
	base.Err = err
	return base
}

// dispatchProperty calls the property either directly or, when Fork is
// enabled and a seed-reproducible variant is available, in a forked
// child. seed/regenerateAndCall are only meaningful for top-level trial
// dispatch; shrink-candidate calls always pass nil/0 and run in-process.
func dispatchProperty(cfg RunConfig, callProperty func() bool, regenerateAndCall func(seed uint64) bool, forkKey string, seed uint64) (bool, error) {
	if !cfg.Fork.Enable || regenerateAndCall == nil {
		return callProperty(), nil
	}
	outcome, err := fork.Dispatch(forkKey, seed, fork.Policy{
		Timeout:   cfg.Fork.Timeout,
		Signal:    cfg.Fork.Signal,
		ExitGrace: cfg.Fork.ExitGrace,
	})
	if resp := cfg.Hooks.fireForkPost(); resp == HookError {
		return false, protoerrors.Hook("fork_post", "hook requested Error")
	}
	if err != nil {
		return false, err
	}
	switch outcome {
	case fork.OutcomePass:
		return true, nil
	case fork.OutcomeFail, fork.OutcomeCrash:
		return false, nil
	default:
		return false, nil
	}
}
