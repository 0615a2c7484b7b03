package proptest

import protoerrors "github.com/orizon-lang/proptest/internal/errors"

// runShrinkDriver implements the breadth-first greedy shrink loop of spec
// §4.6: walk the argument list in order, and for each argument repeatedly
// attempt the next tactic until it is exhausted before moving to the
// next. A candidate that still fails is committed and the argument's
// tactic counter resets to zero, so the next attempt on that same
// argument re-starts from the smallest tactic against the newly-shrunk
// value; a candidate that passes (or dead-ends) is reverted and the
// tactic counter advances.
//
// A non-nil return is fatal (spec §4.6 "Error: propagate fatal", §7 "(4)
// shrink errors — fatal"): a user Shrink callback or the autoshrink engine
// returning an error, or any of shrink_pre/shrink_post/shrink_trial_post
// responding HookError, aborts shrinking immediately and the caller must
// turn the whole run into RunError rather than RunFail.
func runShrinkDriver(slots []slot, hooks Hooks, runCandidate func() bool, decide func(uint) uint64, report *Report) error {
	for i, s := range slots {
		tactic := uint32(0)

	argLoop:
		for {
			info := ShrinkInfo{ArgIndex: i, Tactic: tactic, ShrinkCount: report.ShrinkCount}
			switch hooks.fireShrinkPre(info) {
			case HookError:
				return protoerrors.Hook("shrink_pre", "hook requested Error")
			case Halt:
				break argLoop
			}

			outcome, err := s.attemptShrink(tactic, decide)
			if err != nil {
				report.FailedShrinks++
				return protoerrors.Shrink(i, err.Error())
			}

			switch outcome {
			case ShrinkNoMoreTactics:
				break argLoop

			case ShrinkDeadEnd:
				tactic++
				continue

			case ShrinkOK:
				report.ShrinkCount++
				s.stageCandidate()
				stillFails := !runCandidate()

				trialRes := TrialPass
				if stillFails {
					trialRes = TrialFail
				}
				trialResp := hooks.fireShrinkTrialPost(info, trialRes)

				if stillFails {
					s.commitCandidate()
					report.SuccessfulShrinks++
					tactic = 0
				} else {
					s.revertCandidate()
					report.FailedShrinks++
					tactic++
				}

				if trialResp == HookError {
					return protoerrors.Hook("shrink_trial_post", "hook requested Error")
				}

				postResp := hooks.fireShrinkPost(info)
				if postResp == HookError {
					return protoerrors.Hook("shrink_post", "hook requested Error")
				}
				if postResp == Halt || trialResp == Halt {
					break argLoop
				}
				continue
			}
		}
	}
	return nil
}

// shrinkDecider adapts a trial's xrand stream into the small decision
// function the autoshrink engine and mutation tactics draw bits from
// (spec §4.4): n is the number of low bits of one Uint64 draw to keep.
func shrinkDecider(prng interface{ Uint64() uint64 }) func(uint) uint64 {
	return func(n uint) uint64 {
		if n >= 64 {
			return prng.Uint64()
		}
		if n == 0 {
			return 0
		}
		return prng.Uint64() & ((uint64(1) << n) - 1)
	}
}
