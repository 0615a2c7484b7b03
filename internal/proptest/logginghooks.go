package proptest

import (
	"fmt"
	"io"
)

// LoggingHooks returns a Hooks value that writes a line to w before and
// after each trial and after each shrink candidate trial, the adapted analogue of theft_aux_logging.c's trivial
// "log trial outcomes" hook set from the original C reference. It composes
// with a caller's own Hooks by calling both in sequence (see Compose).
func LoggingHooks(w io.Writer) Hooks {
	return Hooks{
		TrialPre: func(info TrialInfo) HookResponse {
			fmt.Fprintf(w, "trial %d: seed=%#x\n", info.TrialID, info.TrialSeed)
			return Continue
		},
		TrialPost: func(info TrialInfo, res RunTrialResult) HookResponse {
			fmt.Fprintf(w, "trial %d: %s\n", info.TrialID, trialResultString(res))
			return Continue
		},
		ShrinkTrialPost: func(info ShrinkInfo, res RunTrialResult) HookResponse {
			fmt.Fprintf(w, "shrink arg=%d tactic=%d: %s\n", info.ArgIndex, info.Tactic, trialResultString(res))
			return Continue
		},
	}
}

func trialResultString(res RunTrialResult) string {
	switch res {
	case TrialPass:
		return "PASS"
	case TrialFail:
		return "FAIL"
	case TrialSkip:
		return "SKIP"
	default:
		return "ERROR"
	}
}

// Compose runs each hook in hs in order for a given event, stopping (and
// returning) at the first non-Continue response. Halt/HookError/Repeat/
// RepeatOnce from an earlier hook short-circuits later ones in the list,
// the same short-circuit discipline spec.md §5 describes for a single
// hook's response.
func Compose(hs ...Hooks) Hooks {
	return Hooks{
		RunPre: func() HookResponse {
			for _, h := range hs {
				if r := h.fireRunPre(); r != Continue {
					return r
				}
			}
			return Continue
		},
		RunPost: func(r Report) HookResponse {
			for _, h := range hs {
				if resp := h.fireRunPost(r); resp != Continue {
					return resp
				}
			}
			return Continue
		},
		Counterexample: func(seed uint64, args []string) HookResponse {
			for _, h := range hs {
				if r := h.fireCounterexample(seed, args); r != Continue {
					return r
				}
			}
			return Continue
		},
		GenArgsPre: func() HookResponse {
			for _, h := range hs {
				if r := h.fireGenArgsPre(); r != Continue {
					return r
				}
			}
			return Continue
		},
		TrialPre: func(info TrialInfo) HookResponse {
			for _, h := range hs {
				if r := h.fireTrialPre(info); r != Continue {
					return r
				}
			}
			return Continue
		},
		TrialPost: func(info TrialInfo, res RunTrialResult) HookResponse {
			for _, h := range hs {
				if r := h.fireTrialPost(info, res); r != Continue {
					return r
				}
			}
			return Continue
		},
		ShrinkPre: func(info ShrinkInfo) HookResponse {
			for _, h := range hs {
				if r := h.fireShrinkPre(info); r != Continue {
					return r
				}
			}
			return Continue
		},
		ShrinkPost: func(info ShrinkInfo) HookResponse {
			for _, h := range hs {
				if r := h.fireShrinkPost(info); r != Continue {
					return r
				}
			}
			return Continue
		},
		ShrinkTrialPost: func(info ShrinkInfo, res RunTrialResult) HookResponse {
			for _, h := range hs {
				if r := h.fireShrinkTrialPost(info, res); r != Continue {
					return r
				}
			}
			return Continue
		},
		ForkPost: func() HookResponse {
			for _, h := range hs {
				if r := h.fireForkPost(); r != Continue {
					return r
				}
			}
			return Continue
		},
	}
}
