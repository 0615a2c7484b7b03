package proptest

// HookResponse is the value a hook callback returns to steer the runner.
type HookResponse int

const (
	// Continue proceeds normally.
	Continue HookResponse = iota
	// Halt stops the run (or the current shrink) cleanly at a safe point.
	Halt
	// HookError is fatal: the runner tears down and returns RunError.
	HookError
	// Repeat is accepted from any hook, trial_post and shrink_trial_post
	// included. The runner does not re-invoke the property or the shrink
	// candidate trial for it; it proceeds exactly as for Continue.
	Repeat
	// RepeatOnce is accepted and handled the same way as Repeat.
	RepeatOnce
)

// TrialInfo is passed to trial_pre/trial_post hooks.
type TrialInfo struct {
	TrialID   int
	TrialSeed uint64
}

// ShrinkInfo is passed to shrink_pre/shrink_post/shrink_trial_post hooks.
type ShrinkInfo struct {
	ArgIndex     int
	Tactic       uint32
	ShrinkCount  int
}

// Hooks holds the optional callbacks the runner fires at the points listed
// in spec §4.5/§4.6/§6. Any nil hook is treated as if it returned Continue.
// There is no separate "env" parameter the way the C original threads a
// void* through every callback: Go closures already capture whatever state
// a hook needs, so an explicit env slot would just be a second, redundant
// way to do the same thing (see DESIGN.md).
type Hooks struct {
	RunPre          func() HookResponse
	RunPost         func(Report) HookResponse
	GenArgsPre      func() HookResponse
	TrialPre        func(TrialInfo) HookResponse
	TrialPost       func(TrialInfo, RunTrialResult) HookResponse
	ForkPost        func() HookResponse
	ShrinkPre       func(ShrinkInfo) HookResponse
	ShrinkPost      func(ShrinkInfo) HookResponse
	ShrinkTrialPost func(ShrinkInfo, RunTrialResult) HookResponse
	// Counterexample is invoked once, after shrinking finishes, with the
	// seed of the originally failing trial and the minimal arguments'
	// printed form (spec §7 "User-visible failure"). The default (nil)
	// behavior is the equivalent of printing each argument via its
	// descriptor's Print, which is exactly what Report.FailingArgs already
	// holds for the caller to print; Counterexample exists for callers who
	// want to intercept that moment instead (e.g. write it to a file).
	Counterexample func(seed uint64, args []string) HookResponse
}

func (h Hooks) fireRunPre() HookResponse {
	if h.RunPre == nil {
		return Continue
	}
	return h.RunPre()
}

func (h Hooks) fireRunPost(r Report) HookResponse {
	if h.RunPost == nil {
		return Continue
	}
	return h.RunPost(r)
}

func (h Hooks) fireCounterexample(seed uint64, args []string) HookResponse {
	if h.Counterexample == nil {
		return Continue
	}
	return h.Counterexample(seed, args)
}

func (h Hooks) fireGenArgsPre() HookResponse {
	if h.GenArgsPre == nil {
		return Continue
	}
	return h.GenArgsPre()
}

func (h Hooks) fireTrialPre(info TrialInfo) HookResponse {
	if h.TrialPre == nil {
		return Continue
	}
	return h.TrialPre(info)
}

func (h Hooks) fireTrialPost(info TrialInfo, res RunTrialResult) HookResponse {
	if h.TrialPost == nil {
		return Continue
	}
	return h.TrialPost(info, res)
}

func (h Hooks) fireShrinkPre(info ShrinkInfo) HookResponse {
	if h.ShrinkPre == nil {
		return Continue
	}
	return h.ShrinkPre(info)
}

func (h Hooks) fireShrinkPost(info ShrinkInfo) HookResponse {
	if h.ShrinkPost == nil {
		return Continue
	}
	return h.ShrinkPost(info)
}

func (h Hooks) fireShrinkTrialPost(info ShrinkInfo, res RunTrialResult) HookResponse {
	if h.ShrinkTrialPost == nil {
		return Continue
	}
	return h.ShrinkTrialPost(info, res)
}

func (h Hooks) fireForkPost() HookResponse {
	if h.ForkPost == nil {
		return Continue
	}
	return h.ForkPost()
}
