// Package autoshrink implements the bit-pool mutation engine described in
// spec §4.4: given a bit pool recorded during generation, it produces
// simpler candidate pools by dropping or mutating individual draws, guided
// by an adaptive per-action weight model.
package autoshrink

// Action is one of the five autoshrink tactics, represented as a bitmask so
// a single byte can record which actions were tried/changed something
// during one shrink attempt (mirrors cur_tried/cur_set in the reference
// implementation).
type Action uint8

const (
	ActionDrop Action = 1 << iota
	ActionShift
	ActionMask
	ActionSwap
	ActionSub
)

// weight indexes into Model.weights, one per action.
type weight int

const (
	weightDrop weight = iota
	weightShift
	weightMask
	weightSwap
	weightSub
	weightCount
)

func weightOf(a Action) weight {
	switch a {
	case ActionDrop:
		return weightDrop
	case ActionShift:
		return weightShift
	case ActionMask:
		return weightMask
	case ActionSwap:
		return weightSwap
	case ActionSub:
		return weightSub
	default:
		panic("autoshrink: unknown action")
	}
}

// Weight bounds and initial values, per spec §3.
const (
	WeightMin = 0x08
	WeightMax = 0x80

	initDrop  = 0x80
	initEven  = 0x40
	initSwap  = 0x30
)

// Model holds the five action weights plus the bookkeeping for a single
// shrink attempt: which actions were attempted (curTried) and which
// actually changed the pool (curSet). An optional pinned nextAction forces
// a specific action, for deterministic tests.
type Model struct {
	weights    [weightCount]uint16
	curTried   Action
	curSet     Action
	nextAction Action
}

// NewModel returns a model with the spec's reference initial weights:
// DROP=0x80, SHIFT=MASK=SUB=0x40, SWAP=0x30.
func NewModel() *Model {
	return &Model{
		weights: [weightCount]uint16{
			weightDrop:  initDrop,
			weightShift: initEven,
			weightMask:  initEven,
			weightSwap:  initSwap,
			weightSub:   initEven,
		},
	}
}

// Weight returns the current weight for an action.
func (m *Model) Weight(a Action) uint16 { return m.weights[weightOf(a)] }

// PinNext forces the next mutation decision to the given action, overriding
// the weighted draw. Used by tests that need a deterministic tactic.
func (m *Model) PinNext(a Action) { m.nextAction = a }

// ResetAttempt clears the tried/changed bitmasks at the start of a new
// shrink attempt.
func (m *Model) ResetAttempt() {
	m.curTried = 0
	m.curSet = 0
}

// NoteAttempt records that action was attempted and whether it changed the
// pool's bits.
func (m *Model) NoteAttempt(a Action, changed bool) {
	m.curTried |= a
	if changed {
		m.curSet |= a
	}
}

// bitsFunc draws n bits (1<=n<=64) from whatever source the caller is
// using for shrink decisions; satisfied by *bitstream.Source.Bits with the
// error ignored (the driver never asks for an out-of-range width).
type bitsFunc func(n uint) uint64

// ShouldDrop decides DROP vs MUTATE for this shrink attempt. It draws 8
// bits and compares against the drop weight, scaled down to
// min(weight, 8*requestCount) so pools with few requests rarely drop
// everything at once (spec §4.4).
func (m *Model) ShouldDrop(bits bitsFunc, requestCount int) bool {
	if m.nextAction != 0 {
		return m.nextAction == ActionDrop
	}
	threshold := uint64(m.Weight(ActionDrop))
	if scaled := uint64(8 * requestCount); scaled < threshold {
		threshold = scaled
	}
	draw := bits(8)
	return draw < threshold
}

// bitCountFor returns the smallest bit width, at least 5, whose range covers
// [0, n).
func bitCountFor(n uint64) uint {
	bits := uint(5)
	for (uint64(1) << bits) < n {
		bits++
	}
	return bits
}

// GetWeightedMutation picks one of SHIFT/MASK/SWAP/SUB by drawing bits and
// comparing against cumulative weight thresholds, redrawing on the rare
// out-of-range draw (rejection sampling, as in the reference model).
func (m *Model) GetWeightedMutation(bits bitsFunc) Action {
	if m.nextAction != 0 && m.nextAction != ActionDrop {
		return m.nextAction
	}

	shift := uint64(m.weights[weightShift])
	mask := shift + uint64(m.weights[weightMask])
	swap := mask + uint64(m.weights[weightSwap])
	sub := swap + uint64(m.weights[weightSub])

	bitCount := bitCountFor(sub)
	for {
		draw := bits(bitCount)
		switch {
		case draw < shift:
			return ActionShift
		case draw < mask:
			return ActionMask
		case draw < swap:
			return ActionSwap
		case draw < sub:
			return ActionSub
		default:
			continue
		}
	}
}

// NotifyTrialResult applies the post-trial weight update (spec §4.4): for
// every action in curSet, +adjustment if the trial still failed,
// -adjustment if it passed or was skipped; for every action tried but not
// set, subtract adjustment (never add) to de-emphasize dead actions. Then
// renormalize: double all weights if the total falls under 0x80, halve all
// weights if it exceeds 0x100 and every weight is currently even.
func (m *Model) NotifyTrialResult(adjustment int16, stillFailing bool) {
	for a := ActionDrop; a <= ActionSub; a <<= 1 {
		w := weightOf(a)
		switch {
		case m.curSet&a != 0:
			m.adjust(w, adjustment, stillFailing)
		case m.curTried&a != 0:
			m.adjust(w, adjustment, false)
		}
	}
	m.renormalize()
}

func (m *Model) adjust(w weight, adjustment int16, increase bool) {
	cur := int32(m.weights[w])
	if increase {
		cur += int32(adjustment)
	} else {
		cur -= int32(adjustment)
	}
	if cur < WeightMin {
		cur = WeightMin
	}
	if cur > WeightMax {
		cur = WeightMax
	}
	m.weights[w] = uint16(cur)
}

func (m *Model) renormalize() {
	var total uint16
	allEven := true
	for _, w := range m.weights {
		total += w
		if w&1 != 0 {
			allEven = false
		}
	}
	switch {
	case total < 0x80:
		for i := range m.weights {
			m.weights[i] *= 2
		}
	case total > 0x100 && allEven:
		for i := range m.weights {
			m.weights[i] /= 2
		}
	}
}
