package rx

// ClassifierInputs are the per-sample-tick observations feeding error
// classification.
type ClassifierInputs struct {
	Filtered    bool
	FrameActive bool
	BitValid    bool
	Bit         bool
	FrameErr    bool
	ParityErr   bool
}

// ClassifyResult carries the one-shot outputs of a classifier step.
type ClassifyResult struct {
	// BreakDetect pulses when a potential break is confirmed at the
	// falling edge of frame activity.
	BreakDetect bool
}

// Classifier derives and latches the five link-level error conditions.
// Flags are sticky: a slow consumer cannot miss a transient condition.
// Clear resets all five atomically, except that break re-latches while
// its live condition (armed, line still low) persists.
type Classifier struct {
	ticksPerBit int
	breakBits   int
	timeoutBits int

	framing bool
	parity  bool
	overrun bool
	brk     bool
	timeout bool

	lowRun    int  // consecutive low bit samples within frame activity
	armed     bool // potential break
	idleTicks int

	prevActive   bool
	prevFiltered bool
	filtered     bool // last observed level, consulted by Clear
}

// NewClassifier creates a Classifier for a validated configuration.
func NewClassifier(cfg Config) *Classifier {
	e := &Classifier{
		ticksPerBit: TicksPerBit,
		breakBits:   cfg.BreakBits,
		timeoutBits: cfg.TimeoutBits,
	}
	e.Reset()
	return e
}

// Reset clears all flags and counters, line assumed idle.
func (e *Classifier) Reset() {
	*e = Classifier{
		ticksPerBit:  e.ticksPerBit,
		breakBits:    e.breakBits,
		timeoutBits:  e.timeoutBits,
		prevFiltered: true,
		filtered:     true,
	}
}

// Step consumes one sample tick of observations.
func (e *Classifier) Step(in ClassifierInputs) (r ClassifyResult) {
	if in.FrameErr {
		e.framing = true
	}
	if in.ParityErr {
		e.parity = true
	}

	// Break arming counts consecutive low bit samples taken while a
	// frame is active. The final stop bit of a frame samples on the
	// same tick frame activity falls, hence prevActive.
	if in.BitValid && (in.FrameActive || e.prevActive) {
		if in.Bit {
			e.lowRun, e.armed = 0, false
		} else {
			e.lowRun++
			if e.lowRun >= e.breakBits {
				e.armed = true
			}
		}
	}
	if e.prevActive && !in.FrameActive && e.armed {
		e.brk = true
		r.BreakDetect = true
	}
	// The live break condition ends only when the line returns high
	// outside frame activity.
	if !in.FrameActive && in.Filtered {
		e.armed, e.lowRun = false, 0
	}

	// Idle timeout: ticks without frame activity or line transitions.
	if in.FrameActive || in.Filtered != e.prevFiltered {
		e.idleTicks = 0
	} else {
		e.idleTicks++
		if e.idleTicks >= e.ticksPerBit*e.timeoutBits-1 {
			e.timeout = true
		}
	}

	e.prevActive = in.FrameActive
	e.prevFiltered = in.Filtered
	e.filtered = in.Filtered
	return
}

// LatchOverrun latches the overrun flag. Called by the receiver when
// a push is rejected by a full buffer.
func (e *Classifier) LatchOverrun() {
	e.overrun = true
}

// Clear resets all five latched flags. Break stays asserted while its
// live condition persists: the line must return high first.
func (e *Classifier) Clear() {
	e.framing, e.parity, e.overrun, e.timeout = false, false, false, false
	e.brk = e.armed && !e.filtered
}

// Framing reports the latched framing error flag.
func (e *Classifier) Framing() bool { return e.framing }

// Parity reports the latched parity error flag.
func (e *Classifier) Parity() bool { return e.parity }

// Overrun reports the latched overrun flag.
func (e *Classifier) Overrun() bool { return e.overrun }

// Break reports the latched break flag.
func (e *Classifier) Break() bool { return e.brk }

// Timeout reports the latched idle timeout flag.
func (e *Classifier) Timeout() bool { return e.timeout }

// ErrorDetected aggregates the framing, parity, break and timeout
// conditions.
func (e *Classifier) ErrorDetected() bool {
	return e.framing || e.parity || e.brk || e.timeout
}
