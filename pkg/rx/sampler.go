package rx

// Vote sample positions within a bit period. The majority of the
// three mid-bit samples becomes the bit value, so a single corrupted
// sample outside the window never flips a bit.
const (
	voteFirst = 7
	voteLast  = 9
	bitLast   = TicksPerBit - 1
)

// Sampler recovers bit timing from the filtered line level.
// It counts sample ticks 0..15 per bit period, records the filtered
// level at positions 7, 8 and 9, majority-votes them at position 9
// and emits the voted bit at position 15.
type Sampler struct {
	active  bool
	first   bool // qualifying the start bit
	counter int
	votes   [3]bool
	bit     bool
}

// SampleResult is the per-sample-tick output of the Sampler.
type SampleResult struct {
	// Started is set when a falling edge enters bit timing.
	Started bool
	// StartRejected is set when the first bit period votes high:
	// the start condition was a glitch, no bit is emitted.
	StartRejected bool
	// BitValid pulses at the end of each bit period.
	BitValid bool
	// Bit is the majority-voted value, meaningful with BitValid.
	Bit bool
}

// NewSampler creates an idle Sampler.
func NewSampler() *Sampler {
	return &Sampler{}
}

// Reset returns the sampler to idle.
func (s *Sampler) Reset() {
	*s = Sampler{}
}

// Active reports whether bit timing is running.
func (s *Sampler) Active() bool {
	return s.active
}

// Stop leaves bit timing. Called by the receiver when the frame
// sequencer returns to idle or a break is forced.
func (s *Sampler) Stop() {
	s.active, s.first, s.counter = false, false, 0
}

// Step consumes one sample tick. The activating falling edge is
// position 0 of the start bit.
func (s *Sampler) Step(filtered, falling bool) (r SampleResult) {
	if !s.active {
		if falling {
			s.active, s.first = true, true
			s.counter = 1
			r.Started = true
		}
		return
	}
	switch s.counter {
	case voteFirst, voteFirst + 1:
		s.votes[s.counter-voteFirst] = filtered
	case voteLast:
		s.votes[2] = filtered
		s.bit = majority3(s.votes[0], s.votes[1], s.votes[2])
		if s.first && s.bit {
			s.Stop()
			r.StartRejected = true
			return
		}
	case bitLast:
		r.BitValid, r.Bit = true, s.bit
		s.first = false
		s.counter = 0
		return
	}
	s.counter++
	return
}
