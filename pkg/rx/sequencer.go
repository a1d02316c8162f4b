package rx

// seqState enumerates the framing protocol states.
type seqState int

const (
	stateIdle   seqState = iota
	stateStart           // sampling the start bit
	stateData            // sampling data bits, bitPos tracks position
	stateParity          // sampling the parity bit
	stateStop1           // sampling the first stop bit
	stateStop2           // sampling the second stop bit
	stateBreak           // line seized by a break condition
)

// Sequencer drives the start-data-parity-stop framing protocol.
// It routes each voted bit to its destination and validates the
// parity and stop positions.
type Sequencer struct {
	width  int
	parity Parity
	stops  int

	state  seqState
	bitPos int
	acc    bool // XOR of data bits received so far
}

// SeqResult is the outcome of feeding one voted bit.
type SeqResult struct {
	// DataBit/BitIndex forward a data bit to the assembler.
	DataBit      bool
	DataBitValid bool
	BitIndex     int
	// ParityErr pulses when the sampled parity bit mismatches.
	ParityErr bool
	// FrameErr pulses when a stop bit samples low. The frame still
	// completes and its byte is still delivered.
	FrameErr bool
	// FrameComplete pulses exactly once per accepted frame.
	FrameComplete bool
}

// NewSequencer creates a Sequencer for a validated configuration.
func NewSequencer(cfg Config) *Sequencer {
	return &Sequencer{width: cfg.DataBits, parity: cfg.Parity, stops: cfg.StopBits}
}

// Reset returns to idle, discarding any in-flight frame.
func (q *Sequencer) Reset() {
	q.state, q.bitPos, q.acc = stateIdle, 0, false
}

// Active reports whether a frame is in progress.
func (q *Sequencer) Active() bool {
	return q.state != stateIdle && q.state != stateBreak
}

// InBreak reports whether the sequencer is held in the break state.
func (q *Sequencer) InBreak() bool {
	return q.state == stateBreak
}

// Begin starts a frame on a qualified start condition.
func (q *Sequencer) Begin() {
	if q.state == stateIdle {
		q.state = stateStart
		q.bitPos, q.acc = 0, false
	}
}

// Abort returns to idle when start qualification fails.
func (q *Sequencer) Abort() {
	if q.state == stateStart {
		q.state = stateIdle
	}
}

// OnBit consumes one voted bit at its bit_valid pulse.
func (q *Sequencer) OnBit(bit bool) (r SeqResult) {
	switch q.state {
	case stateStart:
		q.state = stateData
		q.bitPos = 0
	case stateData:
		r.DataBit, r.DataBitValid, r.BitIndex = bit, true, q.bitPos
		if bit {
			q.acc = !q.acc
		}
		q.bitPos++
		if q.bitPos == q.width {
			if q.parity != ParityNone {
				q.state = stateParity
			} else {
				q.state = stateStop1
			}
		}
	case stateParity:
		if bit != q.expectedParity() {
			r.ParityErr = true
		}
		q.state = stateStop1
	case stateStop1:
		if !bit {
			r.FrameErr = true
		}
		if q.stops == 2 {
			q.state = stateStop2
		} else {
			q.state = stateIdle
			r.FrameComplete = true
		}
	case stateStop2:
		if !bit {
			r.FrameErr = true
		}
		q.state = stateIdle
		r.FrameComplete = true
	}
	return
}

// expectedParity computes the parity bit value implied by the data
// bits received so far.
func (q *Sequencer) expectedParity() bool {
	switch q.parity {
	case ParityEven:
		return q.acc
	case ParityOdd:
		return !q.acc
	case ParityMark:
		return true
	default: // ParitySpace
		return false
	}
}

// ForceBreak seizes the sequencer from any state.
func (q *Sequencer) ForceBreak() {
	q.state = stateBreak
}

// OnLine releases the break state once the filtered line is high.
func (q *Sequencer) OnLine(filtered bool) {
	if q.state == stateBreak && filtered {
		q.state = stateIdle
	}
}
