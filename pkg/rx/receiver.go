package rx

// DecodedByte is one decoded frame payload with its per-frame flags.
// Erroneous frames still deliver their byte; the caller decides
// whether to discard it.
type DecodedByte struct {
	Value      uint16
	FramingErr bool
	ParityErr  bool
}

// ByteHandler is called when a frame completes and its byte is
// delivered.
type ByteHandler interface {
	HandleByte(DecodedByte)
}

// HandleByteFunc is func type of ByteHandler.
type HandleByteFunc func(DecodedByte)

// HandleByte implements ByteHandler.
func (f HandleByteFunc) HandleByte(b DecodedByte) {
	f(b)
}

// StatusNotifier is called when any status flag changes.
type StatusNotifier interface {
	StatusChanged(Status)
}

// StatusChangedFunc is func type of StatusNotifier.
type StatusChangedFunc func(Status)

// StatusChanged implements StatusNotifier.
func (f StatusChangedFunc) StatusChanged(s Status) {
	f(s)
}

// Status is the full set of receiver status flags, recomputed every
// step.
type Status struct {
	Empty         bool
	Full          bool
	AlmostFull    bool
	Overflow      bool
	FramingErr    bool
	ParityErr     bool
	OverrunErr    bool
	BreakDetect   bool
	TimeoutDetect bool
	ErrorDetected bool
	RequestToSend bool
}

// Input carries one time-base step of external signals.
type Input struct {
	// SampleTick gates the decode pipeline; the other line signals
	// are only examined while it is set.
	SampleTick bool
	// Level is the raw line level.
	Level bool
	// ReadRequest pops the oldest decoded byte.
	ReadRequest bool
	// ErrorClear resets the five latched error flags.
	ErrorClear bool
	// BufferClear discards buffered bytes and the overflow flag.
	BufferClear bool
	// Reset forces every component to its initial state atomically
	// and overrides everything else in this step.
	Reset bool
}

// Output is the observable result of one step.
type Output struct {
	// Byte/ByteValid pulse when a frame completes this step.
	Byte      DecodedByte
	ByteValid bool
	// Read/ReadValid answer a ReadRequest.
	Read      uint16
	ReadValid bool
	// Status is the post-step flag snapshot.
	Status Status
}

// Receiver composes the decode pipeline: conditioner, bit sampler,
// frame sequencer, byte assembler, receive buffer and error
// classifier, advanced in dependency order once per step.
type Receiver struct {
	cfg  Config
	cond *Conditioner
	smp  *Sampler
	seq  *Sequencer
	asm  *Assembler
	buf  *Buffer
	cls  *Classifier

	// Handler, if set, observes every delivered byte.
	Handler ByteHandler
	// Notifier, if set, observes status flag changes.
	Notifier StatusNotifier

	lastStatus Status
}

// New creates a Receiver. The configuration is normalized and
// validated; the receiver keeps its own copy.
func New(cfg Config) (*Receiver, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Receiver{
		cfg:  cfg,
		cond: NewConditioner(),
		smp:  NewSampler(),
		seq:  NewSequencer(cfg),
		asm:  NewAssembler(cfg),
		buf:  NewBuffer(cfg.BufferSize, cfg.AlmostFull),
		cls:  NewClassifier(cfg),
	}
	r.lastStatus = r.Status()
	return r, nil
}

// Config returns the receiver's normalized configuration.
func (r *Receiver) Config() Config {
	return r.cfg
}

// Step advances the receiver one time-base step.
func (r *Receiver) Step(in Input) (out Output) {
	if in.Reset {
		r.reset()
		out.Status = r.notify()
		return
	}
	if in.ErrorClear {
		r.cls.Clear()
	}
	if in.BufferClear {
		r.buf.Clear()
	}
	// Pop before push: a concurrent read in the same step frees the
	// slot, so a full buffer does not block the incoming byte.
	if in.ReadRequest {
		if v, ok := r.buf.Pop(); ok {
			out.Read, out.ReadValid = v, true
		}
	}
	if in.SampleTick {
		out.Byte, out.ByteValid = r.sample(in.Level)
	}
	out.Status = r.notify()
	return
}

// sample runs the decode pipeline for one sample tick.
func (r *Receiver) sample(level bool) (DecodedByte, bool) {
	cr := r.cond.Step(level)
	sr := r.smp.Step(cr.Filtered, cr.Falling)
	if sr.Started {
		r.seq.Begin()
		r.asm.Reset()
	}
	if sr.StartRejected {
		r.seq.Abort()
	}
	var qr SeqResult
	if sr.BitValid {
		qr = r.seq.OnBit(sr.Bit)
		if qr.DataBitValid {
			r.asm.SetBit(qr.BitIndex, qr.DataBit)
		}
		if qr.FrameComplete {
			r.smp.Stop()
		}
	}
	er := r.cls.Step(ClassifierInputs{
		Filtered:    cr.Filtered,
		FrameActive: r.seq.Active(),
		BitValid:    sr.BitValid,
		Bit:         sr.Bit,
		FrameErr:    qr.FrameErr,
		ParityErr:   qr.ParityErr,
	})
	if er.BreakDetect {
		r.seq.ForceBreak()
		r.smp.Stop()
	}
	r.seq.OnLine(cr.Filtered)
	// A confirmed break delivers no byte.
	if !qr.FrameComplete || er.BreakDetect {
		return DecodedByte{}, false
	}
	b := DecodedByte{
		Value:      r.asm.Emit(),
		FramingErr: qr.FrameErr,
		ParityErr:  qr.ParityErr,
	}
	if !r.buf.Push(b.Value) {
		r.cls.LatchOverrun()
	}
	if h := r.Handler; h != nil {
		h.HandleByte(b)
	}
	return b, true
}

func (r *Receiver) reset() {
	r.cond.Reset()
	r.smp.Reset()
	r.seq.Reset()
	r.asm.Reset()
	r.buf.Clear()
	r.cls.Reset()
}

// Status computes the current flag snapshot.
func (r *Receiver) Status() Status {
	return Status{
		Empty:         r.buf.Empty(),
		Full:          r.buf.Full(),
		AlmostFull:    r.buf.AlmostFull(),
		Overflow:      r.buf.Overflow(),
		FramingErr:    r.cls.Framing(),
		ParityErr:     r.cls.Parity(),
		OverrunErr:    r.cls.Overrun(),
		BreakDetect:   r.cls.Break(),
		TimeoutDetect: r.cls.Timeout(),
		ErrorDetected: r.cls.ErrorDetected(),
		RequestToSend: r.buf.RequestToSend(),
	}
}

// Data returns the oldest decoded byte without consuming it. The
// value stays latched until read.
func (r *Receiver) Data() (uint16, bool) {
	return r.buf.Peek()
}

// ReadData pops the oldest decoded byte.
func (r *Receiver) ReadData() (uint16, error) {
	v, ok := r.buf.Pop()
	if !ok {
		return 0, ErrBufferEmpty
	}
	return v, nil
}

// Buffered returns the number of decoded bytes waiting to be read.
func (r *Receiver) Buffered() int {
	return r.buf.Len()
}

func (r *Receiver) notify() Status {
	s := r.Status()
	if s != r.lastStatus {
		r.lastStatus = s
		if n := r.Notifier; n != nil {
			n.StatusChanged(s)
		}
	}
	return s
}
