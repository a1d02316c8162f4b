package rx

// Assembler accumulates validated data bits into a byte-wide register
// with the configured bit order. Bit positions are tracked by the
// sequencer, not here, so the assembler carries no cross-frame state
// beyond the register itself.
type Assembler struct {
	width int
	order BitOrder
	reg   uint16
}

// NewAssembler creates an Assembler for a validated configuration.
func NewAssembler(cfg Config) *Assembler {
	return &Assembler{width: cfg.DataBits, order: cfg.BitOrder}
}

// Reset clears the register. Called at every frame start.
func (a *Assembler) Reset() {
	a.reg = 0
}

// SetBit places received bit i according to the configured bit order.
func (a *Assembler) SetBit(i int, bit bool) {
	if !bit {
		return
	}
	pos := uint(i)
	if a.order == MSBFirst {
		pos = uint(a.width - 1 - i)
	}
	a.reg |= 1 << pos
}

// Emit returns the register masked to the configured width.
func (a *Assembler) Emit() uint16 {
	return a.reg & (1<<uint(a.width) - 1)
}
