// Package trace synthesizes wire-level waveforms and reads/writes
// recorded line traces, one level per sample tick.
package trace

import (
	"math/bits"

	"github.com/softserial/uartrx.go/pkg/rx"
)

type frameOpts struct {
	invertParity bool
	stopsLow     map[int]bool
	glitches     [][2]int // bit period, sample position
	leadIn       int
	leadOut      int
}

// Option adjusts frame synthesis.
type Option func(*frameOpts)

// WithInvertedParity transmits the wrong parity bit.
func WithInvertedParity() Option {
	return func(o *frameOpts) { o.invertParity = true }
}

// WithStopLow drives stop bit n (0-based) low.
func WithStopLow(n int) Option {
	return func(o *frameOpts) {
		if o.stopsLow == nil {
			o.stopsLow = make(map[int]bool)
		}
		o.stopsLow[n] = true
	}
}

// WithGlitch inverts a single sample: bit period (0 = start bit) and
// sample position 0..15 within it.
func WithGlitch(bit, sample int) Option {
	return func(o *frameOpts) { o.glitches = append(o.glitches, [2]int{bit, sample}) }
}

// WithLeadIn prepends idle bit periods before the start bit.
func WithLeadIn(n int) Option {
	return func(o *frameOpts) { o.leadIn = n }
}

// WithLeadOut appends idle bit periods after the last stop bit.
func WithLeadOut(n int) Option {
	return func(o *frameOpts) { o.leadOut = n }
}

// Frame renders one frame of value as per-sample line levels,
// 16 samples per bit, honoring the configured width, parity, stop
// count and bit order.
func Frame(cfg rx.Config, value uint16, opts ...Option) []bool {
	var o frameOpts
	for _, opt := range opts {
		opt(&o)
	}

	frame := frameBits(cfg, value, &o)

	levels := make([]bool, 0, (o.leadIn+len(frame)+o.leadOut)*rx.TicksPerBit)
	for i := 0; i < o.leadIn*rx.TicksPerBit; i++ {
		levels = append(levels, true)
	}
	body := len(levels)
	for _, b := range frame {
		for i := 0; i < rx.TicksPerBit; i++ {
			levels = append(levels, b)
		}
	}
	for _, g := range o.glitches {
		pos := body + g[0]*rx.TicksPerBit + g[1]
		if pos >= 0 && pos < len(levels) {
			levels[pos] = !levels[pos]
		}
	}
	for i := 0; i < o.leadOut*rx.TicksPerBit; i++ {
		levels = append(levels, true)
	}
	return levels
}

// frameBits lays out the per-bit levels: start, data (wire order),
// optional parity, stops.
func frameBits(cfg rx.Config, value uint16, o *frameOpts) []bool {
	frame := make([]bool, 0, cfg.FrameBits())
	frame = append(frame, false) // start
	for i := 0; i < cfg.DataBits; i++ {
		pos := uint(i)
		if cfg.BitOrder == rx.MSBFirst {
			pos = uint(cfg.DataBits - 1 - i)
		}
		frame = append(frame, value&(1<<pos) != 0)
	}
	if cfg.Parity != rx.ParityNone {
		p := ParityBit(cfg.Parity, value, cfg.DataBits)
		if o.invertParity {
			p = !p
		}
		frame = append(frame, p)
	}
	for i := 0; i < cfg.StopBits; i++ {
		frame = append(frame, !o.stopsLow[i])
	}
	return frame
}

// ParityBit computes the parity bit a transmitter would send for
// value at the given width.
func ParityBit(p rx.Parity, value uint16, width int) bool {
	ones := bits.OnesCount16(value & (1<<uint(width) - 1))
	switch p {
	case rx.ParityEven:
		return ones%2 == 1
	case rx.ParityOdd:
		return ones%2 == 0
	case rx.ParityMark:
		return true
	default: // ParitySpace, ParityNone
		return false
	}
}

// Builder accumulates per-sample levels for multi-frame scenarios.
type Builder struct {
	levels []bool
}

// Idle appends n bit periods of line high.
func (b *Builder) Idle(n int) *Builder {
	return b.hold(true, n)
}

// Low appends n bit periods of line low.
func (b *Builder) Low(n int) *Builder {
	return b.hold(false, n)
}

// Frame appends one synthesized frame.
func (b *Builder) Frame(cfg rx.Config, value uint16, opts ...Option) *Builder {
	b.levels = append(b.levels, Frame(cfg, value, opts...)...)
	return b
}

// Samples appends raw per-sample levels.
func (b *Builder) Samples(levels ...bool) *Builder {
	b.levels = append(b.levels, levels...)
	return b
}

// Levels returns the accumulated waveform.
func (b *Builder) Levels() []bool {
	return b.levels
}

func (b *Builder) hold(level bool, n int) *Builder {
	for i := 0; i < n*rx.TicksPerBit; i++ {
		b.levels = append(b.levels, level)
	}
	return b
}
