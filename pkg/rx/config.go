package rx

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// TicksPerBit is the fixed oversampling ratio: sample ticks per bit period.
const TicksPerBit = 16

// Parity selects the parity bit mode of a frame.
type Parity int

const (
	// ParityNone disables the parity bit.
	ParityNone Parity = iota
	// ParityEven expects an even total count of 1 bits.
	ParityEven
	// ParityOdd expects an odd total count of 1 bits.
	ParityOdd
	// ParityMark expects the parity bit fixed at 1.
	ParityMark
	// ParitySpace expects the parity bit fixed at 0.
	ParitySpace
)

var parityNames = map[Parity]string{
	ParityNone:  "none",
	ParityEven:  "even",
	ParityOdd:   "odd",
	ParityMark:  "mark",
	ParitySpace: "space",
}

// String implements fmt.Stringer.
func (p Parity) String() string {
	if s, ok := parityNames[p]; ok {
		return s
	}
	return fmt.Sprintf("parity(%d)", int(p))
}

// ParseParity maps the string form to a Parity value.
func ParseParity(s string) (Parity, error) {
	for p, name := range parityNames {
		if s == name {
			return p, nil
		}
	}
	return ParityNone, fmt.Errorf("unknown parity %q", s)
}

// UnmarshalYAML implements yaml.Unmarshaler accepting the string form.
func (p *Parity) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := ParseParity(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// MarshalYAML implements yaml.Marshaler emitting the string form.
func (p Parity) MarshalYAML() (interface{}, error) {
	return p.String(), nil
}

// BitOrder selects which data bit arrives first on the wire.
type BitOrder int

const (
	// LSBFirst places received bit i at value position i.
	LSBFirst BitOrder = iota
	// MSBFirst places received bit i at value position width-1-i.
	MSBFirst
)

// String implements fmt.Stringer.
func (o BitOrder) String() string {
	if o == MSBFirst {
		return "msb"
	}
	return "lsb"
}

// ParseBitOrder maps the string form to a BitOrder value.
func ParseBitOrder(s string) (BitOrder, error) {
	switch s {
	case "lsb":
		return LSBFirst, nil
	case "msb":
		return MSBFirst, nil
	}
	return LSBFirst, fmt.Errorf("unknown bit order %q", s)
}

// UnmarshalYAML implements yaml.Unmarshaler accepting the string form.
func (o *BitOrder) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := ParseBitOrder(s)
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// MarshalYAML implements yaml.Marshaler emitting the string form.
func (o BitOrder) MarshalYAML() (interface{}, error) {
	return o.String(), nil
}

// Config carries the static configuration of a Receiver.
type Config struct {
	// DataBits is the number of data bits per frame, 5 to 9.
	DataBits int `yaml:"data_bits"`
	// Parity is the parity bit mode.
	Parity Parity `yaml:"parity"`
	// StopBits is the number of stop bits, 1 or 2.
	StopBits int `yaml:"stop_bits"`
	// BitOrder selects LSB-first or MSB-first assembly.
	BitOrder BitOrder `yaml:"bit_order"`
	// BufferSize is the receive buffer capacity, a power of two.
	BufferSize int `yaml:"buffer_size"`
	// AlmostFull is the watermark: almost_full is asserted while
	// occupancy exceeds it. Must stay below BufferSize. Zero selects
	// the default of 75% of capacity; -1 selects a zero threshold,
	// asserting at any occupancy.
	AlmostFull int `yaml:"almost_full"`
	// BreakBits is the count of consecutive low bit samples arming
	// break detection.
	BreakBits int `yaml:"break_bits"`
	// TimeoutBits is the idle timeout, in bit periods without frame
	// activity or line transitions.
	TimeoutBits int `yaml:"timeout_bits"`
}

// DefaultConfig returns the 8N1 configuration with a 16-entry buffer.
func DefaultConfig() Config {
	return Config{
		DataBits:    8,
		Parity:      ParityNone,
		StopBits:    1,
		BitOrder:    LSBFirst,
		BufferSize:  16,
		AlmostFull:  12,
		BreakBits:   10,
		TimeoutBits: 4,
	}
}

// Normalize fills unset fields with defaults.
// It MUST be called before Validate for partially specified configs.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.DataBits == 0 {
		c.DataBits = def.DataBits
	}
	if c.StopBits == 0 {
		c.StopBits = def.StopBits
	}
	if c.BufferSize == 0 {
		c.BufferSize = def.BufferSize
	}
	if c.AlmostFull == 0 {
		c.AlmostFull = c.BufferSize * 3 / 4
	} else if c.AlmostFull == -1 {
		c.AlmostFull = 0
	}
	if c.BreakBits == 0 {
		c.BreakBits = def.BreakBits
	}
	if c.TimeoutBits == 0 {
		c.TimeoutBits = def.TimeoutBits
	}
}

// Validate checks configuration correctness. It does not mutate.
func (c *Config) Validate() error {
	if c.DataBits < 5 || c.DataBits > 9 {
		return fmt.Errorf("data_bits must be 5..9, got %d", c.DataBits)
	}
	if _, ok := parityNames[c.Parity]; !ok {
		return fmt.Errorf("invalid parity %d", int(c.Parity))
	}
	if c.StopBits < 1 || c.StopBits > 2 {
		return fmt.Errorf("stop_bits must be 1 or 2, got %d", c.StopBits)
	}
	if c.BitOrder != LSBFirst && c.BitOrder != MSBFirst {
		return fmt.Errorf("invalid bit_order %d", int(c.BitOrder))
	}
	if c.BufferSize < 1 || c.BufferSize&(c.BufferSize-1) != 0 {
		return fmt.Errorf("buffer_size must be a power of two, got %d", c.BufferSize)
	}
	if c.AlmostFull < 0 || c.AlmostFull >= c.BufferSize {
		return fmt.Errorf("almost_full must be 0..%d, got %d", c.BufferSize-1, c.AlmostFull)
	}
	if c.BreakBits < 1 {
		return fmt.Errorf("break_bits must be positive, got %d", c.BreakBits)
	}
	if c.TimeoutBits < 1 {
		return fmt.Errorf("timeout_bits must be positive, got %d", c.TimeoutBits)
	}
	return nil
}

// FrameBits returns the total bit periods of one frame including
// start, parity and stop bits.
func (c *Config) FrameBits() int {
	n := 1 + c.DataBits + c.StopBits
	if c.Parity != ParityNone {
		n++
	}
	return n
}
