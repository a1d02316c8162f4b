// Package clock derives sample and bit ticks from a free-running
// time base.
package clock

import (
	"fmt"
	"math"
)

// TicksPerBit is the fixed ratio of sample ticks per bit tick.
const TicksPerBit = 16

// Gen divides the time base by a configured divisor into sample
// ticks, and by the fixed 16:1 ratio into bit ticks. Divisor rounding
// error is tolerated, never corrected.
type Gen struct {
	divisor int
	count   int
	bits    int
}

// NewGen creates a Gen. The divisor must be positive.
func NewGen(divisor int) (*Gen, error) {
	if divisor < 1 {
		return nil, fmt.Errorf("divisor must be positive, got %d", divisor)
	}
	return &Gen{divisor: divisor}, nil
}

// Divisor returns the configured divisor.
func (g *Gen) Divisor() int {
	return g.divisor
}

// Reset restarts both tick phases.
func (g *Gen) Reset() {
	g.count, g.bits = 0, 0
}

// Step advances one time-base step and reports which ticks fire.
// A bit tick always coincides with a sample tick.
func (g *Gen) Step() (sampleTick, bitTick bool) {
	g.count++
	if g.count < g.divisor {
		return false, false
	}
	g.count = 0
	g.bits++
	if g.bits == TicksPerBit {
		g.bits = 0
		return true, true
	}
	return true, false
}

// DivisorFor computes the rounded divisor producing 16 sample ticks
// per bit period at the requested baud rate.
func DivisorFor(baseHz, baud int) int {
	d := int(math.Round(float64(baseHz) / float64(baud*TicksPerBit)))
	if d < 1 {
		d = 1
	}
	return d
}

// RateError returns the relative baud rate error introduced by
// divisor rounding. Callers should reject configurations beyond
// their tolerance (typically ~2%).
func RateError(baseHz, baud int) float64 {
	d := DivisorFor(baseHz, baud)
	actual := float64(baseHz) / float64(d*TicksPerBit)
	return (actual - float64(baud)) / float64(baud)
}
