package rx

// Conditioner synchronizes and de-glitches the raw line level.
// It keeps the 3 most recent raw samples and outputs their majority,
// plus a falling-edge pulse used for start detection.
type Conditioner struct {
	hist     [3]bool
	filtered bool
}

// CondResult is the per-sample output of the Conditioner.
type CondResult struct {
	Filtered bool
	Falling  bool
}

// NewConditioner creates a Conditioner with the line at idle (high).
func NewConditioner() *Conditioner {
	c := &Conditioner{}
	c.Reset()
	return c
}

// Reset initializes the history to line idle.
func (c *Conditioner) Reset() {
	c.hist = [3]bool{true, true, true}
	c.filtered = true
}

// Step shifts one raw sample into the history.
// The falling edge fires when the previous filtered sample was high
// and the newest raw sample is low, so a start edge is not delayed
// by the filter.
func (c *Conditioner) Step(raw bool) CondResult {
	falling := c.filtered && !raw
	c.hist[2], c.hist[1], c.hist[0] = c.hist[1], c.hist[0], raw
	c.filtered = majority3(c.hist[0], c.hist[1], c.hist[2])
	return CondResult{Filtered: c.filtered, Falling: falling}
}

func majority3(a, b, c bool) bool {
	return (a && b) || (a && c) || (b && c)
}
