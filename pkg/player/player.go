// Package player replays recorded line traces through a receiver.
package player

import (
	"context"

	"github.com/golang/glog"

	"github.com/softserial/uartrx.go/pkg/clock"
	"github.com/softserial/uartrx.go/pkg/rx"
)

// Player drives a Receiver from a per-sample level trace through a
// tick generator. It implements run.Runnable.
type Player struct {
	Receiver *rx.Receiver
	Clock    *clock.Gen
	Levels   []bool
}

// New creates a Player.
func New(r *rx.Receiver, g *clock.Gen, levels []bool) *Player {
	return &Player{Receiver: r, Clock: g, Levels: levels}
}

// Run feeds the trace, holding each recorded level for one sample
// tick worth of time-base steps.
func (p *Player) Run(ctx context.Context) error {
	for n, level := range p.Levels {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		for {
			sample, _ := p.Clock.Step()
			p.Receiver.Step(rx.Input{SampleTick: sample, Level: level})
			if sample {
				break
			}
		}
		if glog.V(3) && n%rx.TicksPerBit == 0 {
			glog.Infof("bit period %d of %d", n/rx.TicksPerBit, len(p.Levels)/rx.TicksPerBit)
		}
	}
	glog.V(1).Infof("trace done: %d samples, %d bytes buffered",
		len(p.Levels), p.Receiver.Buffered())
	return nil
}
