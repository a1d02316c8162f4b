// Package rx implements the receive half of an asynchronous serial link.
package rx

// The decoder recovers bit timing from an unclocked line level sampled
// 16 times per bit period, validates and assembles frames
// (start, 5-9 data bits, optional parity, 1-2 stop bits), buffers
// decoded bytes and classifies link errors (framing, parity, overrun,
// break, idle timeout).
//
// Everything is synchronous: the Receiver advances one discrete step
// per call to Step, driven by an external time base, and all component
// state is a pure function of the previous state and the current
// step's inputs. There are no goroutines and no locks here; the
// package is an embeddable decode engine, not a service.
//
// Producer: a line-level source (hardware capture, trace playback)
// Consumer: whatever drains the receive buffer
