package rx

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// testConfig keeps the idle timeout far away so tests can hold the
// line idle without latching timeout_detect.
func testConfig() Config {
	return Config{
		DataBits:    8,
		Parity:      ParityNone,
		StopBits:    1,
		BitOrder:    LSBFirst,
		BufferSize:  16,
		AlmostFull:  12,
		BreakBits:   10,
		TimeoutBits: 100,
	}
}

func newTestReceiver(t *testing.T, cfg Config) *Receiver {
	r, err := New(cfg)
	require.NoError(t, err)
	return r
}

// sampleLevels expands wire bits to raw line levels, 16 samples per
// bit period.
func sampleLevels(bits []bool) []bool {
	levels := make([]bool, 0, len(bits)*TicksPerBit)
	for _, bit := range bits {
		for i := 0; i < TicksPerBit; i++ {
			levels = append(levels, bit)
		}
	}
	return levels
}

func highLevels(n int) []bool {
	levels := make([]bool, n)
	for i := range levels {
		levels[i] = true
	}
	return levels
}

func lowLevels(n int) []bool {
	return make([]bool, n)
}

// frameLevels renders one clean frame of value as raw line levels.
func frameLevels(cfg Config, value uint16) []bool {
	p := txParity(cfg.Parity, value, cfg.DataBits)
	return sampleLevels(wireBits(cfg, value, p, true, true))
}

// stepLevels feeds raw levels one sample tick at a time and collects
// every delivered byte.
func stepLevels(r *Receiver, levels []bool) (bytes []DecodedByte, last Output) {
	for _, level := range levels {
		last = r.Step(Input{SampleTick: true, Level: level})
		if last.ByteValid {
			bytes = append(bytes, last.Byte)
		}
	}
	return
}

func TestReceiverDecodesFrame(t *testing.T) {
	cfg := testConfig()
	cfg.Parity = ParityEven
	r := newTestReceiver(t, cfg)

	levels := append(highLevels(8), frameLevels(cfg, 0xA5)...)
	bytes, out := stepLevels(r, levels)

	require.Equal(t, []DecodedByte{{Value: 0xA5}}, bytes)
	require.False(t, out.Status.Empty)
	require.False(t, out.Status.ErrorDetected)

	v, err := r.ReadData()
	require.NoError(t, err)
	require.Equal(t, uint16(0xA5), v)
	require.True(t, r.Status().Empty)

	_, err = r.ReadData()
	require.Equal(t, ErrBufferEmpty, err)
}

func TestReceiverRoundTrip(t *testing.T) {
	for _, width := range []int{5, 6, 7, 8, 9} {
		for _, parity := range []Parity{ParityNone, ParityEven, ParityOdd, ParityMark, ParitySpace} {
			for _, stops := range []int{1, 2} {
				for _, order := range []BitOrder{LSBFirst, MSBFirst} {
					t.Run(fmt.Sprintf("%d%s%d %s", width, parity, stops, order), func(t *testing.T) {
						cfg := testConfig()
						cfg.DataBits = width
						cfg.Parity = parity
						cfg.StopBits = stops
						cfg.BitOrder = order
						r := newTestReceiver(t, cfg)

						mask := uint16(1<<uint(width) - 1)
						values := []uint16{0x155 & mask, 0x0A3 & mask, 0x1FF & mask}

						// Back-to-back frames with no idle between.
						levels := highLevels(8)
						for _, v := range values {
							levels = append(levels, frameLevels(cfg, v)...)
						}
						bytes, out := stepLevels(r, levels)

						require.Len(t, bytes, len(values))
						for i, v := range values {
							require.Equal(t, v, bytes[i].Value)
							require.False(t, bytes[i].FramingErr)
							require.False(t, bytes[i].ParityErr)
						}
						require.False(t, out.Status.ErrorDetected)

						for _, v := range values {
							got, err := r.ReadData()
							require.NoError(t, err)
							require.Equal(t, v, got)
						}
					})
				}
			}
		}
	}
}

func TestReceiverParityError(t *testing.T) {
	cfg := testConfig()
	cfg.Parity = ParityEven
	r := newTestReceiver(t, cfg)

	p := !txParity(cfg.Parity, 0x55, cfg.DataBits)
	levels := append(highLevels(8), sampleLevels(wireBits(cfg, 0x55, p, true, true))...)
	bytes, out := stepLevels(r, levels)

	// The erroneous byte is still delivered.
	require.Equal(t, []DecodedByte{{Value: 0x55, ParityErr: true}}, bytes)
	require.True(t, out.Status.ParityErr)
	require.True(t, out.Status.ErrorDetected)
	require.False(t, out.Status.FramingErr)

	// Sticky until error_clear.
	_, out = stepLevels(r, highLevels(16))
	require.True(t, out.Status.ParityErr)
	out = r.Step(Input{ErrorClear: true})
	require.False(t, out.Status.ParityErr)
	require.False(t, out.Status.ErrorDetected)
}

func TestReceiverFramingError(t *testing.T) {
	cfg := testConfig()
	r := newTestReceiver(t, cfg)

	levels := append(highLevels(8), sampleLevels(wireBits(cfg, 0xAA, false, false, true))...)
	levels = append(levels, highLevels(16)...)
	// Recovery: a clean frame after the bad one decodes normally.
	levels = append(levels, frameLevels(cfg, 0x3C)...)
	bytes, out := stepLevels(r, levels)

	require.Equal(t, []DecodedByte{
		{Value: 0xAA, FramingErr: true},
		{Value: 0x3C},
	}, bytes)
	require.True(t, out.Status.FramingErr)
	require.True(t, out.Status.ErrorDetected)
}

func TestReceiverBreak(t *testing.T) {
	cfg := testConfig()
	r := newTestReceiver(t, cfg)

	// Line seized low for 12 bit periods: well past the 10-bit
	// threshold for an 8n1 frame.
	levels := append(highLevels(8), lowLevels(12*TicksPerBit)...)
	bytes, out := stepLevels(r, levels)

	require.Empty(t, bytes, "a break delivers no byte")
	require.True(t, out.Status.BreakDetect)
	require.True(t, out.Status.ErrorDetected)
	require.True(t, r.Status().Empty)

	// error_clear while the line is still low: break re-latches.
	out = r.Step(Input{SampleTick: true, Level: false, ErrorClear: true})
	require.True(t, out.Status.BreakDetect)

	// Line released: the condition ends, the latch clears on the next
	// error_clear, and a following frame decodes.
	_, _ = stepLevels(r, highLevels(16))
	out = r.Step(Input{ErrorClear: true})
	require.False(t, out.Status.BreakDetect)
	require.False(t, out.Status.ErrorDetected)

	bytes, _ = stepLevels(r, append(highLevels(8), frameLevels(cfg, 0x5A)...))
	require.Equal(t, []DecodedByte{{Value: 0x5A}}, bytes)
}

func TestReceiverStartGlitchRejected(t *testing.T) {
	cfg := testConfig()
	r := newTestReceiver(t, cfg)

	// A one-sample low spike is not a start condition: the start bit
	// votes high at mid-bit and timing is abandoned.
	levels := append(highLevels(8), false)
	levels = append(levels, highLevels(2*TicksPerBit)...)
	levels = append(levels, frameLevels(cfg, 0xC3)...)
	bytes, out := stepLevels(r, levels)

	require.Equal(t, []DecodedByte{{Value: 0xC3}}, bytes)
	require.False(t, out.Status.ErrorDetected)
}

func TestReceiverMidBitGlitchAbsorbed(t *testing.T) {
	cfg := testConfig()
	r := newTestReceiver(t, cfg)

	levels := frameLevels(cfg, 0xF0)
	// Corrupt two samples early in data bit 5 (a high bit), away from
	// the vote window at positions 7..9.
	base := (1 + 5) * TicksPerBit
	levels[base+2] = false
	levels[base+3] = false

	bytes, out := stepLevels(r, append(highLevels(8), levels...))
	require.Equal(t, []DecodedByte{{Value: 0xF0}}, bytes)
	require.False(t, out.Status.ErrorDetected)
}

func TestReceiverVoteWindowCorruption(t *testing.T) {
	cfg := testConfig()
	r := newTestReceiver(t, cfg)

	levels := frameLevels(cfg, 0xF0)
	// Two of the three vote samples of data bit 5 flipped low: the
	// majority flips and the decoded byte loses that bit.
	base := (1 + 5) * TicksPerBit
	levels[base+7] = false
	levels[base+8] = false

	bytes, _ := stepLevels(r, append(highLevels(8), levels...))
	require.Len(t, bytes, 1)
	require.Equal(t, uint16(0xD0), bytes[0].Value)
}

func TestReceiverOverrun(t *testing.T) {
	cfg := testConfig()
	cfg.BufferSize = 4
	cfg.AlmostFull = 3
	r := newTestReceiver(t, cfg)

	levels := highLevels(8)
	for v := uint16(0); v < 5; v++ {
		levels = append(levels, frameLevels(cfg, v)...)
	}
	bytes, out := stepLevels(r, levels)

	// Delivery still pulses for the dropped byte.
	require.Len(t, bytes, 5)
	require.True(t, out.Status.OverrunErr)
	require.True(t, out.Status.Overflow)
	require.True(t, out.Status.Full)
	require.Equal(t, 4, r.Buffered())

	// The oldest bytes survive, the newest was dropped.
	for v := uint16(0); v < 4; v++ {
		got, err := r.ReadData()
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
	_, err := r.ReadData()
	require.Equal(t, ErrBufferEmpty, err)

	// error_clear clears the latched overrun; overflow persists until
	// buffer_clear.
	out = r.Step(Input{ErrorClear: true})
	require.False(t, out.Status.OverrunErr)
	require.True(t, out.Status.Overflow)
	out = r.Step(Input{BufferClear: true})
	require.False(t, out.Status.Overflow)
}

func TestReceiverSameTickReadAndDeliver(t *testing.T) {
	cfg := testConfig()
	cfg.BufferSize = 4
	cfg.AlmostFull = 3
	r := newTestReceiver(t, cfg)

	levels := highLevels(8)
	for v := uint16(0); v < 4; v++ {
		levels = append(levels, frameLevels(cfg, v)...)
	}
	_, out := stepLevels(r, levels)
	require.True(t, out.Status.Full)

	// Fifth frame, read requested on its final sample tick: the pop
	// frees the slot before the push, so nothing is dropped.
	frame := frameLevels(cfg, 4)
	stepLevels(r, frame[:len(frame)-1])
	out = r.Step(Input{
		SampleTick:  true,
		Level:       frame[len(frame)-1],
		ReadRequest: true,
	})

	require.True(t, out.ReadValid)
	require.Equal(t, uint16(0), out.Read)
	require.True(t, out.ByteValid)
	require.Equal(t, uint16(4), out.Byte.Value)
	require.Equal(t, 4, r.Buffered())
	require.False(t, out.Status.OverrunErr)
	require.False(t, out.Status.Overflow)
}

func TestReceiverTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.TimeoutBits = 2
	r := newTestReceiver(t, cfg)

	threshold := TicksPerBit*cfg.TimeoutBits - 1
	_, out := stepLevels(r, highLevels(threshold-1))
	require.False(t, out.Status.TimeoutDetect)
	out = r.Step(Input{SampleTick: true, Level: true})
	require.True(t, out.Status.TimeoutDetect)
	require.True(t, out.Status.ErrorDetected)

	out = r.Step(Input{ErrorClear: true})
	require.False(t, out.Status.TimeoutDetect)

	// Traffic keeps the timeout away and decodes normally.
	bytes, out := stepLevels(r, frameLevels(cfg, 0x99))
	require.Equal(t, []DecodedByte{{Value: 0x99}}, bytes)
	require.False(t, out.Status.TimeoutDetect)
}

func TestReceiverReset(t *testing.T) {
	cfg := testConfig()
	r := newTestReceiver(t, cfg)

	// A buffered byte, a latched error and half a frame in flight.
	levels := append(highLevels(8), sampleLevels(wireBits(cfg, 0x11, false, false, true))...)
	frame := frameLevels(cfg, 0x22)
	levels = append(levels, frame[:len(frame)/2]...)
	stepLevels(r, levels)
	require.Equal(t, 1, r.Buffered())
	require.True(t, r.Status().FramingErr)

	out := r.Step(Input{Reset: true})
	require.Equal(t, Status{Empty: true, RequestToSend: true}, out.Status)
	require.Equal(t, 0, r.Buffered())

	// Decoding restarts cleanly.
	bytes, _ := stepLevels(r, append(highLevels(8), frameLevels(cfg, 0x33)...))
	require.Equal(t, []DecodedByte{{Value: 0x33}}, bytes)
}

func TestReceiverDataLatched(t *testing.T) {
	cfg := testConfig()
	r := newTestReceiver(t, cfg)

	levels := append(highLevels(8), frameLevels(cfg, 0x10)...)
	levels = append(levels, frameLevels(cfg, 0x20)...)
	stepLevels(r, levels)

	for i := 0; i < 3; i++ {
		v, ok := r.Data()
		require.True(t, ok)
		require.Equal(t, uint16(0x10), v, "data stays latched until read")
	}
	v, err := r.ReadData()
	require.NoError(t, err)
	require.Equal(t, uint16(0x10), v)

	v, ok := r.Data()
	require.True(t, ok)
	require.Equal(t, uint16(0x20), v)
}

func TestReceiverCallbacks(t *testing.T) {
	cfg := testConfig()
	r := newTestReceiver(t, cfg)

	var handled []DecodedByte
	var notified []Status
	r.Handler = HandleByteFunc(func(b DecodedByte) {
		handled = append(handled, b)
	})
	r.Notifier = StatusChangedFunc(func(s Status) {
		notified = append(notified, s)
	})

	stepLevels(r, append(highLevels(8), frameLevels(cfg, 0x77)...))
	require.Equal(t, []DecodedByte{{Value: 0x77}}, handled)
	require.NotEmpty(t, notified)
	require.False(t, notified[len(notified)-1].Empty)

	// No change, no notification.
	n := len(notified)
	stepLevels(r, highLevels(4))
	require.Equal(t, n, len(notified))
}

func TestReceiverRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.BufferSize = 3
	_, err := New(cfg)
	require.Error(t, err)
}
