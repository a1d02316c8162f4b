package rx

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"default", nil, ""},
		{"width too small", func(c *Config) { c.DataBits = 4 }, "data_bits"},
		{"width too large", func(c *Config) { c.DataBits = 10 }, "data_bits"},
		{"invalid parity", func(c *Config) { c.Parity = Parity(9) }, "parity"},
		{"zero stop bits", func(c *Config) { c.StopBits = 0 }, "stop_bits"},
		{"three stop bits", func(c *Config) { c.StopBits = 3 }, "stop_bits"},
		{"invalid bit order", func(c *Config) { c.BitOrder = BitOrder(2) }, "bit_order"},
		{"buffer not power of two", func(c *Config) { c.BufferSize = 12 }, "buffer_size"},
		{"buffer zero", func(c *Config) { c.BufferSize = 0 }, "buffer_size"},
		{"watermark at capacity", func(c *Config) { c.AlmostFull = 16 }, "almost_full"},
		{"watermark negative", func(c *Config) { c.AlmostFull = -2 }, "almost_full"},
		{"break bits zero", func(c *Config) { c.BreakBits = 0 }, "break_bits"},
		{"timeout bits zero", func(c *Config) { c.TimeoutBits = 0 }, "timeout_bits"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			if tc.mutate != nil {
				tc.mutate(&cfg)
			}
			err := cfg.Validate()
			if tc.errMsg == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.errMsg)
			}
		})
	}
}

func TestConfigNormalize(t *testing.T) {
	var cfg Config
	cfg.Normalize()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 8, cfg.DataBits)
	require.Equal(t, ParityNone, cfg.Parity)
	require.Equal(t, 1, cfg.StopBits)
	require.Equal(t, LSBFirst, cfg.BitOrder)
	require.Equal(t, 16, cfg.BufferSize)
	require.Equal(t, 12, cfg.AlmostFull)
	require.Equal(t, 10, cfg.BreakBits)
	require.Equal(t, 4, cfg.TimeoutBits)

	cfg = Config{BufferSize: 64}
	cfg.Normalize()
	require.Equal(t, 48, cfg.AlmostFull, "watermark defaults to 75% of capacity")

	// -1 expresses an explicit zero threshold, distinct from unset.
	cfg = Config{BufferSize: 8, AlmostFull: -1}
	cfg.Normalize()
	require.Equal(t, 0, cfg.AlmostFull)
	require.NoError(t, cfg.Validate())
}

func TestConfigYAML(t *testing.T) {
	doc := `
data_bits: 7
parity: even
stop_bits: 2
bit_order: msb
buffer_size: 32
almost_full: 24
break_bits: 11
timeout_bits: 8
`
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(doc), &cfg))
	require.Equal(t, Config{
		DataBits:    7,
		Parity:      ParityEven,
		StopBits:    2,
		BitOrder:    MSBFirst,
		BufferSize:  32,
		AlmostFull:  24,
		BreakBits:   11,
		TimeoutBits: 8,
	}, cfg)
	require.NoError(t, cfg.Validate())

	out, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	var back Config
	require.NoError(t, yaml.Unmarshal(out, &back))
	require.Equal(t, cfg, back)
}

func TestConfigYAMLRejectsUnknownEnums(t *testing.T) {
	var cfg Config
	require.Error(t, yaml.Unmarshal([]byte("parity: sometimes"), &cfg))
	require.Error(t, yaml.Unmarshal([]byte("bit_order: middle"), &cfg))
}

func TestFrameBits(t *testing.T) {
	require.Equal(t, 10, (&Config{DataBits: 8, StopBits: 1}).FrameBits())
	require.Equal(t, 11, (&Config{DataBits: 8, Parity: ParityEven, StopBits: 1}).FrameBits())
	require.Equal(t, 13, (&Config{DataBits: 9, Parity: ParityOdd, StopBits: 2}).FrameBits())
}
