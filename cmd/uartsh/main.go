package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"strconv"

	"github.com/abiosoft/ishell"
	"gopkg.in/yaml.v3"

	"github.com/softserial/uartrx.go/pkg/rx"
	"github.com/softserial/uartrx.go/pkg/trace"
)

// Console holds the receiver under interactive control.
type Console struct {
	Config   rx.Config
	Receiver *rx.Receiver

	decoded []rx.DecodedByte
}

const consoleKey = "$console"

var configFile string

func init() {
	flag.StringVar(&configFile, "config", configFile, "Receiver configuration (YAML).")
}

func consoleFrom(c *ishell.Context) *Console {
	return c.Get(consoleKey).(*Console)
}

// feed pushes per-sample levels through the receiver and reports
// bytes decoded along the way.
func (cs *Console) feed(c *ishell.Context, levels []bool) {
	cs.decoded = cs.decoded[:0]
	for _, level := range levels {
		cs.Receiver.Step(rx.Input{SampleTick: true, Level: level})
	}
	for _, b := range cs.decoded {
		c.Printf("decoded %#02x framing=%v parity=%v\n", b.Value, b.FramingErr, b.ParityErr)
	}
	if len(cs.decoded) == 0 {
		c.Println("no bytes decoded")
	}
}

func parseValues(args []string) ([]uint16, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("expect at least one hex value")
	}
	vals := make([]uint16, 0, len(args))
	for _, arg := range args {
		v, err := strconv.ParseUint(arg, 16, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid hex value %q", arg)
		}
		vals = append(vals, uint16(v))
	}
	return vals, nil
}

func sendFrames(c *ishell.Context, args []string, opts ...trace.Option) {
	cs := consoleFrom(c)
	vals, err := parseValues(args)
	if err != nil {
		c.Err(err)
		return
	}
	var b trace.Builder
	b.Idle(1)
	for _, v := range vals {
		b.Frame(cs.Config, v, opts...)
	}
	b.Idle(1)
	cs.feed(c, b.Levels())
}

var commands = []*ishell.Cmd{
	{
		Name: "config",
		Help: "show the receiver configuration",
		Func: func(c *ishell.Context) {
			out, err := yaml.Marshal(consoleFrom(c).Config)
			if err != nil {
				c.Err(err)
				return
			}
			c.Print(string(out))
		},
	},
	{
		Name: "send",
		Help: "send <hex>... : feed well-formed frames",
		Func: func(c *ishell.Context) {
			sendFrames(c, c.Args)
		},
	},
	{
		Name: "badparity",
		Help: "badparity <hex>... : feed frames with inverted parity",
		Func: func(c *ishell.Context) {
			sendFrames(c, c.Args, trace.WithInvertedParity())
		},
	},
	{
		Name: "badstop",
		Help: "badstop <hex>... : feed frames with the first stop bit low",
		Func: func(c *ishell.Context) {
			sendFrames(c, c.Args, trace.WithStopLow(0))
		},
	},
	{
		Name: "glitch",
		Help: "glitch <bit> <sample> <hex> : feed a frame with one sample inverted",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 3 {
				c.Err(fmt.Errorf("expect <bit> <sample> <hex>"))
				return
			}
			bit, err1 := strconv.Atoi(c.Args[0])
			sample, err2 := strconv.Atoi(c.Args[1])
			if err1 != nil || err2 != nil {
				c.Err(fmt.Errorf("invalid bit/sample position"))
				return
			}
			sendFrames(c, c.Args[2:], trace.WithGlitch(bit, sample))
		},
	},
	{
		Name: "break",
		Help: "break <bits> : hold the line low for N bit periods",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("expect <bits>"))
				return
			}
			n, err := strconv.Atoi(c.Args[0])
			if err != nil || n < 1 {
				c.Err(fmt.Errorf("invalid bit count %q", c.Args[0]))
				return
			}
			cs := consoleFrom(c)
			var b trace.Builder
			cs.feed(c, b.Idle(1).Low(n).Idle(1).Levels())
		},
	},
	{
		Name: "idle",
		Help: "idle <bits> : hold the line idle for N bit periods",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("expect <bits>"))
				return
			}
			n, err := strconv.Atoi(c.Args[0])
			if err != nil || n < 1 {
				c.Err(fmt.Errorf("invalid bit count %q", c.Args[0]))
				return
			}
			cs := consoleFrom(c)
			var b trace.Builder
			cs.feed(c, b.Idle(n).Levels())
		},
	},
	{
		Name: "read",
		Help: "read [n] : pop buffered bytes",
		Func: func(c *ishell.Context) {
			n := 1
			if len(c.Args) == 1 {
				var err error
				if n, err = strconv.Atoi(c.Args[0]); err != nil || n < 1 {
					c.Err(fmt.Errorf("invalid count %q", c.Args[0]))
					return
				}
			}
			cs := consoleFrom(c)
			for i := 0; i < n; i++ {
				v, err := cs.Receiver.ReadData()
				if err != nil {
					c.Println(err)
					return
				}
				c.Printf("%#02x\n", v)
			}
		},
	},
	{
		Name: "status",
		Help: "show the receiver status flags",
		Func: func(c *ishell.Context) {
			c.Printf("%+v\n", consoleFrom(c).Receiver.Status())
		},
	},
	{
		Name: "clear",
		Help: "clear the latched error flags",
		Func: func(c *ishell.Context) {
			consoleFrom(c).Receiver.Step(rx.Input{ErrorClear: true})
		},
	},
	{
		Name: "flush",
		Help: "discard buffered bytes and the overflow flag",
		Func: func(c *ishell.Context) {
			consoleFrom(c).Receiver.Step(rx.Input{BufferClear: true})
		},
	},
	{
		Name: "reset",
		Help: "reset every component to its initial state",
		Func: func(c *ishell.Context) {
			consoleFrom(c).Receiver.Step(rx.Input{Reset: true})
		},
	},
}

func main() {
	flag.Parse()

	cfg := rx.DefaultConfig()
	if configFile != "" {
		data, err := ioutil.ReadFile(configFile)
		if err != nil {
			log.Fatalln(err)
		}
		cfg = rx.Config{}
		if err = yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalln(err)
		}
	}
	recv, err := rx.New(cfg)
	if err != nil {
		log.Fatalln(err)
	}
	cs := &Console{Config: recv.Config(), Receiver: recv}
	recv.Handler = rx.HandleByteFunc(func(b rx.DecodedByte) {
		cs.decoded = append(cs.decoded, b)
	})

	shell := ishell.New()
	shell.Set(consoleKey, cs)
	shell.SetPrompt("uartrx > ")
	for _, cmd := range commands {
		shell.AddCmd(cmd)
	}
	shell.Run()
}
