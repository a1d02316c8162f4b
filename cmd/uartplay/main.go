package main

import (
	"flag"
	"io/ioutil"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/softserial/uartrx.go/pkg/clock"
	"github.com/softserial/uartrx.go/pkg/monitor"
	"github.com/softserial/uartrx.go/pkg/monitor/mqtt"
	"github.com/softserial/uartrx.go/pkg/player"
	"github.com/softserial/uartrx.go/pkg/run"
	"github.com/softserial/uartrx.go/pkg/rx"
	"github.com/softserial/uartrx.go/pkg/trace"
)

var (
	traceFile  string
	configFile string
	mqttURL    = os.Getenv("UARTRX_MQTT_URL")
	divisor    = 1
)

func init() {
	flag.StringVar(&traceFile, "trace", traceFile, "Line trace file to replay.")
	flag.StringVar(&configFile, "config", configFile, "Receiver configuration (YAML).")
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL for telemetry (optional).")
	flag.IntVar(&divisor, "divisor", divisor, "Time-base steps per sample tick.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

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

	var mon *monitor.Monitor
	if mqttURL != "" {
		q, err := mqtt.NewQueueFromURL(mqttURL)
		if err != nil {
			log.Fatalln(err)
		}
		if err = q.Connect(); err != nil {
			log.Fatalln(err)
		}
		defer q.Close()
		mon = monitor.New(q)
	}
	recv.Handler = rx.HandleByteFunc(func(b rx.DecodedByte) {
		log.Printf("byte %#02x framing=%v parity=%v", b.Value, b.FramingErr, b.ParityErr)
		if mon != nil {
			mon.HandleByte(b)
		}
	})
	recv.Notifier = rx.StatusChangedFunc(func(s rx.Status) {
		if s.ErrorDetected || s.Overflow {
			log.Printf("status %+v", s)
		}
		if mon != nil {
			mon.StatusChanged(s)
		}
	})

	if traceFile == "" {
		log.Fatalln("-trace is required")
	}
	f, err := os.Open(traceFile)
	if err != nil {
		log.Fatalln(err)
	}
	levels, err := trace.Read(f)
	f.Close()
	if err != nil {
		log.Fatalln(err)
	}

	gen, err := clock.NewGen(divisor)
	if err != nil {
		log.Fatalln(err)
	}

	runner := run.NewRunner().HandleSignals()
	runner.Go(run.NamedRun("player", player.New(recv, gen, levels)))
	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}

	for {
		v, err := recv.ReadData()
		if err != nil {
			break
		}
		log.Printf("buffered %#02x", v)
	}
}
