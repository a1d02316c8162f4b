package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/softserial/uartrx.go/pkg/monitor"
	"github.com/softserial/uartrx.go/pkg/monitor/mqtt"
)

var (
	mqttURL = "mqtt://localhost:1883/uartrx/"
)

func init() {
	if val := os.Getenv("UARTRX_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if err = q.Connect(); err != nil {
		log.Fatalln(err)
	}

	q.Sub(monitor.TopicBytes, func(topic string, payload []byte) {
		var evt monitor.ByteEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			log.Printf("%s: bad payload: %v", topic, err)
			return
		}
		log.Printf("%s: %#02x framing=%v parity=%v",
			topic, evt.Value, evt.FramingErr, evt.ParityErr)
	})
	q.Sub(monitor.TopicStatus, func(topic string, payload []byte) {
		var evt monitor.StatusEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			log.Printf("%s: bad payload: %v", topic, err)
			return
		}
		log.Printf("%s: %+v", topic, evt)
	})
	<-(chan struct{})(nil)
}
