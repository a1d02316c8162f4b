// Package monitor publishes receiver telemetry over MQTT.
package monitor

import (
	"encoding/json"

	"github.com/golang/glog"

	"github.com/softserial/uartrx.go/pkg/monitor/mqtt"
	"github.com/softserial/uartrx.go/pkg/rx"
)

// Topics published below the queue's prefix.
const (
	TopicBytes  = "bytes"
	TopicStatus = "status"
)

// ByteEvent is the payload published per decoded byte.
type ByteEvent struct {
	Value      uint16 `json:"value"`
	FramingErr bool   `json:"framing_err,omitempty"`
	ParityErr  bool   `json:"parity_err,omitempty"`
}

// StatusEvent is the payload published on status flag changes.
type StatusEvent struct {
	Empty         bool `json:"empty"`
	Full          bool `json:"full"`
	AlmostFull    bool `json:"almost_full"`
	Overflow      bool `json:"overflow"`
	FramingErr    bool `json:"framing_err"`
	ParityErr     bool `json:"parity_err"`
	OverrunErr    bool `json:"overrun_err"`
	BreakDetect   bool `json:"break_detect"`
	TimeoutDetect bool `json:"timeout_detect"`
	ErrorDetected bool `json:"error_detected"`
	RequestToSend bool `json:"request_to_send"`
}

// NewStatusEvent converts a status snapshot to its wire form.
func NewStatusEvent(s rx.Status) StatusEvent {
	return StatusEvent{
		Empty:         s.Empty,
		Full:          s.Full,
		AlmostFull:    s.AlmostFull,
		Overflow:      s.Overflow,
		FramingErr:    s.FramingErr,
		ParityErr:     s.ParityErr,
		OverrunErr:    s.OverrunErr,
		BreakDetect:   s.BreakDetect,
		TimeoutDetect: s.TimeoutDetect,
		ErrorDetected: s.ErrorDetected,
		RequestToSend: s.RequestToSend,
	}
}

// Monitor bridges a receiver's callbacks onto MQTT topics.
type Monitor struct {
	Queue *mqtt.Queue
}

// New creates a Monitor.
func New(q *mqtt.Queue) *Monitor {
	return &Monitor{Queue: q}
}

// Attach installs the monitor as the receiver's byte handler and
// status notifier.
func (m *Monitor) Attach(r *rx.Receiver) {
	r.Handler = rx.HandleByteFunc(m.HandleByte)
	r.Notifier = rx.StatusChangedFunc(m.StatusChanged)
}

// HandleByte implements rx.ByteHandler.
func (m *Monitor) HandleByte(b rx.DecodedByte) {
	m.pub(TopicBytes, ByteEvent{
		Value:      b.Value,
		FramingErr: b.FramingErr,
		ParityErr:  b.ParityErr,
	})
}

// StatusChanged implements rx.StatusNotifier.
func (m *Monitor) StatusChanged(s rx.Status) {
	m.pub(TopicStatus, NewStatusEvent(s))
}

func (m *Monitor) pub(topic string, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		glog.Errorf("encode %s: %v", topic, err)
		return
	}
	if err := m.Queue.Pub(topic, payload); err != nil {
		glog.Errorf("publish %s: %v", topic, err)
	}
}
