package agent

import (
	"sync/atomic"

	"github.com/nerrad567/gray-logic-device/internal/infrastructure/mqtt"
)

const defaultIntakeDepth = 32

// message is one inbound MQTT message waiting for dispatch.
type message struct {
	topic   string
	payload []byte
}

// Intake is the bounded queue between the MQTT callbacks and the loop.
// When it is full new messages are dropped; nothing already queued is
// evicted.
type Intake struct {
	ch      chan message
	dropped atomic.Uint64
	logger  Logger
}

// NewIntake creates a queue holding up to depth messages. A depth below one
// takes the default.
func NewIntake(depth int) *Intake {
	if depth < 1 {
		depth = defaultIntakeDepth
	}
	return &Intake{
		ch:     make(chan message, depth),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the intake.
func (q *Intake) SetLogger(logger Logger) {
	q.logger = logger
}

// Handler returns the subscription handler. It copies the payload and
// enqueues it without blocking, returning ErrIntakeFull when the message
// had to be dropped.
//
// Safe to call from any goroutine.
func (q *Intake) Handler() mqtt.MessageHandler {
	return func(topic string, payload []byte) error {
		msg := message{topic: topic, payload: append([]byte(nil), payload...)}
		select {
		case q.ch <- msg:
			return nil
		default:
			n := q.dropped.Add(1)
			q.logger.Warn("intake queue full, message dropped", "topic", topic, "dropped_total", n)
			return ErrIntakeFull
		}
	}
}

// Dropped returns how many messages were dropped so far.
func (q *Intake) Dropped() uint64 {
	return q.dropped.Load()
}

// Depth returns the queue capacity.
func (q *Intake) Depth() int {
	return cap(q.ch)
}
