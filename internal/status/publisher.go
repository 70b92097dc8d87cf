// Package status formats and publishes the device's outbound reports.
//
// Every operator-visible message is a single-key JSON envelope on the info
// topic:
//
//	{"info":{...}}               general information
//	{"info":{"error":"..."}}     error report
//	{"OTA":{"status":"..."}}     firmware update progress
//	{"config":{...}}             masked configuration
//
// The periodic heartbeat goes to the status topic as {"d":{...}}.
// Publishing is best effort: failures are logged and dropped, never queued.
package status

import (
	"encoding/json"
	"fmt"

	"github.com/nerrad567/gray-logic-device/internal/infrastructure/mqtt"
)

// MQTTClient is the subset of the MQTT session the publisher needs.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger defines the logging interface used by the Publisher.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Publisher emits status envelopes.
type Publisher struct {
	client MQTTClient
	qos    byte
	topics mqtt.Topics
	logger Logger
}

// NewPublisher creates a publisher that sends with the given QoS.
func NewPublisher(client MQTTClient, qos byte) *Publisher {
	return &Publisher{
		client: client,
		qos:    qos,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for publish failures.
func (p *Publisher) SetLogger(logger Logger) {
	p.logger = logger
}

// Publish marshals v and sends it to topic, returning any failure.
// Callers that need to know whether a report went out use this directly.
func (p *Publisher) Publish(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", topic, err)
	}
	if err := p.client.Publish(topic, payload, p.qos, false); err != nil {
		return err
	}
	p.logger.Debug("published", "topic", topic, "bytes", len(payload))
	return nil
}

// Info publishes {"info":payload}.
func (p *Publisher) Info(payload any) {
	p.send(p.topics.Info(), map[string]any{"info": payload})
}

// Error publishes {"info":{"error":msg}}.
func (p *Publisher) Error(msg string) {
	p.send(p.topics.Info(), map[string]any{"info": map[string]string{"error": msg}})
}

// OTA publishes {"OTA":{"status":text}}.
func (p *Publisher) OTA(text string) {
	p.send(p.topics.Info(), map[string]any{"OTA": map[string]string{"status": text}})
}

// Config publishes {"config":snapshot}. The snapshot must already be masked.
func (p *Publisher) Config(snapshot any) {
	p.send(p.topics.Info(), map[string]any{"config": snapshot})
}

// Status publishes {"d":payload} on the status topic.
func (p *Publisher) Status(payload any) {
	p.send(p.topics.Status(), map[string]any{"d": payload})
}

func (p *Publisher) send(topic string, v any) {
	if err := p.Publish(topic, v); err != nil {
		p.logger.Warn("status publish failed", "topic", topic, "error", err)
	}
}
