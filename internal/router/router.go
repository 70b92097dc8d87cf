package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-device/internal/configstore"
	"github.com/nerrad567/gray-logic-device/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-device/internal/ota"
)

// metadataField is the update field name that replaces the device metadata.
const metadataField = "metadata"

// Store is the subset of configstore.Store the router mutates and reads.
type Store interface {
	MergeMetadata(ctx context.Context, value any) error
	DerivePublishInterval()
	ReadMasked() configstore.Snapshot
	Reset(ctx context.Context) error
}

// Upgrader runs firmware update attempts.
type Upgrader interface {
	AttemptUpgrade(ctx context.Context, req ota.Request) ota.Result
}

// Reporter is the subset of status.Publisher used by the router.
type Reporter interface {
	Error(msg string)
	Config(snapshot any)
}

// Restarter restarts the device.
type Restarter interface {
	Restart(reason string) error
}

// Journal records management actions before they run. Optional.
// Actions are reboot, factory_reset, metadata_update, upgrade and config.
type Journal interface {
	Record(ctx context.Context, action, topic string)
}

// Logger defines the logging interface used by the Router.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Router dispatches inbound messages. It is not safe for concurrent use;
// the agent loop dispatches one message at a time.
type Router struct {
	store     Store
	upgrader  Upgrader
	reporter  Reporter
	restarter Restarter
	journal   Journal
	logger    Logger
}

// New creates a router over its collaborators.
func New(store Store, upgrader Upgrader, reporter Reporter, restarter Restarter) *Router {
	return &Router{
		store:     store,
		upgrader:  upgrader,
		reporter:  reporter,
		restarter: restarter,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the router.
func (r *Router) SetLogger(logger Logger) {
	r.logger = logger
}

// SetJournal enables journaling of management actions.
func (r *Router) SetJournal(journal Journal) {
	r.journal = journal
}

// Dispatch handles one inbound message. Unknown topics and acknowledgements
// return nil without side effects. Payloads that are not JSON return an
// error wrapping ErrMalformedPayload and publish nothing.
func (r *Router) Dispatch(ctx context.Context, topic string, payload []byte) error {
	kind := Classify(topic)
	r.logger.Debug("dispatching message", "topic", topic, "kind", kind.String(), "bytes", len(payload))

	switch kind {
	case KindResponse:
		return nil
	case KindReboot:
		r.record(ctx, kind.String(), topic)
		return r.restart("reboot requested")
	case KindFactoryReset:
		r.record(ctx, kind.String(), topic)
		return r.factoryReset(ctx)
	case KindMetadataUpdate:
		return r.updateMetadata(ctx, topic, payload)
	case KindCommand:
		return r.command(ctx, topic, payload)
	case KindUnknown:
		return nil
	default:
		return fmt.Errorf("router: unhandled kind %d", kind)
	}
}

// record journals an action that is about to run. Messages that turn out to
// be malformed or carry nothing to act on are never recorded.
func (r *Router) record(ctx context.Context, action, topic string) {
	if r.journal != nil {
		r.journal.Record(ctx, action, topic)
	}
}

func (r *Router) restart(reason string) error {
	r.logger.Warn("restarting device", "reason", reason)
	if err := r.restarter.Restart(reason); err != nil {
		return fmt.Errorf("%w: %w", ErrRestartFailed, err)
	}
	return nil
}

// factoryReset clears storage then restarts. A failed clear is reported
// but does not cancel the restart.
func (r *Router) factoryReset(ctx context.Context) error {
	if err := r.store.Reset(ctx); err != nil {
		r.logger.Warn("factory reset could not clear storage", "error", err)
		r.reporter.Error(err.Error())
	}
	return r.restart("factory reset requested")
}

type updateMessage struct {
	D struct {
		Fields []struct {
			Field string          `json:"field"`
			Value json.RawMessage `json:"value"`
		} `json:"fields"`
	} `json:"d"`
}

// updateMetadata applies every "metadata" field in order, then re-derives
// the publish interval once.
func (r *Router) updateMetadata(ctx context.Context, topic string, payload []byte) error {
	var msg updateMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	var values []json.RawMessage
	for _, f := range msg.D.Fields {
		if f.Field == metadataField {
			values = append(values, f.Value)
		}
	}
	if len(values) == 0 {
		r.logger.Debug("update carries no metadata field")
		return nil
	}
	r.record(ctx, KindMetadataUpdate.String(), topic)

	replaced := false
	for _, raw := range values {
		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			r.reporter.Error("metadata value is not valid JSON")
			continue
		}

		err := r.store.MergeMetadata(ctx, value)
		switch {
		case err == nil:
			replaced = true
		case errors.Is(err, configstore.ErrPersistFailed):
			// The in-memory value was still replaced.
			replaced = true
			r.reporter.Error(err.Error())
		default:
			r.reporter.Error(err.Error())
		}
	}

	if replaced {
		r.store.DerivePublishInterval()
		r.logger.Info("metadata updated")
	}
	return nil
}

type commandMessage struct {
	D map[string]json.RawMessage `json:"d"`
}

// command handles application commands. "upgrade" wins over "config".
func (r *Router) command(ctx context.Context, topic string, payload []byte) error {
	var msg commandMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	if raw, ok := msg.D["upgrade"]; ok {
		r.record(ctx, "upgrade", topic)
		r.logger.Info("upgrade command received", "command", mqtt.CommandName(topic))
		r.upgrader.AttemptUpgrade(ctx, ota.ParseRequest(raw))
		return nil
	}
	if _, ok := msg.D["config"]; ok {
		r.record(ctx, "config", topic)
		r.reporter.Config(r.store.ReadMasked())
		return nil
	}

	r.logger.Debug("command ignored", "command", mqtt.CommandName(topic))
	return nil
}
