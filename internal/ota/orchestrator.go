package ota

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Report texts sent on the info topic.
const (
	msgWillUpgrade = "Device will be upgraded."
	msgInfoError   = "OTA Information Error"
	msgNoUpdate    = "[update] No update available."
	msgFailedFmt   = "[update] Update failed. http://%s:%s%s"
)

// Fetcher downloads and installs a firmware image.
// An Applied result normally means the device is already restarting.
type Fetcher interface {
	FetchAndFlash(ctx context.Context, target Target) Result
}

// Reporter is the subset of status.Publisher used for operator reports.
type Reporter interface {
	Info(payload any)
	OTA(text string)
}

// EventRecorder records attempt outcomes. Optional.
type EventRecorder interface {
	RecordOTA(attemptID, outcome string, elapsed time.Duration)
}

// Logger defines the logging interface used by the Orchestrator.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Orchestrator validates upgrade requests and reports their outcome.
type Orchestrator struct {
	fetcher  Fetcher
	reporter Reporter
	recorder EventRecorder
	logger   Logger
}

// NewOrchestrator creates an orchestrator using fetcher for downloads and
// reporter for operator-visible messages.
func NewOrchestrator(fetcher Fetcher, reporter Reporter) *Orchestrator {
	return &Orchestrator{
		fetcher:  fetcher,
		reporter: reporter,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the orchestrator.
func (o *Orchestrator) SetLogger(logger Logger) {
	o.logger = logger
}

// SetRecorder enables event recording of attempt outcomes.
func (o *Orchestrator) SetRecorder(recorder EventRecorder) {
	o.recorder = recorder
}

// AttemptUpgrade runs one update attempt and blocks until the fetch returns.
//
// An incomplete request is reported as an information error and never
// reaches the fetcher. Otherwise the upgrade is announced before the fetch
// starts, so the operator sees it even if the device restarts without
// another word. Failed and NoUpdateAvailable results are reported; Applied
// is not.
func (o *Orchestrator) AttemptUpgrade(ctx context.Context, req Request) Result {
	attemptID := uuid.NewString()
	started := time.Now()

	if !req.Complete() {
		o.logger.Warn("upgrade request incomplete",
			"attempt_id", attemptID,
			"server", req.Server,
			"port", req.Port,
			"uri", req.URI,
		)
		o.reporter.OTA(msgInfoError)
		result := Result{Outcome: Failed, Err: ErrIncompleteRequest}
		o.record(attemptID, result, started)
		return result
	}

	o.logger.Info("starting upgrade",
		"attempt_id", attemptID,
		"server", req.Server,
		"port", req.Port,
		"uri", req.URI,
	)
	o.reporter.Info(map[string]string{"upgrade": msgWillUpgrade})

	result := o.fetcher.FetchAndFlash(ctx, req.Target())

	switch result.Outcome {
	case Failed:
		o.logger.Warn("upgrade failed", "attempt_id", attemptID, "error", result.Err)
		o.reporter.OTA(fmt.Sprintf(msgFailedFmt, req.Server, req.Port, req.URI))
	case NoUpdateAvailable:
		o.logger.Info("no update available", "attempt_id", attemptID)
		o.reporter.OTA(msgNoUpdate)
	case Applied:
		o.logger.Info("upgrade applied", "attempt_id", attemptID, "error", result.Err)
	}

	o.record(attemptID, result, started)
	return result
}

func (o *Orchestrator) record(attemptID string, result Result, started time.Time) {
	if o.recorder == nil {
		return
	}
	o.recorder.RecordOTA(attemptID, result.Outcome.String(), time.Since(started))
}
