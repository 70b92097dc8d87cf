package audit

import (
	"context"
)

// DefaultJournalSize is the number of entries kept when none is configured.
const DefaultJournalSize = 200

// Logger defines the logging interface used by the Journal.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Journal records management actions. Storage failures are logged and
// never reach the caller; the action itself must go ahead regardless.
type Journal struct {
	repo   Repository
	keep   int
	logger Logger
}

// NewJournal creates a journal keeping at most keep entries.
// A keep below one takes DefaultJournalSize.
func NewJournal(repo Repository, keep int) *Journal {
	if keep < 1 {
		keep = DefaultJournalSize
	}
	return &Journal{repo: repo, keep: keep, logger: noopLogger{}}
}

// SetLogger sets the logger for the journal.
func (j *Journal) SetLogger(logger Logger) {
	j.logger = logger
}

// Record appends an action received on topic and prunes old entries.
func (j *Journal) Record(ctx context.Context, action, topic string) {
	entry := &Entry{Action: action, Topic: topic, Source: SourcePlatform}
	if err := j.repo.Create(ctx, entry); err != nil {
		j.logger.Warn("journal write failed", "action", action, "error", err)
		return
	}

	removed, err := j.repo.Prune(ctx, j.keep)
	if err != nil {
		j.logger.Warn("journal prune failed", "error", err)
		return
	}
	if removed > 0 {
		j.logger.Debug("journal pruned", "removed", removed)
	}
}

// Last returns the most recent entry, or nil if the journal is empty.
func (j *Journal) Last(ctx context.Context) (*Entry, error) {
	res, err := j.repo.List(ctx, Filter{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(res.Entries) == 0 {
		return nil, nil //nolint:nilnil // empty journal is not an error
	}
	return &res.Entries[0], nil
}
