package system

import (
	"errors"
	"fmt"

	gpiod "github.com/warthog618/go-gpiocdev"

	"github.com/nerrad567/gray-logic-device/internal/infrastructure/config"
)

// lineReader is the part of *gpiod.Line the reset line uses.
type lineReader interface {
	Value() (int, error)
	Close() error
}

// ResetLine is the manual "force restart" input. A disabled line is never
// asserted.
type ResetLine struct {
	chip      *gpiod.Chip
	line      lineReader
	activeLow bool
}

// OpenResetLine requests the configured GPIO line as an input. Active-low
// lines get the internal pull-up so a floating button reads as released.
func OpenResetLine(cfg config.ResetLineConfig) (*ResetLine, error) {
	if !cfg.Enabled {
		return &ResetLine{}, nil
	}

	chip, err := gpiod.NewChip(cfg.Chip)
	if err != nil {
		return nil, fmt.Errorf("open chip %s: %w", cfg.Chip, err)
	}

	opts := []gpiod.LineReqOption{gpiod.AsInput, gpiod.WithConsumer("graydevice-reset")}
	if cfg.ActiveLow {
		opts = append(opts, gpiod.WithPullUp)
	}

	line, err := chip.RequestLine(cfg.Offset, opts...)
	if err != nil {
		chip.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("request reset line %d: %w", cfg.Offset, err)
	}

	return &ResetLine{chip: chip, line: line, activeLow: cfg.ActiveLow}, nil
}

// Asserted reports whether the button is pressed. Read errors count as
// released so a flaky line cannot force restarts.
func (r *ResetLine) Asserted() bool {
	if r == nil || r.line == nil {
		return false
	}
	v, err := r.line.Value()
	if err != nil {
		return false
	}
	if r.activeLow {
		return v == 0
	}
	return v != 0
}

// Close releases the line and chip.
func (r *ResetLine) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.line != nil {
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close reset line: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	return errors.Join(errs...)
}
