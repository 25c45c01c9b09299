package session

import (
	"errors"
	"log/slog"

	"github.com/claude/rehabreps/internal/exercise"
)

// Notifier receives tracker events for a session: ready cues, counted reps,
// finished sets and finished sessions.
type Notifier interface {
	Notify(sessionID string, ev exercise.Event) error
}

// Notifiers fans an event out to every notifier.
type Notifiers []Notifier

func (ns Notifiers) Notify(sessionID string, ev exercise.Event) error {
	var errs []error
	for _, n := range ns {
		if err := n.Notify(sessionID, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes events to a logger.
type LogNotifier struct {
	Log *slog.Logger
}

func (n LogNotifier) Notify(sessionID string, ev exercise.Event) error {
	n.Log.Info("exercise event",
		"session", sessionID,
		"kind", ev.Kind,
		"exercise", ev.Exercise,
		"side", ev.Side,
		"reps", ev.Reps,
		"target_reps", ev.TargetReps,
		"set", ev.Set,
	)
	return nil
}
