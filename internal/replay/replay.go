package replay

import (
	"fmt"
	"time"

	"github.com/claude/rehabreps/internal/exercise"
	"github.com/claude/rehabreps/internal/pose"
)

// Outcome is what replaying one recording produced.
type Outcome struct {
	Statistics *exercise.Statistics
	Frames     int
	Rejected   int
	Events     []exercise.Event
}

// Replay runs rec through a fresh tracker. The tracker's clock follows the
// recorded timestamps, so holds and cooldowns behave as they did live.
// Samples after the session completes are ignored.
func Replay(catalog *exercise.Catalog, opts exercise.Options, rec *Recording) (*Outcome, error) {
	start := rec.Header.StartedAt
	if start.IsZero() {
		start = time.Unix(0, 0).UTC()
	}
	clock := exercise.NewManualClock(start)

	out := &Outcome{}
	record := func(ev exercise.Event) { out.Events = append(out.Events, ev) }
	opts.Clock = clock
	opts.Events = exercise.Events{OnReady: record, OnRep: record, OnSet: record, OnComplete: record}

	tr := exercise.NewTracker(catalog, opts)
	if err := tr.Start(rec.Header.Exercise); err != nil {
		return nil, fmt.Errorf("starting %s: %w", rec.Header.Exercise, err)
	}

	for _, s := range rec.Samples {
		at := start.Add(time.Duration(s.T) * time.Millisecond)
		clock.Set(at)
		res := tr.Analyze(pose.Frame{Landmarks: s.Landmarks, Timestamp: at})
		if res == nil {
			continue
		}
		out.Frames++
		if res.Status == exercise.StatusInvalid {
			out.Rejected++
		}
		if res.Status == exercise.StatusComplete || res.Outcome == exercise.OutcomeComplete {
			break
		}
	}

	out.Statistics = tr.Stop()
	if out.Statistics == nil {
		return nil, fmt.Errorf("tracker for %s stopped without statistics", rec.Header.Exercise)
	}
	return out, nil
}
