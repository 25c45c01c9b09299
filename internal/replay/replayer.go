package replay

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/claude/rehabreps/internal/exercise"
	"github.com/claude/rehabreps/internal/models"
)

// Stats tracks replay progress.
type Stats struct {
	FilesTotal    int
	FilesReplayed int
	FilesSkipped  int
	FilesErrored  int

	Repetitions int
	Frames      int
	Rejected    int
	Uploaded    int
	Duplicates  int
}

// Config configures a Replayer.
type Config struct {
	Dir     string
	Patient string // used when a recording's header names none
	DryRun  bool
	Catalog *exercise.Catalog
	Options exercise.Options
}

// Replayer walks a directory of recordings, replays each new one and
// uploads its summary.
type Replayer struct {
	cfg    Config
	client *Client
	state  *StateDB
	log    *slog.Logger
	stats  Stats
}

// New creates a new Replayer. client may be nil in dry-run mode.
func New(cfg Config, client *Client, state *StateDB, log *slog.Logger) *Replayer {
	if cfg.Catalog == nil {
		cfg.Catalog = exercise.DefaultCatalog()
	}
	return &Replayer{cfg: cfg, client: client, state: state, log: log}
}

// Run replays every *.jsonl file under the directory in path order. A file
// that fails is counted and logged; only an unreadable directory or a
// cancelled context stops the run.
func (r *Replayer) Run(ctx context.Context) (*Stats, error) {
	files, err := findRecordings(r.cfg.Dir)
	if err != nil {
		return &r.stats, err
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return &r.stats, err
		}
		r.stats.FilesTotal++
		if err := r.processFile(ctx, f); err != nil {
			r.log.Warn("replay failed", "file", f, "error", err)
			r.stats.FilesErrored++
		}
	}
	return &r.stats, nil
}

func (r *Replayer) processFile(ctx context.Context, path string) error {
	relPath, err := filepath.Rel(r.cfg.Dir, path)
	if err != nil {
		relPath = path
	}
	relPath = filepath.ToSlash(relPath)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}
	hash, err := HashFile(path)
	if err != nil {
		return fmt.Errorf("hash: %w", err)
	}
	done, err := r.state.IsReplayed(relPath, info.Size(), hash)
	if err != nil {
		return fmt.Errorf("state check: %w", err)
	}
	if done {
		r.stats.FilesSkipped++
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	rec, err := ReadRecording(f)
	f.Close()
	if err != nil {
		return err
	}
	if rec.Header.Patient == "" {
		rec.Header.Patient = r.cfg.Patient
	}
	if rec.Header.Patient == "" {
		return fmt.Errorf("no patient in header and none configured")
	}

	out, err := Replay(r.cfg.Catalog, r.cfg.Options, rec)
	if err != nil {
		return err
	}
	stats := out.Statistics
	r.stats.Frames += out.Frames
	r.stats.Rejected += out.Rejected

	if r.cfg.DryRun {
		r.log.Info("dry-run: would upload",
			"file", relPath,
			"exercise", stats.Exercise,
			"patient", rec.Header.Patient,
			"reps", stats.TotalRepetitions,
			"accuracy", stats.AverageAccuracy,
			"quality", stats.Quality,
		)
	} else {
		res, err := r.client.SendImport(ctx, models.SessionImport{
			Patient:    rec.Header.Patient,
			Recording:  relPath,
			Statistics: *stats,
		})
		if err != nil {
			return fmt.Errorf("uploading: %w", err)
		}
		if res.Inserted {
			r.stats.Uploaded++
		} else {
			r.stats.Duplicates++
		}
		if err := r.state.MarkReplayed(relPath, info.Size(), hash, stats.Exercise, stats.TotalRepetitions); err != nil {
			r.log.Warn("failed to mark replayed", "file", relPath, "error", err)
		}
	}

	r.stats.FilesReplayed++
	r.stats.Repetitions += stats.TotalRepetitions
	r.log.Info("replayed recording",
		"file", relPath,
		"exercise", stats.Exercise,
		"frames", out.Frames,
		"reps", stats.TotalRepetitions,
	)
	return nil
}

func findRecordings(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".jsonl") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}
