package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/claude/rehabreps/internal/config"
	"github.com/claude/rehabreps/internal/exercise"
	"github.com/claude/rehabreps/internal/replay"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "RehabReps server URL (e.g. https://rehabreps.tail1234.ts.net)")
	apiKey := flag.String("api-key", os.Getenv("REHABREPS_AUTH_API_KEY"), "API key for the import endpoint")
	dir := flag.String("dir", "", "directory of *.jsonl recordings")
	patient := flag.String("patient", "", "patient for recordings whose header names none")
	configPath := flag.String("config", "", "optional server config file for exercise tuning")
	stateDir := flag.String("state-dir", "", "state directory (default ~/.rehabreps-replay)")
	dryRun := flag.Bool("dry-run", false, "replay and print but don't send to server")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("rehabreps-replay", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *dir == "" {
		fmt.Fprintf(os.Stderr, "Usage: rehabreps-replay -server <URL> -api-key <key> -dir <recordings> [-patient P] [-dry-run]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *serverURL == "" && !*dryRun {
		fmt.Fprintf(os.Stderr, "Error: -server is required (or use -dry-run)\n")
		os.Exit(1)
	}
	if *apiKey == "" && !*dryRun {
		fmt.Fprintf(os.Stderr, "Error: -api-key is required (or use -dry-run)\n")
		os.Exit(1)
	}

	// Strip trailing slash from server URL
	*serverURL = strings.TrimRight(*serverURL, "/")

	info, err := os.Stat(*dir)
	if err != nil || !info.IsDir() {
		log.Error("recordings directory not found", "path", *dir)
		os.Exit(1)
	}

	// Exercise tuning follows the server config when one is given
	opts := exercise.DefaultOptions()
	catalog := exercise.DefaultCatalog()
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		if opts, err = cfg.Exercise.Options(); err != nil {
			log.Error("invalid exercise config", "error", err)
			os.Exit(1)
		}
		if catalog, err = cfg.Exercise.Catalog(); err != nil {
			log.Error("invalid exercise targets", "error", err)
			os.Exit(1)
		}
	}

	// Open state database
	if *stateDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			log.Error("failed to get home directory", "error", err)
			os.Exit(1)
		}
		*stateDir = filepath.Join(homeDir, ".rehabreps-replay")
	}
	state, err := replay.OpenStateDB(*stateDir)
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	// Create client (nil-safe in dry-run mode)
	var client *replay.Client
	if !*dryRun {
		client = replay.NewClient(*serverURL, *apiKey)
	}

	if *dryRun {
		log.Info("DRY RUN mode: recordings will be replayed but not sent")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	r := replay.New(replay.Config{
		Dir:     *dir,
		Patient: *patient,
		DryRun:  *dryRun,
		Catalog: catalog,
		Options: opts,
	}, client, state, log)
	stats, err := r.Run(ctx)
	if err != nil {
		log.Error("replay failed", "error", err)
		printStats(stats)
		os.Exit(1)
	}

	printStats(stats)
	log.Info("replay complete")
}

func printStats(stats *replay.Stats) {
	fmt.Println()
	fmt.Println("=== Replay Summary ===")
	fmt.Printf("  Files total:      %d\n", stats.FilesTotal)
	fmt.Printf("  Files replayed:   %d\n", stats.FilesReplayed)
	fmt.Printf("  Files skipped:    %d (already replayed)\n", stats.FilesSkipped)
	fmt.Printf("  Files errored:    %d\n", stats.FilesErrored)
	fmt.Println()
	fmt.Printf("  Frames:           %d (%d rejected)\n", stats.Frames, stats.Rejected)
	fmt.Printf("  Repetitions:      %d\n", stats.Repetitions)
	fmt.Printf("  Uploaded:         %d\n", stats.Uploaded)
	fmt.Printf("  Duplicates:       %d\n", stats.Duplicates)
	fmt.Println()
}
