package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/server"

	rehabmcp "github.com/claude/rehabreps/internal/mcp"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "RehabReps server URL (e.g. https://rehabreps.tail1234.ts.net)")
	patient := flag.String("patient", "", "patient login used when a tool call names none")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("rehabreps-mcp", Version)
		return
	}

	// stdout carries the MCP protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *serverURL == "" {
		fmt.Fprintf(os.Stderr, "Usage: rehabreps-mcp -server <URL> [-patient login]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	client := rehabmcp.NewHTTPClient(strings.TrimRight(*serverURL, "/"))
	s := rehabmcp.New(client, Version, log)

	log.Info("serving MCP over stdio", "server", *serverURL, "patient", *patient)
	err := server.ServeStdio(s, server.WithStdioContextFunc(func(ctx context.Context) context.Context {
		if *patient == "" {
			return ctx
		}
		return rehabmcp.WithPatient(ctx, *patient)
	}))
	if err != nil {
		log.Error("mcp server stopped", "error", err)
		os.Exit(1)
	}
}
