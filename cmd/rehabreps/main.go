package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"tailscale.com/tsnet"

	"github.com/claude/rehabreps/internal/config"
	rehabmcp "github.com/claude/rehabreps/internal/mcp"
	"github.com/claude/rehabreps/internal/server"
	"github.com/claude/rehabreps/internal/session"
	"github.com/claude/rehabreps/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("RehabReps starting", "version", Version)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Run migrations
	dsn := cfg.Database.DSN()
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Connect database
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	opts, err := cfg.Exercise.Options()
	if err != nil {
		log.Error("invalid exercise config", "error", err)
		os.Exit(1)
	}
	catalog, err := cfg.Exercise.Catalog()
	if err != nil {
		log.Error("invalid exercise targets", "error", err)
		os.Exit(1)
	}

	// Live session cache (optional)
	var cache session.Cache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Warn("redis unavailable, live state stays local", "addr", cfg.Redis.Addr, "error", err)
		} else {
			cache = session.NewRedisCache(rdb, cfg.Redis.TTL)
			log.Info("redis connected", "addr", cfg.Redis.Addr)
		}
	}

	// Event fan-out: log, websocket clients and optionally MQTT
	hub := server.NewHub(log)
	go hub.Run(ctx)
	notifiers := session.Notifiers{session.LogNotifier{Log: log}, hub}

	if cfg.MQTT.Broker != "" {
		mq := session.NewMQTTNotifier(session.MQTTConfig{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			QoS:         byte(cfg.MQTT.QoS),
		}, log)
		connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := mq.Connect(connCtx)
		cancel()
		if err != nil {
			log.Warn("mqtt connect failed, events will not be published", "broker", cfg.MQTT.Broker, "error", err)
		}
		defer mq.Disconnect()
		notifiers = append(notifiers, mq)
	}

	mgr := session.NewManager(catalog, opts, db, cache, notifiers, log)

	// Create server
	srv := server.New(mgr, db, hub, cfg.Auth.APIKey, log)
	srv.SetMCP(rehabmcp.New(rehabmcp.Local{DB: db, Catalog: catalog}, Version, log))

	// Start server: tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		srv.SetTailscale(lc)

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	// Persist whatever running sessions have done so far.
	mgr.Shutdown(shutdownCtx)
	stop()
	log.Info("server stopped")
}
