package main

import (
	"context"
	"fmt"

	"github.com/coder/quartz"
	"github.com/lox/pokermatic/internal/metrics"
	"github.com/lox/pokermatic/internal/randutil"
	"github.com/lox/pokermatic/internal/server"
	"github.com/lox/pokermatic/internal/session"
	"github.com/lox/pokermatic/internal/stats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ServerCmd runs the websocket server
type ServerCmd struct {
	Config     string `short:"c" default:"pokermatic.hcl" help:"Path to HCL configuration file"`
	Addr       string `short:"a" help:"Address to bind, host:port (overrides config)"`
	LogLevel   string `short:"l" help:"Log level (overrides config)"`
	AdminToken string `env:"POKERMATIC_ADMIN_TOKEN" help:"Bearer token for the admin endpoint (overrides config)"`
	StatsFile  string `help:"Where finishing orders are recorded (overrides config)"`
	Seed       *int64 `help:"Deterministic RNG seed for shuffles and seating"`
}

func (c *ServerCmd) Run() error {
	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}
	if c.AdminToken != "" {
		cfg.Server.AdminToken = c.AdminToken
	}
	if c.StatsFile != "" {
		cfg.Server.StatsFile = c.StatsFile
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	addr := cfg.ListenAddress()
	if c.Addr != "" {
		addr = c.Addr
	}

	logger := newLogger(cfg.Server.LogLevel)

	seed := randutil.Seed(0)
	if c.Seed != nil {
		seed = *c.Seed
	}
	logger.Info("Using seed", "seed", seed)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var srv *server.Server
	lobby := session.NotifierFunc(func(ctx context.Context, msg session.Message) error {
		return srv.Publish(ctx, msg)
	})

	dispatcher := server.NewDispatcher(server.NewRegistry(), cfg,
		server.WithDispatchClock(quartz.NewReal()),
		server.WithDispatchLogger(logger),
		server.WithDispatchMetrics(metrics.New(reg)),
		server.WithRecorder(stats.NewStore(cfg.Server.StatsFile, quartz.NewReal())),
		server.WithLobby(lobby),
		server.WithSeed(seed),
	)
	defer dispatcher.Close()

	for _, tc := range cfg.Tables {
		s, err := dispatcher.CreateTable(tc)
		if err != nil {
			return fmt.Errorf("create table %s: %w", tc.Name, err)
		}
		logger.Info("Created table", "name", tc.Name, "id", s.ID())
	}
	admins := cfg.AdminValidator()
	if admins == nil {
		logger.Warn("No admin token or auth service configured, admin endpoint disabled")
	}

	srv = server.NewServer(dispatcher, logger, reg, admins)
	logger.Info("Starting pokermatic server", "addr", addr, "tables", len(cfg.Tables), "stats", cfg.Server.StatsFile)
	return srv.ListenAndServe(signalContext(logger), addr)
}
