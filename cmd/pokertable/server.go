package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/lox/pokertable/internal/server"
	"github.com/lox/pokertable/internal/settlement"
	"github.com/lox/pokertable/internal/store"
)

// ServerCmd runs the table server
type ServerCmd struct {
	Config   string `short:"c" default:"pokertable.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" help:"Server address to bind to, host:port (overrides config)"`
	LogLevel string `short:"l" help:"Log level (overrides config)"`
}

func (c *ServerCmd) Run() error {
	cfg, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	addr := cfg.GetServerAddress()
	if c.Addr != "" {
		addr = c.Addr
	}

	logger := newLogger(os.Stderr, cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hands, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() { _ = hands.Close() }()

	dispatcher := server.NewDispatcher(logger, hands, settlement.NewTracker(logger, nil))
	service := server.NewTableService(logger,
		server.WithDispatcher(dispatcher),
		server.WithTurnTimeout(cfg.TurnTimeout()),
		server.WithHandDelay(cfg.HandDelay()),
	)
	for _, table := range cfg.Tables {
		if err := service.CreateTable(table); err != nil {
			return err
		}
	}

	wsServer := server.NewServer(addr, logger, service)
	service.SetPublisher(wsServer)

	logger.Info("Starting table server",
		"addr", addr,
		"tables", len(cfg.Tables),
		"store", cfg.Store.Driver,
		"turn_timeout", cfg.TurnTimeout())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(gctx)
	})
	g.Go(func() error {
		defer service.Stop()
		return wsServer.Serve(gctx)
	})

	err = g.Wait()
	logger.Info("Server stopped")
	return err
}
