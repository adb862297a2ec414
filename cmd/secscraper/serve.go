package main

import (
	"context"
	"errors"
	"flag"
	"net/http"

	"github.com/google/subcommands"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"sec_scraper/pkg/api/balancesheet"
)

type serveCmd struct {
	addr string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serves the balance-sheet HTTP API" }
func (*serveCmd) Usage() string {
	return `secscraper serve [-addr :8080]

  Starts the HTTP API. Stored-result endpoints need DATABASE_URL; without it
  only extraction, health and metrics are served.

`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "Listen address; defaults to the configured server.addr.")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp()
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := balancesheet.Options{
		Gatherer:     reg,
		Logger:       a.log,
		MaxBodyBytes: a.cfg.Server.MaxBodyBytes,
	}
	if a.cfg.Database.URL != "" {
		records, ms, err := a.openStores(ctx)
		if err != nil {
			fail("%v", err)
			return subcommands.ExitFailure
		}
		opts.Records, opts.Metrics = records, ms
	} else {
		a.log.Warn("no database configured, stored-result endpoints disabled")
	}

	addr := a.cfg.Server.Addr
	if c.addr != "" {
		addr = c.addr
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      balancesheet.NewHandler(opts).Routes(),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			fail("%v", err)
			return subcommands.ExitFailure
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			fail("shutdown: %v", err)
			return subcommands.ExitFailure
		}
		a.log.Info("server stopped")
	}
	return subcommands.ExitSuccess
}
