package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"sec_scraper/pkg/config"
	"sec_scraper/pkg/core/edgar"
	"sec_scraper/pkg/core/fee"
	"sec_scraper/pkg/core/logging"
	"sec_scraper/pkg/core/store"
)

var (
	configPath string

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// app is what every command needs: settings and a logger.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	closeFn func() error
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log, closeFn, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, closeFn: closeFn}, nil
}

func (a *app) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
	store.Close()
}

func (a *app) edgarClient() *edgar.Client {
	return edgar.NewClient(edgar.OptionsFromConfig(a.cfg.SEC, a.log))
}

// debugCache returns nil unless debug copies are enabled.
func (a *app) debugCache() fee.DebugSink {
	if !a.cfg.Debug.Enabled {
		return nil
	}
	return edgar.NewDebugCache(a.cfg.Debug.Dir)
}

// openStores connects to Postgres and applies the schema.
func (a *app) openStores(ctx context.Context) (*store.RecordRepo, *store.MetricsRepo, error) {
	if err := a.cfg.RequireDatabase(); err != nil {
		return nil, nil, err
	}
	if err := store.InitDB(ctx, a.cfg.Database.URL, a.cfg.Database.MaxConns); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	pool := store.GetPool()
	if err := store.EnsureSchema(ctx, pool); err != nil {
		return nil, nil, err
	}
	return store.NewRecordRepo(pool), store.NewMetricsRepo(pool), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readSymbols reads one symbol per line; blank lines and lines starting with
// '#' are skipped. A trailing comment or comma-separated list is accepted too.
func readSymbols(r io.Reader) ([]string, error) {
	var out []string
	seen := map[string]bool{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		for _, field := range strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' }) {
			symbol := strings.ToUpper(field)
			if !seen[symbol] {
				seen[symbol] = true
				out = append(out, symbol)
			}
		}
	}
	return out, scanner.Err()
}

func fail(format string, args ...any) {
	fmt.Fprintf(stderr, "Error: "+format+"\n", args...)
}
