package daemon

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stranddb/strand/internal/api"
	"github.com/stranddb/strand/internal/catalog"
	"github.com/stranddb/strand/internal/domain"
	"github.com/stranddb/strand/internal/engine"
	"github.com/stranddb/strand/internal/netpeer"
	"github.com/stranddb/strand/internal/parser"
	"github.com/stranddb/strand/internal/planner"
	"github.com/stranddb/strand/internal/storage/sqlitetable"
)

// Daemon is the strand runtime: it wires the engine, its optional TCP
// transport, and the HTTP embedding surface into one long-running process.
type Daemon struct {
	Config   Config
	Engine   *engine.Engine
	Server   *api.Server
	Listener *netpeer.Listener
	sender   *netpeer.Sender

	cancel context.CancelFunc
}

// New creates a Daemon with configuration loaded from $STRAND_HOME.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("daemon: load config: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration. The engine's
// router goroutine is already running by the time this returns; no program
// is installed yet.
func NewWithConfig(cfg Config) (*Daemon, error) {
	if err := os.MkdirAll(cfg.Storage.BaseDir, 0o700); err != nil {
		return nil, fmt.Errorf("daemon: create storage dir: %w", err)
	}

	var sender *netpeer.Sender
	var dispatch domain.Sender // left nil (a true nil interface) unless networking is enabled
	if cfg.Network.Enabled {
		sender = netpeer.NewSender()
		dispatch = sender
	}

	durable := func(cat *catalog.Catalog, def *domain.TableDef) (domain.TableStore, error) {
		pool, ok := cat.Pool(def.Schema.Name)
		if !ok {
			return nil, fmt.Errorf("daemon: no tuple pool for schema %q", def.Schema.Name)
		}
		return sqlitetable.Open(cfg.Storage.BaseDir, def, pool)
	}

	eng := engine.Construct(dispatch, parser.Parse, planner.Plan, planner.InstallFacts, durable)

	srv := api.NewServer(eng)
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}

	d := &Daemon{
		Config: cfg,
		Engine: eng,
		Server: srv,
		sender: sender,
	}

	if cfg.Network.Enabled {
		ln, err := netpeer.Listen(cfg.Network.ListenAddr, eng.Catalog, eng.Router)
		if err != nil {
			return nil, fmt.Errorf("daemon: listen %s: %w", cfg.Network.ListenAddr, err)
		}
		d.Listener = ln
	}

	return d, nil
}

// InstallProgramFile reads path and installs it against the engine.
func (d *Daemon) InstallProgramFile(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("daemon: read %s: %w", path, err)
	}
	return d.Engine.InstallProgram(string(src))
}

// Serve runs the HTTP API (and, if configured, the TCP listener) until ctx
// is canceled or a SIGINT/SIGTERM is received, then shuts both down
// gracefully along with the engine's router loop.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if d.Listener != nil {
		go func() {
			if err := d.Listener.Serve(ctx); err != nil {
				log.Printf("[daemon] listener error: %v", err)
			}
		}()
	}

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}
		cancel() // stops the TCP listener's Serve loop

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		_ = httpServer.Shutdown(shutdownCtx)
		if err := d.Engine.Shutdown(shutdownCtx); err != nil {
			log.Printf("[daemon] engine shutdown: %v", err)
		}
		if d.sender != nil {
			d.sender.Close()
		}
	}()

	fmt.Printf("strand serving on http://%s\n", addr)
	if d.Config.Network.Enabled {
		fmt.Printf("  network: listening on %s\n", d.Config.Network.ListenAddr)
	}
	if d.Config.Telemetry.Prometheus {
		fmt.Printf("  metrics: http://%s/metrics\n", addr)
	}

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close tears down the daemon outside of Serve's signal-driven path — used
// by the embedded-engine CLI commands that don't run the HTTP server.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.Engine.Shutdown(ctx); err != nil {
		log.Printf("[daemon] engine shutdown: %v", err)
	}
	if d.sender != nil {
		d.sender.Close()
	}
}
