// Package daemon wires together chronosd's long-lived workers: the tick
// source, dispatch engine, status client, control-plane server, and the
// optional history store and alert sink.
package daemon

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/onlyati/chronos/internal/alert"
	"github.com/onlyati/chronos/internal/config"
	"github.com/onlyati/chronos/internal/dispatch"
	"github.com/onlyati/chronos/internal/fileloader"
	"github.com/onlyati/chronos/internal/history"
	"github.com/onlyati/chronos/internal/registry"
	"github.com/onlyati/chronos/internal/rpcserver"
	"github.com/onlyati/chronos/internal/status"
	"github.com/onlyati/chronos/internal/tick"
)

// Daemon owns every piece of process-wide state chronosd needs: the
// registry, the verbose flag, and the status-event queue. Exactly one
// Daemon exists per process.
type Daemon struct {
	cfg config.Config

	reg     *registry.Registry
	verbose *dispatch.Verbose
	history *history.Store
}

// New constructs a Daemon from a loaded configuration. It does not open
// any files or sockets yet; that happens in Run.
func New(cfg config.Config) *Daemon {
	return &Daemon{
		cfg:     cfg,
		reg:     registry.New(),
		verbose: &dispatch.Verbose{},
	}
}

// Run loads the static timer set, then starts every long-lived worker and
// blocks until SIGINT/SIGTERM. There is no finer-grained shutdown; process
// termination is the only cancellation.
func (d *Daemon) Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if d.cfg.Defaults.Verbose {
		d.verbose.Set(true)
	}

	if err := d.loadStatic(); err != nil {
		return err
	}

	if d.cfg.History.Enable {
		store, err := history.Open(d.cfg.History.DBPath, d.cfg.History.KeepLast)
		if err != nil {
			return err
		}
		defer store.Close()
		d.history = store
	}

	var alertSink dispatch.AlertSink
	if d.cfg.Alert.Slack.Enable {
		alertSink = alert.NewSlackSink(d.cfg.Alert.Slack.Token, d.cfg.Alert.Slack.Channel)
	}

	statusClient := status.New(d.cfg.Hermes.Address, d.cfg.Hermes.Table, d.cfg.Hermes.Enable)
	go statusClient.Run(ctx)

	var historySink dispatch.OutcomeSink
	if d.history != nil {
		historySink = d.history
	}

	engine := dispatch.New(d.reg, statusClient, d.cfg.Timer.LogDir, d.verbose, historySink, alertSink)
	ticks := tick.NewSource(ctx)
	go engine.Run(ticks.C())

	if d.cfg.Host.GRPC.Address == "" {
		log.Println("daemon: host.grpc.address not set, control-plane RPC disabled")
		<-ctx.Done()
		return nil
	}

	srv := rpcserver.New(d.reg, d.verbose, d.cfg.Timer.AllDir, d.history, d.cfg.Host.GRPC.Address, d.cfg.Host.GRPC.TLS, d.cfg.Host.GRPC.TLSPem, d.cfg.Host.GRPC.TLSKey)
	return srv.Run(ctx)
}

// loadStatic performs the startup scan of timer.all_dir, putting every
// successfully parsed timer into the registry as non-dynamic.
func (d *Daemon) loadStatic() error {
	configs, err := fileloader.ReadConfFiles(d.cfg.Timer.AllDir)
	if err != nil {
		return err
	}

	for _, cfg := range configs {
		d.reg.Put(cfg.ToTimer(false))
	}

	log.Printf("daemon: loaded %d static timer(s) from %s", len(configs), d.cfg.Timer.AllDir)
	return nil
}
