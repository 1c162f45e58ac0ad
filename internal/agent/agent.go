// Package agent assembles the listeners, the aggregation registry and the
// telemetry endpoint into one supervised process.
package agent

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/okorienev/palantir-agent/internal/apm"
	"github.com/okorienev/palantir-agent/internal/config"
	"github.com/okorienev/palantir-agent/internal/http"
	"github.com/okorienev/palantir-agent/internal/registry"
	"github.com/okorienev/palantir-agent/internal/server"
	"github.com/okorienev/palantir-agent/internal/telemetry"
)

// Agent is a bound, not yet running pipeline.
type Agent struct {
	cfg       *config.Config
	server    *server.Server
	registry  *registry.Registry
	telemetry *telemetry.Metrics
}

// Open binds every configured listener and builds the registry. Extra labels
// are read from environ, in os.Environ form.
func Open(ctx context.Context, cfg *config.Config, environ []string) (*Agent, error) {
	m := telemetry.New()
	queue := make(chan *apm.Record, cfg.Queue.Size)

	srv, err := server.Open(ctx, ListenerOptions(cfg), queue, m)
	if err != nil {
		return nil, fmt.Errorf("opening listeners: %w", err)
	}

	options := []http.ClientOption{http.WithTimeout(cfg.Reporter.Timeout.GetDuration(config.DefaultTimeout))}
	for key, value := range cfg.Reporter.Headers {
		options = append(options, http.WithHeader(key, value))
	}

	reg, err := registry.New(queue, registry.ReporterConfig{
		ImportURL:   cfg.Reporter.VMImportURL,
		Period:      cfg.Reporter.Period.GetDuration(config.DefaultPeriod),
		ExtraLabels: registry.LoadExtraLabels(environ),
	}, http.NewClient(options...), m)
	if err != nil {
		for _, l := range srv.Listeners() {
			_ = l.Close()
		}
		return nil, fmt.Errorf("building registry: %w", err)
	}

	return &Agent{cfg: cfg, server: srv, registry: reg, telemetry: m}, nil
}

// ListenerOptions maps the listener configuration to server options.
func ListenerOptions(cfg *config.Config) []server.Options {
	opts := make([]server.Options, 0, len(cfg.Listeners))
	for _, l := range cfg.Listeners {
		opts = append(opts, server.Options{
			Type:       l.Type,
			Address:    l.Address,
			Port:       l.Port,
			BufferSize: l.BufferSize,
			Format:     l.Format,
		})
	}
	return opts
}

// Listeners returns the bound listeners.
func (a *Agent) Listeners() []server.Listener {
	return a.server.Listeners()
}

// Registry returns the aggregation registry.
func (a *Agent) Registry() *registry.Registry {
	return a.registry
}

// Telemetry returns the self metrics.
func (a *Agent) Telemetry() *telemetry.Metrics {
	return a.telemetry
}

// Run serves until ctx is done or the pipeline fails. A registry failure
// stops the listeners; a listener failure closes the queue, which stops the
// registry. The returned error is nil on a clean shutdown.
func (a *Agent) Run(ctx context.Context) error {
	serveCtx, stop := context.WithCancel(ctx)
	defer stop()

	if a.cfg.Telemetry.Listen != "" {
		go func() {
			if err := a.telemetry.Serve(serveCtx, a.cfg.Telemetry.Listen); err != nil {
				log.WithError(err).Error("telemetry endpoint failed")
			}
		}()
	}

	serverDone := make(chan error, 1)
	go func() { serverDone <- a.server.Run(serveCtx) }()

	log.WithField("listeners", len(a.Listeners())).Info("agent started")

	regErr := a.registry.Run(ctx)
	stop()
	srvErr := <-serverDone

	if isCancel(regErr) {
		regErr = nil
	}
	if isCancel(srvErr) {
		srvErr = nil
	}
	if srvErr != nil {
		srvErr = fmt.Errorf("listeners: %w", srvErr)
	}

	err := errors.Join(regErr, srvErr)
	if err != nil {
		log.WithError(err).Error("agent stopped")
		return err
	}
	log.Info("agent stopped")
	return nil
}

func isCancel(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
