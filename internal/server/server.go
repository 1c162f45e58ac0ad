package server

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/okorienev/palantir-agent/internal/apm"
	"github.com/okorienev/palantir-agent/internal/telemetry"
)

// Server owns the listeners feeding one ingestion queue.
type Server struct {
	listeners []Listener
	out       chan<- *apm.Record
}

// Open binds every listener in opts. If one fails, the ones already bound are
// released.
func Open(ctx context.Context, opts []Options, out chan<- *apm.Record, m *telemetry.Metrics) (*Server, error) {
	s := &Server{out: out}
	for i, o := range opts {
		l, err := Listen(ctx, o, out, m)
		if err != nil {
			s.release()
			return nil, fmt.Errorf("listener %d: %w", i, err)
		}
		s.listeners = append(s.listeners, l)
	}
	return s, nil
}

// Listeners returns the bound listeners.
func (s *Server) Listeners() []Listener {
	return s.listeners
}

// Run serves all listeners until ctx is done or one of them fails, which
// stops the others. The queue is closed once every listener has returned.
func (s *Server) Run(ctx context.Context) error {
	defer close(s.out)

	g, gctx := errgroup.WithContext(ctx)
	for _, l := range s.listeners {
		l := l
		g.Go(func() error {
			err := l.Serve(gctx)
			if err != nil {
				log.WithField("listener", l.Name()).WithError(err).Error("listener failed")
			}
			return err
		})
	}

	err := g.Wait()
	log.Info("all listeners stopped, closing ingestion queue")
	return err
}

func (s *Server) release() {
	for _, l := range s.listeners {
		_ = l.Close()
	}
}
