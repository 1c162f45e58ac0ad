package server

import (
	"context"
	"fmt"
	"net"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/okorienev/palantir-agent/internal/apm"
	"github.com/okorienev/palantir-agent/internal/telemetry"
)

// Listener transports.
const (
	TypeUDP = "udp"
	TypeTCP = "tcp"
)

// DefaultBufferSize is the payload size limit used when Options.BufferSize
// is zero.
const DefaultBufferSize = 4096

// Options configures one listener.
type Options struct {
	Type       string
	Address    string
	Port       int
	BufferSize int
	Format     string
}

func (o Options) addr() string {
	return net.JoinHostPort(o.Address, strconv.Itoa(o.Port))
}

func (o Options) bufferSize() int {
	if o.BufferSize <= 0 {
		return DefaultBufferSize
	}
	return o.BufferSize
}

// Listener is a bound socket that decodes records until its context is done.
type Listener interface {
	// Name identifies the listener in logs and telemetry.
	Name() string

	// Addr returns the bound local address.
	Addr() net.Addr

	// Serve reads the socket until ctx is done or a non-recoverable socket
	// error occurs. It closes the socket before returning.
	Serve(ctx context.Context) error

	// Close releases a listener that will not be served.
	Close() error
}

// Listen binds the socket described by opts. Decoded records are sent to
// out.
func Listen(ctx context.Context, opts Options, out chan<- *apm.Record, m *telemetry.Metrics) (Listener, error) {
	decode, err := DecoderFor(opts.Format)
	if err != nil {
		return nil, err
	}

	sink := &sink{out: out, decode: decode, telemetry: m}

	switch opts.Type {
	case TypeUDP, "":
		return listenUDP(ctx, opts, sink)
	case TypeTCP:
		return listenTCP(ctx, opts, sink)
	default:
		return nil, fmt.Errorf("unknown listener type %q", opts.Type)
	}
}

// sink decodes payloads and forwards records for one listener.
type sink struct {
	name      string
	out       chan<- *apm.Record
	decode    DecodeFunc
	telemetry *telemetry.Metrics
}

// deliver decodes payload and queues the record. Malformed payloads are
// logged and dropped. It returns false if ctx was done before the record
// could be queued.
func (s *sink) deliver(ctx context.Context, payload []byte) bool {
	record, err := s.decode(payload)
	if err != nil {
		s.telemetry.PacketDropped(s.name, telemetry.ReasonMalformed)
		log.WithField("listener", s.name).WithError(err).Warn("unable to decode payload, skipping")
		return true
	}

	select {
	case s.out <- record:
		s.telemetry.RecordReceived(s.name)
		return true
	case <-ctx.Done():
		return false
	}
}

// drop counts and logs a payload rejected before decoding.
func (s *sink) drop(reason string, size int) {
	s.telemetry.PacketDropped(s.name, reason)
	log.WithFields(log.Fields{
		"listener": s.name,
		"reason":   reason,
		"bytes":    size,
	}).Warn("payload dropped")
}
