package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	log "github.com/sirupsen/logrus"

	"github.com/okorienev/palantir-agent/internal/telemetry"
)

type udpListener struct {
	conn       net.PacketConn
	bufferSize int
	sink       *sink
}

func listenUDP(ctx context.Context, opts Options, s *sink) (*udpListener, error) {
	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp", opts.addr())
	if err != nil {
		return nil, fmt.Errorf("binding udp %s: %w", opts.addr(), err)
	}
	s.name = "udp://" + conn.LocalAddr().String()
	return &udpListener{conn: conn, bufferSize: opts.bufferSize(), sink: s}, nil
}

func (l *udpListener) Name() string { return l.sink.name }
func (l *udpListener) Addr() net.Addr { return l.conn.LocalAddr() }
func (l *udpListener) Close() error { return l.conn.Close() }

func (l *udpListener) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = l.conn.Close() })
	defer stop()
	defer l.conn.Close()

	log.WithFields(log.Fields{
		"listener":    l.Name(),
		"buffer_size": l.bufferSize,
	}).Info("udp listener started")

	// one spare byte detects datagrams larger than the buffer
	buf := make([]byte, l.bufferSize+1)
	for {
		n, origin, err := l.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("reading %s: %w", l.Name(), err)
		}

		log.WithFields(log.Fields{
			"listener": l.Name(),
			"origin":   origin,
			"bytes":    n,
		}).Trace("datagram received")

		switch {
		case n > l.bufferSize:
			l.sink.drop(telemetry.ReasonOversized, n)
		case n == 0:
			l.sink.drop(telemetry.ReasonEmpty, n)
		default:
			if !l.sink.deliver(ctx, buf[:n]) {
				return nil
			}
		}
	}
}
