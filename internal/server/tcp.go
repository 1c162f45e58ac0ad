package server

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/okorienev/palantir-agent/internal/telemetry"
)

type tcpListener struct {
	ln         net.Listener
	bufferSize int
	framed     bool
	sink       *sink
}

func listenTCP(ctx context.Context, opts Options, s *sink) (*tcpListener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", opts.addr())
	if err != nil {
		return nil, fmt.Errorf("binding tcp %s: %w", opts.addr(), err)
	}
	s.name = "tcp://" + ln.Addr().String()
	return &tcpListener{
		ln:         ln,
		bufferSize: opts.bufferSize(),
		framed:     opts.Format != FormatJSON,
		sink:       s,
	}, nil
}

func (l *tcpListener) Name() string { return l.sink.name }
func (l *tcpListener) Addr() net.Addr { return l.ln.Addr() }
func (l *tcpListener) Close() error { return l.ln.Close() }

func (l *tcpListener) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = l.ln.Close() })
	defer stop()

	log.WithFields(log.Fields{
		"listener":    l.Name(),
		"buffer_size": l.bufferSize,
	}).Info("tcp listener started")

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			_ = l.ln.Close()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accepting on %s: %w", l.Name(), err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			l.handle(ctx, conn)
		}()
	}
}

func (l *tcpListener) handle(ctx context.Context, conn net.Conn) {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer conn.Close()

	entry := log.WithFields(log.Fields{
		"listener": l.Name(),
		"remote":   conn.RemoteAddr().String(),
	})
	entry.Debug("connection accepted")

	var err error
	if l.framed {
		err = l.readFrames(ctx, bufio.NewReader(conn))
	} else {
		err = l.readLines(ctx, conn)
	}

	switch {
	case err == nil, ctx.Err() != nil, errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		entry.Debug("connection closed")
	default:
		entry.WithError(err).Warn("closing connection")
	}
}

// errFrameTooLarge closes a connection that sent a frame over the buffer
// size.
var errFrameTooLarge = errors.New("frame exceeds buffer size")

func (l *tcpListener) readFrames(ctx context.Context, r *bufio.Reader) error {
	buf := make([]byte, l.bufferSize)
	for {
		size, err := binary.ReadUvarint(r)
		if err != nil {
			return err
		}
		if size > uint64(l.bufferSize) {
			l.sink.drop(telemetry.ReasonOversized, int(min(size, uint64(^uint(0)>>1))))
			return errFrameTooLarge
		}
		if size == 0 {
			l.sink.drop(telemetry.ReasonEmpty, 0)
			continue
		}

		frame := buf[:size]
		if _, err := io.ReadFull(r, frame); err != nil {
			return fmt.Errorf("reading frame: %w", err)
		}
		if !l.sink.deliver(ctx, frame) {
			return nil
		}
	}
}

func (l *tcpListener) readLines(ctx context.Context, conn io.Reader) error {
	scanner := bufio.NewScanner(conn)
	// +1 leaves room for the delimiter of a line of exactly bufferSize bytes
	scanner.Buffer(make([]byte, 0, l.bufferSize+1), l.bufferSize+1)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !l.sink.deliver(ctx, line) {
			return nil
		}
	}

	err := scanner.Err()
	if errors.Is(err, bufio.ErrTooLong) {
		l.sink.drop(telemetry.ReasonOversized, l.bufferSize+1)
		return errFrameTooLarge
	}
	return err
}
