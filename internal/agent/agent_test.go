package agent

import (
	"context"
	"io"
	"net"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okorienev/palantir-agent/internal/apm"
	"github.com/okorienev/palantir-agent/internal/config"
	"github.com/okorienev/palantir-agent/internal/registry"
	"github.com/okorienev/palantir-agent/internal/server"
)

type push struct {
	body string
	url  string
	auth string
}

type importEndpoint struct {
	*httptest.Server
	pushes chan push
}

func newImportEndpoint(t *testing.T) *importEndpoint {
	t.Helper()
	e := &importEndpoint{pushes: make(chan push, 100)}
	e.Server = httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		body, _ := io.ReadAll(r.Body)
		select {
		case e.pushes <- push{body: string(body), url: r.URL.String(), auth: r.Header.Get("Authorization")}:
		default:
		}
		w.WriteHeader(nethttp.StatusNoContent)
	}))
	t.Cleanup(e.Close)
	return e
}

func testConfig(importURL string) *config.Config {
	cfg := &config.Config{
		Listeners: []config.ListenerConfig{{Type: config.ListenerUDP, Port: 0}},
		Reporter: config.ReporterConfig{
			VMImportURL: importURL,
			Period:      config.Duration(20 * time.Millisecond),
			Headers:     map[string]string{"Authorization": "Bearer secret"},
		},
	}
	config.ApplyDefaults(cfg)
	return cfg
}

func TestAgent_EndToEnd(t *testing.T) {
	endpoint := newImportEndpoint(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := Open(ctx, testConfig(endpoint.URL+"/api/v1/import/prometheus"), []string{"PALANTIR_EXTRA_LABEL_DC=eu"})
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	conn, err := net.Dial("udp", a.Listeners()[0].Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	record := &apm.Record{
		Realm:        "prod",
		ActionName:   "/checkout",
		TotalUS:      100,
		Measurements: []apm.Measurement{{Name: "db", ElapsedUS: 40}},
	}
	_, err = conn.Write(server.EncodeProtobuf(record))
	require.NoError(t, err)

	var got push
	deadline := time.After(5 * time.Second)
	for !strings.Contains(got.body, `palantir_span="untracked"} 60`) {
		select {
		case got = <-endpoint.pushes:
		case <-deadline:
			t.Fatal("aggregated record never pushed")
		}
	}
	assert.Contains(t, got.url, "extra_label=dc%3Deu")
	assert.Equal(t, "Bearer secret", got.auth)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("agent did not stop")
	}
}

func TestAgent_ListenerLossIsFatal(t *testing.T) {
	endpoint := newImportEndpoint(t)
	a, err := Open(context.Background(), testConfig(endpoint.URL), nil)
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()
	<-endpoint.pushes

	require.NoError(t, a.Listeners()[0].Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, registry.ErrQueueClosed)
		assert.True(t, registry.IsFatal(err))
	case <-time.After(5 * time.Second):
		t.Fatal("agent did not stop")
	}
}

func TestOpen_BindFailure(t *testing.T) {
	taken, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	cfg := testConfig("http://127.0.0.1:1/import")
	cfg.Listeners[0].Port = taken.LocalAddr().(*net.UDPAddr).Port

	_, err = Open(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestListenerOptions(t *testing.T) {
	cfg := testConfig("http://vm/import")
	cfg.Listeners = append(cfg.Listeners, config.ListenerConfig{Type: config.ListenerTCP, Address: "0.0.0.0", Port: 6000, BufferSize: 10, Format: config.FormatJSON})

	assert.Equal(t, []server.Options{
		{Type: "udp", Address: "127.0.0.1", Port: 0, BufferSize: 4096, Format: "protobuf"},
		{Type: "tcp", Address: "0.0.0.0", Port: 6000, BufferSize: 10, Format: "json"},
	}, ListenerOptions(cfg))
}
