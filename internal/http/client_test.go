package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Push(t *testing.T) {
	var gotBody, gotContentType, gotHeader, gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		gotHeader = r.Header.Get("X-Scope")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(
		WithTimeout(5*time.Second),
		WithHeader("X-Scope", "tenant-1"),
	)

	resp, err := client.Push(context.Background(), server.URL+"/api/v1/import/prometheus", []byte("a_count{} 1\n"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.True(t, resp.IsSuccess())
	assert.Empty(t, resp.Body)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "a_count{} 1\n", gotBody)
	assert.Equal(t, "text/plain; charset=utf-8", gotContentType)
	assert.Equal(t, "tenant-1", gotHeader)
	assert.Greater(t, resp.Timing.TotalTime, time.Duration(0))
}

func TestClient_PushErrorStatus(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		clientError bool
		serverError bool
	}{
		{name: "bad request", status: http.StatusBadRequest, clientError: true},
		{name: "unavailable", status: http.StatusServiceUnavailable, serverError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("cannot parse line"))
			}))
			defer server.Close()

			resp, err := NewClient().Push(context.Background(), server.URL, []byte("x"))
			require.NoError(t, err)

			assert.False(t, resp.IsSuccess())
			assert.Equal(t, tt.clientError, resp.IsClientError())
			assert.Equal(t, tt.serverError, resp.IsServerError())
			assert.Equal(t, "cannot parse line", string(resp.Body))
		})
	}
}

func TestClient_PushTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(WithTimeout(time.Second)).Push(context.Background(), url, []byte("x"))
	assert.Error(t, err)
}

func TestClient_PushInvalidURL(t *testing.T) {
	_, err := NewClient().Push(context.Background(), "://bad", nil)
	assert.Error(t, err)
}

func TestClient_PushTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	_, err := NewClient(WithTimeout(20*time.Millisecond)).Push(context.Background(), server.URL, []byte("x"))
	assert.Error(t, err)
}
