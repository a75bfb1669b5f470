package transport

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte("fine"))
		case "/big":
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(strings.Repeat("x", 2000)))
		default:
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte("slow down"))
		}
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL})

	require.NoError(t, Check(client.R().Get("/ok")))

	err := Check(client.R().Get("/limited"))
	require.ErrorIs(t, err, ErrTransport)
	var terr *Error
	require.True(t, errors.As(err, &terr))
	require.Equal(t, http.StatusTooManyRequests, terr.StatusCode)
	require.Equal(t, "GET", terr.Method)
	require.Contains(t, err.Error(), "429")
	require.Contains(t, err.Error(), "slow down")

	err = Check(client.R().Get("/big"))
	require.True(t, errors.As(err, &terr))
	require.Len(t, terr.Body, maxBodyExcerpt+len("..."))
}

func TestCheckClientError(t *testing.T) {
	client := NewClient(Options{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
	err := Check(client.R().Get("/unreachable"))
	require.ErrorIs(t, err, ErrTransport)

	var terr *Error
	require.True(t, errors.As(err, &terr))
	require.NotNil(t, terr.Err)
	require.Equal(t, 0, terr.StatusCode)
}

func TestNewClientDefaults(t *testing.T) {
	var userAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL})
	require.Equal(t, DefaultTimeout, client.GetClient().Timeout)

	_, err := client.R().Get("/")
	require.NoError(t, err)
	require.Equal(t, DefaultUserAgent, userAgent)
}

func TestMinInterval(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL, MinInterval: 50 * time.Millisecond})

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.R().Get("/")
		require.NoError(t, err)
	}
	// the first request goes through immediately, the next two wait for the interval
	require.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}
