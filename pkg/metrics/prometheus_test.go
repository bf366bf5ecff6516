package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/require"
)

func TestPrometheusServer_DisabledDoesNotListen(t *testing.T) {
	c := NewCollector()
	s := NewPrometheusServer(PrometheusConfig{Enabled: false}, c, nil)

	err := s.Start(context.Background())
	require.NoError(t, err)
}

func TestPrometheusServer_StartsAndStopsOnCancel(t *testing.T) {
	c := NewCollector()
	c.MessageDecoded("TDU")

	s := NewPrometheusServer(PrometheusConfig{Enabled: true, Port: 0, Path: "/metrics"}, c, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	require.NotNil(t, s.server)

	addr := s.server.Addr
	_ = addr

	cancel()
	select {
	case <-errCh:
	case <-time.After(time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestPrometheusServer_HandlerExposesMessagesMetric(t *testing.T) {
	c := NewCollector()
	c.MessageDecoded("HDU")

	handler := promhttp.HandlerFor(c.Registry(), promhttp.HandlerOpts{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), "p25framer_messages_decoded_total"))
}
