package server

import (
	"context"
	"net"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func localURL(t *testing.T, srv *Server, path string) string {
	t.Helper()
	_, port, err := net.SplitHostPort(srv.Addr())
	require.NoError(t, err)
	return "http://127.0.0.1:" + port + path
}

func TestServer_ServesMetricsAndRoutes(t *testing.T) {
	srv := NewServer("affiliate-relay", "0", zerolog.Nop())
	srv.RegisterMetrics()
	srv.Router.GET("/ping", func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString("pong")
	})

	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	status, body, err := fasthttp.Get(nil, localURL(t, srv, "/ping"))
	require.NoError(t, err)
	require.Equal(t, fasthttp.StatusOK, status)
	require.Equal(t, "pong", string(body))

	status, body, err = fasthttp.Get(nil, localURL(t, srv, "/metrics"))
	require.NoError(t, err)
	require.Equal(t, fasthttp.StatusOK, status)
	require.True(t, strings.Contains(string(body), "go_goroutines"))
}

func TestServer_StartFailsOnBusyPort(t *testing.T) {
	first := NewServer("a", "0", zerolog.Nop())
	require.NoError(t, first.Start())
	t.Cleanup(func() { _ = first.Shutdown(context.Background()) })

	_, port, err := net.SplitHostPort(first.Addr())
	require.NoError(t, err)

	second := NewServer("b", port, zerolog.Nop())
	require.Error(t, second.Start())
}
