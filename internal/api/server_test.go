//go:build !windows

package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/2811Yash/Voice-AI/internal/agent"
	"github.com/2811Yash/Voice-AI/internal/config"
)

func TestServer_BindsEphemeralPort(t *testing.T) {
	cfg := config.Defaults()
	cfg.Worker.Command = "sh"
	cfg.Worker.Args = []string{"-c", "sleep 60"}
	sup := agent.New(cfg, nil)
	t.Cleanup(func() { _ = sup.Close(context.Background()) })

	srv, err := NewServer(ServerConfig{
		Addr:    "127.0.0.1:0",
		Handler: NewHandler(HandlerConfig{Supervisor: sup}),
	})
	require.NoError(t, err)
	require.Greater(t, srv.Port(), 0, "OS should assign a real port for :0")

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Start() }()

	url := fmt.Sprintf("http://127.0.0.1:%d/health", srv.Port())
	var resp *http.Response
	require.Eventually(t, func() bool {
		var err error
		resp, err = http.Get(url)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
	require.ErrorIs(t, <-serveErr, http.ErrServerClosed)
}

func TestServer_InvalidAddr(t *testing.T) {
	cfg := config.Defaults()
	sup := agent.New(cfg, nil)
	t.Cleanup(func() { _ = sup.Close(context.Background()) })

	_, err := NewServer(ServerConfig{
		Addr:    "not-an-address",
		Handler: NewHandler(HandlerConfig{Supervisor: sup}),
	})
	require.Error(t, err)
}
