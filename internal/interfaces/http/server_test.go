package http

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-Chem/internal/config"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/monitoring/logging"
)

func TestNewServer(t *testing.T) {
	s := NewServer(config.ServerConfig{Port: 8080, ReadTimeout: time.Second}, gin.New(), logging.NewNopLogger())
	assert.Equal(t, ":8080", s.Addr())
	assert.Equal(t, time.Second, s.httpServer.ReadTimeout)
	assert.Equal(t, 30*time.Second, s.shutdownTimeout)
}

func TestServer_ServeAndShutdown(t *testing.T) {
	r := gin.New()
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	s := NewServer(config.ServerConfig{ShutdownTimeout: time.Second}, r, logging.NewNopLogger())

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- s.Serve(l) }()

	resp, err := http.Get(fmt.Sprintf("http://%s/ping", l.Addr()))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	require.NoError(t, s.Shutdown(context.Background()))
	assert.NoError(t, <-done)
}

//Personal.AI order the ending
