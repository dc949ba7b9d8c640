package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"taskflow/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestApp_ShutdownDrainsBeforeClosingStores(t *testing.T) {
	started := make(chan struct{})
	var handled atomic.Bool

	a := New(&config.Config{}, zap.NewNop())
	a.server = &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		time.Sleep(200 * time.Millisecond)
		handled.Store(true)
		w.WriteHeader(http.StatusOK)
	})}

	var order []string
	var storeSawDrained bool
	a.onShutdown("postgres", func(context.Context) error {
		storeSawDrained = handled.Load()
		order = append(order, "postgres")
		return nil
	})
	a.onShutdown("redis", func(context.Context) error {
		order = append(order, "redis")
		return errors.New("already closed")
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = a.server.Serve(ln) }()

	respDone := make(chan int, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/slow")
		if err != nil {
			respDone <- 0
			return
		}
		resp.Body.Close()
		respDone <- resp.StatusCode
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = a.Shutdown(ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
	assert.True(t, storeSawDrained)
	assert.Equal(t, []string{"redis", "postgres"}, order)
	assert.Equal(t, http.StatusOK, <-respDone)
}

func TestApp_SignalShutdownIsSingleOperation(t *testing.T) {
	a := New(&config.Config{}, zap.NewNop())
	a.onShutdown("postgres", func(context.Context) error { return nil })
	a.onShutdown("redis", func(context.Context) error { return nil })

	ops := a.shutdownOperations()
	require.Len(t, ops, 1)
	assert.Contains(t, ops, "app")
}
