package main

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestServe_RunFailureIsReturned(t *testing.T) {
	err := serve(context.Background(), func() error {
		return errors.New("listen tcp :8080: bind: address already in use")
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "address already in use")
}

func TestServe_ShutdownIsClean(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	defer close(release)

	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, func() error {
			<-release
			return http.ErrServerClosed
		})
	}()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
