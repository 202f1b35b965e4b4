package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solargraph-ai/solarbridge/internal/event"
	"github.com/solargraph-ai/solarbridge/internal/shutdown"
)

// fakeServer builds a Config that runs a shell script in place of the
// real solargraph binary.
func fakeServer(t *testing.T, script string) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Command = "sh"
	cfg.Args = []string{"-c", script}
	cfg.StartupTimeout = 5 * time.Second
	return cfg
}

func TestStartDiscoversPort(t *testing.T) {
	s := New(fakeServer(t, "echo Booting...; echo PORT=5555; sleep 60"), nil, nil)
	defer s.Stop()

	require.NoError(t, s.Start(context.Background()))

	assert.True(t, s.IsStarted())
	assert.Equal(t, 5555, s.Port())
	assert.Equal(t, "http://localhost:5555/", s.URL())
}

func TestStartIgnoresPreambleLines(t *testing.T) {
	s := New(fakeServer(t, "echo one; echo two; echo three; echo PORT=4567; sleep 60"), nil, nil)
	defer s.Stop()

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 4567, s.Port())
}

func TestStartCapturesStderr(t *testing.T) {
	s := New(fakeServer(t, "echo PORT=4568 1>&2; sleep 60"), nil, nil)
	defer s.Stop()

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 4568, s.Port())
}

func TestStartFailsOnEOF(t *testing.T) {
	s := New(fakeServer(t, "echo some diagnostic; echo more output"), nil, nil)

	err := s.Start(context.Background())
	require.Error(t, err)

	var startupErr *StartupError
	require.True(t, errors.As(err, &startupErr))
	assert.Contains(t, startupErr.Output, "some diagnostic")
	assert.Contains(t, startupErr.Output, "more output")
	assert.False(t, s.IsStarted())
	assert.Equal(t, "", s.URL())
}

func TestStartFailsOnTimeout(t *testing.T) {
	cfg := fakeServer(t, "sleep 60")
	cfg.StartupTimeout = 100 * time.Millisecond
	s := New(cfg, nil, nil)
	defer s.Stop()

	err := s.Start(context.Background())
	require.Error(t, err)

	var startupErr *StartupError
	require.True(t, errors.As(err, &startupErr))
	assert.False(t, s.IsStarted())
}

func TestStartFailsOnCanceledContext(t *testing.T) {
	s := New(fakeServer(t, "sleep 60"), nil, nil)
	defer s.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Start(ctx)
	require.Error(t, err)
	assert.False(t, s.IsStarted())
}

func TestStartFailsOnMissingBinary(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Command = "/nonexistent/solargraph"
	s := New(cfg, nil, nil)

	err := s.Start(context.Background())
	require.Error(t, err)

	var startupErr *StartupError
	assert.True(t, errors.As(err, &startupErr))
}

func TestStartTwiceIsNoop(t *testing.T) {
	s := New(fakeServer(t, "echo PORT=5001; sleep 60"), nil, nil)
	defer s.Stop()

	require.NoError(t, s.Start(context.Background()))
	port := s.Port()

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, port, s.Port(), "second start must not respawn")
}

func TestStopWhenNotStarted(t *testing.T) {
	s := New(DefaultConfig(), nil, nil)
	s.Stop()
	s.Stop()
	assert.False(t, s.IsStarted())
}

func TestStopClearsState(t *testing.T) {
	s := New(fakeServer(t, "echo PORT=5002; sleep 60"), nil, nil)
	require.NoError(t, s.Start(context.Background()))

	s.Stop()
	s.Stop() // idempotent

	assert.False(t, s.IsStarted())
	assert.Equal(t, 0, s.Port())
	assert.Equal(t, "", s.URL())
}

func TestRestartAfterStop(t *testing.T) {
	s := New(fakeServer(t, "echo PORT=5003; sleep 60"), nil, nil)
	require.NoError(t, s.Start(context.Background()))
	s.Stop()

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()
	assert.True(t, s.IsStarted())
}

func TestShutdownHookStopsServer(t *testing.T) {
	co := shutdown.New()
	s := New(fakeServer(t, "echo PORT=5004; sleep 60"), nil, co)
	require.NoError(t, s.Start(context.Background()))

	co.Trigger()

	assert.False(t, s.IsStarted())
}

func TestCloseDeregistersHook(t *testing.T) {
	co := shutdown.New()
	s := New(fakeServer(t, "echo PORT=5005; sleep 60"), nil, co)
	require.NoError(t, s.Start(context.Background()))

	s.Close()
	assert.False(t, s.IsStarted())

	// Hook is gone; triggering must not panic or double-stop.
	co.Trigger()
}

func TestFailedStartPublishesOnlyFailedEvent(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()

	var stopped int32
	bus.Subscribe(event.ServerStopped, func(event.Event) {
		atomic.AddInt32(&stopped, 1)
	})

	failed := make(chan event.Event, 1)
	bus.Subscribe(event.ServerFailed, func(e event.Event) {
		failed <- e
	})

	s := New(fakeServer(t, "echo no port here"), bus, nil)
	require.Error(t, s.Start(context.Background()))

	select {
	case <-failed:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the failed event")
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&stopped),
		"a server that never came up must not report stopped")
	assert.False(t, s.IsStarted())
}

func TestStartupErrorMessage(t *testing.T) {
	err := &StartupError{Output: "boom\n"}
	assert.Equal(t, "failed to start server:\nboom\n", err.Error())

	err = &StartupError{}
	assert.Equal(t, "failed to start server", err.Error())

	err = &StartupError{Err: fmt.Errorf("no port announcement within 30s")}
	assert.Contains(t, err.Error(), "no port announcement")
}
