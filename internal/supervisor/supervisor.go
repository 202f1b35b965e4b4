// Package supervisor manages the lifecycle of the solargraph server process.
//
// The server is spawned in socket mode, where it picks a free port and
// announces it on standard output as "PORT=<n>". The supervisor scrapes
// that announcement from the merged stdout/stderr stream, after which the
// HTTP endpoint http://<host>:<port>/ is live until Stop.
package supervisor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/solargraph-ai/solarbridge/internal/event"
	"github.com/solargraph-ai/solarbridge/internal/logging"
	"github.com/solargraph-ai/solarbridge/internal/shutdown"
)

var portPattern = regexp.MustCompile(`PORT=(\d+)`)

// Config holds the supervised process configuration.
type Config struct {
	// Command is the server executable, already expanded.
	Command string
	// Args are the process arguments.
	Args []string
	// Host is the address the server listens on.
	Host string
	// StartupTimeout bounds the wait for the port announcement.
	StartupTimeout time.Duration
	// WaitReady probes the announced port until it accepts connections.
	WaitReady bool
}

// DefaultConfig returns the stock solargraph socket-mode configuration.
func DefaultConfig() Config {
	return Config{
		Command:        "solargraph",
		Args:           []string{"socket"},
		Host:           "localhost",
		StartupTimeout: 30 * time.Second,
	}
}

// Supervisor owns at most one server process at a time.
type Supervisor struct {
	cfg Config
	bus *event.Bus

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdout io.ReadCloser
	port   int

	deregister func()
}

// New creates a supervisor. When a coordinator is given, the supervisor
// registers its Stop as a shutdown hook and removes it again in Close.
// Both bus and coordinator may be nil.
func New(cfg Config, bus *event.Bus, coordinator *shutdown.Coordinator) *Supervisor {
	if cfg.Command == "" {
		cfg.Command = "solargraph"
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.StartupTimeout <= 0 {
		cfg.StartupTimeout = 30 * time.Second
	}

	s := &Supervisor{cfg: cfg, bus: bus}
	if coordinator != nil {
		s.deregister = coordinator.Register("solargraph-server", s.Stop)
	}
	return s
}

// Start spawns the server process and waits for its port announcement.
// Starting an already-started supervisor is a no-op success. The wait is
// bounded by ctx and by the configured startup timeout.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cmd != nil {
		s.mu.Unlock()
		return nil
	}

	cmd := exec.Command(s.cfg.Command, s.cfg.Args...)
	cmd.Env = os.Environ()
	// Stdin stays closed; the server is driven over HTTP only.
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.mu.Unlock()
		return &StartupError{Err: err}
	}
	cmd.Stderr = cmd.Stdout // merge stderr into the captured stream

	if err := cmd.Start(); err != nil {
		s.mu.Unlock()
		return &StartupError{Err: err}
	}

	// Publish the handle before the blocking read so a concurrent Stop
	// can kill the child and unblock the scanner.
	s.cmd = cmd
	s.stdout = stdout
	s.port = 0
	s.mu.Unlock()

	logging.Debug().Str("command", s.cfg.Command).Strs("args", s.cfg.Args).Msg("server process spawned")

	port, startErr := s.awaitPort(ctx, stdout)
	if startErr == nil && s.cfg.WaitReady {
		startErr = s.awaitReady(ctx, port)
	}
	if startErr != nil {
		s.abort(cmd, stdout)
		_ = cmd.Wait() // reap; the pipe is closed and the scanner has exited
		if s.bus != nil {
			s.bus.Publish(event.Event{
				Type: event.ServerFailed,
				Data: event.ServerFailedData{Output: startErr.Output, Error: startErr.Error()},
			})
		}
		return startErr
	}

	s.mu.Lock()
	if s.cmd != cmd {
		// Stopped while starting.
		s.mu.Unlock()
		return &StartupError{Err: fmt.Errorf("server stopped during startup")}
	}
	s.port = port
	s.mu.Unlock()

	// Keep the pipe drained and reap the child when it exits.
	go func() {
		_, _ = io.Copy(io.Discard, stdout)
		_ = cmd.Wait()
	}()

	logging.Info().Int("port", port).Msg("server started")
	if s.bus != nil {
		s.bus.Publish(event.Event{
			Type: event.ServerStarted,
			Data: event.ServerStartedData{Port: port, URL: s.URL()},
		})
	}
	return nil
}

type scanOutcome struct {
	port   int
	output string
	err    error
}

// awaitPort reads the merged output line by line until the port
// announcement appears, the stream ends, the timeout expires or ctx is
// canceled.
func (s *Supervisor) awaitPort(ctx context.Context, r io.Reader) (int, *StartupError) {
	outcome := make(chan scanOutcome, 1)
	go func() {
		scanner := bufio.NewScanner(r)
		var collected strings.Builder
		for scanner.Scan() {
			line := scanner.Text()
			if m := portPattern.FindStringSubmatch(line); m != nil {
				port, err := strconv.Atoi(m[1])
				outcome <- scanOutcome{port: port, err: err}
				return
			}
			collected.WriteString(line)
			collected.WriteString("\n")
		}
		outcome <- scanOutcome{output: collected.String()}
	}()

	timer := time.NewTimer(s.cfg.StartupTimeout)
	defer timer.Stop()

	select {
	case res := <-outcome:
		if res.err != nil {
			return 0, &StartupError{Output: res.output, Err: res.err}
		}
		if res.port == 0 {
			return 0, &StartupError{Output: res.output}
		}
		return res.port, nil
	case <-timer.C:
		return 0, &StartupError{Err: fmt.Errorf("no port announcement within %s", s.cfg.StartupTimeout)}
	case <-ctx.Done():
		return 0, &StartupError{Err: ctx.Err()}
	}
}

// awaitReady dials the announced port with exponential backoff until it
// accepts a connection.
func (s *Supervisor) awaitReady(ctx context.Context, port int) *StartupError {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(port))

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxElapsedTime = s.cfg.StartupTimeout

	err := backoff.Retry(func() error {
		conn, err := net.DialTimeout("tcp", addr, time.Second)
		if err != nil {
			return err
		}
		return conn.Close()
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return &StartupError{Err: fmt.Errorf("port %d not accepting connections: %w", port, err)}
	}
	return nil
}

// abort tears down a process that never finished starting. Unlike Stop
// it emits no stopped log or event; the server was never up. A concurrent
// Stop may already have cleared the state, in which case only the kill
// remains to do.
func (s *Supervisor) abort(cmd *exec.Cmd, stdout io.ReadCloser) {
	s.mu.Lock()
	if s.cmd == cmd {
		s.cmd = nil
		s.stdout = nil
		s.port = 0
	}
	s.mu.Unlock()

	_ = stdout.Close()
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}

// Stop terminates the server process. It is idempotent and safe to call
// concurrently with Start or from a shutdown hook.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	cmd := s.cmd
	stdout := s.stdout
	port := s.port
	s.cmd = nil
	s.stdout = nil
	s.port = 0
	s.mu.Unlock()

	if cmd == nil {
		return
	}

	if stdout != nil {
		_ = stdout.Close()
	}
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}

	logging.Info().Int("port", port).Msg("server stopped")
	if s.bus != nil {
		s.bus.Publish(event.Event{
			Type: event.ServerStopped,
			Data: event.ServerStoppedData{Port: port},
		})
	}
}

// Close deregisters the shutdown hook and stops the process.
func (s *Supervisor) Close() {
	if s.deregister != nil {
		s.deregister()
		s.deregister = nil
	}
	s.Stop()
}

// IsStarted reports whether a process handle and a port are both recorded.
func (s *Supervisor) IsStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmd != nil && s.port != 0
}

// Port returns the announced port, or 0 when not started.
func (s *Supervisor) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// URL returns the server base URL while started, "" otherwise.
func (s *Supervisor) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil || s.port == 0 {
		return ""
	}
	return fmt.Sprintf("http://%s:%d/", s.cfg.Host, s.port)
}
