package agent

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/2811Yash/Voice-AI/internal/config"
	"github.com/2811Yash/Voice-AI/internal/log"
	"github.com/2811Yash/Voice-AI/internal/pubsub"
)

// Sentinel errors returned by the control operations.
var (
	ErrAlreadyRunning = errors.New("agent already running")
	ErrNotRunning     = errors.New("agent not running")
)

// runState tracks the worker lifecycle. Only the supervisor distinguishes
// crashed from stopped; external callers see both as stopped.
type runState int

const (
	stateNotStarted runState = iota
	stateRunning
	stateStopping
	stateStopped
	stateCrashed
)

// Status is the externally visible agent state.
type Status string

const (
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
)

// StartConfig carries the per-run parameters of a start request. Empty
// fields fall back to the configured worker defaults.
type StartConfig struct {
	Instructions string
	Voice        string
	Model        string
}

// SessionRecorder persists one record per agent run. Implementations must
// tolerate being called from supervisor goroutines.
type SessionRecorder interface {
	// RunStarted records a new run and returns its identifier.
	RunStarted(ctx context.Context, model, voice string, pid int) (string, error)
	// RunEnded finalizes the record when the worker exits.
	RunEnded(ctx context.Context, id string, crashed bool) error
}

// Supervisor owns the single worker process and both broadcast brokers.
// Exactly one worker may be running at a time; a Start while one is
// running is rejected, never queued.
type Supervisor struct {
	cfg      config.Config
	logs     *pubsub.Broker[LogLine]
	events   *pubsub.Broker[Event]
	recorder SessionRecorder

	mu            sync.Mutex
	state         runState
	cmd           *exec.Cmd
	readers       sync.WaitGroup
	done          chan struct{}
	stopRequested bool
	runID         string
}

// New creates a supervisor with brokers sized from the buffer config.
// recorder may be nil to disable session persistence.
func New(cfg config.Config, recorder SessionRecorder) *Supervisor {
	return &Supervisor{
		cfg:      cfg,
		logs:     pubsub.NewBroker[LogLine](cfg.Buffers.Logs),
		events:   pubsub.NewBroker[Event](cfg.Buffers.Events),
		recorder: recorder,
	}
}

// Logs returns the broker carrying raw worker output lines.
func (s *Supervisor) Logs() *pubsub.Broker[LogLine] {
	return s.logs
}

// Events returns the broker carrying structured transcript/state events.
func (s *Supervisor) Events() *pubsub.Broker[Event] {
	return s.events
}

// Status reports running while the worker process is alive (including a
// stop in progress) and stopped otherwise.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateRunning || s.state == stateStopping {
		return StatusRunning
	}
	return StatusStopped
}

// PID returns the worker's process ID, or -1 when no worker is running.
func (s *Supervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil || s.cmd.Process == nil {
		return -1
	}
	return s.cmd.Process.Pid
}

// Start spawns the worker process. Returns ErrAlreadyRunning (with no
// side effects) when a worker is already alive. On success both brokers
// have been reset: history does not survive across runs, and subscribers
// from the previous run have been evicted.
func (s *Supervisor) Start(ctx context.Context, sc StartConfig) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateRunning || s.state == stateStopping {
		return 0, ErrAlreadyRunning
	}

	if sc.Instructions == "" {
		sc.Instructions = s.cfg.Worker.DefaultInstructions
	}
	if sc.Voice == "" {
		sc.Voice = s.cfg.Worker.DefaultVoice
	}
	if sc.Model == "" {
		sc.Model = s.cfg.Worker.DefaultModel
	}

	// Deliberately not CommandContext: the worker must outlive the
	// request context that started it.
	// #nosec G204 -- command and args come from the daemon's own config
	cmd := exec.Command(s.cfg.Worker.Command, s.cfg.Worker.Args...)
	cmd.Dir = s.cfg.Worker.WorkDir
	cmd.Env = append(os.Environ(),
		"AGENT_INSTRUCTIONS="+sc.Instructions,
		"AGENT_VOICE="+sc.Voice,
		"AGENT_MODEL="+sc.Model,
	)
	setProcGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return 0, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	s.logs.Reset()
	s.events.Reset()

	if err := cmd.Start(); err != nil {
		log.ErrorErr(log.CatAgent, "Failed to start worker", err, "command", s.cfg.Worker.Command)
		return 0, fmt.Errorf("failed to start worker: %w", err)
	}

	pid := cmd.Process.Pid
	log.Info(log.CatAgent, "Worker started",
		"pid", pid, "model", sc.Model, "voice", sc.Voice)

	s.cmd = cmd
	s.state = stateRunning
	s.stopRequested = false
	s.done = make(chan struct{})
	s.runID = ""

	if s.recorder != nil {
		id, err := s.recorder.RunStarted(ctx, sc.Model, sc.Voice, pid)
		if err != nil {
			log.ErrorErr(log.CatAgent, "Failed to record run start", err)
		} else {
			s.runID = id
		}
	}

	s.readers.Add(2)
	go s.readStdout(stdout)
	go s.readStderr(stderr)
	go s.waitForExit(cmd)

	return pid, nil
}

// Stop requests graceful termination and waits up to the configured grace
// period before killing the worker's process group. Returns ErrNotRunning
// (with no side effects) when no worker is alive. A termination timeout is
// recovered locally by escalating; it is not surfaced to the caller.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state != stateRunning {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.state = stateStopping
	s.stopRequested = true
	cmd := s.cmd
	done := s.done
	s.mu.Unlock()

	log.Info(log.CatAgent, "Stopping worker", "pid", cmd.Process.Pid)
	if err := terminate(cmd); err != nil {
		// Process may already be gone; the exit path below settles it.
		log.Debug(log.CatAgent, "terminate failed", "error", err)
	}

	grace := s.cfg.Worker.StopGrace()
	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		log.Warn(log.CatAgent, "Graceful stop timed out, killing worker",
			"pid", cmd.Process.Pid, "grace", grace)
		if err := forceKill(cmd); err != nil {
			log.Debug(log.CatAgent, "kill failed", "error", err)
		}
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close shuts down the supervisor: stops a running worker and closes both
// brokers. Used during daemon shutdown.
func (s *Supervisor) Close(ctx context.Context) error {
	err := s.Stop(ctx)
	if errors.Is(err, ErrNotRunning) {
		err = nil
	}
	s.logs.Close()
	s.events.Close()
	return err
}

// readStdout is the blocking read loop over the worker's stdout: the
// reader bridge. Every non-empty line is published verbatim to the logs
// broker; marker lines additionally produce a structured event. Publish
// never blocks, so a slow subscriber can never stall this loop (a stalled
// reader would eventually block the worker itself once its stdout buffer
// fills).
func (s *Supervisor) readStdout(r io.ReadCloser) {
	defer s.readers.Done()

	scanner := bufio.NewScanner(r)
	// Increase buffer size for large outputs (64KB initial, 1MB max)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if line == "" {
			continue
		}

		s.logs.Publish(LogLine{Text: line})

		if event, ok := ParseLine(line); ok {
			s.events.Publish(event)
		}
	}

	if err := scanner.Err(); err != nil {
		log.Debug(log.CatAgent, "stdout scanner error", "error", err)
	}
}

// readStderr forwards worker stderr to the logs broker only.
func (s *Supervisor) readStderr(r io.ReadCloser) {
	defer s.readers.Done()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if line == "" {
			continue
		}
		s.logs.Publish(LogLine{Text: line})
	}
	if err := scanner.Err(); err != nil {
		log.Debug(log.CatAgent, "stderr scanner error", "error", err)
	}
}

// waitForExit settles the run once the worker exits, from any cause.
// Readers must drain before cmd.Wait so the pipes are not closed under
// them. The terminal events are published before the state flips, while
// holding the supervisor lock, so a concurrent Start cannot reset the
// brokers in between.
func (s *Supervisor) waitForExit(cmd *exec.Cmd) {
	s.readers.Wait()
	err := cmd.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	crashed := !s.stopRequested
	if err != nil {
		log.Info(log.CatAgent, "Worker exited", "error", err, "requested", s.stopRequested)
	} else {
		log.Info(log.CatAgent, "Worker exited cleanly", "requested", s.stopRequested)
	}

	// Terminal items go through the brokers so that late subscribers
	// still find them in the backlog.
	s.logs.Publish(LogLine{End: true})
	s.events.Publish(StateEvent(StateStopped))

	if s.recorder != nil && s.runID != "" {
		if rerr := s.recorder.RunEnded(context.Background(), s.runID, crashed); rerr != nil {
			log.ErrorErr(log.CatAgent, "Failed to record run end", rerr)
		}
	}

	if crashed {
		s.state = stateCrashed
	} else {
		s.state = stateStopped
	}
	s.cmd = nil
	close(s.done)
}
