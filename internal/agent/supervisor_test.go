//go:build !windows

package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2811Yash/Voice-AI/internal/config"
	"github.com/2811Yash/Voice-AI/internal/pubsub"
)

// testConfig builds a supervisor config whose worker is an inline shell
// script.
func testConfig(script string) config.Config {
	cfg := config.Defaults()
	cfg.Worker.Command = "sh"
	cfg.Worker.Args = []string{"-c", script}
	cfg.Worker.StopGraceSeconds = 1
	cfg.Buffers.Logs = 50
	cfg.Buffers.Events = 20
	return cfg
}

// collectEvents merges a backlog with live channel reads until a terminal
// state event or the timeout is reached.
func collectEvents(t *testing.T, backlog []pubsub.Event[Event], sub *pubsub.Subscription[Event], timeout time.Duration) []Event {
	t.Helper()

	var out []Event
	for _, item := range backlog {
		out = append(out, item.Payload)
		if item.Payload.IsTerminal() {
			return out
		}
	}

	deadline := time.After(timeout)
	for {
		select {
		case item, ok := <-sub.Events():
			if !ok {
				return out
			}
			out = append(out, item.Payload)
			if item.Payload.IsTerminal() {
				return out
			}
		case <-deadline:
			t.Fatalf("timed out waiting for terminal event, got %v", out)
		}
	}
}

// collectLogs merges a backlog with live channel reads until the end
// sentinel or the timeout is reached.
func collectLogs(t *testing.T, backlog []pubsub.Event[LogLine], sub *pubsub.Subscription[LogLine], timeout time.Duration) []LogLine {
	t.Helper()

	var out []LogLine
	for _, item := range backlog {
		out = append(out, item.Payload)
		if item.Payload.End {
			return out
		}
	}

	deadline := time.After(timeout)
	for {
		select {
		case item, ok := <-sub.Events():
			if !ok {
				return out
			}
			out = append(out, item.Payload)
			if item.Payload.End {
				return out
			}
		case <-deadline:
			t.Fatalf("timed out waiting for end sentinel, got %v", out)
		}
	}
}

func waitForStatus(t *testing.T, s *Supervisor, want Status, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s.Status() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("status never became %s (still %s)", want, s.Status())
}

func TestSupervisor_ParsesWorkerOutput(t *testing.T) {
	s := New(testConfig(`
echo "TRANSCRIPT_USER: hello"
echo "plain log line"
echo "TRANSCRIPT_AGENT: hi!"
echo "AGENT_STATE: active"
echo ""
echo "TRANSCRIPT_USER:"
`), nil)

	pid, err := s.Start(context.Background(), StartConfig{})
	require.NoError(t, err)
	require.Greater(t, pid, 0)

	eventSub, eventBacklog := s.Events().Subscribe()
	defer s.Events().Unsubscribe(eventSub)
	logSub, logBacklog := s.Logs().Subscribe()
	defer s.Logs().Unsubscribe(logSub)

	events := collectEvents(t, eventBacklog, eventSub, 5*time.Second)
	require.Equal(t, []Event{
		{Type: EventTranscript, Role: RoleUser, Text: "hello"},
		{Type: EventTranscript, Role: RoleAgent, Text: "hi!"},
		{Type: EventState, State: "active"},
		{Type: EventState, State: "stopped"},
	}, events)

	logs := collectLogs(t, logBacklog, logSub, 5*time.Second)
	var texts []string
	for _, l := range logs[:len(logs)-1] {
		texts = append(texts, l.Text)
	}
	// Marker lines appear verbatim on the log stream too; the empty line
	// and the empty-payload suppression only affect the events stream.
	require.Equal(t, []string{
		"TRANSCRIPT_USER: hello",
		"plain log line",
		"TRANSCRIPT_AGENT: hi!",
		"AGENT_STATE: active",
		"TRANSCRIPT_USER:",
	}, texts)
	require.True(t, logs[len(logs)-1].End)

	waitForStatus(t, s, StatusStopped, 2*time.Second)
}

func TestSupervisor_DoubleStartRejected(t *testing.T) {
	s := New(testConfig("sleep 30"), nil)

	pid, err := s.Start(context.Background(), StartConfig{})
	require.NoError(t, err)

	_, err = s.Start(context.Background(), StartConfig{})
	require.ErrorIs(t, err, ErrAlreadyRunning)

	// Still exactly one worker with the original pid.
	require.Equal(t, pid, s.PID())
	require.Equal(t, StatusRunning, s.Status())

	require.NoError(t, s.Stop(context.Background()))
	waitForStatus(t, s, StatusStopped, 2*time.Second)
}

func TestSupervisor_StopWhenIdle(t *testing.T) {
	s := New(testConfig("true"), nil)

	err := s.Stop(context.Background())
	require.ErrorIs(t, err, ErrNotRunning)

	// No side effects: no history, no sentinel.
	assert.Empty(t, s.Logs().History())
	assert.Empty(t, s.Events().History())
	assert.Equal(t, StatusStopped, s.Status())
	assert.Equal(t, -1, s.PID())
}

func TestSupervisor_SpawnFailure(t *testing.T) {
	cfg := testConfig("")
	cfg.Worker.Command = "/nonexistent/worker-binary"
	s := New(cfg, nil)

	_, err := s.Start(context.Background(), StartConfig{})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrAlreadyRunning)
	assert.Equal(t, StatusStopped, s.Status())

	// A failed spawn must not poison later starts.
	s2 := New(testConfig("true"), nil)
	_, err = s2.Start(context.Background(), StartConfig{})
	require.NoError(t, err)
	waitForStatus(t, s2, StatusStopped, 2*time.Second)
}

func TestSupervisor_UnexpectedExitTerminatesStreams(t *testing.T) {
	s := New(testConfig(`echo "AGENT_STATE: active"; exit 3`), nil)

	_, err := s.Start(context.Background(), StartConfig{})
	require.NoError(t, err)

	eventSub, eventBacklog := s.Events().Subscribe()
	defer s.Events().Unsubscribe(eventSub)
	logSub, logBacklog := s.Logs().Subscribe()
	defer s.Logs().Unsubscribe(logSub)

	events := collectEvents(t, eventBacklog, eventSub, 5*time.Second)
	terminal := 0
	for _, e := range events {
		if e.IsTerminal() {
			terminal++
		}
	}
	require.Equal(t, 1, terminal, "exactly one terminal event")
	require.True(t, events[len(events)-1].IsTerminal())

	logs := collectLogs(t, logBacklog, logSub, 5*time.Second)
	require.True(t, logs[len(logs)-1].End)

	// Crash is reported as stopped externally.
	waitForStatus(t, s, StatusStopped, 2*time.Second)
}

func TestSupervisor_TerminalEventCarriesStoppedLabel(t *testing.T) {
	s := New(testConfig(`exit 0`), nil)

	_, err := s.Start(context.Background(), StartConfig{})
	require.NoError(t, err)

	eventSub, eventBacklog := s.Events().Subscribe()
	defer s.Events().Unsubscribe(eventSub)

	events := collectEvents(t, eventBacklog, eventSub, 5*time.Second)
	require.NotEmpty(t, events)

	last := events[len(events)-1]
	require.Equal(t, StateEvent(StateStopped), last)
	require.Equal(t, "stopped", last.State)
	require.True(t, last.IsTerminal())
}

func TestSupervisor_StopEscalatesToKill(t *testing.T) {
	// Worker ignores SIGTERM; the 1s grace must escalate to SIGKILL.
	s := New(testConfig(`trap "" TERM; while true; do sleep 0.2; done`), nil)

	_, err := s.Start(context.Background(), StartConfig{})
	require.NoError(t, err)

	// Give the shell a moment to install the trap.
	time.Sleep(100 * time.Millisecond)

	start := time.Now()
	require.NoError(t, s.Stop(context.Background()))
	elapsed := time.Since(start)

	require.GreaterOrEqual(t, elapsed, time.Second, "should have waited out the grace period")
	require.Less(t, elapsed, 5*time.Second, "kill should settle promptly after escalation")
	waitForStatus(t, s, StatusStopped, 2*time.Second)
}

func TestSupervisor_RestartResetsHistoryAndEvictsSubscribers(t *testing.T) {
	s := New(testConfig(`echo "first run line"`), nil)

	_, err := s.Start(context.Background(), StartConfig{})
	require.NoError(t, err)
	waitForStatus(t, s, StatusStopped, 5*time.Second)
	require.NotEmpty(t, s.Logs().History())

	staleSub, _ := s.Logs().Subscribe()

	_, err = s.Start(context.Background(), StartConfig{})
	require.NoError(t, err)

	// The old subscriber was evicted by the reset.
	evicted := false
	deadline := time.After(2 * time.Second)
	for !evicted {
		select {
		case _, ok := <-staleSub.Events():
			if !ok {
				evicted = true
			}
		case <-deadline:
			t.Fatal("stale subscriber was not evicted on restart")
		}
	}

	waitForStatus(t, s, StatusStopped, 5*time.Second)

	// Only the second run's line plus its sentinel are in history; the
	// first run's history did not survive the restart.
	history := s.Logs().History()
	require.Len(t, history, 2)
	require.Equal(t, "first run line", history[0].Payload.Text)
	require.True(t, history[1].Payload.End)
}

func TestSupervisor_DefaultsInjectedIntoEnvironment(t *testing.T) {
	s := New(testConfig(`echo "voice=$AGENT_VOICE model=$AGENT_MODEL"`), nil)

	_, err := s.Start(context.Background(), StartConfig{})
	require.NoError(t, err)

	logSub, logBacklog := s.Logs().Subscribe()
	defer s.Logs().Unsubscribe(logSub)

	logs := collectLogs(t, logBacklog, logSub, 5*time.Second)
	require.Contains(t, logs[0].Text, "voice=Puck")
	require.Contains(t, logs[0].Text, "model=gemini-2.5-flash-native-audio-preview-12-2025")
	waitForStatus(t, s, StatusStopped, 2*time.Second)
}

type fakeRecorder struct {
	startCalls int
	endCalls   int
	lastID     string
	crashed    bool
}

func (f *fakeRecorder) RunStarted(_ context.Context, _, _ string, pid int) (string, error) {
	f.startCalls++
	f.lastID = "run-1"
	return f.lastID, nil
}

func (f *fakeRecorder) RunEnded(_ context.Context, id string, crashed bool) error {
	f.endCalls++
	f.crashed = crashed
	return nil
}

func TestSupervisor_RecordsRuns(t *testing.T) {
	rec := &fakeRecorder{}
	s := New(testConfig("exit 1"), rec)

	_, err := s.Start(context.Background(), StartConfig{})
	require.NoError(t, err)
	waitForStatus(t, s, StatusStopped, 5*time.Second)

	require.Equal(t, 1, rec.startCalls)
	require.Equal(t, 1, rec.endCalls)
	require.True(t, rec.crashed, "unrequested exit is recorded as a crash")
}
