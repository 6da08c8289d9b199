package service

import (
	"context"
	"sync"

	"github.com/nemanja-m/mrhistory/internal/fetcher/core"
	"github.com/nemanja-m/mrhistory/internal/shared/logging"
)

type logEntry struct {
	level string
	msg   string
}

// mockLogger records messages so tests can assert on logged reasons
type mockLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func newMockLogger() *mockLogger {
	return &mockLogger{}
}

func (m *mockLogger) record(level, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, logEntry{level: level, msg: msg})
}

func (m *mockLogger) Debug(msg string, args ...any) { m.record("debug", msg) }
func (m *mockLogger) Info(msg string, args ...any)  { m.record("info", msg) }
func (m *mockLogger) Warn(msg string, args ...any)  { m.record("warn", msg) }
func (m *mockLogger) Error(msg string, args ...any) { m.record("error", msg) }
func (m *mockLogger) Fatal(msg string, args ...any) { m.record("fatal", msg) }

func (m *mockLogger) With(args ...any) logging.Logger { return m }

func (m *mockLogger) has(level, msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}

// mockClient serves canned values and counts calls
type mockClient struct {
	job         *core.JobSummary
	jobErr      error
	conf        map[string]string
	counters    *core.CounterTable
	tasks       []core.TaskSummary
	attempts    []core.AttemptSummary
	attemptsErr error

	calls     map[string]int
	rotations int
}

func newMockClient(job *core.JobSummary) *mockClient {
	return &mockClient{
		job:      job,
		conf:     map[string]string{},
		counters: core.NewCounterTable(),
		calls:    make(map[string]int),
	}
}

func (c *mockClient) Job(ctx context.Context, jobID string) (*core.JobSummary, error) {
	c.calls["job"]++
	return c.job, c.jobErr
}

func (c *mockClient) Conf(ctx context.Context, jobID string) (map[string]string, error) {
	c.calls["conf"]++
	return c.conf, nil
}

func (c *mockClient) JobCounters(ctx context.Context, jobID string) (*core.CounterTable, error) {
	c.calls["counters"]++
	return c.counters, nil
}

func (c *mockClient) Tasks(ctx context.Context, jobID string) ([]core.TaskSummary, error) {
	c.calls["tasks"]++
	return c.tasks, nil
}

func (c *mockClient) TaskCounters(ctx context.Context, jobID, taskID string) (*core.CounterTable, error) {
	c.calls["task_counters"]++
	return core.NewCounterTable(), nil
}

func (c *mockClient) TaskAttemptTimes(ctx context.Context, jobID, taskID, attemptID string) (core.TaskTimes, error) {
	c.calls["task_attempt"]++
	return core.TaskTimes{}, nil
}

func (c *mockClient) TaskAttempts(ctx context.Context, jobID, taskID string) ([]core.AttemptSummary, error) {
	c.calls["task_attempts"]++
	return c.attempts, c.attemptsErr
}

func (c *mockClient) TrackingURL(jobID string) string {
	return "http://history:19888/jobhistory/job/" + jobID
}

func (c *mockClient) MaybeRotate() bool {
	c.rotations++
	return false
}
