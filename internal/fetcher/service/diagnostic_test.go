package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nemanja-m/mrhistory/internal/fetcher/core"
)

func TestParseDiagnostic(t *testing.T) {
	tests := []struct {
		name      string
		message   string
		wantTask  string
		wantCount int
		wantOK    bool
	}{
		{
			name:      "single failure",
			message:   "Task task_1443068695259_9143_m_000475 failed 1 times",
			wantTask:  "task_1443068695259_9143_m_000475",
			wantCount: 1,
			wantOK:    true,
		},
		{
			name:      "trailing text",
			message:   "Task task_1_2_r_000003 failed 4 times \nJob failed as tasks failed. failedMaps:0 failedReduces:1\n",
			wantTask:  "task_1_2_r_000003",
			wantCount: 4,
			wantOK:    true,
		},
		{
			name:      "non-breaking spaces",
			message:   "Task\u00a0task_1_2_m_000001\u00a0failed\u00a03\u00a0times\u00a0",
			wantTask:  "task_1_2_m_000001",
			wantCount: 3,
			wantOK:    true,
		},
		{
			name:      "multi-digit count",
			message:   "Task task_1_2_m_000001 failed 12 times",
			wantTask:  "task_1_2_m_000001",
			wantCount: 12,
			wantOK:    true,
		},
		{
			name:      "zero count still parses",
			message:   "Task task_1_2_m_000001 failed 0 times",
			wantTask:  "task_1_2_m_000001",
			wantCount: 0,
			wantOK:    true,
		},
		{
			name:    "application master failure",
			message: "Application application_1_2 failed 2 times due to AM Container exited with exitCode: 1",
		},
		{
			name:    "empty",
			message: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, count, ok := ParseDiagnostic(tt.message)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantTask, task)
			assert.Equal(t, tt.wantCount, count)
		})
	}
}

func TestDiagnosticExtractor_Extract(t *testing.T) {
	const (
		jobID   = "job_1443068695259_9143"
		message = "Task task_1443068695259_9143_m_000475 failed 1 times"
		trace   = "Error: java.lang.RuntimeException: boom\n\tat Mapper.map(Mapper.java:1)"
	)

	t.Run("returns first failed attempt's stack trace", func(t *testing.T) {
		client := newMockClient(nil)
		client.attempts = []core.AttemptSummary{
			{ID: "attempt_0", State: "KILLED", Diagnostics: "killed"},
			{ID: "attempt_1", State: core.TaskStateFailed, Diagnostics: trace},
			{ID: "attempt_2", State: core.TaskStateFailed, Diagnostics: "Error: later"},
		}

		got, ok := NewDiagnosticExtractor(newMockLogger()).Extract(context.Background(), client, jobID, message)
		require.True(t, ok)
		assert.Equal(t, trace, got)
		assert.Equal(t, 1, client.calls["task_attempts"])
	})

	t.Run("no pattern", func(t *testing.T) {
		client := newMockClient(nil)
		logger := newMockLogger()

		_, ok := NewDiagnosticExtractor(logger).Extract(context.Background(), client, jobID, "AM container failed")
		assert.False(t, ok)
		assert.Zero(t, client.calls["task_attempts"])
		assert.True(t, logger.has("info", "Job diagnostics name no failed task"))
	})

	t.Run("zero count is logged and absent", func(t *testing.T) {
		client := newMockClient(nil)
		logger := newMockLogger()

		_, ok := NewDiagnosticExtractor(logger).Extract(context.Background(), client, jobID,
			"Task task_1443068695259_9143_m_000475 failed 0 times")
		assert.False(t, ok)
		assert.Zero(t, client.calls["task_attempts"])
		assert.True(t, logger.has("warn", "Job diagnostics report a task that failed zero times"))
	})

	t.Run("first failed attempt without stack trace", func(t *testing.T) {
		client := newMockClient(nil)
		client.attempts = []core.AttemptSummary{
			{ID: "attempt_0", State: core.TaskStateFailed, Diagnostics: "Container killed"},
			{ID: "attempt_1", State: core.TaskStateFailed, Diagnostics: trace},
		}

		_, ok := NewDiagnosticExtractor(newMockLogger()).Extract(context.Background(), client, jobID, message)
		assert.False(t, ok)
	})

	t.Run("no failed attempt", func(t *testing.T) {
		client := newMockClient(nil)
		client.attempts = []core.AttemptSummary{{ID: "attempt_0", State: core.TaskStateSucceeded}}

		_, ok := NewDiagnosticExtractor(newMockLogger()).Extract(context.Background(), client, jobID, message)
		assert.False(t, ok)
	})

	t.Run("remote error is absorbed", func(t *testing.T) {
		client := newMockClient(nil)
		client.attemptsErr = errors.New("connection reset")
		logger := newMockLogger()

		_, ok := NewDiagnosticExtractor(logger).Extract(context.Background(), client, jobID, message)
		assert.False(t, ok)
		assert.True(t, logger.has("warn", "Failed to fetch task attempts"))
	})
}
