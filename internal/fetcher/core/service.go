package core

import "context"

// HistoryClient reads job history resources on behalf of one worker. An
// implementation owns that worker's session and must not be shared between
// goroutines.
type HistoryClient interface {
	Job(ctx context.Context, jobID string) (*JobSummary, error)
	Conf(ctx context.Context, jobID string) (map[string]string, error)
	JobCounters(ctx context.Context, jobID string) (*CounterTable, error)
	Tasks(ctx context.Context, jobID string) ([]TaskSummary, error)
	TaskCounters(ctx context.Context, jobID, taskID string) (*CounterTable, error)
	TaskAttemptTimes(ctx context.Context, jobID, taskID, attemptID string) (TaskTimes, error)
	TaskAttempts(ctx context.Context, jobID, taskID string) ([]AttemptSummary, error)

	TrackingURL(jobID string) string
	// MaybeRotate refreshes the session credentials when they are due.
	MaybeRotate() bool
}

// Fetcher turns one application id into a complete ApplicationRecord.
type Fetcher interface {
	Fetch(ctx context.Context, client HistoryClient, appID string) (*ApplicationRecord, error)
}

// DiagnosticExtractor finds the stack trace of the task that failed a job.
// The second return value is false when none could be extracted.
type DiagnosticExtractor interface {
	Extract(ctx context.Context, client HistoryClient, jobID, message string) (string, bool)
}
