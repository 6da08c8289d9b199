package service

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/nemanja-m/mrhistory/internal/fetcher/core"
	"github.com/nemanja-m/mrhistory/internal/shared/logging"
)

// DiagnosticPattern matches the job diagnostics line naming the task that
// failed the job, e.g. "Task task_1443068695259_9143_m_000475 failed 1 times".
// Whitespace may be non-breaking. Group 1 is the task id, group 2 the count.
const DiagnosticPattern = `Task[\s\x{00A0}]+([^\s\x{00A0}]+)[\s\x{00A0}]+failed[\s\x{00A0}]+([0-9]+)[\s\x{00A0}]+times`

const stackTracePrefix = "Error:"

var diagnosticRe = regexp.MustCompile(DiagnosticPattern)

// ParseDiagnostic finds the failing task id and its failure count in a job
// diagnostics message.
func ParseDiagnostic(message string) (taskID string, count int, ok bool) {
	m := diagnosticRe.FindStringSubmatch(message)
	if m == nil {
		return "", 0, false
	}
	count, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], count, true
}

type diagnosticExtractor struct {
	logger logging.Logger
}

func NewDiagnosticExtractor(logger logging.Logger) core.DiagnosticExtractor {
	return &diagnosticExtractor{logger: logger}
}

// Extract returns the stack trace of the first failed attempt of the task
// named in message. Every failure is logged and reported as absent.
func (e *diagnosticExtractor) Extract(ctx context.Context, client core.HistoryClient, jobID, message string) (string, bool) {
	taskID, count, ok := ParseDiagnostic(message)
	if !ok {
		// Usually the application master died during setup.
		e.logger.Info("Job diagnostics name no failed task", "job_id", jobID)
		return "", false
	}
	if count == 0 {
		e.logger.Warn("Job diagnostics report a task that failed zero times",
			"job_id", jobID,
			"task_id", taskID,
		)
		return "", false
	}

	attempts, err := client.TaskAttempts(ctx, jobID, taskID)
	if err != nil {
		e.logger.Warn("Failed to fetch task attempts",
			"job_id", jobID,
			"task_id", taskID,
			"error", err,
		)
		return "", false
	}

	for _, attempt := range attempts {
		if attempt.State != core.TaskStateFailed {
			continue
		}
		if !strings.HasPrefix(attempt.Diagnostics, stackTracePrefix) {
			e.logger.Info("Failed attempt carries no stack trace",
				"job_id", jobID,
				"attempt_id", attempt.ID,
			)
			return "", false
		}
		return attempt.Diagnostics, true
	}

	e.logger.Info("Failed task has no failed attempt", "job_id", jobID, "task_id", taskID)
	return "", false
}
