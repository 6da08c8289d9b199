package core

import (
	"fmt"
	"strings"
	"time"
)

type JobState string

const (
	JobStateSucceeded JobState = "SUCCEEDED"
	JobStateFailed    JobState = "FAILED"
)

type TaskType string

const (
	TaskTypeMap    TaskType = "MAP"
	TaskTypeReduce TaskType = "REDUCE"
)

type TaskState string

const (
	TaskStateSucceeded TaskState = "SUCCEEDED"
	TaskStateFailed    TaskState = "FAILED"
)

// ApplicationRecord is the normalized view of one finished MapReduce job.
// It is built privately by the fetcher and never mutated after it is returned.
type ApplicationRecord struct {
	AppID       string
	JobID       string
	TrackingURL string

	SubmitTime time.Time
	StartTime  time.Time
	FinishTime time.Time

	Succeeded bool
	// Diagnostic is the failing task's stack trace. Only set for failed jobs,
	// and only when it could be extracted.
	Diagnostic *string

	Conf     map[string]string
	Counters *CounterTable

	Mappers  []*TaskRecord
	Reducers []*TaskRecord

	// Sampled reports that task collections were truncated, so aggregates
	// computed from them are approximate.
	Sampled bool
}

type TaskRecord struct {
	TaskID    string
	AttemptID string
	Type      TaskType
	Counters  *CounterTable
	Times     TaskTimes
}

// TaskTimes holds the execution timing of a task's winning attempt.
// Shuffle and Sort are zero for map tasks.
type TaskTimes struct {
	Total   time.Duration
	Shuffle time.Duration
	Sort    time.Duration
	Start   time.Time
	Finish  time.Time
}

// CounterTable maps (group, counter) pairs to values. Set overwrites,
// so the last write for a key wins.
type CounterTable struct {
	groups map[string]map[string]int64
}

func NewCounterTable() *CounterTable {
	return &CounterTable{groups: make(map[string]map[string]int64)}
}

func (c *CounterTable) Set(group, name string, value int64) {
	counters, ok := c.groups[group]
	if !ok {
		counters = make(map[string]int64)
		c.groups[group] = counters
	}
	counters[name] = value
}

func (c *CounterTable) Get(group, name string) (int64, bool) {
	value, ok := c.groups[group][name]
	return value, ok
}

func (c *CounterTable) Len() int {
	n := 0
	for _, counters := range c.groups {
		n += len(counters)
	}
	return n
}

func (c *CounterTable) Groups() []string {
	groups := make([]string, 0, len(c.groups))
	for group := range c.groups {
		groups = append(groups, group)
	}
	return groups
}

// Group returns a copy of the counters of one group.
func (c *CounterTable) Group(group string) map[string]int64 {
	out := make(map[string]int64, len(c.groups[group]))
	for name, value := range c.groups[group] {
		out[name] = value
	}
	return out
}

// JobIDFromAppID converts a YARN application id into the MapReduce job id
// served by the history server: application_1443068695259_9143 becomes
// job_1443068695259_9143.
func JobIDFromAppID(appID string) (string, error) {
	rest, ok := strings.CutPrefix(appID, "application_")
	if !ok || rest == "" {
		return "", fmt.Errorf("invalid application id: %q", appID)
	}
	return "job_" + rest, nil
}

// JobSummary is the job resource of the history server.
type JobSummary struct {
	ID          string
	State       JobState
	SubmitTime  time.Time
	StartTime   time.Time
	FinishTime  time.Time
	Diagnostics string
}

// TaskSummary is one entry of a job's task list.
type TaskSummary struct {
	ID                string
	Type              TaskType
	State             TaskState
	SuccessfulAttempt string
}

// AttemptSummary is one entry of a task's attempt list.
type AttemptSummary struct {
	ID          string
	State       TaskState
	Diagnostics string
}
