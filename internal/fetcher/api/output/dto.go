package output

import (
	"time"
)

type RecordResponse struct {
	AppID       string    `json:"app_id"`
	JobID       string    `json:"job_id"`
	TrackingURL string    `json:"tracking_url"`
	Succeeded   bool      `json:"succeeded"`
	SubmitTime  time.Time `json:"submit_time"`
	StartTime   time.Time `json:"start_time"`
	FinishTime  time.Time `json:"finish_time"`
	Diagnostic  *string   `json:"diagnostic,omitempty"`

	Conf     map[string]string           `json:"conf"`
	Counters map[string]map[string]int64 `json:"counters"`

	Mappers  []TaskResponse `json:"mappers"`
	Reducers []TaskResponse `json:"reducers"`
	Sampled  bool           `json:"sampled"`
}

type TaskResponse struct {
	TaskID    string                      `json:"task_id"`
	AttemptID string                      `json:"attempt_id"`
	Counters  map[string]map[string]int64 `json:"counters"`
	TotalMs   int64                       `json:"total_ms"`
	ShuffleMs int64                       `json:"shuffle_ms"`
	SortMs    int64                       `json:"sort_ms"`
	StartTime time.Time                   `json:"start_time"`
	EndTime   time.Time                   `json:"finish_time"`
}

// ErrorResponse is written in place of a record when a fetch fails.
type ErrorResponse struct {
	AppID string `json:"app_id"`
	Error string `json:"error"`
}
