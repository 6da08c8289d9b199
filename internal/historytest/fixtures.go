package historytest

import (
	"fmt"
	"strings"
)

const (
	taskGroup = "org.apache.hadoop.mapreduce.TaskCounter"
	fsGroup   = "org.apache.hadoop.mapreduce.FileSystemCounter"

	baseTime = int64(1443068695259)
)

// JobID turns a cluster timestamp and sequence number into a job id.
func JobID(cluster int64, seq int) string {
	return fmt.Sprintf("job_%d_%04d", cluster, seq)
}

// AppID is the YARN application id of the job with the same timestamp and
// sequence number.
func AppID(cluster int64, seq int) string {
	return fmt.Sprintf("application_%d_%04d", cluster, seq)
}

func taskID(jobID, kind string, n int) string {
	return fmt.Sprintf("task_%s_%s_%06d", strings.TrimPrefix(jobID, "job_"), kind, n)
}

func attemptID(task string, n int) string {
	return fmt.Sprintf("attempt_%s_%d", strings.TrimPrefix(task, "task_"), n)
}

// NewSucceededJob builds a finished job with the given number of successful
// map and reduce tasks. Every task carries one counter group whose values
// derive from the task index.
func NewSucceededJob(jobID string, maps, reduces int) *Job {
	job := &Job{
		ID:         jobID,
		Name:       "word count",
		User:       "hadoop",
		State:      "SUCCEEDED",
		SubmitTime: baseTime,
		StartTime:  baseTime + 1_000,
		FinishTime: baseTime + 600_000,
		Conf: map[string]string{
			"mapreduce.job.name":      "word count",
			"mapreduce.job.queuename": "default",
			"mapreduce.job.reduces":   fmt.Sprint(reduces),
		},
		Counters: []CounterGroup{
			{Name: fsGroup, Counters: []Counter{
				{Name: "HDFS_BYTES_READ", Value: int64(maps) * 1024},
				{Name: "HDFS_BYTES_WRITTEN", Value: int64(reduces) * 512},
			}},
			{Name: taskGroup, Counters: []Counter{
				{Name: "MAP_INPUT_RECORDS", Value: int64(maps) * 100},
			}},
		},
	}
	for i := range maps {
		job.Tasks = append(job.Tasks, succeededTask(jobID, "MAP", "m", i))
	}
	for i := range reduces {
		job.Tasks = append(job.Tasks, succeededTask(jobID, "REDUCE", "r", i))
	}
	return job
}

func succeededTask(jobID, typ, kind string, n int) *Task {
	id := taskID(jobID, kind, n)
	attempt := &Attempt{
		ID:         attemptID(id, 0),
		Type:       typ,
		State:      "SUCCEEDED",
		StartTime:  baseTime + 2_000 + int64(n)*10,
		FinishTime: baseTime + 12_000 + int64(n)*10,
	}
	if typ == "REDUCE" {
		attempt.ShuffleTime = 4_000
		attempt.MergeTime = 500
	}
	return &Task{
		ID:                id,
		Type:              typ,
		State:             "SUCCEEDED",
		SuccessfulAttempt: attempt.ID,
		Counters: []CounterGroup{
			{Name: taskGroup, Counters: []Counter{
				{Name: "SPILLED_RECORDS", Value: int64(n)},
				{Name: "CPU_MILLISECONDS", Value: int64(n) * 10},
			}},
		},
		Attempts: []*Attempt{attempt},
	}
}

// NewFailedJob builds a job that failed because its first map task failed
// attempts times. The first attempt's diagnostics are diagnostic; later
// attempts carry a generic error.
func NewFailedJob(jobID string, attempts int, diagnostic string) *Job {
	job := NewSucceededJob(jobID, 2, 0)
	job.State = "FAILED"

	failing := job.Tasks[0]
	failing.State = "FAILED"
	failing.SuccessfulAttempt = ""
	failing.Attempts = nil
	for i := range attempts {
		at := &Attempt{
			ID:          attemptID(failing.ID, i),
			Type:        "MAP",
			State:       "FAILED",
			StartTime:   baseTime + 2_000,
			FinishTime:  baseTime + 3_000,
			Diagnostics: "Error: java.io.IOException: retrying",
		}
		if i == 0 {
			at.Diagnostics = diagnostic
		}
		failing.Attempts = append(failing.Attempts, at)
	}

	job.Diagnostics = fmt.Sprintf("Task %s failed %d times \nTask failed %s\n"+
		"Job failed as tasks failed. failedMaps:1 failedReduces:0\n", failing.ID, attempts, failing.ID)
	return job
}

// TaskIDs returns the ids of job's tasks of the given type.
func TaskIDs(job *Job, typ string) []string {
	var ids []string
	for _, t := range job.Tasks {
		if t.Type == typ {
			ids = append(ids, t.ID)
		}
	}
	return ids
}
