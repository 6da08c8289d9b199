package history

import (
	"fmt"
	"time"

	"github.com/nemanja-m/mrhistory/internal/fetcher/core"
)

// Decoding turns wire payloads into core values. Required fields that are
// absent fail with ErrDecode; list containers that are absent decode as
// empty, since the server omits them for jobs without entries.

func decodeJob(r *jobResponse) (*core.JobSummary, error) {
	if r.Job == nil {
		return nil, missingField(ResourceJob, "job")
	}
	j := r.Job
	switch {
	case j.State == nil:
		return nil, missingField(ResourceJob, "job.state")
	case j.SubmitTime == nil:
		return nil, missingField(ResourceJob, "job.submitTime")
	case j.StartTime == nil:
		return nil, missingField(ResourceJob, "job.startTime")
	case j.FinishTime == nil:
		return nil, missingField(ResourceJob, "job.finishTime")
	}

	return &core.JobSummary{
		ID:          j.ID,
		State:       core.JobState(*j.State),
		SubmitTime:  millis(*j.SubmitTime),
		StartTime:   millis(*j.StartTime),
		FinishTime:  millis(*j.FinishTime),
		Diagnostics: j.Diagnostics,
	}, nil
}

func decodeConf(r *confResponse) (map[string]string, error) {
	if r.Conf == nil {
		return nil, missingField(ResourceConf, "conf")
	}
	conf := make(map[string]string, len(r.Conf.Property))
	for i, p := range r.Conf.Property {
		if p.Name == nil || p.Value == nil {
			return nil, missingField(ResourceConf, fmt.Sprintf("conf.property[%d]", i))
		}
		conf[*p.Name] = *p.Value
	}
	return conf, nil
}

func decodeJobCounters(r *jobCountersResponse) (*core.CounterTable, error) {
	if r.JobCounters == nil {
		return nil, missingField(ResourceCounters, "jobCounters")
	}
	table := core.NewCounterTable()
	for i, group := range r.JobCounters.CounterGroup {
		if group.CounterGroupName == nil {
			return nil, missingField(ResourceCounters, fmt.Sprintf("counterGroup[%d].counterGroupName", i))
		}
		for j, c := range group.Counter {
			if c.Name == nil || c.TotalCounterValue == nil {
				return nil, missingField(ResourceCounters, fmt.Sprintf("counterGroup[%d].counter[%d]", i, j))
			}
			table.Set(*group.CounterGroupName, *c.Name, *c.TotalCounterValue)
		}
	}
	return table, nil
}

func decodeTaskCounters(r *taskCountersResponse) (*core.CounterTable, error) {
	if r.JobTaskCounters == nil {
		return nil, missingField(ResourceTaskCounters, "jobTaskCounters")
	}
	table := core.NewCounterTable()
	for i, group := range r.JobTaskCounters.TaskCounterGroup {
		if group.CounterGroupName == nil {
			return nil, missingField(ResourceTaskCounters, fmt.Sprintf("taskCounterGroup[%d].counterGroupName", i))
		}
		for j, c := range group.Counter {
			if c.Name == nil || c.Value == nil {
				return nil, missingField(ResourceTaskCounters, fmt.Sprintf("taskCounterGroup[%d].counter[%d]", i, j))
			}
			table.Set(*group.CounterGroupName, *c.Name, *c.Value)
		}
	}
	return table, nil
}

func decodeTasks(r *tasksResponse) ([]core.TaskSummary, error) {
	if r.Tasks == nil {
		return nil, nil
	}
	tasks := make([]core.TaskSummary, 0, len(r.Tasks.Task))
	for i, t := range r.Tasks.Task {
		switch {
		case t.ID == nil:
			return nil, missingField(ResourceTasks, fmt.Sprintf("task[%d].id", i))
		case t.Type == nil:
			return nil, missingField(ResourceTasks, fmt.Sprintf("task[%d].type", i))
		case t.State == nil:
			return nil, missingField(ResourceTasks, fmt.Sprintf("task[%d].state", i))
		}
		state := core.TaskState(*t.State)
		if state == core.TaskStateSucceeded && t.SuccessfulAttempt == "" {
			return nil, missingField(ResourceTasks, fmt.Sprintf("task[%d].successfulAttempt", i))
		}
		tasks = append(tasks, core.TaskSummary{
			ID:                *t.ID,
			Type:              core.TaskType(*t.Type),
			State:             state,
			SuccessfulAttempt: t.SuccessfulAttempt,
		})
	}
	return tasks, nil
}

// decodeAttemptTimes reads the timing of one attempt. Map attempts carry no
// shuffle or merge phase; every other type must report both.
func decodeAttemptTimes(r *taskAttemptResponse) (core.TaskTimes, error) {
	a := r.TaskAttempt
	if a == nil {
		return core.TaskTimes{}, missingField(ResourceTaskAttempt, "taskAttempt")
	}
	switch {
	case a.Type == nil:
		return core.TaskTimes{}, missingField(ResourceTaskAttempt, "taskAttempt.type")
	case a.StartTime == nil:
		return core.TaskTimes{}, missingField(ResourceTaskAttempt, "taskAttempt.startTime")
	case a.FinishTime == nil:
		return core.TaskTimes{}, missingField(ResourceTaskAttempt, "taskAttempt.finishTime")
	}

	times := core.TaskTimes{
		Total:  time.Duration(*a.FinishTime-*a.StartTime) * time.Millisecond,
		Start:  millis(*a.StartTime),
		Finish: millis(*a.FinishTime),
	}
	if core.TaskType(*a.Type) == core.TaskTypeMap {
		return times, nil
	}

	switch {
	case a.ElapsedShuffleTime == nil:
		return core.TaskTimes{}, missingField(ResourceTaskAttempt, "taskAttempt.elapsedShuffleTime")
	case a.ElapsedMergeTime == nil:
		return core.TaskTimes{}, missingField(ResourceTaskAttempt, "taskAttempt.elapsedMergeTime")
	}
	times.Shuffle = time.Duration(*a.ElapsedShuffleTime) * time.Millisecond
	times.Sort = time.Duration(*a.ElapsedMergeTime) * time.Millisecond
	return times, nil
}

func decodeTaskAttempts(r *taskAttemptsResponse) ([]core.AttemptSummary, error) {
	if r.TaskAttempts == nil {
		return nil, nil
	}
	attempts := make([]core.AttemptSummary, 0, len(r.TaskAttempts.TaskAttempt))
	for i, a := range r.TaskAttempts.TaskAttempt {
		switch {
		case a.ID == nil:
			return nil, missingField(ResourceTaskAttempts, fmt.Sprintf("taskAttempt[%d].id", i))
		case a.State == nil:
			return nil, missingField(ResourceTaskAttempts, fmt.Sprintf("taskAttempt[%d].state", i))
		}
		attempts = append(attempts, core.AttemptSummary{
			ID:          *a.ID,
			State:       core.TaskState(*a.State),
			Diagnostics: a.Diagnostics,
		})
	}
	return attempts, nil
}

func millis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
