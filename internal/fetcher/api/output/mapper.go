package output

import (
	"github.com/nemanja-m/mrhistory/internal/fetcher/core"
)

func ToRecordResponse(rec *core.ApplicationRecord) RecordResponse {
	conf := rec.Conf
	if conf == nil {
		conf = map[string]string{}
	}
	return RecordResponse{
		AppID:       rec.AppID,
		JobID:       rec.JobID,
		TrackingURL: rec.TrackingURL,
		Succeeded:   rec.Succeeded,
		SubmitTime:  rec.SubmitTime,
		StartTime:   rec.StartTime,
		FinishTime:  rec.FinishTime,
		Diagnostic:  rec.Diagnostic,
		Conf:        conf,
		Counters:    toCounters(rec.Counters),
		Mappers:     toTaskResponses(rec.Mappers),
		Reducers:    toTaskResponses(rec.Reducers),
		Sampled:     rec.Sampled,
	}
}

func ToErrorResponse(appID string, err error) ErrorResponse {
	return ErrorResponse{AppID: appID, Error: err.Error()}
}

func toTaskResponses(tasks []*core.TaskRecord) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, TaskResponse{
			TaskID:    t.TaskID,
			AttemptID: t.AttemptID,
			Counters:  toCounters(t.Counters),
			TotalMs:   t.Times.Total.Milliseconds(),
			ShuffleMs: t.Times.Shuffle.Milliseconds(),
			SortMs:    t.Times.Sort.Milliseconds(),
			StartTime: t.Times.Start,
			EndTime:   t.Times.Finish,
		})
	}
	return out
}

func toCounters(table *core.CounterTable) map[string]map[string]int64 {
	out := make(map[string]map[string]int64)
	if table == nil {
		return out
	}
	for _, group := range table.Groups() {
		out[group] = table.Group(group)
	}
	return out
}
