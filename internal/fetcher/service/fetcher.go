package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nemanja-m/mrhistory/internal/fetcher/core"
	"github.com/nemanja-m/mrhistory/internal/shared/logging"
	"github.com/nemanja-m/mrhistory/internal/shared/metrics"
)

var ErrUnsupportedState = errors.New("unsupported job state")

type fetcher struct {
	sampler   *Sampler
	extractor core.DiagnosticExtractor
	metrics   *metrics.Metrics
	logger    logging.Logger
}

type Option func(*fetcher)

func WithSampler(sampler *Sampler) Option {
	return func(f *fetcher) { f.sampler = sampler }
}

func WithExtractor(extractor core.DiagnosticExtractor) Option {
	return func(f *fetcher) { f.extractor = extractor }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(f *fetcher) { f.metrics = m }
}

// NewFetcher builds a fetcher configured by the fetcher parameter map. The
// returned value is shared by all workers; per-worker state lives in the
// HistoryClient passed to Fetch.
func NewFetcher(params map[string]string, logger logging.Logger, opts ...Option) core.Fetcher {
	f := &fetcher{logger: logger}
	for _, opt := range opts {
		opt(f)
	}
	if f.sampler == nil {
		f.sampler = NewSampler(SamplingEnabled(params), nil)
	}
	if f.extractor == nil {
		f.extractor = NewDiagnosticExtractor(logger)
	}
	return f
}

// Fetch assembles the record of a finished job. The client's session is
// offered a rotation once the fetch is over, whatever the outcome.
func (f *fetcher) Fetch(ctx context.Context, client core.HistoryClient, appID string) (record *core.ApplicationRecord, err error) {
	defer client.MaybeRotate()

	start := time.Now()
	defer func() {
		f.observe(record, err, time.Since(start))
	}()

	jobID, err := core.JobIDFromAppID(appID)
	if err != nil {
		return nil, err
	}
	logger := f.logger.With("app_id", appID, "job_id", jobID)

	conf, err := client.Conf(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("fetching conf of %s: %w", jobID, err)
	}

	job, err := client.Job(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("fetching job %s: %w", jobID, err)
	}

	rec := &core.ApplicationRecord{
		AppID:       appID,
		JobID:       jobID,
		TrackingURL: client.TrackingURL(jobID),
		SubmitTime:  job.SubmitTime,
		StartTime:   job.StartTime,
		FinishTime:  job.FinishTime,
		Conf:        conf,
	}

	switch job.State {
	case core.JobStateSucceeded:
		rec.Succeeded = true
		if err := f.fetchSucceeded(ctx, client, rec, logger); err != nil {
			return nil, err
		}
	case core.JobStateFailed:
		if diagnostic, ok := f.extractor.Extract(ctx, client, jobID, job.Diagnostics); ok {
			rec.Diagnostic = &diagnostic
		}
	default:
		return nil, fmt.Errorf("%w: job %s is %s", ErrUnsupportedState, jobID, job.State)
	}

	logger.Debug("Fetched job",
		"succeeded", rec.Succeeded,
		"mappers", len(rec.Mappers),
		"reducers", len(rec.Reducers),
		"sampled", rec.Sampled,
	)
	return rec, nil
}

func (f *fetcher) fetchSucceeded(ctx context.Context, client core.HistoryClient, rec *core.ApplicationRecord, logger logging.Logger) error {
	counters, err := client.JobCounters(ctx, rec.JobID)
	if err != nil {
		return fmt.Errorf("fetching counters of %s: %w", rec.JobID, err)
	}
	rec.Counters = counters

	tasks, err := client.Tasks(ctx, rec.JobID)
	if err != nil {
		return fmt.Errorf("fetching tasks of %s: %w", rec.JobID, err)
	}
	maps, reduces := partition(tasks)

	mapSample, mapsTruncated := f.sampler.Sample(maps)
	reduceSample, reducesTruncated := f.sampler.Sample(reduces)
	rec.Sampled = mapsTruncated || reducesTruncated
	if rec.Sampled {
		logger.Info("Sampling tasks",
			"mappers", len(mapSample),
			"reducers", len(reduceSample),
		)
	}
	if f.metrics != nil {
		f.metrics.TasksSampled.WithLabelValues("map").Add(float64(len(mapSample)))
		f.metrics.TasksSampled.WithLabelValues("reduce").Add(float64(len(reduceSample)))
	}

	if rec.Mappers, err = f.fetchTasks(ctx, client, rec.JobID, mapSample); err != nil {
		return err
	}
	if rec.Reducers, err = f.fetchTasks(ctx, client, rec.JobID, reduceSample); err != nil {
		return err
	}
	return nil
}

func (f *fetcher) fetchTasks(ctx context.Context, client core.HistoryClient, jobID string, tasks []core.TaskSummary) ([]*core.TaskRecord, error) {
	records := make([]*core.TaskRecord, 0, len(tasks))
	for _, t := range tasks {
		counters, err := client.TaskCounters(ctx, jobID, t.ID)
		if err != nil {
			return nil, fmt.Errorf("fetching counters of %s: %w", t.ID, err)
		}
		times, err := client.TaskAttemptTimes(ctx, jobID, t.ID, t.SuccessfulAttempt)
		if err != nil {
			return nil, fmt.Errorf("fetching attempt %s: %w", t.SuccessfulAttempt, err)
		}
		records = append(records, &core.TaskRecord{
			TaskID:    t.ID,
			AttemptID: t.SuccessfulAttempt,
			Type:      t.Type,
			Counters:  counters,
			Times:     times,
		})
	}
	return records, nil
}

func (f *fetcher) observe(rec *core.ApplicationRecord, err error, elapsed time.Duration) {
	if f.metrics == nil {
		return
	}
	outcome := "error"
	switch {
	case err != nil:
	case rec.Succeeded:
		outcome = "succeeded"
	default:
		outcome = "failed"
	}
	f.metrics.FetchesTotal.WithLabelValues(outcome).Inc()
	f.metrics.FetchDuration.Observe(elapsed.Seconds())
}
