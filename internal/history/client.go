// Package history talks to the MapReduce job history server: it builds
// resource URLs, keeps one authenticated session per worker and decodes the
// JSON payloads into core values.
package history

import (
	"context"

	"github.com/nemanja-m/mrhistory/internal/fetcher/core"
)

var _ core.HistoryClient = (*Client)(nil)

// Client binds the shared URL builder to one worker's session.
type Client struct {
	urls    *URLBuilder
	session *Session
}

func NewClient(urls *URLBuilder, session *Session) *Client {
	return &Client{urls: urls, session: session}
}

func (c *Client) Session() *Session {
	return c.session
}

func (c *Client) Job(ctx context.Context, jobID string) (*core.JobSummary, error) {
	var resp jobResponse
	if err := c.session.GetJSON(ctx, c.urls.Job(jobID), &resp); err != nil {
		return nil, err
	}
	return decodeJob(&resp)
}

func (c *Client) Conf(ctx context.Context, jobID string) (map[string]string, error) {
	var resp confResponse
	if err := c.session.GetJSON(ctx, c.urls.Conf(jobID), &resp); err != nil {
		return nil, err
	}
	return decodeConf(&resp)
}

func (c *Client) JobCounters(ctx context.Context, jobID string) (*core.CounterTable, error) {
	var resp jobCountersResponse
	if err := c.session.GetJSON(ctx, c.urls.Counters(jobID), &resp); err != nil {
		return nil, err
	}
	return decodeJobCounters(&resp)
}

func (c *Client) Tasks(ctx context.Context, jobID string) ([]core.TaskSummary, error) {
	var resp tasksResponse
	if err := c.session.GetJSON(ctx, c.urls.Tasks(jobID), &resp); err != nil {
		return nil, err
	}
	return decodeTasks(&resp)
}

func (c *Client) TaskCounters(ctx context.Context, jobID, taskID string) (*core.CounterTable, error) {
	var resp taskCountersResponse
	if err := c.session.GetJSON(ctx, c.urls.TaskCounters(jobID, taskID), &resp); err != nil {
		return nil, err
	}
	return decodeTaskCounters(&resp)
}

func (c *Client) TaskAttemptTimes(ctx context.Context, jobID, taskID, attemptID string) (core.TaskTimes, error) {
	var resp taskAttemptResponse
	if err := c.session.GetJSON(ctx, c.urls.TaskAttempt(jobID, taskID, attemptID), &resp); err != nil {
		return core.TaskTimes{}, err
	}
	return decodeAttemptTimes(&resp)
}

func (c *Client) TaskAttempts(ctx context.Context, jobID, taskID string) ([]core.AttemptSummary, error) {
	var resp taskAttemptsResponse
	if err := c.session.GetJSON(ctx, c.urls.TaskAttempts(jobID, taskID), &resp); err != nil {
		return nil, err
	}
	return decodeTaskAttempts(&resp)
}

func (c *Client) TrackingURL(jobID string) string {
	return c.urls.TrackingURL(jobID)
}

func (c *Client) MaybeRotate() bool {
	return c.session.MaybeRotate()
}
