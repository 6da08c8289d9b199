package history

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	restRootPath = "/ws/v1/history/mapreduce/jobs"
	webJobPath   = "/jobhistory/job"
)

// Resource names one sub-resource of the REST hierarchy. It doubles as the
// metrics label for requests against it.
type Resource string

const (
	ResourceRoot         Resource = "root"
	ResourceJob          Resource = "job"
	ResourceConf         Resource = "conf"
	ResourceCounters     Resource = "counters"
	ResourceTasks        Resource = "tasks"
	ResourceTaskCounters Resource = "task_counters"
	ResourceTaskAttempts Resource = "task_attempts"
	ResourceTaskAttempt  Resource = "task_attempt"
)

type Endpoint struct {
	Resource Resource
	URL      *url.URL
}

func (e Endpoint) String() string {
	return e.URL.String()
}

// URLBuilder maps job, task and attempt ids to addresses under the
// history server's REST root. It holds no mutable state and can be shared
// between workers.
type URLBuilder struct {
	base *url.URL
	root *url.URL
}

// NewURLBuilder parses addr, either host:port or a full http(s) URL.
func NewURLBuilder(addr string) (*URLBuilder, error) {
	raw := strings.TrimSpace(addr)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidAddress, base.Scheme)
	}
	if base.Host == "" || base.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host in %q", ErrInvalidAddress, addr)
	}
	base.Path = strings.TrimSuffix(base.Path, "/")
	base.RawQuery = ""
	base.Fragment = ""

	return &URLBuilder{
		base: base,
		root: base.JoinPath(restRootPath),
	}, nil
}

func (b *URLBuilder) Root() Endpoint {
	return Endpoint{Resource: ResourceRoot, URL: b.root}
}

func (b *URLBuilder) Job(jobID string) Endpoint {
	return b.endpoint(ResourceJob, jobID)
}

func (b *URLBuilder) Conf(jobID string) Endpoint {
	return b.endpoint(ResourceConf, jobID, "conf")
}

func (b *URLBuilder) Counters(jobID string) Endpoint {
	return b.endpoint(ResourceCounters, jobID, "counters")
}

func (b *URLBuilder) Tasks(jobID string) Endpoint {
	return b.endpoint(ResourceTasks, jobID, "tasks")
}

func (b *URLBuilder) TaskCounters(jobID, taskID string) Endpoint {
	return b.endpoint(ResourceTaskCounters, jobID, "tasks", taskID, "counters")
}

func (b *URLBuilder) TaskAttempts(jobID, taskID string) Endpoint {
	return b.endpoint(ResourceTaskAttempts, jobID, "tasks", taskID, "attempts")
}

func (b *URLBuilder) TaskAttempt(jobID, taskID, attemptID string) Endpoint {
	return b.endpoint(ResourceTaskAttempt, jobID, "tasks", taskID, "attempts", attemptID)
}

// TrackingURL points at the job page of the history server web UI.
func (b *URLBuilder) TrackingURL(jobID string) string {
	return b.base.JoinPath(webJobPath, jobID).String()
}

func (b *URLBuilder) endpoint(resource Resource, segments ...string) Endpoint {
	return Endpoint{Resource: resource, URL: b.root.JoinPath(segments...)}
}
