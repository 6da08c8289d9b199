// Package historytest runs an in-process MapReduce job history server for
// tests. It serves the REST hierarchy from a Store and can require Hadoop
// pseudo authentication.
package historytest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/nemanja-m/mrhistory/internal/shared/logging"
)

const restRoot = "/ws/v1/history/mapreduce/jobs"

type API struct {
	store *Store

	mu   sync.Mutex
	hits map[string]int
}

func NewAPI(store *Store) *API {
	return &API{
		store: store,
		hits:  make(map[string]int),
	}
}

func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET "+restRoot, a.listJobs)
	mux.HandleFunc("GET "+restRoot+"/{job}", a.getJob)
	mux.HandleFunc("GET "+restRoot+"/{job}/conf", a.getConf)
	mux.HandleFunc("GET "+restRoot+"/{job}/counters", a.getCounters)
	mux.HandleFunc("GET "+restRoot+"/{job}/tasks", a.getTasks)
	mux.HandleFunc("GET "+restRoot+"/{job}/tasks/{task}/counters", a.getTaskCounters)
	mux.HandleFunc("GET "+restRoot+"/{job}/tasks/{task}/attempts", a.getAttempts)
	mux.HandleFunc("GET "+restRoot+"/{job}/tasks/{task}/attempts/{attempt}", a.getAttempt)
}

// Hits returns how many requests reached the handler of a resource
// ("job", "conf", "counters", "tasks", "task_counters", "task_attempts",
// "task_attempt").
func (a *API) Hits(resource string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hits[resource]
}

func (a *API) hit(resource string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hits[resource]++
}

// listJobs handles GET /ws/v1/history/mapreduce/jobs
func (a *API) listJobs(w http.ResponseWriter, r *http.Request) {
	jobs := a.store.ListJobs()
	list := make([]map[string]any, 0, len(jobs))
	for _, job := range jobs {
		list = append(list, jobJSON(job))
	}
	respondJSON(w, http.StatusOK, map[string]any{"jobs": map[string]any{"job": list}})
}

// getJob handles GET .../jobs/{job}
func (a *API) getJob(w http.ResponseWriter, r *http.Request) {
	a.hit("job")
	job, ok := a.lookupJob(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"job": jobJSON(job)})
}

// getConf handles GET .../jobs/{job}/conf
func (a *API) getConf(w http.ResponseWriter, r *http.Request) {
	a.hit("conf")
	job, ok := a.lookupJob(w, r)
	if !ok {
		return
	}
	props := make([]map[string]any, 0, len(job.Conf))
	for name, value := range job.Conf {
		props = append(props, map[string]any{
			"name":   name,
			"value":  value,
			"source": []string{"job.xml"},
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"conf": map[string]any{
			"path":     "hdfs://namenode/mr-history/done/" + job.ID + "_conf.xml",
			"property": props,
		},
	})
}

// getCounters handles GET .../jobs/{job}/counters
func (a *API) getCounters(w http.ResponseWriter, r *http.Request) {
	a.hit("counters")
	job, ok := a.lookupJob(w, r)
	if !ok {
		return
	}
	groups := make([]map[string]any, 0, len(job.Counters))
	for _, g := range job.Counters {
		counters := make([]map[string]any, 0, len(g.Counters))
		for _, c := range g.Counters {
			counters = append(counters, map[string]any{
				"name":               c.Name,
				"totalCounterValue":  c.Value,
				"mapCounterValue":    0,
				"reduceCounterValue": 0,
			})
		}
		groups = append(groups, map[string]any{"counterGroupName": g.Name, "counter": counters})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"jobCounters": map[string]any{"id": job.ID, "counterGroup": groups},
	})
}

// getTasks handles GET .../jobs/{job}/tasks
func (a *API) getTasks(w http.ResponseWriter, r *http.Request) {
	a.hit("tasks")
	job, ok := a.lookupJob(w, r)
	if !ok {
		return
	}
	if len(job.Tasks) == 0 {
		respondJSON(w, http.StatusOK, map[string]any{"tasks": nil})
		return
	}
	tasks := make([]map[string]any, 0, len(job.Tasks))
	for _, t := range job.Tasks {
		tasks = append(tasks, map[string]any{
			"id":                t.ID,
			"type":              t.Type,
			"state":             t.State,
			"successfulAttempt": t.SuccessfulAttempt,
			"progress":          100.0,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"tasks": map[string]any{"task": tasks}})
}

// getTaskCounters handles GET .../jobs/{job}/tasks/{task}/counters
func (a *API) getTaskCounters(w http.ResponseWriter, r *http.Request) {
	a.hit("task_counters")
	task, ok := a.lookupTask(w, r)
	if !ok {
		return
	}
	groups := make([]map[string]any, 0, len(task.Counters))
	for _, g := range task.Counters {
		counters := make([]map[string]any, 0, len(g.Counters))
		for _, c := range g.Counters {
			counters = append(counters, map[string]any{"name": c.Name, "value": c.Value})
		}
		groups = append(groups, map[string]any{"counterGroupName": g.Name, "counter": counters})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"jobTaskCounters": map[string]any{"id": task.ID, "taskCounterGroup": groups},
	})
}

// getAttempts handles GET .../jobs/{job}/tasks/{task}/attempts
func (a *API) getAttempts(w http.ResponseWriter, r *http.Request) {
	a.hit("task_attempts")
	task, ok := a.lookupTask(w, r)
	if !ok {
		return
	}
	attempts := make([]map[string]any, 0, len(task.Attempts))
	for _, at := range task.Attempts {
		attempts = append(attempts, attemptJSON(at))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"taskAttempts": map[string]any{"taskAttempt": attempts},
	})
}

// getAttempt handles GET .../jobs/{job}/tasks/{task}/attempts/{attempt}
func (a *API) getAttempt(w http.ResponseWriter, r *http.Request) {
	a.hit("task_attempt")
	attempt, exists := a.store.GetAttempt(r.PathValue("job"), r.PathValue("task"), r.PathValue("attempt"))
	if !exists {
		respondNotFound(w, "attempt "+r.PathValue("attempt")+" not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"taskAttempt": attemptJSON(attempt)})
}

func (a *API) lookupJob(w http.ResponseWriter, r *http.Request) (*Job, bool) {
	job, exists := a.store.GetJob(r.PathValue("job"))
	if !exists {
		respondNotFound(w, "job, "+r.PathValue("job")+", is not found")
		return nil, false
	}
	return job, true
}

func (a *API) lookupTask(w http.ResponseWriter, r *http.Request) (*Task, bool) {
	task, exists := a.store.GetTask(r.PathValue("job"), r.PathValue("task"))
	if !exists {
		respondNotFound(w, "task not found with id "+r.PathValue("task"))
		return nil, false
	}
	return task, true
}

func jobJSON(job *Job) map[string]any {
	return map[string]any{
		"id":          job.ID,
		"name":        job.Name,
		"user":        job.User,
		"state":       job.State,
		"submitTime":  job.SubmitTime,
		"startTime":   job.StartTime,
		"finishTime":  job.FinishTime,
		"diagnostics": job.Diagnostics,
	}
}

func attemptJSON(at *Attempt) map[string]any {
	out := map[string]any{
		"id":          at.ID,
		"type":        at.Type,
		"state":       at.State,
		"startTime":   at.StartTime,
		"finishTime":  at.FinishTime,
		"elapsedTime": at.FinishTime - at.StartTime,
		"diagnostics": at.Diagnostics,
	}
	if at.Type != "MAP" {
		out["elapsedShuffleTime"] = at.ShuffleTime
		out["elapsedMergeTime"] = at.MergeTime
		out["elapsedReduceTime"] = at.FinishTime - at.StartTime - at.ShuffleTime - at.MergeTime
	}
	return out
}

func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func respondNotFound(w http.ResponseWriter, message string) {
	respondRemoteException(w, http.StatusNotFound, "NotFoundException", message)
}

func respondRemoteException(w http.ResponseWriter, statusCode int, exception, message string) {
	respondJSON(w, statusCode, map[string]any{
		"RemoteException": map[string]any{
			"exception":     exception,
			"message":       message,
			"javaClassName": "org.apache.hadoop.yarn.webapp." + exception,
		},
	})
}

// Server is a running fake history server.
type Server struct {
	*httptest.Server
	Store *Store
	API   *API
	Auth  *PseudoAuth
}

type Option func(*serverOptions)

type serverOptions struct {
	requireAuth bool
	logger      logging.Logger
}

// WithPseudoAuth rejects requests that carry neither a valid hadoop.auth
// cookie nor a user.name parameter.
func WithPseudoAuth() Option {
	return func(o *serverOptions) { o.requireAuth = true }
}

func WithLogger(logger logging.Logger) Option {
	return func(o *serverOptions) { o.logger = logger }
}

func NewServer(opts ...Option) *Server {
	o := serverOptions{logger: logging.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	store := NewStore()
	api := NewAPI(store)
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)

	middlewares := []func(http.Handler) http.Handler{
		RecoveryMiddleware(o.logger),
		LoggingMiddleware(o.logger),
	}
	var auth *PseudoAuth
	if o.requireAuth {
		auth = NewPseudoAuth()
		middlewares = append(middlewares, auth.Middleware)
	}

	return &Server{
		Server: httptest.NewServer(ChainMiddleware(mux, middlewares...)),
		Store:  store,
		API:    api,
		Auth:   auth,
	}
}
