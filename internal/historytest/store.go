package historytest

import "sync"

type Job struct {
	ID          string
	Name        string
	User        string
	State       string
	SubmitTime  int64
	StartTime   int64
	FinishTime  int64
	Diagnostics string

	Conf     map[string]string
	Counters []CounterGroup
	Tasks    []*Task
}

type CounterGroup struct {
	Name     string
	Counters []Counter
}

type Counter struct {
	Name  string
	Value int64
}

type Task struct {
	ID                string
	Type              string
	State             string
	SuccessfulAttempt string
	Counters          []CounterGroup
	Attempts          []*Attempt
}

type Attempt struct {
	ID          string
	Type        string
	State       string
	StartTime   int64
	FinishTime  int64
	ShuffleTime int64
	MergeTime   int64
	Diagnostics string
}

// Store keeps the jobs served by the fake history server.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewStore() *Store {
	return &Store{jobs: make(map[string]*Job)}
}

func (s *Store) SaveJob(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *Store) GetJob(id string) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, exists := s.jobs[id]
	return job, exists
}

func (s *Store) ListJobs() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	jobs := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}

func (s *Store) GetTask(jobID, taskID string) (*Task, bool) {
	job, exists := s.GetJob(jobID)
	if !exists {
		return nil, false
	}
	for _, task := range job.Tasks {
		if task.ID == taskID {
			return task, true
		}
	}
	return nil, false
}

func (s *Store) GetAttempt(jobID, taskID, attemptID string) (*Attempt, bool) {
	task, exists := s.GetTask(jobID, taskID)
	if !exists {
		return nil, false
	}
	for _, attempt := range task.Attempts {
		if attempt.ID == attemptID {
			return attempt, true
		}
	}
	return nil, false
}
