package history

// Wire schema of the MapReduce history server REST API. Fields the decoder
// must be able to tell apart from zero values are pointers.

type jobResponse struct {
	Job *struct {
		ID          string  `json:"id"`
		Name        string  `json:"name"`
		User        string  `json:"user"`
		State       *string `json:"state"`
		SubmitTime  *int64  `json:"submitTime"`
		StartTime   *int64  `json:"startTime"`
		FinishTime  *int64  `json:"finishTime"`
		Diagnostics string  `json:"diagnostics"`
	} `json:"job"`
}

type confResponse struct {
	Conf *struct {
		Path     string `json:"path"`
		Property []struct {
			Name  *string `json:"name"`
			Value *string `json:"value"`
		} `json:"property"`
	} `json:"conf"`
}

type jobCountersResponse struct {
	JobCounters *struct {
		ID           string `json:"id"`
		CounterGroup []struct {
			CounterGroupName *string `json:"counterGroupName"`
			Counter          []struct {
				Name               *string `json:"name"`
				TotalCounterValue  *int64  `json:"totalCounterValue"`
				MapCounterValue    int64   `json:"mapCounterValue"`
				ReduceCounterValue int64   `json:"reduceCounterValue"`
			} `json:"counter"`
		} `json:"counterGroup"`
	} `json:"jobCounters"`
}

type tasksResponse struct {
	Tasks *struct {
		Task []struct {
			ID                *string `json:"id"`
			Type              *string `json:"type"`
			State             *string `json:"state"`
			SuccessfulAttempt string  `json:"successfulAttempt"`
			StartTime         int64   `json:"startTime"`
			FinishTime        int64   `json:"finishTime"`
		} `json:"task"`
	} `json:"tasks"`
}

type taskCountersResponse struct {
	JobTaskCounters *struct {
		ID               string `json:"id"`
		TaskCounterGroup []struct {
			CounterGroupName *string `json:"counterGroupName"`
			Counter          []struct {
				Name  *string `json:"name"`
				Value *int64  `json:"value"`
			} `json:"counter"`
		} `json:"taskCounterGroup"`
	} `json:"jobTaskCounters"`
}

type taskAttempt struct {
	ID                 *string `json:"id"`
	Type               *string `json:"type"`
	State              *string `json:"state"`
	StartTime          *int64  `json:"startTime"`
	FinishTime         *int64  `json:"finishTime"`
	ElapsedShuffleTime *int64  `json:"elapsedShuffleTime"`
	ElapsedMergeTime   *int64  `json:"elapsedMergeTime"`
	Diagnostics        string  `json:"diagnostics"`
}

type taskAttemptResponse struct {
	TaskAttempt *taskAttempt `json:"taskAttempt"`
}

type taskAttemptsResponse struct {
	TaskAttempts *struct {
		TaskAttempt []taskAttempt `json:"taskAttempt"`
	} `json:"taskAttempts"`
}
