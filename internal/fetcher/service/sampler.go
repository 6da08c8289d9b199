package service

import (
	"math/rand/v2"
	"strings"

	"github.com/nemanja-m/mrhistory/internal/fetcher/core"
)

const (
	// MaxSampleSize bounds the number of tasks of one kind whose details are
	// fetched when sampling is enabled.
	MaxSampleSize = 200

	SamplingEnabledKey = "sampling_enabled"
)

// SamplingEnabled reads the sampling switch from fetcher parameters. Only a
// case-insensitive "true" enables it.
func SamplingEnabled(params map[string]string) bool {
	return strings.EqualFold(strings.TrimSpace(params[SamplingEnabledKey]), "true")
}

// Sampler selects the tasks whose counters and timings are fetched.
type Sampler struct {
	enabled bool
	shuffle func(n int, swap func(i, j int))
}

// NewSampler returns a sampler using the shared random source. Passing a nil
// rng is the normal case; tests pass a seeded one.
func NewSampler(enabled bool, rng *rand.Rand) *Sampler {
	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}
	return &Sampler{enabled: enabled, shuffle: shuffle}
}

func (s *Sampler) Enabled() bool {
	return s.enabled
}

// Sample returns the SUCCEEDED tasks of the input, shuffled and truncated to
// MaxSampleSize when sampling is enabled and there are more. The second
// return value reports whether truncation happened.
func (s *Sampler) Sample(tasks []core.TaskSummary) ([]core.TaskSummary, bool) {
	candidates := make([]core.TaskSummary, 0, len(tasks))
	for _, t := range tasks {
		if t.State == core.TaskStateSucceeded {
			candidates = append(candidates, t)
		}
	}

	if !s.enabled || len(candidates) <= MaxSampleSize {
		return candidates, false
	}
	s.shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	return candidates[:MaxSampleSize], true
}

// partition splits tasks by type, keeping their order.
func partition(tasks []core.TaskSummary) (maps, reduces []core.TaskSummary) {
	for _, t := range tasks {
		if t.Type == core.TaskTypeMap {
			maps = append(maps, t)
		} else {
			reduces = append(reduces, t)
		}
	}
	return maps, reduces
}
