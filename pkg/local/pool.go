package local

import "sync"

// Task runs on one pool worker. worker is the stable index, in
// [0, Size()), of the goroutine executing it, so callers can keep
// per-worker state in a slice without locking.
type Task func(worker int)

type Pool struct {
	numWorkers int
	tasks      chan Task
	wg         sync.WaitGroup
}

func NewPool(numWorkers int) *Pool {
	return &Pool{
		numWorkers: numWorkers,
		tasks:      make(chan Task),
	}
}

func (p *Pool) Size() int {
	return p.numWorkers
}

func (p *Pool) Start() {
	for worker := range p.numWorkers {
		p.wg.Go(func() {
			for task := range p.tasks {
				task(worker)
			}
		})
	}
}

func (p *Pool) Submit(task Task) {
	p.tasks <- task
}

func (p *Pool) Close() {
	close(p.tasks)
	p.wg.Wait()
}
