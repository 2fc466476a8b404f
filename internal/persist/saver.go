package persist

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SaveJob is one deferred write. Jobs run on the saver goroutine with
// a per-job timeout.
type SaveJob func(ctx context.Context) error

// Saver decouples room ticks from database latency. Rooms enqueue
// writes without blocking; a single worker drains the queue. When the
// queue is full the job is dropped and logged — item state and pet
// positions are reconstructible, losing one write is cheaper than
// stalling a tick.
type Saver struct {
	jobs chan SaveJob
	log  *zap.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewSaver(queueSize int, log *zap.Logger) *Saver {
	s := &Saver{
		jobs: make(chan SaveJob, queueSize),
		log:  log,
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Enqueue schedules a write. Never blocks.
func (s *Saver) Enqueue(job SaveJob) {
	select {
	case s.jobs <- job:
	default:
		s.log.Warn("save queue full, dropping write")
	}
}

// Stop drains outstanding jobs and shuts the worker down.
func (s *Saver) Stop() {
	s.stopOnce.Do(func() {
		close(s.jobs)
	})
	s.wg.Wait()
}

func (s *Saver) run() {
	defer s.wg.Done()
	for job := range s.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := job(ctx); err != nil {
			s.log.Warn("deferred write failed", zap.Error(err))
		}
		cancel()
	}
}
