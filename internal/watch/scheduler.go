package watch

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
)

// pathState tracks a path that currently has a worker goroutine.
type pathState struct {
	rerun bool
}

// Scheduler runs work per path on a bounded number of workers. A path is
// never processed by two workers at once; submitting a busy path queues a
// single rerun, and further submissions coalesce into it.
type Scheduler struct {
	run func(ctx context.Context, path string)
	sem chan struct{}

	mu     sync.Mutex
	active map[string]*pathState
	closed bool

	wg sync.WaitGroup
}

// NewScheduler creates a scheduler with at most workers concurrent runs.
// Defaults to GOMAXPROCS if workers is not positive.
func NewScheduler(workers int, run func(ctx context.Context, path string)) *Scheduler {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	return &Scheduler{
		run:    run,
		sem:    make(chan struct{}, workers),
		active: make(map[string]*pathState),
	}
}

// Submit schedules path. It never blocks.
func (s *Scheduler) Submit(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	if st, ok := s.active[path]; ok {
		st.rerun = true
		s.mu.Unlock()

		return
	}

	s.active[path] = &pathState{}
	s.wg.Add(1)
	s.mu.Unlock()

	go s.loop(ctx, path)
}

func (s *Scheduler) loop(ctx context.Context, path string) {
	defer s.wg.Done()

	for {
		select {
		case s.sem <- struct{}{}: // acquire slot
		case <-ctx.Done():
			s.finish(path)
			return
		}

		if ctx.Err() != nil {
			<-s.sem
			s.finish(path)

			return
		}

		s.runSafe(ctx, path)
		<-s.sem // release slot

		s.mu.Lock()
		st := s.active[path]
		if st.rerun && ctx.Err() == nil {
			st.rerun = false
			s.mu.Unlock()

			continue
		}

		delete(s.active, path)
		s.mu.Unlock()

		return
	}
}

func (s *Scheduler) runSafe(ctx context.Context, path string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("scheduled run panicked", slog.String("path", path), slog.Any("error", r))
		}
	}()

	s.run(ctx, path)
}

func (s *Scheduler) finish(path string) {
	s.mu.Lock()
	delete(s.active, path)
	s.mu.Unlock()
}

// Active returns the number of paths queued or running.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.active)
}

// Wait blocks until every submitted path has finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Close rejects further submissions and waits for running paths.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.wg.Wait()
}
