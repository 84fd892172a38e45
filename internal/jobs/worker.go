// Package jobs runs background maintenance work on a polling loop.
package jobs

import (
	"context"
	"log"
	"time"
)

// JobProcessor is one unit of polled background work.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker drives a JobProcessor on a fixed interval until its context is
// cancelled or Stop is called.
type Worker struct {
	processor JobProcessor
	interval  time.Duration
	quit      chan struct{}
	finished  chan struct{}
}

func NewWorker(processor JobProcessor, interval time.Duration) *Worker {
	return &Worker{
		processor: processor,
		interval:  interval,
		quit:      make(chan struct{}),
		finished:  make(chan struct{}),
	}
}

// Start runs the polling loop. The processor runs once immediately so work
// pending at startup is not delayed by a full interval.
func (w *Worker) Start(ctx context.Context) {
	defer close(w.finished)

	log.Printf("job worker polling every %v", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("job worker stopping: context cancelled")
			return
		case <-w.quit:
			log.Println("job worker stopping")
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Worker) poll(ctx context.Context) {
	if err := w.processor.ProcessJobs(ctx); err != nil {
		log.Printf("job poll failed: %v", err)
	}
}

// Stop signals the loop and waits for the in-flight poll to finish. Call at
// most once.
func (w *Worker) Stop() {
	close(w.quit)
	<-w.finished
}
