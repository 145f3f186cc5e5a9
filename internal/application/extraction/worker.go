package extraction

import (
	"context"
	"log"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/resemantic/resemantic/internal/adapters/metrics"
	"github.com/resemantic/resemantic/internal/adapters/tracing"
	"github.com/resemantic/resemantic/internal/domain/models"
)

// Sink receives the result of each completed invocation.
type Sink interface {
	Consume(result *models.TurnResult)
}

type logSink struct{}

func (logSink) Consume(result *models.TurnResult) {
	if result.Error != "" {
		log.Printf("warning: turn finished with error: %s", result.Error)
		return
	}
	log.Printf("info: turn finished: stored=%d", len(result.StoredPropositionIDs))
}

// WorkerPool runs pipeline invocations on background goroutines behind a
// bounded queue. The chat turn enqueues and returns immediately; it is
// never blocked on pipeline outcome.
type WorkerPool struct {
	pipeline *Pipeline
	queue    chan *models.TurnBatch
	sink     Sink
	workers  int

	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool
}

// NewWorkerPool sizes the pool. A nil sink logs results.
func NewWorkerPool(pipeline *Pipeline, workers, queueSize int, sink Sink) *WorkerPool {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	if sink == nil {
		sink = logSink{}
	}
	return &WorkerPool{
		pipeline: pipeline,
		queue:    make(chan *models.TurnBatch, queueSize),
		sink:     sink,
		workers:  workers,
	}
}

// Start launches the workers. ctx cancellation makes in-flight
// invocations observe cancellation through their stage calls.
func (w *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			for batch := range w.queue {
				metrics.QueueDepth.Dec()
				spanCtx, span := tracing.Tracer().Start(ctx, "pipeline.run")
				span.SetAttributes(
					attribute.String("user_message_id", batch.UserMessageID),
					attribute.String("assistant_message_id", batch.AssistantMessageID),
				)
				w.sink.Consume(w.pipeline.Run(spanCtx, batch))
				span.End()
			}
		}()
	}
}

// Enqueue submits a batch without blocking. A full queue drops the batch
// and reports false.
func (w *WorkerPool) Enqueue(batch *models.TurnBatch) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return false
	}
	select {
	case w.queue <- batch:
		metrics.QueueDepth.Inc()
		return true
	default:
		metrics.QueueDropped.Inc()
		log.Printf("error: pipeline queue full, dropping turn %s/%s", batch.UserMessageID, batch.AssistantMessageID)
		return false
	}
}

// Stop closes the queue and waits for queued and in-flight invocations
// to finish.
func (w *WorkerPool) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	close(w.queue)
	w.mu.Unlock()
	w.wg.Wait()
}
