package extraction

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/resemantic/resemantic/internal/domain/models"
)

type collectingSink struct {
	mu      sync.Mutex
	results []*models.TurnResult
}

func (s *collectingSink) Consume(result *models.TurnResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
}

func (s *collectingSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

func TestWorkerPool_ProcessesEnqueuedBatches(t *testing.T) {
	llmMock := fivePropsLLM()
	pipeline := newTestPipeline(llmMock, &mockGraph{}, newMockArchive(), VersionV1)
	sink := &collectingSink{}
	pool := NewWorkerPool(pipeline, 2, 8, sink)
	pool.Start(context.Background())

	for i := 0; i < 4; i++ {
		require.True(t, pool.Enqueue(testBatch()))
	}
	pool.Stop()

	require.Equal(t, 4, sink.len())
	for _, result := range sink.results {
		require.Empty(t, result.Error)
		require.Len(t, result.StoredPropositionIDs, 5)
	}
}

func TestWorkerPool_FullQueueDrops(t *testing.T) {
	blocker := make(chan struct{})
	llmMock := &mockLLM{respond: func(string) (string, error) {
		<-blocker
		return suJSON("User states a fact", "statement"), nil
	}}
	pipeline := newTestPipeline(llmMock, &mockGraph{}, newMockArchive(), VersionV1)
	pool := NewWorkerPool(pipeline, 1, 1, &collectingSink{})
	pool.Start(context.Background())
	defer func() {
		close(blocker)
		pool.Stop()
	}()

	// the worker blocks on the first batch; the queue then fills and a
	// later enqueue must be dropped rather than block
	require.True(t, pool.Enqueue(testBatch()))

	dropped := false
	for i := 0; i < 10; i++ {
		if !pool.Enqueue(testBatch()) {
			dropped = true
			break
		}
	}
	require.True(t, dropped)
}

func TestWorkerPool_EnqueueAfterStop(t *testing.T) {
	pipeline := newTestPipeline(fivePropsLLM(), &mockGraph{}, newMockArchive(), VersionV1)
	pool := NewWorkerPool(pipeline, 1, 1, &collectingSink{})
	pool.Start(context.Background())
	pool.Stop()

	require.False(t, pool.Enqueue(testBatch()))
}

func TestWorkerPool_StopDrainsQueue(t *testing.T) {
	pipeline := newTestPipeline(fivePropsLLM(), &mockGraph{}, newMockArchive(), VersionV1)
	sink := &collectingSink{}
	pool := NewWorkerPool(pipeline, 1, 8, sink)
	pool.Start(context.Background())

	for i := 0; i < 5; i++ {
		require.True(t, pool.Enqueue(testBatch()))
	}
	pool.Stop()

	require.Equal(t, 5, sink.len())
}
