package service

import (
	"context"
	"sync"
)

// batchJob is one multicast batch waiting for dispatch.
type batchJob struct {
	Index  int
	Tokens []string
}

// BatchWorkerPool dispatches batches over a fixed number of goroutines.
// With a single worker, batches run strictly in order.
type BatchWorkerPool struct {
	workers int
}

// NewBatchWorkerPool creates a pool; workers below 1 are treated as 1.
func NewBatchWorkerPool(workers int) *BatchWorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &BatchWorkerPool{workers: workers}
}

// Run hands every batch to handle and returns once all of them finished.
func (p *BatchWorkerPool) Run(ctx context.Context, batches [][]string, handle func(ctx context.Context, job batchJob)) {
	workers := p.workers
	if workers > len(batches) {
		workers = len(batches)
	}

	jobs := make(chan batchJob)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				handle(ctx, job)
			}
		}()
	}

	for i, tokens := range batches {
		jobs <- batchJob{Index: i, Tokens: tokens}
	}
	close(jobs)
	wg.Wait()
}

// chunkTokens splits tokens into consecutive batches of at most size.
func chunkTokens(tokens []string, size int) [][]string {
	if size < 1 {
		size = 1
	}
	batches := make([][]string, 0, (len(tokens)+size-1)/size)
	for start := 0; start < len(tokens); start += size {
		end := start + size
		if end > len(tokens) {
			end = len(tokens)
		}
		batches = append(batches, tokens[start:end])
	}
	return batches
}
