package processor

import (
	"runtime"
	"sync"

	"github.com/Lambda256/aptos-indexer-go/internal/transaction"
)

// mapParallel runs fn over every transaction of a batch on a bounded worker
// pool and returns results in input order. fn must be pure; decoding is
// CPU-bound, so the pool is sized to the machine.
func mapParallel[T any](txns []*transaction.Transaction, fn func(*transaction.Transaction) T) []T {
	workers := runtime.NumCPU()
	if workers > len(txns) {
		workers = len(txns)
	}
	if workers <= 1 {
		results := make([]T, len(txns))
		for i, txn := range txns {
			results[i] = fn(txn)
		}
		return results
	}

	results := make([]T, len(txns))
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	for i, txn := range txns {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, txn *transaction.Transaction) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = fn(txn)
		}(i, txn)
	}
	wg.Wait()
	return results
}

// releaseCh hands the last reference of large record collections to a
// background goroutine, so reclaiming multi-megabyte slices never sits on
// the commit path between batch success and cursor advance.
var releaseCh = make(chan any, 256)

func init() {
	go func() {
		for range releaseCh {
		}
	}()
}

// releaseAsync parks collections for background reclamation. If the channel
// is full the reference is simply dropped here; the hand-off is best-effort.
func releaseAsync(collections ...any) {
	for _, c := range collections {
		select {
		case releaseCh <- c:
		default:
		}
	}
}
