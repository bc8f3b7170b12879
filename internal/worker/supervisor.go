// Package worker owns the pipeline lifecycle: it verifies the chain id,
// resolves the starting version, pulls batches off the stream and commits
// them in strict version order.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Lambda256/aptos-indexer-go/internal/config"
	"github.com/Lambda256/aptos-indexer-go/internal/counters"
	"github.com/Lambda256/aptos-indexer-go/internal/network"
	"github.com/Lambda256/aptos-indexer-go/internal/processor"
	"github.com/Lambda256/aptos-indexer-go/internal/repository"
	"github.com/Lambda256/aptos-indexer-go/internal/stream"
)

type State string

const (
	StateInitializing State = "initializing"
	StateRunning      State = "running"
	StateDraining     State = "draining"
	StateStopped      State = "stopped"
	StateFailed       State = "failed"
)

// statusPersistInterval coalesces rapid cursor advances into one durable
// update, to keep write amplification on processor_status low.
const statusPersistInterval = 30 * time.Second

// Batch processing is retried a few times before the error is declared
// fatal; publishes and upserts are idempotent, so a replay is safe.
const (
	maxBatchAttempts  = 3
	batchRetryBackoff = 5 * time.Second
)

// Stream reconnect backoff bounds.
const (
	reconnectMinBackoff = time.Second
	reconnectMaxBackoff = 30 * time.Second
)

type Supervisor struct {
	cfg    *config.Config
	client *stream.Client
	proc   processor.Processor
	repo   *repository.Repository
	state  State
}

func NewSupervisor(cfg *config.Config, client *stream.Client, proc processor.Processor, repo *repository.Repository) *Supervisor {
	return &Supervisor{
		cfg:    cfg,
		client: client,
		proc:   proc,
		repo:   repo,
		state:  StateInitializing,
	}
}

func (s *Supervisor) setState(state State) {
	if s.state != state {
		log.Printf("[Supervisor] %s -> %s", s.state, state)
		s.state = state
	}
}

// Run drives the pipeline until the stream drains, the ending version is
// reached, the context is cancelled or a fatal error occurs. A nil return is
// a clean drain.
func (s *Supervisor) Run(ctx context.Context) error {
	chainID, err := s.verifyChainID(ctx)
	if err != nil {
		s.setState(StateFailed)
		return err
	}

	startingVersion, err := s.resolveStartingVersion(ctx)
	if err != nil {
		s.setState(StateFailed)
		return err
	}
	endingVersion := s.cfg.EndingVersion()

	log.Printf("[Supervisor] Processor %s starting at version %d (chain id %d)", s.proc.Name(), startingVersion, chainID)
	s.setState(StateRunning)

	// The bounded channel is the pipeline's backpressure: a slow processor
	// blocks the reader, which stops pulling from the server.
	batches := make(chan streamItem, s.cfg.Processor.ChannelSize)
	readCtx, stopReader := context.WithCancel(ctx)
	defer stopReader()
	go s.readLoop(readCtx, startingVersion, endingVersion, batches)

	return s.commitLoop(ctx, chainID, startingVersion, endingVersion, batches)
}

// verifyChainID compares the stream's chain id against the bootstrapped one,
// storing it on first run. A mismatch means the deployment points at the
// wrong network and must not write anything.
func (s *Supervisor) verifyChainID(ctx context.Context) (uint64, error) {
	chainID, err := s.client.GetChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch chain id: %w", err)
	}
	if _, err := network.FromChainID(chainID); err != nil {
		return 0, fmt.Errorf("chain id mismatch: stream reports unsupported chain id %d", chainID)
	}
	stored, found, err := s.repo.GetChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("read stored chain id: %w", err)
	}
	if found {
		if stored != chainID {
			return 0, fmt.Errorf("chain id mismatch: stream reports %d, database has %d", chainID, stored)
		}
		return chainID, nil
	}
	log.Printf("[Supervisor] Bootstrapping chain id %d", chainID)
	if err := s.repo.SetChainID(ctx, chainID); err != nil {
		return 0, fmt.Errorf("store chain id: %w", err)
	}
	return chainID, nil
}

// resolveStartingVersion picks max(config starting version, cursor + 1) so a
// restart resumes exactly where the last commit left off.
func (s *Supervisor) resolveStartingVersion(ctx context.Context) (uint64, error) {
	var start uint64
	if s.cfg.TransactionStream.StartingVersion != nil {
		start = *s.cfg.TransactionStream.StartingVersion
	}
	status, found, err := s.repo.GetProcessorStatus(ctx, s.proc.Name())
	if err != nil {
		return 0, fmt.Errorf("read processor status: %w", err)
	}
	if found && status.LastSuccessVersion+1 > start {
		start = status.LastSuccessVersion + 1
	}
	return start, nil
}

type streamItem struct {
	batch *stream.Batch
	err   error
}

// readLoop keeps one subscription alive, re-subscribing with exponential
// backoff from the next undelivered version. Batches already buffered in the
// channel stay valid across reconnects. The channel is closed on a clean
// server-side end of stream; a fatal decode error is delivered as an item.
func (s *Supervisor) readLoop(ctx context.Context, startingVersion uint64, endingVersion *uint64, batches chan<- streamItem) {
	defer close(batches)

	next := startingVersion
	backoff := reconnectMinBackoff
	for {
		if ctx.Err() != nil {
			return
		}
		sub, err := s.client.Subscribe(ctx, next, endingVersion)
		if err != nil {
			log.Printf("[Stream] Subscribe at version %d failed: %v (retrying in %s)", next, err, backoff)
			if !sleepCtx(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}
		log.Printf("[Stream] Subscribed at version %d", next)
		backoff = reconnectMinBackoff

		for {
			batch, err := sub.NextBatch()
			if err != nil {
				if errors.Is(err, stream.ErrEndOfStream) {
					log.Printf("[Stream] End of stream at version %d", next)
					return
				}
				if errors.Is(err, stream.ErrMalformed) {
					// Reconnecting cannot repair bad input; surface it.
					select {
					case batches <- streamItem{err: err}:
					case <-ctx.Done():
					}
					return
				}
				if ctx.Err() != nil {
					return
				}
				log.Printf("[Stream] Receive failed: %v (reconnecting from version %d)", err, next)
				if !sleepCtx(ctx, backoff) {
					return
				}
				backoff = nextBackoff(backoff)
				break
			}
			select {
			case batches <- streamItem{batch: batch}:
				next = batch.EndVersion + 1
			case <-ctx.Done():
				return
			}
			if endingVersion != nil && next > *endingVersion {
				return
			}
		}
	}
}

func (s *Supervisor) commitLoop(ctx context.Context, chainID, startingVersion uint64, endingVersion *uint64, batches <-chan streamItem) error {
	gap := NewGapDetector(startingVersion)
	ticker := time.NewTicker(statusPersistInterval)
	defer ticker.Stop()

	// pending is the newest committed-but-not-yet-persisted result; the
	// ticker coalesces persists, and every exit path flushes it.
	var pending *processor.ProcessingResult

	flush := func() error {
		if pending == nil {
			return nil
		}
		// Flush with a fresh context so a cancelled run still records its
		// last commit.
		flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.repo.SaveProcessorStatus(flushCtx, s.proc.Name(), pending.EndVersion, pending.LastTimestampMicros); err != nil {
			return fmt.Errorf("persist processor status: %w", err)
		}
		pending = nil
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			s.setState(StateDraining)
			if err := flush(); err != nil {
				s.setState(StateFailed)
				return err
			}
			s.setState(StateStopped)
			return nil

		case <-ticker.C:
			if err := flush(); err != nil {
				s.setState(StateFailed)
				return err
			}

		case item, ok := <-batches:
			if !ok {
				s.setState(StateDraining)
				if err := flush(); err != nil {
					s.setState(StateFailed)
					return err
				}
				s.setState(StateStopped)
				return nil
			}
			if item.err != nil {
				s.setState(StateFailed)
				return item.err
			}

			batch := item.batch
			if batch.ChainID != 0 && batch.ChainID != chainID {
				s.setState(StateFailed)
				return fmt.Errorf("chain id mismatch mid-stream: batch reports %d, expected %d", batch.ChainID, chainID)
			}
			if err := gap.Observe(batch.StartVersion, batch.EndVersion); err != nil {
				s.setState(StateFailed)
				return err
			}

			result, err := s.processWithRetry(ctx, batch, chainID)
			if err != nil {
				if ctx.Err() != nil {
					// Shutdown raced the batch; it did not commit and the
					// cursor stays put. This is a drain, not a failure.
					s.setState(StateDraining)
					if flushErr := flush(); flushErr != nil {
						s.setState(StateFailed)
						return flushErr
					}
					s.setState(StateStopped)
					return nil
				}
				s.setState(StateFailed)
				return err
			}

			counters.LastSuccessVersion.WithLabelValues(s.proc.Name()).Set(float64(result.EndVersion))
			counters.BatchProcessingSecs.WithLabelValues(s.proc.Name()).Observe(result.ProcessingSecs)
			counters.BatchDBSecs.WithLabelValues(s.proc.Name()).Observe(result.DBSecs)
			log.Printf("[Supervisor] Committed versions [%d, %d] (%d txns, transform %.3fs, land %.3fs)",
				result.StartVersion, result.EndVersion, len(batch.Transactions), result.ProcessingSecs, result.DBSecs)
			pending = result

			if endingVersion != nil && result.EndVersion >= *endingVersion {
				log.Printf("[Supervisor] Reached ending version %d", *endingVersion)
				s.setState(StateDraining)
				if err := flush(); err != nil {
					s.setState(StateFailed)
					return err
				}
				s.setState(StateStopped)
				return nil
			}
		}
	}
}

// processWithRetry replays a failed batch a bounded number of times. Both
// the publisher and the writer are idempotent, so re-running a partially
// landed batch is safe; consumers see at-least-once delivery.
func (s *Supervisor) processWithRetry(ctx context.Context, batch *stream.Batch, chainID uint64) (*processor.ProcessingResult, error) {
	var lastErr error
	for attempt := 1; attempt <= maxBatchAttempts; attempt++ {
		result, err := s.proc.ProcessTransactions(ctx, batch.Transactions, batch.StartVersion, batch.EndVersion, chainID)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if attempt < maxBatchAttempts {
			log.Printf("[Supervisor] Batch [%d, %d] attempt %d/%d failed: %v",
				batch.StartVersion, batch.EndVersion, attempt, maxBatchAttempts, err)
			if !sleepCtx(ctx, batchRetryBackoff) {
				break
			}
		}
	}
	return nil, fmt.Errorf("batch [%d, %d] failed after %d attempts: %w",
		batch.StartVersion, batch.EndVersion, maxBatchAttempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > reconnectMaxBackoff {
		next = reconnectMaxBackoff
	}
	return next
}
