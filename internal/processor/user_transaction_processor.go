package processor

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/Lambda256/aptos-indexer-go/internal/counters"
	"github.com/Lambda256/aptos-indexer-go/internal/models"
	"github.com/Lambda256/aptos-indexer-go/internal/mq"
	"github.com/Lambda256/aptos-indexer-go/internal/network"
	"github.com/Lambda256/aptos-indexer-go/internal/repository"
	"github.com/Lambda256/aptos-indexer-go/internal/transaction"
)

// UserTransactionProcessor extracts user_transactions plus their flattened
// signature rows from User-typed transactions.
type UserTransactionProcessor struct {
	producer         mq.Producer
	repo             *repository.Repository
	deprecatedTables TableFlags
}

func (p *UserTransactionProcessor) Name() string {
	return NameUserTransaction
}

func (p *UserTransactionProcessor) ConnectionPool() *pgxpool.Pool {
	return p.repo.Pool()
}

func (p *UserTransactionProcessor) ProcessTransactions(ctx context.Context, txns []*transaction.Transaction, startVersion, endVersion, chainID uint64) (*ProcessingResult, error) {
	processingStart := time.Now()

	var userTransactions []models.UserTransaction
	var signatures []models.Signature
	for _, txn := range txns {
		if txn.Data == nil {
			counters.UnknownTypeCount.WithLabelValues(p.Name()).Inc()
			log.Printf("[Parser] Transaction data doesn't exist, version %d", txn.Version)
			continue
		}
		data, ok := txn.Data.(transaction.UserTxn)
		if !ok {
			continue
		}
		ut, sigs, err := models.UserTransactionFromTxn(txn, data)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", p.Name(), err)
		}
		userTransactions = append(userTransactions, ut)
		signatures = append(signatures, sigs...)
	}

	if p.deprecatedTables.Contains(FlagSignatures) {
		signatures = nil
	}

	processingSecs := time.Since(processingStart).Seconds()
	landingStart := time.Now()

	net, err := network.FromChainID(chainID)
	if err != nil {
		return nil, fmt.Errorf("processor %s: %w", p.Name(), err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		mg, mctx := errgroup.WithContext(gctx)
		mg.Go(func() error {
			return mq.SendRecords(mctx, p.producer, mq.Topic(net, "user.transactions"), userTransactions)
		})
		mg.Go(func() error {
			return mq.SendRecords(mctx, p.producer, mq.Topic(net, "signatures"), signatures)
		})
		return mg.Wait()
	})
	g.Go(func() error {
		dg, dctx := errgroup.WithContext(gctx)
		dg.Go(func() error {
			return p.repo.InsertUserTransactions(dctx, userTransactions)
		})
		dg.Go(func() error {
			return p.repo.InsertSignatures(dctx, signatures)
		})
		return dg.Wait()
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("processor %s versions [%d, %d]: %w", p.Name(), startVersion, endVersion, err)
	}

	result := &ProcessingResult{
		StartVersion:        startVersion,
		EndVersion:          endVersion,
		ProcessingSecs:      processingSecs,
		DBSecs:              time.Since(landingStart).Seconds(),
		LastTimestampMicros: lastTimestamp(txns),
	}
	releaseAsync(userTransactions, signatures)
	return result, nil
}
