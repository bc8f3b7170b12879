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

// AccountTransactionsProcessor produces one (version, account) row per
// account touched by each transaction.
type AccountTransactionsProcessor struct {
	producer mq.Producer
	repo     *repository.Repository
}

func (p *AccountTransactionsProcessor) Name() string {
	return NameAccountTransactions
}

func (p *AccountTransactionsProcessor) ConnectionPool() *pgxpool.Pool {
	return p.repo.Pool()
}

func (p *AccountTransactionsProcessor) ProcessTransactions(ctx context.Context, txns []*transaction.Transaction, startVersion, endVersion, chainID uint64) (*ProcessingResult, error) {
	processingStart := time.Now()

	perTxn := mapParallel(txns, func(txn *transaction.Transaction) []models.AccountTransaction {
		if txn.Data == nil {
			counters.UnknownTypeCount.WithLabelValues(p.Name()).Inc()
			log.Printf("[Parser] Transaction data doesn't exist, version %d", txn.Version)
			return nil
		}
		return models.AccountTransactionsFromTxn(txn)
	})
	var accountTransactions []models.AccountTransaction
	for _, rows := range perTxn {
		accountTransactions = append(accountTransactions, rows...)
	}

	processingSecs := time.Since(processingStart).Seconds()
	landingStart := time.Now()

	net, err := network.FromChainID(chainID)
	if err != nil {
		return nil, fmt.Errorf("processor %s: %w", p.Name(), err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return mq.SendRecords(gctx, p.producer, mq.Topic(net, "account.transactions"), accountTransactions)
	})
	g.Go(func() error {
		return p.repo.InsertAccountTransactions(gctx, accountTransactions)
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
	releaseAsync(accountTransactions)
	return result, nil
}
