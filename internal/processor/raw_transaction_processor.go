package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Lambda256/aptos-indexer-go/internal/models"
	"github.com/Lambda256/aptos-indexer-go/internal/mq"
	"github.com/Lambda256/aptos-indexer-go/internal/network"
	"github.com/Lambda256/aptos-indexer-go/internal/repository"
	"github.com/Lambda256/aptos-indexer-go/internal/transaction"
)

// RawTransactionProcessor ships one denormalized RawTransaction per input
// transaction. This record class is MQ-only; nothing is written to the
// database.
type RawTransactionProcessor struct {
	producer mq.Producer
	repo     *repository.Repository
}

func (p *RawTransactionProcessor) Name() string {
	return NameRawTransaction
}

func (p *RawTransactionProcessor) ConnectionPool() *pgxpool.Pool {
	return p.repo.Pool()
}

type rawResult struct {
	raw models.RawTransaction
	err error
}

func (p *RawTransactionProcessor) ProcessTransactions(ctx context.Context, txns []*transaction.Transaction, startVersion, endVersion, chainID uint64) (*ProcessingResult, error) {
	processingStart := time.Now()

	results := mapParallel(txns, func(txn *transaction.Transaction) rawResult {
		raw, err := models.RawTransactionFromTxn(txn)
		return rawResult{raw: raw, err: err}
	})
	rawTransactions := make([]models.RawTransaction, 0, len(results))
	for _, res := range results {
		if res.err != nil {
			return nil, fmt.Errorf("processor %s: %w", p.Name(), res.err)
		}
		rawTransactions = append(rawTransactions, res.raw)
	}

	processingSecs := time.Since(processingStart).Seconds()
	landingStart := time.Now()

	net, err := network.FromChainID(chainID)
	if err != nil {
		return nil, fmt.Errorf("processor %s: %w", p.Name(), err)
	}

	if err := mq.SendRecords(ctx, p.producer, mq.Topic(net, "raw.transactions"), rawTransactions); err != nil {
		return nil, fmt.Errorf("processor %s versions [%d, %d]: %w", p.Name(), startVersion, endVersion, err)
	}

	result := &ProcessingResult{
		StartVersion:        startVersion,
		EndVersion:          endVersion,
		ProcessingSecs:      processingSecs,
		DBSecs:              time.Since(landingStart).Seconds(),
		LastTimestampMicros: lastTimestamp(txns),
	}
	releaseAsync(rawTransactions)
	return result, nil
}
