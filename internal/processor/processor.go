// Package processor implements the transform stage: each Processor turns a
// batch of transactions into its record collections, publishes them and
// writes them, returning a ProcessingResult for the cursor.
package processor

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Lambda256/aptos-indexer-go/internal/config"
	"github.com/Lambda256/aptos-indexer-go/internal/mq"
	"github.com/Lambda256/aptos-indexer-go/internal/repository"
	"github.com/Lambda256/aptos-indexer-go/internal/transaction"
)

// Processor names accepted in config.
const (
	NameDefault             = "default_processor"
	NameEvents              = "events_processor"
	NameUserTransaction     = "user_transaction_processor"
	NameAccountTransactions = "account_transactions_processor"
	NameRawTransaction      = "raw_transaction_processor"
	NameMonitoring          = "monitoring_processor"
)

// Processor transforms batches into records and lands them in the broker and
// the database. Implementations must be deterministic over batch contents.
type Processor interface {
	Name() string
	// ProcessTransactions handles one batch [startVersion, endVersion]. The
	// batch is committed by the caller only when this returns nil error.
	ProcessTransactions(ctx context.Context, txns []*transaction.Transaction, startVersion, endVersion, chainID uint64) (*ProcessingResult, error)
	// ConnectionPool exposes the processor's DB pool for diagnostics.
	ConnectionPool() *pgxpool.Pool
}

// ProcessingResult summarizes one successfully processed batch.
type ProcessingResult struct {
	StartVersion        uint64
	EndVersion          uint64
	ProcessingSecs      float64
	DBSecs              float64
	LastTimestampMicros int64
}

// New builds the processor selected by config. Exactly one processor runs
// per process.
func New(cfg *config.Config, producer mq.Producer, repo *repository.Repository) (Processor, error) {
	flags, err := ParseTableFlags(cfg.DeprecatedTables)
	if err != nil {
		return nil, err
	}

	switch cfg.Processor.Name {
	case NameDefault:
		return &DefaultProcessor{producer: producer, repo: repo, deprecatedTables: flags}, nil
	case NameEvents:
		return &EventsProcessor{producer: producer, repo: repo}, nil
	case NameUserTransaction:
		return &UserTransactionProcessor{producer: producer, repo: repo, deprecatedTables: flags}, nil
	case NameAccountTransactions:
		return &AccountTransactionsProcessor{producer: producer, repo: repo}, nil
	case NameRawTransaction:
		return &RawTransactionProcessor{producer: producer, repo: repo}, nil
	case NameMonitoring:
		return &MonitoringProcessor{repo: repo}, nil
	default:
		return nil, fmt.Errorf("unknown processor %q", cfg.Processor.Name)
	}
}

// lastTimestamp returns the timestamp of the final transaction in the batch.
func lastTimestamp(txns []*transaction.Transaction) int64 {
	if len(txns) == 0 {
		return 0
	}
	return txns[len(txns)-1].TimestampMicros
}
