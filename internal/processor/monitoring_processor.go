package processor

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Lambda256/aptos-indexer-go/internal/repository"
	"github.com/Lambda256/aptos-indexer-go/internal/transaction"
)

// MonitoringProcessor performs no transform and writes no records; it exists
// so a deployment can follow the stream head and keep a cursor current for
// lag monitoring.
type MonitoringProcessor struct {
	repo *repository.Repository
}

func (p *MonitoringProcessor) Name() string {
	return NameMonitoring
}

func (p *MonitoringProcessor) ConnectionPool() *pgxpool.Pool {
	return p.repo.Pool()
}

func (p *MonitoringProcessor) ProcessTransactions(ctx context.Context, txns []*transaction.Transaction, startVersion, endVersion, chainID uint64) (*ProcessingResult, error) {
	return &ProcessingResult{
		StartVersion:        startVersion,
		EndVersion:          endVersion,
		LastTimestampMicros: lastTimestamp(txns),
	}, nil
}
