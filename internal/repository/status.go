package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// ProcessorStatus is the durable cursor row for one processor.
type ProcessorStatus struct {
	Processor                string
	LastSuccessVersion       uint64
	LastTransactionTimestamp time.Time
	LastUpdated              time.Time
}

// GetProcessorStatus reads the cursor for a processor. found is false when
// the processor has never committed.
func (r *Repository) GetProcessorStatus(ctx context.Context, name string) (ProcessorStatus, bool, error) {
	var status ProcessorStatus
	status.Processor = name
	err := r.db.QueryRow(ctx, `
		SELECT last_success_version, last_transaction_timestamp, last_updated
		FROM processor_status WHERE processor = $1
	`, name).Scan(&status.LastSuccessVersion, &status.LastTransactionTimestamp, &status.LastUpdated)
	if err == pgx.ErrNoRows {
		return status, false, nil
	}
	if err != nil {
		return status, false, err
	}
	return status, true, nil
}

// SaveProcessorStatus persists the cursor. The update is conditioned on the
// processor name and a monotonic check, so a replayed or stale writer can
// never move the cursor backwards.
func (r *Repository) SaveProcessorStatus(ctx context.Context, name string, version uint64, txnTimestampMicros int64) error {
	ts := time.UnixMicro(txnTimestampMicros).UTC()
	_, err := r.db.Exec(ctx, `
		INSERT INTO processor_status (processor, last_success_version, last_transaction_timestamp, last_updated)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (processor) DO UPDATE SET
			last_success_version = EXCLUDED.last_success_version,
			last_transaction_timestamp = EXCLUDED.last_transaction_timestamp,
			last_updated = EXCLUDED.last_updated
		WHERE processor_status.last_success_version <= EXCLUDED.last_success_version
	`, name, version, ts)
	return err
}

// GetChainID reads the bootstrapped chain id. found is false on first run.
func (r *Repository) GetChainID(ctx context.Context) (uint64, bool, error) {
	var chainID uint64
	err := r.db.QueryRow(ctx, `SELECT chain_id FROM ledger_infos LIMIT 1`).Scan(&chainID)
	if err == pgx.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return chainID, true, nil
}

// SetChainID bootstraps the chain id on first run. The single-row table plus
// DO NOTHING makes concurrent bootstraps harmless.
func (r *Repository) SetChainID(ctx context.Context, chainID uint64) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO ledger_infos (chain_id) VALUES ($1)
		ON CONFLICT DO NOTHING
	`, chainID)
	return err
}
