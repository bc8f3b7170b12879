package processor

import (
	"context"
	"fmt"
	"log"
	"sort"
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

// DefaultProcessor extracts block metadata transactions and the table-item
// family from the write set of every transaction.
type DefaultProcessor struct {
	producer         mq.Producer
	repo             *repository.Repository
	deprecatedTables TableFlags
}

// txnExtract is the per-transaction decode output, merged batch-wide after
// the parallel map.
type txnExtract struct {
	blockMetadata *models.BlockMetadataTransaction
	tableItems    []models.TableItem
	currentItems  []models.CurrentTableItem
	tableMetas    []*models.TableMetadata
}

func (p *DefaultProcessor) Name() string {
	return NameDefault
}

func (p *DefaultProcessor) ConnectionPool() *pgxpool.Pool {
	return p.repo.Pool()
}

func (p *DefaultProcessor) ProcessTransactions(ctx context.Context, txns []*transaction.Transaction, startVersion, endVersion, chainID uint64) (*ProcessingResult, error) {
	processingStart := time.Now()

	extracts := mapParallel(txns, func(txn *transaction.Transaction) txnExtract {
		return p.extractOne(txn)
	})
	blockMetadataTxns, tableItems, currentTableItems, tableMetadata := mergeExtracts(extracts)

	if p.deprecatedTables.Contains(FlagTableItems) {
		tableItems = nil
	}
	if p.deprecatedTables.Contains(FlagTableMetadatas) {
		tableMetadata = nil
	}

	processingSecs := time.Since(processingStart).Seconds()
	landingStart := time.Now()

	net, err := network.FromChainID(chainID)
	if err != nil {
		return nil, fmt.Errorf("processor %s: %w", p.Name(), err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.produceToMQ(gctx, net, blockMetadataTxns, tableItems, currentTableItems, tableMetadata)
	})
	g.Go(func() error {
		return p.insertToDB(gctx, blockMetadataTxns, tableItems, currentTableItems, tableMetadata)
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
	releaseAsync(blockMetadataTxns, tableItems, currentTableItems, tableMetadata)
	return result, nil
}

func (p *DefaultProcessor) extractOne(txn *transaction.Transaction) txnExtract {
	var out txnExtract

	switch data := txn.Data.(type) {
	case transaction.BlockMetadataTxn:
		bmt := models.BlockMetadataFromTxn(txn, data)
		out.blockMetadata = &bmt
	case nil:
		counters.UnknownTypeCount.WithLabelValues(p.Name()).Inc()
		log.Printf("[Parser] Transaction data doesn't exist, version %d", txn.Version)
		return out
	}

	if txn.Info == nil {
		return out
	}
	for i, change := range txn.Info.Changes {
		switch c := change.(type) {
		case transaction.WriteTableItem:
			item, current, meta := models.TableItemFromWrite(txn, c, int64(i))
			out.tableItems = append(out.tableItems, item)
			out.currentItems = append(out.currentItems, current)
			if meta != nil {
				out.tableMetas = append(out.tableMetas, meta)
			}
		case transaction.DeleteTableItem:
			item, current := models.TableItemFromDelete(txn, c, int64(i))
			out.tableItems = append(out.tableItems, item)
			out.currentItems = append(out.currentItems, current)
		}
	}
	return out
}

// mergeExtracts flattens the per-transaction results, performs the keyed
// merge for the current-state projections and sorts them by primary key so
// concurrent writers lock rows in a total order.
func mergeExtracts(extracts []txnExtract) ([]models.BlockMetadataTransaction, []models.TableItem, []models.CurrentTableItem, []models.TableMetadata) {
	var blockMetadataTxns []models.BlockMetadataTransaction
	var tableItems []models.TableItem
	currentByKey := make(map[string]models.CurrentTableItem)
	metaByHandle := make(map[string]models.TableMetadata)

	for _, ex := range extracts {
		if ex.blockMetadata != nil {
			blockMetadataTxns = append(blockMetadataTxns, *ex.blockMetadata)
		}
		tableItems = append(tableItems, ex.tableItems...)
		for _, current := range ex.currentItems {
			key := current.TableHandle + "/" + current.KeyHash
			if prev, ok := currentByKey[key]; ok && !newerTableItem(current, prev) {
				continue
			}
			currentByKey[key] = current
		}
		for _, meta := range ex.tableMetas {
			metaByHandle[meta.Handle] = *meta
		}
	}

	currentTableItems := make([]models.CurrentTableItem, 0, len(currentByKey))
	for _, current := range currentByKey {
		currentTableItems = append(currentTableItems, current)
	}
	sort.Slice(currentTableItems, func(i, j int) bool {
		a, b := currentTableItems[i], currentTableItems[j]
		if a.TableHandle != b.TableHandle {
			return a.TableHandle < b.TableHandle
		}
		return a.KeyHash < b.KeyHash
	})

	tableMetadata := make([]models.TableMetadata, 0, len(metaByHandle))
	for _, meta := range metaByHandle {
		tableMetadata = append(tableMetadata, meta)
	}
	sort.Slice(tableMetadata, func(i, j int) bool { return tableMetadata[i].Handle < tableMetadata[j].Handle })

	return blockMetadataTxns, tableItems, currentTableItems, tableMetadata
}

// newerTableItem is the aggregation tie-break: higher transaction version
// wins; within one transaction, higher write-set-change index wins.
func newerTableItem(candidate, existing models.CurrentTableItem) bool {
	if candidate.LastTransactionVersion != existing.LastTransactionVersion {
		return candidate.LastTransactionVersion > existing.LastTransactionVersion
	}
	return candidate.WriteSetChangeIndex >= existing.WriteSetChangeIndex
}

func (p *DefaultProcessor) produceToMQ(ctx context.Context, net network.Network,
	blockMetadataTxns []models.BlockMetadataTransaction, tableItems []models.TableItem,
	currentTableItems []models.CurrentTableItem, tableMetadata []models.TableMetadata) error {

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return mq.SendRecords(gctx, p.producer, mq.Topic(net, "block.metadata.transactions"), blockMetadataTxns)
	})
	g.Go(func() error {
		return mq.SendRecords(gctx, p.producer, mq.Topic(net, "table.items"), tableItems)
	})
	g.Go(func() error {
		return mq.SendRecords(gctx, p.producer, mq.Topic(net, "current.table.items"), currentTableItems)
	})
	g.Go(func() error {
		return mq.SendRecords(gctx, p.producer, mq.Topic(net, "table.metadatas"), tableMetadata)
	})
	return g.Wait()
}

func (p *DefaultProcessor) insertToDB(ctx context.Context,
	blockMetadataTxns []models.BlockMetadataTransaction, tableItems []models.TableItem,
	currentTableItems []models.CurrentTableItem, tableMetadata []models.TableMetadata) error {

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.repo.InsertBlockMetadataTransactions(gctx, blockMetadataTxns)
	})
	g.Go(func() error {
		return p.repo.InsertTableItems(gctx, tableItems)
	})
	g.Go(func() error {
		return p.repo.InsertCurrentTableItems(gctx, currentTableItems)
	})
	g.Go(func() error {
		return p.repo.InsertTableMetadata(gctx, tableMetadata)
	})
	return g.Wait()
}
