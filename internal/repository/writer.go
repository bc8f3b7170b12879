package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Lambda256/aptos-indexer-go/internal/models"
)

// sanitizeForPG removes PostgreSQL-incompatible bytes from strings:
// null bytes (raw or escaped) and invalid UTF-8 sequences.
func sanitizeForPG(s string) string {
	s = strings.ReplaceAll(s, "\\u0000", "")
	if strings.ContainsRune(s, 0) {
		s = strings.ReplaceAll(s, "\x00", "")
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return s
}

// sanitizeJSONB prepares a json.RawMessage for a jsonb[] UNNEST cast.
// Returns "null" for empty or invalid input so the array stays well-formed.
func sanitizeJSONB(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	s := sanitizeForPG(string(raw))
	if !json.Valid([]byte(s)) {
		return "null"
	}
	return s
}

// InsertEvents writes the events collection. PK (transaction_version,
// event_index); collisions refresh indexed_type and inserted_at.
func (r *Repository) InsertEvents(ctx context.Context, events []models.Event) error {
	events = dedupeLast(events, func(e models.Event) string {
		return fmt.Sprintf("%d/%d", e.TransactionVersion, e.EventIndex)
	})
	return inChunks(events, r.chunkSizes.For("events"), func(chunk []models.Event) error {
		n := len(chunk)
		sequenceNumbers := make([]int64, n)
		creationNumbers := make([]int64, n)
		accountAddresses := make([]string, n)
		versions := make([]int64, n)
		blockHeights := make([]int64, n)
		types := make([]string, n)
		datas := make([]string, n)
		eventIndexes := make([]int64, n)
		indexedTypes := make([]string, n)
		for i, e := range chunk {
			sequenceNumbers[i] = e.SequenceNumber
			creationNumbers[i] = e.CreationNumber
			accountAddresses[i] = e.AccountAddress
			versions[i] = e.TransactionVersion
			blockHeights[i] = e.TransactionBlockHeight
			types[i] = sanitizeForPG(e.Type)
			datas[i] = sanitizeJSONB(e.Data)
			eventIndexes[i] = e.EventIndex
			indexedTypes[i] = sanitizeForPG(e.IndexedType)
		}
		_, err := r.db.Exec(ctx, `
			INSERT INTO events (
				sequence_number, creation_number, account_address,
				transaction_version, transaction_block_height,
				type, data, event_index, indexed_type
			)
			SELECT * FROM UNNEST(
				$1::bigint[], $2::bigint[], $3::text[],
				$4::bigint[], $5::bigint[],
				$6::text[], $7::jsonb[], $8::bigint[], $9::text[]
			)
			ON CONFLICT (transaction_version, event_index) DO UPDATE SET
				indexed_type = EXCLUDED.indexed_type,
				inserted_at = NOW()
		`, sequenceNumbers, creationNumbers, accountAddresses, versions, blockHeights,
			types, datas, eventIndexes, indexedTypes)
		return err
	})
}

// InsertUserTransactions writes user_transactions. PK (version); collisions
// refresh the entry-function columns and inserted_at.
func (r *Repository) InsertUserTransactions(ctx context.Context, txns []models.UserTransaction) error {
	txns = dedupeLast(txns, func(t models.UserTransaction) string {
		return fmt.Sprintf("%d", t.Version)
	})
	return inChunks(txns, r.chunkSizes.For("user_transactions"), func(chunk []models.UserTransaction) error {
		n := len(chunk)
		versions := make([]int64, n)
		blockHeights := make([]int64, n)
		parentSignatureTypes := make([]string, n)
		senders := make([]string, n)
		sequenceNumbers := make([]int64, n)
		maxGasAmounts := make([]int64, n)
		expirationTimestamps := make([]int64, n)
		gasUnitPrices := make([]int64, n)
		timestamps := make([]int64, n)
		entryFunctionIDs := make([]string, n)
		entryFunctionAddrs := make([]string, n)
		entryFunctionModules := make([]string, n)
		entryFunctionNames := make([]string, n)
		epochs := make([]int64, n)
		for i, t := range chunk {
			versions[i] = t.Version
			blockHeights[i] = t.BlockHeight
			parentSignatureTypes[i] = t.ParentSignatureType
			senders[i] = t.Sender
			sequenceNumbers[i] = t.SequenceNumber
			maxGasAmounts[i] = int64(t.MaxGasAmount)
			expirationTimestamps[i] = t.ExpirationTimestampSecs
			gasUnitPrices[i] = int64(t.GasUnitPrice)
			timestamps[i] = t.TimestampMicros
			entryFunctionIDs[i] = sanitizeForPG(t.EntryFunctionIDStr)
			entryFunctionAddrs[i] = t.EntryFunctionContractAddress
			entryFunctionModules[i] = sanitizeForPG(t.EntryFunctionModuleName)
			entryFunctionNames[i] = sanitizeForPG(t.EntryFunctionFunctionName)
			epochs[i] = t.Epoch
		}
		_, err := r.db.Exec(ctx, `
			INSERT INTO user_transactions (
				version, block_height, parent_signature_type, sender,
				sequence_number, max_gas_amount, expiration_timestamp_secs,
				gas_unit_price, timestamp, entry_function_id_str,
				entry_function_contract_address, entry_function_module_name,
				entry_function_function_name, epoch
			)
			SELECT * FROM UNNEST(
				$1::bigint[], $2::bigint[], $3::text[], $4::text[],
				$5::bigint[], $6::numeric[], $7::bigint[],
				$8::numeric[], $9::bigint[], $10::text[],
				$11::text[], $12::text[], $13::text[], $14::bigint[]
			)
			ON CONFLICT (version) DO UPDATE SET
				entry_function_id_str = EXCLUDED.entry_function_id_str,
				entry_function_contract_address = EXCLUDED.entry_function_contract_address,
				entry_function_module_name = EXCLUDED.entry_function_module_name,
				entry_function_function_name = EXCLUDED.entry_function_function_name,
				inserted_at = NOW()
		`, versions, blockHeights, parentSignatureTypes, senders,
			sequenceNumbers, maxGasAmounts, expirationTimestamps,
			gasUnitPrices, timestamps, entryFunctionIDs,
			entryFunctionAddrs, entryFunctionModules, entryFunctionNames, epochs)
		return err
	})
}

// InsertSignatures writes signatures. PK (transaction_version,
// multi_agent_index, multi_sig_index, is_sender_primary); append-only.
func (r *Repository) InsertSignatures(ctx context.Context, sigs []models.Signature) error {
	sigs = dedupeLast(sigs, func(s models.Signature) string {
		return fmt.Sprintf("%d/%d/%d/%t", s.TransactionVersion, s.MultiAgentIndex, s.MultiSigIndex, s.IsSenderPrimary)
	})
	return inChunks(sigs, r.chunkSizes.For("signatures"), func(chunk []models.Signature) error {
		n := len(chunk)
		versions := make([]int64, n)
		agentIndexes := make([]int64, n)
		sigIndexes := make([]int64, n)
		blockHeights := make([]int64, n)
		signers := make([]string, n)
		isPrimaries := make([]bool, n)
		types := make([]string, n)
		publicKeys := make([]string, n)
		signatures := make([]string, n)
		thresholds := make([]int64, n)
		indices := make([]string, n)
		for i, s := range chunk {
			versions[i] = s.TransactionVersion
			agentIndexes[i] = s.MultiAgentIndex
			sigIndexes[i] = s.MultiSigIndex
			blockHeights[i] = s.TransactionBlockHeight
			signers[i] = s.Signer
			isPrimaries[i] = s.IsSenderPrimary
			types[i] = s.Type
			publicKeys[i] = s.PublicKey
			signatures[i] = s.Signature
			thresholds[i] = s.Threshold
			indices[i] = sanitizeJSONB(s.PublicKeyIndices)
		}
		_, err := r.db.Exec(ctx, `
			INSERT INTO signatures (
				transaction_version, multi_agent_index, multi_sig_index,
				transaction_block_height, signer, is_sender_primary,
				type, public_key, signature, threshold, public_key_indices
			)
			SELECT * FROM UNNEST(
				$1::bigint[], $2::bigint[], $3::bigint[],
				$4::bigint[], $5::text[], $6::boolean[],
				$7::text[], $8::text[], $9::text[], $10::bigint[], $11::jsonb[]
			)
			ON CONFLICT (transaction_version, multi_agent_index, multi_sig_index, is_sender_primary)
			DO NOTHING
		`, versions, agentIndexes, sigIndexes, blockHeights, signers, isPrimaries,
			types, publicKeys, signatures, thresholds, indices)
		return err
	})
}

// InsertBlockMetadataTransactions writes block_metadata_transactions.
// PK (version); append-only.
func (r *Repository) InsertBlockMetadataTransactions(ctx context.Context, txns []models.BlockMetadataTransaction) error {
	txns = dedupeLast(txns, func(t models.BlockMetadataTransaction) string {
		return fmt.Sprintf("%d", t.Version)
	})
	return inChunks(txns, r.chunkSizes.For("block_metadata_transactions"), func(chunk []models.BlockMetadataTransaction) error {
		n := len(chunk)
		versions := make([]int64, n)
		blockHeights := make([]int64, n)
		ids := make([]string, n)
		rounds := make([]int64, n)
		epochs := make([]int64, n)
		bitvecs := make([]string, n)
		proposers := make([]string, n)
		failedIndices := make([]string, n)
		timestamps := make([]int64, n)
		for i, t := range chunk {
			versions[i] = t.Version
			blockHeights[i] = t.BlockHeight
			ids[i] = t.ID
			rounds[i] = t.Round
			epochs[i] = t.Epoch
			bitvecs[i] = sanitizeJSONB(t.PreviousBlockVotesBitvec)
			proposers[i] = t.Proposer
			failedIndices[i] = sanitizeJSONB(t.FailedProposerIndices)
			timestamps[i] = t.TimestampMicros
		}
		_, err := r.db.Exec(ctx, `
			INSERT INTO block_metadata_transactions (
				version, block_height, id, round, epoch,
				previous_block_votes_bitvec, proposer, failed_proposer_indices, timestamp
			)
			SELECT * FROM UNNEST(
				$1::bigint[], $2::bigint[], $3::text[], $4::bigint[], $5::bigint[],
				$6::jsonb[], $7::text[], $8::jsonb[], $9::bigint[]
			)
			ON CONFLICT (version) DO NOTHING
		`, versions, blockHeights, ids, rounds, epochs, bitvecs, proposers, failedIndices, timestamps)
		return err
	})
}

// InsertTableItems writes table_items. PK (transaction_version,
// write_set_change_index); append-only.
func (r *Repository) InsertTableItems(ctx context.Context, items []models.TableItem) error {
	items = dedupeLast(items, func(t models.TableItem) string {
		return fmt.Sprintf("%d/%d", t.TransactionVersion, t.WriteSetChangeIndex)
	})
	return inChunks(items, r.chunkSizes.For("table_items"), func(chunk []models.TableItem) error {
		n := len(chunk)
		versions := make([]int64, n)
		changeIndexes := make([]int64, n)
		blockHeights := make([]int64, n)
		keys := make([]string, n)
		handles := make([]string, n)
		decodedKeys := make([]string, n)
		decodedValues := make([]string, n)
		isDeleteds := make([]bool, n)
		for i, t := range chunk {
			versions[i] = t.TransactionVersion
			changeIndexes[i] = t.WriteSetChangeIndex
			blockHeights[i] = t.TransactionBlockHeight
			keys[i] = sanitizeForPG(t.Key)
			handles[i] = t.TableHandle
			decodedKeys[i] = sanitizeJSONB(t.DecodedKey)
			decodedValues[i] = sanitizeJSONB(t.DecodedValue)
			isDeleteds[i] = t.IsDeleted
		}
		_, err := r.db.Exec(ctx, `
			INSERT INTO table_items (
				transaction_version, write_set_change_index, transaction_block_height,
				key, table_handle, decoded_key, decoded_value, is_deleted
			)
			SELECT * FROM UNNEST(
				$1::bigint[], $2::bigint[], $3::bigint[],
				$4::text[], $5::text[], $6::jsonb[], $7::jsonb[], $8::boolean[]
			)
			ON CONFLICT (transaction_version, write_set_change_index) DO NOTHING
		`, versions, changeIndexes, blockHeights, keys, handles, decodedKeys, decodedValues, isDeleteds)
		return err
	})
}

// InsertCurrentTableItems writes the current_table_items projection.
// PK (table_handle, key_hash); the conditional update keeps the newest
// last_transaction_version regardless of batch arrival order. Callers hand
// in PK-sorted collections so concurrent writers take row locks in a total
// order.
func (r *Repository) InsertCurrentTableItems(ctx context.Context, items []models.CurrentTableItem) error {
	items = dedupeLast(items, func(t models.CurrentTableItem) string {
		return t.TableHandle + "/" + t.KeyHash
	})
	return inChunks(items, r.chunkSizes.For("current_table_items"), func(chunk []models.CurrentTableItem) error {
		n := len(chunk)
		handles := make([]string, n)
		keyHashes := make([]string, n)
		keys := make([]string, n)
		decodedKeys := make([]string, n)
		decodedValues := make([]string, n)
		lastVersions := make([]int64, n)
		isDeleteds := make([]bool, n)
		for i, t := range chunk {
			handles[i] = t.TableHandle
			keyHashes[i] = t.KeyHash
			keys[i] = sanitizeForPG(t.Key)
			decodedKeys[i] = sanitizeJSONB(t.DecodedKey)
			decodedValues[i] = sanitizeJSONB(t.DecodedValue)
			lastVersions[i] = t.LastTransactionVersion
			isDeleteds[i] = t.IsDeleted
		}
		_, err := r.db.Exec(ctx, `
			INSERT INTO current_table_items (
				table_handle, key_hash, key, decoded_key, decoded_value,
				last_transaction_version, is_deleted
			)
			SELECT * FROM UNNEST(
				$1::text[], $2::text[], $3::text[], $4::jsonb[], $5::jsonb[],
				$6::bigint[], $7::boolean[]
			)
			ON CONFLICT (table_handle, key_hash) DO UPDATE SET
				key = EXCLUDED.key,
				decoded_key = EXCLUDED.decoded_key,
				decoded_value = EXCLUDED.decoded_value,
				is_deleted = EXCLUDED.is_deleted,
				last_transaction_version = EXCLUDED.last_transaction_version,
				inserted_at = NOW()
			WHERE current_table_items.last_transaction_version <= EXCLUDED.last_transaction_version
		`, handles, keyHashes, keys, decodedKeys, decodedValues, lastVersions, isDeleteds)
		return err
	})
}

// InsertTableMetadata writes table_metadatas. PK (handle); append-only.
func (r *Repository) InsertTableMetadata(ctx context.Context, metas []models.TableMetadata) error {
	metas = dedupeLast(metas, func(t models.TableMetadata) string {
		return t.Handle
	})
	return inChunks(metas, r.chunkSizes.For("table_metadatas"), func(chunk []models.TableMetadata) error {
		n := len(chunk)
		handles := make([]string, n)
		keyTypes := make([]string, n)
		valueTypes := make([]string, n)
		for i, t := range chunk {
			handles[i] = t.Handle
			keyTypes[i] = sanitizeForPG(t.KeyType)
			valueTypes[i] = sanitizeForPG(t.ValueType)
		}
		_, err := r.db.Exec(ctx, `
			INSERT INTO table_metadatas (handle, key_type, value_type)
			SELECT * FROM UNNEST($1::text[], $2::text[], $3::text[])
			ON CONFLICT (handle) DO NOTHING
		`, handles, keyTypes, valueTypes)
		return err
	})
}

// InsertAccountTransactions writes account_transactions.
// PK (transaction_version, account_address); append-only.
func (r *Repository) InsertAccountTransactions(ctx context.Context, rows []models.AccountTransaction) error {
	rows = dedupeLast(rows, func(t models.AccountTransaction) string {
		return fmt.Sprintf("%d/%s", t.TransactionVersion, t.AccountAddress)
	})
	return inChunks(rows, r.chunkSizes.For("account_transactions"), func(chunk []models.AccountTransaction) error {
		n := len(chunk)
		versions := make([]int64, n)
		addresses := make([]string, n)
		for i, t := range chunk {
			versions[i] = t.TransactionVersion
			addresses[i] = t.AccountAddress
		}
		_, err := r.db.Exec(ctx, `
			INSERT INTO account_transactions (transaction_version, account_address)
			SELECT * FROM UNNEST($1::bigint[], $2::text[])
			ON CONFLICT (transaction_version, account_address) DO NOTHING
		`, versions, addresses)
		return err
	})
}
