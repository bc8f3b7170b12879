package repository

// DefaultChunkSize bounds rows per bulk insert when a table has no override.
// UNNEST-array inserts keep the bind-parameter count constant, so the limit
// here is statement size and lock footprint, not Postgres's parameter cap.
const DefaultChunkSize = 1000

// ChunkSizes is the per-table row-per-statement override map from config.
type ChunkSizes map[string]int

func (c ChunkSizes) For(table string) int {
	if size, ok := c[table]; ok && size > 0 {
		return size
	}
	return DefaultChunkSize
}

// inChunks runs fn over items in slices of at most size rows, sequentially.
// Sequential chunks on one logical stream preserve insertion order for
// same-PK updates within a record class.
func inChunks[T any](items []T, size int, fn func([]T) error) error {
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		if err := fn(items[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// dedupeLast removes primary-key duplicates from a collection, keeping the
// last occurrence. Collections arrive in version-then-intra-transaction
// order, so the survivor is the newest record. Postgres rejects bulk upserts
// that touch the same row twice, so this runs before every write.
func dedupeLast[T any](items []T, key func(T) string) []T {
	if len(items) < 2 {
		return items
	}
	keep := make(map[string]int, len(items))
	for i, item := range items {
		keep[key(item)] = i
	}
	if len(keep) == len(items) {
		return items
	}
	out := make([]T, 0, len(keep))
	for i, item := range items {
		if keep[key(item)] == i {
			out = append(out, item)
		}
	}
	return out
}
