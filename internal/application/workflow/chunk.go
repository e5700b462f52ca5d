package workflow

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// maxIDsPerQuery bounds how many ids one batched lookup may carry; the
// external record stores reject longer filter expressions.
const maxIDsPerQuery = 15

// chunkIDs splits ids into slices of at most size elements
func chunkIDs(ids []uuid.UUID, size int) [][]uuid.UUID {
	if size <= 0 {
		size = maxIDsPerQuery
	}
	var chunks [][]uuid.UUID
	for len(ids) > size {
		chunks = append(chunks, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		chunks = append(chunks, ids)
	}
	return chunks
}

// fetchChunked issues one fetch per id chunk, fanned out concurrently and
// joined with wait-for-all semantics. Results are concatenated in chunk
// order; the first chunk failure fails the whole lookup.
func fetchChunked[T any](ctx context.Context, ids []uuid.UUID, fetch func(context.Context, []uuid.UUID) ([]T, error)) ([]T, error) {
	chunks := chunkIDs(ids, maxIDsPerQuery)
	if len(chunks) == 0 {
		return nil, nil
	}
	if len(chunks) == 1 {
		return fetch(ctx, chunks[0])
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		results  = make([][]T, len(chunks))
		firstErr error
	)
	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk []uuid.UUID) {
			defer wg.Done()
			part, err := fetch(ctx, chunk)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			results[i] = part
		}(i, chunk)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	var merged []T
	for _, part := range results {
		merged = append(merged, part...)
	}
	return merged, nil
}

// distinctIDs returns the unique ids in first-seen order
func distinctIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	var out []uuid.UUID
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
