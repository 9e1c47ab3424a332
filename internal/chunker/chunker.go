// Package chunker groups document pages into size-bounded chunks.
package chunker

import "fmt"

// DefaultMaxBytes is the default maximum size of a chunk.
// 45 MiB keeps every part under the knowledge base ingestion limit.
const DefaultMaxBytes int64 = 45 * 1024 * 1024

// Pager is a paginated document whose pages can be measured one at a time.
// Pages are numbered from 1.
type Pager interface {
	PageCount() int
	// PageSize returns the serialized size of a document holding only this page.
	PageSize(page int) (int64, error)
}

// Chunk is a contiguous run of pages.
// Size is the sum of the standalone page sizes, not the size of the assembled chunk.
type Chunk struct {
	Pages []int
	Size  int64
}

// BuildChunks splits the document's pages into chunks that don't exceed maxBytes.
// Each page is kept whole and measured exactly once.
// A page larger than maxBytes gets its own chunk.
func BuildChunks(doc Pager, maxBytes int64) ([]Chunk, error) {
	total := doc.PageCount()
	if total == 0 {
		return nil, nil
	}

	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	var chunks []Chunk
	var current Chunk

	for page := 1; page <= total; page++ {
		pageSize, err := doc.PageSize(page)
		if err != nil {
			return nil, fmt.Errorf("failed to measure page %d: %w", page, err)
		}

		// If adding this page would exceed the limit, start a new chunk
		if current.Size+pageSize > maxBytes && len(current.Pages) > 0 {
			chunks = append(chunks, current)
			current = Chunk{}
		}

		current.Pages = append(current.Pages, page)
		current.Size += pageSize
	}

	// Flush remaining chunk
	if len(current.Pages) > 0 {
		chunks = append(chunks, current)
	}

	return chunks, nil
}
