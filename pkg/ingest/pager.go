// Package ingest reads clustered PSMs from a cluster repository, enriches them with
// normalized modifications and assay metadata, and groups them by cluster.
package ingest

import (
	"context"
	"fmt"

	"github.com/ChrisMcGann/clusterpep/pkg/core"
	"github.com/ChrisMcGann/clusterpep/pkg/repository"
)

// PageFunc receives the rows of one page. Returning an error stops paging.
type PageFunc func(pageNumber int, rows []core.RawPSM) error

// FetchPages reads every page of PSMs at or above the quality tier, sequentially.
// The total count of the first page fixes the last page; paging also stops at the first
// short or empty page. A repository failure is returned as a *core.DataAccessError.
// It returns the number of pages fetched.
func FetchPages(ctx context.Context, reader repository.PageReader, quality core.Quality, pageSize int, fn PageFunc) (int, error) {
	if pageSize <= 0 {
		return 0, fmt.Errorf("page size must be positive, got %d", pageSize)
	}

	lastPage := 1
	fetched := 0
	for page := 1; page <= lastPage; page++ {
		if err := ctx.Err(); err != nil {
			return fetched, err
		}

		p, err := reader.Page(ctx, quality, page, pageSize)
		if err != nil {
			return fetched, &core.DataAccessError{Op: "fetch PSM page", Page: page, Err: err}
		}
		fetched++

		if page == 1 {
			lastPage = (p.TotalCount + pageSize - 1) / pageSize
		}

		if len(p.Rows) > 0 {
			if err := fn(page, p.Rows); err != nil {
				return fetched, err
			}
		}

		if len(p.Rows) < pageSize {
			break
		}
	}

	return fetched, nil
}

// BuildAssayIndex reads all assays once and indexes them by id.
func BuildAssayIndex(ctx context.Context, reader repository.AssayReader) (map[int64]*core.AssayMetadata, error) {
	assays, err := reader.ReadAll(ctx)
	if err != nil {
		return nil, &core.DataAccessError{Op: "read assays", Err: err}
	}

	index := make(map[int64]*core.AssayMetadata, len(assays))
	for i := range assays {
		index[assays[i].ID] = &assays[i]
	}
	return index, nil
}
