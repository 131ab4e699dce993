// Package repository defines the capabilities the ranking pipeline consumes from a cluster
// repository: paged access to clustered PSMs and a one-shot read of assay metadata.
package repository

import (
	"context"

	"github.com/ChrisMcGann/clusterpep/pkg/core"
)

// Page is one page of clustered PSM rows. TotalCount is the number of rows matching the
// quality filter across all pages; readers only fill it for page 1.
type Page struct {
	Rows       []core.RawPSM
	TotalCount int
}

// PageReader serves clustered PSMs of clusters at or above a quality tier, 1-based pages.
type PageReader interface {
	Page(ctx context.Context, quality core.Quality, pageNumber, pageSize int) (Page, error)
}

// AssayReader returns every assay known to the repository.
type AssayReader interface {
	ReadAll(ctx context.Context) ([]core.AssayMetadata, error)
}

// Summary describes the contents of a repository.
type Summary struct {
	Clusters           map[core.Quality]int
	PSMs               int
	Assays             int
	ReleaseVersion     string
	ReleaseCreated     string
	ReleaseDescription string
}
