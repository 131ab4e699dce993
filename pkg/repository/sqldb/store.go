// Package sqldb implements the cluster repository on SQLite and PostgreSQL.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ChrisMcGann/clusterpep/pkg/core"
	"github.com/ChrisMcGann/clusterpep/pkg/repository"
)

// Supported database/sql driver names
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Store is a cluster repository backed by a SQL database
type Store struct {
	db     *sql.DB
	driver string

	mu     sync.Mutex
	cursor pageCursor
}

// pageCursor remembers where the last page ended so the following page can seek by id
// instead of skipping rows with OFFSET.
type pageCursor struct {
	quality  core.Quality
	pageSize int
	next     int   // page number the cursor continues at
	lastID   int64 // id of the last row returned
}

var (
	_ repository.PageReader  = (*Store)(nil)
	_ repository.AssayReader = (*Store)(nil)
)

// Open connects to the database and makes sure the schema exists
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported driver '%s', must be %s or %s", driver, DriverSQLite, DriverPostgres)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, driver: driver}
	if err := s.createTables(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) createTables(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

const countQuery = `
	SELECT COUNT(*)
	FROM clustered_psm p
	JOIN cluster c ON c.id = p.cluster_id
	WHERE c.quality >= ?`

const pageColumns = `
	SELECT p.id, p.cluster_id, p.sequence, p.modifications, p.assay_id, p.num_spectra, p.delta_mz,
		c.number_of_spectra, c.number_of_psms, c.number_of_projects,
		c.avg_precursor_charge, c.avg_precursor_mz, c.quality
	FROM clustered_psm p
	JOIN cluster c ON c.id = p.cluster_id`

// seekQuery continues after the last id of the previous page
const seekQuery = pageColumns + `
	WHERE c.quality >= ? AND p.id > ?
	ORDER BY p.id
	LIMIT ?`

// offsetQuery serves pages requested out of sequence
const offsetQuery = pageColumns + `
	WHERE c.quality >= ?
	ORDER BY p.id
	LIMIT ? OFFSET ?`

// Page returns one page of PSMs from clusters at or above the quality tier. TotalCount is
// only computed for page 1. A page that follows the previously returned one is read by
// seeking past its last id; any other page falls back to OFFSET.
func (s *Store) Page(ctx context.Context, quality core.Quality, pageNumber, pageSize int) (repository.Page, error) {
	if pageNumber < 1 || pageSize < 1 {
		return repository.Page{}, fmt.Errorf("invalid page %d of size %d", pageNumber, pageSize)
	}

	var page repository.Page
	if pageNumber == 1 {
		if err := s.db.QueryRowContext(ctx, rebind(s.driver, countQuery), int(quality)).Scan(&page.TotalCount); err != nil {
			return repository.Page{}, fmt.Errorf("failed to count PSMs: %w", err)
		}
	}

	var (
		rows *sql.Rows
		err  error
	)
	if lastID, ok := s.seek(quality, pageNumber, pageSize); ok {
		rows, err = s.db.QueryContext(ctx, rebind(s.driver, seekQuery), int(quality), lastID, pageSize)
	} else {
		offset := (pageNumber - 1) * pageSize
		rows, err = s.db.QueryContext(ctx, rebind(s.driver, offsetQuery), int(quality), pageSize, offset)
	}
	if err != nil {
		return repository.Page{}, fmt.Errorf("failed to query PSMs: %w", err)
	}
	defer rows.Close()

	var lastID int64
	page.Rows = make([]core.RawPSM, 0, pageSize)
	for rows.Next() {
		var (
			psm     core.RawPSM
			deltaMZ sql.NullFloat64
			q       int
		)
		if err := rows.Scan(
			&lastID,
			&psm.ClusterID, &psm.Sequence, &psm.RawModifications, &psm.AssayID, &psm.NumSpectra, &deltaMZ,
			&psm.ClusterNumSpectra, &psm.ClusterNumPSMs, &psm.ClusterNumProjects,
			&psm.ClusterAvgCharge, &psm.ClusterAvgMZ, &q,
		); err != nil {
			return repository.Page{}, fmt.Errorf("failed to scan PSM: %w", err)
		}
		if deltaMZ.Valid {
			v := deltaMZ.Float64
			psm.DeltaMZ = &v
		}
		psm.Quality = core.Quality(q)
		page.Rows = append(page.Rows, psm)
	}
	if err := rows.Err(); err != nil {
		return repository.Page{}, fmt.Errorf("failed to read PSMs: %w", err)
	}

	if len(page.Rows) > 0 {
		s.mu.Lock()
		s.cursor = pageCursor{quality: quality, pageSize: pageSize, next: pageNumber + 1, lastID: lastID}
		s.mu.Unlock()
	}

	return page, nil
}

// seek returns the id to continue after when pageNumber directly follows the last page read
func (s *Store) seek(quality core.Quality, pageNumber, pageSize int) (int64, bool) {
	if pageNumber == 1 {
		return 0, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cursor
	if c.next != pageNumber || c.quality != quality || c.pageSize != pageSize {
		return 0, false
	}
	return c.lastID, true
}

// ReadAll returns every assay in the repository
func (s *Store) ReadAll(ctx context.Context) ([]core.AssayMetadata, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, accession, project_accession, taxonomy_ids, species
		FROM assay
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query assays: %w", err)
	}
	defer rows.Close()

	var assays []core.AssayMetadata
	for rows.Next() {
		var (
			a                 core.AssayMetadata
			taxonomy, species string
		)
		if err := rows.Scan(&a.ID, &a.Accession, &a.ProjectAccession, &taxonomy, &species); err != nil {
			return nil, fmt.Errorf("failed to scan assay: %w", err)
		}
		a.TaxonomyIDs = splitList(taxonomy)
		a.Species = splitList(species)
		assays = append(assays, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read assays: %w", err)
	}

	return assays, nil
}

// Summary counts clusters per quality tier, PSMs and assays, and reads the latest release info
func (s *Store) Summary(ctx context.Context) (repository.Summary, error) {
	sum := repository.Summary{Clusters: make(map[core.Quality]int)}

	rows, err := s.db.QueryContext(ctx, `SELECT quality, COUNT(*) FROM cluster GROUP BY quality`)
	if err != nil {
		return sum, fmt.Errorf("failed to count clusters: %w", err)
	}
	for rows.Next() {
		var q, n int
		if err := rows.Scan(&q, &n); err != nil {
			rows.Close()
			return sum, fmt.Errorf("failed to scan cluster count: %w", err)
		}
		sum.Clusters[core.Quality(q)] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return sum, fmt.Errorf("failed to count clusters: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clustered_psm`).Scan(&sum.PSMs); err != nil {
		return sum, fmt.Errorf("failed to count PSMs: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM assay`).Scan(&sum.Assays); err != nil {
		return sum, fmt.Errorf("failed to count assays: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT version, created_at, description
		FROM release_info
		ORDER BY created_at DESC
		LIMIT 1`).Scan(&sum.ReleaseVersion, &sum.ReleaseCreated, &sum.ReleaseDescription)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return sum, fmt.Errorf("failed to read release info: %w", err)
	}

	return sum, nil
}
