package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ChrisMcGann/clusterpep/pkg/core"
)

// DefaultChunkSize is the number of rows written per transaction
const DefaultChunkSize = 10000

// Loader writes clusters, PSMs and assays into a Store. Rows are inserted with prepared
// statements inside transactions that are committed every chunk.
type Loader struct {
	store     *Store
	chunkSize int

	tx          *sql.Tx
	clusterStmt *sql.Stmt
	psmStmt     *sql.Stmt
	assayStmt   *sql.Stmt
	pending     int

	psmID    int64
	clusters map[int64]struct{}

	PSMs     int
	Clusters int
	Assays   int
}

// NewLoader creates a loader. PSM ids continue after the highest id already stored.
func NewLoader(ctx context.Context, store *Store, chunkSize int) (*Loader, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	l := &Loader{
		store:     store,
		chunkSize: chunkSize,
		clusters:  make(map[int64]struct{}),
	}

	var maxID sql.NullInt64
	if err := store.db.QueryRowContext(ctx, `SELECT MAX(id) FROM clustered_psm`).Scan(&maxID); err != nil {
		return nil, fmt.Errorf("failed to read last PSM id: %w", err)
	}
	l.psmID = maxID.Int64 + 1

	if err := l.begin(ctx); err != nil {
		return nil, err
	}

	return l, nil
}

// begin opens a transaction and prepares the insert statements on it
func (l *Loader) begin(ctx context.Context) error {
	tx, err := l.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	l.clusterStmt, err = tx.PrepareContext(ctx, rebind(l.store.driver, `
		INSERT INTO cluster (
			id, quality, number_of_spectra, number_of_psms, number_of_projects,
			avg_precursor_charge, avg_precursor_mz
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare cluster statement: %w", err)
	}

	l.psmStmt, err = tx.PrepareContext(ctx, rebind(l.store.driver, `
		INSERT INTO clustered_psm (
			id, cluster_id, sequence, modifications, assay_id, num_spectra, delta_mz
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare PSM statement: %w", err)
	}

	l.assayStmt, err = tx.PrepareContext(ctx, rebind(l.store.driver, `
		INSERT INTO assay (id, accession, project_accession, taxonomy_ids, species)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			accession = excluded.accession,
			project_accession = excluded.project_accession,
			taxonomy_ids = excluded.taxonomy_ids,
			species = excluded.species
	`))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare assay statement: %w", err)
	}

	l.tx = tx
	l.pending = 0
	return nil
}

// commit commits the open transaction. Statements prepared on it are closed with it.
func (l *Loader) commit() error {
	if l.tx == nil {
		return nil
	}
	err := l.tx.Commit()
	l.tx = nil
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// step counts a written row and rolls the transaction over at the chunk boundary
func (l *Loader) step(ctx context.Context) error {
	l.pending++
	if l.pending < l.chunkSize {
		return nil
	}
	if err := l.commit(); err != nil {
		return err
	}
	return l.begin(ctx)
}

// WritePSM writes a PSM row. Its cluster is inserted the first time the cluster id is seen.
func (l *Loader) WritePSM(ctx context.Context, psm *core.RawPSM) error {
	if l.tx == nil {
		return fmt.Errorf("loader is finalized")
	}

	if _, seen := l.clusters[psm.ClusterID]; !seen {
		_, err := l.clusterStmt.ExecContext(ctx,
			psm.ClusterID,
			int(psm.Quality),
			psm.ClusterNumSpectra,
			psm.ClusterNumPSMs,
			psm.ClusterNumProjects,
			psm.ClusterAvgCharge,
			psm.ClusterAvgMZ,
		)
		if err != nil {
			return fmt.Errorf("failed to insert cluster %d: %w", psm.ClusterID, err)
		}
		l.clusters[psm.ClusterID] = struct{}{}
		l.Clusters++
	}

	// Handle optional delta m/z
	var deltaMZ interface{}
	if psm.DeltaMZ != nil {
		deltaMZ = *psm.DeltaMZ
	}

	_, err := l.psmStmt.ExecContext(ctx,
		l.psmID,
		psm.ClusterID,
		psm.Sequence,
		psm.RawModifications,
		psm.AssayID,
		psm.NumSpectra,
		deltaMZ,
	)
	if err != nil {
		return fmt.Errorf("failed to insert PSM %s: %w", psm.Name(), err)
	}

	l.psmID++
	l.PSMs++
	return l.step(ctx)
}

// WriteAssay writes or replaces an assay row
func (l *Loader) WriteAssay(ctx context.Context, assay *core.AssayMetadata) error {
	if l.tx == nil {
		return fmt.Errorf("loader is finalized")
	}

	_, err := l.assayStmt.ExecContext(ctx,
		assay.ID,
		assay.Accession,
		assay.ProjectAccession,
		joinList(assay.TaxonomyIDs),
		joinList(assay.Species),
	)
	if err != nil {
		return fmt.Errorf("failed to insert assay %d: %w", assay.ID, err)
	}

	l.Assays++
	return l.step(ctx)
}

// Finalize commits outstanding rows and records the release info
func (l *Loader) Finalize(ctx context.Context, version, description string) error {
	if err := l.commit(); err != nil {
		return err
	}

	_, err := l.store.db.ExecContext(ctx, rebind(l.store.driver, `
		INSERT INTO release_info (version, created_at, description)
		VALUES (?, ?, ?)
	`), version, time.Now().Format(releaseDateFormat), description)
	if err != nil {
		return fmt.Errorf("failed to insert release info: %w", err)
	}

	return nil
}

// Abort rolls back rows not yet committed
func (l *Loader) Abort() error {
	if l.tx == nil {
		return nil
	}
	err := l.tx.Rollback()
	l.tx = nil
	return err
}
