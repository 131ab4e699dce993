package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/clusterpep/pkg/core"
	"github.com/ChrisMcGann/clusterpep/pkg/logging"
	"github.com/ChrisMcGann/clusterpep/pkg/repository"
)

// fakeRepo serves rows in pages and records the pages requested
type fakeRepo struct {
	rows       []core.RawPSM
	totalCount int // reported total; defaults to len(rows)
	failPage   int
	assays     []core.AssayMetadata
	assayErr   error

	mu        sync.Mutex
	requested []int
}

func (f *fakeRepo) Page(ctx context.Context, quality core.Quality, pageNumber, pageSize int) (repository.Page, error) {
	f.mu.Lock()
	f.requested = append(f.requested, pageNumber)
	f.mu.Unlock()

	if pageNumber == f.failPage {
		return repository.Page{}, errors.New("connection reset")
	}

	total := f.totalCount
	if total == 0 {
		total = len(f.rows)
	}

	start := (pageNumber - 1) * pageSize
	if start >= len(f.rows) {
		return repository.Page{TotalCount: total}, nil
	}
	end := min(start+pageSize, len(f.rows))
	return repository.Page{Rows: f.rows[start:end], TotalCount: total}, nil
}

func (f *fakeRepo) ReadAll(ctx context.Context) ([]core.AssayMetadata, error) {
	return f.assays, f.assayErr
}

func makeRows(n int) []core.RawPSM {
	rows := make([]core.RawPSM, n)
	for i := range rows {
		rows[i] = core.RawPSM{ClusterID: int64(i%3 + 1), Sequence: "PEPTIDE", AssayID: int64(i), NumSpectra: 1}
	}
	return rows
}

func TestFetchPages(t *testing.T) {
	tests := []struct {
		name      string
		rows      int
		total     int
		pageSize  int
		wantPages []int
		wantRows  int
	}{
		{"exact multiple", 10, 0, 5, []int{1, 2}, 10},
		{"short last page", 11, 0, 5, []int{1, 2, 3}, 11},
		{"single page", 3, 0, 5, []int{1}, 3},
		{"empty repository", 0, 0, 5, []int{1}, 0},
		{"total overstated", 6, 20, 5, []int{1, 2}, 6},
		{"total understated", 10, 5, 5, []int{1}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{rows: makeRows(tt.rows), totalCount: tt.total}

			got := 0
			fetched, err := FetchPages(context.Background(), repo, core.QualityLow, tt.pageSize, func(page int, rows []core.RawPSM) error {
				got += len(rows)
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantPages, repo.requested)
			assert.Equal(t, len(tt.wantPages), fetched)
			assert.Equal(t, tt.wantRows, got)
		})
	}
}

func TestFetchPagesFailureAborts(t *testing.T) {
	repo := &fakeRepo{rows: makeRows(20), failPage: 2}

	_, err := FetchPages(context.Background(), repo, core.QualityLow, 5, func(int, []core.RawPSM) error { return nil })
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrDataAccess))

	var dae *core.DataAccessError
	require.True(t, errors.As(err, &dae))
	assert.Equal(t, 2, dae.Page)
	assert.Equal(t, []int{1, 2}, repo.requested)
}

func TestFetchPagesRejectsPageSize(t *testing.T) {
	_, err := FetchPages(context.Background(), &fakeRepo{}, core.QualityLow, 0, nil)
	assert.Error(t, err)
}

func TestBuildAssayIndex(t *testing.T) {
	repo := &fakeRepo{assays: []core.AssayMetadata{{ID: 1, ProjectAccession: "PXD1"}, {ID: 2}}}

	index, err := BuildAssayIndex(context.Background(), repo)
	require.NoError(t, err)
	require.Len(t, index, 2)
	assert.Equal(t, "PXD1", index[1].ProjectAccession)

	_, err = BuildAssayIndex(context.Background(), &fakeRepo{assayErr: errors.New("down")})
	assert.True(t, errors.Is(err, core.ErrDataAccess))
}

func TestEnrich(t *testing.T) {
	assay := &core.AssayMetadata{ID: 7, TaxonomyIDs: []string{"9606"}}
	e := &Enricher{
		Normalizer: core.NewCatalogNormalizer(nil),
		Assays:     map[int64]*core.AssayMetadata{7: assay},
		Logger:     logging.NewDiscardLogger(),
	}

	rec := e.Enrich(&core.RawPSM{ClusterID: 1, Sequence: "PEPMTIDE", RawModifications: "4-UNIMOD:35,20-UNIMOD:1", AssayID: 7, NumSpectra: 2})
	assert.Equal(t, []core.Modification{{Position: 4, Accession: "UNIMOD:35"}}, rec.Modifications)
	assert.True(t, rec.WrongAnnotation)
	assert.Same(t, assay, rec.Assay)

	rec = e.Enrich(&core.RawPSM{ClusterID: 1, Sequence: "PEPTIDE", AssayID: 8})
	assert.Nil(t, rec.Assay)
	assert.Nil(t, rec.TaxonomyIDs())
	assert.False(t, rec.WrongAnnotation)
}

func TestClusterGrouperDedupe(t *testing.T) {
	g := NewClusterGrouper()

	low := &core.ClusteredPsmRecord{ClusterID: 1, Sequence: "PEPTIDE", AssayID: 1, NumSpectra: 1}
	high := &core.ClusteredPsmRecord{ClusterID: 1, Sequence: "PEPTIDE", AssayID: 1, NumSpectra: 4}
	other := &core.ClusteredPsmRecord{ClusterID: 1, Sequence: "PEPTIDE", AssayID: 2, NumSpectra: 1}

	assert.True(t, g.Add(low))
	snapshot := g.Clusters()
	assert.False(t, g.Add(high))
	assert.True(t, g.Add(other))

	clusters := g.Clusters()
	require.Len(t, clusters[1], 2)
	assert.Same(t, high, clusters[1][0])
	assert.Same(t, low, snapshot[1][0])
	assert.Equal(t, 1, g.Duplicates())
}

func TestClusterGrouperOrderIndependent(t *testing.T) {
	delta := 0.5
	recs := []*core.ClusteredPsmRecord{
		{ClusterID: 1, Sequence: "PEPTIDE", AssayID: 1, NumSpectra: 2},
		{ClusterID: 1, Sequence: "PEPTIDE", AssayID: 1, NumSpectra: 2, DeltaMZ: &delta},
		{ClusterID: 1, Sequence: "PEPTIDE", AssayID: 1, NumSpectra: 2, Modifications: []core.Modification{{Position: 1, Accession: "UNIMOD:35"}}},
		{ClusterID: 1, Sequence: "PEPTIDE", AssayID: 1, NumSpectra: 1},
	}

	var keep *core.ClusteredPsmRecord
	for _, order := range [][]int{{0, 1, 2, 3}, {3, 2, 1, 0}, {2, 0, 3, 1}, {1, 3, 0, 2}} {
		g := NewClusterGrouper()
		for _, i := range order {
			g.Add(recs[i])
		}
		got := g.Clusters()[1]
		require.Len(t, got, 1)
		if keep == nil {
			keep = got[0]
		}
		assert.Same(t, keep, got[0], "order %v", order)
	}
	// same spectra; unmodified key sorts first; present delta before absent
	assert.Same(t, recs[1], keep)
}

func TestClusterGrouperWrongAnnotationTieBreak(t *testing.T) {
	wrong := &core.ClusteredPsmRecord{ClusterID: 1, Sequence: "PEPTIDE", AssayID: 1, NumSpectra: 2, WrongAnnotation: true}
	clean := &core.ClusteredPsmRecord{ClusterID: 1, Sequence: "PEPTIDE", AssayID: 1, NumSpectra: 2}

	for _, order := range [][]*core.ClusteredPsmRecord{{wrong, clean}, {clean, wrong}} {
		g := NewClusterGrouper()
		for _, rec := range order {
			g.Add(rec)
		}
		got := g.Clusters()[1]
		require.Len(t, got, 1)
		assert.Same(t, clean, got[0])
	}
}

func TestPreferRecordIsStrict(t *testing.T) {
	d1, d2 := 0.1, 0.2
	recs := []*core.ClusteredPsmRecord{
		{Sequence: "PEPTIDE", NumSpectra: 3},
		{Sequence: "PEPTIDE", NumSpectra: 2, DeltaMZ: &d1},
		{Sequence: "PEPTIDE", NumSpectra: 2, DeltaMZ: &d2},
		{Sequence: "PEPTIDE", NumSpectra: 2, DeltaMZ: &d2, WrongAnnotation: true},
		{Sequence: "PEPTIDE", NumSpectra: 2},
		{Sequence: "PEPTIDE", NumSpectra: 2, WrongAnnotation: true},
	}

	// listed best first: each record is preferred over every later one and never the reverse
	for i := range recs {
		assert.False(t, preferRecord(recs[i], recs[i]), "record %d over itself", i)
		for j := i + 1; j < len(recs); j++ {
			assert.True(t, preferRecord(recs[i], recs[j]), "record %d over %d", i, j)
			assert.False(t, preferRecord(recs[j], recs[i]), "record %d over %d", j, i)
		}
	}
}

func TestClusterGrouperLargeCluster(t *testing.T) {
	const n = 50000
	g := NewClusterGrouper()

	for i := 0; i < n; i++ {
		g.Add(&core.ClusteredPsmRecord{ClusterID: 1, Sequence: "PEPTIDE", AssayID: int64(i), NumSpectra: 1})
	}
	// every identity again with more spectra
	for i := 0; i < n; i++ {
		g.Add(&core.ClusteredPsmRecord{ClusterID: 1, Sequence: "PEPTIDE", AssayID: int64(i), NumSpectra: 2})
	}

	recs := g.Clusters()[1]
	require.Len(t, recs, n)
	assert.Equal(t, n, g.Duplicates())
	for i, r := range recs {
		if r.AssayID != int64(i) || r.NumSpectra != 2 {
			t.Fatalf("record %d: got assay %d with %d spectra", i, r.AssayID, r.NumSpectra)
		}
	}
}

func TestClusterGrouperConcurrent(t *testing.T) {
	g := NewClusterGrouper()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				g.Add(&core.ClusteredPsmRecord{
					ClusterID:  int64(i % 10),
					Sequence:   fmt.Sprintf("PEP%c", 'A'+rune(i%5)),
					AssayID:    int64(i),
					NumSpectra: w,
				})
			}
		}(w)
	}
	wg.Wait()

	clusters := g.Clusters()
	assert.Len(t, clusters, 10)
	total := 0
	for _, recs := range clusters {
		total += len(recs)
		for _, r := range recs {
			assert.Equal(t, 7, r.NumSpectra)
		}
	}
	assert.Equal(t, 100, total)
	assert.Equal(t, 700, g.Duplicates())
}

func TestRun(t *testing.T) {
	repo := &fakeRepo{
		rows: []core.RawPSM{
			{ClusterID: 1, Sequence: "PEPTIDE", AssayID: 1, NumSpectra: 1},
			{ClusterID: 1, Sequence: "PEPTIDE", AssayID: 2, NumSpectra: 1},
			{ClusterID: 1, Sequence: "PEPTIDE", AssayID: 2, NumSpectra: 3},
			{ClusterID: 2, Sequence: "ANOTHER", AssayID: 1, NumSpectra: 1},
			{ClusterID: 2, Sequence: "ANOTHER", AssayID: 3, NumSpectra: 1},
		},
		assays: []core.AssayMetadata{{ID: 1}, {ID: 2}},
	}

	res, err := Run(context.Background(), repo, repo, Options{
		Quality:  core.QualityHigh,
		PageSize: 2,
		Workers:  4,
		Logger:   logging.NewDiscardLogger(),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, 5, res.Rows)
	assert.Equal(t, 1, res.Duplicates)
	require.Len(t, res.Clusters, 2)
	assert.Len(t, res.Clusters[1], 2)
	assert.Len(t, res.Clusters[2], 2)
}

func TestRunAbortsOnPageFailure(t *testing.T) {
	repo := &fakeRepo{rows: makeRows(10), failPage: 2}

	_, err := Run(context.Background(), repo, repo, Options{PageSize: 5, Workers: 2, Logger: logging.NewDiscardLogger()})
	assert.True(t, errors.Is(err, core.ErrDataAccess))
}
