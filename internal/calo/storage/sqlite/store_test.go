package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wdconinc/algorithms/internal/calo"
	"github.com/wdconinc/algorithms/internal/calo/geometry"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "clusters.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clusters.db")

	s, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopening an already-migrated database must not fail.
	s, err = NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestRecordAndListClusters(t *testing.T) {
	s := newTestStore(t)

	runID, err := s.BeginRun(map[string]float64{"log_weight_base": 3.6})
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	clusters := []calo.Cluster{
		{Energy: 110, Position: geometry.Vec3{X: 1, Y: 2, Z: 3}, NHits: 2, CenterID: geometry.CellID(0x1234)},
		{Energy: 80, Position: geometry.Vec3{X: -4, Y: 5, Z: -6}, NHits: 1, CenterID: geometry.CellID(0x5678)},
	}
	require.NoError(t, s.RecordClusters(runID, 7, clusters[:1]))
	require.NoError(t, s.RecordClusters(runID, 3, clusters[1:]))

	records, err := s.ListClusters(runID)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Ordered by event id.
	assert.Equal(t, uint64(3), records[0].EventID)
	assert.Equal(t, 80.0, records[0].Energy)
	assert.Equal(t, uint64(0x5678), records[0].CenterCellID)

	assert.Equal(t, uint64(7), records[1].EventID)
	assert.Equal(t, 110.0, records[1].Energy)
	assert.Equal(t, 2, records[1].NHits)
	assert.Equal(t, 1.0, records[1].X)
	assert.Equal(t, 2.0, records[1].Y)
	assert.Equal(t, 3.0, records[1].Z)
	assert.Equal(t, runID, records[1].RunID)
}

func TestRecordClustersEmptyIsNoop(t *testing.T) {
	s := newTestStore(t)

	runID, err := s.BeginRun(nil)
	require.NoError(t, err)
	require.NoError(t, s.RecordClusters(runID, 1, nil))

	records, err := s.ListClusters(runID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRunsAreIsolated(t *testing.T) {
	s := newTestStore(t)

	run1, err := s.BeginRun(nil)
	require.NoError(t, err)
	run2, err := s.BeginRun(nil)
	require.NoError(t, err)
	require.NotEqual(t, run1, run2)

	require.NoError(t, s.RecordClusters(run1, 0, []calo.Cluster{{Energy: 1, NHits: 1}}))
	require.NoError(t, s.RecordClusters(run2, 0, []calo.Cluster{{Energy: 2, NHits: 1}, {Energy: 3, NHits: 1}}))

	r1, err := s.ListClusters(run1)
	require.NoError(t, err)
	assert.Len(t, r1, 1)

	r2, err := s.ListClusters(run2)
	require.NoError(t, err)
	assert.Len(t, r2, 2)
}

func TestLatestRun(t *testing.T) {
	s := newTestStore(t)

	_, err := s.LatestRun()
	assert.Error(t, err, "empty database has no latest run")

	_, err = s.BeginRun(nil)
	require.NoError(t, err)
	last, err := s.BeginRun(nil)
	require.NoError(t, err)

	got, err := s.LatestRun()
	require.NoError(t, err)
	assert.Equal(t, last, got)
}
