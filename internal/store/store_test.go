package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"sitemerge/internal/merge"
	"sitemerge/internal/models"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, driver string) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "runs.db"), driver, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecords() []models.Record {
	return []models.Record{
		{
			ID: 1000, SiteName: "Acme", Address: "1 Main St",
			Contact:           &models.PointOfContact{Name: "Ada", Title: "Surveyor", PhoneNumber: "555-0101"},
			RequiredMaterials: map[string]int64{"Steel": 3, "Glass": 1},
			RequiredEquipment: models.NewEquipmentSet(models.Crawler, models.Paver),
		},
		{
			ID: 1001, SiteName: "Bolt", Address: "2 Side St",
			RequiredMaterials: map[string]int64{},
		},
	}
}

func TestStore_RoundTrip(t *testing.T) {
	for _, driver := range []string{"sqlite3", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			s := openStore(t, driver)

			run, err := s.StartRun(ctx, "input")
			require.NoError(t, err)
			for _, r := range sampleRecords() {
				require.NoError(t, run.Write(ctx, r))
			}
			assert.Equal(t, 2, run.Written())
			require.NoError(t, run.Finish(ctx, merge.Stats{Records: 2, Orphans: 1}, nil))

			info, err := s.GetRun(ctx, run.ID())
			require.NoError(t, err)
			assert.Equal(t, StatusComplete, info.Status)
			assert.Equal(t, "input", info.Source)
			assert.Equal(t, 2, info.Records)
			assert.Equal(t, 1, info.Orphans)
			assert.False(t, info.FinishedAt.IsZero())

			got, err := s.LoadRecords(ctx, run.ID())
			require.NoError(t, err)
			if diff := cmp.Diff(sampleRecords(), got); diff != "" {
				t.Errorf("records mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStore_FailedRunDiscardsRecords(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, "sqlite3")

	run, err := s.StartRun(ctx, "input")
	require.NoError(t, err)
	require.NoError(t, run.Write(ctx, sampleRecords()[0]))
	require.NoError(t, run.Finish(ctx, merge.Stats{Records: 1}, errors.New("unsorted")))

	info, err := s.GetRun(ctx, run.ID())
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, info.Status)
	assert.Equal(t, "unsorted", info.Error)

	got, err := s.LoadRecords(ctx, run.ID())
	require.NoError(t, err)
	assert.Empty(t, got)

	assert.Error(t, run.Write(ctx, sampleRecords()[1]))
	assert.NoError(t, run.Finish(ctx, merge.Stats{}, nil))
}

func TestStore_ListRuns(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, "sqlite")

	_, err := s.LatestRun(ctx)
	assert.ErrorIs(t, err, ErrRunNotFound)

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := s.StartRun(ctx, "input")
		require.NoError(t, err)
		require.NoError(t, run.Finish(ctx, merge.Stats{}, nil))
		ids = append(ids, run.ID())
	}

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[0], runs[2].ID)

	runs, err = s.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	latest, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids[2], latest.ID)
}

func TestStore_UnknownRun(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, "sqlite3")

	_, err := s.GetRun(ctx, "does-not-exist")
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = s.LoadRecords(ctx, "does-not-exist")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestStore_ReopenKeepsRuns(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	s, err := Open(path, "sqlite3", nil)
	require.NoError(t, err)
	run, err := s.StartRun(ctx, "input")
	require.NoError(t, err)
	require.NoError(t, run.Write(ctx, sampleRecords()[1]))
	require.NoError(t, run.Finish(ctx, merge.Stats{Records: 1}, nil))
	require.NoError(t, s.Close())

	s, err = Open(path, "sqlite3", nil)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.LoadRecords(ctx, run.ID())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Bolt", got[0].SiteName)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "x.db"), "postgres", nil)
	assert.Error(t, err)
}
