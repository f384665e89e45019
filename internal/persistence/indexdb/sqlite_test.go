package indexdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *SQLiteIndex {
	t.Helper()
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "db", "index.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestRecordRunAndList(t *testing.T) {
	idx := openTemp(t)
	ctx := context.Background()

	id := uuid.NewString()
	run := Run{
		ID:           id,
		InputPath:    "input",
		InputDigest:  "abc",
		Slabs:        2,
		Cells:        4,
		Passes:       3,
		Moves:        2,
		Candidates:   1,
		SafeToRemove: 1,
		Answer:       1,
		ElapsedMs:    0.42,
		RecordedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Rows: []SlabRow{
			{Label: 0, Lo: [3]int{0, 0, 1}, Hi: [3]int{2, 0, 1}, Supports: 1, Cascade: 1},
			{Label: 1, Lo: [3]int{1, 0, 2}, Hi: [3]int{1, 0, 2}, SupportedBy: 1},
		},
	}
	require.NoError(t, idx.RecordRun(ctx, run))

	runs, err := idx.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, id, runs[0].ID)
	require.Equal(t, 1, runs[0].Answer)
	require.InDelta(t, 0.42, runs[0].ElapsedMs, 1e-9)
	require.True(t, run.RecordedAt.Equal(runs[0].RecordedAt))

	total, err := idx.CascadeTotal(ctx, id)
	require.NoError(t, err)
	require.Equal(t, run.Answer, total)
}

func TestRecordRunRequiresID(t *testing.T) {
	idx := openTemp(t)
	require.Error(t, idx.RecordRun(context.Background(), Run{}))
}

func TestRecordRunReplacesSameID(t *testing.T) {
	idx := openTemp(t)
	ctx := context.Background()
	id := uuid.NewString()
	require.NoError(t, idx.RecordRun(ctx, Run{ID: id, Answer: 1}))
	require.NoError(t, idx.RecordRun(ctx, Run{ID: id, Answer: 9}))

	runs, err := idx.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, 9, runs[0].Answer)
}

func TestNilIndexIsNoop(t *testing.T) {
	var idx *SQLiteIndex
	require.NoError(t, idx.RecordRun(context.Background(), Run{ID: "x"}))
	require.NoError(t, idx.Close())
}

func TestOpenSQLiteRejectsEmptyPath(t *testing.T) {
	_, err := OpenSQLite("")
	require.Error(t, err)
}
