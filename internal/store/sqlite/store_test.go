// SPDX-License-Identifier: MIT

package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "zsc.db"), DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedRecord(id, keyword string, created time.Time) *Record {
	return &Record{
		ID:           id,
		Keyword:      keyword,
		Label:        "Pump",
		Matched:      true,
		Categories:   []string{"Pump", "Valve"},
		Model:        "models/gemini-1.5-flash",
		SnapshotPath: "snapshots/" + keyword + "_20260314.yaml",
		CreatedAt:    created,
	}
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zsc.db")
	ctx := context.Background()

	s, err := Open(path, DefaultConfig())
	require.NoError(t, err)
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.Insert(ctx, seedRecord("r1", "工業用ポンプ", base)))
	require.NoError(t, s.Close())

	// Second open must treat the existing schema as a no-op migration.
	s, err = Open(path, DefaultConfig())
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	rec, err := s.LatestByKeyword(ctx, "工業用ポンプ")
	require.NoError(t, err)
	assert.Equal(t, "r1", rec.ID)
	assert.WithinDuration(t, base, rec.CreatedAt, 0)
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("", DefaultConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty database path")
}

func TestInsert_FillsDefaults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &Record{Keyword: "ベアリング", Label: "Bearing", Matched: true}
	require.NoError(t, s.Insert(ctx, rec))

	_, err := uuid.Parse(rec.ID)
	assert.NoError(t, err, "generated ID should be a UUID")
	assert.WithinDuration(t, time.Now(), rec.CreatedAt, 2*time.Second)

	got, err := s.LatestByKeyword(ctx, "ベアリング")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.WithinDuration(t, rec.CreatedAt, got.CreatedAt, time.Second)
}

func TestInsert_RequiresKeyword(t *testing.T) {
	s := newTestStore(t)

	err := s.Insert(context.Background(), &Record{Keyword: "   ", Label: "Pump"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without keyword")
}

func TestLatestByKeyword_PicksNewest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	// Inserted out of chronological order on purpose.
	require.NoError(t, s.Insert(ctx, seedRecord("p0", "工業用ポンプ", base)))
	require.NoError(t, s.Insert(ctx, seedRecord("p2", "工業用ポンプ", base.Add(20*time.Minute))))
	require.NoError(t, s.Insert(ctx, seedRecord("p1", "工業用ポンプ", base.Add(10*time.Minute))))
	require.NoError(t, s.Insert(ctx, seedRecord("v0", "バルブ", base.Add(15*time.Minute))))

	rec, err := s.LatestByKeyword(ctx, "工業用ポンプ")
	require.NoError(t, err)
	assert.Equal(t, "p2", rec.ID)
	assert.WithinDuration(t, base.Add(20*time.Minute), rec.CreatedAt, 0)
}

func TestLatestByKeyword_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.LatestByKeyword(context.Background(), "減速機")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "減速機")
}

func TestCategoriesRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	withComma := seedRecord("c1", "コンプレッサ", time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	withComma.Categories = []string{"pumps, industrial", "ポンプ", "バルブ"}
	require.NoError(t, s.Insert(ctx, withComma))

	got, err := s.LatestByKeyword(ctx, "コンプレッサ")
	require.NoError(t, err)
	assert.Equal(t, []string{"pumps, industrial", "ポンプ", "バルブ"}, got.Categories)

	// A record without categories must come back nil, not empty.
	bare := seedRecord("c2", "シール", time.Date(2026, 3, 14, 9, 1, 0, 0, time.UTC))
	bare.Categories = nil
	require.NoError(t, s.Insert(ctx, bare))

	got, err = s.LatestByKeyword(ctx, "シール")
	require.NoError(t, err)
	assert.Nil(t, got.Categories)
}

func TestMatchedRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	hit := seedRecord("m1", "ポンプ", base)
	hit.Matched = true
	miss := seedRecord("m2", "ポンプ", base.Add(time.Minute))
	miss.Matched = false
	require.NoError(t, s.Insert(ctx, hit))
	require.NoError(t, s.Insert(ctx, miss))

	records, err := s.List(ctx, Filter{Keyword: "ポンプ"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.False(t, records[0].Matched)
	assert.True(t, records[1].Matched)
}

func TestList_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.Insert(ctx, seedRecord("p0", "工業用ポンプ", base)))
	require.NoError(t, s.Insert(ctx, seedRecord("p1", "工業用ポンプ", base.Add(10*time.Minute))))
	require.NoError(t, s.Insert(ctx, seedRecord("p2", "工業用ポンプ", base.Add(20*time.Minute))))
	require.NoError(t, s.Insert(ctx, seedRecord("v0", "バルブ", base.Add(15*time.Minute))))

	ids := func(records []Record) []string {
		out := make([]string, 0, len(records))
		for _, r := range records {
			out = append(out, r.ID)
		}
		return out
	}

	t.Run("all newest first", func(t *testing.T) {
		records, err := s.List(ctx, Filter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"p2", "v0", "p1", "p0"}, ids(records))
	})

	t.Run("by keyword", func(t *testing.T) {
		records, err := s.List(ctx, Filter{Keyword: "工業用ポンプ"})
		require.NoError(t, err)

		want := []Record{
			*seedRecord("p2", "工業用ポンプ", base.Add(20*time.Minute)),
			*seedRecord("p1", "工業用ポンプ", base.Add(10*time.Minute)),
			*seedRecord("p0", "工業用ポンプ", base),
		}
		if diff := cmp.Diff(want, records); diff != "" {
			t.Errorf("records mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("since is inclusive", func(t *testing.T) {
		records, err := s.List(ctx, Filter{Since: base.Add(10 * time.Minute)})
		require.NoError(t, err)
		assert.Equal(t, []string{"p2", "v0", "p1"}, ids(records))
	})

	t.Run("limit caps newest", func(t *testing.T) {
		records, err := s.List(ctx, Filter{Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"p2", "v0"}, ids(records))
	})

	t.Run("combined", func(t *testing.T) {
		records, err := s.List(ctx, Filter{
			Keyword: "工業用ポンプ",
			Since:   base.Add(5 * time.Minute),
			Limit:   1,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"p2"}, ids(records))
	})
}

func TestList_DefaultLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	for i := 0; i < defaultListLimit+20; i++ {
		rec := seedRecord("", "工業用ポンプ", base.Add(time.Duration(i)*time.Second))
		require.NoError(t, s.Insert(ctx, rec))
	}

	records, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, records, defaultListLimit)
}

func TestCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.Insert(ctx, seedRecord("a", "ポンプ", base)))
	require.NoError(t, s.Insert(ctx, seedRecord("b", "バルブ", base.Add(time.Minute))))

	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestPing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zsc.db")
	s, err := Open(path, DefaultConfig())
	require.NoError(t, err)

	assert.NoError(t, s.Ping(context.Background()))

	require.NoError(t, s.Close())
	assert.Error(t, s.Ping(context.Background()))
}
