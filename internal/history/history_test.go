package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/samcharles93/copyconf/pkg/memcpy/memcpytest"
)

func newReport(id, runtime string, started time.Time, fail int) *memcpytest.Report {
	rep := &memcpytest.Report{
		ID:       id,
		Runtime:  runtime,
		Config:   memcpytest.DefaultConfig(),
		Started:  started,
		Duration: 3 * time.Second,
	}
	rep.Add(memcpytest.Result{ID: "negative/Memcpy/null-dst", Group: memcpytest.GroupNegative, Name: "Memcpy/null-dst", Outcome: memcpytest.Pass})
	for i := 0; i < fail; i++ {
		rep.Add(memcpytest.Result{ID: "half-copy/Memcpy", Group: memcpytest.GroupHalfCopy, Name: "Memcpy", Outcome: memcpytest.Fail, Message: "mismatch"})
	}
	return rep
}

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveGetRoundTrip(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	rep := newReport("6f0c2b58-3c8e-4d0a-9d0f-8f5f8c6b1a01", "sim", base, 1)

	require.NoError(t, s.Save(ctx, rep))
	got, err := s.Get(ctx, rep.ID)
	require.NoError(t, err)
	require.Equal(t, rep, got)

	got, err = s.Get(ctx, "6f0c2b58")
	require.NoError(t, err)
	require.Equal(t, rep.ID, got.ID)
}

func TestList(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.Save(ctx, newReport("00000000-0000-4000-8000-000000000001", "sim", base, 0)))
	require.NoError(t, s.Save(ctx, newReport("00000000-0000-4000-8000-000000000002", "cuda", base.Add(time.Hour), 2)))
	require.NoError(t, s.Save(ctx, newReport("00000000-0000-4000-8000-000000000003", "sim", base.Add(2*time.Hour), 0)))

	all, err := s.List(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "00000000-0000-4000-8000-000000000003", all[0].ID)
	require.Equal(t, 3*time.Second, all[0].Duration)

	simOnly, err := s.List(ctx, Query{Runtime: "sim", Limit: 1})
	require.NoError(t, err)
	require.Len(t, simOnly, 1)
	require.Equal(t, "sim", simOnly[0].Runtime)

	failed, err := s.List(ctx, Query{FailedOnly: true})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	require.Equal(t, 2, failed[0].Totals.Fail)
}

func TestPrefixErrors(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, s.Save(ctx, newReport("abcd0000-0000-4000-8000-000000000001", "sim", now, 0)))
	require.NoError(t, s.Save(ctx, newReport("abcd0000-0000-4000-8000-000000000002", "sim", now, 0)))

	_, err := s.Get(ctx, "abcd")
	require.ErrorIs(t, err, ErrAmbiguous)
	_, err = s.Get(ctx, "ffff")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, "%")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	rep := newReport("11111111-2222-4333-8444-555555555555", "hip", time.Now().UTC(), 0)
	require.NoError(t, s.Save(ctx, rep))

	require.NoError(t, s.Delete(ctx, "11111111"))
	_, err := s.Get(ctx, rep.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, s.Delete(ctx, rep.ID), ErrNotFound)
}

func TestSaveRejectsBadID(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()
	require.Error(t, s.Save(context.Background(), newReport("run-1", "sim", time.Now(), 0)))
}

func TestSaveReplaces(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()
	rep := newReport("22222222-2222-4222-8222-222222222222", "sim", time.Now().UTC(), 0)
	require.NoError(t, s.Save(ctx, rep))
	rep.Add(memcpytest.Result{ID: "round-trip/Memcpy", Outcome: memcpytest.Fail})
	require.NoError(t, s.Save(ctx, rep))

	list, err := s.List(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, 1, list[0].Totals.Fail)
}
