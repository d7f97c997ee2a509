package filestore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) (*LocalStore, string) {
	t.Helper()
	root := t.TempDir()
	s, err := NewLocalStore(root)
	require.NoError(t, err)
	return s, root
}

func TestLocalStore_SaveAndPromote(t *testing.T) {
	t.Parallel()
	s, root := newLocal(t)
	ctx := context.Background()

	path, err := s.SaveWorking(ctx, "bill-1", "ring.jpg", "image/jpeg", []byte("jpeg"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "working", "bill-1__ring.jpg"), path)

	p, err := s.Promote(ctx, "bill-1")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "confirmed", "ring.jpg"), p.To)

	data, err := os.ReadFile(p.To)
	require.NoError(t, err)
	require.Equal(t, []byte("jpeg"), data)
	require.NoFileExists(t, path)
}

func TestLocalStore_PromoteNotFound(t *testing.T) {
	t.Parallel()
	s, _ := newLocal(t)

	_, err := s.Promote(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_PromoteRejectsPathsOutsideWorking(t *testing.T) {
	t.Parallel()
	base := t.TempDir()
	root := filepath.Join(base, "bills")
	s, err := NewLocalStore(root)
	require.NoError(t, err)
	ctx := context.Background()

	outside := filepath.Join(base, "secret__keys.txt")
	require.NoError(t, os.WriteFile(outside, []byte("top secret"), 0o600))

	for _, id := range []string{"../../secret", "../secret", "..", "working/../../secret", `..\secret`, "a__b", ""} {
		_, err := s.Promote(ctx, id)
		require.ErrorIs(t, err, ErrInvalidBillID, id)

		_, err = s.SaveWorking(ctx, id, "x.jpg", "image/jpeg", []byte("x"))
		require.ErrorIs(t, err, ErrInvalidBillID, id)
	}

	data, err := os.ReadFile(outside)
	require.NoError(t, err)
	require.Equal(t, []byte("top secret"), data)
	require.NoFileExists(t, filepath.Join(root, "confirmed", "keys.txt"))
}

func TestLocalStore_PromoteConflict(t *testing.T) {
	t.Parallel()
	s, root := newLocal(t)
	ctx := context.Background()

	_, err := s.SaveWorking(ctx, "bill-1", "bill.pdf", "application/pdf", []byte("first"))
	require.NoError(t, err)
	_, err = s.SaveWorking(ctx, "bill-2", "bill.pdf", "application/pdf", []byte("second"))
	require.NoError(t, err)

	_, err = s.Promote(ctx, "bill-1")
	require.NoError(t, err)

	_, err = s.Promote(ctx, "bill-2")
	require.ErrorIs(t, err, ErrConflict)

	data, err := os.ReadFile(filepath.Join(root, "confirmed", "bill.pdf"))
	require.NoError(t, err)
	require.Equal(t, []byte("first"), data, "confirmed file must not be overwritten")
	require.FileExists(t, filepath.Join(root, "working", "bill-2__bill.pdf"))
}

func TestLocalStore_ConcurrentPromotion(t *testing.T) {
	t.Parallel()
	s, _ := newLocal(t)
	ctx := context.Background()

	const n = 8
	for i := range n {
		_, err := s.SaveWorking(ctx, billIDFor(i), "same.png", "image/png", []byte{byte(i)})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	results := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, results[i] = s.Promote(ctx, billIDFor(i))
		}()
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		default:
			require.ErrorIs(t, err, ErrConflict)
			conflicts++
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, n-1, conflicts)
}

func TestLocalStore_Demote(t *testing.T) {
	t.Parallel()
	s, _ := newLocal(t)
	ctx := context.Background()

	working, err := s.SaveWorking(ctx, "bill-1", "coin.png", "image/png", []byte("png"))
	require.NoError(t, err)
	p, err := s.Promote(ctx, "bill-1")
	require.NoError(t, err)

	require.NoError(t, s.Demote(ctx, p))
	require.FileExists(t, working)
	require.NoFileExists(t, p.To)

	p2, err := s.Promote(ctx, "bill-1")
	require.NoError(t, err)
	require.Equal(t, p.To, p2.To)
}

func TestGlobEscape(t *testing.T) {
	t.Parallel()
	require.Equal(t, `a\*b\?c\[d`, globEscape("a*b?c[d"))
}

func billIDFor(i int) string {
	return "bill-" + string(rune('a'+i))
}
