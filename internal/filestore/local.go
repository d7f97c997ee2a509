package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// LocalStore keeps bills on the local filesystem under root/working and
// root/confirmed.
type LocalStore struct {
	workingDir   string
	confirmedDir string
}

// NewLocalStore creates the directory layout under root.
func NewLocalStore(root string) (*LocalStore, error) {
	s := &LocalStore{
		workingDir:   filepath.Join(root, "working"),
		confirmedDir: filepath.Join(root, "confirmed"),
	}
	for _, dir := range []string{s.workingDir, s.confirmedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return s, nil
}

// SaveWorking implements Store.
func (s *LocalStore) SaveWorking(_ context.Context, billID, filename, contentType string, data []byte) (string, error) {
	if !ValidBillID(billID) {
		return "", fmt.Errorf("%w: %q", ErrInvalidBillID, billID)
	}
	path := filepath.Join(s.workingDir, WorkingName(billID, filename, contentType))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write working file: %w", err)
	}
	return path, nil
}

// Promote implements Store. The hard link fails with EEXIST if the confirmed
// name is taken, so two concurrent promotions to the same name cannot both
// succeed.
func (s *LocalStore) Promote(_ context.Context, billID string) (*Promoted, error) {
	if !ValidBillID(billID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBillID, billID)
	}
	matches, err := filepath.Glob(filepath.Join(s.workingDir, globEscape(billID)+Separator+"*"))
	if err != nil {
		return nil, fmt.Errorf("failed to search working files: %w", err)
	}
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	sort.Strings(matches)
	src := matches[0]
	if filepath.Dir(src) != s.workingDir {
		return nil, ErrNotFound
	}
	dst := filepath.Join(s.confirmedDir, OriginalName(src))

	if err := os.Link(src, dst); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrConflict, filepath.Base(dst))
		}
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to promote bill file: %w", err)
	}
	if err := os.Remove(src); err != nil {
		_ = os.Remove(dst)
		return nil, fmt.Errorf("failed to remove working file: %w", err)
	}

	return &Promoted{BillID: billID, From: src, To: dst}, nil
}

// Demote implements Store.
func (s *LocalStore) Demote(_ context.Context, p *Promoted) error {
	if err := os.Rename(p.To, p.From); err != nil {
		return fmt.Errorf("failed to demote bill file: %w", err)
	}
	return nil
}

func globEscape(s string) string {
	var out []rune
	for _, r := range s {
		switch r {
		case '*', '?', '[', '\\':
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
