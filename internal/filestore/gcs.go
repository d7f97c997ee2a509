package filestore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// GCSStore keeps bills in a Cloud Storage bucket under working/ and confirmed/.
type GCSStore struct {
	bucket     *storage.BucketHandle
	bucketName string
}

// NewGCSStore creates a store backed by the named bucket.
func NewGCSStore(client *storage.Client, bucketName string) *GCSStore {
	return &GCSStore{bucket: client.Bucket(bucketName), bucketName: bucketName}
}

func workingKey(name string) string   { return path.Join("working", name) }
func confirmedKey(name string) string { return path.Join("confirmed", name) }

func (s *GCSStore) uri(key string) string {
	return "gs://" + s.bucketName + "/" + key
}

// SaveWorking implements Store.
func (s *GCSStore) SaveWorking(ctx context.Context, billID, filename, contentType string, data []byte) (string, error) {
	if !ValidBillID(billID) {
		return "", fmt.Errorf("%w: %q", ErrInvalidBillID, billID)
	}
	key := workingKey(WorkingName(billID, filename, contentType))
	w := s.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize object %s: %w", key, err)
	}
	return s.uri(key), nil
}

// Promote implements Store. The copy carries a DoesNotExist precondition so
// Cloud Storage rejects it atomically when the confirmed name is taken.
func (s *GCSStore) Promote(ctx context.Context, billID string) (*Promoted, error) {
	if !ValidBillID(billID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBillID, billID)
	}
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: workingKey(billID + Separator)})
	attrs, err := it.Next()
	if errors.Is(err, iterator.Done) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list working objects: %w", err)
	}

	srcKey := attrs.Name
	dstKey := confirmedKey(OriginalName(srcKey))
	src := s.bucket.Object(srcKey)
	dst := s.bucket.Object(dstKey).If(storage.Conditions{DoesNotExist: true})

	if _, err := dst.CopierFrom(src).Run(ctx); err != nil {
		if isPreconditionFailed(err) {
			return nil, fmt.Errorf("%w: %s", ErrConflict, path.Base(dstKey))
		}
		return nil, fmt.Errorf("failed to copy %s: %w", srcKey, err)
	}
	if err := src.Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		_ = s.bucket.Object(dstKey).Delete(ctx)
		return nil, fmt.Errorf("failed to delete working object: %w", err)
	}

	return &Promoted{BillID: billID, From: s.uri(srcKey), To: s.uri(dstKey)}, nil
}

// Demote implements Store.
func (s *GCSStore) Demote(ctx context.Context, p *Promoted) error {
	prefix := "gs://" + s.bucketName + "/"
	fromKey, toKey := strings.TrimPrefix(p.From, prefix), strings.TrimPrefix(p.To, prefix)

	src := s.bucket.Object(toKey)
	if _, err := s.bucket.Object(fromKey).CopierFrom(src).Run(ctx); err != nil {
		return fmt.Errorf("failed to restore working object: %w", err)
	}
	if err := src.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete confirmed object: %w", err)
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
