//go:build gcp

package runpackstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// GCSStore is a Store backed by Google Cloud Storage, for RUNPACK_STORE_URL
// values of the form gs://<bucket>/<prefix>. Built behind the gcp tag so a
// plain build never pulls in the GCP client unless the deployment actually
// wants it.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

type GCSStoreConfig struct {
	Bucket string
	Prefix string
}

func NewGCSStore(ctx context.Context, cfg GCSStoreConfig) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("runpackstore: gcs client: %w", err)
	}
	return &GCSStore{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *GCSStore) Put(ctx context.Context, rootHash string, bundle []byte) error {
	key := objectKey(s.prefix, rootHash)
	obj := s.client.Bucket(s.bucket).Object(key)

	if _, err := obj.Attrs(ctx); err == nil {
		return nil
	}

	w := obj.NewWriter(ctx)
	w.ContentType = "application/gzip"
	if _, err := w.Write(bundle); err != nil {
		_ = w.Close()
		return fmt.Errorf("runpackstore: gcs write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("runpackstore: gcs close: %w", err)
	}
	return nil
}

func (s *GCSStore) Get(ctx context.Context, rootHash string) ([]byte, error) {
	key := objectKey(s.prefix, rootHash)
	obj := s.client.Bucket(s.bucket).Object(key)

	r, err := obj.NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("runpackstore: gcs get %s: %w", rootHash, err)
	}
	defer func() { _ = r.Close() }()

	return io.ReadAll(r)
}

func (s *GCSStore) Exists(ctx context.Context, rootHash string) (bool, error) {
	key := objectKey(s.prefix, rootHash)
	obj := s.client.Bucket(s.bucket).Object(key)

	_, err := obj.Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("runpackstore: gcs attrs: %w", err)
	}
	return true, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
