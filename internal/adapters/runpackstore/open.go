package runpackstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Open builds a Store from a RUNPACK_STORE_URL-style value: file://<dir>,
// s3://<bucket>/<prefix>, or (with the gcp build tag) gs://<bucket>/<prefix>.
func Open(ctx context.Context, storeURL string) (Store, error) {
	u, err := url.Parse(storeURL)
	if err != nil {
		return nil, fmt.Errorf("runpackstore: parse %q: %w", storeURL, err)
	}

	switch u.Scheme {
	case "file", "":
		dir := u.Path
		if u.Host != "" {
			dir = u.Host + dir
		}
		if dir == "" {
			dir = "./runpacks"
		}
		return NewFileStore(dir)
	case "s3":
		return NewS3Store(ctx, S3StoreConfig{
			Bucket: u.Host,
			Prefix: strings.TrimPrefix(u.Path, "/"),
		})
	case "gs":
		return openGCS(ctx, u)
	default:
		return nil, fmt.Errorf("runpackstore: unsupported scheme %q", u.Scheme)
	}
}
