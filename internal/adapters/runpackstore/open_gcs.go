//go:build gcp

package runpackstore

import (
	"context"
	"net/url"
	"strings"
)

func openGCS(ctx context.Context, u *url.URL) (Store, error) {
	return NewGCSStore(ctx, GCSStoreConfig{
		Bucket: u.Host,
		Prefix: strings.TrimPrefix(u.Path, "/"),
	})
}
