//go:build !gcp

package runpackstore

import (
	"context"
	"fmt"
	"net/url"
)

func openGCS(ctx context.Context, u *url.URL) (Store, error) {
	return nil, fmt.Errorf("runpackstore: gs:// requires building with -tags gcp")
}
