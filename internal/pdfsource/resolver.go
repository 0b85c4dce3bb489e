package pdfsource

import (
	"context"
	"fmt"

	"github.com/pdfmill/pdfmill/internal/config"
	"github.com/pdfmill/pdfmill/internal/fetch"
	"github.com/sirupsen/logrus"
)

// Fetcher retrieves PDF bytes from a remote URL
type Fetcher interface {
	FetchPDF(ctx context.Context, logger *logrus.Logger, rawURL string) ([]byte, string, error)
}

// Resolver turns FileItems into size-checked PDF bytes
type Resolver struct {
	cfg     *config.Config
	fetcher Fetcher
}

// NewResolver creates a Resolver. A nil fetcher selects the default HTTP client.
func NewResolver(cfg *config.Config, fetcher Fetcher) *Resolver {
	if fetcher == nil {
		fetcher = fetch.NewClient(cfg)
	}
	return &Resolver{cfg: cfg, fetcher: fetcher}
}

// Resolve obtains the PDF bytes for an item: an embedded blob wins over a
// URL fetch, and the result is validated against the configured size limit.
func (r *Resolver) Resolve(ctx context.Context, logger *logrus.Logger, item *FileItem) ([]byte, error) {
	var (
		data []byte
		err  error
	)

	switch {
	case item.Blob != "":
		data, err = item.DecodeBlob()
	case item.SourceURL() != "":
		data, _, err = r.fetcher.FetchPDF(ctx, logger, item.SourceURL())
	default:
		return nil, fmt.Errorf("no usable PDF source found (need 'blob' or absolute 'url'/'remote_url')")
	}
	if err != nil {
		return nil, err
	}

	if err := r.cfg.CheckPDFSize(int64(len(data))); err != nil {
		return nil, err
	}

	return data, nil
}
