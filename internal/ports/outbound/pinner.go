package outbound

import (
	"context"
	"io"
)

// Pinner defines the interface to the IPFS pinning service.
type Pinner interface {
	// PinFile uploads a file and returns its ipfs:// URI.
	PinFile(ctx context.Context, name string, r io.Reader) (string, error)

	// PinJSON pins a JSON document and returns its ipfs:// URI.
	PinJSON(ctx context.Context, name string, v interface{}) (string, error)
}

// MetadataFetcher resolves ipfs:// URIs through a gateway.
type MetadataFetcher interface {
	// FetchJSON retrieves and decodes a pinned JSON document into v.
	FetchJSON(ctx context.Context, uri string, v interface{}) error
}
