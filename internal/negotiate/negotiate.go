// Package negotiate picks between an asset and its pre-compressed gzip variant.
package negotiate

import (
	"errors"
	"strings"

	"github.com/f4ah6o/magicserver-go/internal/catalog"
)

const (
	// Gzip is the Content-Encoding value for gzip variants.
	Gzip = "gzip"
	// GzipSuffix is appended to a key to find its gzip variant.
	GzipSuffix = ".gz"
)

// ErrNotFound is returned when there is nothing to serve for a key.
var ErrNotFound = errors.New("file not found")

// Variant is the negotiated response body.
type Variant struct {
	Bytes []byte
	// MediaType always comes from the uncompressed entry.
	MediaType string
	// Encoding is Gzip when the compressed variant was chosen, empty otherwise.
	Encoding string
}

// Select looks up key and, if acceptEncoding mentions gzip and a non-empty
// key+".gz" entry exists, returns the compressed bytes instead. An empty
// acceptEncoding (including a missing header) never selects gzip.
//
// Keys that are absent or hold no bytes yield ErrNotFound, even when a gzip
// variant exists for them.
func Select(key, acceptEncoding string, cat catalog.Lookuper) (Variant, error) {
	entry, ok := cat.Lookup(key)
	if !ok || len(entry.Bytes) == 0 {
		return Variant{}, ErrNotFound
	}

	v := Variant{Bytes: entry.Bytes, MediaType: entry.MediaType}

	if strings.Contains(acceptEncoding, Gzip) {
		if gz, ok := cat.Lookup(key + GzipSuffix); ok && len(gz.Bytes) > 0 {
			v.Bytes = gz.Bytes
			v.Encoding = Gzip
		}
	}
	return v, nil
}
