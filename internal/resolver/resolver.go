// Package resolver maps request paths to catalog keys.
package resolver

import (
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/f4ah6o/magicserver-go/internal/catalog"
	"github.com/f4ah6o/magicserver-go/internal/config"
)

// IndexKey is the application shell served for client-side routes.
const IndexKey = "/index.html"

// Resolve maps rawPath to a canonical catalog key.
//
// The steps are applied in order and the first match wins:
//   - a single trailing slash is stripped (never from "/" itself)
//   - a path equal to a menu item href, or to the href with '#' replaced by '/',
//     becomes IndexKey
//   - a path listed in pageItems becomes its target, but only if the target is
//     cataloged with a media type
//   - anything else is returned as is
//
// Hrefs, page keys and page targets from the config are percent-decoded and
// NFC-normalized before comparison, like the request path itself.
//
// The returned key may not exist in the catalog.
func Resolve(rawPath string, menuItems []config.MenuItem, pageItems map[string]string, cat catalog.Lookuper) string {
	path := Normalize(rawPath)

	if IsMenuRoute(path, menuItems) {
		return IndexKey
	}

	if target, ok := pageAlias(path, pageItems); ok {
		if entry, ok := cat.Lookup(target); ok && entry.MediaType != "" {
			return target
		}
	}

	return path
}

// pageAlias finds the target for path. Keys and targets are compared in
// canonical form so percent-encoded or decomposed config entries still match.
func pageAlias(path string, pageItems map[string]string) (string, bool) {
	if target, ok := pageItems[path]; ok {
		return canonical(target), true
	}
	for from, target := range pageItems {
		if canonical(from) == path {
			return canonical(target), true
		}
	}
	return "", false
}

// canonical decodes percent escapes in a configured path and NFC-normalizes
// it, matching the form of decoded request paths and catalog keys.
func canonical(p string) string {
	if decoded, err := url.PathUnescape(p); err == nil {
		p = decoded
	}
	return norm.NFC.String(p)
}

// Normalize NFC-normalizes path and removes one trailing slash.
func Normalize(path string) string {
	path = norm.NFC.String(path)
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}
	return path
}

// IsMenuRoute reports whether path is owned by the client-side router.
// Hrefs may be percent-encoded ("/%E2%99%A5") or written literally ("/♥").
func IsMenuRoute(path string, menuItems []config.MenuItem) bool {
	for _, item := range menuItems {
		href := canonical(item.Href)
		if href == path || strings.ReplaceAll(href, "#", "/") == path {
			return true
		}
	}
	return false
}
