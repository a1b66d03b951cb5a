package linkcheck

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/f4ah6o/magicserver-go/internal/catalog"
	"github.com/f4ah6o/magicserver-go/internal/config"
	"github.com/f4ah6o/magicserver-go/internal/negotiate"
	"github.com/f4ah6o/magicserver-go/internal/resolver"
)

// linkSelector matches elements whose href or src points at another asset.
const linkSelector = "a[href], link[href], script[src], img[src], source[src], iframe[src]"

// Check parses every HTML page in cat and follows each local reference through
// the same resolution and negotiation a live request would use.
//
// External URLs (with a scheme or host), fragment-only links and query-only
// links are skipped. Relative references are resolved against the page's key.
func Check(cat *catalog.Catalog, cfg *config.Config) (*Report, error) {
	report := &Report{Broken: []BrokenLink{}}

	for _, key := range cat.Keys() {
		entry, _ := cat.Lookup(key)
		if !strings.HasPrefix(entry.MediaType, "text/html") {
			continue
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(entry.Bytes))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", key, err)
		}
		report.Pages++

		base := &url.URL{Path: key}
		for _, n := range doc.Find(linkSelector).Nodes {
			ref := reference(n)
			target, ok := localPath(base, ref)
			if !ok {
				continue
			}
			report.Links++

			resolved := resolver.Resolve(target, cfg.MenuItems, cfg.PageItems, cat)
			if _, err := negotiate.Select(resolved, "", cat); err != nil {
				report.Broken = append(report.Broken, BrokenLink{Page: key, Href: ref, Resolved: resolved})
			}
		}
	}

	return report, nil
}

// reference returns the href or src attribute of n.
func reference(n *html.Node) string {
	for _, attr := range n.Attr {
		switch attr.Key {
		case "href", "src":
			return strings.TrimSpace(attr.Val)
		}
	}
	return ""
}

// localPath resolves ref against base and returns the request path it would
// produce, or false if ref leaves the site or carries no path.
func localPath(base *url.URL, ref string) (string, bool) {
	if ref == "" || strings.HasPrefix(ref, "#") || strings.HasPrefix(ref, "?") {
		return "", false
	}
	u, err := url.Parse(ref)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	return base.ResolveReference(u).Path, true
}

// WriteText writes r in a human-readable form.
func WriteText(w io.Writer, r *Report) error {
	for _, b := range r.Broken {
		if _, err := fmt.Fprintf(w, "%s: %s -> %s\n", b.Page, b.Href, b.Resolved); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "checked %d links in %d pages, %d broken\n", r.Links, r.Pages, len(r.Broken))
	return err
}

// WriteJSON writes r as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
