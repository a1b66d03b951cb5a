// Package linkcheck verifies that local links in cataloged HTML pages resolve.
package linkcheck

// BrokenLink represents a single reference that the server would answer with a 404.
// It includes the page the reference appears on, the reference as written, and
// the catalog key it resolved to.
type BrokenLink struct {
	// Page is the catalog key of the HTML page containing the reference.
	Page string `json:"page"`
	// Href is the attribute value exactly as written in the page.
	Href string `json:"href"`
	// Resolved is the catalog key the request path resolved to.
	Resolved string `json:"resolved"`
}

// Report summarizes a link check over the whole catalog.
type Report struct {
	// Pages is the number of HTML pages inspected.
	Pages int `json:"pages"`
	// Links is the number of local references followed.
	Links int `json:"links"`
	// Broken lists every reference that did not resolve to servable content,
	// ordered by page and then by position in the page.
	Broken []BrokenLink `json:"broken"`
}

// OK reports whether every link resolved.
func (r *Report) OK() bool {
	return len(r.Broken) == 0
}
