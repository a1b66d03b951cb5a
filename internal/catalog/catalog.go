// Package catalog holds the read-only, in-memory snapshot of a site's build output.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/unicode/norm"
)

// DefaultMediaType is used for files whose extension has no registered type.
const DefaultMediaType = "application/octet-stream"

// ErrBuild is matched by every error returned from Build.
var ErrBuild = errors.New("catalog build failed")

// BuildError describes why a catalog could not be built.
type BuildError struct {
	// Path is the directory or file that caused the failure.
	Path string
	Err  error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("catalog: %s: %v", e.Path, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// Is reports ErrBuild as a match so callers don't need to know the concrete type.
func (e *BuildError) Is(target error) bool { return target == ErrBuild }

// FileEntry is a single cataloged asset.
type FileEntry struct {
	Bytes     []byte
	MediaType string
}

// Lookuper is the read side of a catalog.
type Lookuper interface {
	Lookup(key string) (FileEntry, bool)
}

// Catalog maps keys such as "/css/app.css" to file entries.
// It is never written after construction, so concurrent lookups need no locking.
type Catalog struct {
	files map[string]FileEntry
	size  int64
}

// Build scans root for regular files matching pattern and loads each of them
// into memory. Pattern uses doublestar syntax and is matched at any depth, so
// "*.js" selects both /app.js and /js/lib.js. A missing root or any unreadable file fails the whole build.
func Build(root, pattern string) (*Catalog, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &BuildError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &BuildError{Path: root, Err: errors.New("not a directory")}
	}
	pattern = AnyDepth(pattern)
	if !doublestar.ValidatePattern(pattern) {
		return nil, &BuildError{Path: pattern, Err: doublestar.ErrBadPattern}
	}

	fsys := os.DirFS(root)
	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
	if err != nil {
		return nil, &BuildError{Path: root, Err: err}
	}

	files := make(map[string]FileEntry, len(matches))
	var size int64
	for _, name := range matches {
		info, err := fs.Stat(fsys, name)
		if err != nil {
			return nil, &BuildError{Path: path.Join(root, name), Err: err}
		}
		if !info.Mode().IsRegular() {
			continue
		}

		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, &BuildError{Path: path.Join(root, name), Err: err}
		}

		files[Key(name)] = FileEntry{
			Bytes:     data,
			MediaType: MediaType(name),
		}
		size += int64(len(data))
	}

	return &Catalog{files: files, size: size}, nil
}

// AnyDepth makes pattern match at every directory level below the root by
// prefixing "**/", unless it already starts with "**".
func AnyDepth(pattern string) string {
	pattern = strings.TrimPrefix(pattern, "/")
	if strings.HasPrefix(pattern, "**") {
		return pattern
	}
	return "**/" + pattern
}

// New creates a catalog from entries that are already in memory.
// The map is copied; later changes to entries are not observed.
func New(entries map[string]FileEntry) *Catalog {
	files := make(map[string]FileEntry, len(entries))
	var size int64
	for k, v := range entries {
		files[Key(k)] = v
		size += int64(len(v.Bytes))
	}
	return &Catalog{files: files, size: size}
}

// Key turns a slash-separated path relative to the output root into a catalog key.
func Key(name string) string {
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	return norm.NFC.String(name)
}

// MediaType returns the media type registered for name's extension.
func MediaType(name string) string {
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return DefaultMediaType
}

// Lookup returns the entry stored under key. Matching is exact and case-sensitive.
func (c *Catalog) Lookup(key string) (FileEntry, bool) {
	entry, ok := c.files[key]
	return entry, ok
}

// Len returns the number of cataloged files.
func (c *Catalog) Len() int { return len(c.files) }

// Size returns the total number of bytes held by the catalog.
func (c *Catalog) Size() int64 { return c.size }

// Keys returns every key in lexical order.
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.files))
	for k := range c.files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
