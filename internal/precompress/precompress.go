// Package precompress writes gzip variants next to the files of a build output
// directory so the server can negotiate them.
package precompress

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/gzip"

	"github.com/f4ah6o/magicserver-go/internal/catalog"
	"github.com/f4ah6o/magicserver-go/internal/negotiate"
)

// DefaultMinSize is the smallest file worth compressing.
const DefaultMinSize = 256

// DefaultTypes lists media type prefixes that compress well.
var DefaultTypes = []string{
	"text/",
	"application/javascript",
	"application/json",
	"application/xml",
	"application/wasm",
	"image/svg+xml",
}

// Options controls which files are compressed and how.
type Options struct {
	// Level is a gzip compression level; 0 selects gzip.BestCompression.
	Level int
	// MinSize skips files smaller than this many bytes. Zero compresses
	// every eligible file; a negative value selects DefaultMinSize.
	MinSize int
	// Types are media type prefixes eligible for compression.
	Types []string
}

// Result summarizes a Dir run.
type Result struct {
	// Written lists the catalog keys of every .gz file created or replaced.
	Written  []string
	Skipped  int
	BytesIn  int64
	BytesOut int64
}

// String returns a one-line summary such as "12 files, 1.2 MB -> 310 kB".
func (r *Result) String() string {
	return fmt.Sprintf("%d files, %s -> %s (%d skipped)",
		len(r.Written), humanize.Bytes(uint64(r.BytesIn)), humanize.Bytes(uint64(r.BytesOut)), r.Skipped)
}

// Dir compresses every eligible file under root matching pattern and writes
// the result to the same path plus ".gz". Existing .gz files are never used as
// input. A variant that would not be smaller than its source is not written.
func Dir(root, pattern string, opts Options) (*Result, error) {
	if opts.Level == 0 {
		opts.Level = gzip.BestCompression
	}
	if opts.MinSize < 0 {
		opts.MinSize = DefaultMinSize
	}
	if opts.Types == nil {
		opts.Types = DefaultTypes
	}

	cat, err := catalog.Build(root, pattern)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, key := range cat.Keys() {
		entry, _ := cat.Lookup(key)
		if strings.HasSuffix(key, negotiate.GzipSuffix) || len(entry.Bytes) < opts.MinSize || !eligible(entry.MediaType, opts.Types) {
			res.Skipped++
			continue
		}

		data, err := compress(entry.Bytes, opts.Level)
		if err != nil {
			return nil, fmt.Errorf("compress %s: %w", key, err)
		}
		if len(data) >= len(entry.Bytes) {
			res.Skipped++
			continue
		}

		dst := filepath.Join(root, filepath.FromSlash(key)) + negotiate.GzipSuffix
		if err := writeFile(dst, data); err != nil {
			return nil, err
		}
		res.Written = append(res.Written, key+negotiate.GzipSuffix)
		res.BytesIn += int64(len(entry.Bytes))
		res.BytesOut += int64(len(data))
	}
	return res, nil
}

func eligible(mediaType string, types []string) bool {
	for _, t := range types {
		if strings.HasPrefix(mediaType, t) {
			return true
		}
	}
	return false
}

func compress(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeFile replaces dst through a temporary file so readers never see a
// partially written variant.
func writeFile(dst string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".precompress-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", dst, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", dst, err)
	}
	return os.Rename(tmp.Name(), dst)
}
