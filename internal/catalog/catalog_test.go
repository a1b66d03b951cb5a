package catalog

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Failed to create dir for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	return root
}

func TestBuildFidelity(t *testing.T) {
	files := map[string]string{
		"index.html":        "<html></html>",
		"css/app.css":       "body{}",
		"js/vendor/a.js":    "var a;",
		"js/vendor/a.js.gz": "\x1f\x8b",
		"data.unknownext":   "raw",
	}
	root := writeTree(t, files)

	cat, err := Build(root, "**/*")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if cat.Len() != len(files) {
		t.Errorf("Len() = %d, want %d", cat.Len(), len(files))
	}

	for name, content := range files {
		entry, ok := cat.Lookup("/" + name)
		if !ok {
			t.Errorf("Lookup(%q) missing", "/"+name)
			continue
		}
		if !bytes.Equal(entry.Bytes, []byte(content)) {
			t.Errorf("Lookup(%q) bytes = %q, want %q", "/"+name, entry.Bytes, content)
		}
	}

	if entry, _ := cat.Lookup("/data.unknownext"); entry.MediaType != DefaultMediaType {
		t.Errorf("unknown extension media type = %q, want %q", entry.MediaType, DefaultMediaType)
	}
	if entry, _ := cat.Lookup("/css/app.css"); entry.MediaType != MediaType("app.css") {
		t.Errorf("css media type = %q, want %q", entry.MediaType, MediaType("app.css"))
	}
}

func TestBuildExcludesDirectoriesAndUnmatched(t *testing.T) {
	root := writeTree(t, map[string]string{
		"index.html":      "home",
		"blog/post.html":  "post",
		"blog/cover.png":  "png",
		"assets/logo.svg": "svg",
		"js/lib.js":       "lib",
		"app.js":          "app",
	})

	cat, err := Build(root, "**/*.html")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	tests := []struct {
		key  string
		want bool
	}{
		{"/index.html", true},
		{"/blog/post.html", true},
		{"/blog/cover.png", false},
		{"/blog", false},
		{"/assets", false},
		{"/Index.html", false},
		{"/app.js", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if _, got := cat.Lookup(tt.key); got != tt.want {
				t.Errorf("Lookup(%q) found = %v, want %v", tt.key, got, tt.want)
			}
		})
	}

	nested, err := Build(root, "*.js")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	for _, key := range []string{"/app.js", "/js/lib.js"} {
		if _, ok := nested.Lookup(key); !ok {
			t.Errorf("Build(%q) missing %s, keys = %v", "*.js", key, nested.Keys())
		}
	}
	if nested.Len() != 2 {
		t.Errorf("Build(%q) Len() = %d, want 2", "*.js", nested.Len())
	}
}

func TestAnyDepth(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{"*.js", "**/*.js"},
		{"/*.js", "**/*.js"},
		{"**/*", "**/*"},
		{"css/*.css", "**/css/*.css"},
	}
	for _, tt := range tests {
		if got := AnyDepth(tt.pattern); got != tt.want {
			t.Errorf("AnyDepth(%q) = %q, want %q", tt.pattern, got, tt.want)
		}
	}
}

func TestBuildKeysAreNFC(t *testing.T) {
	// "é" as e + combining acute accent.
	decomposed := "cafe\u0301.html"
	root := writeTree(t, map[string]string{decomposed: "menu"})

	cat, err := Build(root, "**/*")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if _, ok := cat.Lookup("/caf\u00e9.html"); !ok {
		t.Errorf("Lookup of composed key failed, keys = %v", cat.Keys())
	}
}

func TestBuildErrors(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		root    string
		pattern string
	}{
		{"Missing root", filepath.Join(t.TempDir(), "missing"), "**/*"},
		{"Root is a file", file, "**/*"},
		{"Bad pattern", t.TempDir(), "[a-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, err := Build(tt.root, tt.pattern)
			if err == nil {
				t.Fatalf("Build() = %v, want error", cat)
			}
			if !errors.Is(err, ErrBuild) {
				t.Errorf("errors.Is(err, ErrBuild) = false for %v", err)
			}
			var be *BuildError
			if !errors.As(err, &be) {
				t.Errorf("error %T is not a *BuildError", err)
			}
		})
	}
}

func TestBuildUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}
	root := writeTree(t, map[string]string{"secret.txt": "x", "ok.txt": "y"})
	if err := os.Chmod(filepath.Join(root, "secret.txt"), 0o000); err != nil {
		t.Fatal(err)
	}

	if _, err := Build(root, "**/*"); !errors.Is(err, ErrBuild) {
		t.Errorf("Build() error = %v, want ErrBuild", err)
	}
}

func TestNewCopiesEntries(t *testing.T) {
	entries := map[string]FileEntry{
		"/a.txt": {Bytes: []byte("abc"), MediaType: "text/plain"},
		"b.txt":  {Bytes: []byte("de"), MediaType: "text/plain"},
	}
	cat := New(entries)
	delete(entries, "/a.txt")

	if _, ok := cat.Lookup("/a.txt"); !ok {
		t.Error("catalog observed a change to the source map")
	}
	if _, ok := cat.Lookup("/b.txt"); !ok {
		t.Error("relative key was not rooted")
	}
	if cat.Size() != 5 {
		t.Errorf("Size() = %d, want 5", cat.Size())
	}
	if got := cat.Keys(); len(got) != 2 || got[0] != "/a.txt" || got[1] != "/b.txt" {
		t.Errorf("Keys() = %v", got)
	}
}
