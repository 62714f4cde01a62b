package fs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Path validation errors.
var (
	ErrPathEscape  = errors.New("path escapes project root")
	ErrInvalidPath = errors.New("invalid path")
)

// FS is the filesystem capability handed to the patcher and the tree
// builder. Keeping it an interface lets tests run against a map-backed
// fake instead of a temp directory.
type FS interface {
	Read(path string) ([]byte, error)
	Write(path string, data []byte) error
	Delete(path string) error
	Stat(path string) (os.FileInfo, error)
}

// DiskFS is the real, root-anchored implementation. All paths are
// project-relative; resolution rejects anything escaping the root.
type DiskFS struct {
	Root string
}

func NewDiskFS(root string) (*DiskFS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &DiskFS{Root: abs}, nil
}

// Resolve joins the root with a relative path, ensuring the result stays
// inside the root. "." and ".." components are cleaned before the check.
func (d *DiskFS) Resolve(rel string) (string, error) {
	if rel == "" {
		return "", ErrInvalidPath
	}
	if strings.ContainsRune(rel, '\x00') {
		return "", ErrInvalidPath
	}
	joined := filepath.Join(d.Root, filepath.FromSlash(rel))
	out, err := filepath.Rel(d.Root, joined)
	if err != nil {
		return "", err
	}
	if out == ".." || strings.HasPrefix(out, ".."+string(filepath.Separator)) {
		return "", ErrPathEscape
	}
	return joined, nil
}

func (d *DiskFS) Read(path string) ([]byte, error) {
	abs, err := d.Resolve(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(abs)
}

func (d *DiskFS) Write(path string, data []byte) error {
	abs, err := d.Resolve(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(abs); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(abs, data, 0o644)
}

func (d *DiskFS) Delete(path string) error {
	abs, err := d.Resolve(path)
	if err != nil {
		return err
	}
	return os.Remove(abs)
}

func (d *DiskFS) Stat(path string) (os.FileInfo, error) {
	abs, err := d.Resolve(path)
	if err != nil {
		return nil, err
	}
	return os.Stat(abs)
}

// Canonical normalizes a path for use as a selection or tree key:
// forward slashes, no leading "./", cleaned.
func Canonical(path string) string {
	p := strings.ReplaceAll(path, "\\", "/")
	p = strings.TrimPrefix(p, "./")
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return strings.TrimSuffix(p, "/")
}
