package main

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FileStore persists uploaded image bytes and returns the public path to
// store alongside the post. Where the bytes actually live is not this
// service's concern.
type FileStore interface {
	Save(name string, r io.Reader) (string, error)
}

type DiskStore struct {
	root string
}

func NewDiskStore(root string) *DiskStore {
	return &DiskStore{root: root}
}

func (d *DiskStore) Save(name string, r io.Reader) (string, error) {
	dir := filepath.Join(d.root, "post-images")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	filename := uuid.New().String() + strings.ToLower(filepath.Ext(name))
	f, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", err
	}
	return path.Join("uploads", "post-images", filename), nil
}
