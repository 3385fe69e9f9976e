package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// tmpSuffix marks in-flight writes; Stats skips them.
const tmpSuffix = ".tmp"

// DiskStore keeps each blob as a file under a root directory, mirroring the
// blob path. Writes go to a temporary file that is renamed into place, so a
// reader never sees a partially written blob.
type DiskStore struct {
	root string
}

// NewDiskStore creates root if needed and returns a store rooted there.
func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create volume dir %s: %w", root, err)
	}
	return &DiskStore{root: root}, nil
}

func (d *DiskStore) file(p string) (string, error) {
	p, err := cleanPath(p)
	if err != nil {
		return "", err
	}
	return filepath.Join(d.root, filepath.FromSlash(p)), nil
}

func (d *DiskStore) Get(p string) ([]byte, error) {
	name, err := d.file(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (d *DiskStore) Put(p string, value []byte) error {
	name, err := d.file(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(name), filepath.Base(name)+".*"+tmpSuffix)
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), name)
}

func (d *DiskStore) Delete(p string) error {
	name, err := d.file(p)
	if err != nil {
		return err
	}
	err = os.Remove(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (d *DiskStore) Stats() (StoreStats, error) {
	var stats StoreStats
	err := filepath.WalkDir(d.root, func(_ string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || strings.HasSuffix(entry.Name(), tmpSuffix) {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		stats.Blobs++
		stats.Bytes += info.Size()
		return nil
	})
	return stats, err
}
