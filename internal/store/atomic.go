package store

import (
	"io"
	"os"
	"path/filepath"
)

// WriteFileAtomic replaces path with data. Readers observe either the old
// or the new content; the data and the directory entry are synced before it
// returns.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	return replaceFile(path, true, func(tmp *os.File) error {
		if _, err := tmp.Write(data); err != nil {
			return err
		}
		return tmp.Chmod(perm)
	})
}

// CopyFile replaces dst with a byte copy of src. The result never shares an
// inode with src.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	return replaceFile(dst, false, func(tmp *os.File) error {
		_, err := io.Copy(tmp, in)
		return err
	})
}

// replaceFile fills a temporary sibling of path and renames it over path.
// With durable set the file is synced before the rename and the directory
// after it.
func replaceFile(path string, durable bool, fill func(tmp *os.File) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	renamed := false
	defer func() {
		_ = tmp.Close()
		if !renamed {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := fill(tmp); err != nil {
		return err
	}
	if durable {
		if err := tmp.Sync(); err != nil {
			return err
		}
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}
	renamed = true
	if !durable {
		return nil
	}
	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
