package fs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// FS is a read-only file system rooted at a directory on disk.
type FS interface {
	fs.FS
	RootDir() string
}

var _ FS = (*rootDirFS)(nil)

func New(entry string) FS {
	return &rootDirFS{entry: entry, FS: os.DirFS(entry)}
}

type rootDirFS struct {
	fs.FS
	entry string
}

func (r rootDirFS) RootDir() string {
	return r.entry
}

// Mkdir checks if the provided path exists and creates it if it does not.
func Mkdir(pth string) error {
	if _, err := os.Stat(pth); os.IsNotExist(err) {
		if err = os.MkdirAll(pth, os.ModePerm); err != nil {
			return fmt.Errorf("os.MkdirAll: %w", err)
		}
	}

	return nil
}

// WriteFile creates or truncates pth with 0644 permissions, passes it to write and
// syncs it to disk. Missing parent directories are created. The file is closed on
// every path.
func WriteFile(pth string, write func(w io.Writer) error) (err error) {
	if err := Mkdir(filepath.Dir(pth)); err != nil {
		return err
	}

	file, err := os.OpenFile(pth, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("os.OpenFile: %w", err)
	}

	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("file Close: %w", closeErr)
		}
	}()

	if err := write(file); err != nil {
		return err
	}

	if err := file.Sync(); err != nil {
		return fmt.Errorf("file Sync: %w", err)
	}

	return nil
}
