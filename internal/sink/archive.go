// Package sink delivers a generated bundle: as a zip archive or as a
// commit pushed to a git remote.
package sink

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Archive zips every regular file under dir into a sibling file called
// name and returns its path. The archive itself is never part of the walk.
func Archive(dir, name string) (path string, err error) {
	path = filepath.Join(filepath.Dir(filepath.Clean(dir)), name)

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}
	defer func() {
		if closeErr := out.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("close archive: %w", closeErr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	zw := zip.NewWriter(out)
	walkErr := filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.Type().IsRegular() || p == path {
			return nil
		}
		rel, relErr := filepath.Rel(dir, p)
		if relErr != nil {
			return relErr
		}
		return addFile(zw, p, filepath.ToSlash(rel))
	})
	if walkErr != nil {
		return "", fmt.Errorf("archive %s: %w", dir, walkErr)
	}
	if err = zw.Close(); err != nil {
		return "", fmt.Errorf("finish archive: %w", err)
	}
	return path, nil
}

func addFile(zw *zip.Writer, src, name string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}
