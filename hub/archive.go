// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hub

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/juju/errors"
	"github.com/klauspost/compress/zip"
)

// extractArchive unpacks the zip archive at archivePath into dest, which
// must already exist. Repository archives wrap their contents in a single
// top-level directory; that directory is stripped so dest becomes the
// repository root.
func extractArchive(archivePath, dest string, logger Logger) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return errors.Annotatef(err, "opening archive %q", archivePath)
	}
	defer func() { _ = r.Close() }()

	prefix := commonPrefix(r.File)
	for _, f := range r.File {
		name := strings.TrimPrefix(f.Name, prefix)
		if name == "" {
			continue
		}
		target, err := archiveTarget(dest, name)
		if err != nil {
			return errors.Trace(err)
		}

		mode := f.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0755); err != nil {
				return errors.Trace(err)
			}
		case mode&os.ModeSymlink != 0:
			logger.Debugf("skipping symlink %q in archive", f.Name)
		default:
			if err := extractFile(f, target); err != nil {
				return errors.Annotatef(err, "extracting %q", f.Name)
			}
		}
	}
	return nil
}

// archiveTarget joins an archive entry name onto dest, refusing names that
// would land outside it.
func archiveTarget(dest, name string) (string, error) {
	cleaned := path.Clean("/" + name)
	if cleaned == "/" {
		return dest, nil
	}
	if path.IsAbs(name) || strings.Contains(name, `\`) || cleaned != "/"+strings.TrimSuffix(name, "/") {
		return "", errors.NotValidf("archive entry %q", name)
	}
	return filepath.Join(dest, filepath.FromSlash(cleaned[1:])), nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.Trace(err)
	}
	rc, err := f.Open()
	if err != nil {
		return errors.Trace(err)
	}
	defer func() { _ = rc.Close() }()

	perm := f.Mode().Perm()
	if perm == 0 {
		perm = 0644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return errors.Trace(err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return errors.Trace(err)
	}
	return errors.Trace(out.Close())
}

// commonPrefix returns the single top-level directory shared by every
// entry, including its trailing slash, or "" if there isn't one.
func commonPrefix(files []*zip.File) string {
	var prefix string
	for _, f := range files {
		top, _, nested := strings.Cut(f.Name, "/")
		if !nested {
			// A file at the top level means there is nothing to strip.
			return ""
		}
		if prefix == "" {
			prefix = top
		} else if top != prefix {
			return ""
		}
	}
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}
