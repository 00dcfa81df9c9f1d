// RealmDex Core
// Copyright (c) 2026 The RealmDex Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of RealmDex Core.
//
// RealmDex Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// RealmDex Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with RealmDex Core.  If not, see <http://www.gnu.org/licenses/>.

package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/realmdex/realmdex-core/pkg/helpers"
	"github.com/rs/zerolog/log"
	"github.com/ulikunitz/xz"
)

var errUnsafePath = errors.New("entry escapes extraction directory")

// safeJoin maps an archive entry name onto root, rejecting absolute names and
// names that climb out of root.
func safeJoin(root, name string) (string, error) {
	name = strings.ReplaceAll(name, `\`, "/")
	if strings.HasPrefix(name, "/") || (len(name) > 1 && name[1] == ':') {
		return "", fmt.Errorf("%w: absolute name %q", errUnsafePath, name)
	}
	clean := path.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", errUnsafePath, name)
	}
	dest := filepath.Join(root, filepath.FromSlash(clean))
	if !helpers.PathWithin(dest, root) {
		return "", fmt.Errorf("%w: %q", errUnsafePath, name)
	}
	return dest, nil
}

// tree is the staging directory an archive is unpacked into.
type tree struct {
	root     string
	resolved string
}

func newTree(root string) (*tree, error) {
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve staging directory: %w", err)
	}
	return &tree{root: root, resolved: resolved}, nil
}

// dest maps an entry name onto the tree. Every existing directory between
// the root and the entry must be a real directory: writing through a symlink
// left by an earlier entry is refused, whatever the link points at.
func (t *tree) dest(name string) (string, error) {
	dest, err := safeJoin(t.root, name)
	if err != nil {
		return "", err
	}
	if err := t.checkParents(dest); err != nil {
		return "", fmt.Errorf("%w: %q: %w", errUnsafePath, name, err)
	}
	return dest, nil
}

func (t *tree) checkParents(dest string) error {
	rel, err := filepath.Rel(t.root, filepath.Dir(dest))
	if err != nil {
		return fmt.Errorf("failed to relate path: %w", err)
	}
	if rel == "." {
		return nil
	}

	cur := t.root
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		cur = filepath.Join(cur, part)
		info, err := os.Lstat(cur)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		} else if err != nil {
			return fmt.Errorf("failed to stat %s: %w", part, err)
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			return fmt.Errorf("path goes through symlink %s", part)
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", part)
		}
	}
	return nil
}

// linkInside reports whether a symlink at dest pointing at target stays
// inside the tree by name. Links that only escape through other links are
// caught by dropEscapingLinks.
func (t *tree) linkInside(dest, target string) bool {
	if filepath.IsAbs(target) || strings.HasPrefix(strings.ReplaceAll(target, `\`, "/"), "/") {
		return false
	}
	resolved := filepath.Join(filepath.Dir(dest), filepath.FromSlash(target))
	return helpers.PathWithin(resolved, t.root)
}

// removeExisting removes whatever is at dest so a new entry can take its place.
func removeExisting(dest string) {
	err := os.Remove(dest)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msgf("error removing existing entry: %s", dest)
	}
}

func (t *tree) symlink(dest, target string) {
	if !t.linkInside(dest, target) {
		log.Warn().Msgf("skipping symlink pointing outside archive: %s -> %s", dest, target)
		return
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		log.Warn().Err(err).Msgf("skipping symlink: %s", dest)
		return
	}
	removeExisting(dest)
	if err := os.Symlink(target, dest); err != nil {
		log.Warn().Err(err).Msgf("could not create symlink: %s", dest)
	}
}

// dropEscapingLinks removes every symlink in the tree that does not resolve
// to a path inside it. A chain of links can escape even when each link looks
// safe on its own.
func (t *tree) dropEscapingLinks() error {
	err := filepath.WalkDir(t.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		if t.resolvesInside(p) {
			return nil
		}
		log.Warn().Msgf("removing symlink that resolves outside archive: %s", p)
		if err := os.Remove(p); err != nil {
			return fmt.Errorf("failed to remove escaping symlink: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to check symlinks: %w", err)
	}
	return nil
}

// resolvesInside follows the link at p. A dangling link is judged by walking
// its target one part at a time from the resolved parent directory, following
// every part that exists.
func (t *tree) resolvesInside(p string) bool {
	resolved, err := filepath.EvalSymlinks(p)
	if err == nil {
		return helpers.PathWithin(resolved, t.resolved)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return false
	}
	target, err := os.Readlink(p)
	if err != nil || filepath.IsAbs(target) {
		return false
	}
	cur, err := filepath.EvalSymlinks(filepath.Dir(p))
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(target), "/") {
		switch part {
		case "", ".":
			continue
		case "..":
			cur = filepath.Dir(cur)
			continue
		}
		next := filepath.Join(cur, part)
		r, err := filepath.EvalSymlinks(next)
		switch {
		case err == nil:
			cur = r
		case errors.Is(err, fs.ErrNotExist):
			cur = next
		default:
			return false
		}
	}
	return helpers.PathWithin(cur, t.resolved)
}

func filePerm(mode fs.FileMode) fs.FileMode {
	perm := mode.Perm()
	if perm == 0 {
		return 0o644
	}
	// owner must be able to rewrite on a repeat extraction
	return perm | 0o600
}

func writeFile(ctx context.Context, dest string, r io.Reader, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// never write through a link an earlier entry left at dest
	if info, err := os.Lstat(dest); err == nil && info.Mode()&fs.ModeSymlink != 0 {
		removeExisting(dest)
	}

	perm := filePerm(mode)
	//nolint:gosec // Safe: dest is checked by tree.dest
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	_, err = io.Copy(out, r)
	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(dest), err)
	}

	// OpenFile is subject to umask and keeps the mode of an existing file
	if err := os.Chmod(dest, perm); err != nil {
		return fmt.Errorf("failed to set mode: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("extraction cancelled: %w", err)
	}
	return nil
}

func extractZip(ctx context.Context, archivePath string, t *tree) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open zip: %w", err)
	}
	defer func() {
		if err := zr.Close(); err != nil {
			log.Warn().Err(err).Msgf("error closing zip: %s", archivePath)
		}
	}()

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("extraction cancelled: %w", err)
		}

		dest, err := t.dest(f.Name)
		if err != nil {
			return err
		}

		mode := f.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(dest, 0o750); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
		case mode&fs.ModeSymlink != 0:
			target, err := readZipEntry(f)
			if err != nil {
				return err
			}
			t.symlink(dest, target)
		case mode.IsRegular():
			if err := writeZipEntry(ctx, f, dest); err != nil {
				return err
			}
		default:
			log.Warn().Msgf("skipping special zip entry: %s", f.Name)
		}
	}
	return nil
}

func readZipEntry(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer func() {
		if err := rc.Close(); err != nil {
			log.Warn().Err(err).Msgf("error closing zip entry: %s", f.Name)
		}
	}()
	data, err := io.ReadAll(io.LimitReader(rc, 4096))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", f.Name, err)
	}
	return string(data), nil
}

func writeZipEntry(ctx context.Context, f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer func() {
		if err := rc.Close(); err != nil {
			log.Warn().Err(err).Msgf("error closing zip entry: %s", f.Name)
		}
	}()
	return writeFile(ctx, dest, rc, f.Mode())
}

func extractTarFile(ctx context.Context, archivePath string, format Format, t *tree) error {
	//nolint:gosec // Safe: archive path is built from the game directory
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Warn().Err(err).Msgf("error closing archive: %s", archivePath)
		}
	}()

	var r io.Reader
	switch format {
	case FormatTarGz:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer func() {
			if err := gz.Close(); err != nil {
				log.Warn().Err(err).Msg("error closing gzip stream")
			}
		}()
		r = gz
	case FormatTarXz:
		xr, err := xz.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to open xz stream: %w", err)
		}
		r = xr
	case FormatZip, FormatUnknown:
		return fmt.Errorf("not a tar format: %s", format)
	}

	return extractTar(ctx, tar.NewReader(r), t)
}

func extractTar(ctx context.Context, tr *tar.Reader, t *tree) error {
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("extraction cancelled: %w", err)
		}

		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return fmt.Errorf("failed to read tar entry: %w", err)
		}

		if hdr.Typeflag == tar.TypeXGlobalHeader {
			continue
		}

		dest, err := t.dest(hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(dest, 0o750); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
		case tar.TypeReg:
			//nolint:gosec // header mode is masked to permission bits
			if err := writeFile(ctx, dest, tr, fs.FileMode(hdr.Mode).Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			t.symlink(dest, hdr.Linkname)
		case tar.TypeLink:
			src, err := t.dest(hdr.Linkname)
			if err != nil {
				return err
			}
			info, err := os.Lstat(src)
			if err != nil {
				return fmt.Errorf("hard link %s: %w", hdr.Name, err)
			}
			if !info.Mode().IsRegular() {
				return fmt.Errorf("%w: hard link %s to non-regular file", errUnsafePath, hdr.Name)
			}
			removeExisting(dest)
			if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
			if err := os.Link(src, dest); err != nil {
				return fmt.Errorf("failed to create hard link %s: %w", hdr.Name, err)
			}
		default:
			log.Warn().Msgf("skipping unsupported tar entry %s (type %c)", hdr.Name, hdr.Typeflag)
		}
	}
}
