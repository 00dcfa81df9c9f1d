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

// Package resolver locates the launchable entry point inside an extracted
// packaged application.
package resolver

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/realmdex/realmdex-core/pkg/helpers"
	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when no launchable file exists in the tree.
var ErrNotFound = errors.New("executable not found")

const DefaultMaxDepth = 16

// preferredNames are matched against file names with the extension removed,
// after the game id.
var preferredNames = []string{"launcher", "start"}

type entry struct {
	info fs.FileInfo
	name string
	path string
}

// stem is the name without its extension.
func (e entry) stem() string {
	return strings.TrimSuffix(e.name, filepath.Ext(e.name))
}

// Resolver searches extracted trees. The zero value uses DefaultMaxDepth.
type Resolver struct {
	MaxDepth int
}

func New(maxDepth int) *Resolver {
	return &Resolver{MaxDepth: maxDepth}
}

// FindExecutable searches rootDir with the default depth limit.
func FindExecutable(rootDir, gameID, hint string) (string, error) {
	return (&Resolver{}).Find(rootDir, gameID, hint)
}

// Find returns the entry point of the tree at rootDir. An explicit hint is
// tried first, as a path relative to rootDir and then as a file name anywhere
// in the tree. Otherwise each directory, depth-first in name order, is
// searched for a launchable file named after the game, then "launcher", then
// "start", then any launchable file.
func (r *Resolver) Find(rootDir, gameID, hint string) (string, error) {
	info, err := os.Stat(rootDir)
	if err != nil {
		return "", fmt.Errorf("%w: cannot read %s: %w", ErrNotFound, rootDir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrNotFound, rootDir)
	}

	if hint != "" {
		if p, ok := r.findHint(rootDir, hint); ok {
			return p, nil
		}
		log.Info().Msgf("entry point %q not found in %s, searching", hint, rootDir)
	}

	p, ok := r.walk(rootDir, func(entries []entry) (string, bool) {
		return pickExecutable(entries, gameID)
	})
	if !ok {
		return "", fmt.Errorf("%w: no launchable file for %s in %s", ErrNotFound, gameID, rootDir)
	}
	log.Debug().Msgf("resolved %s entry point: %s", gameID, p)
	return p, nil
}

func (r *Resolver) findHint(rootDir, hint string) (string, bool) {
	rel := filepath.FromSlash(strings.ReplaceAll(hint, `\`, "/"))
	direct := filepath.Join(rootDir, rel)
	if helpers.PathWithin(direct, rootDir) {
		if info, err := os.Stat(direct); err == nil && launchableTarget(direct, info) {
			return direct, true
		}
	}

	base := filepath.Base(rel)
	return r.walk(rootDir, func(entries []entry) (string, bool) {
		for _, e := range entries {
			if strings.EqualFold(e.name, base) && launchableTarget(e.path, e.info) {
				return e.path, true
			}
		}
		return "", false
	})
}

// launchableTarget accepts regular files and application bundles.
func launchableTarget(path string, info fs.FileInfo) bool {
	if info.Mode().IsRegular() {
		return true
	}
	return info.IsDir() && isBundle(path)
}

func pickExecutable(entries []entry, gameID string) (string, bool) {
	var candidates []entry
	for _, e := range entries {
		if isExecutable(e.path, e.info) {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}

	for _, want := range append([]string{gameID}, preferredNames...) {
		i := slices.IndexFunc(candidates, func(e entry) bool {
			return strings.EqualFold(e.stem(), want)
		})
		if i >= 0 {
			return candidates[i].path, true
		}
	}
	return candidates[0].path, true
}

type frame struct {
	dir   string
	depth int
}

// walk visits directories depth-first in name order using an explicit stack.
// Directories are tracked by real path so symlink cycles end, and nothing
// deeper than MaxDepth is read.
func (r *Resolver) walk(rootDir string, visit func(entries []entry) (string, bool)) (string, bool) {
	maxDepth := r.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	visited := make(map[string]struct{})
	stack := []frame{{dir: rootDir}}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		realDir, err := filepath.EvalSymlinks(cur.dir)
		if err != nil {
			log.Debug().Err(err).Msgf("skipping unresolvable directory: %s", cur.dir)
			continue
		}
		if _, seen := visited[realDir]; seen {
			continue
		}
		visited[realDir] = struct{}{}

		entries := readEntries(cur.dir)
		if p, ok := visit(entries); ok {
			return p, true
		}

		if cur.depth >= maxDepth {
			log.Debug().Msgf("not descending past depth %d: %s", maxDepth, cur.dir)
			continue
		}

		// reverse order so the first name is popped first
		for i := len(entries) - 1; i >= 0; i-- {
			e := entries[i]
			if e.info.IsDir() && !isBundle(e.path) {
				stack = append(stack, frame{dir: e.path, depth: cur.depth + 1})
			}
		}
	}
	return "", false
}

// readEntries lists dir sorted by name, following symlinks. Broken links are
// skipped.
func readEntries(dir string) []entry {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		log.Warn().Err(err).Msgf("error reading directory: %s", dir)
		return nil
	}

	out := make([]entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		p := filepath.Join(dir, de.Name())
		info, err := os.Stat(p)
		if err != nil {
			log.Debug().Err(err).Msgf("skipping unreadable entry: %s", p)
			continue
		}
		out = append(out, entry{name: de.Name(), path: p, info: info})
	}
	return out
}
