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

// Package installer downloads game artifacts into per-game directories,
// records them in the manifest and removes them again on uninstall.
package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/realmdex/realmdex-core/pkg/catalog"
	"github.com/realmdex/realmdex-core/pkg/config"
	"github.com/realmdex/realmdex-core/pkg/helpers"
	"github.com/realmdex/realmdex-core/pkg/helpers/syncutil"
	"github.com/realmdex/realmdex-core/pkg/manifest"
	"github.com/realmdex/realmdex-core/pkg/notifications"
	"github.com/rs/zerolog/log"
)

var (
	// ErrFetchFailed means no usable artifact could be fetched.
	ErrFetchFailed = errors.New("artifact fetch failed")
	// ErrFilesystem covers local directory, delete and rename failures.
	ErrFilesystem = errors.New("filesystem operation failed")
)

// Policy decides what a download with some failed artifacts commits.
type Policy int

const (
	// PolicyAnyArtifact commits whatever was fetched.
	PolicyAnyArtifact Policy = iota
	// PolicyAllArtifacts commits only when every declared artifact was
	// fetched, and removes this run's files otherwise.
	PolicyAllArtifacts
)

func PolicyFromString(s string) Policy {
	if s == config.PolicyAll {
		return PolicyAllArtifacts
	}
	return PolicyAnyArtifact
}

func (p Policy) String() string {
	if p == PolicyAllArtifacts {
		return config.PolicyAll
	}
	return config.PolicyAny
}

// Store is the subset of the manifest store the installer writes through.
type Store interface {
	Commit(gameID string, files []manifest.InstalledFile) error
	FilesFor(gameID string) []manifest.InstalledFile
	IsInstalled(gameID string) bool
}

// Orchestrator runs downloads and uninstalls. Operations on one game are
// serialized; different games proceed concurrently.
type Orchestrator struct {
	cfg      *config.Instance
	store    Store
	fetchers Fetchers
	notifier notifications.Sink
	locks    syncutil.KeyedMutex
}

func New(cfg *config.Instance, store Store, fetchers Fetchers, notifier notifications.Sink) *Orchestrator {
	if notifier == nil {
		notifier = notifications.Discard
	}
	return &Orchestrator{
		cfg:      cfg,
		store:    store,
		fetchers: fetchers,
		notifier: notifier,
	}
}

// DownloadsRoot is the directory per-game directories live in, read from
// settings at call time.
func (o *Orchestrator) DownloadsRoot() string {
	if dir := o.cfg.DownloadsDir(); dir != "" {
		return dir
	}
	return helpers.DefaultDownloadsDir()
}

// GameDir is the per-game directory under the current downloads root.
func (o *Orchestrator) GameDir(gameID string) string {
	return filepath.Join(o.DownloadsRoot(), gameID)
}

// ArtifactPath is where an artifact of the given kind is stored.
func ArtifactPath(gameDir, gameID, kind string) string {
	return filepath.Join(gameDir, gameID+"."+kind)
}

// Result reports what a download run fetched.
type Result struct {
	GameID string
	Files  []manifest.InstalledFile
	// Failed lists artifacts that could not be fetched in this run.
	Failed []catalog.Artifact
}

// Partial is true when the download succeeded without every artifact.
func (r Result) Partial() bool {
	return len(r.Files) > 0 && len(r.Failed) > 0
}

// DownloadGame fetches every artifact the descriptor declares, swf first
// then zip, and commits the fetched files to the manifest. A failed artifact
// is logged and the next one is tried.
//
// New bytes are staged beside the installed files and only replace them once
// the run is going to be committed. A run that fails, or whose commit fails,
// leaves the previous install as it was.
func (o *Orchestrator) DownloadGame(ctx context.Context, d *catalog.Descriptor) (Result, error) {
	unlock := o.locks.Lock(d.ID)
	defer unlock()

	result := Result{GameID: d.ID}

	artifacts := d.Artifacts()
	if len(artifacts) == 0 {
		return result, fmt.Errorf("%w: %s declares no artifacts", ErrFetchFailed, d.ID)
	}

	gameDir := o.GameDir(d.ID)
	if err := os.MkdirAll(gameDir, 0o750); err != nil {
		return result, fmt.Errorf("%w: cannot create game directory: %w", ErrFilesystem, err)
	}

	var fetched []staged
	var fetchErrs []error
	for _, a := range artifacts {
		if err := ctx.Err(); err != nil {
			dropStaged(fetched)
			return Result{GameID: d.ID}, fmt.Errorf("download cancelled: %w", err)
		}

		finalPath := ArtifactPath(gameDir, d.ID, a.Kind)
		s := staged{
			file: manifest.InstalledFile{Type: a.Kind, Path: finalPath},
			temp: finalPath + stagedSuffix,
		}
		log.Info().Msgf("downloading %s artifact for %s: %s", a.Kind, d.ID, a.URL)

		if err := o.fetch(ctx, a.URL, s.temp); err != nil {
			log.Warn().Err(err).Msgf("artifact fetch failed for %s (%s)", d.ID, a.Kind)
			result.Failed = append(result.Failed, a)
			fetchErrs = append(fetchErrs, fmt.Errorf("%s: %w", a.Kind, err))
			continue
		}
		fetched = append(fetched, s)
		result.Files = append(result.Files, s.file)
	}

	if ctx.Err() != nil {
		dropStaged(fetched)
		return Result{GameID: d.ID}, fmt.Errorf("download cancelled: %w", ctx.Err())
	}

	if len(fetched) == 0 {
		return result, fmt.Errorf("%w: %s: %w", ErrFetchFailed, d.ID, errors.Join(fetchErrs...))
	}

	policy := PolicyFromString(o.cfg.DownloadPolicy())
	if policy == PolicyAllArtifacts && len(result.Failed) > 0 {
		log.Warn().Msgf("%s: %d artifacts failed under policy %s, rolling back", d.ID, len(result.Failed), policy)
		dropStaged(fetched)
		result.Files = nil
		return result, fmt.Errorf("%w: %s: %w", ErrFetchFailed, d.ID, errors.Join(fetchErrs...))
	}

	files := slices.Clone(result.Files)
	files = append(files, o.retained(d.ID, result.Failed)...)

	promoted, err := promote(fetched)
	if err != nil {
		return Result{GameID: d.ID}, fmt.Errorf("%w: cannot install artifacts of %s: %w", ErrFilesystem, d.ID, err)
	}

	if err := o.store.Commit(d.ID, files); err != nil {
		restore(promoted)
		return Result{GameID: d.ID}, fmt.Errorf("failed to record download of %s: %w", d.ID, err)
	}
	dropBackups(promoted)

	if slices.ContainsFunc(result.Files, func(f manifest.InstalledFile) bool { return f.Type == catalog.KindZip }) {
		clearExtracted(gameDir)
	}

	log.Info().Msgf("downloaded %s: %d files, %d failed", d.ID, len(result.Files), len(result.Failed))
	return result, nil
}

const (
	stagedSuffix = ".download"
	backupSuffix = ".previous"
)

// staged is an artifact fetched in this run that has not replaced the
// installed file yet. backup is set once the installed file was moved aside.
type staged struct {
	file   manifest.InstalledFile
	temp   string
	backup string
}

// promote moves staged files onto their final paths, keeping any installed
// file as a backup. On failure everything is put back.
func promote(fetched []staged) ([]staged, error) {
	done := make([]staged, 0, len(fetched))
	for i, s := range fetched {
		final := s.file.Path
		if _, err := os.Lstat(final); err == nil {
			s.backup = final + backupSuffix
			removeQuietly(s.backup)
			if err := os.Rename(final, s.backup); err != nil {
				restore(done)
				dropStaged(fetched[i:])
				return nil, fmt.Errorf("cannot move aside %s: %w", filepath.Base(final), err)
			}
		}
		if err := os.Rename(s.temp, final); err != nil {
			restore(append(done, s))
			dropStaged(fetched[i:])
			return nil, fmt.Errorf("cannot move %s into place: %w", filepath.Base(final), err)
		}
		done = append(done, s)
	}
	return done, nil
}

// restore undoes promote: backups go back in place and files that did not
// exist before are removed.
func restore(promoted []staged) {
	for _, s := range promoted {
		if s.backup == "" {
			removeQuietly(s.file.Path)
			continue
		}
		if err := os.Rename(s.backup, s.file.Path); err != nil {
			log.Error().Err(err).Msgf("failed to restore %s from %s", s.file.Path, s.backup)
		}
	}
}

func dropBackups(promoted []staged) {
	for _, s := range promoted {
		if s.backup != "" {
			removeQuietly(s.backup)
		}
	}
}

func dropStaged(fetched []staged) {
	for _, s := range fetched {
		removeQuietly(s.temp)
	}
}

func removeQuietly(p string) {
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msgf("error removing %s", p)
	}
}

// clearExtracted drops the extraction directory so a new package is unpacked
// fresh on the next launch.
func clearExtracted(gameDir string) {
	extracted := filepath.Join(gameDir, config.PackagedDir)
	if err := os.RemoveAll(extracted); err != nil {
		log.Warn().Err(err).Msgf("failed to clear old extraction: %s", extracted)
	}
}

func (o *Orchestrator) fetch(ctx context.Context, rawURL, finalPath string) error {
	fetcher, err := o.fetchers.For(rawURL)
	if err != nil {
		return err
	}

	tempPath := finalPath + ".part"
	if _, statErr := os.Stat(tempPath); statErr == nil {
		log.Warn().Msgf("removing leftover temp file: %s", tempPath)
		if removeErr := os.Remove(tempPath); removeErr != nil {
			log.Warn().Err(removeErr).Msgf("error removing temp file: %s", tempPath)
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, o.cfg.DownloadTimeout())
	defer cancel()

	err = fetcher.Fetch(fetchCtx, FetchArgs{
		URL:       rawURL,
		FinalPath: finalPath,
		TempPath:  tempPath,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	return nil
}

// retained keeps files of failed kinds from an earlier install when they are
// still on disk, so the manifest keeps describing them.
func (o *Orchestrator) retained(gameID string, failed []catalog.Artifact) []manifest.InstalledFile {
	var out []manifest.InstalledFile
	for _, prev := range o.store.FilesFor(gameID) {
		if !slices.ContainsFunc(failed, func(a catalog.Artifact) bool { return a.Kind == prev.Type }) {
			continue
		}
		if _, err := os.Stat(prev.Path); err == nil {
			log.Debug().Msgf("keeping previously installed %s for %s", prev.Type, gameID)
			out = append(out, prev)
		}
	}
	return out
}

func existingFiles(files []manifest.InstalledFile) []manifest.InstalledFile {
	var out []manifest.InstalledFile
	for _, f := range files {
		if _, err := os.Lstat(f.Path); err == nil {
			out = append(out, f)
		}
	}
	return out
}
