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

// Package service ties the catalog, installer, extractor, resolver and
// launcher together into the operations front ends call.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/realmdex/realmdex-core/pkg/archive"
	"github.com/realmdex/realmdex-core/pkg/catalog"
	"github.com/realmdex/realmdex-core/pkg/config"
	"github.com/realmdex/realmdex-core/pkg/helpers/command"
	"github.com/realmdex/realmdex-core/pkg/helpers/syncutil"
	"github.com/realmdex/realmdex-core/pkg/installer"
	"github.com/realmdex/realmdex-core/pkg/launcher"
	"github.com/realmdex/realmdex-core/pkg/manifest"
	"github.com/realmdex/realmdex-core/pkg/notifications"
	"github.com/realmdex/realmdex-core/pkg/resolver"
	"github.com/realmdex/realmdex-core/pkg/shared/httpclient"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	notFoundMessage = "Game file not found. Try downloading again."
	// playerPollInterval spaces out player-count requests to the game servers.
	playerPollInterval = 100 * time.Millisecond
)

// ManagerArgs holds the dependencies of a Manager. Nil optional fields get
// production defaults.
type ManagerArgs struct {
	Config   *config.Instance
	Store    *manifest.Store
	Catalog  catalog.Provider
	Client   *httpclient.Client
	Fetchers installer.Fetchers
	Executor command.Executor
	Notifier notifications.Sink
	Clock    clockwork.Clock
	// PidChecker overrides the process liveness check.
	PidChecker launcher.PidChecker
}

// Manager is the download and launch manager.
type Manager struct {
	cfg       *config.Instance
	store     *manifest.Store
	catalog   catalog.Provider
	client    *httpclient.Client
	installer *installer.Orchestrator
	extractor *archive.Extractor
	tracker   *archive.Tracker
	resolver  *resolver.Resolver
	launcher  *launcher.Launcher
	notifier  notifications.Sink
	polls     *rate.Limiter
	games     []catalog.Descriptor
	mu        syncutil.RWMutex
}

func NewManager(args ManagerArgs) *Manager {
	notifier := args.Notifier
	if notifier == nil {
		notifier = notifications.Discard
	}
	client := args.Client
	if client == nil {
		client = httpclient.NewClient(args.Config)
	}
	provider := args.Catalog
	if provider == nil {
		provider = catalog.Default(client, args.Config.CatalogURL())
	}
	fetchers := args.Fetchers
	if fetchers == nil {
		fetchers = installer.DefaultFetchers(client, args.Config)
	}
	executor := args.Executor
	if executor == nil {
		executor = &command.RealExecutor{}
	}

	l := launcher.New(executor)
	if args.PidChecker != nil {
		l.WithPidChecker(args.PidChecker)
	}

	return &Manager{
		cfg:       args.Config,
		store:     args.Store,
		catalog:   provider,
		client:    client,
		installer: installer.New(args.Config, args.Store, fetchers, notifier),
		extractor: archive.NewExtractor(),
		tracker:   archive.NewTracker(args.Clock),
		resolver:  resolver.New(args.Config.ResolverMaxDepth()),
		launcher:  l,
		notifier:  notifier,
		polls:     rate.NewLimiter(rate.Every(playerPollInterval), maxPlayerPolls),
	}
}

// Refresh reloads the catalog. On failure the previous catalog is kept.
func (m *Manager) Refresh(ctx context.Context) ([]catalog.Descriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.CatalogTimeout())
	defer cancel()

	games, err := m.catalog.Games(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to load catalog")
		m.mu.RLock()
		cached := m.games
		m.mu.RUnlock()
		if len(cached) > 0 {
			return cached, nil
		}
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	m.mu.Lock()
	m.games = games
	m.mu.Unlock()
	log.Info().Msgf("catalog loaded with %d games", len(games))
	return games, nil
}

func (m *Manager) cachedGames(ctx context.Context) ([]catalog.Descriptor, error) {
	m.mu.RLock()
	games := m.games
	m.mu.RUnlock()
	if games != nil {
		return games, nil
	}
	return m.Refresh(ctx)
}

// Lookup returns the catalog descriptor for gameID.
func (m *Manager) Lookup(ctx context.Context, gameID string) (catalog.Descriptor, error) {
	games, err := m.cachedGames(ctx)
	if err != nil {
		return catalog.Descriptor{}, err
	}
	if d, ok := catalog.Find(games, gameID); ok {
		return d, nil
	}
	unknown := &UnknownGameError{ID: gameID}
	if s, ok := catalog.Suggest(gameID, catalog.IDs(games)); ok {
		unknown.Suggestion = s
	}
	return catalog.Descriptor{}, unknown
}

// Download fetches every artifact of gameID and records the result.
func (m *Manager) Download(ctx context.Context, gameID string) (installer.Result, error) {
	d, err := m.Lookup(ctx, gameID)
	if err != nil {
		return installer.Result{}, err
	}

	res, err := m.installer.DownloadGame(ctx, &d)
	if err != nil {
		log.Error().Err(err).Msgf("download of %s failed", d.ID)
		notifications.Error(m.notifier, "Failed to download "+d.Title)
		return res, fmt.Errorf("failed to download %s: %w", d.ID, err)
	}

	if res.Partial() {
		kinds := make([]string, 0, len(res.Failed))
		for _, a := range res.Failed {
			kinds = append(kinds, a.Kind)
		}
		notifications.Warning(m.notifier, fmt.Sprintf(
			"%s downloaded without %s", d.Title, strings.Join(kinds, ", ")))
	}
	notifications.Success(m.notifier, "Successfully downloaded "+d.Title)
	return res, nil
}

// installedFile returns the recorded file of kind for gameID if it is still
// on disk.
func (m *Manager) installedFile(gameID, kind string) (string, bool) {
	f, ok := m.store.FileOfKind(gameID, kind)
	if !ok {
		return "", false
	}
	if _, err := os.Stat(f.Path); err != nil {
		log.Warn().Err(err).Msgf("installed %s file missing for %s", kind, gameID)
		return "", false
	}
	return f.Path, true
}

func (m *Manager) warnIfRunning(ctx context.Context, d *catalog.Descriptor) {
	if m.launcher.Running(ctx, d.ID) {
		notifications.Warning(m.notifier, d.Title+" is already running")
	}
}

// PlayLightweight runs the swf artifact of gameID in the standalone player.
func (m *Manager) PlayLightweight(ctx context.Context, gameID string) error {
	d, err := m.Lookup(ctx, gameID)
	if err != nil {
		return err
	}

	swf, ok := m.installedFile(d.ID, catalog.KindSWF)
	if !ok {
		notifications.Error(m.notifier, notFoundMessage)
		return fmt.Errorf("%w: %s swf", ErrNotInstalled, d.ID)
	}

	player, err := m.installer.EnsurePlayer(ctx, "")
	if err != nil {
		notifications.Error(m.notifier, fmt.Sprintf("Failed to launch game: %v", err))
		return fmt.Errorf("failed to prepare player: %w", err)
	}

	m.warnIfRunning(ctx, &d)
	if _, err := m.launcher.Launch(ctx, d.ID, player, swf); err != nil {
		notifications.Error(m.notifier, fmt.Sprintf("Failed to launch game: %v", err))
		return fmt.Errorf("failed to launch %s: %w", d.ID, err)
	}

	notifications.Success(m.notifier, "Launched "+d.Title)
	return nil
}

// PlayPackaged extracts the zip artifact of gameID if needed and runs the
// executable found inside.
func (m *Manager) PlayPackaged(ctx context.Context, gameID string) error {
	d, err := m.Lookup(ctx, gameID)
	if err != nil {
		return err
	}

	zipPath, ok := m.installedFile(d.ID, catalog.KindZip)
	if !ok {
		notifications.Error(m.notifier, notFoundMessage)
		return fmt.Errorf("%w: %s zip", ErrNotInstalled, d.ID)
	}

	target := filepath.Join(filepath.Dir(zipPath), config.PackagedDir)
	if err := m.extract(ctx, &d, zipPath, target); err != nil {
		notifications.Error(m.notifier, fmt.Sprintf("Failed to extract game: %v", err))
		return err
	}

	exe, err := m.resolver.Find(target, d.ID, d.Executable)
	if err != nil {
		notifications.Error(m.notifier, fmt.Sprintf("Failed to launch application: %v", err))
		return fmt.Errorf("failed to launch %s: %w", d.ID, err)
	}

	m.warnIfRunning(ctx, &d)
	if _, err := m.launcher.Launch(ctx, d.ID, exe); err != nil {
		notifications.Error(m.notifier, fmt.Sprintf("Failed to launch application: %v", err))
		return fmt.Errorf("failed to launch %s: %w", d.ID, err)
	}

	notifications.Success(m.notifier, "Launched "+d.Title)
	return nil
}

func (m *Manager) extract(ctx context.Context, d *catalog.Descriptor, zipPath, target string) error {
	if archive.Populated(target) {
		return nil
	}

	timeout := m.cfg.ExtractTimeout()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	m.tracker.Start(d.ID)
	notifications.InfoFor(m.notifier, fmt.Sprintf("Extracting %s...", d.Title), timeout)

	err := m.extractor.EnsureExtracted(ctx, zipPath, target)
	m.tracker.Finish(d.ID, err)
	if err != nil {
		log.Error().Err(err).Msgf("extraction of %s failed", d.ID)
		return fmt.Errorf("failed to extract %s: %w", d.ID, err)
	}
	return nil
}

// Play launches the packaged application when it is installed and the
// lightweight artifact otherwise.
func (m *Manager) Play(ctx context.Context, gameID string) error {
	d, err := m.Lookup(ctx, gameID)
	if err != nil {
		return err
	}
	if _, ok := m.installedFile(d.ID, catalog.KindZip); ok {
		return m.PlayPackaged(ctx, d.ID)
	}
	return m.PlayLightweight(ctx, d.ID)
}

// Uninstall removes every installed file of gameID. Games that left the
// catalog can still be uninstalled.
func (m *Manager) Uninstall(ctx context.Context, gameID string) error {
	id, title := gameID, gameID
	if d, err := m.Lookup(ctx, gameID); err == nil {
		id, title = d.ID, d.Title
	} else if !errors.Is(err, ErrUnknownGame) {
		log.Warn().Err(err).Msg("uninstalling without catalog")
	}

	if err := m.installer.Uninstall(ctx, id); err != nil {
		notifications.Error(m.notifier, fmt.Sprintf("Failed to uninstall %s: %v", title, err))
		return fmt.Errorf("failed to uninstall %s: %w", id, err)
	}
	m.tracker.Finish(id, nil)
	notifications.Success(m.notifier, "Uninstalled "+title)
	return nil
}

func (m *Manager) IsInstalled(gameID string) bool {
	return m.store.IsInstalled(gameID)
}

// PlayerCount polls the live player count of gameID. Any failure yields
// catalog.UnknownPlayers.
func (m *Manager) PlayerCount(ctx context.Context, gameID string) int {
	d, err := m.Lookup(ctx, gameID)
	if err != nil || d.URLs.Players == "" {
		return catalog.UnknownPlayers
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.CatalogTimeout())
	defer cancel()

	if err := m.polls.Wait(ctx); err != nil {
		log.Debug().Err(err).Msgf("player count poll for %s skipped", d.ID)
		return catalog.UnknownPlayers
	}

	n, err := catalog.FetchPlayerCount(ctx, m.client, d.URLs.Players)
	if err != nil {
		log.Debug().Err(err).Msgf("player count unavailable for %s", d.ID)
		return catalog.UnknownPlayers
	}
	return n
}

// Tracker exposes the per-game extraction status.
func (m *Manager) Tracker() *archive.Tracker {
	return m.tracker
}

func (m *Manager) Store() *manifest.Store {
	return m.store
}
