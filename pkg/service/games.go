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

package service

import (
	"context"
	"fmt"

	"github.com/realmdex/realmdex-core/pkg/archive"
	"github.com/realmdex/realmdex-core/pkg/catalog"
	"github.com/realmdex/realmdex-core/pkg/manifest"
	"golang.org/x/sync/errgroup"
)

// maxPlayerPolls bounds concurrent player-count requests.
const maxPlayerPolls = 4

// GameStatus is a catalog entry with its local state.
type GameStatus struct {
	catalog.Descriptor
	Extraction archive.Status
	Files      []manifest.InstalledFile
	Players    int
	Installed  bool
	Extracting bool
	Running    bool
}

func (m *Manager) status(ctx context.Context, d *catalog.Descriptor) GameStatus {
	state := m.tracker.State(d.ID)
	return GameStatus{
		Descriptor: *d,
		Files:      m.store.FilesFor(d.ID),
		Installed:  m.store.IsInstalled(d.ID),
		Extraction: state.Status,
		Extracting: state.Status == archive.StatusExtracting,
		Running:    m.launcher.Running(ctx, d.ID),
		Players:    catalog.UnknownPlayers,
	}
}

// Status reports the local state of one game, with its live player count.
func (m *Manager) Status(ctx context.Context, gameID string) (GameStatus, error) {
	d, err := m.Lookup(ctx, gameID)
	if err != nil {
		return GameStatus{}, err
	}
	st := m.status(ctx, &d)
	st.Players = m.PlayerCount(ctx, d.ID)
	return st, nil
}

// Games refreshes the catalog and reports the state of every game. Player
// counts are polled only when withPlayers is set, otherwise they are
// catalog.UnknownPlayers.
func (m *Manager) Games(ctx context.Context, withPlayers bool) ([]GameStatus, error) {
	games, err := m.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]GameStatus, len(games))
	for i := range games {
		out[i] = m.status(ctx, &games[i])
	}

	if !withPlayers {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxPlayerPolls)
	for i := range out {
		if out[i].URLs.Players == "" {
			continue
		}
		g.Go(func() error {
			out[i].Players = m.PlayerCount(gctx, out[i].ID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to poll player counts: %w", err)
	}
	return out, nil
}
