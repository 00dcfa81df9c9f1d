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
	"maps"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/realmdex/realmdex-core/pkg/helpers/syncutil"
)

type Status string

const (
	StatusIdle       Status = "idle"
	StatusExtracting Status = "extracting"
	StatusFailed     Status = "failed"
)

// State is the extraction status of one game.
type State struct {
	Since  time.Time
	Err    error
	Status Status
}

// Tracker records per-game extraction status for front ends. It is never
// persisted; a restart forgets failures.
type Tracker struct {
	clock  clockwork.Clock
	states map[string]State
	mu     syncutil.RWMutex
}

func NewTracker(clock clockwork.Clock) *Tracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Tracker{
		clock:  clock,
		states: make(map[string]State),
	}
}

func (t *Tracker) Start(gameID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states[gameID] = State{Status: StatusExtracting, Since: t.clock.Now()}
}

// Finish ends an extraction. A nil error returns the game to idle.
func (t *Tracker) Finish(gameID string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err == nil {
		delete(t.states, gameID)
		return
	}
	t.states[gameID] = State{Status: StatusFailed, Since: t.clock.Now(), Err: err}
}

// State returns the status of gameID, idle when nothing was recorded.
func (t *Tracker) State(gameID string) State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.states[gameID]
	if !ok {
		return State{Status: StatusIdle}
	}
	return s
}

func (t *Tracker) Extracting(gameID string) bool {
	return t.State(gameID).Status == StatusExtracting
}

// Snapshot returns every non-idle state.
func (t *Tracker) Snapshot() map[string]State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return maps.Clone(t.states)
}
