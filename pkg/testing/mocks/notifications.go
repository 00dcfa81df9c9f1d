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

package mocks

import (
	"github.com/realmdex/realmdex-core/pkg/helpers/syncutil"
	"github.com/realmdex/realmdex-core/pkg/notifications"
)

// RecordingSink keeps every event it receives for later assertions.
type RecordingSink struct {
	events []notifications.Event
	mu     syncutil.Mutex
}

func (r *RecordingSink) Notify(ev notifications.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the events received so far.
func (r *RecordingSink) Events() []notifications.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notifications.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Messages returns the messages of events of the given kind, in order.
func (r *RecordingSink) Messages(kind notifications.Kind) []string {
	var out []string
	for _, ev := range r.Events() {
		if ev.Kind == kind {
			out = append(out, ev.Message)
		}
	}
	return out
}

func (r *RecordingSink) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

var _ notifications.Sink = (*RecordingSink)(nil)
