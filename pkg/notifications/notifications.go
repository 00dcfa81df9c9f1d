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

// Package notifications delivers user-facing events to whatever front end is
// attached: toasts in the desktop shell, stdout in the CLI.
package notifications

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
)

// Event is a single message for the user. A zero Duration lets the front end
// pick its default display time.
type Event struct {
	Kind     Kind
	Message  string
	Duration time.Duration
}

type eventJSON struct {
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
	DurationMs int64  `json:"durationMs,omitempty"`
}

// MarshalJSON encodes the event in the shape the desktop shell expects, with
// the duration in milliseconds.
func (ev Event) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(eventJSON{
		Kind:       ev.Kind,
		Message:    ev.Message,
		DurationMs: ev.Duration.Milliseconds(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return data, nil
}

// Sink receives events. Implementations must not block for long and must be
// safe for concurrent use.
type Sink interface {
	Notify(ev Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ev Event)

func (f SinkFunc) Notify(ev Event) {
	f(ev)
}

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// LogSink writes events to the global logger.
type LogSink struct{}

func (LogSink) Notify(ev Event) {
	var e *zerolog.Event
	switch ev.Kind {
	case KindError:
		e = log.Error()
	case KindWarning:
		e = log.Warn()
	case KindSuccess, KindInfo:
		e = log.Info()
	default:
		e = log.Info()
	}
	e.Str("kind", string(ev.Kind)).Msgf("notification: %s", ev.Message)
}

// ChanSink forwards events to a channel without blocking. Events are dropped
// when the channel is full.
type ChanSink chan<- Event

func (c ChanSink) Notify(ev Event) {
	select {
	case c <- ev:
	default:
		log.Warn().Msgf("notification channel full, dropped: %s", ev.Message)
	}
}

// Multi fans an event out to several sinks in order.
type Multi []Sink

func (m Multi) Notify(ev Event) {
	for _, s := range m {
		if s != nil {
			s.Notify(ev)
		}
	}
}

func Success(s Sink, msg string) {
	s.Notify(Event{Kind: KindSuccess, Message: msg})
}

func Error(s Sink, msg string) {
	s.Notify(Event{Kind: KindError, Message: msg})
}

func Info(s Sink, msg string) {
	s.Notify(Event{Kind: KindInfo, Message: msg})
}

func Warning(s Sink, msg string) {
	s.Notify(Event{Kind: KindWarning, Message: msg})
}

// InfoFor shows an info event for a specific duration, used for progress
// messages that should stay up while a long task runs.
func InfoFor(s Sink, msg string, d time.Duration) {
	s.Notify(Event{Kind: KindInfo, Message: msg, Duration: d})
}
