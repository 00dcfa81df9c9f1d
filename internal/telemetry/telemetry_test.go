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

package telemetry

import (
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: ""},
		{name: "system path", input: "/opt/realmdex/bin", expected: "/opt/realmdex/bin"},
		{
			name:     "linux home",
			input:    "/home/sam/Downloads/FlashGames/realm-quest/realm-quest.swf",
			expected: "/home/<user>/Downloads/FlashGames/realm-quest/realm-quest.swf",
		},
		{
			name:     "macos home",
			input:    "/Users/sam/Library/Application Support/realmdex/manifest.json",
			expected: "/Users/<user>/Library/Application Support/realmdex/manifest.json",
		},
		{
			name:     "windows home",
			input:    `D:\Users\sam\Downloads\FlashGames\star-forge\air\StarForge.exe`,
			expected: `C:\Users\<user>\Downloads\FlashGames\star-forge\air\StarForge.exe`,
		},
		{
			name:     "inside an error message",
			input:    "failed to extract /home/kit/FlashGames/x/x.zip: unexpected EOF",
			expected: "failed to extract /home/<user>/FlashGames/x/x.zip: unexpected EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, sanitizePath(tt.input))
		})
	}
}

func TestSanitizeEvent(t *testing.T) {
	t.Parallel()

	event := &sentry.Event{
		ServerName: "sams-laptop",
		Message:    "cannot open /home/sam/FlashGames",
		Extra:      map[string]any{"path": "/Users/sam/x", "count": 3},
		Exception: []sentry.Exception{{
			Value: "open /home/sam/a.zip: permission denied",
			Stacktrace: &sentry.Stacktrace{Frames: []sentry.Frame{{
				AbsPath:  "/home/sam/src/realmdex/pkg/archive/archive.go",
				Filename: "archive.go",
			}}},
		}},
	}

	got := sanitizeEvent(event)
	assert.Empty(t, got.ServerName)
	assert.Equal(t, "cannot open /home/<user>/FlashGames", got.Message)
	assert.Equal(t, "/Users/<user>/x", got.Extra["path"])
	assert.Equal(t, 3, got.Extra["count"])
	assert.Equal(t, "open /home/<user>/a.zip: permission denied", got.Exception[0].Value)
	assert.Equal(t, "/home/<user>/src/realmdex/pkg/archive/archive.go", got.Exception[0].Stacktrace.Frames[0].AbsPath)
}

func TestInit_DisabledIsNoop(t *testing.T) {
	t.Parallel()

	require.NoError(t, Init(false, "https://key@errors.example/1", "1.0.0"))
	assert.False(t, Enabled())

	Flush()
	Close()
}

func TestInit_RequiresDSN(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, Init(true, "", "1.0.0"), ErrNoDSN)
	assert.False(t, Enabled())
}

func TestInit_BadDSN(t *testing.T) {
	t.Parallel()

	require.Error(t, Init(true, "not a dsn", "1.0.0"))
	assert.False(t, Enabled())
}
