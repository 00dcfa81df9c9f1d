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

package cli

import (
	"bytes"
	"context"
	"flag"
	"strings"
	"testing"

	"github.com/realmdex/realmdex-core/pkg/archive"
	"github.com/realmdex/realmdex-core/pkg/catalog"
	"github.com/realmdex/realmdex-core/pkg/installer"
	"github.com/realmdex/realmdex-core/pkg/manifest"
	"github.com/realmdex/realmdex-core/pkg/notifications"
	"github.com/realmdex/realmdex-core/pkg/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockManager struct {
	mock.Mock
}

func (m *mockManager) Games(ctx context.Context, withPlayers bool) ([]service.GameStatus, error) {
	args := m.Called(ctx, withPlayers)
	games, _ := args.Get(0).([]service.GameStatus)
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return games, args.Error(1)
}

func (m *mockManager) Status(ctx context.Context, gameID string) (service.GameStatus, error) {
	args := m.Called(ctx, gameID)
	st, _ := args.Get(0).(service.GameStatus)
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return st, args.Error(1)
}

func (m *mockManager) Download(ctx context.Context, gameID string) (installer.Result, error) {
	args := m.Called(ctx, gameID)
	res, _ := args.Get(0).(installer.Result)
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return res, args.Error(1)
}

func (m *mockManager) Play(ctx context.Context, gameID string) error {
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return m.Called(ctx, gameID).Error(0)
}

func (m *mockManager) PlayLightweight(ctx context.Context, gameID string) error {
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return m.Called(ctx, gameID).Error(0)
}

func (m *mockManager) PlayPackaged(ctx context.Context, gameID string) error {
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return m.Called(ctx, gameID).Error(0)
}

func (m *mockManager) Uninstall(ctx context.Context, gameID string) error {
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return m.Called(ctx, gameID).Error(0)
}

func (m *mockManager) PlayerCount(ctx context.Context, gameID string) int {
	return m.Called(ctx, gameID).Int(0)
}

func parse(t *testing.T, args ...string) *Flags {
	t.Helper()
	fs := flag.NewFlagSet("realmdex", flag.ContinueOnError)
	f := SetupFlags(fs)
	exit, err := f.Pre(fs, args, &bytes.Buffer{})
	require.NoError(t, err)
	require.False(t, exit)
	return f
}

var sampleGames = []service.GameStatus{
	{
		Descriptor: catalog.Descriptor{
			ID:      "realm-quest",
			Title:   "Realm Quest",
			Version: "1.2",
			URLs:    catalog.URLs{SWF: "https://x/r.swf", AIR: "https://x/r.zip"},
		},
		Installed:  true,
		Extraction: archive.StatusIdle,
		Players:    12,
	},
	{
		Descriptor: catalog.Descriptor{
			ID:    "star-forge",
			Title: "Star Forge",
			URLs:  catalog.URLs{SWF: "https://x/s.swf"},
		},
		Extraction: archive.StatusIdle,
		Players:    catalog.UnknownPlayers,
		Running:    true,
	},
}

func TestPre_Version(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("realmdex", flag.ContinueOnError)
	f := SetupFlags(fs)
	var out bytes.Buffer

	exit, err := f.Pre(fs, []string{"-version"}, &out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.True(t, strings.HasPrefix(out.String(), "RealmDex v"))
}

func TestPre_BadFlag(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("realmdex", flag.ContinueOnError)
	fs.SetOutput(&bytes.Buffer{})
	f := SetupFlags(fs)

	exit, err := f.Pre(fs, []string{"-nope"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, exit)
}

func TestRun_Dispatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		method string
		flag   string
	}{
		{method: "Play", flag: "-play"},
		{method: "PlayLightweight", flag: "-play-swf"},
		{method: "PlayPackaged", flag: "-play-air"},
		{method: "Uninstall", flag: "-uninstall"},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			t.Parallel()

			mgr := &mockManager{}
			mgr.On(tt.method, mock.Anything, "realm-quest").Return(nil).Once()

			f := parse(t, tt.flag, "realm-quest")
			require.NoError(t, f.Run(context.Background(), mgr, &bytes.Buffer{}))
			mgr.AssertExpectations(t)
		})
	}
}

func TestRun_Download(t *testing.T) {
	t.Parallel()

	mgr := &mockManager{}
	mgr.On("Download", mock.Anything, "realm-quest").
		Return(installer.Result{}, installer.ErrFetchFailed).Once()

	f := parse(t, "-download", "realm-quest")
	err := f.Run(context.Background(), mgr, &bytes.Buffer{})
	require.ErrorIs(t, err, installer.ErrFetchFailed)
	mgr.AssertExpectations(t)
}

func TestRun_NoAction(t *testing.T) {
	t.Parallel()

	f := parse(t)
	require.ErrorIs(t, f.Run(context.Background(), &mockManager{}, &bytes.Buffer{}), ErrUsage)
}

func TestRun_ListTable(t *testing.T) {
	t.Parallel()

	mgr := &mockManager{}
	mgr.On("Games", mock.Anything, true).Return(sampleGames, nil)

	var out bytes.Buffer
	f := parse(t, "-list")
	require.NoError(t, f.Run(context.Background(), mgr, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"ID", "TITLE", "INSTALLED", "STATE", "PLAYERS"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"realm-quest", "Realm", "Quest", "yes", "idle", "12"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"star-forge", "Star", "Forge", "no", "running", "unknown"}, strings.Fields(lines[2]))
}

func TestRun_ListCSV(t *testing.T) {
	t.Parallel()

	mgr := &mockManager{}
	mgr.On("Games", mock.Anything, true).Return(sampleGames, nil)

	var out bytes.Buffer
	f := parse(t, "-list", "-csv")
	require.NoError(t, f.Run(context.Background(), mgr, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,title,version,extraction,players,swf,air,installed,running", lines[0])
	assert.Equal(t, "realm-quest,Realm Quest,1.2,idle,12,true,true,true,false", lines[1])
	assert.Equal(t, "star-forge,Star Forge,,idle,-1,true,false,false,true", lines[2])
}

func TestRun_Status(t *testing.T) {
	t.Parallel()

	st := sampleGames[0]
	st.Files = []manifest.InstalledFile{{Type: catalog.KindSWF, Path: "/g/realm-quest/realm-quest.swf"}}
	mgr := &mockManager{}
	mgr.On("Status", mock.Anything, "realm-quest").Return(st, nil)

	var out bytes.Buffer
	f := parse(t, "-status", "realm-quest")
	require.NoError(t, f.Run(context.Background(), mgr, &out))

	assert.Contains(t, out.String(), "Realm Quest (realm-quest)")
	assert.Contains(t, out.String(), "installed:  yes")
	assert.Contains(t, out.String(), "players:    12")
	assert.Contains(t, out.String(), "file:       swf /g/realm-quest/realm-quest.swf")
}

func TestRun_Players(t *testing.T) {
	t.Parallel()

	mgr := &mockManager{}
	mgr.On("PlayerCount", mock.Anything, "realm-quest").Return(catalog.UnknownPlayers)

	var out bytes.Buffer
	f := parse(t, "-players", "realm-quest")
	require.NoError(t, f.Run(context.Background(), mgr, &out))
	assert.Equal(t, "unknown\n", out.String())
}

func TestWriterSink(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	sink := WriterSink(&out)
	notifications.Success(sink, "Launched Realm Quest")
	notifications.Error(sink, "Failed to download Star Forge")

	assert.Equal(t, "[success] Launched Realm Quest\n[error] Failed to download Star Forge\n", out.String())
}

func TestLogWriters(t *testing.T) {
	t.Parallel()

	assert.Empty(t, LogWriters(false))
	assert.Len(t, LogWriters(true), 1)
}
