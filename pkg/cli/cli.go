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

// Package cli implements the realmdex command line front end.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/gocarina/gocsv"
	"github.com/realmdex/realmdex-core/internal/telemetry"
	"github.com/realmdex/realmdex-core/pkg/catalog"
	"github.com/realmdex/realmdex-core/pkg/config"
	"github.com/realmdex/realmdex-core/pkg/helpers"
	"github.com/realmdex/realmdex-core/pkg/installer"
	"github.com/realmdex/realmdex-core/pkg/notifications"
	"github.com/realmdex/realmdex-core/pkg/service"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrUsage means no action flag was given.
var ErrUsage = errors.New("no action given")

type Flags struct {
	List      *bool
	CSV       *bool
	Download  *string
	Play      *string
	PlaySWF   *string
	PlayAIR   *string
	Uninstall *string
	Status    *string
	Players   *string
	Version   *bool
	Verbose   *bool
}

// SetupFlags defines all CLI flags on fs.
func SetupFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		List: fs.Bool(
			"list",
			false,
			"list the catalog with install state and player counts",
		),
		CSV: fs.Bool(
			"csv",
			false,
			"print -list output as CSV",
		),
		Download: fs.String(
			"download",
			"",
			"download every artifact of a game",
		),
		Play: fs.String(
			"play",
			"",
			"launch a game, preferring the packaged application",
		),
		PlaySWF: fs.String(
			"play-swf",
			"",
			"launch the lightweight version of a game in the standalone player",
		),
		PlayAIR: fs.String(
			"play-air",
			"",
			"extract and launch the packaged application of a game",
		),
		Uninstall: fs.String(
			"uninstall",
			"",
			"remove every installed file of a game",
		),
		Status: fs.String(
			"status",
			"",
			"print the install state of a game",
		),
		Players: fs.String(
			"players",
			"",
			"print the live player count of a game",
		),
		Version: fs.Bool(
			"version",
			false,
			"print version and exit",
		),
		Verbose: fs.Bool(
			"verbose",
			false,
			"also write logs to stderr",
		),
	}
}

// Pre parses args and handles flags that need no environment. It reports
// whether the program should exit.
func (f *Flags) Pre(fs *flag.FlagSet, args []string, out io.Writer) (bool, error) {
	if err := fs.Parse(args); err != nil {
		return true, fmt.Errorf("failed to parse flags: %w", err)
	}
	if *f.Version {
		_, _ = fmt.Fprintf(out, "RealmDex v%s\n", config.AppVersion)
		return true, nil
	}
	return false, nil
}

// Setup starts logging and loads the config.
func Setup(defaults config.Values, writers []io.Writer) (*config.Instance, error) {
	if err := helpers.InitLogging(helpers.DataDir(), writers); err != nil {
		return nil, fmt.Errorf("error initializing logging: %w", err)
	}

	cfg, err := config.NewConfig(helpers.ConfigDir(), defaults)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	helpers.SetLogLevel(cfg.DebugLogging())

	// opt-in
	if err := telemetry.Init(cfg.ErrorReporting(), cfg.ErrorReportingDSN(), config.AppVersion); err != nil {
		log.Warn().Err(err).Msg("failed to initialize error reporting")
	}

	return cfg, nil
}

// WriterSink prints notifications one per line.
func WriterSink(w io.Writer) notifications.Sink {
	return notifications.SinkFunc(func(ev notifications.Event) {
		_, _ = fmt.Fprintf(w, "[%s] %s\n", ev.Kind, ev.Message)
	})
}

// Manager is the subset of service.Manager the CLI drives.
type Manager interface {
	Games(ctx context.Context, withPlayers bool) ([]service.GameStatus, error)
	Status(ctx context.Context, gameID string) (service.GameStatus, error)
	Download(ctx context.Context, gameID string) (installer.Result, error)
	Play(ctx context.Context, gameID string) error
	PlayLightweight(ctx context.Context, gameID string) error
	PlayPackaged(ctx context.Context, gameID string) error
	Uninstall(ctx context.Context, gameID string) error
	PlayerCount(ctx context.Context, gameID string) int
}

// Run performs the action selected by the flags. Notifications already
// reached the user, so errors are only returned for the exit status.
func (f *Flags) Run(ctx context.Context, mgr Manager, out io.Writer) error {
	switch {
	case *f.List:
		return listGames(ctx, mgr, out, *f.CSV)
	case *f.Download != "":
		_, err := mgr.Download(ctx, *f.Download)
		return err
	case *f.Play != "":
		return mgr.Play(ctx, *f.Play)
	case *f.PlaySWF != "":
		return mgr.PlayLightweight(ctx, *f.PlaySWF)
	case *f.PlayAIR != "":
		return mgr.PlayPackaged(ctx, *f.PlayAIR)
	case *f.Uninstall != "":
		return mgr.Uninstall(ctx, *f.Uninstall)
	case *f.Status != "":
		return printStatus(ctx, mgr, out, *f.Status)
	case *f.Players != "":
		printPlayers(out, mgr.PlayerCount(ctx, *f.Players))
		return nil
	default:
		return ErrUsage
	}
}

type gameRow struct {
	ID         string `csv:"id"`
	Title      string `csv:"title"`
	Version    string `csv:"version"`
	Extraction string `csv:"extraction"`
	Players    int    `csv:"players"`
	SWF        bool   `csv:"swf"`
	AIR        bool   `csv:"air"`
	Installed  bool   `csv:"installed"`
	Running    bool   `csv:"running"`
}

func toRows(games []service.GameStatus) []*gameRow {
	rows := make([]*gameRow, 0, len(games))
	for i := range games {
		g := &games[i]
		rows = append(rows, &gameRow{
			ID:         g.ID,
			Title:      g.Title,
			Version:    g.Version,
			Extraction: string(g.Extraction),
			Players:    g.Players,
			SWF:        g.URLs.SWF != "",
			AIR:        g.URLs.AIR != "",
			Installed:  g.Installed,
			Running:    g.Running,
		})
	}
	return rows
}

func listGames(ctx context.Context, mgr Manager, out io.Writer, asCSV bool) error {
	games, err := mgr.Games(ctx, true)
	if err != nil {
		return fmt.Errorf("failed to list games: %w", err)
	}
	rows := toRows(games)

	if asCSV {
		if err := gocsv.Marshal(rows, out); err != nil {
			return fmt.Errorf("failed to write csv: %w", err)
		}
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tTITLE\tINSTALLED\tSTATE\tPLAYERS")
	for _, r := range rows {
		state := r.Extraction
		if r.Running {
			state = "running"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Title, yesNo(r.Installed), state, playersText(r.Players))
	}
	if err := tw.Flush(); err != nil {
		log.Warn().Err(err).Msg("error flushing game list")
	}
	return nil
}

func printStatus(ctx context.Context, mgr Manager, out io.Writer, gameID string) error {
	st, err := mgr.Status(ctx, gameID)
	if err != nil {
		return err
	}

	var b strings.Builder
	_, _ = fmt.Fprintf(&b, "%s (%s)\n", st.Title, st.ID)
	_, _ = fmt.Fprintf(&b, "installed:  %s\n", yesNo(st.Installed))
	_, _ = fmt.Fprintf(&b, "extraction: %s\n", st.Extraction)
	_, _ = fmt.Fprintf(&b, "running:    %s\n", yesNo(st.Running))
	_, _ = fmt.Fprintf(&b, "players:    %s\n", playersText(st.Players))
	for _, file := range st.Files {
		_, _ = fmt.Fprintf(&b, "file:       %s %s\n", file.Type, file.Path)
	}
	_, _ = io.WriteString(out, b.String())
	return nil
}

func printPlayers(out io.Writer, n int) {
	_, _ = fmt.Fprintln(out, playersText(n))
}

func playersText(n int) string {
	if n == catalog.UnknownPlayers {
		return "unknown"
	}
	return strconv.Itoa(n)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// LogWriters returns the extra log outputs: a console writer on stderr when
// verbose is set.
func LogWriters(verbose bool) []io.Writer {
	if !verbose {
		return nil
	}
	return []io.Writer{zerolog.ConsoleWriter{Out: os.Stderr}}
}
