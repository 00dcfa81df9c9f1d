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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/realmdex/realmdex-core/internal/telemetry"
	"github.com/realmdex/realmdex-core/pkg/cli"
	"github.com/realmdex/realmdex-core/pkg/config"
	"github.com/realmdex/realmdex-core/pkg/notifications"
	"github.com/realmdex/realmdex-core/pkg/service"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	fs := flag.CommandLine
	flags := cli.SetupFlags(fs)

	exit, err := flags.Pre(fs, os.Args[1:], os.Stdout)
	if exit || err != nil {
		return err
	}

	cfg, err := cli.Setup(config.BaseDefaults, cli.LogWriters(*flags.Verbose))
	if err != nil {
		return err
	}

	defer telemetry.Close()
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %v\n%s\n", r, stack)
			log.Error().
				Interface("panic", r).
				Bytes("stack", stack).
				Msg("recovered from panic")
			telemetry.Flush()
			os.Exit(1)
		}
	}()

	sink := notifications.Multi{cli.WriterSink(os.Stdout), notifications.LogSink{}}
	mgr, stop, err := service.Start(cfg, sink)
	if err != nil {
		log.Error().Msgf("error starting service: %s", err)
		return fmt.Errorf("error starting service: %w", err)
	}
	defer func() {
		if err := stop(); err != nil {
			log.Error().Msgf("error stopping settings watcher: %s", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err = flags.Run(ctx, mgr, os.Stdout)
	if errors.Is(err, cli.ErrUsage) {
		fs.Usage()
	}
	return err
}
