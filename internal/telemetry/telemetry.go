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

// Package telemetry sends error-level log events to Sentry when the user has
// opted in. User names are stripped from paths before anything leaves the
// machine.
package telemetry

import (
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	sentryzerolog "github.com/getsentry/sentry-go/zerolog"
	"github.com/realmdex/realmdex-core/pkg/config"
	"github.com/realmdex/realmdex-core/pkg/helpers"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const flushTimeout = 2 * time.Second

var (
	mu           sync.Mutex
	enabled      bool
	sentryWriter *sentryzerolog.Writer
	closeOnce    sync.Once

	unixHomeRe = regexp.MustCompile(`(?i)/home/[^/]+/`)
	macHomeRe  = regexp.MustCompile(`(?i)/Users/[^/]+/`)
	winHomeRe  = regexp.MustCompile(`(?i)[a-zA-Z]:\\Users\\[^\\]+\\`)
)

// ErrNoDSN is returned when reporting is enabled without a DSN.
var ErrNoDSN = errors.New("error reporting enabled without a dsn")

// Init hooks Sentry into the global logger. It does nothing unless
// reportingEnabled is set.
func Init(reportingEnabled bool, dsn, appVersion string) error {
	if !reportingEnabled {
		log.Debug().Msg("error reporting disabled")
		return nil
	}
	if dsn == "" {
		return ErrNoDSN
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Release:          config.AppName + "@" + appVersion,
		Environment:      runtime.GOOS,
		AttachStacktrace: true,
		SendDefaultPII:   false,
		ServerName:       "",
		MaxBreadcrumbs:   0,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return sanitizeEvent(event)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sentry: %w", err)
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
	})

	w, err := sentryzerolog.NewWithHub(sentry.CurrentHub(), sentryzerolog.Options{
		Levels:          []zerolog.Level{zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel},
		FlushTimeout:    flushTimeout,
		WithBreadcrumbs: false,
	})
	if err != nil {
		return fmt.Errorf("failed to create sentry zerolog writer: %w", err)
	}

	log.Logger = log.Output(zerolog.MultiLevelWriter(
		helpers.LogWriter(),
		w,
	)).With().Timestamp().Caller().Logger()

	mu.Lock()
	sentryWriter = w
	enabled = true
	mu.Unlock()

	log.Info().Msg("error reporting enabled")
	return nil
}

// Enabled reports whether Init turned reporting on.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// Flush waits for queued events, for use before os.Exit.
func Flush() {
	if !Enabled() {
		return
	}
	sentry.Flush(flushTimeout)
}

// Close flushes and detaches the Sentry writer. Safe to call more than once.
func Close() {
	if !Enabled() {
		return
	}
	closeOnce.Do(func() {
		if err := sentryWriter.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing sentry writer")
		}
		sentry.Flush(flushTimeout)
	})
}

func sanitizeEvent(event *sentry.Event) *sentry.Event {
	event.ServerName = ""
	event.Message = sanitizePath(event.Message)

	for i := range event.Exception {
		event.Exception[i].Value = sanitizePath(event.Exception[i].Value)
		if event.Exception[i].Stacktrace == nil {
			continue
		}
		for j := range event.Exception[i].Stacktrace.Frames {
			frame := &event.Exception[i].Stacktrace.Frames[j]
			frame.AbsPath = sanitizePath(frame.AbsPath)
			frame.Filename = sanitizePath(frame.Filename)
		}
	}

	for k, v := range event.Extra {
		if s, ok := v.(string); ok {
			event.Extra[k] = sanitizePath(s)
		}
	}

	return event
}

// sanitizePath replaces the user name in home directory paths.
func sanitizePath(p string) string {
	if p == "" {
		return p
	}
	p = unixHomeRe.ReplaceAllString(p, "/home/<user>/")
	p = macHomeRe.ReplaceAllString(p, "/Users/<user>/")
	return winHomeRe.ReplaceAllString(p, `C:\Users\<user>\`)
}
