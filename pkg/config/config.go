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

package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/realmdex/realmdex-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

const (
	SchemaVersion = 1
	CfgEnv        = "REALMDEX_CFG"

	PolicyAny = "any"
	PolicyAll = "all"

	defaultCatalogTimeout  = 15 * time.Second
	defaultDownloadTimeout = 10 * time.Minute
	defaultExtractTimeout  = 5 * time.Minute
	defaultResolverDepth   = 16
)

type Values struct {
	Catalog        Catalog        `toml:"catalog"`
	Downloads      Downloads      `toml:"downloads"`
	Player         Player         `toml:"player"`
	ErrorReporting ErrorReporting `toml:"error_reporting"`
	Auth           Auth           `toml:"auth,omitempty"`
	ConfigSchema   int            `toml:"config_schema"`
	DebugLogging   bool           `toml:"debug_logging"`
}

// ErrorReporting is opt-in. Nothing is sent unless it is enabled and a DSN
// is set.
type ErrorReporting struct {
	DSN     string `toml:"dsn,omitempty"`
	Enabled bool   `toml:"enabled"`
}

type Catalog struct {
	URL     string `toml:"url"`
	Timeout string `toml:"timeout,omitempty"`
}

type Downloads struct {
	// DefaultDir is used when the settings record has no downloadsPath.
	DefaultDir       string `toml:"default_dir,omitempty"`
	Policy           string `toml:"policy"`
	Timeout          string `toml:"timeout,omitempty"`
	ExtractTimeout   string `toml:"extract_timeout,omitempty"`
	ResolverMaxDepth int    `toml:"resolver_max_depth,omitempty"`
}

type Player struct {
	URLs    map[string]string `toml:"urls,omitempty"`
	Version string            `toml:"version"`
}

var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	Catalog: Catalog{
		URL:     DefaultCatalog,
		Timeout: defaultCatalogTimeout.String(),
	},
	Downloads: Downloads{
		Policy:         PolicyAny,
		Timeout:        defaultDownloadTimeout.String(),
		ExtractTimeout: defaultExtractTimeout.String(),
	},
	Player: Player{
		Version: DefaultPlayerVer,
		URLs: map[string]string{
			"11": "https://kevinbudz.github.io/flashplayer_11.exe",
			"18": "https://kevinbudz.github.io/flashplayer_18.exe",
			"32": "https://kevinbudz.github.io/flashplayer_32.exe",
		},
	},
}

type Instance struct {
	cfgPath      string
	settingsPath string
	vals         Values
	defaults     Values
	settings     Settings
	mu           syncutil.RWMutex
}

//nolint:gocritic // config struct copied for immutability
func NewConfig(configDir string, defaults Values) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	log.Debug().Msgf("env config path: %s", cfgPath)

	if cfgPath == "" {
		cfgPath = filepath.Join(configDir, CfgFile)
	}

	defaults.Player.URLs = maps.Clone(defaults.Player.URLs)

	cfg := Instance{
		cfgPath:      cfgPath,
		settingsPath: filepath.Join(filepath.Dir(cfgPath), SettingsFile),
		vals:         defaults,
		defaults:     defaults,
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		log.Info().Msg("saving new default config to disk")

		err := os.MkdirAll(filepath.Dir(cfgPath), 0o750)
		if err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		err = cfg.Save()
		if err != nil {
			return nil, err
		}
	}

	err := cfg.Load()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Load reads config.toml on top of the defaults, then the JSON settings
// record next to it. A missing settings record is not an error.
func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := os.ReadFile(c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// start with defaults so keys missing from the file keep their values
	newVals := c.defaults
	newVals.Player.URLs = maps.Clone(c.defaults.Player.URLs)
	err = toml.Unmarshal(data, &newVals)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if newVals.ConfigSchema != SchemaVersion {
		log.Error().Msgf(
			"schema version mismatch: got %d, expecting %d",
			newVals.ConfigSchema,
			SchemaVersion,
		)
		return errors.New("schema version mismatch")
	}

	switch newVals.Downloads.Policy {
	case PolicyAny, PolicyAll:
	default:
		log.Warn().Msgf("unknown download policy %q, using %q", newVals.Downloads.Policy, PolicyAny)
		newVals.Downloads.Policy = PolicyAny
	}

	c.vals = newVals

	settings, err := LoadSettings(c.settingsPath)
	if err != nil {
		log.Warn().Err(err).Msgf("ignoring unreadable settings file: %s", c.settingsPath)
		settings = Settings{}
	}
	c.settings = settings

	return nil
}

func (c *Instance) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	c.vals.ConfigSchema = SchemaVersion

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.cfgPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

func (c *Instance) SetDebugLogging(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.DebugLogging = enabled
}

func (c *Instance) ErrorReporting() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.ErrorReporting.Enabled && c.vals.ErrorReporting.DSN != ""
}

func (c *Instance) ErrorReportingDSN() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.ErrorReporting.DSN
}

func (c *Instance) SetErrorReporting(enabled bool, dsn string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.ErrorReporting = ErrorReporting{Enabled: enabled, DSN: dsn}
}

func (c *Instance) CatalogURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Catalog.URL
}

func (c *Instance) CatalogTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDuration(c.vals.Catalog.Timeout, defaultCatalogTimeout)
}

// DownloadPolicy returns PolicyAny or PolicyAll.
func (c *Instance) DownloadPolicy() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Downloads.Policy == "" {
		return PolicyAny
	}
	return c.vals.Downloads.Policy
}

func (c *Instance) SetDownloadPolicy(policy string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Downloads.Policy = policy
}

func (c *Instance) DownloadTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDuration(c.vals.Downloads.Timeout, defaultDownloadTimeout)
}

func (c *Instance) ExtractTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDuration(c.vals.Downloads.ExtractTimeout, defaultExtractTimeout)
}

func (c *Instance) ResolverMaxDepth() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Downloads.ResolverMaxDepth <= 0 {
		return defaultResolverDepth
	}
	return c.vals.Downloads.ResolverMaxDepth
}

func (c *Instance) PlayerVersion() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Player.Version == "" {
		return DefaultPlayerVer
	}
	return c.vals.Player.Version
}

func (c *Instance) SetPlayerVersion(version string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Player.Version = version
}

// PlayerURL returns the download location of the standalone player for a
// version, and false if the version is unknown.
func (c *Instance) PlayerURL(version string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.vals.Player.URLs[strings.TrimSpace(version)]
	return u, ok && u != ""
}

func (c *Instance) SetPlayerURL(version, playerURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.vals.Player.URLs == nil {
		c.vals.Player.URLs = make(map[string]string)
	}
	c.vals.Player.URLs[strings.TrimSpace(version)] = playerURL
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Warn().Msgf("invalid duration %q, using %s", raw, fallback)
		return fallback
	}
	return d
}
