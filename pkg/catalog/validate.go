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

package catalog

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/realmdex/realmdex-core/pkg/config"
	"github.com/rs/zerolog/log"
)

var (
	slugRe    = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
	versionRe = regexp.MustCompile(`^v?\d+(\.\d+){0,2}([-+][0-9A-Za-z.-]+)?$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	for tag, fn := range map[string]validator.Func{
		"slug":        validateSlug,
		"gameversion": validateVersion,
		"entrypoint":  validateEntryPoint,
	} {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("failed to register %s validation: %v", tag, err))
		}
	}
	return v
}

// validateSlug checks the id is usable as a single path segment that does
// not collide with the shared player cache in the downloads root.
func validateSlug(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if strings.EqualFold(val, config.PlayersDir) {
		return false
	}
	return slugRe.MatchString(val) && !strings.Contains(val, "..")
}

// validateVersion accepts semantic versions, allowing the short "1" and
// "1.2" forms the catalog uses.
func validateVersion(fl validator.FieldLevel) bool {
	return versionRe.MatchString(fl.Field().String())
}

// validateEntryPoint rejects absolute hints and hints that climb out of the
// extracted tree.
func validateEntryPoint(fl validator.FieldLevel) bool {
	val := strings.ReplaceAll(fl.Field().String(), `\`, "/")
	if strings.HasPrefix(val, "/") || (len(val) > 1 && val[1] == ':') {
		return false
	}
	clean := path.Clean(val)
	return clean != ".." && !strings.HasPrefix(clean, "../")
}

// ValidateDescriptor checks a single descriptor and returns a readable error
// listing every failed field.
func ValidateDescriptor(d *Descriptor) error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, strings.ToLower(fe.Namespace())+" failed "+fe.Tag())
	}
	return errors.New(strings.Join(msgs, "; "))
}

// Sanitize drops invalid and duplicate descriptors, keeping catalog order.
func Sanitize(games []Descriptor) []Descriptor {
	seen := make(map[string]struct{}, len(games))
	out := make([]Descriptor, 0, len(games))
	for i := range games {
		d := games[i]
		if err := ValidateDescriptor(&d); err != nil {
			log.Warn().Err(err).Msgf("dropping invalid catalog entry %q", d.ID)
			continue
		}
		key := strings.ToLower(d.ID)
		if _, dup := seen[key]; dup {
			log.Warn().Msgf("dropping duplicate catalog entry %q", d.ID)
			continue
		}
		seen[key] = struct{}{}
		out = append(out, d)
	}
	return out
}
