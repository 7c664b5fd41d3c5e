// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package logging

import (
	"strings"

	"github.com/rs/zerolog"
)

// BadgerAdapter implements badger.Logger on zerolog. Badger's info chatter is
// demoted to debug.
type BadgerAdapter struct {
	logger zerolog.Logger
}

// NewBadgerAdapter returns a badger logger tagged with component=catalog.
func NewBadgerAdapter() *BadgerAdapter {
	return &BadgerAdapter{logger: WithComponent("catalog")}
}

func (a *BadgerAdapter) Errorf(format string, args ...interface{}) {
	a.logger.Error().Msgf(trimNewline(format), args...)
}

func (a *BadgerAdapter) Warningf(format string, args ...interface{}) {
	a.logger.Warn().Msgf(trimNewline(format), args...)
}

func (a *BadgerAdapter) Infof(format string, args ...interface{}) {
	a.logger.Debug().Msgf(trimNewline(format), args...)
}

func (a *BadgerAdapter) Debugf(format string, args ...interface{}) {
	a.logger.Trace().Msgf(trimNewline(format), args...)
}

func trimNewline(s string) string {
	return strings.TrimRight(s, "\n")
}
