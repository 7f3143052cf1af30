// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

/*
Package logging provides the zerolog-based logger used across CourseScope.

A global logger is initialized with defaults at package load and reconfigured
from main with Init. Packages log through the level helpers:

	logging.Info().Int64("course_id", id).Msg("course audit started")
	logging.Error().Err(err).Str("batch_id", batchID).Msg("failed to persist batch")

Request-scoped logging picks up correlation and request ids from the context:

	logging.Ctx(ctx).Warn().Msg("upstream retry")

Libraries that require log/slog (sutureslog, watermill) are bridged through
NewSlogLogger, which forwards slog records into zerolog.

Configuration (via internal/config):
  - LOG_LEVEL: trace, debug, info, warn, error (default: info)
  - LOG_FORMAT: json or console (default: json)
  - LOG_CALLER: include caller file:line (default: false)
*/
package logging
