// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package ctxlog carries a *slog.Logger in a context.Context.
//
// The default logger writes to stdout using PrettyHandler, which renders attributes as
// indented, coloured JSON. The level comes from the <EXECUTABLE>_LOG_LEVEL environment
// variable (DEBUG, INFO, WARN or ERROR) and defaults to WARN.
package ctxlog
