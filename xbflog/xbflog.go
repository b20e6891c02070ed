// Copyright 2024 The xbf Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package xbflog is the logging seam the core package calls through, kept as
// its own subpackage the same way the teacher keeps its logger behind
// github.com/saferwall/pe/log rather than importing a logging library
// straight into the parsing code. It re-exports just enough of
// github.com/go-kratos/kratos/v2/log to match that calling convention.
package xbflog

import kratoslog "github.com/go-kratos/kratos/v2/log"

// Logger is the sink a Helper writes through.
type Logger = kratoslog.Logger

// Helper is the logging handle call sites hold, matching pe.logger's shape.
type Helper = kratoslog.Helper

// Level mirrors kratos' severity levels.
type Level = kratoslog.Level

const (
	LevelDebug = kratoslog.LevelDebug
	LevelWarn  = kratoslog.LevelWarn
	LevelError = kratoslog.LevelError
)

// NewStdLogger wraps an io.Writer as a Logger, same as log.NewStdLogger.
func NewStdLogger(w interface{ Write([]byte) (int, error) }) Logger {
	return kratoslog.NewStdLogger(w)
}

// NewFilter narrows a Logger to entries at or above the given level.
func NewFilter(l Logger, opts ...kratoslog.FilterOption) Logger {
	return kratoslog.NewFilter(l, opts...)
}

// FilterLevel builds the FilterOption NewFilter expects.
func FilterLevel(level Level) kratoslog.FilterOption {
	return kratoslog.FilterLevel(level)
}

// NewHelper adapts a Logger to the Errorf/Warnf/Debugf call sites use.
func NewHelper(l Logger) *Helper {
	return kratoslog.NewHelper(l)
}
