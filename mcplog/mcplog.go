// Package mcplog is the structured logging sink shared by the endpoint,
// client, server and cmd/ binaries. It wraps github.com/effective-security/xlog
// the way this SDK lineage's own packages construct a package logger, and
// layers gopkg.in/natefinch/lumberjack.v2 underneath as a rotating file
// writer for long-running server processes.
//
// Stdio transports reserve stdout for MCP JSON-RPC framing, so a Logger
// built for a stdio-hosted server must never write to stdout; New with
// Options.StdioSafe set enforces that by routing output to stderr and/or a
// rotated log file only.
package mcplog

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/effective-security/xlog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/metoro-io/mcp-golang/internal/protocol"
)

var logger = xlog.NewPackageLogger("github.com/metoro-io/mcp-golang", "mcplog")

// FileConfig describes the rotating log file backing a Logger, mirroring
// the fields this corpus configures lumberjack.Logger with.
type FileConfig struct {
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Options configures New.
type Options struct {
	// Level is the global xlog level (xlog.DEBUG, xlog.INFO, ...).
	// Defaults to xlog.INFO.
	Level xlog.LogLevel
	// File, if non-nil, tees output through a rotating lumberjack writer.
	File *FileConfig
	// StdioSafe, when true, never writes to os.Stdout (required for any
	// process that also speaks MCP over stdio).
	StdioSafe bool
}

// Logger adapts xlog's package logger to protocol.Logger's Debugf/Errorf
// shape, so it can be handed to protocol.New, ServerOptions.Logger and
// ClientOptions.Logger.
type Logger struct {
	name string
}

var _ protocol.Logger = (*Logger)(nil)

// New configures xlog's global formatter and level per opts and returns a
// Logger for the named component (e.g. "server", "client", "endpoint").
func New(name string, opts Options) (*Logger, error) {
	if opts.Level == 0 {
		opts.Level = xlog.INFO
	}

	var writer io.Writer = os.Stderr
	if !opts.StdioSafe {
		writer = os.Stdout
	}

	if opts.File != nil {
		fileWriter := &lumberjack.Logger{
			Filename:   opts.File.Filename,
			MaxSize:    orDefault(opts.File.MaxSizeMB, 5),
			MaxBackups: opts.File.MaxBackups,
			MaxAge:     opts.File.MaxAgeDays,
			Compress:   opts.File.Compress,
		}
		writer = io.MultiWriter(fileWriter, writer)
	}

	xlog.SetFormatter(xlog.NewStringFormatter(writer))
	xlog.SetGlobalLogLevel(opts.Level)

	return &Logger{name: name}, nil
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// LevelFromString maps the CLI's --log-level flag (debug, info, warning,
// error) to an xlog.LogLevel, the way this corpus's own agent binaries map
// their --log-level flag to their logger's level constants. Unrecognized
// values fall back to xlog.INFO.
func LevelFromString(s string) xlog.LogLevel {
	switch s {
	case "debug":
		return xlog.DEBUG
	case "warning", "warn":
		return xlog.WARNING
	case "error":
		return xlog.ERROR
	case "critical":
		return xlog.CRITICAL
	default:
		return xlog.INFO
	}
}

// Debugf implements protocol.Logger.
func (l *Logger) Debugf(format string, args ...interface{}) {
	logger.KV(xlog.DEBUG, "component", l.name, "msg", fmt.Sprintf(format, args...))
}

// Errorf implements protocol.Logger.
func (l *Logger) Errorf(format string, args ...interface{}) {
	logger.KV(xlog.ERROR, "component", l.name, "msg", fmt.Sprintf(format, args...))
}

// ContextDebugf and ContextErrorf attach request-scoped context (trace ids
// via xlog's ContextKV) when one is available, for call sites that have a
// context.Context handy, such as request handlers.
func (l *Logger) ContextDebugf(ctx context.Context, format string, args ...interface{}) {
	logger.ContextKV(ctx, xlog.DEBUG, "component", l.name, "msg", fmt.Sprintf(format, args...))
}

func (l *Logger) ContextErrorf(ctx context.Context, format string, args ...interface{}) {
	logger.ContextKV(ctx, xlog.ERROR, "component", l.name, "msg", fmt.Sprintf(format, args...))
}
