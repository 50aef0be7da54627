// Package gormlogger routes gorm statement logging through zerolog.
package gormlogger

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	gormlog "gorm.io/gorm/logger"

	"github.com/accessd/accessd/internal/logger"
)

// Logger implements gorm's logger.Interface.
type Logger struct {
	zl    zerolog.Logger
	level gormlog.LogLevel
	cfg   logger.Gorm
}

// New returns a gorm logger writing to the global zerolog logger.
func New(cfg logger.Gorm) *Logger {
	return NewWithLogger(log.Logger, cfg)
}

// NewWithLogger returns a gorm logger writing to zl.
func NewWithLogger(zl zerolog.Logger, cfg logger.Gorm) *Logger {
	return &Logger{
		zl:    zl.With().Str("component", "gorm").Logger(),
		level: gormlog.Warn,
		cfg:   cfg,
	}
}

// LogMode returns a copy with the given level.
func (l *Logger) LogMode(level gormlog.LogLevel) gormlog.Interface {
	n := *l
	n.level = level

	return &n
}

// Info logs at info level.
func (l *Logger) Info(_ context.Context, msg string, args ...any) {
	if l.level >= gormlog.Info {
		l.zl.Info().Msgf(msg, args...)
	}
}

// Warn logs at warn level.
func (l *Logger) Warn(_ context.Context, msg string, args ...any) {
	if l.level >= gormlog.Warn {
		l.zl.Warn().Msgf(msg, args...)
	}
}

// Error logs at error level.
func (l *Logger) Error(_ context.Context, msg string, args ...any) {
	if l.level >= gormlog.Error {
		l.zl.Error().Msgf(msg, args...)
	}
}

// Trace logs one executed statement.
func (l *Logger) Trace(_ context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlog.Silent {
		return
	}

	elapsed := time.Since(begin)

	switch {
	case err != nil && l.level >= gormlog.Error &&
		!(l.cfg.IgnoreRecordNotFound && errors.Is(err, gorm.ErrRecordNotFound)):
		sql, rows := fc()
		l.zl.Error().Err(err).Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("query failed")
	case l.cfg.SlowThreshold > 0 && elapsed > l.cfg.SlowThreshold && l.level >= gormlog.Warn:
		sql, rows := fc()
		l.zl.Warn().Dur("elapsed", elapsed).Dur("threshold", l.cfg.SlowThreshold).
			Int64("rows", rows).Str("sql", sql).Msg("slow query")
	case l.cfg.LogQueries && l.level >= gormlog.Info:
		sql, rows := fc()
		l.zl.Debug().Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("query")
	}
}
