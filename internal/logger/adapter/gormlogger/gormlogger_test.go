package gormlogger_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	gormlog "gorm.io/gorm/logger"

	"github.com/accessd/accessd/internal/logger"
	"github.com/accessd/accessd/internal/logger/adapter/gormlogger"
)

func statement() (string, int64) {
	return "SELECT * FROM roles", 3
}

func TestTrace(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     logger.Gorm
		level   gormlog.LogLevel
		begin   time.Time
		err     error
		want    string
		wantNot bool
	}{
		{
			name:  "error is logged",
			level: gormlog.Warn,
			begin: time.Now(),
			err:   errors.New("disk full"),
			want:  "query failed",
		},
		{
			name:    "record not found ignored",
			cfg:     logger.Gorm{IgnoreRecordNotFound: true},
			level:   gormlog.Warn,
			begin:   time.Now(),
			err:     gorm.ErrRecordNotFound,
			wantNot: true,
		},
		{
			name:  "slow query warns",
			cfg:   logger.Gorm{SlowThreshold: time.Millisecond},
			level: gormlog.Warn,
			begin: time.Now().Add(-time.Second),
			want:  "slow query",
		},
		{
			name:  "query logging",
			cfg:   logger.Gorm{LogQueries: true},
			level: gormlog.Info,
			begin: time.Now(),
			want:  "SELECT * FROM roles",
		},
		{
			name:    "silent",
			cfg:     logger.Gorm{LogQueries: true},
			level:   gormlog.Silent,
			begin:   time.Now(),
			err:     errors.New("disk full"),
			wantNot: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer

			l := gormlogger.NewWithLogger(zerolog.New(&buf).Level(zerolog.TraceLevel), tc.cfg).LogMode(tc.level)
			l.Trace(context.Background(), tc.begin, statement, tc.err)

			if tc.wantNot {
				assert.Empty(t, buf.String())

				return
			}

			assert.Contains(t, buf.String(), tc.want)
			assert.Contains(t, buf.String(), `"component":"gorm"`)
		})
	}
}

func TestLevels(t *testing.T) {
	var buf bytes.Buffer

	l := gormlogger.NewWithLogger(zerolog.New(&buf).Level(zerolog.TraceLevel), logger.Gorm{})

	l.Info(context.Background(), "hidden %d", 1)
	assert.Empty(t, buf.String())

	l.Warn(context.Background(), "shown %d", 2)
	assert.Contains(t, buf.String(), "shown 2")

	l.LogMode(gormlog.Info).Info(context.Background(), "now %s", "visible")
	assert.Contains(t, buf.String(), "now visible")
}
