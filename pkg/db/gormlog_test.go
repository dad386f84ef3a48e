package db

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func bufferedQueryLogger(slow time.Duration) (*queryLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "db-test", Output: &buf})
	return newQueryLogger(logg, slow), &buf
}

func statement() (string, int64) { return "SELECT * FROM orders", 3 }

func TestQueryLoggerReportsSlowStatements(t *testing.T) {
	ql, buf := bufferedQueryLogger(10 * time.Millisecond)

	ql.Trace(context.Background(), time.Now(), statement, nil)
	if buf.Len() != 0 {
		t.Fatalf("fast statement should not be logged: %s", buf.String())
	}

	ql.Trace(context.Background(), time.Now().Add(-time.Second), statement, nil)
	out := buf.String()
	if !strings.Contains(out, "slow query") || !strings.Contains(out, "SELECT * FROM orders") {
		t.Fatalf("expected slow query entry, got %s", out)
	}
}

func TestQueryLoggerReportsFailuresButNotMissingRows(t *testing.T) {
	ql, buf := bufferedQueryLogger(0)

	ql.Trace(context.Background(), time.Now(), statement, gorm.ErrRecordNotFound)
	if buf.Len() != 0 {
		t.Fatalf("record not found is not a failure: %s", buf.String())
	}

	ql.Trace(context.Background(), time.Now(), statement, errors.New("relation does not exist"))
	if !strings.Contains(buf.String(), "query failed") {
		t.Fatalf("expected failure entry, got %s", buf.String())
	}
}

func TestQueryLoggerSilentMode(t *testing.T) {
	ql, buf := bufferedQueryLogger(time.Nanosecond)
	silent := ql.LogMode(gormlogger.Silent)

	silent.Trace(context.Background(), time.Now().Add(-time.Second), statement, errors.New("boom"))
	if buf.Len() != 0 {
		t.Fatalf("silent mode should drop everything: %s", buf.String())
	}
	if ql.level != gormlogger.Warn {
		t.Fatalf("LogMode must not mutate the receiver")
	}
}
