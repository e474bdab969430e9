package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestStoreNotConfigured(t *testing.T) {
	var s *Store
	if _, err := s.InsertExecution(context.Background(), Execution{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("nil store should report ErrNotConfigured, got %v", err)
	}
	if _, err := NewStore(nil).ListRecentExecutions(context.Background(), 5); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("store without pool should report ErrNotConfigured, got %v", err)
	}
	if _, _, err := NewStore(nil).TryAdvisoryLock(context.Background(), 1); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("advisory lock without pool should report ErrNotConfigured, got %v", err)
	}
	if _, err := NewStore(nil).DeleteExecutionsBefore(context.Background(), time.Now()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("delete without pool should report ErrNotConfigured, got %v", err)
	}
	NewStore(nil).Close()
}

func TestNullableHelpers(t *testing.T) {
	if nullableInt(nil) != nil || nullableString(nil) != nil || nullableDecimal(nil) != nil {
		t.Fatal("nil pointers should map to SQL NULL")
	}

	n := int64(42)
	if nullableInt(&n) != int64(42) {
		t.Fatal("int pointer should be dereferenced")
	}

	d := decimal.RequireFromString("2500.7")
	if nullableDecimal(&d) != "2500.7" {
		t.Fatalf("decimal should be sent as text, got %v", nullableDecimal(&d))
	}
}

func TestParseNullDecimal(t *testing.T) {
	got, err := parseNullDecimal(sql.NullString{})
	if err != nil || got != nil {
		t.Fatalf("NULL should parse to nil, got %v %v", got, err)
	}

	got, err = parseNullDecimal(sql.NullString{String: "2500", Valid: true})
	if err != nil || got == nil || got.IntPart() != 2500 {
		t.Fatalf("unexpected parse result %v %v", got, err)
	}

	if _, err := parseNullDecimal(sql.NullString{String: "abc", Valid: true}); err == nil {
		t.Fatal("garbage should fail to parse")
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	body, err := migrationsFS.ReadFile("migrations/0001_executions.sql")
	if err != nil {
		t.Fatalf("migration should be embedded: %v", err)
	}
	if len(body) == 0 {
		t.Fatal("migration should not be empty")
	}
}
