package appointments

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"
	"time"

	"schedcal/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

type fakeDB struct {
	sql  string
	args []any
	row  fakeRow
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql, f.args = sql, args
	return pgconn.NewCommandTag("DELETE 2"), nil
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not supported")
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.sql, f.args = sql, args
	return f.row
}

func TestCreateReturnsID(t *testing.T) {
	db := &fakeDB{row: fakeRow{scan: func(dest ...any) error {
		*dest[0].(*int64) = 42
		return nil
	}}}
	repo := NewRepository(db)
	id, err := repo.Create(context.Background(), models.Appointment{
		FormID:       "form-1",
		StartTime:    time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC),
		EndTime:      time.Date(2025, 1, 10, 11, 0, 0, 0, time.UTC),
		Participants: []string{"a@example.com"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 42 {
		t.Fatalf("expected id 42, got %d", id)
	}
	if !strings.Contains(db.sql, "INSERT INTO appointments") || len(db.args) != 10 || db.args[0] != "form-1" {
		t.Fatalf("unexpected statement %q with %v", db.sql, db.args)
	}
}

func TestGetByFormIDNotFound(t *testing.T) {
	db := &fakeDB{row: fakeRow{scan: func(dest ...any) error { return pgx.ErrNoRows }}}
	_, err := NewRepository(db).GetByFormID(context.Background(), "form-1")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteByFormID(t *testing.T) {
	db := &fakeDB{}
	n, err := NewRepository(db).DeleteByFormID(context.Background(), "form-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows, got %d", n)
	}
}

func TestMigrationsAreEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(migrations, "migrations")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(entries))
	}
	for _, e := range entries {
		b, err := fs.ReadFile(migrations, "migrations/"+e.Name())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(string(b), "-- +goose Up") || !strings.Contains(string(b), "-- +goose Down") {
			t.Fatalf("migration %s is missing goose annotations", e.Name())
		}
	}
}
