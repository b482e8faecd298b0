package agent

import (
	"context"
	"reflect"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestExecutorDecodesRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	query := "SELECT slug, is_available FROM candidates WHERE is_available = TRUE LIMIT 10"
	mock.ExpectQuery(regexp.QuoteMeta(query)).WillReturnRows(
		sqlmock.NewRows([]string{"slug", "is_available"}).
			AddRow([]byte("jane-doe-1a2b3c4d"), true).
			AddRow([]byte("john-roe-9f8e7d6c"), true),
	)

	exec := &Executor{DB: db}
	rows, err := exec.Execute(context.Background(), query)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := []map[string]any{
		{"slug": "jane-doe-1a2b3c4d", "is_available": true},
		{"slug": "john-roe-9f8e7d6c", "is_available": true},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows = %v, want %v", rows, want)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestExecutorPropagatesQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnError(context.DeadlineExceeded)

	exec := &Executor{DB: db}
	if _, err := exec.Execute(context.Background(), "SELECT slug FROM candidates LIMIT 10"); err == nil {
		t.Fatal("expected error")
	}
}
