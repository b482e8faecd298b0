package candidates

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoTryMarkParsing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	repo := &PGRepo{DB: db}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE candidates")).
		WithArgs("cand-1", StatusParsing, StatusNotParsed, StatusFailed).
		WillReturnResult(sqlmock.NewResult(0, 1))

	moved, err := repo.TryMarkParsing(context.Background(), "cand-1")
	if err != nil {
		t.Fatalf("TryMarkParsing: %v", err)
	}
	if !moved {
		t.Fatal("expected transition to happen")
	}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE candidates")).
		WithArgs("cand-1", StatusParsing, StatusNotParsed, StatusFailed).
		WillReturnResult(sqlmock.NewResult(0, 0))

	moved, err = repo.TryMarkParsing(context.Background(), "cand-1")
	if err != nil {
		t.Fatalf("TryMarkParsing second: %v", err)
	}
	if moved {
		t.Fatal("guard must reject records already parsing or parsed")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoResetStuckParsing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	repo := &PGRepo{DB: db}
	cutoff := time.Now().UTC().Add(-time.Hour)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE candidates")).
		WithArgs(StatusNotParsed, StatusParsing, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	reset, err := repo.ResetStuckParsing(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("ResetStuckParsing: %v", err)
	}
	if reset != 3 {
		t.Fatalf("reset = %d, want 3", reset)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoGetBySlugNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	repo := &PGRepo{DB: db}

	mock.ExpectQuery(regexp.QuoteMeta("FROM candidates")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := repo.GetBySlug(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
