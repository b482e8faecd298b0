package agent

import (
	"errors"
	"strings"
	"testing"
)

func TestGuardrailRejectsNonSelect(t *testing.T) {
	g := Guardrail{}
	queries := []string{
		"UPDATE candidates SET is_available = FALSE",
		"DELETE FROM candidates",
		"WITH x AS (SELECT 1) SELECT * FROM x",
		"EXPLAIN SELECT slug FROM candidates",
		"",
	}
	for _, q := range queries {
		if _, err := g.ValidateAndSanitize(q); !errors.Is(err, ErrRejected) {
			t.Errorf("ValidateAndSanitize(%q) err = %v, want ErrRejected", q, err)
		}
	}
}

func TestGuardrailRejectsStatementStacking(t *testing.T) {
	g := Guardrail{}
	q := "SELECT slug FROM candidates; DROP TABLE candidates"
	if _, err := g.ValidateAndSanitize(q); !errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
}

func TestGuardrailTrailingSemicolonIsAllowed(t *testing.T) {
	g := Guardrail{}
	out, err := g.ValidateAndSanitize("SELECT slug FROM candidates WHERE is_available = TRUE LIMIT 5;")
	if err != nil {
		t.Fatalf("ValidateAndSanitize: %v", err)
	}
	if strings.Contains(out, ";") {
		t.Fatalf("output still contains semicolon: %q", out)
	}
}

func TestGuardrailForbiddenKeywordsUnderCaseMutation(t *testing.T) {
	g := Guardrail{}
	queries := []string{
		"SELECT slug FROM candidates WHERE InSeRt = 1",
		"SELECT slug FROM candidates WHERE x = 'a' AND DELETE",
		"SELECT to_tsvector(slug) FROM candidates",
		"SELECT slug FROM candidates WHERE To_TsQuErY('x') @@ y",
		"SELECT slug FROM candidates WHERE extracted_data @@ 'q'",
		"SELECT slug FROM candidates WHERE TRUNCATE",
		"SELECT slug, DROP FROM candidates",
	}
	for _, q := range queries {
		if _, err := g.ValidateAndSanitize(q); !errors.Is(err, ErrRejected) {
			t.Errorf("ValidateAndSanitize(%q) err = %v, want ErrRejected", q, err)
		}
	}
}

func TestGuardrailTableAllowList(t *testing.T) {
	g := Guardrail{}
	bad := []string{
		"SELECT slug FROM users",
		"SELECT slug FROM candidates JOIN job_posts ON true",
		"SELECT slug FROM pg_catalog.pg_tables",
	}
	for _, q := range bad {
		if _, err := g.ValidateAndSanitize(q); !errors.Is(err, ErrRejected) {
			t.Errorf("ValidateAndSanitize(%q) err = %v, want ErrRejected", q, err)
		}
	}

	if _, err := g.ValidateAndSanitize("SELECT slug FROM candidates LIMIT 5"); err != nil {
		t.Fatalf("allowed table rejected: %v", err)
	}
}

func TestGuardrailColumnAllowList(t *testing.T) {
	g := Guardrail{}
	if _, err := g.ValidateAndSanitize("SELECT email FROM candidates"); !errors.Is(err, ErrRejected) {
		t.Fatalf("disallowed column err = %v, want ErrRejected", err)
	}
	if _, err := g.ValidateAndSanitize("SELECT slug, secret_notes FROM candidates"); !errors.Is(err, ErrRejected) {
		t.Fatalf("mixed columns err = %v, want ErrRejected", err)
	}

	ok := []string{
		"SELECT * FROM candidates",
		"SELECT slug, is_available FROM candidates",
		"SELECT candidates.slug AS s, extracted_data FROM candidates",
		"SELECT extracted_data->>'name' FROM candidates LIMIT 5",
	}
	for _, q := range ok {
		if _, err := g.ValidateAndSanitize(q); err != nil {
			t.Errorf("ValidateAndSanitize(%q) = %v, want ok", q, err)
		}
	}
}

func TestGuardrailAppliesDefaultLimit(t *testing.T) {
	g := Guardrail{}
	out, err := g.ValidateAndSanitize("SELECT slug FROM candidates WHERE is_available = TRUE")
	if err != nil {
		t.Fatalf("ValidateAndSanitize: %v", err)
	}
	if !strings.HasSuffix(out, "LIMIT 10") {
		t.Fatalf("output = %q, want default LIMIT 10 appended", out)
	}
}

func TestGuardrailClampsLimit(t *testing.T) {
	g := Guardrail{}
	out, err := g.ValidateAndSanitize("SELECT slug FROM candidates WHERE is_available = TRUE LIMIT 500")
	if err != nil {
		t.Fatalf("ValidateAndSanitize: %v", err)
	}
	if !strings.Contains(out, "LIMIT 20") || strings.Contains(out, "500") {
		t.Fatalf("output = %q, want LIMIT clamped to 20", out)
	}

	out, err = g.ValidateAndSanitize("SELECT slug FROM candidates WHERE is_available = TRUE LIMIT 15")
	if err != nil {
		t.Fatalf("ValidateAndSanitize: %v", err)
	}
	if !strings.Contains(out, "LIMIT 15") {
		t.Fatalf("output = %q, want LIMIT 15 untouched", out)
	}
}

func TestGuardrailForcesAvailabilityFilter(t *testing.T) {
	g := Guardrail{}

	out, err := g.ValidateAndSanitize("SELECT slug FROM candidates")
	if err != nil {
		t.Fatalf("ValidateAndSanitize: %v", err)
	}
	if !strings.Contains(out, "WHERE is_available = TRUE") {
		t.Fatalf("output = %q, want WHERE is_available = TRUE", out)
	}

	out, err = g.ValidateAndSanitize("SELECT slug FROM candidates WHERE has_work_visa = TRUE")
	if err != nil {
		t.Fatalf("ValidateAndSanitize: %v", err)
	}
	if !strings.Contains(out, "AND is_available = TRUE") {
		t.Fatalf("output = %q, want AND is_available = TRUE", out)
	}

	out, err = g.ValidateAndSanitize("SELECT slug FROM candidates ORDER BY slug LIMIT 5")
	if err != nil {
		t.Fatalf("ValidateAndSanitize: %v", err)
	}
	if !strings.Contains(out, "WHERE is_available = TRUE ORDER BY slug") {
		t.Fatalf("output = %q, want filter inserted before ORDER BY", out)
	}

	// An existing reference is left alone.
	out, err = g.ValidateAndSanitize("SELECT slug FROM candidates WHERE is_available = FALSE LIMIT 5")
	if err != nil {
		t.Fatalf("ValidateAndSanitize: %v", err)
	}
	if strings.Count(out, "is_available") != 1 {
		t.Fatalf("output = %q, want single is_available reference", out)
	}
}

func TestGuardrailSimpleDialectRewrites(t *testing.T) {
	g := Guardrail{SimpleDialect: true}
	out, err := g.ValidateAndSanitize("SELECT slug FROM candidates WHERE extracted_data->>'name' ILIKE '%jane%' AND is_available = TRUE LIMIT 5")
	if err != nil {
		t.Fatalf("ValidateAndSanitize: %v", err)
	}
	if strings.Contains(strings.ToLower(out), "ilike") {
		t.Fatalf("output = %q, want ILIKE rewritten", out)
	}
	if !strings.Contains(out, "LIKE '%jane%'") {
		t.Fatalf("output = %q, want LIKE kept", out)
	}

	out, err = g.ValidateAndSanitize("SELECT slug FROM candidates WHERE extracted_data::text LIKE '%go%' AND is_available = TRUE LIMIT 5")
	if err != nil {
		t.Fatalf("ValidateAndSanitize: %v", err)
	}
	if strings.Contains(out, "::text") {
		t.Fatalf("output = %q, want ::text stripped", out)
	}
}

func TestGuardrailNormalizesWhitespace(t *testing.T) {
	g := Guardrail{}
	out, err := g.ValidateAndSanitize("SELECT   slug\n FROM\t candidates   WHERE is_available = TRUE LIMIT 5")
	if err != nil {
		t.Fatalf("ValidateAndSanitize: %v", err)
	}
	if strings.Contains(out, "  ") || strings.Contains(out, "\n") || strings.Contains(out, "\t") {
		t.Fatalf("output = %q, want collapsed whitespace", out)
	}
}
