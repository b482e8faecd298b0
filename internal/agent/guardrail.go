package agent

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrRejected is returned when a drafted query fails validation. Rejections
// are surfaced to the caller as-is: the query is never downgraded or
// retried.
var ErrRejected = errors.New("query rejected")

const (
	defaultLimit = 10
	maxLimit     = 20
)

// allowedTables and allowedColumns bound what a drafted query may touch.
var allowedTables = map[string]struct{}{
	"candidates": {},
}

var allowedColumns = map[string]struct{}{
	"id":                          {},
	"slug":                        {},
	"extracted_data":              {},
	"willing_to_relocate":         {},
	"employment_type_preferences": {},
	"work_mode_preferences":       {},
	"has_work_visa":               {},
	"expected_salary_range":       {},
	"is_available":                {},
}

var forbiddenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bto_tsvector\b`),
	regexp.MustCompile(`(?i)\bto_tsquery\b`),
	regexp.MustCompile(`(?i)\bplainto_tsquery\b`),
	regexp.MustCompile(`(?i)\bphraseto_tsquery\b`),
	regexp.MustCompile(`(?i)\bwebsearch_to_tsquery\b`),
	regexp.MustCompile(`@@`),
	regexp.MustCompile(`(?i)\b(insert|update|delete|drop|alter|truncate|create)\b`),
}

var (
	selectPrefixRe = regexp.MustCompile(`(?i)^select\b`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
	tableRe        = regexp.MustCompile(`(?i)\b(?:from|join)\s+([A-Za-z_][A-Za-z0-9_.]*)`)
	selectListRe   = regexp.MustCompile(`(?i)^select\s+(.*?)\s+from\s`)
	columnRe       = regexp.MustCompile(`^[a-z_][a-z0-9_]*`)
	limitRe        = regexp.MustCompile(`(?i)\blimit\s+(\d+)`)
	availableRe    = regexp.MustCompile(`(?i)\bis_available\b`)
	whereRe        = regexp.MustCompile(`(?i)\bwhere\b`)
	clauseTailRe   = regexp.MustCompile(`(?i)\b(order\s+by|group\s+by|limit)\b`)
	ilikeRe        = regexp.MustCompile(`(?i)\bilike\b`)
	textCastRe     = regexp.MustCompile(`(?i)::text\b`)
)

// Guardrail validates and sanitizes model-drafted SQL before execution. The
// guardrail, not the drafting prompt, is authoritative.
type Guardrail struct {
	// SimpleDialect rewrites for the local/dev store, which has no ILIKE
	// and no ::text casts.
	SimpleDialect bool
}

// ValidateAndSanitize runs every check and returns the executable query.
// Any failure returns ErrRejected with the reason; nothing is fixed up
// silently except the documented LIMIT and availability rewrites.
func (g Guardrail) ValidateAndSanitize(query string) (string, error) {
	q := whitespaceRe.ReplaceAllString(strings.TrimSpace(query), " ")
	q = strings.TrimRight(q, "; ")

	if !selectPrefixRe.MatchString(q) {
		return "", fmt.Errorf("%w: only SELECT statements are allowed", ErrRejected)
	}
	if strings.Contains(q, ";") {
		return "", fmt.Errorf("%w: statement stacking is not allowed", ErrRejected)
	}
	for _, pattern := range forbiddenPatterns {
		if loc := pattern.FindString(q); loc != "" {
			return "", fmt.Errorf("%w: forbidden pattern %q", ErrRejected, strings.ToLower(loc))
		}
	}
	if err := checkTables(q); err != nil {
		return "", err
	}
	if err := checkColumns(q); err != nil {
		return "", err
	}

	q = enforceAvailability(q)
	q = enforceLimit(q)

	if g.SimpleDialect {
		q = ilikeRe.ReplaceAllString(q, "LIKE")
		q = textCastRe.ReplaceAllString(q, "")
	}

	return whitespaceRe.ReplaceAllString(strings.TrimSpace(q), " "), nil
}

func checkTables(q string) error {
	matches := tableRe.FindAllStringSubmatch(q, -1)
	if len(matches) == 0 {
		return fmt.Errorf("%w: no table referenced", ErrRejected)
	}
	for _, m := range matches {
		table := strings.ToLower(m[1])
		if _, ok := allowedTables[table]; !ok {
			return fmt.Errorf("%w: table %q is not allowed", ErrRejected, table)
		}
	}
	return nil
}

func checkColumns(q string) error {
	m := selectListRe.FindStringSubmatch(q)
	if m == nil {
		return fmt.Errorf("%w: unable to read the select list", ErrRejected)
	}
	for _, part := range strings.Split(m[1], ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if part == "*" {
			continue
		}
		if idx := strings.Index(part, " as "); idx >= 0 {
			part = strings.TrimSpace(part[:idx])
		}
		part = strings.TrimPrefix(part, "candidates.")
		column := columnRe.FindString(part)
		if column == "" {
			return fmt.Errorf("%w: unreadable column %q", ErrRejected, part)
		}
		if _, ok := allowedColumns[column]; !ok {
			return fmt.Errorf("%w: column %q is not allowed", ErrRejected, column)
		}
	}
	return nil
}

// enforceAvailability forces the is_available filter into every query that
// does not already reference it.
func enforceAvailability(q string) string {
	if availableRe.MatchString(q) {
		return q
	}

	clause := " AND is_available = TRUE"
	if !whereRe.MatchString(q) {
		clause = " WHERE is_available = TRUE"
	}

	if loc := clauseTailRe.FindStringIndex(q); loc != nil {
		return q[:loc[0]] + strings.TrimLeft(clause, " ") + " " + q[loc[0]:]
	}
	return q + clause
}

// enforceLimit appends the default limit and clamps anything above the cap.
func enforceLimit(q string) string {
	m := limitRe.FindStringSubmatch(q)
	if m == nil {
		return q + " LIMIT " + strconv.Itoa(defaultLimit)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n > maxLimit {
		return limitRe.ReplaceAllString(q, "LIMIT "+strconv.Itoa(maxLimit))
	}
	return q
}
