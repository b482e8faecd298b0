package extract

import (
	"regexp"
	"sort"
	"strings"
)

// Fields is the structured outcome of resume parsing. Every field is
// optional: absence is a valid result, never an error.
type Fields struct {
	Name           *string  `json:"name"`
	Email          *string  `json:"email"`
	LinkedIn       *string  `json:"linkedin"`
	Skills         []string `json:"skills"`
	WorkExperience *string  `json:"work_experience"`
	Rest           string   `json:"rest"`
}

// SkillVocabulary is the fixed list matched against resume text. Matches are
// whole-word and case-insensitive; results are lowercase, sorted, deduplicated.
var SkillVocabulary = []string{
	"python", "java", "c++", "c", "sql", "nosql", "mysql", "postgresql", "mongodb",
	"aws", "azure", "gcp", "docker", "kubernetes", "pytorch", "tensorflow",
	"scikit-learn", "react", "django", "flask", "fastapi", "git", "linux",
	"javascript", "html", "css", "nlp", "machine learning", "deep learning",
	"computer vision", "tableau", "power bi",
}

var (
	emailRe    = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	linkedinRe = regexp.MustCompile(`(?i)linkedin\s*[:\-•]\s*([A-Za-z0-9 ._'\-]+)`)
	stopwordRe = regexp.MustCompile(`(?i)(portfolio|github|mail|email|phone)`)
	nameRe     = regexp.MustCompile(`^[A-Za-z ,.\-']+$`)
	workExpRe  = regexp.MustCompile(`(?is)(work experience|experience|professional experience|employment)(.+?)(education|projects|skills|certifications|summary|$)`)

	nameBannedWords = []string{"resume", "curriculum", "vitae", "summary", "education", "profile"}

	skillRes = buildSkillPatterns()
)

// ParseFields runs all field extractors over raw resume text.
func ParseFields(text string) Fields {
	workExp := extractWorkExperience(text)
	return Fields{
		Name:           extractName(text),
		Email:          extractEmail(text),
		LinkedIn:       extractLinkedIn(text),
		Skills:         ExtractSkills(text),
		WorkExperience: workExp,
		Rest:           extractRest(text, workExp),
	}
}

func extractEmail(text string) *string {
	if m := emailRe.FindString(text); m != "" {
		return &m
	}
	return nil
}

func extractLinkedIn(text string) *string {
	m := linkedinRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	handle := strings.TrimSpace(m[1])
	// Cut at the first trailing label (portfolio, github, ...) that leaked
	// into the capture.
	if loc := stopwordRe.FindStringIndex(handle); loc != nil {
		handle = strings.TrimSpace(handle[:loc[0]])
	}
	if handle == "" {
		return nil
	}
	return &handle
}

func extractName(text string) *string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > 10 {
		lines = lines[:10]
	}
	for _, line := range lines {
		clean := strings.TrimSpace(line)
		if clean == "" {
			continue
		}
		lower := strings.ToLower(clean)
		if strings.Contains(clean, "@") || strings.Contains(lower, "linkedin.com") {
			continue
		}
		if containsAny(lower, nameBannedWords) {
			continue
		}
		words := strings.Fields(clean)
		if nameRe.MatchString(clean) && len(words) >= 1 && len(words) <= 5 {
			return &clean
		}
	}
	return nil
}

// ExtractSkills matches the fixed vocabulary against the text.
func ExtractSkills(text string) []string {
	lower := strings.ToLower(text)
	found := make(map[string]struct{})
	for i, skill := range SkillVocabulary {
		if skillRes[i].MatchString(lower) {
			found[skill] = struct{}{}
		}
	}
	out := make([]string, 0, len(found))
	for skill := range found {
		out = append(out, skill)
	}
	sort.Strings(out)
	return out
}

func extractWorkExperience(text string) *string {
	m := workExpRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	block := strings.TrimSpace(m[2])
	if block == "" {
		return nil
	}
	return &block
}

func extractRest(text string, workExp *string) string {
	trimmed := strings.TrimSpace(text)
	if workExp == nil {
		return trimmed
	}
	idx := strings.Index(strings.ToLower(text), strings.ToLower(*workExp))
	if idx == -1 {
		return trimmed
	}
	return strings.TrimSpace(text[idx+len(*workExp):])
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// buildSkillPatterns compiles a whole-word pattern per vocabulary entry.
// Entries ending in non-word characters (c++) get explicit boundaries since
// \b does not apply after them.
func buildSkillPatterns() []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(SkillVocabulary))
	for i, skill := range SkillVocabulary {
		quoted := regexp.QuoteMeta(strings.ToLower(skill))
		pattern := `(?:^|[^a-z0-9_])` + quoted + `(?:[^a-z0-9_]|$)`
		res[i] = regexp.MustCompile(pattern)
	}
	return res
}
