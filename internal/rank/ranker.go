package rank

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/EnabledTalentV2/ETBackendV2/internal/candidates"
	"github.com/EnabledTalentV2/ETBackendV2/internal/llm"
	"github.com/EnabledTalentV2/ETBackendV2/internal/shared/telemetry"
)

const (
	topSelection     = 5
	minSelection     = 3
	overlapWeight    = 3
	maxReasons       = 3
	defaultScorers   = 4
	inputCostPer1K   = 0.01
	outputCostPer1K  = 0.03
	scoreFailsafeMsg = "Ranking error"
)

// Ranker scores eligible candidates against a job post. A ranking run never
// fails on a single candidate: scoring errors record a zero score inline.
type Ranker struct {
	LLM llm.Client

	// Concurrency bounds the parallel scoring calls. Zero means default.
	Concurrency int
}

// Rank runs skill expansion, the heuristic pre-rank, selection, and
// per-candidate scoring, returning the payload to cache on the job.
func (r *Ranker) Rank(ctx context.Context, job Job, pool []candidates.Candidate) (Result, error) {
	expanded, usage := r.expandSkills(ctx, job)

	ranked := preRank(job, expanded, pool)
	selected := selectCandidates(ranked, pool)

	scores := make([]scoreOutcome, len(selected))
	var wg sync.WaitGroup
	concurrency := r.Concurrency
	if concurrency < 1 {
		concurrency = defaultScorers
	}
	sem := make(chan struct{}, concurrency)
	for i := range selected {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			scores[idx] = r.scoreCandidate(ctx, job, expanded, selected[idx])
		}(i)
	}
	wg.Wait()

	entries := make([]RankedCandidate, 0, len(selected))
	for i, candidate := range selected {
		usage = usage.Add(scores[i].usage)
		entries = append(entries, RankedCandidate{
			CandidateID: candidate.ID,
			Slug:        candidate.Slug,
			Score:       scores[i].score,
			Reasons:     scores[i].reasons,
		})
	}

	// Ties keep the pre-rank order.
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Score > entries[j].Score })

	return Result{
		RankedCandidates: entries,
		TokenUsage: TokenUsage{
			Input:  usage.InputTokens,
			Output: usage.OutputTokens,
			Total:  usage.TotalTokens,
		},
		EstimatedCost: estimateCost(usage),
		LastUpdated:   time.Now().UTC(),
	}, nil
}

func estimateCost(usage llm.Usage) float64 {
	return float64(usage.InputTokens)/1000.0*inputCostPer1K + float64(usage.OutputTokens)/1000.0*outputCostPer1K
}

// expandSkills broadens the job's skill list with one LLM call. On failure
// the raw list is used and the run continues.
func (r *Ranker) expandSkills(ctx context.Context, job Job) ([]string, llm.Usage) {
	raw := normalizeSkills(job.Skills)
	if r.LLM == nil {
		return raw, llm.Usage{}
	}

	prompt := fmt.Sprintf(
		"Expand this list of skills for the job %q with closely related skills, tools, and common synonyms. "+
			"Respond with a JSON object {\"skills\": [\"...\"]} containing the original skills plus the additions, lowercase.\nSkills: %s",
		job.Title, strings.Join(raw, ", "))

	payload, usage, err := r.LLM.CompleteJSON(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: "You expand job skill lists. Respond only with the JSON object."},
		{Role: llm.RoleUser, Content: prompt},
	})
	if err != nil {
		telemetry.Warn("rank.skill_expansion_failed", map[string]any{"job_id": job.ID, "error": err.Error()})
		return raw, usage
	}

	var decoded struct {
		Skills []string `json:"skills"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil || len(decoded.Skills) == 0 {
		telemetry.Warn("rank.skill_expansion_unparseable", map[string]any{"job_id": job.ID})
		return raw, usage
	}
	return normalizeSkills(append(raw, decoded.Skills...)), usage
}

func normalizeSkills(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	var out []string
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

type preRanked struct {
	candidate candidates.Candidate
	composite int
}

// preRank computes the heuristic composite and drops zero-overlap
// candidates. The result is sorted by composite descending, stable.
func preRank(job Job, expanded []string, pool []candidates.Candidate) []preRanked {
	var out []preRanked
	for _, candidate := range pool {
		overlap := skillOverlap(expanded, candidate)
		if overlap == 0 {
			continue
		}
		composite := overlap * overlapWeight
		if matchesPreference(candidate.WorkModePreferences, job.WorkplaceType) {
			composite++
		}
		if matchesPreference(candidate.EmploymentTypePreferences, job.JobType) {
			composite++
		}
		out = append(out, preRanked{candidate: candidate, composite: composite})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].composite > out[j].composite })
	return out
}

// skillOverlap counts expanded skills present in the candidate's skill list,
// falling back to substring hits against the serialized fields when the
// direct intersection is empty.
func skillOverlap(expanded []string, candidate candidates.Candidate) int {
	if candidate.ExtractedData == nil {
		return 0
	}
	have := make(map[string]struct{}, len(candidate.ExtractedData.Skills))
	for _, s := range candidate.ExtractedData.Skills {
		have[strings.ToLower(s)] = struct{}{}
	}

	direct := 0
	for _, s := range expanded {
		if _, ok := have[s]; ok {
			direct++
		}
	}
	if direct > 0 {
		return direct
	}

	serialized := strings.ToLower(serializeFields(candidate))
	loose := 0
	for _, s := range expanded {
		if strings.Contains(serialized, s) {
			loose++
		}
	}
	return loose
}

func serializeFields(candidate candidates.Candidate) string {
	fields := candidate.ExtractedData
	var b strings.Builder
	if fields.Name != nil {
		b.WriteString(*fields.Name)
		b.WriteByte('\n')
	}
	b.WriteString(strings.Join(fields.Skills, " "))
	b.WriteByte('\n')
	if fields.WorkExperience != nil {
		b.WriteString(*fields.WorkExperience)
		b.WriteByte('\n')
	}
	b.WriteString(fields.Rest)
	return b.String()
}

func matchesPreference(prefs []string, label string) bool {
	if label == "" {
		return false
	}
	for _, p := range prefs {
		if strings.EqualFold(strings.TrimSpace(p), label) {
			return true
		}
	}
	return false
}

// selectCandidates takes the top pre-ranked entries and, when fewer than the
// minimum survive, backfills from the remaining eligible pool in ascending
// candidate ID order so reruns stay deterministic.
func selectCandidates(ranked []preRanked, pool []candidates.Candidate) []candidates.Candidate {
	selected := make([]candidates.Candidate, 0, topSelection)
	picked := make(map[string]struct{})
	for _, entry := range ranked {
		if len(selected) == topSelection {
			break
		}
		selected = append(selected, entry.candidate)
		picked[entry.candidate.ID] = struct{}{}
	}
	if len(selected) >= minSelection {
		return selected
	}

	rest := make([]candidates.Candidate, 0, len(pool))
	for _, candidate := range pool {
		if _, ok := picked[candidate.ID]; !ok {
			rest = append(rest, candidate)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].ID < rest[j].ID })
	for _, candidate := range rest {
		if len(selected) >= minSelection {
			break
		}
		selected = append(selected, candidate)
	}
	return selected
}

type scoreOutcome struct {
	score   int
	reasons []string
	usage   llm.Usage
}

// scoreCandidate asks the model for a 0..100 fit score with short reasons.
// Any call or parse failure yields a zero score inline.
func (r *Ranker) scoreCandidate(ctx context.Context, job Job, expanded []string, candidate candidates.Candidate) scoreOutcome {
	failed := scoreOutcome{score: 0, reasons: []string{scoreFailsafeMsg}}
	if r.LLM == nil {
		return failed
	}

	profile, err := json.Marshal(candidateProfile(candidate))
	if err != nil {
		return failed
	}
	prompt := fmt.Sprintf(
		"Job: %s\nDescription: %s\nWorkplace: %s\nType: %s\nSkills sought: %s\nVisa sponsorship unavailable: %t\n\nCandidate profile:\n%s\n\n"+
			"Score this candidate's fit for the job from 0 to 100. Respond with a JSON object "+
			"{\"score\": <int>, \"reasons\": [\"...\"]} with at most %d short reasons.",
		job.Title, job.Description, job.WorkplaceType, job.JobType,
		strings.Join(expanded, ", "), job.VisaRequired, profile, maxReasons)

	payload, usage, err := r.LLM.CompleteJSON(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: "You are a recruiting assistant scoring candidate fit. Respond only with the JSON object."},
		{Role: llm.RoleUser, Content: prompt},
	})
	if err != nil {
		telemetry.Warn("rank.score_failed", map[string]any{
			"job_id":       job.ID,
			"candidate_id": candidate.ID,
			"error":        err.Error(),
		})
		failed.usage = usage
		return failed
	}

	var decoded struct {
		Score   int      `json:"score"`
		Reasons []string `json:"reasons"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		telemetry.Warn("rank.score_unparseable", map[string]any{
			"job_id":       job.ID,
			"candidate_id": candidate.ID,
		})
		failed.usage = usage
		return failed
	}

	if decoded.Score < 0 {
		decoded.Score = 0
	}
	if decoded.Score > 100 {
		decoded.Score = 100
	}
	if len(decoded.Reasons) > maxReasons {
		decoded.Reasons = decoded.Reasons[:maxReasons]
	}
	return scoreOutcome{score: decoded.Score, reasons: decoded.Reasons, usage: usage}
}

func candidateProfile(candidate candidates.Candidate) map[string]any {
	profile := map[string]any{
		"slug":                      candidate.Slug,
		"isAvailable":               candidate.IsAvailable,
		"hasWorkVisa":               candidate.HasWorkVisa,
		"willingToRelocate":         candidate.WillingToRelocate,
		"employmentTypePreferences": candidate.EmploymentTypePreferences,
		"workModePreferences":       candidate.WorkModePreferences,
	}
	if candidate.ExpectedSalaryRange != nil {
		profile["expectedSalaryRange"] = *candidate.ExpectedSalaryRange
	}
	if candidate.ExtractedData != nil {
		profile["extracted"] = candidate.ExtractedData
	}
	return profile
}
