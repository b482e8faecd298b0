package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/EnabledTalentV2/ETBackendV2/internal/chat"
	"github.com/EnabledTalentV2/ETBackendV2/internal/llm"
	"github.com/EnabledTalentV2/ETBackendV2/internal/shared/metrics"
	"github.com/EnabledTalentV2/ETBackendV2/internal/shared/telemetry"
)

const draftSystemPrompt = `You translate recruiter questions into SQL for a Postgres database.
Rules:
- Write exactly one SELECT statement, nothing else. No INSERT, UPDATE, DELETE, DDL, or multiple statements.
- The only table is candidates with columns: id, slug, extracted_data (jsonb), willing_to_relocate, employment_type_preferences (jsonb), work_mode_preferences (jsonb), has_work_visa, expected_salary_range, is_available.
- Always select slug so candidates can be identified.
- Always filter on is_available = TRUE.
- Return between 10 and 20 rows with an explicit LIMIT.
Respond with the SQL only, no explanation and no code fences.`

const summarySystemPrompt = `You are a recruiting assistant. Given a recruiter's question and the rows a database returned, write a short conversational answer: name the candidates by slug, summarize strengths and gaps against the question, and suggest a next step. Do not invent candidates that are not in the rows.`

// Answer is the result of one guarded agent turn.
type Answer struct {
	SessionID string           `json:"sessionId"`
	SQL       string           `json:"sql"`
	Results   []map[string]any `json:"results"`
	Summary   string           `json:"summary"`
}

// Agent drafts SQL with the model, validates it with the guardrail, runs it,
// and summarizes the rows. The user query and the summary are appended to
// the persisted session.
type Agent struct {
	LLM   llm.Client
	Guard Guardrail
	Exec  *Executor
	Chat  *chat.Service
}

// Query answers one recruiter question inside a session.
func (a *Agent) Query(ctx context.Context, sessionID, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, fmt.Errorf("%w: empty question", ErrRejected)
	}

	session, err := a.Chat.GetOrCreateSession(ctx, sessionID, chat.ModeRecruiter, nil)
	if err != nil {
		return Answer{}, err
	}
	if _, err := a.Chat.Append(ctx, session.ID, chat.RoleUser, question); err != nil {
		return Answer{}, err
	}

	metrics.IncAgentQuery()

	draft, _, err := a.LLM.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: draftSystemPrompt},
		{Role: llm.RoleUser, Content: question},
	})
	if err != nil {
		return Answer{}, fmt.Errorf("draft query: %w", err)
	}

	sanitized, err := a.Guard.ValidateAndSanitize(stripCodeFences(draft))
	if err != nil {
		metrics.IncAgentRejection()
		telemetry.Warn("agent.query_rejected", map[string]any{
			"session_id": session.ID,
			"reason":     err.Error(),
		})
		return Answer{SessionID: session.ID}, err
	}

	results, err := a.Exec.Execute(ctx, sanitized)
	if err != nil {
		return Answer{SessionID: session.ID}, err
	}

	summary, err := a.summarize(ctx, question, results)
	if err != nil {
		return Answer{SessionID: session.ID}, err
	}
	if _, err := a.Chat.Append(ctx, session.ID, chat.RoleAssistant, summary); err != nil {
		return Answer{}, err
	}

	return Answer{
		SessionID: session.ID,
		SQL:       sanitized,
		Results:   results,
		Summary:   summary,
	}, nil
}

// summarize sends only the question and the rows to the model; the summary
// call has no database access.
func (a *Agent) summarize(ctx context.Context, question string, results []map[string]any) (string, error) {
	rows, err := json.Marshal(results)
	if err != nil {
		return "", err
	}
	prompt := fmt.Sprintf("Question: %s\nRows:\n%s", question, rows)

	summary, _, err := a.LLM.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: summarySystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	})
	if err != nil {
		return "", fmt.Errorf("summarize results: %w", err)
	}
	return strings.TrimSpace(summary), nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```sql")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
