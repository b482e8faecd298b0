package workerproc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/EnabledTalentV2/ETBackendV2/internal/bootstrap"
	"github.com/EnabledTalentV2/ETBackendV2/internal/candidates"
	"github.com/EnabledTalentV2/ETBackendV2/internal/jobposts"
	"github.com/EnabledTalentV2/ETBackendV2/internal/llm"
	"github.com/EnabledTalentV2/ETBackendV2/internal/queue"
	"github.com/EnabledTalentV2/ETBackendV2/internal/rank"
)

func TestParseMessage(t *testing.T) {
	t.Run("empty body", func(t *testing.T) {
		_, meta, err := ParseMessage("   ")
		var empty ErrEmptyBody
		if !errors.As(err, &empty) {
			t.Fatalf("expected ErrEmptyBody, got %v", err)
		}
		if meta.BodyLen != 3 {
			t.Fatalf("meta.BodyLen = %d, want 3", meta.BodyLen)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		_, meta, err := ParseMessage("{not json")
		var decode ErrDecode
		if !errors.As(err, &decode) {
			t.Fatalf("expected ErrDecode, got %v", err)
		}
		if len(meta.BodySHA) != 64 {
			t.Fatalf("meta.BodySHA length = %d, want 64", len(meta.BodySHA))
		}
	})

	t.Run("missing record id", func(t *testing.T) {
		_, _, err := ParseMessage(`{"kind":"parse_resume","requestId":"req-1"}`)
		var missing ErrMissingRecordID
		if !errors.As(err, &missing) {
			t.Fatalf("expected ErrMissingRecordID, got %v", err)
		}
		if missing.RequestID != "req-1" {
			t.Fatalf("RequestID = %q, want req-1", missing.RequestID)
		}
	})

	t.Run("valid", func(t *testing.T) {
		msg, _, err := ParseMessage(`{"kind":"rank_candidates","recordId":"job-1","requestId":"req-2","version":1}`)
		if err != nil {
			t.Fatalf("ParseMessage: %v", err)
		}
		if msg.Kind != queue.KindRankCandidates || msg.RecordID != "job-1" {
			t.Fatalf("unexpected message: %+v", msg)
		}
	})
}

func TestComputeMetaEmpty(t *testing.T) {
	meta := ComputeMeta("")
	if meta.BodyLen != 0 || meta.BodySHA != "" {
		t.Fatalf("unexpected meta for empty body: %+v", meta)
	}
}

func TestDispatchUnknownKind(t *testing.T) {
	app := &bootstrap.App{}
	err := Dispatch(context.Background(), app, queue.Message{Kind: "compact_archive", RecordID: "x"})
	var unknown ErrUnknownKind
	if !errors.As(err, &unknown) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
	if unknown.Kind != "compact_archive" {
		t.Fatalf("Kind = %q", unknown.Kind)
	}
}

func TestDispatchNilApp(t *testing.T) {
	if err := Dispatch(context.Background(), nil, queue.Message{Kind: queue.KindParseResume, RecordID: "x"}); err == nil {
		t.Fatal("expected error for nil app")
	}
}

func TestHandleMessageRankJob(t *testing.T) {
	repo := jobposts.NewMemoryRepo()
	app := &bootstrap.App{
		JobPosts: &jobposts.Service{
			Repo:       repo,
			Candidates: candidates.NewMemoryRepo(),
			Ranker:     &rank.Ranker{LLM: llm.PlaceholderClient{}},
		},
	}

	job := jobposts.JobPost{
		ID:            "job-1",
		Title:         "Backend Engineer",
		WorkplaceType: jobposts.WorkplaceRemote,
		JobType:       jobposts.JobFullTime,
		Skills:        []string{"go"},
		RankingStatus: jobposts.StatusRanking,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if err := repo.Create(context.Background(), job); err != nil {
		t.Fatalf("create job: %v", err)
	}

	body := `{"kind":"rank_candidates","recordId":"job-1","requestId":"req-3","version":1}`
	if err := HandleMessage(context.Background(), app, body); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	got, err := repo.GetByID(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.RankingStatus != jobposts.StatusRanked {
		t.Fatalf("RankingStatus = %q, want %q", got.RankingStatus, jobposts.StatusRanked)
	}
	if got.RankingData == nil || len(got.RankingData.RankedCandidates) != 0 {
		t.Fatalf("expected empty ranking data, got %+v", got.RankingData)
	}
}

func TestHandleMessageProcessFailure(t *testing.T) {
	app := &bootstrap.App{
		JobPosts: &jobposts.Service{
			Repo:       jobposts.NewMemoryRepo(),
			Candidates: candidates.NewMemoryRepo(),
			Ranker:     &rank.Ranker{LLM: llm.PlaceholderClient{}},
		},
	}

	body := `{"kind":"rank_candidates","recordId":"missing","requestId":"req-4","version":1}`
	err := HandleMessage(context.Background(), app, body)
	var proc ErrProcess
	if !errors.As(err, &proc) {
		t.Fatalf("expected ErrProcess, got %v", err)
	}
	if proc.Kind != queue.KindRankCandidates || proc.RecordID != "missing" {
		t.Fatalf("unexpected ErrProcess: %+v", proc)
	}
}
