package candidates

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/EnabledTalentV2/ETBackendV2/internal/extract"
	"github.com/EnabledTalentV2/ETBackendV2/internal/queue"
)

type stubStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	mime    string
}

func newStubStore(mime string) *stubStore {
	return &stubStore{objects: make(map[string][]byte), mime: mime}
}

func (s *stubStore) Save(_ context.Context, candidateSlug, fileName string, r io.Reader) (string, int64, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, "", err
	}
	key := candidateSlug + "/" + fileName
	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()
	return key, int64(len(data)), s.mime, nil
}

func (s *stubStore) SaveWithKey(_ context.Context, storageKey, _ string, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.objects[storageKey] = data
	s.mu.Unlock()
	return int64(len(data)), nil
}

func (s *stubStore) Open(_ context.Context, storageKey string) (io.ReadCloser, error) {
	s.mu.Lock()
	data, ok := s.objects[storageKey]
	s.mu.Unlock()
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type stubQueue struct {
	mu   sync.Mutex
	sent []queue.Message
	err  error
}

func (q *stubQueue) Send(_ context.Context, msg queue.Message) error {
	if q.err != nil {
		return q.err
	}
	q.mu.Lock()
	q.sent = append(q.sent, msg)
	q.mu.Unlock()
	return nil
}

type textOCR struct{ text string }

func (o textOCR) Available() bool { return true }

func (o textOCR) Recognize(_ context.Context, _ []byte) (string, error) { return o.text, nil }

func newTestService(store *stubStore, q *stubQueue, ocrText string) *Service {
	return &Service{
		Repo:    NewMemoryRepo(),
		Store:   store,
		Queue:   q,
		Extract: extract.NewEngine(textOCR{text: ocrText}),
	}
}

func createCandidate(t *testing.T, svc *Service, email string) Candidate {
	t.Helper()
	candidate, err := svc.Create(context.Background(), CreateInput{Email: email, IsAvailable: true})
	if err != nil {
		t.Fatalf("create candidate: %v", err)
	}
	return candidate
}

func TestCreateDerivesSlugFromEmail(t *testing.T) {
	svc := newTestService(newStubStore("application/pdf"), &stubQueue{}, "")
	candidate := createCandidate(t, svc, "Jane.Doe@Example.com")

	if !strings.HasPrefix(candidate.Slug, "jane-doe-") {
		t.Fatalf("slug = %q, want jane-doe-<suffix>", candidate.Slug)
	}
	if candidate.Email != "jane.doe@example.com" {
		t.Fatalf("email = %q", candidate.Email)
	}
	if candidate.ParsingStatus != StatusNotParsed {
		t.Fatalf("status = %q, want %q", candidate.ParsingStatus, StatusNotParsed)
	}
}

func TestCreateRejectsBadEmail(t *testing.T) {
	svc := newTestService(newStubStore(""), &stubQueue{}, "")
	if _, err := svc.Create(context.Background(), CreateInput{Email: "not-an-email"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestUploadResumeStoresFileAndDispatches(t *testing.T) {
	store := newStubStore("image/png")
	q := &stubQueue{}
	svc := newTestService(store, q, "")
	candidate := createCandidate(t, svc, "jane@example.com")

	updated, err := svc.UploadResume(context.Background(), candidate.Slug, "resume.png", strings.NewReader("png bytes"), "req-1")
	if err != nil {
		t.Fatalf("UploadResume: %v", err)
	}
	if updated.ParsingStatus != StatusParsing {
		t.Fatalf("status = %q, want %q", updated.ParsingStatus, StatusParsing)
	}
	if updated.ResumeKey == nil {
		t.Fatal("resume key not recorded")
	}
	if len(q.sent) != 1 {
		t.Fatalf("queued %d messages, want 1", len(q.sent))
	}
	msg := q.sent[0]
	if msg.Kind != queue.KindParseResume || msg.RecordID != candidate.ID || msg.RequestID != "req-1" {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestTriggerParseGuardRejectsInFlight(t *testing.T) {
	q := &stubQueue{}
	svc := newTestService(newStubStore("image/png"), q, "")
	candidate := createCandidate(t, svc, "jane@example.com")

	if err := svc.TriggerParse(context.Background(), candidate.ID, "req-1"); err != nil {
		t.Fatalf("first trigger: %v", err)
	}
	if err := svc.TriggerParse(context.Background(), candidate.ID, "req-2"); !errors.Is(err, ErrAlreadyQueued) {
		t.Fatalf("second trigger err = %v, want ErrAlreadyQueued", err)
	}
	if len(q.sent) != 1 {
		t.Fatalf("queued %d messages, want 1", len(q.sent))
	}
}

func TestTriggerParseRollsBackOnEnqueueFailure(t *testing.T) {
	q := &stubQueue{err: errors.New("queue unavailable")}
	svc := newTestService(newStubStore("image/png"), q, "")
	candidate := createCandidate(t, svc, "jane@example.com")

	if err := svc.TriggerParse(context.Background(), candidate.ID, "req-1"); err == nil {
		t.Fatal("expected enqueue error")
	}
	got, err := svc.Repo.GetByID(context.Background(), candidate.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.ParsingStatus != StatusNotParsed {
		t.Fatalf("status = %q, want rollback to %q", got.ParsingStatus, StatusNotParsed)
	}
}

func TestProcessParseCompletes(t *testing.T) {
	resume := strings.Join([]string{
		"Jane Doe",
		"jane@example.com",
		"Skills: Python, SQL",
	}, "\n")
	store := newStubStore("image/png")
	q := &stubQueue{}
	svc := newTestService(store, q, resume)
	candidate := createCandidate(t, svc, "jane@example.com")

	if _, err := svc.UploadResume(context.Background(), candidate.Slug, "resume.png", strings.NewReader("scan"), "req-1"); err != nil {
		t.Fatalf("UploadResume: %v", err)
	}
	if err := svc.ProcessParse(context.Background(), candidate.ID); err != nil {
		t.Fatalf("ProcessParse: %v", err)
	}

	got, err := svc.Repo.GetByID(context.Background(), candidate.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.ParsingStatus != StatusParsed {
		t.Fatalf("status = %q, want %q", got.ParsingStatus, StatusParsed)
	}
	if got.ExtractedData == nil {
		t.Fatal("extracted data missing after parse")
	}
	if got.ExtractedData.Email == nil || *got.ExtractedData.Email != "jane@example.com" {
		t.Fatalf("extracted email = %v", got.ExtractedData.Email)
	}
}

func TestProcessParseUnsupportedFormatFails(t *testing.T) {
	store := newStubStore("text/plain")
	svc := newTestService(store, &stubQueue{}, "")
	candidate := createCandidate(t, svc, "jane@example.com")

	if _, err := svc.UploadResume(context.Background(), candidate.Slug, "resume.txt", strings.NewReader("plain text"), "req-1"); err != nil {
		t.Fatalf("UploadResume: %v", err)
	}
	if err := svc.ProcessParse(context.Background(), candidate.ID); err == nil {
		t.Fatal("expected extraction error")
	}

	got, _ := svc.Repo.GetByID(context.Background(), candidate.ID)
	if got.ParsingStatus != StatusFailed {
		t.Fatalf("status = %q, want %q", got.ParsingStatus, StatusFailed)
	}
	if got.ExtractedData != nil {
		t.Fatal("extracted data must stay nil on failure")
	}
}

func TestProcessParseWithoutResumeFails(t *testing.T) {
	svc := newTestService(newStubStore(""), &stubQueue{}, "")
	candidate := createCandidate(t, svc, "jane@example.com")

	if err := svc.ProcessParse(context.Background(), candidate.ID); !errors.Is(err, ErrNoResume) {
		t.Fatalf("err = %v, want ErrNoResume", err)
	}
	got, _ := svc.Repo.GetByID(context.Background(), candidate.ID)
	if got.ParsingStatus != StatusFailed {
		t.Fatalf("status = %q, want %q", got.ParsingStatus, StatusFailed)
	}
}

func TestSweepResetsOnlyStuckRecords(t *testing.T) {
	repo := NewMemoryRepo()
	svc := &Service{Repo: repo, StuckAfter: time.Hour}

	old := Candidate{
		ID:            "11111111-1111-1111-1111-111111111111",
		Slug:          "stuck-1",
		ParsingStatus: StatusParsing,
		UpdatedAt:     time.Now().UTC().Add(-2 * time.Hour),
	}
	fresh := Candidate{
		ID:            "22222222-2222-2222-2222-222222222222",
		Slug:          "fresh-1",
		ParsingStatus: StatusParsing,
		UpdatedAt:     time.Now().UTC(),
	}
	for _, c := range []Candidate{old, fresh} {
		if err := repo.Create(context.Background(), c); err != nil {
			t.Fatalf("seed %s: %v", c.Slug, err)
		}
	}

	reset, err := svc.SweepStuckParsing(context.Background())
	if err != nil {
		t.Fatalf("SweepStuckParsing: %v", err)
	}
	if reset != 1 {
		t.Fatalf("reset = %d, want 1", reset)
	}

	gotOld, _ := repo.GetByID(context.Background(), old.ID)
	if gotOld.ParsingStatus != StatusNotParsed {
		t.Fatalf("stuck record status = %q, want %q", gotOld.ParsingStatus, StatusNotParsed)
	}
	gotFresh, _ := repo.GetByID(context.Background(), fresh.ID)
	if gotFresh.ParsingStatus != StatusParsing {
		t.Fatalf("fresh record status = %q, want untouched %q", gotFresh.ParsingStatus, StatusParsing)
	}
}

func TestListEligibleFiltersVisa(t *testing.T) {
	repo := NewMemoryRepo()
	fields := extract.Fields{Skills: []string{"python"}}
	seed := []Candidate{
		{ID: "1", Slug: "a", IsAvailable: true, HasWorkVisa: true, ExtractedData: &fields},
		{ID: "2", Slug: "b", IsAvailable: true, HasWorkVisa: false, ExtractedData: &fields},
		{ID: "3", Slug: "c", IsAvailable: false, HasWorkVisa: true, ExtractedData: &fields},
		{ID: "4", Slug: "d", IsAvailable: true, HasWorkVisa: true},
	}
	for i, c := range seed {
		if err := repo.Create(context.Background(), c); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	all, err := repo.ListEligible(context.Background(), false)
	if err != nil {
		t.Fatalf("ListEligible: %v", err)
	}
	if got := slugs(all); fmt.Sprint(got) != "[a b]" {
		t.Fatalf("eligible without visa filter = %v, want [a b]", got)
	}

	visaOnly, err := repo.ListEligible(context.Background(), true)
	if err != nil {
		t.Fatalf("ListEligible visa: %v", err)
	}
	if got := slugs(visaOnly); fmt.Sprint(got) != "[a]" {
		t.Fatalf("eligible with visa filter = %v, want [a]", got)
	}
}

func slugs(list []Candidate) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.Slug)
	}
	return out
}
