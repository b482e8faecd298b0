package candidates_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/EnabledTalentV2/ETBackendV2/internal/bootstrap"
	"github.com/EnabledTalentV2/ETBackendV2/internal/shared/config"
)

func buildTestApp(t *testing.T) *bootstrap.App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Port:            "0",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		LocalStoreDir:   t.TempDir(),
		Env:             "dev",
		ObjectStoreType: "local",
		QueueType:       "memory",
	}

	app, err := bootstrap.Build(cfg)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	return app
}

func TestCandidateCreateAndFetch(t *testing.T) {
	app := buildTestApp(t)
	router := app.Router

	body := `{"email":"Jane.Doe@Example.com","isAvailable":true,"hasWorkVisa":true,"workModePreferences":["remote"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/candidates", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var created struct {
		Slug          string `json:"slug"`
		Email         string `json:"email"`
		ParsingStatus string `json:"parsingStatus"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.Email != "jane.doe@example.com" {
		t.Fatalf("email not lowercased: %s", created.Email)
	}
	if !strings.HasPrefix(created.Slug, "jane-doe-") {
		t.Fatalf("unexpected slug: %s", created.Slug)
	}
	if created.ParsingStatus != "not_parsed" {
		t.Fatalf("parsingStatus = %s, want not_parsed", created.ParsingStatus)
	}

	reqGet := httptest.NewRequest(http.MethodGet, "/api/v1/candidates/"+created.Slug, nil)
	respGet := httptest.NewRecorder()
	router.ServeHTTP(respGet, reqGet)

	if respGet.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", respGet.Code)
	}
}

func TestCandidateCreateInvalidEmail(t *testing.T) {
	app := buildTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/candidates", strings.NewReader(`{"email":"not-an-email"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Error.Code != "validation_error" {
		t.Fatalf("error code = %s, want validation_error", envelope.Error.Code)
	}
}

func TestCandidateResumeUploadQueuesParse(t *testing.T) {
	app := buildTestApp(t)
	router := app.Router

	create := httptest.NewRequest(http.MethodPost, "/api/v1/candidates", strings.NewReader(`{"email":"upload@example.com"}`))
	create.Header.Set("Content-Type", "application/json")
	createResp := httptest.NewRecorder()
	router.ServeHTTP(createResp, create)
	if createResp.Code != http.StatusCreated {
		t.Fatalf("create candidate: %d", createResp.Code)
	}
	var created struct {
		Slug string `json:"slug"`
	}
	if err := json.NewDecoder(createResp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fileWriter, err := writer.CreateFormFile("file", "resume.docx")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fileWriter.Write([]byte("not a real docx")); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/candidates/"+created.Slug+"/resume", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", resp.Code, resp.Body.String())
	}
	var uploaded struct {
		ParsingStatus string `json:"parsingStatus"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if uploaded.ParsingStatus != "parsing" {
		t.Fatalf("parsingStatus = %s, want parsing", uploaded.ParsingStatus)
	}
}

func TestCandidateNotFound(t *testing.T) {
	app := buildTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/candidates/no-such-slug", nil)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}
