package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/EnabledTalentV2/ETBackendV2/internal/agent"
	"github.com/EnabledTalentV2/ETBackendV2/internal/candidates"
	"github.com/EnabledTalentV2/ETBackendV2/internal/chat"
	"github.com/EnabledTalentV2/ETBackendV2/internal/extract"
	"github.com/EnabledTalentV2/ETBackendV2/internal/extract/ocr"
	"github.com/EnabledTalentV2/ETBackendV2/internal/jobposts"
	"github.com/EnabledTalentV2/ETBackendV2/internal/llm"
	openai "github.com/EnabledTalentV2/ETBackendV2/internal/llm/openai"
	"github.com/EnabledTalentV2/ETBackendV2/internal/queue"
	"github.com/EnabledTalentV2/ETBackendV2/internal/rank"
	"github.com/EnabledTalentV2/ETBackendV2/internal/shared/config"
	"github.com/EnabledTalentV2/ETBackendV2/internal/shared/server"
	"github.com/EnabledTalentV2/ETBackendV2/internal/shared/storage/db"
	"github.com/EnabledTalentV2/ETBackendV2/internal/shared/storage/object"
	localstore "github.com/EnabledTalentV2/ETBackendV2/internal/shared/storage/object/local"
	s3store "github.com/EnabledTalentV2/ETBackendV2/internal/shared/storage/object/s3"
)

// App holds shared dependencies for the API server and the worker.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client
	// MemoryQueue is non-nil only when the in-process queue is selected;
	// callers drain it themselves so this package stays free of job
	// dispatch logic.
	MemoryQueue *queue.MemoryClient
	LLM         llm.Client

	CandidatesRepo candidates.Repo
	JobPostsRepo   jobposts.Repo
	ChatRepo       chat.Repo

	Candidates *candidates.Service
	JobPosts   *jobposts.Service
	Chat       *chat.Service
	Agent      *agent.Agent

	CandidatesHandler *candidates.Handler
	JobPostsHandler   *jobposts.Handler
	AgentHandler      *agent.Handler
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, memQueue, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:      cfg,
		DB:          sqlDB,
		Store:       store,
		Queue:       queueClient,
		MemoryQueue: memQueue,
		LLM:         buildLLM(cfg),
	}

	buildServices(app)

	deps := server.RouterDeps{
		Config:            app.Config,
		CandidatesHandler: app.CandidatesHandler,
		JobPostsHandler:   app.JobPostsHandler,
	}
	// A typed-nil *agent.Handler must not reach the interface field, or the
	// router would mount routes backed by a nil handler.
	if app.AgentHandler != nil {
		deps.AgentHandler = app.AgentHandler
	}
	app.Router = server.NewRouter(deps)

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: migrations failed; using in-memory repositories: %v", err)
			_ = sqlDB.Close()
			return nil, nil
		}
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.AWSRegion) == "" || strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires AWS_REGION and S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, *queue.MemoryClient, error) {
	if cfg.QueueType == "sqs" {
		if strings.TrimSpace(cfg.SQSQueue) == "" {
			return nil, nil, fmt.Errorf("QUEUE=sqs requires ET_SQS_QUEUE_URL")
		}
		client, err := queue.NewSQSClient(ctx, cfg.SQSQueue, cfg.AWSRegion)
		if err != nil {
			return nil, nil, err
		}
		return client, nil, nil
	}
	mem := queue.NewMemoryClient(0)
	return mem, mem, nil
}

func buildLLM(cfg config.Config) llm.Client {
	if cfg.LLMProvider != "openai" {
		return llm.PlaceholderClient{}
	}
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		log.Printf("bootstrap: OPENAI_API_KEY empty; using placeholder completions")
		return llm.PlaceholderClient{}
	}
	client, err := openai.NewClient(apiKey, cfg.LLMModel)
	if err != nil {
		log.Printf("bootstrap: openai client init failed; using placeholder completions: %v", err)
		return llm.PlaceholderClient{}
	}
	return client
}

func buildServices(app *App) {
	cfg := app.Config

	if app.DB != nil {
		app.CandidatesRepo = &candidates.PGRepo{DB: app.DB}
		app.JobPostsRepo = &jobposts.PGRepo{DB: app.DB}
		app.ChatRepo = &chat.PGRepo{DB: app.DB}
	} else {
		app.CandidatesRepo = candidates.NewMemoryRepo()
		app.JobPostsRepo = jobposts.NewMemoryRepo()
		app.ChatRepo = chat.NewMemoryRepo()
	}

	var ocrProvider ocr.Provider
	if cfg.OCREnabled {
		ocrProvider = ocr.NewTesseract(cfg.OCRLanguage)
	} else {
		ocrProvider = ocr.Disabled{}
	}

	app.Candidates = &candidates.Service{
		Repo:       app.CandidatesRepo,
		Store:      app.Store,
		Queue:      app.Queue,
		Extract:    extract.NewEngine(ocrProvider),
		StuckAfter: cfg.ParseStuckAfter,
	}

	app.JobPosts = &jobposts.Service{
		Repo:       app.JobPostsRepo,
		Candidates: app.CandidatesRepo,
		Ranker:     &rank.Ranker{LLM: app.LLM},
		Queue:      app.Queue,
		StuckAfter: cfg.RankStuckAfter,
	}

	app.Chat = &chat.Service{Repo: app.ChatRepo}

	// Guarded queries run raw SQL, so the agent is only wired when a real
	// database backs the repositories.
	if app.DB != nil {
		app.Agent = &agent.Agent{
			LLM:   app.LLM,
			Guard: agent.Guardrail{SimpleDialect: cfg.SimpleDialect},
			Exec:  &agent.Executor{DB: app.DB},
			Chat:  app.Chat,
		}
		app.AgentHandler = agent.NewHandler(app.Agent)
	}

	app.CandidatesHandler = candidates.NewHandler(app.Candidates)
	app.JobPostsHandler = jobposts.NewHandler(app.JobPosts)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
