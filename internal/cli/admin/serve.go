package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/lumistudy/tutorai/internal/api/handlers"
	"github.com/lumistudy/tutorai/internal/api/middleware"
	"github.com/lumistudy/tutorai/internal/config"
	"github.com/lumistudy/tutorai/internal/domain"
	"github.com/lumistudy/tutorai/internal/jobs"
	"github.com/lumistudy/tutorai/internal/openai"
	"github.com/lumistudy/tutorai/internal/repository"
	"github.com/lumistudy/tutorai/internal/server"
	"github.com/lumistudy/tutorai/internal/service"
	"github.com/lumistudy/tutorai/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the tutorai query API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	chunkRepo := repository.NewChunkRepository(pool)
	questionLogRepo := repository.NewQuestionLogRepository(pool)

	var askHandler *handlers.AskHandler
	var retrieveHandler *handlers.RetrieveHandler
	var backfillWorker *jobs.Worker

	if cfg.HasLLM() {
		llm := openai.NewClientWithConfig(openai.Config{
			APIKey:         cfg.LLMAPIKey,
			BaseURL:        cfg.LLMBaseURL,
			ChatModel:      cfg.ChatModel,
			EmbeddingModel: openai.EmbeddingModelFromString(cfg.EmbeddingModel),
		})

		retriever := service.NewRetriever(chunkRepo, llm, service.RetrieverConfig{
			TopK:          cfg.TopK,
			MinSimilarity: cfg.MinSimilarity,
			Timeout:       cfg.RetrievalTimeout,
		})
		composer := service.NewPromptComposer(service.ComposerConfig{Budget: cfg.PromptBudget})
		generator := service.NewGenerator(llmAdapter{llm})
		querySvc := service.NewQueryService(
			retriever,
			composer,
			generator,
			service.NewAttributor(),
			questionLogRepo,
			service.QueryConfig{GenerationTimeout: cfg.GenerationTimeout},
		)

		askHandler = handlers.NewAskHandler(querySvc)
		retrieveHandler = handlers.NewRetrieveHandler(retriever)

		backfillProcessor := jobs.NewQuestionEmbeddingWorker(questionLogRepo, llm)
		backfillWorker = jobs.NewWorker(backfillProcessor, 10*time.Second)
		go backfillWorker.Start(ctx)
		log.Println("question embedding worker started")
	} else {
		log.Println("no LLM provider configured, serving in degraded mode")
		askHandler = handlers.NewAskHandler(&noOpQueryService{})
		retrieveHandler = handlers.NewRetrieveHandler(&noOpRetriever{})
	}

	routerCfg := server.RouterConfig{
		AskHandler:      askHandler,
		RetrieveHandler: retrieveHandler,
	}
	if cfg.HasAuth() {
		routerCfg.AuthValidator = service.NewStaticTokenValidator(cfg.APIToken)
	} else {
		log.Println("no API token configured, authentication disabled")
	}

	router := server.NewRouter(routerCfg)

	// No WriteTimeout: answer streams legitimately stay open for the full
	// generation duration.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if backfillWorker != nil {
		backfillWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// llmAdapter narrows *openai.Client to the interface the generator needs,
// converting the provider's stream type.
type llmAdapter struct {
	*openai.Client
}

func (a llmAdapter) StreamCompletion(ctx context.Context, prompt string) (service.TokenStream, error) {
	return a.Client.StreamCompletion(ctx, prompt)
}

var _ middleware.AuthValidator = (*service.StaticTokenValidator)(nil)

var errNoLLM = domain.NewDomainError(domain.ErrCodeInvalidOperation, "LLM provider not configured: TUTOR_LLM_API_KEY required")

type noOpQueryService struct{}

func (s *noOpQueryService) Ask(ctx context.Context, input service.AskInput) (*service.AskOutput, error) {
	return nil, errNoLLM
}

func (s *noOpQueryService) Stream(ctx context.Context, input service.AskInput) <-chan domain.StreamEvent {
	ch := make(chan domain.StreamEvent, 1)
	ch <- domain.ErrorEvent{Message: errNoLLM.Message}
	close(ch)
	return ch
}

type noOpRetriever struct{}

func (s *noOpRetriever) Retrieve(ctx context.Context, question string, courseID int64) ([]domain.RetrievalResult, error) {
	return nil, errNoLLM
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
