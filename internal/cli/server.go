package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/config"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/infra/memory"
	pgstore "quiz-attempt-service/internal/infra/postgres"
	redisstore "quiz-attempt-service/internal/infra/redis"
	transport "quiz-attempt-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the attempt server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = pgstore.NewQuizLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var attempts app.AttemptStore
	switch {
	case pool != nil:
		attempts = pgstore.NewAttemptStore(pool)
	case redisClient != nil:
		attempts = redisstore.NewAttemptStore(redisClient, config.TTLDuration(cfg.Attempt.TTL, 0))
	default:
		attempts = memory.NewAttemptStore()
	}

	tick := config.TTLDuration(cfg.Attempt.Tick, time.Second)
	service := app.NewAttemptServiceWithClock(attempts, quizRepo, time.Now, tick)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting attempt service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuizzes provides demo content for every question type; swap the
// loader for Postgres in production.
func sampleQuizzes() map[string]domain.QuizDefinition {
	return map[string]domain.QuizDefinition{
		"quiz-1": {
			ID:    "quiz-1",
			Title: "General knowledge",
			Questions: []domain.Question{
				{
					ID:     "q1",
					Type:   domain.MultipleChoice,
					Prompt: "What is 2 + 2?",
					Options: []domain.Option{
						{ID: "o1", Text: "3"},
						{ID: "o2", Text: "4", Correct: true},
						{ID: "o3", Text: "5"},
					},
					Points: 1,
				},
				{
					ID:     "q2",
					Type:   domain.TrueFalse,
					Prompt: "The Earth orbits the Sun.",
					Options: []domain.Option{
						{ID: "true", Text: "True", Correct: true},
						{ID: "false", Text: "False"},
					},
					Points: 1,
				},
				{
					ID:     "q3",
					Type:   domain.MultipleSelect,
					Prompt: "Which of these are prime numbers?",
					Options: []domain.Option{
						{ID: "o1", Text: "2", Correct: true},
						{ID: "o2", Text: "4"},
						{ID: "o3", Text: "5", Correct: true},
						{ID: "o4", Text: "9"},
					},
					Points: 2,
				},
				{
					ID:          "q4",
					Type:        domain.FillBlank,
					Prompt:      "The capital of France is ____.",
					CorrectText: "Paris",
					Points:      1,
				},
				{
					ID:     "q5",
					Type:   domain.DragDrop,
					Prompt: "Order these from smallest to largest.",
					Options: []domain.Option{
						{ID: "i1", Text: "1"},
						{ID: "i2", Text: "10"},
						{ID: "i3", Text: "100"},
					},
					CorrectOrder: []string{"i1", "i2", "i3"},
					Points:       2,
				},
				{
					ID:     "q6",
					Type:   domain.Matching,
					Prompt: "Match the country to its capital.",
					Options: []domain.Option{
						{ID: "fr", Text: "France"},
						{ID: "jp", Text: "Japan"},
					},
					CorrectPairs: []domain.MatchPair{
						{Left: "fr", Right: "Paris"},
						{Left: "jp", Right: "Tokyo"},
					},
					Points: 2,
				},
				{
					ID:     "q7",
					Type:   domain.Essay,
					Prompt: "Explain why the sky is blue.",
					Points: 3,
				},
			},
			Settings: domain.QuizSettings{
				TimeLimitSeconds: 600,
				AllowRetakes:     true,
				MaxRetakes:       3,
				ShuffleQuestions: true,
				ShuffleOptions:   true,
				PassPercentage:   60,
				AllowPause:       true,
				ShowResults:      true,
				ShowExplanation:  true,
			},
		},
	}
}
