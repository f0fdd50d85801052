package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"quiz-poll-bot/internal/app"
	"quiz-poll-bot/internal/bank"
	"quiz-poll-bot/internal/config"
	"quiz-poll-bot/internal/domain"
	"quiz-poll-bot/internal/infra/file"
	"quiz-poll-bot/internal/infra/memory"
	pgsource "quiz-poll-bot/internal/infra/postgres"
	redisstore "quiz-poll-bot/internal/infra/redis"
	transport "quiz-poll-bot/internal/transport/http"
	"quiz-poll-bot/internal/transport/telegram"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand that runs the bot.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the Telegram bot and the websocket gateway",
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
	log := setupLogger(cfg.Log.Env, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, closeSource, err := openQuestionSource(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSource()

	questions, err := bank.Load(ctx, src)
	if err != nil {
		return err
	}
	log.Info("question bank loaded", "questions", questions.Len())

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	timeout := config.TTLDuration(cfg.Quiz.Timeout, app.DefaultTimeout)
	// pending polls must outlive their timeout in Redis
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	if redisTTL < 2*timeout {
		redisTTL = 2 * timeout
	}

	options := func(gateway string) app.Options {
		return app.Options{
			Timeout:      timeout,
			MaxOptionLen: cfg.Quiz.MaxOptionLength,
			Logger:       log.With("gateway", gateway),
		}
	}
	polls := func() app.PollRegistry {
		if redisClient != nil {
			return redisstore.NewPollRegistry(redisClient, redisTTL)
		}
		return memory.NewPollRegistry()
	}

	g, gctx := errgroup.WithContext(ctx)
	running := 0

	if cfg.Telegram.Token != "" {
		gateway, err := telegram.NewGateway(cfg.Telegram.Token, timeout, log.With("gateway", "telegram"))
		if err != nil {
			return err
		}
		var sessions app.SessionRepository = memory.NewSessionStore()
		if redisClient != nil {
			sessions = redisstore.NewSessionStore(redisClient, redisTTL)
		}
		engine := app.NewEngine(questions, sessions, polls(), gateway, options("telegram"))
		defer engine.Close()

		bot := telegram.NewBot(gateway, engine, log.With("gateway", "telegram"))
		g.Go(func() error { return bot.Run(gctx) })
		running++
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort != "" {
		hub := transport.NewHub()
		// websocket chat IDs are client-chosen, so their sessions stay out of
		// the shared Redis namespace
		engine := app.NewEngine(questions, memory.NewSessionStore(), polls(), hub, options("ws"))
		defer engine.Close()

		server := &http.Server{
			Addr:        ":" + finalPort,
			Handler:     transport.NewRouter(transport.NewWSHandler(hub, engine, log.With("gateway", "ws"))),
			ReadTimeout: 15 * time.Second,
		}
		g.Go(func() error {
			log.Info("starting websocket gateway", "port", finalPort)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
		running++
	}

	if running == 0 {
		return fmt.Errorf("nothing to run: configure telegram.token or server.port")
	}
	err = g.Wait()
	log.Info("shutting down")
	return err
}

// openQuestionSource picks Postgres when configured, then the question file,
// then the built-in demo questions.
func openQuestionSource(ctx context.Context, cfg config.Config, log *slog.Logger) (bank.Source, func(), error) {
	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, log); err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		return pgsource.NewQuestionSource(pool), pool.Close, nil
	}
	if cfg.Quiz.Source != "" {
		return file.NewQuestionSource(cfg.Quiz.Source), func() {}, nil
	}
	log.Warn("no question source configured, using demo questions")
	return memory.NewStaticQuestionSource(sampleQuestions()), func() {}, nil
}

// sampleQuestions keeps the bot usable without any storage configured.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{Text: "2 + 2 nechaga teng?", Options: []string{"3", "4", "5"}, CorrectIndex: 1},
		{Text: "O'zbekiston poytaxti qaysi shahar?", Options: []string{"Samarqand", "Buxoro", "Toshkent"}, CorrectIndex: 2},
		{Text: "Bir haftada necha kun bor?", Options: []string{"5", "7", "10"}, CorrectIndex: 1},
	}
}
