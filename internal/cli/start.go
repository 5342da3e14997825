package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"course-scene-service/internal/app"
	"course-scene-service/internal/auth"
	"course-scene-service/internal/config"
	"course-scene-service/internal/domain"
	"course-scene-service/internal/infra/memory"
	"course-scene-service/internal/infra/postgres"
	infraredis "course-scene-service/internal/infra/redis"
	transport "course-scene-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the course server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

type stores struct {
	courses     app.CourseStore
	progress    app.ProgressStore
	assignments app.AssignmentStore
	loader      memory.CourseLoader
	persistent  bool
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, logger, err := loadConfig(configPath)
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

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	health := readinessChecks(redisClient, pool)
	if err := checkReady(ctx, health); err != nil {
		return err
	}

	st := newStores(pool)
	if err := seedCourses(ctx, st, cfg, logger); err != nil {
		return err
	}

	courseTTL := config.TTLDuration(cfg.Course.TTL, 10*time.Minute)
	var courseRepo app.CourseRepository
	if redisClient != nil {
		courseRepo = infraredis.NewCourseRepository(redisClient, st.loader, courseTTL)
	} else {
		courseRepo = memory.NewCourseRepository(st.loader, courseTTL)
	}

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = infraredis.NewSessionStore(redisClient, redisTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	playbackOpts := []app.PlaybackOption{
		app.WithTooltip(config.TTLDuration(cfg.Playback.TooltipDuration, app.DefaultTooltipDuration)),
		app.WithTrackTimeout(config.TTLDuration(cfg.Playback.TrackTimeout, 5*time.Second)),
	}
	if redisClient != nil {
		playbackOpts = append(playbackOpts, app.WithInteractionTracker(infraredis.NewInteractionLog(redisClient, st.progress, redisTTL)))
	}

	authService := auth.NewService(cfg.Auth.JWTSecret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))
	if err := seedUsers(authService, cfg.Auth.Users); err != nil {
		return err
	}

	playback := app.NewPlaybackService(sessions, courseRepo, st.progress, st.assignments, logger, playbackOpts...)
	router := transport.NewRouter(transport.Deps{
		Auth:           authService,
		CookieName:     cfg.Auth.CookieName,
		SecureCookies:  cfg.Server.SecureCookies,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Courses:        app.NewCourseService(st.courses, courseRepo, st.assignments, validationRules(cfg), logger),
		Progress:       app.NewProgressService(st.progress, logger),
		Playback:       playback,
		Media:          transport.NewMediaHandler(cfg.Media.Dir, cfg.Media.URLPrefix, cfg.Media.MaxUploadBytes),
		Health:         health,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting course service", "port", finalPort, "postgres", pool != nil, "redis", redisClient != nil)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	playback.Drain()
	return err
}

func newStores(pool *pgxpool.Pool) stores {
	if pool != nil {
		courses := postgres.NewCourseStore(pool)
		return stores{
			courses:     courses,
			progress:    postgres.NewProgressStore(pool),
			assignments: postgres.NewAssignmentStore(pool),
			loader:      courses,
			persistent:  true,
		}
	}
	courses := memory.NewCourseStore()
	return stores{
		courses:     courses,
		progress:    memory.NewProgressStore(),
		assignments: memory.NewAssignmentStore(),
		loader:      courses,
	}
}

func readinessChecks(client *redis.Client, pool *pgxpool.Pool) map[string]transport.HealthCheck {
	checks := map[string]transport.HealthCheck{}
	if client != nil {
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}
	if pool != nil {
		checks["postgres"] = func(ctx context.Context) error { return pool.Ping(ctx) }
	}
	return checks
}

// checkReady runs every check in parallel and fails on the first error.
func checkReady(ctx context.Context, checks map[string]transport.HealthCheck) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	for name, check := range checks {
		name, check := name, check
		g.Go(func() error {
			if err := check(ctx); err != nil {
				return fmt.Errorf("%s not ready: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func seedUsers(service *auth.Service, users []config.UserSeed) error {
	if len(users) == 0 {
		slog.Warn("no users configured; nobody can log in")
	}
	for _, u := range users {
		acc := auth.Account{
			ID:           u.ID,
			Email:        u.Email,
			DisplayName:  u.DisplayName,
			Role:         domain.Role(u.Role),
			PasswordHash: u.PasswordHash,
		}
		if err := service.Seed(acc, u.Password); err != nil {
			return fmt.Errorf("seed user %s: %w", u.Email, err)
		}
	}
	return nil
}
