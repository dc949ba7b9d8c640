package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"taskflow/internal/auth"
	"taskflow/internal/config"
	"taskflow/internal/database"
	"taskflow/internal/handlers"
	"taskflow/internal/middleware"
	"taskflow/internal/migrations"
	"taskflow/internal/ratelimit"
	taskinmemory "taskflow/internal/repository/task/inmemory"
	taskmongo "taskflow/internal/repository/task/mongo"
	taskpostgres "taskflow/internal/repository/task/postgres"
	userinmemory "taskflow/internal/repository/user/inmemory"
	usermongo "taskflow/internal/repository/user/mongo"
	userpostgres "taskflow/internal/repository/user/postgres"
	"taskflow/internal/service"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type App struct {
	config *config.Config
	log    *zap.Logger
	server *http.Server
	router http.Handler

	tasks   service.TaskRepository
	users   service.UserRepository
	limiter middleware.Limiter

	// closers release stores after the server has drained, last registered first
	closers []closer
}

type closer struct {
	name string
	op   gfshutdown.Operation
}

func New(cfg *config.Config, log *zap.Logger) *App {
	return &App{
		config: cfg,
		log:    log,
	}
}

// Init connects the configured stores and builds the HTTP stack.
func (a *App) Init(ctx context.Context) error {
	if err := a.initStores(ctx); err != nil {
		return fmt.Errorf("initializing stores: %w", err)
	}
	if err := a.initLimiter(ctx); err != nil {
		return fmt.Errorf("initializing rate limiter: %w", err)
	}

	tokens := auth.NewTokenService(a.config.Auth)
	hasher := auth.NewPasswordHasher(a.config.Auth.BcryptCost)

	authService := service.NewAuthService(a.users, tokens, hasher, a.config.Auth.AdminEmails, a.log.Named("service"))
	taskService := service.NewTaskService(a.tasks, a.log.Named("service"))
	userService := service.NewUserService(a.users, a.tasks, hasher, a.log.Named("service"))

	dev := a.config.Logging.Development
	httpLog := a.log.Named("http")
	a.router = NewRouter(a.config, a.log, Routes{
		Auth:          handlers.NewAuthHandler(authService, httpLog, dev),
		Tasks:         handlers.NewTaskHandler(taskService, httpLog, dev),
		Users:         handlers.NewUserHandler(userService, httpLog, dev),
		Authenticator: middleware.NewAuthenticator(tokens, a.users, httpLog),
		Limiter:       a.limiter,
	})

	a.server = &http.Server{
		Addr:         a.config.GetServerAddr(),
		Handler:      a.router,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}
	return nil
}

// Handler exposes the composed router.
func (a *App) Handler() http.Handler {
	return a.router
}

// Run serves until SIGINT/SIGTERM and returns the process exit code.
func (a *App) Run() int {
	go func() {
		a.log.Info("App: server started", zap.String("addr", a.server.Addr), zap.String("repository", a.config.Repository.Type))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("App: server failed", zap.Error(err))
		}
	}()

	wait := gfshutdown.GracefulShutdown(context.Background(), a.config.Server.ShutdownTimeout, a.shutdownOperations())
	code := <-wait
	a.log.Info("App: exited", zap.Int("code", code))
	return code
}

// gfshutdown runs operations concurrently, so the drain and the store
// teardown share one operation.
func (a *App) shutdownOperations() map[string]gfshutdown.Operation {
	return map[string]gfshutdown.Operation{"app": a.Shutdown}
}

// Shutdown stops accepting requests, waits for in-flight ones, then closes
// the stores.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if a.server != nil {
		a.log.Info("App: stopping HTTP server")
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server: %w", err))
		}
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.op(ctx); err != nil {
			a.log.Warn("App: shutdown step failed", zap.String("step", c.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	return errors.Join(errs...)
}

// Close is Shutdown for callers that only need the resources released.
func (a *App) Close(ctx context.Context) {
	_ = a.Shutdown(ctx)
}

func (a *App) onShutdown(name string, op gfshutdown.Operation) {
	a.closers = append(a.closers, closer{name: name, op: op})
}

func (a *App) initStores(ctx context.Context) error {
	repoLog := a.log.Named("repository")

	switch a.config.Repository.Type {
	case config.RepositoryPostgres:
		if a.config.Database.AutoMigrate {
			if err := migrations.Up(a.config.Database.URL, a.log.Named("migrations")); err != nil {
				return err
			}
		}
		pool, err := database.NewPostgresPool(ctx, a.config.Database, repoLog)
		if err != nil {
			return err
		}
		a.tasks = taskpostgres.NewTaskStorage(pool, repoLog)
		a.users = userpostgres.NewUserStorage(pool, repoLog)
		a.onShutdown("postgres", func(context.Context) error {
			pool.Close()
			repoLog.Info("Repository: PostgreSQL pool closed")
			return nil
		})

	case config.RepositoryMongo:
		db, err := database.NewMongoDatabase(ctx, a.config.Mongo, repoLog)
		if err != nil {
			return err
		}
		a.onShutdown("mongo", func(ctx context.Context) error {
			return db.Client().Disconnect(ctx)
		})
		taskStore := taskmongo.NewTaskStorage(db, repoLog)
		userStore := usermongo.NewUserStorage(db, repoLog)
		if err := taskStore.EnsureIndexes(ctx); err != nil {
			return err
		}
		if err := userStore.EnsureIndexes(ctx); err != nil {
			return err
		}
		a.tasks, a.users = taskStore, userStore

	default:
		a.tasks = taskinmemory.NewTaskStorage()
		a.users = userinmemory.NewUserStorage()
		repoLog.Info("Repository: using in-memory storage")
	}
	return nil
}

func (a *App) initLimiter(ctx context.Context) error {
	rl := a.config.RateLimit
	if !rl.Enabled {
		return nil
	}
	if rl.Backend != config.RateLimitRedis {
		a.limiter = ratelimit.NewMemoryLimiter()
		return nil
	}

	opts := &redis.Options{Addr: rl.RedisAddr, Password: rl.RedisPassword, DB: rl.RedisDB}
	if strings.HasPrefix(rl.RedisAddr, "redis://") || strings.HasPrefix(rl.RedisAddr, "rediss://") {
		parsed, err := redis.ParseURL(rl.RedisAddr)
		if err != nil {
			return fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("redis ping: %w", err)
	}
	a.onShutdown("redis", func(context.Context) error {
		return client.Close()
	})
	a.limiter = ratelimit.NewRedisLimiter(client, "taskflow:ratelimit:")
	a.log.Info("App: redis rate limiter ready", zap.String("addr", opts.Addr))
	return nil
}
