package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alem-hub/gradebook/config"
	"github.com/alem-hub/gradebook/internal/application/command"
	"github.com/alem-hub/gradebook/internal/application/eventhandler"
	"github.com/alem-hub/gradebook/internal/application/query"
	"github.com/alem-hub/gradebook/internal/application/session"
	"github.com/alem-hub/gradebook/internal/domain/student"
	"github.com/alem-hub/gradebook/internal/infrastructure/messaging"
	"github.com/alem-hub/gradebook/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/gradebook/internal/infrastructure/persistence/postgres"
	"github.com/alem-hub/gradebook/internal/infrastructure/persistence/projections"
	"github.com/alem-hub/gradebook/internal/infrastructure/persistence/redis"
	"github.com/alem-hub/gradebook/internal/infrastructure/persistence/seed"
	"github.com/alem-hub/gradebook/internal/infrastructure/scheduler"
	"github.com/alem-hub/gradebook/internal/infrastructure/scheduler/jobs"
	"github.com/alem-hub/gradebook/internal/interface/cli"
	"github.com/alem-hub/gradebook/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// APPLICATION
// Собирает все слои: конфигурация, логирование, ростер, журнал XP,
// шина событий, обработчики и оболочка.
// ══════════════════════════════════════════════════════════════════════════════

// appOptions - параметры командной строки, влияющие на сборку.
type appOptions struct {
	EnvFile  string
	SeedFile string
	LogLevel string

	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// app - собранное приложение.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	slog     *slog.Logger
	roster   *memory.Roster
	journal  student.XPJournal
	bus      *messaging.InMemoryEventBus
	handlers cli.Handlers
	gate     *session.Gate
	shell    *cli.Shell
	out      io.Writer

	closers []func() error
}

func loadConfig(opts appOptions) (*config.Config, error) {
	if opts.EnvFile != "" {
		return config.LoadFile(opts.EnvFile)
	}
	return config.Load()
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.LogLevel != "" {
		cfg.Observability.LogLevel = opts.LogLevel
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// Логи идут в stderr, stdout занят выводом оболочки.
	// ─────────────────────────────────────────────────────────────────────────
	a := &app{cfg: cfg, out: opts.Out}
	a.log = logger.New(logger.Options{
		Output: opts.Err,
		Level:  logger.ParseLevel(cfg.Observability.LogLevel),
		Format: logger.ParseFormat(cfg.Observability.LogFormat),
	}).With(logger.F("app", cfg.App.Name), logger.F("version", cfg.App.Version))
	a.slog = setupSlog(cfg, opts.Err)

	a.log.Debug("starting gradebook", logger.F("env", string(cfg.App.Environment)))

	// ─────────────────────────────────────────────────────────────────────────
	// 3. РОСТЕР
	// ─────────────────────────────────────────────────────────────────────────
	students, err := loadSeed(opts.SeedFile)
	if err != nil {
		return nil, err
	}
	a.roster, err = memory.NewRoster(students)
	if err != nil {
		return nil, fmt.Errorf("failed to build roster: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ЖУРНАЛ XP (PostgreSQL или память)
	// ─────────────────────────────────────────────────────────────────────────
	var forget eventhandler.Forgetter
	if cfg.Database.Enabled {
		pg, err := a.connectPostgres(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.journal = pg
		forget = pg
	} else {
		mem := memory.NewJournal(0)
		a.journal = mem
		forget = mem
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ШИНА СОБЫТИЙ
	// ─────────────────────────────────────────────────────────────────────────
	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.Logger = a.slog
	busCfg.Middlewares = []messaging.Middleware{messaging.RecoveryMiddleware(a.slog)}
	if cfg.Observability.LogLevel == "debug" {
		busCfg.Middlewares = append(busCfg.Middlewares, messaging.LoggingMiddleware(a.slog))
	}
	a.bus = messaging.NewInMemoryEventBus(busCfg)
	a.closers = append(a.closers, a.bus.Close)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ОБРАБОТЧИКИ КОМАНД И ЗАПРОСОВ
	// ─────────────────────────────────────────────────────────────────────────
	deps := command.Deps{
		Roster:    a.roster,
		Journal:   a.journal,
		Publisher: a.bus,
		Logger:    a.log,
	}
	a.handlers = cli.NewHandlers(deps, a.journal)

	a.gate, err = session.NewGate(session.GateConfig{
		Secret:     cfg.Auth.TeacherSecret,
		SecretHash: cfg.Auth.TeacherSecretHash,
		Logger:     a.log,
	}, a.roster)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to build login gate: %w", err)
	}

	a.shell = cli.NewShell(a.handlers, a.gate, a.roster, cli.ShellConfig{
		In:           opts.In,
		Out:          opts.Out,
		Logger:       a.log,
		Prompt:       "gradebook> ",
		HistoryLimit: cfg.App.HistoryLimit,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ПОДПИСЧИКИ НА СОБЫТИЯ
	// ─────────────────────────────────────────────────────────────────────────
	ranks := eventhandler.NewOnRankChangedHandler(a.roster, a.slog, eventhandler.DefaultRankChangedConfig())
	if err := ranks.Prime(ctx); err != nil {
		a.Close()
		return nil, err
	}
	progress := eventhandler.NewOnProgressHandler(a.slog, func(e student.LevelUpEvent) {
		fmt.Fprintf(opts.Out, "🎉 %s reached level %d\n", e.StudentName, e.NewLevel)
	})
	removed := eventhandler.NewOnStudentRemovedHandler(a.slog).Forget(forget).Invalidate(a.shell)

	if err := eventhandler.Register(a.bus, ranks, progress, removed); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to register event handlers: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ЗЕРКАЛО РЕЙТИНГА В REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Redis.Enabled {
		if err := a.connectRedis(ctx); err != nil {
			// Зеркало не обязательно: работаем без него.
			a.log.Warn("leaderboard mirror disabled", logger.Err(err))
		}
	}

	return a, nil
}

func (a *app) connectPostgres(ctx context.Context) (*postgres.XPJournal, error) {
	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = a.cfg.Database.URL
	pgCfg.MaxConns = int32(a.cfg.Database.MaxConns)
	pgCfg.MaxConnLifetime = a.cfg.Database.ConnMaxLifetime
	pgCfg.ConnectTimeout = a.cfg.Database.ConnectTimeout

	conn, err := postgres.NewConnection(ctx, pgCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.closers = append(a.closers, func() error {
		conn.Close()
		return nil
	})

	if a.cfg.Database.Migrate {
		migrator := postgres.NewMigrator(conn)
		if err := migrator.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	a.log.Info("xp journal backed by postgres")
	return postgres.NewXPJournal(conn, a.slog), nil
}

func (a *app) connectRedis(ctx context.Context) error {
	rCfg := redis.DefaultConfig()
	rCfg.Host = a.cfg.Redis.Host
	rCfg.Port = a.cfg.Redis.Port
	rCfg.Password = a.cfg.Redis.Password
	rCfg.DB = a.cfg.Redis.DB
	rCfg.PoolSize = a.cfg.Redis.PoolSize
	rCfg.DialTimeout = a.cfg.Redis.DialTimeout
	rCfg.ReadTimeout = a.cfg.Redis.ReadTimeout
	rCfg.WriteTimeout = a.cfg.Redis.WriteTimeout
	rCfg.KeyPrefix = a.cfg.Redis.KeyPrefix

	cache, err := redis.NewCache(ctx, rCfg)
	if err != nil {
		return err
	}

	mirror := redis.NewLeaderboardMirror(cache)
	projection := projections.NewLeaderboardProjection(mirror, a.slog, rCfg.WriteTimeout)
	if err := projection.Rebuild(ctx, a.roster); err != nil {
		_ = cache.Close()
		return err
	}
	if err := eventhandler.Register(a.bus, projection); err != nil {
		_ = cache.Close()
		return err
	}

	a.closers = append(a.closers, cache.Close)

	heal := jobs.NewHealMirrorJob(projection, a.slog)
	sched := scheduler.New(scheduler.Config{Logger: a.slog, JobTimeout: a.cfg.Redis.HealInterval})
	if err := sched.Register(heal, a.cfg.Redis.HealInterval); err != nil {
		return err
	}
	if err := sched.Start(ctx); err != nil {
		return err
	}
	a.closers = append(a.closers, sched.Stop)

	a.handlers.VerifyMirror = query.NewVerifyMirrorHandler(a.roster, mirror)
	a.shell.SetVerifyMirror(a.handlers.VerifyMirror)
	a.shell.SetMirrorHealer(func(ctx context.Context) error {
		res, err := sched.RunNow(ctx, heal.Name())
		if err != nil {
			return err
		}
		return res.Err
	})
	a.log.Info("leaderboard mirror enabled", logger.F("addr", rCfg.Addr()))
	return nil
}

// Close освобождает ресурсы в обратном порядке.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && a.log != nil {
			a.log.Warn("close failed", logger.Err(err))
		}
	}
	a.closers = nil
}

func (a *app) presenter() *cli.Presenter {
	return cli.NewPresenter(a.out)
}

func loadSeed(path string) ([]student.Student, error) {
	if path == "" {
		students, err := seed.Default()
		if err != nil {
			return nil, fmt.Errorf("failed to load default seed: %w", err)
		}
		return students, nil
	}
	students, err := seed.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load seed %s: %w", path, err)
	}
	return students, nil
}

// setupSlog настраивает slog для шины событий и подписчиков.
func setupSlog(cfg *config.Config, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Observability.LogLevel)); err != nil {
		level = slog.LevelWarn
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Observability.LogFormat == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler).With("app", cfg.App.Name)
}
