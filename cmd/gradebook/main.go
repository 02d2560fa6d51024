// Package main - точка входа для журнала успеваемости.
//
// Без подкоманды запускается интерактивная оболочка. Подкоманды dashboard,
// roster, show, leaderboard, rank и verify выполняют одно действие от имени
// учителя (--secret) или ученика (--student) и завершаются.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alem-hub/gradebook/internal/application/session"
	"github.com/alem-hub/gradebook/internal/domain/shared"
	"github.com/alem-hub/gradebook/internal/domain/student"
	"github.com/alem-hub/gradebook/internal/infrastructure/persistence/postgres"
)

// version задаётся при сборке: -ldflags "-X main.version=x.y.z".
var version = "dev"

// exitErr переносит код выхода через цепочку ошибок cobra.
type exitErr struct {
	code int
	err  error
}

func (e *exitErr) Error() string { return e.err.Error() }
func (e *exitErr) Unwrap() error { return e.err }

// globalFlags - флаги, общие для всех подкоманд.
type globalFlags struct {
	envFile  string
	seedFile string
	logLevel string

	secret    string
	studentID string
	grade     string
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(os.Stdin, os.Stdout, os.Stderr)
	err := root.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var ee *exitErr
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}

func newRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:           "gradebook",
		Short:         "Classroom gradebook with XP, levels and a leaderboard",
		Long:          "gradebook keeps a classroom roster with score ledgers, XP levels, badges and a live leaderboard.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShell(cmd.Context(), flags, in, out, errOut)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.envFile, "env-file", "", "Load configuration from this .env file")
	pf.StringVar(&flags.seedFile, "seed", "", "Roster seed JSON file (defaults to the built-in class)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Override LOG_LEVEL: debug, info, warn or error")
	pf.StringVar(&flags.secret, "secret", "", "Teacher secret for one-shot commands (or GRADEBOOK_SECRET)")
	pf.StringVar(&flags.studentID, "student", "", "Run one-shot commands as this student")
	pf.StringVar(&flags.grade, "grade", "", "Grade filter for teacher views: 6, 7, 8 or All")

	oneShot := func(use, short string, args cobra.PositionalArgs, line func([]string) string) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  args,
			RunE: func(cmd *cobra.Command, a []string) error {
				return runOnce(cmd.Context(), flags, line(a), out, errOut)
			},
		}
	}
	fixed := func(name string) func([]string) string {
		return func(a []string) string { return strings.Join(append([]string{name}, a...), " ") }
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "shell",
			Short: "Start the interactive shell",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runShell(cmd.Context(), flags, in, out, errOut)
			},
		},
		oneShot("dashboard", "Print the class dashboard", cobra.NoArgs, fixed("dashboard")),
		oneShot("roster", "List students", cobra.NoArgs, fixed("roster")),
		oneShot("show [student-id]", "Print a student's detail card", cobra.MaximumNArgs(1), fixed("show")),
		oneShot("leaderboard", "Print the leaderboard", cobra.NoArgs, fixed("leaderboard")),
		oneShot("rank [student-id]", "Print a student's rank and neighbours", cobra.MaximumNArgs(1), fixed("rank")),
		oneShot("verify", "Compare the Redis leaderboard mirror with the roster", cobra.NoArgs, fixed("verify")),
		newMigrateCommand(&flags, out),
	)

	return root
}

// ─────────────────────────────────────────────────────────────────────────────
// SHELL
// ─────────────────────────────────────────────────────────────────────────────

func runShell(ctx context.Context, flags globalFlags, in io.Reader, out, errOut io.Writer) error {
	a, err := newApp(ctx, appOptions{
		EnvFile:  flags.envFile,
		SeedFile: flags.seedFile,
		LogLevel: flags.logLevel,
		In:       in,
		Out:      out,
		Err:      errOut,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprintf(out, "%s %s. Type help for commands.\n", a.cfg.App.Name, version)
	if err := a.shell.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// ONE-SHOT COMMANDS
// ─────────────────────────────────────────────────────────────────────────────

func runOnce(ctx context.Context, flags globalFlags, line string, out, errOut io.Writer) error {
	a, err := newApp(ctx, appOptions{
		EnvFile:  flags.envFile,
		SeedFile: flags.seedFile,
		LogLevel: flags.logLevel,
		In:       strings.NewReader(""),
		Out:      out,
		Err:      errOut,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	if flags.secret == "" {
		flags.secret = os.Getenv("GRADEBOOK_SECRET")
	}
	sess, err := login(ctx, a.gate, flags)
	if err != nil {
		return &exitErr{code: 2, err: err}
	}
	a.shell.Adopt(sess)

	if err := a.shell.Execute(ctx, line); err != nil {
		if errors.Is(err, shared.ErrUnauthorized) {
			return &exitErr{code: 2, err: err}
		}
		return err
	}
	return nil
}

func login(ctx context.Context, gate *session.Gate, flags globalFlags) (*session.Session, error) {
	switch {
	case flags.studentID != "":
		return gate.LoginStudent(ctx, flags.studentID)

	case flags.secret != "":
		sess, err := gate.LoginTeacher(flags.secret)
		if err != nil {
			return nil, err
		}
		if flags.grade != "" {
			filter, err := student.ParseGradeFilter(flags.grade)
			if err != nil {
				return nil, err
			}
			if err := sess.SetGrade(filter); err != nil {
				return nil, err
			}
		}
		return sess, nil

	default:
		return nil, errors.New("pass --secret (or GRADEBOOK_SECRET) for teacher views or --student <id>")
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// MIGRATE
// ─────────────────────────────────────────────────────────────────────────────

func newMigrateCommand(flags *globalFlags, out io.Writer) *cobra.Command {
	var statusOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the XP journal schema to PostgreSQL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(appOptions{EnvFile: flags.envFile})
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return &exitErr{code: 2, err: errors.New("DATABASE_URL is not set")}
			}

			pgCfg := postgres.DefaultConfig()
			pgCfg.URL = cfg.Database.URL
			pgCfg.ConnectTimeout = cfg.Database.ConnectTimeout

			conn, err := postgres.NewConnection(ctx, pgCfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			migrator := postgres.NewMigrator(conn)
			if !statusOnly {
				if err := migrator.Migrate(ctx); err != nil {
					return err
				}
			}

			status, err := migrator.Status(ctx)
			if err != nil {
				return err
			}
			for _, m := range status {
				state := "pending"
				if m.IsApplied {
					state = "applied " + m.AppliedAt.Format("2006-01-02 15:04")
				}
				fmt.Fprintf(out, "%03d  %-32s %s\n", m.Version, m.Name, state)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&statusOnly, "status", false, "Only print migration status")
	return cmd
}
