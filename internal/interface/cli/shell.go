package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/alem-hub/gradebook/internal/application/command"
	"github.com/alem-hub/gradebook/internal/application/query"
	"github.com/alem-hub/gradebook/internal/application/session"
	"github.com/alem-hub/gradebook/internal/domain/shared"
	"github.com/alem-hub/gradebook/internal/domain/student"
	"github.com/alem-hub/gradebook/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SHELL
// Интерактивная оболочка: одна строка = одно действие пользователя.
// Действие выполняется полностью, прежде чем читается следующая строка.
// ══════════════════════════════════════════════════════════════════════════════

// ErrQuit возвращается Execute для команд quit/exit.
var ErrQuit = errors.New("cli: quit")

// Handlers - обработчики команд и запросов, которые использует оболочка.
type Handlers struct {
	ListStudents *query.ListStudentsHandler
	Dashboard    *query.GetDashboardHandler
	Detail       *query.GetStudentDetailHandler
	Leaderboard  *query.GetLeaderboardHandler
	Rank         *query.GetStudentRankHandler

	// VerifyMirror - опционально, только если настроено зеркало рейтинга.
	VerifyMirror *query.VerifyMirrorHandler

	RecordScore   *command.RecordScoreHandler
	EditScore     *command.EditScoreHandler
	DeleteScore   *command.DeleteScoreHandler
	EditProfile   *command.EditProfileHandler
	AddBadge      *command.AddBadgeHandler
	RemoveBadge   *command.RemoveBadgeHandler
	AddStudent    *command.AddStudentHandler
	RemoveStudent *command.RemoveStudentHandler
}

// NewHandlers собирает все обработчики над одними зависимостями.
func NewHandlers(deps command.Deps, journal student.XPJournal) Handlers {
	return Handlers{
		ListStudents:  query.NewListStudentsHandler(deps.Roster),
		Dashboard:     query.NewGetDashboardHandler(deps.Roster),
		Detail:        query.NewGetStudentDetailHandler(deps.Roster, journal),
		Leaderboard:   query.NewGetLeaderboardHandler(deps.Roster),
		Rank:          query.NewGetStudentRankHandler(deps.Roster),
		RecordScore:   command.NewRecordScoreHandler(deps),
		EditScore:     command.NewEditScoreHandler(deps),
		DeleteScore:   command.NewDeleteScoreHandler(deps),
		EditProfile:   command.NewEditProfileHandler(deps),
		AddBadge:      command.NewAddBadgeHandler(deps),
		RemoveBadge:   command.NewRemoveBadgeHandler(deps),
		AddStudent:    command.NewAddStudentHandler(deps),
		RemoveStudent: command.NewRemoveStudentHandler(deps),
	}
}

// ShellConfig содержит конфигурацию оболочки.
type ShellConfig struct {
	In     io.Reader
	Out    io.Writer
	Logger *logger.Logger

	// Prompt печатается перед каждой строкой. Пустой - без приглашения.
	Prompt string

	// HistoryLimit - сколько изменений XP показывать в карточке.
	HistoryLimit int
}

type shellCommand struct {
	usage       string
	teacherOnly bool
	needsLogin  bool
	run         func(ctx context.Context, args []string) error
}

// Shell - интерактивная оболочка журнала.
type Shell struct {
	h         Handlers
	gate      *session.Gate
	loader    session.StudentLoader
	in        *bufio.Scanner
	out       io.Writer
	presenter *Presenter
	log       *logger.Logger
	config    ShellConfig

	mu   sync.Mutex
	sess *session.Session

	heal func(ctx context.Context) error

	commands map[string]shellCommand
}

// NewShell создаёт оболочку.
func NewShell(h Handlers, gate *session.Gate, loader session.StudentLoader, cfg ShellConfig) *Shell {
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.In == nil {
		cfg.In = strings.NewReader("")
	}
	if cfg.Out == nil {
		cfg.Out = io.Discard
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 10
	}

	s := &Shell{
		h:         h,
		gate:      gate,
		loader:    loader,
		in:        bufio.NewScanner(cfg.In),
		out:       cfg.Out,
		presenter: NewPresenter(cfg.Out),
		log:       cfg.Logger.With(logger.Component("shell")),
		config:    cfg,
	}
	s.registerCommands()
	return s
}

// Session возвращает текущую сессию (nil до входа).
func (s *Shell) Session() *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess
}

// Adopt делает sess текущей сессией, как после login.
func (s *Shell) Adopt(sess *session.Session) {
	if prev := s.Session(); prev != nil && prev != sess {
		prev.Logout()
	}
	s.setSession(sess)
}

func (s *Shell) setSession(sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = sess
}

// Invalidate сбрасывает выбор удалённого ученика в текущей сессии.
// Подписывается на удаление ученика через eventhandler.
func (s *Shell) Invalidate(studentID string) {
	if sess := s.Session(); sess != nil {
		sess.Invalidate(studentID)
	}
}

// SetVerifyMirror включает команду verify. Вызывать до Run.
func (s *Shell) SetVerifyMirror(h *query.VerifyMirrorHandler) {
	s.h.VerifyMirror = h
}

// SetMirrorHealer включает команду heal: внеочередной запуск фоновой
// синхронизации зеркала. Вызывать до Run.
func (s *Shell) SetMirrorHealer(fn func(ctx context.Context) error) {
	s.heal = fn
}

// ─────────────────────────────────────────────────────────────────────────────
// LOOP
// ─────────────────────────────────────────────────────────────────────────────

// Run читает строки до EOF, quit или отмены контекста.
func (s *Shell) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.config.Prompt != "" {
			fmt.Fprint(s.out, s.config.Prompt)
		}
		if !s.in.Scan() {
			return s.in.Err()
		}

		err := s.Execute(ctx, s.in.Text())
		if errors.Is(err, ErrQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}
}

// Execute выполняет одну строку.
func (s *Shell) Execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	name, args := strings.ToLower(fields[0]), fields[1:]

	cmd, ok := s.commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q, try help", name)
	}

	sess := s.Session()
	if cmd.needsLogin && sess == nil {
		return errors.New("log in first: login teacher <secret> | login student <id>")
	}
	if cmd.teacherOnly {
		if err := sess.RequireTeacher(name); err != nil {
			return err
		}
	}

	actionID := uuid.NewString()
	log := s.log.WithActionID(actionID).With(logger.Operation(name))
	if err := cmd.run(withAction(ctx, actionID), args); err != nil {
		if !errors.Is(err, ErrQuit) {
			log.Debug("action failed", logger.Err(err))
		}
		return err
	}
	log.Debug("action done")
	return nil
}

type actionKey struct{}

func withAction(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, actionKey{}, id)
}

func actionOf(ctx context.Context) string {
	id, _ := ctx.Value(actionKey{}).(string)
	return id
}

// ─────────────────────────────────────────────────────────────────────────────
// REGISTRATION
// ─────────────────────────────────────────────────────────────────────────────

func (s *Shell) registerCommands() {
	s.commands = map[string]shellCommand{
		"help":   {usage: "help", run: s.cmdHelp},
		"login":  {usage: "login teacher <secret> | login student <id>", run: s.cmdLogin},
		"logout": {usage: "logout", needsLogin: true, run: s.cmdLogout},
		"whoami": {usage: "whoami", needsLogin: true, run: s.cmdWhoami},
		"quit":   {usage: "quit", run: func(context.Context, []string) error { return ErrQuit }},
		"exit":   {usage: "exit", run: func(context.Context, []string) error { return ErrQuit }},

		"grade":       {usage: "grade [All|6|7|8]", needsLogin: true, teacherOnly: true, run: s.cmdGrade},
		"dashboard":   {usage: "dashboard", needsLogin: true, teacherOnly: true, run: s.cmdDashboard},
		"roster":      {usage: "roster", needsLogin: true, teacherOnly: true, run: s.cmdRoster},
		"select":      {usage: "select <id>", needsLogin: true, teacherOnly: true, run: s.cmdSelect},
		"unselect":    {usage: "unselect", needsLogin: true, teacherOnly: true, run: s.cmdUnselect},
		"show":        {usage: "show [id]", needsLogin: true, run: s.cmdShow},
		"leaderboard": {usage: "leaderboard", needsLogin: true, run: s.cmdLeaderboard},
		"rank":        {usage: "rank [id]", needsLogin: true, run: s.cmdRank},
		"verify":      {usage: "verify", needsLogin: true, teacherOnly: true, run: s.cmdVerify},
		"heal":        {usage: "heal", needsLogin: true, teacherOnly: true, run: s.cmdHeal},

		"score": {
			usage: "score add <category> <score>/<max> <yyyy-mm-dd> <title...> | " +
				"score edit <event-id> <category> <score>/<max> <yyyy-mm-dd> <title...> | " +
				"score delete <event-id> [-y]",
			needsLogin: true, teacherOnly: true, run: s.cmdScore,
		},
		"profile": {usage: "profile <grade> <xp> <name...>", needsLogin: true, teacherOnly: true, run: s.cmdProfile},
		"badge":   {usage: "badge add|remove <name...>", needsLogin: true, teacherOnly: true, run: s.cmdBadge},
		"student": {usage: "student add <grade> <name...> | student remove <id> [-y]", needsLogin: true, teacherOnly: true, run: s.cmdStudent},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// SESSION COMMANDS
// ─────────────────────────────────────────────────────────────────────────────

func (s *Shell) cmdHelp(context.Context, []string) error {
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cmd := s.commands[name]
		mark := ""
		if cmd.teacherOnly {
			mark = " (teacher)"
		}
		fmt.Fprintf(s.out, "  %s%s\n", cmd.usage, mark)
	}
	return nil
}

func (s *Shell) cmdLogin(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usageError(s.commands["login"])
	}

	var (
		sess *session.Session
		err  error
	)
	switch strings.ToLower(args[0]) {
	case "teacher":
		sess, err = s.gate.LoginTeacher(args[1])
	case "student":
		sess, err = s.gate.LoginStudent(ctx, args[1])
	default:
		return usageError(s.commands["login"])
	}
	if err != nil {
		return err
	}

	s.Adopt(sess)
	fmt.Fprintf(s.out, "logged in as %s\n", sess.Role())
	return nil
}

func (s *Shell) cmdLogout(context.Context, []string) error {
	s.Session().Logout()
	s.setSession(nil)
	fmt.Fprintln(s.out, "logged out")
	return nil
}

func (s *Shell) cmdWhoami(ctx context.Context, _ []string) error {
	sess := s.Session()
	fmt.Fprintf(s.out, "role: %s\n", sess.Role())
	if id := sess.StudentID(); id != "" {
		fmt.Fprintf(s.out, "student: %s\n", id)
	}
	if sess.IsTeacher() {
		fmt.Fprintf(s.out, "grade: %s\n", sess.Grade())
		if st, ok, err := sess.Selected(ctx, s.loader); err != nil {
			return err
		} else if ok {
			fmt.Fprintf(s.out, "selected: %s (%s)\n", st.Name, st.ID)
		}
	}
	return nil
}

func (s *Shell) cmdGrade(_ context.Context, args []string) error {
	sess := s.Session()
	if len(args) == 0 {
		fmt.Fprintf(s.out, "grade: %s\n", sess.Grade())
		return nil
	}
	filter, err := student.ParseGradeFilter(strings.Join(args, " "))
	if err != nil {
		return err
	}
	if err := sess.SetGrade(filter); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "grade: %s\n", filter)
	return nil
}

func (s *Shell) cmdSelect(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError(s.commands["select"])
	}
	st, err := s.loader.FindByID(ctx, args[0])
	if err != nil {
		return err
	}
	if err := s.Session().Select(st.ID); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "selected %s (%s)\n", st.Name, st.ID)
	return nil
}

func (s *Shell) cmdUnselect(context.Context, []string) error {
	s.Session().ClearSelection()
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// VIEWS
// ─────────────────────────────────────────────────────────────────────────────

func (s *Shell) cmdDashboard(ctx context.Context, _ []string) error {
	r, err := s.h.Dashboard.Handle(ctx, query.GetDashboardQuery{Grade: s.Session().Grade()})
	if err != nil {
		return err
	}
	s.presenter.Dashboard(r)
	return nil
}

func (s *Shell) cmdRoster(ctx context.Context, _ []string) error {
	r, err := s.h.ListStudents.Handle(ctx, query.ListStudentsQuery{Grade: s.Session().Grade()})
	if err != nil {
		return err
	}
	s.presenter.Roster(r)
	return nil
}

func (s *Shell) cmdShow(ctx context.Context, args []string) error {
	id, err := s.targetID(ctx, args)
	if err != nil {
		return err
	}
	r, err := s.h.Detail.Handle(ctx, query.GetStudentDetailQuery{StudentID: id, HistoryLimit: s.config.HistoryLimit})
	if err != nil {
		return err
	}
	s.presenter.Detail(r)
	return nil
}

func (s *Shell) cmdLeaderboard(ctx context.Context, _ []string) error {
	sess := s.Session()
	q := query.GetLeaderboardQuery{Grade: sess.Grade(), ViewerID: sess.StudentID()}
	r, err := s.h.Leaderboard.Handle(ctx, q)
	if err != nil {
		return err
	}
	s.presenter.Leaderboard(r)
	return nil
}

func (s *Shell) cmdRank(ctx context.Context, args []string) error {
	id, err := s.targetID(ctx, args)
	if err != nil {
		return err
	}
	r, err := s.h.Rank.Handle(ctx, query.GetStudentRankQuery{StudentID: id})
	if err != nil {
		return err
	}
	s.presenter.Rank(r)
	return nil
}

func (s *Shell) cmdVerify(ctx context.Context, _ []string) error {
	if s.h.VerifyMirror == nil {
		return errors.New("leaderboard mirror is not configured")
	}
	r, err := s.h.VerifyMirror.Handle(ctx, query.VerifyMirrorQuery{Grade: s.Session().Grade()})
	if err != nil {
		return err
	}
	s.presenter.Mirror(r)
	return nil
}

func (s *Shell) cmdHeal(ctx context.Context, _ []string) error {
	if s.heal == nil {
		return errors.New("leaderboard mirror is not configured")
	}
	if err := s.heal(ctx); err != nil {
		return fmt.Errorf("mirror heal failed: %w", err)
	}
	fmt.Fprintln(s.out, "mirror heal finished")
	if s.h.VerifyMirror == nil {
		return nil
	}
	return s.cmdVerify(ctx, nil)
}

// targetID resolves the student a view is about: students always see
// themselves, teachers pass an id (which becomes the selection) or use the
// current selection.
func (s *Shell) targetID(ctx context.Context, args []string) (string, error) {
	sess := s.Session()
	if !sess.IsTeacher() {
		if len(args) > 0 && args[0] != sess.StudentID() {
			return "", session.ErrNotPermitted.WithOp("View")
		}
		return sess.StudentID(), nil
	}

	if len(args) > 0 {
		st, err := s.loader.FindByID(ctx, args[0])
		if err != nil {
			return "", err
		}
		if err := sess.Select(st.ID); err != nil {
			return "", err
		}
		return st.ID, nil
	}
	return s.selectedID(ctx)
}

func (s *Shell) selectedID(ctx context.Context) (string, error) {
	st, ok, err := s.Session().Selected(ctx, s.loader)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.New("no student selected: select <id>")
	}
	return st.ID, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// MUTATIONS
// ─────────────────────────────────────────────────────────────────────────────

func (s *Shell) cmdScore(ctx context.Context, args []string) error {
	usage := usageError(s.commands["score"])
	if len(args) == 0 {
		return usage
	}
	id, err := s.selectedID(ctx)
	if err != nil {
		return err
	}

	switch strings.ToLower(args[0]) {
	case "add":
		form, err := parseScoreForm(args[1:])
		if err != nil {
			return err
		}
		r, err := s.h.RecordScore.Handle(ctx, command.RecordScoreCommand{
			StudentID: id, Form: form, CorrelationID: actionOf(ctx),
		})
		if err != nil {
			return err
		}
		s.reportScore("recorded", r)

	case "edit":
		if len(args) < 2 {
			return usage
		}
		form, err := parseScoreForm(args[2:])
		if err != nil {
			return err
		}
		r, err := s.h.EditScore.Handle(ctx, command.EditScoreCommand{
			StudentID: id, EventID: args[1], Form: form, CorrelationID: actionOf(ctx),
		})
		if err != nil {
			return err
		}
		s.reportScore("updated", r)

	case "delete":
		if len(args) < 2 {
			return usage
		}
		eventID := args[1]
		if !hasYes(args[2:]) && !s.confirm(fmt.Sprintf("delete score %s from %s?", eventID, id)) {
			fmt.Fprintln(s.out, "cancelled")
			return nil
		}
		r, err := s.h.DeleteScore.Handle(ctx, command.DeleteScoreCommand{
			StudentID: id, EventID: eventID, CorrelationID: actionOf(ctx),
		})
		if err != nil {
			return err
		}
		s.reportScore("deleted", r)

	default:
		return usage
	}
	return nil
}

func (s *Shell) reportScore(verb string, r *command.ScoreResult) {
	fmt.Fprintf(s.out, "score %s: %s %q, xp %s (%s)\n",
		verb, r.Change.Event.ID, r.Change.Event.Title,
		formatNumber(int(r.Student.XP)), formatDelta(int(r.Change.Delta())))
	if r.LeveledUp() {
		fmt.Fprintf(s.out, "level up! %s is now level %d\n", r.Student.Name, r.Student.Level)
	}
}

func (s *Shell) cmdProfile(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return usageError(s.commands["profile"])
	}
	id, err := s.selectedID(ctx)
	if err != nil {
		return err
	}
	xp, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("xp must be a number: %w", shared.ErrInvalidStudent)
	}

	r, err := s.h.EditProfile.Handle(ctx, command.EditProfileCommand{
		StudentID:     id,
		Grade:         args[0],
		XP:            xp,
		Name:          strings.Join(args[2:], " "),
		CorrelationID: actionOf(ctx),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "profile saved: %s · %s · %s XP · level %d\n",
		r.Student.Name, r.Student.Grade, formatNumber(int(r.Student.XP)), r.Student.Level)
	return nil
}

func (s *Shell) cmdBadge(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usageError(s.commands["badge"])
	}
	id, err := s.selectedID(ctx)
	if err != nil {
		return err
	}
	cmd := command.BadgeCommand{StudentID: id, Badge: strings.Join(args[1:], " "), CorrelationID: actionOf(ctx)}

	switch strings.ToLower(args[0]) {
	case "add":
		r, err := s.h.AddBadge.Handle(ctx, cmd)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "badges: %s\n", strings.Join(r.Student.Badges, ", "))
	case "remove":
		r, err := s.h.RemoveBadge.Handle(ctx, cmd)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "removed %d\n", r.Removed)
	default:
		return usageError(s.commands["badge"])
	}
	return nil
}

func (s *Shell) cmdStudent(ctx context.Context, args []string) error {
	usage := usageError(s.commands["student"])
	if len(args) < 2 {
		return usage
	}

	switch strings.ToLower(args[0]) {
	case "add":
		if len(args) < 3 {
			return usage
		}
		st, err := s.h.AddStudent.Handle(ctx, command.AddStudentCommand{
			Grade: args[1], Name: strings.Join(args[2:], " "), CorrelationID: actionOf(ctx),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "added %s (%s)\n", st.Name, st.ID)

	case "remove":
		id := args[1]
		if !hasYes(args[2:]) && !s.confirm(fmt.Sprintf("remove student %s and all of their scores?", id)) {
			fmt.Fprintln(s.out, "cancelled")
			return nil
		}
		st, err := s.h.RemoveStudent.Handle(ctx, command.RemoveStudentCommand{StudentID: id, CorrelationID: actionOf(ctx)})
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "removed %s (%s)\n", st.Name, st.ID)

	default:
		return usage
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// HELPERS
// ─────────────────────────────────────────────────────────────────────────────

// confirm asks a yes/no question on the next input line.
func (s *Shell) confirm(question string) bool {
	fmt.Fprintf(s.out, "%s [y/N] ", question)
	if !s.in.Scan() {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(s.in.Text())) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func hasYes(args []string) bool {
	for _, a := range args {
		if a == "-y" || a == "--yes" {
			return true
		}
	}
	return false
}

// parseScoreForm reads "<category> <score>/<max> <date> <title...>".
func parseScoreForm(args []string) (command.ScoreForm, error) {
	if len(args) < 4 {
		return command.ScoreForm{}, shared.ErrInvalidScoreEvent.Detail("expected <category> <score>/<max> <date> <title>")
	}

	scoreStr, maxStr, ok := strings.Cut(args[1], "/")
	if !ok {
		return command.ScoreForm{}, shared.ErrInvalidScoreEvent.Detail("score must look like 85/100")
	}
	score, err := strconv.Atoi(scoreStr)
	if err != nil {
		return command.ScoreForm{}, shared.ErrInvalidScoreEvent.Detail("score is not a number")
	}
	maxScore, err := strconv.Atoi(maxStr)
	if err != nil {
		return command.ScoreForm{}, shared.ErrInvalidScoreEvent.Detail("max score is not a number")
	}

	return command.ScoreForm{
		Category: canonicalCategory(args[0]),
		Score:    score,
		MaxScore: maxScore,
		Date:     args[2],
		Title:    strings.Join(args[3:], " "),
	}, nil
}

// canonicalCategory accepts any letter case for the known categories.
func canonicalCategory(s string) string {
	for _, c := range student.Categories() {
		if strings.EqualFold(s, c.String()) {
			return c.String()
		}
	}
	return s
}

func usageError(cmd shellCommand) error {
	return fmt.Errorf("usage: %s", cmd.usage)
}
