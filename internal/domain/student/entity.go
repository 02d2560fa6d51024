package student

import (
	"fmt"
	"slices"
	"strings"

	"github.com/alem-hub/gradebook/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GRADE
// ══════════════════════════════════════════════════════════════════════════════

// Grade - класс ученика. Значения - отображаемые подписи.
type Grade string

const (
	Grade6 Grade = "الصف السادس"
	Grade7 Grade = "الصف السابع"
	Grade8 Grade = "الصف الثامن"
)

// Grades перечисляет классы в порядке отображения.
func Grades() []Grade {
	return []Grade{Grade6, Grade7, Grade8}
}

// IsValid проверяет, что класс входит в закрытый перечень.
func (g Grade) IsValid() bool {
	switch g {
	case Grade6, Grade7, Grade8:
		return true
	default:
		return false
	}
}

// Slug возвращает латинский ключ класса (для ключей кеша и CLI).
func (g Grade) Slug() string {
	switch g {
	case Grade6:
		return "grade6"
	case Grade7:
		return "grade7"
	case Grade8:
		return "grade8"
	default:
		return ""
	}
}

// String возвращает подпись класса.
func (g Grade) String() string {
	return string(g)
}

// ParseGrade принимает подпись класса, slug ("grade7") или короткую форму
// ("7", "7th", "7th Grade").
func ParseGrade(s string) (Grade, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for _, g := range Grades() {
		if s == string(g) || v == g.Slug() {
			return g, nil
		}
	}
	switch strings.TrimSuffix(strings.TrimSuffix(v, " grade"), "th") {
	case "6":
		return Grade6, nil
	case "7":
		return Grade7, nil
	case "8":
		return Grade8, nil
	}
	return "", shared.ErrInvalidGrade.WithOp("ParseGrade").Detail("%q", s)
}

// GradeFilter - значение фильтра по классу; GradeAll отключает фильтрацию.
type GradeFilter string

// GradeAll - сентинел "все классы".
const GradeAll GradeFilter = "All"

// FilterFor возвращает фильтр по конкретному классу.
func FilterFor(g Grade) GradeFilter {
	return GradeFilter(g)
}

// ParseGradeFilter разбирает "All" (без учёта регистра, пустая строка тоже) или класс.
func ParseGradeFilter(s string) (GradeFilter, error) {
	if v := strings.TrimSpace(s); v == "" || strings.EqualFold(v, string(GradeAll)) {
		return GradeAll, nil
	}
	g, err := ParseGrade(s)
	if err != nil {
		return "", err
	}
	return FilterFor(g), nil
}

// Matches проверяет, проходит ли класс через фильтр.
func (f GradeFilter) Matches(g Grade) bool {
	return f == GradeAll || Grade(f) == g
}

// IsAll возвращает true для сентинела GradeAll.
func (f GradeFilter) IsAll() bool {
	return f == GradeAll
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student - агрегат ученика. Значение: методы возвращают изменённую копию,
// исходный экземпляр не меняется.
type Student struct {
	// ID неизменяем после создания.
	ID string

	Name  string
	Grade Grade

	// XP - единственный источник истины для уровня.
	XP XP

	// Level и XPToNextLevel выводятся из XP (см. WithXP).
	Level         Level
	XPToNextLevel XP

	// Badges - список без дедупликации.
	Badges []string

	Assignments []ScoreEvent
	Tests       []ScoreEvent

	// Attendance - посещаемость в процентах [0, 100].
	Attendance int

	Strengths  []string
	Weaknesses []string
}

// NewStudentParams содержит параметры для создания нового ученика.
// ID можно не задавать: Roster.Add всё равно выдаёт новый идентификатор.
type NewStudentParams struct {
	ID    string
	Name  string
	Grade Grade
}

// NewStudent создаёт ученика с нулевым XP, пустыми журналами и 100% посещаемостью.
func NewStudent(params NewStudentParams) (Student, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return Student{}, shared.ErrInvalidStudent.WithOp("New").Detail("name is empty")
	}
	if !params.Grade.IsValid() {
		return Student{}, shared.ErrInvalidGrade.WithOp("New").Detail("%q", params.Grade)
	}

	s := Student{
		ID:          strings.TrimSpace(params.ID),
		Name:        name,
		Grade:       params.Grade,
		Badges:      []string{},
		Assignments: []ScoreEvent{},
		Tests:       []ScoreEvent{},
		Attendance:  100,
		Strengths:   []string{},
		Weaknesses:  []string{},
	}
	return s.WithXP(0), nil
}

// WithXP возвращает копию с новым XP и пересчитанными Level/XPToNextLevel.
// Это единственный путь изменения XP. Отрицательный XP сохраняется как есть,
// а в функцию уровней передаётся ноль.
func (s Student) WithXP(xp XP) Student {
	c := s.Clone()
	c.XP = xp
	clamped := xp
	if clamped < 0 {
		clamped = 0
	}
	c.Level, c.XPToNextLevel = LevelOf(clamped)
	return c
}

// LevelConsistent проверяет инвариант Level/XPToNextLevel == LevelOf(XP).
func (s Student) LevelConsistent() bool {
	clamped := s.XP
	if clamped < 0 {
		clamped = 0
	}
	level, next := LevelOf(clamped)
	return s.Level == level && s.XPToNextLevel == next
}

// Validate проверяет агрегат перед сохранением в Roster.
func (s Student) Validate() error {
	switch {
	case strings.TrimSpace(s.ID) == "":
		return shared.ErrInvalidStudent.Detail("id is empty")
	case strings.TrimSpace(s.Name) == "":
		return shared.ErrInvalidStudent.Detail("name is empty")
	case !s.Grade.IsValid():
		return shared.ErrInvalidGrade.Detail("%q", s.Grade)
	case s.Attendance < 0 || s.Attendance > 100:
		return shared.ErrInvalidStudent.Detail("attendance %d outside [0,100]", s.Attendance)
	case !s.LevelConsistent():
		return shared.ErrInvalidStudent.Detail("level %d/%d does not match xp %d", s.Level, s.XPToNextLevel, s.XP)
	}

	seen := make(map[string]struct{}, len(s.Assignments)+len(s.Tests))
	for _, e := range s.Assignments {
		if e.IsTest() {
			return shared.ErrInvalidStudent.Detail("test %q stored in assignments", e.ID)
		}
		if _, dup := seen[e.ID]; dup {
			return shared.ErrDuplicateEventID.WithOp("Validate").Detail("%q", e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	for _, e := range s.Tests {
		if !e.IsTest() {
			return shared.ErrInvalidStudent.Detail("%s %q stored in tests", e.Category, e.ID)
		}
		if _, dup := seen[e.ID]; dup {
			return shared.ErrDuplicateEventID.WithOp("Validate").Detail("%q", e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE & BADGES
// ══════════════════════════════════════════════════════════════════════════════

// ProfileEdit - ручная правка учителем.
type ProfileEdit struct {
	Name  string
	Grade Grade
	XP    XP
}

// EditProfile применяет правку имени, класса и XP одним атомарным обновлением.
// Уменьшение XP допустимо; сверки с журналом нет.
func (s Student) EditProfile(edit ProfileEdit) (Student, error) {
	name := strings.TrimSpace(edit.Name)
	if name == "" {
		return Student{}, shared.ErrInvalidStudent.WithOp("EditProfile").Detail("name is empty")
	}
	if !edit.Grade.IsValid() {
		return Student{}, shared.ErrInvalidGrade.WithOp("EditProfile").Detail("%q", edit.Grade)
	}
	if !edit.XP.IsValid() {
		return Student{}, shared.ErrInvalidStudent.WithOp("EditProfile").Detail("xp %d is negative", edit.XP)
	}

	c := s.WithXP(edit.XP)
	c.Name = name
	c.Grade = edit.Grade
	return c, nil
}

// AddBadge добавляет значок в конец списка. Дубликаты не фильтруются.
func (s Student) AddBadge(name string) (Student, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Student{}, shared.ErrInvalidBadge
	}
	c := s.Clone()
	c.Badges = append(c.Badges, name)
	return c, nil
}

// RemoveBadge удаляет все значки с указанным именем и возвращает их количество.
func (s Student) RemoveBadge(name string) (Student, int) {
	c := s.Clone()
	kept := c.Badges[:0]
	for _, b := range c.Badges {
		if b != name {
			kept = append(kept, b)
		}
	}
	removed := len(c.Badges) - len(kept)
	c.Badges = kept
	return c, removed
}

// HasBadge проверяет наличие значка.
func (s Student) HasBadge(name string) bool {
	return slices.Contains(s.Badges, name)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// Clone создаёт глубокую копию: срезы не разделяются с оригиналом.
func (s Student) Clone() Student {
	c := s
	c.Badges = cloneStrings(s.Badges)
	c.Assignments = cloneEvents(s.Assignments)
	c.Tests = cloneEvents(s.Tests)
	c.Strengths = cloneStrings(s.Strengths)
	c.Weaknesses = cloneStrings(s.Weaknesses)
	return c
}

// String возвращает строковое представление ученика для логирования.
func (s Student) String() string {
	return fmt.Sprintf(
		"Student{ID: %s, Grade: %s, XP: %d, Level: %d, Assignments: %d, Tests: %d}",
		s.ID, s.Grade.Slug(), s.XP, s.Level, len(s.Assignments), len(s.Tests),
	)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneEvents(in []ScoreEvent) []ScoreEvent {
	if in == nil {
		return []ScoreEvent{}
	}
	out := make([]ScoreEvent, len(in))
	copy(out, in)
	return out
}
