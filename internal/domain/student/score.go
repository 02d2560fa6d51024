package student

import (
	"strings"
	"time"

	"github.com/alem-hub/gradebook/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATEGORY
// ══════════════════════════════════════════════════════════════════════════════

// Category - тег записи журнала. Test живёт в журнале тестов,
// остальные категории - в журнале заданий.
type Category string

const (
	CategoryHomework  Category = "Homework"
	CategoryProject   Category = "Project"
	CategoryChallenge Category = "Challenge"
	CategoryTest      Category = "Test"
)

// Categories перечисляет все категории в порядке отображения.
func Categories() []Category {
	return []Category{CategoryHomework, CategoryProject, CategoryChallenge, CategoryTest}
}

// IsValid проверяет, что категория известна.
func (c Category) IsValid() bool {
	switch c {
	case CategoryHomework, CategoryProject, CategoryChallenge, CategoryTest:
		return true
	default:
		return false
	}
}

// IsTest возвращает true для категории Test.
func (c Category) IsTest() bool {
	return c == CategoryTest
}

// Ledger возвращает журнал, которому принадлежит категория.
func (c Category) Ledger() Ledger {
	if c.IsTest() {
		return LedgerTests
	}
	return LedgerAssignments
}

// String возвращает строковое представление категории.
func (c Category) String() string {
	return string(c)
}

// ParseCategory разбирает категорию без учёта регистра.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories() {
		if strings.EqualFold(strings.TrimSpace(s), string(c)) {
			return c, nil
		}
	}
	return "", shared.ErrInvalidScoreEvent.WithOp("ParseCategory").Detail("unknown category %q", s)
}

// Ledger определяет один из двух журналов ученика.
type Ledger string

const (
	LedgerAssignments Ledger = "assignments"
	LedgerTests       Ledger = "tests"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCORE EVENT
// ══════════════════════════════════════════════════════════════════════════════

// DateLayout - формат календарной даты записи журнала.
const DateLayout = "2006-01-02"

// ScoreEvent - одна оценка: задание или тест.
type ScoreEvent struct {
	// ID уникален в пределах assignments ∪ tests одного ученика.
	ID string

	Title    string
	Score    int
	MaxScore int

	// Date используется только для сортировки истории.
	Date time.Time

	Category Category
}

// IsTest возвращает true, если запись принадлежит журналу тестов.
func (e ScoreEvent) IsTest() bool {
	return e.Category.IsTest()
}

// Percent возвращает оценку в процентах от максимума.
func (e ScoreEvent) Percent() float64 {
	if e.MaxScore <= 0 {
		return 0
	}
	return float64(e.Score) / float64(e.MaxScore) * 100
}

// DateString возвращает дату в формате ISO 8601.
func (e ScoreEvent) DateString() string {
	return e.Date.Format(DateLayout)
}

// ══════════════════════════════════════════════════════════════════════════════
// DRAFT
// ══════════════════════════════════════════════════════════════════════════════

// ScoreDraft - поля новой или редактируемой записи без идентификатора.
type ScoreDraft struct {
	Title    string
	Category Category
	Score    int
	MaxScore int
	Date     time.Time
}

// Validate проверяет входной контракт записи журнала.
// Оценка может превышать максимум: такого ограничения нет.
func (d ScoreDraft) Validate() error {
	switch {
	case strings.TrimSpace(d.Title) == "":
		return shared.ErrInvalidScoreEvent.Detail("title is empty")
	case !d.Category.IsValid():
		return shared.ErrInvalidScoreEvent.Detail("unknown category %q", d.Category)
	case d.Score < 0:
		return shared.ErrInvalidScoreEvent.Detail("score %d is negative", d.Score)
	case d.MaxScore < 1:
		return shared.ErrInvalidScoreEvent.Detail("max score %d is below 1", d.MaxScore)
	case d.Date.IsZero():
		return shared.ErrInvalidScoreEvent.Detail("date is missing")
	}
	return nil
}

// toEvent собирает запись журнала с заданным идентификатором.
func (d ScoreDraft) toEvent(id string) ScoreEvent {
	return ScoreEvent{
		ID:       id,
		Title:    strings.TrimSpace(d.Title),
		Score:    d.Score,
		MaxScore: d.MaxScore,
		Date:     d.Date,
		Category: d.Category,
	}
}

// ParseDate разбирает календарную дату (2006-01-02) или полную метку RFC 3339.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, shared.ErrInvalidScoreEvent.WithOp("ParseDate").Detail("malformed date %q", s)
	}
	return t.UTC(), nil
}

// MustDate - ParseDate для литералов в сиде и тестах.
func MustDate(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}
