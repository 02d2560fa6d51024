// Package seed loads the fixed classroom dataset the roster starts from.
// Records carry raw xp only; level and xpToNextLevel are derived at load.
package seed

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/alem-hub/gradebook/internal/domain/student"
)

//go:embed students.json
var defaultData []byte

// ══════════════════════════════════════════════════════════════════════════════
// DTOs
// ══════════════════════════════════════════════════════════════════════════════

// ScoreRecord is the on-disk shape of a score event.
type ScoreRecord struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Score    int    `json:"score"`
	MaxScore int    `json:"maxScore"`
	Date     string `json:"date"`
	Category string `json:"category"`
}

// StudentRecord is the on-disk shape of a student. It has no level fields.
type StudentRecord struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Grade       string        `json:"grade"`
	XP          int           `json:"xp"`
	Badges      []string      `json:"badges"`
	Attendance  int           `json:"attendance"`
	Strengths   []string      `json:"strengths"`
	Weaknesses  []string      `json:"weaknesses"`
	Assignments []ScoreRecord `json:"assignments"`
	Tests       []ScoreRecord `json:"tests"`
}

// ══════════════════════════════════════════════════════════════════════════════
// LOADING
// ══════════════════════════════════════════════════════════════════════════════

// Default returns the embedded classroom.
func Default() ([]student.Student, error) {
	return Decode(bytes.NewReader(defaultData))
}

// LoadFile reads a seed file with the same shape as the embedded one.
func LoadFile(path string) ([]student.Student, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses records and converts them into validated students.
func Decode(r io.Reader) ([]student.Student, error) {
	var records []StudentRecord
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	out := make([]student.Student, 0, len(records))
	for i, rec := range records {
		s, err := rec.toStudent()
		if err != nil {
			return nil, fmt.Errorf("seed record %d (%s): %w", i, rec.ID, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func (rec StudentRecord) toStudent() (student.Student, error) {
	grade, err := student.ParseGrade(rec.Grade)
	if err != nil {
		return student.Student{}, err
	}

	assignments, err := toEvents(rec.Assignments)
	if err != nil {
		return student.Student{}, err
	}
	tests, err := toEvents(rec.Tests)
	if err != nil {
		return student.Student{}, err
	}

	raw := student.Student{
		ID:          rec.ID,
		Name:        rec.Name,
		Grade:       grade,
		Badges:      rec.Badges,
		Assignments: assignments,
		Tests:       tests,
		Attendance:  rec.Attendance,
		Strengths:   rec.Strengths,
		Weaknesses:  rec.Weaknesses,
	}

	// the one place the level invariant is established rather than maintained
	s := raw.WithXP(student.XP(rec.XP))
	if err := s.Validate(); err != nil {
		return student.Student{}, err
	}
	return s, nil
}

func toEvents(records []ScoreRecord) ([]student.ScoreEvent, error) {
	out := make([]student.ScoreEvent, 0, len(records))
	for _, r := range records {
		category, err := student.ParseCategory(r.Category)
		if err != nil {
			return nil, err
		}
		date, err := student.ParseDate(r.Date)
		if err != nil {
			return nil, err
		}
		out = append(out, student.ScoreEvent{
			ID:       r.ID,
			Title:    r.Title,
			Score:    r.Score,
			MaxScore: r.MaxScore,
			Date:     date,
			Category: category,
		})
	}
	return out, nil
}
