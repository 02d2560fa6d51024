// Package session implements the login gate and the per-user view state:
// role, selected student and grade filter.
package session

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/alem-hub/gradebook/internal/domain/shared"
	"github.com/alem-hub/gradebook/internal/domain/student"
	"github.com/alem-hub/gradebook/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// LOGIN GATE
// ══════════════════════════════════════════════════════════════════════════════

// DefaultTeacherSecret is used when no secret or hash is configured.
const DefaultTeacherSecret = "123456"

// StudentFinder resolves a login id against the live roster.
type StudentFinder interface {
	FindByIDFold(ctx context.Context, id string) (student.Student, error)
}

// Gate checks credentials and opens sessions.
type Gate struct {
	hash   []byte
	finder StudentFinder
	log    *logger.Logger
}

// GateConfig configures a Gate.
type GateConfig struct {
	// Secret is the plain teacher secret. Ignored when SecretHash is set.
	Secret string

	// SecretHash is a bcrypt hash of the teacher secret.
	SecretHash string

	Logger *logger.Logger
}

// NewGate creates a Gate. Without a secret or hash it falls back to DefaultTeacherSecret.
func NewGate(cfg GateConfig, finder StudentFinder) (*Gate, error) {
	if finder == nil {
		return nil, errors.New("session: student finder is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	g := &Gate{finder: finder, log: cfg.Logger.With(logger.Component("session"))}

	if cfg.SecretHash != "" {
		if _, err := bcrypt.Cost([]byte(cfg.SecretHash)); err != nil {
			return nil, shared.WrapError("session", "NewGate", shared.ErrInvalidFormat, "teacher secret hash is not bcrypt", err)
		}
		g.hash = []byte(cfg.SecretHash)
		return g, nil
	}

	secret := cfg.Secret
	if secret == "" {
		secret = DefaultTeacherSecret
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, shared.WrapError("session", "NewGate", shared.ErrInvalidInput, "failed to hash teacher secret", err)
	}
	g.hash = hash
	return g, nil
}

// LoginTeacher opens a teacher session when the secret matches.
func (g *Gate) LoginTeacher(secret string) (*Session, error) {
	if err := bcrypt.CompareHashAndPassword(g.hash, []byte(secret)); err != nil {
		g.log.Warn("teacher login rejected", logger.Role(string(RoleTeacher)))
		return nil, shared.ErrInvalidCredentials.WithOp("LoginTeacher")
	}
	g.log.Info("teacher logged in", logger.Role(string(RoleTeacher)))
	return newSession(RoleTeacher, ""), nil
}

// LoginStudent opens a student session. The id is matched case-insensitively
// against the live roster, and the student's own card becomes the selection.
func (g *Gate) LoginStudent(ctx context.Context, id string) (*Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, shared.ErrInvalidCredentials.WithOp("LoginStudent")
	}

	s, err := g.finder.FindByIDFold(ctx, id)
	if err != nil {
		if shared.IsNotFound(err) {
			g.log.Warn("student login rejected", logger.Role(string(RoleStudent)), logger.String("input", id))
			return nil, shared.ErrInvalidCredentials.WithOp("LoginStudent")
		}
		return nil, err
	}

	g.log.Info("student logged in", logger.Role(string(RoleStudent)), logger.StudentID(s.ID))
	return newSession(RoleStudent, s.ID), nil
}
