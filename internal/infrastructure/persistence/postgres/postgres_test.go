package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/gradebook/internal/domain/student"
)

type execCall struct {
	sql  string
	args []interface{}
}

// recordingDB captures Exec calls; queries are not supported.
type recordingDB struct {
	calls []execCall
	err   error
}

func (d *recordingDB) Exec(_ context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	d.calls = append(d.calls, execCall{sql: sql, args: args})
	if d.err != nil {
		return pgconn.CommandTag{}, d.err
	}
	return pgconn.NewCommandTag("DELETE 1"), nil
}

func (d *recordingDB) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	return nil, errors.New("not supported")
}

func (d *recordingDB) QueryRow(context.Context, string, ...interface{}) pgx.Row {
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConfig_DSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Password = "secret"

	dsn := cfg.DSN()
	assert.Contains(t, dsn, "host=localhost")
	assert.Contains(t, dsn, "port=5432")
	assert.Contains(t, dsn, "dbname=gradebook")
	assert.Contains(t, dsn, "password=secret")
	assert.Contains(t, dsn, "connect_timeout=5")

	cfg.URL = "postgres://u:p@db:5433/grades?sslmode=disable"
	assert.Equal(t, cfg.URL, cfg.DSN())
}

func TestConfig_PoolConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Password = "secret"
	cfg.MaxConns = 7
	cfg.MaxConnLifetime = 10 * time.Minute

	pool, err := cfg.PoolConfig()
	require.NoError(t, err)
	assert.Equal(t, int32(7), pool.MaxConns)
	assert.Equal(t, 10*time.Minute, pool.MaxConnLifetime)
	assert.Equal(t, "gradebook", pool.ConnConfig.Database)
}

func TestConfig_PoolConfigRejectsGarbage(t *testing.T) {
	cfg := Config{URL: "postgres://%zz"}
	_, err := cfg.PoolConfig()
	assert.Error(t, err)
}

func TestMigrations_OrderedAndComplete(t *testing.T) {
	migs := Migrations()
	require.NotEmpty(t, migs)
	for i, m := range migs {
		assert.Equal(t, i+1, m.Version)
		assert.NotEmpty(t, m.Name)
		assert.NotEmpty(t, strings.TrimSpace(m.UpSQL))
		assert.NotEmpty(t, strings.TrimSpace(m.DownSQL))
	}
	assert.Contains(t, migs[0].UpSQL, "CREATE TABLE IF NOT EXISTS xp_journal")

	for _, m := range migs {
		assert.NotContains(t, m.UpSQL, "CHECK", m.Name)
	}
	assert.Contains(t, migs[len(migs)-1].UpSQL, "DROP CONSTRAINT IF EXISTS xp_journal_non_negative")
}

func TestXPJournal_Append(t *testing.T) {
	db := &recordingDB{}
	j := NewXPJournal(db, quietLogger())
	at := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	err := j.Append(context.Background(), student.XPChange{
		StudentID:     "s1",
		OldXP:         4500,
		NewXP:         5100,
		OldLevel:      5,
		NewLevel:      6,
		Reason:        student.XPReasonScoreCreated,
		EventID:       "t9",
		CorrelationID: "act-1",
		At:            at,
	})
	require.NoError(t, err)

	require.Len(t, db.calls, 1)
	assert.Equal(t, insertXPChangeSQL, db.calls[0].sql)
	assert.Equal(t, []interface{}{"s1", 4500, 5100, 5, 6, "score_created", "t9", "act-1", at}, db.calls[0].args)
}

func TestXPJournal_AppendNegativeXP(t *testing.T) {
	db := &recordingDB{}
	j := NewXPJournal(db, quietLogger())
	at := time.Date(2024, 1, 11, 9, 0, 0, 0, time.UTC)

	err := j.Append(context.Background(), student.XPChange{
		StudentID: "s1",
		OldXP:     0,
		NewXP:     -80,
		OldLevel:  1,
		NewLevel:  1,
		Reason:    student.XPReasonScoreUpdated,
		EventID:   "t1",
		At:        at,
	})
	require.NoError(t, err)

	require.Len(t, db.calls, 1)
	assert.Equal(t, insertXPChangeSQL, db.calls[0].sql)
	assert.Equal(t, []interface{}{"s1", 0, -80, 1, 1, "score_updated", "t1", "", at}, db.calls[0].args)
}

func TestXPJournal_AppendStampsMissingTime(t *testing.T) {
	db := &recordingDB{}
	j := NewXPJournal(db, quietLogger())

	require.NoError(t, j.Append(context.Background(), student.XPChange{StudentID: "s1"}))
	at, ok := db.calls[0].args[8].(time.Time)
	require.True(t, ok)
	assert.False(t, at.IsZero())
}

func TestXPJournal_AppendWrapsError(t *testing.T) {
	boom := errors.New("boom")
	j := NewXPJournal(&recordingDB{err: boom}, quietLogger())

	err := j.Append(context.Background(), student.XPChange{StudentID: "s2"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "s2")
}

func TestXPJournal_Forget(t *testing.T) {
	db := &recordingDB{}
	j := NewXPJournal(db, quietLogger())

	j.Forget("s3")
	require.Len(t, db.calls, 1)
	assert.Equal(t, forgetStudentSQL, db.calls[0].sql)
	assert.Equal(t, []interface{}{"s3"}, db.calls[0].args)

	// errors are swallowed
	failing := NewXPJournal(&recordingDB{err: errors.New("down")}, quietLogger())
	assert.NotPanics(t, func() { failing.Forget("s3") })
}

func TestXPJournal_ListPropagatesQueryError(t *testing.T) {
	j := NewXPJournal(&recordingDB{}, quietLogger())
	_, err := j.ListByStudent(context.Background(), "s1", 5)
	assert.Error(t, err)
}
