package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "test")
	t.Setenv("GRADEBOOK_TEACHER_SECRET", "s3cret")
	t.Setenv("GRADEBOOK_TEACHER_SECRET_HASH", "")
	t.Setenv("GRADEBOOK_SECRET", "")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("DATABASE_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "error")
}

func execute(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCommand(strings.NewReader(input), &out, &errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestOneShot_TeacherRoster(t *testing.T) {
	setTestEnv(t)

	out, err := execute(t, "", "roster", "--secret", "s3cret")
	require.NoError(t, err)
	assert.Contains(t, out, "Roster · All")
	assert.Contains(t, out, "s1")
}

func TestOneShot_SecretFromEnv(t *testing.T) {
	setTestEnv(t)
	t.Setenv("GRADEBOOK_SECRET", "s3cret")

	out, err := execute(t, "", "leaderboard", "--grade", "8")
	require.NoError(t, err)
	assert.Contains(t, out, "Leaderboard")
}

func TestOneShot_RequiresCredentials(t *testing.T) {
	setTestEnv(t)

	_, err := execute(t, "", "dashboard")
	var ee *exitErr
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 2, ee.code)

	_, err = execute(t, "", "dashboard", "--secret", "wrong")
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 2, ee.code)
}

func TestOneShot_StudentCannotSeeDashboard(t *testing.T) {
	setTestEnv(t)

	_, err := execute(t, "", "dashboard", "--student", "s1")
	var ee *exitErr
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 2, ee.code)

	out, err := execute(t, "", "show", "--student", "S1")
	require.NoError(t, err)
	assert.Contains(t, out, "(s1)")
}

func TestOneShot_VerifyWithoutMirror(t *testing.T) {
	setTestEnv(t)

	_, err := execute(t, "", "verify", "--secret", "s3cret")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestShell_RunsUntilQuit(t *testing.T) {
	setTestEnv(t)

	out, err := execute(t, "login teacher s3cret\nselect s1\nbadge add helper\nquit\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Type help for commands")
	assert.Contains(t, out, "logged in as teacher")
}

func TestMigrate_RequiresDatabaseURL(t *testing.T) {
	setTestEnv(t)
	t.Setenv("DATABASE_URL", "")

	_, err := execute(t, "", "migrate")
	var ee *exitErr
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 2, ee.code)
}
