package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeHealer struct {
	ran   bool
	err   error
	calls int
}

func (f *fakeHealer) Heal(context.Context) (bool, error) {
	f.calls++
	return f.ran, f.err
}

func TestHealMirrorJob(t *testing.T) {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := &fakeHealer{ran: true}
	job := NewHealMirrorJob(h, quiet)
	assert.Equal(t, "heal_mirror", job.Name())
	assert.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, h.calls)

	h.err = errors.New("still down")
	assert.EqualError(t, job.Run(context.Background()), "still down")
}
