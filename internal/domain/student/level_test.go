package student

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelOf(t *testing.T) {
	tests := []struct {
		xp        XP
		wantLevel Level
		wantNext  XP
	}{
		{0, 1, 1000},
		{999, 1, 1000},
		{1000, 2, 2000},
		{1999, 2, 2000},
		{4500, 5, 5000},
		{4550, 5, 5000},
		{12000, 13, 13000},
	}

	for _, tt := range tests {
		level, next := LevelOf(tt.xp)
		assert.Equal(t, tt.wantLevel, level, "xp=%d", tt.xp)
		assert.Equal(t, tt.wantNext, next, "xp=%d", tt.xp)
	}
}

func TestLevelOf_Formula(t *testing.T) {
	for xp := XP(0); xp <= 25000; xp += 37 {
		level, next := LevelOf(xp)
		assert.Equal(t, Level(int(xp)/1000+1), level)
		assert.Equal(t, XP(int(level)*1000), next)
	}
}

func TestProgressInLevel(t *testing.T) {
	within, frac := ProgressInLevel(4550)
	assert.Equal(t, XP(550), within)
	assert.InDelta(t, 0.55, frac, 1e-9)

	within, frac = ProgressInLevel(-20)
	assert.Equal(t, XP(0), within)
	assert.Zero(t, frac)
}
