package domain

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ts(day, hour int) time.Time {
	return time.Date(2025, 7, day, hour, 0, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name         string
		aStart, aEnd time.Time
		bStart, bEnd time.Time
		want         bool
	}{
		{"identical", ts(10, 10), ts(10, 18), ts(10, 10), ts(10, 18), true},
		{"partial overlap", ts(10, 10), ts(10, 18), ts(10, 12), ts(10, 20), true},
		{"contained", ts(10, 10), ts(10, 18), ts(10, 12), ts(10, 13), true},
		{"a ends when b starts", ts(10, 10), ts(10, 18), ts(10, 18), ts(10, 20), false},
		{"b ends when a starts", ts(10, 18), ts(10, 20), ts(10, 10), ts(10, 18), false},
		{"disjoint", ts(10, 10), ts(10, 12), ts(11, 10), ts(11, 12), false},
		{"multi day spans", ts(1, 0), ts(3, 0), ts(2, 23), ts(4, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd))
			assert.Equal(t, tt.want, Overlaps(tt.bStart, tt.bEnd, tt.aStart, tt.aEnd), "symmetry")
		})
	}
}

func TestOverlaps_Properties(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	base := ts(1, 0)
	randomRange := func() (time.Time, time.Time) {
		start := base.Add(time.Duration(rng.IntN(500)) * time.Hour)
		return start, start.Add(time.Duration(1+rng.IntN(72)) * time.Hour)
	}
	for range 1000 {
		aStart, aEnd := randomRange()
		bStart, bEnd := randomRange()

		assert.True(t, Overlaps(aStart, aEnd, aStart, aEnd))
		assert.Equal(t, Overlaps(aStart, aEnd, bStart, bEnd), Overlaps(bStart, bEnd, aStart, aEnd))
		if !aEnd.After(bStart) || !bEnd.After(aStart) {
			assert.False(t, Overlaps(aStart, aEnd, bStart, bEnd), "%s..%s vs %s..%s", aStart, aEnd, bStart, bEnd)
		}
	}
}

func TestFindConflicts(t *testing.T) {
	existing := []TimeRange{
		{ID: "ev-3", Start: ts(10, 16), End: ts(10, 22)},
		{ID: "ev-1", Start: ts(10, 10), End: ts(10, 18)},
		{ID: "ev-2", Start: ts(10, 20), End: ts(11, 2)},
		{ID: "ev-4", Start: ts(12, 10), End: ts(12, 12)},
	}
	candidate := TimeRange{Start: ts(10, 12), End: ts(10, 20)}

	t.Run("input order preserved", func(t *testing.T) {
		got := FindConflicts(candidate, existing, "")
		assert.Equal(t, []TimeRange{existing[0], existing[1]}, got)
	})
	t.Run("exclude by id", func(t *testing.T) {
		got := FindConflicts(candidate, existing, "ev-3")
		assert.Equal(t, []TimeRange{existing[1]}, got)
	})
	t.Run("no conflicts", func(t *testing.T) {
		assert.Empty(t, FindConflicts(TimeRange{Start: ts(12, 12), End: ts(12, 14)}, existing, ""))
	})
	t.Run("no existing ranges", func(t *testing.T) {
		assert.Empty(t, FindConflicts(candidate, nil, ""))
	})
	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, FindConflicts(candidate, existing, ""), FindConflicts(candidate, existing, ""))
	})
}

func TestConflictError(t *testing.T) {
	err := &ConflictError{
		Candidate: TimeRange{Label: "Sommerfest", Start: ts(10, 12), End: ts(10, 20)},
		Conflicts: []TimeRange{{ID: "ev-1", Label: "Hochzeit", Start: ts(10, 10), End: ts(10, 18)}},
	}
	assert.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "Hochzeit (2025-07-10T10:00:00Z..2025-07-10T18:00:00Z)")
}
