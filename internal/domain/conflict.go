package domain

import (
	"fmt"
	"time"
)

// TimeRange is a half-open interval [Start, End) optionally tied to a record.
type TimeRange struct {
	ID    string    `json:"id,omitempty"`
	Label string    `json:"label,omitempty"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (r TimeRange) String() string {
	label := r.Label
	if label == "" {
		label = r.ID
	}
	span := fmt.Sprintf("%s..%s", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
	if label == "" {
		return span
	}
	return fmt.Sprintf("%s (%s)", label, span)
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) share any instant.
// Ranges that only touch at an endpoint do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// FindConflicts returns every range in existing that overlaps candidate, in input order.
// A range whose ID equals excludeID is skipped; pass "" to check against all ranges.
func FindConflicts(candidate TimeRange, existing []TimeRange, excludeID string) []TimeRange {
	var out []TimeRange
	for _, r := range existing {
		if excludeID != "" && r.ID == excludeID {
			continue
		}
		if Overlaps(candidate.Start, candidate.End, r.Start, r.End) {
			out = append(out, r)
		}
	}
	return out
}
