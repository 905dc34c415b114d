package ownership

import (
	"fmt"
	"sort"
	"time"

	"github.com/feral-file/ff-ip-ledger/internal/domain"
)

// maxInstant stands in for "active indefinitely" when collecting segment
// boundaries. Postgres timestamptz cannot represent anything near it, so no
// real end date collides with it.
var maxInstant = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)

// Interval is the time coverage and weight of one ownership record.
// Coverage is half-open [Start, End); a nil End means active indefinitely.
type Interval struct {
	RecordID string
	ShareBps int32
	Start    time.Time
	End      *time.Time
}

func (iv Interval) end() time.Time {
	if iv.End == nil {
		return maxInstant
	}
	return *iv.End
}

// covers reports whether the interval fully covers the segment [from, to).
// Boundaries are drawn from interval endpoints, so an interval either
// covers a segment entirely or not at all.
func (iv Interval) covers(from, to time.Time) bool {
	return !iv.Start.After(from) && !iv.end().Before(to)
}

// ValidateTemporal verifies that no time segment across the union of
// existing and candidate intervals carries more than 10000 bps.
//
// Every start and end instant is collected into a sorted, de-duplicated
// boundary list; consecutive boundaries form half-open segments, and the
// shares of all intervals covering a segment are summed. Pairwise overlap
// checks miss multi-way overlaps; per-segment arithmetic is exact for
// arbitrary overlap patterns in O(n log n).
//
// Segments totaling below 10000 bps are allowed: coverage gaps before an
// asset's first assignment (or after a dispute removal) are legal.
func ValidateTemporal(candidate []Interval, existing []Interval) error {
	all := make([]Interval, 0, len(candidate)+len(existing))
	all = append(all, existing...)
	all = append(all, candidate...)
	if len(all) == 0 {
		return nil
	}

	boundaries := make([]time.Time, 0, len(all)*2)
	for _, iv := range all {
		boundaries = append(boundaries, iv.Start, iv.end())
	}

	sort.Slice(boundaries, func(i, j int) bool { return boundaries[i].Before(boundaries[j]) })
	boundaries = dedupe(boundaries)

	for i := 0; i+1 < len(boundaries); i++ {
		from, to := boundaries[i], boundaries[i+1]

		var total int64
		for _, iv := range all {
			if iv.covers(from, to) {
				total += int64(iv.ShareBps)
			}
		}

		if total > domain.TotalShareBps {
			return fmt.Errorf("%w: shares active at %s sum to %d bps, exceeding %d",
				domain.ErrOwnershipConflict, from.UTC().Format(time.RFC3339Nano), total, domain.TotalShareBps)
		}
	}

	return nil
}

func dedupe(ts []time.Time) []time.Time {
	out := ts[:0]
	for i, t := range ts {
		if i == 0 || !t.Equal(out[len(out)-1]) {
			out = append(out, t)
		}
	}
	return out
}
