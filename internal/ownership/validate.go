// Package ownership holds the pure invariant checks of the IP ownership
// ledger: full-split validation and temporal segment-sum verification.
// Nothing in this package touches storage.
package ownership

import (
	"fmt"

	"github.com/feral-file/ff-ip-ledger/internal/domain"
)

// ValidateSplit checks a candidate full ownership split for one asset.
// The split must be non-empty, every share positive, creators unique, and
// the shares must sum to exactly 10000 bps.
func ValidateSplit(splits []domain.Split) error {
	if len(splits) == 0 {
		return fmt.Errorf("%w: split is empty", domain.ErrInvalidSplit)
	}

	seen := make(map[string]struct{}, len(splits))
	var total int64
	for _, s := range splits {
		if s.CreatorID == "" {
			return fmt.Errorf("%w: split entry is missing creator_id", domain.ErrInvalidSplit)
		}
		if s.ShareBps <= 0 {
			return fmt.Errorf("%w: share for creator %s must be positive, got %d bps",
				domain.ErrInvalidSplit, s.CreatorID, s.ShareBps)
		}
		if _, dup := seen[s.CreatorID]; dup {
			return fmt.Errorf("%w: creator %s appears more than once", domain.ErrInvalidSplit, s.CreatorID)
		}
		seen[s.CreatorID] = struct{}{}
		total += int64(s.ShareBps)
	}

	if total != domain.TotalShareBps {
		return fmt.Errorf("%w: split sums to %d of required %d bps",
			domain.ErrInvalidSplit, total, domain.TotalShareBps)
	}

	return nil
}
