package linker

import (
	"context"

	"github.com/CPatchane/cozy-konnector-libs/internal/models"
	"github.com/CPatchane/cozy-konnector-libs/internal/store"
)

// fetchNeighboringOperations returns the candidate operations whose date
// falls within the asymmetric window around the bill's reference date. The
// window is (ref - MinDateDelta days, ref + MaxDateDelta days) with both
// bounds exclusive, anchored on midnight UTC of the reference date. The
// operations come back in store order; the matchers rely on that order for
// first-match semantics, so no re-sorting happens here.
func (s *Service) fetchNeighboringOperations(ctx context.Context, bill *models.Bill) ([]*models.Operation, error) {
	ref := models.MidnightUTC(bill.ReferenceDate())

	selector := store.Selector{
		Date: store.DateRange{
			GreaterThan: ref.AddDate(0, 0, -s.options.MinDateDelta),
			LessThan:    ref.AddDate(0, 0, s.options.MaxDateDelta),
		},
	}

	return s.store.Query(ctx, s.dateIndex, selector)
}
