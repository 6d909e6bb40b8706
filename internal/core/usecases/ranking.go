package usecases

import (
	"sort"

	"github.com/samirrijal/ebtfinder/internal/core/domain"
)

// Rank orders results in place. In trending mode a higher trending score
// comes first; then incentive-program participants; then shorter distance
// (unknown distances last). Remaining ties keep input order.
func Rank(results []domain.RankedResult, trending bool) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := &results[i], &results[j]

		if trending {
			sa, sb := scoreOf(a), scoreOf(b)
			if sa != sb {
				return sa > sb
			}
		}

		ia, ib := a.Location.InIncentiveProgram(), b.Location.InIncentiveProgram()
		if ia != ib {
			return ia
		}

		switch {
		case a.DistanceMiles == nil && b.DistanceMiles == nil:
			return false
		case a.DistanceMiles == nil:
			return false
		case b.DistanceMiles == nil:
			return true
		default:
			return *a.DistanceMiles < *b.DistanceMiles
		}
	})
}

func scoreOf(r *domain.RankedResult) float64 {
	if r.TrendingScore == nil {
		return 0
	}
	return *r.TrendingScore
}
