// Package assemble puts the final rows into presentation order
package assemble

import (
	"sort"

	"ottscout/internal/core/catalog"
	dom "ottscout/internal/services/releases/domain"
)

// Order sorts rows in place: newest first, then stably by region rank and platform rank
// Rows sharing a region and platform therefore stay newest first
func Order(rows []dom.CanonicalRow, policy catalog.Policy) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].DateAdded.After(rows[j].DateAdded)
	})
	sort.SliceStable(rows, func(i, j int) bool {
		ri, rj := policy.RegionRank(rows[i].Region), policy.RegionRank(rows[j].Region)
		if ri != rj {
			return ri < rj
		}
		return policy.PlatformRank(rows[i].Platform) < policy.PlatformRank(rows[j].Platform)
	})
}
