package report

import (
	"sort"

	"ottscout/internal/core/catalog"
	dom "ottscout/internal/services/releases/domain"
)

// Count is the number of rows for one region and platform
type Count struct {
	Region   catalog.Region
	Platform catalog.Platform
	N        int
}

// Summarize counts rows per region and platform
// Regions follow the policy rank and platforms sort by name within a region
func Summarize(rows []dom.CanonicalRow, policy catalog.Policy) []Count {
	idx := map[[2]string]int{}
	var out []Count
	for _, r := range rows {
		k := [2]string{string(r.Region), string(r.Platform)}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, Count{Region: r.Region, Platform: r.Platform})
		}
		out[i].N++
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := policy.RegionRank(out[i].Region), policy.RegionRank(out[j].Region)
		if ri != rj {
			return ri < rj
		}
		if out[i].Region != out[j].Region {
			return out[i].Region < out[j].Region
		}
		return out[i].Platform < out[j].Platform
	})
	return out
}

// TopInRegion returns the first n rows of region, keeping order
func TopInRegion(rows []dom.CanonicalRow, region catalog.Region, n int) []dom.CanonicalRow {
	var out []dom.CanonicalRow
	for _, r := range rows {
		if len(out) == n {
			break
		}
		if r.Region == region {
			out = append(out, r)
		}
	}
	return out
}

// WithLanguage returns rows listing lang (a name or code), ordered by region rank then newest first
func WithLanguage(rows []dom.CanonicalRow, lang string, policy catalog.Policy) []dom.CanonicalRow {
	name := catalog.DisplayLanguage(lang)
	var out []dom.CanonicalRow
	for _, r := range rows {
		if r.HasLanguage(name) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DateAdded.After(out[j].DateAdded) })
	sort.SliceStable(out, func(i, j int) bool {
		return policy.RegionRank(out[i].Region) < policy.RegionRank(out[j].Region)
	})
	return out
}
