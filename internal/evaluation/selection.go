package evaluation

import (
	"sort"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
)

// SelectBest picks, per entity, the model with the lowest WMAPE.
// Ties go to the earlier result. Entities without any WMAPE get no selection.
func SelectBest(results []*Result) []contracts.ModelSelection {
	type key struct {
		level contracts.Level
		id    string
	}
	best := make(map[key]*contracts.ModelSelection)

	for _, res := range results {
		for _, rep := range res.Reports {
			if rep.Scope != contracts.ScopeEntity || rep.WMAPE == nil {
				continue
			}
			k := key{rep.Level, rep.Key}
			cur, ok := best[k]
			if !ok {
				best[k] = &contracts.ModelSelection{
					Level:    rep.Level,
					EntityID: rep.Key,
					ModelTag: rep.ModelTag,
					WMAPE:    contracts.Float(*rep.WMAPE),
					Runners:  1,
				}
				continue
			}
			cur.Runners++
			if *rep.WMAPE < *cur.WMAPE {
				cur.ModelTag = rep.ModelTag
				cur.WMAPE = contracts.Float(*rep.WMAPE)
			}
		}
	}

	out := make([]contracts.ModelSelection, 0, len(best))
	for _, sel := range best {
		out = append(out, *sel)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		return out[i].EntityID < out[j].EntityID
	})
	return out
}

// Wins counts selections per model tag
func Wins(selections []contracts.ModelSelection) map[string]int {
	out := make(map[string]int)
	for _, s := range selections {
		out[s.ModelTag]++
	}
	return out
}
