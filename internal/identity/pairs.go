package identity

import (
	"sort"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
)

// PairsFromTransactions extracts one pair per raw ID, ordered by first appearance
// (earliest order date, then input position). The name used is the one on the
// earliest line of that ID.
func PairsFromTransactions(txns []contracts.RawTransaction) []contracts.IdentityPair {
	type seen struct {
		pair  contracts.IdentityPair
		index int
	}

	first := make(map[string]*seen)
	for i, t := range txns {
		raw := NormalizeRawID(t.OriginalCustomerID)
		if raw == "" {
			continue
		}
		s, ok := first[raw]
		if !ok {
			first[raw] = &seen{
				pair:  contracts.IdentityPair{OriginalID: raw, Name: t.CustomerName, FirstSeen: t.OrderDate},
				index: i,
			}
			continue
		}
		if t.OrderDate.Before(s.pair.FirstSeen) {
			s.pair.FirstSeen = t.OrderDate
			s.pair.Name = t.CustomerName
			s.index = i
		}
	}

	ordered := make([]*seen, 0, len(first))
	for _, s := range first {
		ordered = append(ordered, s)
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.pair.FirstSeen.Equal(b.pair.FirstSeen) {
			return a.pair.FirstSeen.Before(b.pair.FirstSeen)
		}
		return a.index < b.index
	})

	pairs := make([]contracts.IdentityPair, len(ordered))
	for i, s := range ordered {
		pairs[i] = s.pair
	}
	return pairs
}
