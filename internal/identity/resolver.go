package identity

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
)

// FallbackPrefix marks entity keys that fell back to the raw ID (never collides with a master ID)
const FallbackPrefix = "raw:"

// Resolver maps raw customer IDs to dense master IDs
// ⭐ SSOT: master_customer_id 발급은 Resolver 컨텍스트에서만 (전역 카운터 없음)
//
// Build는 단일 barrier. 이후 Resolve 계열은 읽기 전용이며 동시 호출 가능.
type Resolver struct {
	mu     sync.RWMutex
	byName map[string]int64   // normalized name → master
	byRaw  map[string]int64   // raw id → master
	names  map[int64]string   // master → normalized name
	raws   map[int64][]string // master → raw ids
	nextID int64

	appended  []string // raw ids mapped during this run (not seeded)
	fallbacks atomic.Int64
	log       zerolog.Logger
}

// NewResolver creates an empty resolver context
func NewResolver(log zerolog.Logger) *Resolver {
	return &Resolver{
		byName: make(map[string]int64),
		byRaw:  make(map[string]int64),
		names:  make(map[int64]string),
		raws:   make(map[int64][]string),
		nextID: 1,
		log:    log.With().Str("component", "identity.resolver").Logger(),
	}
}

// Seed loads identities persisted by earlier runs. Seeded mappings are never changed.
func (r *Resolver) Seed(existing []contracts.CustomerIdentity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ident := range existing {
		if ident.MasterCustomerID < 1 {
			return fmt.Errorf("seed: invalid master_customer_id %d", ident.MasterCustomerID)
		}
		for _, raw := range ident.OriginalIDs {
			if prev, ok := r.byRaw[raw]; ok && prev != ident.MasterCustomerID {
				return fmt.Errorf("seed: raw id %q mapped to both %d and %d", raw, prev, ident.MasterCustomerID)
			}
			r.attach(raw, ident.MasterCustomerID)
		}
		r.names[ident.MasterCustomerID] = ident.CustomerName
		if ident.CustomerName != "" {
			if _, ok := r.byName[ident.CustomerName]; !ok {
				r.byName[ident.CustomerName] = ident.MasterCustomerID
			}
		}
		if ident.MasterCustomerID >= r.nextID {
			r.nextID = ident.MasterCustomerID + 1
		}
	}

	r.log.Info().
		Int("identities", len(existing)).
		Int64("next_id", r.nextID).
		Msg("resolver seeded")

	return nil
}

// Build groups raw IDs by normalized name. pairs must be ordered by first appearance;
// master IDs follow that order, so the same input always yields the same IDs.
func (r *Resolver) Build(pairs []contracts.IdentityPair) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var skipped, merged, created int
	for _, p := range pairs {
		raw := NormalizeRawID(p.OriginalID)
		if raw == "" {
			skipped++
			continue
		}
		key := NormalizeName(p.Name)

		if master, ok := r.byRaw[raw]; ok {
			// append-only: 기존 매핑은 이름이 바뀌어도 유지
			if key != "" && r.names[master] != key {
				r.log.Debug().
					Str("original_id", raw).
					Str("name", key).
					Int64("master_id", master).
					Msg("name drift ignored for mapped id")
			}
			continue
		}

		if key != "" {
			if master, ok := r.byName[key]; ok {
				r.attach(raw, master)
				r.appended = append(r.appended, raw)
				merged++
				continue
			}
		}

		master := r.nextID
		r.nextID++
		r.names[master] = key
		if key != "" {
			r.byName[key] = master
		}
		r.attach(raw, master)
		r.appended = append(r.appended, raw)
		created++
	}

	r.log.Info().
		Int("pairs", len(pairs)).
		Int("created", created).
		Int("merged", merged).
		Int("skipped_blank_id", skipped).
		Int("masters", len(r.raws)).
		Msg("identity build completed")
}

func (r *Resolver) attach(raw string, master int64) {
	r.byRaw[raw] = master
	r.raws[master] = append(r.raws[master], raw)
}

// Resolve returns the master ID of a raw ID or ErrUnknownIdentity
func (r *Resolver) Resolve(originalID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	master, ok := r.byRaw[NormalizeRawID(originalID)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", contracts.ErrUnknownIdentity, originalID)
	}
	return master, nil
}

// ResolveOrRaw returns the master ID as an entity key, or falls back to the
// raw ID (prefixed) when it is unknown. Never fails.
func (r *Resolver) ResolveOrRaw(originalID string) string {
	master, err := r.Resolve(originalID)
	if err != nil {
		r.fallbacks.Add(1)
		return FallbackPrefix + NormalizeRawID(originalID)
	}
	return MasterKey(master)
}

// Apply returns a copy of txns with OriginalCustomerID replaced by the master key
func (r *Resolver) Apply(txns []contracts.RawTransaction) []contracts.RawTransaction {
	before := r.fallbacks.Load()

	out := make([]contracts.RawTransaction, len(txns))
	for i, t := range txns {
		// 고객 ID 없는 행은 그대로 둠 (customer 레벨에서 제외됨)
		if NormalizeRawID(t.OriginalCustomerID) != "" {
			t.OriginalCustomerID = r.ResolveOrRaw(t.OriginalCustomerID)
		}
		out[i] = t
	}

	if n := r.fallbacks.Load() - before; n > 0 {
		r.log.Warn().
			Int64("fallbacks", n).
			Int("transactions", len(txns)).
			Msg("unknown customer ids kept as their own master")
	}
	return out
}

// Fallbacks returns how many lookups fell back to the raw ID
func (r *Resolver) Fallbacks() int64 {
	return r.fallbacks.Load()
}

// MasterCount returns the number of master entities
func (r *Resolver) MasterCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.raws)
}

// RawCount returns the number of distinct raw IDs mapped
func (r *Resolver) RawCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byRaw)
}

// Identities returns every identity ordered by master ID
func (r *Resolver) Identities() []contracts.CustomerIdentity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.identitiesFor(nil)
}

// Appended returns only the mappings created since Seed, grouped by master
func (r *Resolver) Appended() []contracts.CustomerIdentity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	only := make(map[string]bool, len(r.appended))
	for _, raw := range r.appended {
		only[raw] = true
	}
	return r.identitiesFor(only)
}

func (r *Resolver) identitiesFor(only map[string]bool) []contracts.CustomerIdentity {
	masters := make([]int64, 0, len(r.raws))
	for id := range r.raws {
		masters = append(masters, id)
	}
	sort.Slice(masters, func(i, j int) bool { return masters[i] < masters[j] })

	out := make([]contracts.CustomerIdentity, 0, len(masters))
	for _, id := range masters {
		var ids []string
		for _, raw := range r.raws[id] {
			if only == nil || only[raw] {
				ids = append(ids, raw)
			}
		}
		if len(ids) == 0 {
			continue
		}
		sort.Strings(ids)
		out = append(out, contracts.CustomerIdentity{
			MasterCustomerID: id,
			CustomerName:     r.names[id],
			OriginalIDs:      ids,
		})
	}
	return out
}

// MasterKey formats a master ID as a customer-level entity key
func MasterKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
