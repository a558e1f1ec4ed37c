package identity

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
)

// Repository persists customer_identity (append-only)
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository 새 저장소 생성
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LoadIdentities reads every mapping grouped by master ID
func (r *Repository) LoadIdentities(ctx context.Context) ([]contracts.CustomerIdentity, error) {
	query := `
		SELECT master_customer_id, customer_name, original_customer_id
		FROM demand.customer_identity
		ORDER BY master_customer_id, original_customer_id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query customer_identity: %w", err)
	}
	defer rows.Close()

	byMaster := make(map[int64]*contracts.CustomerIdentity)
	for rows.Next() {
		var master int64
		var name, raw string
		if err := rows.Scan(&master, &name, &raw); err != nil {
			return nil, fmt.Errorf("scan customer_identity: %w", err)
		}
		ident, ok := byMaster[master]
		if !ok {
			ident = &contracts.CustomerIdentity{MasterCustomerID: master, CustomerName: name}
			byMaster[master] = ident
		}
		ident.OriginalIDs = append(ident.OriginalIDs, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customer_identity: %w", err)
	}

	out := make([]contracts.CustomerIdentity, 0, len(byMaster))
	for _, ident := range byMaster {
		out = append(out, *ident)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MasterCustomerID < out[j].MasterCustomerID })
	return out, nil
}

// AppendIdentities inserts new raw → master mappings.
// Existing rows are left untouched (ON CONFLICT DO NOTHING).
func (r *Repository) AppendIdentities(ctx context.Context, identities []contracts.CustomerIdentity) error {
	if len(identities) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO demand.customer_identity (original_customer_id, master_customer_id, customer_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (original_customer_id) DO NOTHING`

	queued := 0
	for _, ident := range identities {
		for _, raw := range ident.OriginalIDs {
			batch.Queue(query, raw, ident.MasterCustomerID, ident.CustomerName)
			queued++
		}
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < queued; i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("append identity %d/%d: %w", i+1, queued, err)
		}
	}

	return nil
}
