package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
)

// TransactionsTable holds every accepted invoice line
const TransactionsTable = "demand.transactions"

var transactionsIdent = pgx.Identifier{"demand", "transactions"}

// Repository reads and appends TransactionsTable
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository 새 저장소 생성
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LoadTransactions returns transactions with from ≤ order_date < to.
// A zero bound is open.
func (r *Repository) LoadTransactions(ctx context.Context, from, to time.Time) ([]contracts.RawTransaction, error) {
	query := `
		SELECT original_customer_id, customer_name, entity_key, category,
		       invoice_id, order_date, quantity, unit_price, region
		FROM ` + TransactionsTable + `
		WHERE ($1::date IS NULL OR order_date >= $1)
		  AND ($2::date IS NULL OR order_date < $2)
		ORDER BY order_date, id`

	rows, err := r.pool.Query(ctx, query, nullableDate(from), nullableDate(to))
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txns []contracts.RawTransaction
	for rows.Next() {
		var t contracts.RawTransaction
		if err := rows.Scan(
			&t.OriginalCustomerID, &t.CustomerName, &t.EntityKey, &t.Category,
			&t.InvoiceID, &t.OrderDate, &t.Quantity, &t.UnitPrice, &t.Region,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	return txns, nil
}

// AppendTransactions bulk-loads accepted rows with COPY
func (r *Repository) AppendTransactions(ctx context.Context, txns []contracts.RawTransaction) (int64, error) {
	if len(txns) == 0 {
		return 0, nil
	}

	columns := []string{
		"original_customer_id", "customer_name", "entity_key", "category",
		"invoice_id", "order_date", "quantity", "unit_price", "region",
	}

	n, err := r.pool.CopyFrom(ctx,
		transactionsIdent,
		columns,
		pgx.CopyFromSlice(len(txns), func(i int) ([]any, error) {
			t := txns[i]
			return []any{
				t.OriginalCustomerID, t.CustomerName, t.EntityKey, t.Category,
				t.InvoiceID, t.OrderDate, t.Quantity, t.UnitPrice, t.Region,
			}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copy transactions: %w", err)
	}
	return n, nil
}

func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
