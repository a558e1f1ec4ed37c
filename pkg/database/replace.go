package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Partition narrows a replace to the rows matching Where (e.g. "level = $1").
// An empty Where truncates the whole table.
type Partition struct {
	Where string
	Args  []any
}

// ReplaceRows swaps the contents of a table partition inside tx:
// delete the partition, then COPY rows in. Outputs are never upserted row by row.
// ⭐ SSOT: weekly_features / forecast_evaluation 쓰기는 항상 이 함수를 통해 전체 교체
func ReplaceRows(ctx context.Context, tx pgx.Tx, table pgx.Identifier, part Partition, columns []string, rows [][]any) (int64, error) {
	var err error
	if part.Where == "" {
		_, err = tx.Exec(ctx, "TRUNCATE TABLE "+table.Sanitize())
	} else {
		_, err = tx.Exec(ctx, "DELETE FROM "+table.Sanitize()+" WHERE "+part.Where, part.Args...)
	}
	if err != nil {
		return 0, fmt.Errorf("clear %s: %w", table.Sanitize(), err)
	}

	if len(rows) == 0 {
		return 0, nil
	}

	n, err := tx.CopyFrom(ctx, table, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", table.Sanitize(), err)
	}
	return n, nil
}
