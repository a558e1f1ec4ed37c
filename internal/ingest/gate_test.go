package ingest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
)

func validTxn() contracts.RawTransaction {
	return contracts.RawTransaction{
		OriginalCustomerID: "592",
		CustomerName:       "Acme Trading",
		EntityKey:          "SKU-1",
		Category:           "Cement",
		InvoiceID:          "INV-1",
		OrderDate:          time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC),
		Quantity:           10,
		UnitPrice:          25.5,
		Region:             contracts.RegionGauteng,
	}
}

func TestGate_Check(t *testing.T) {
	gate := NewGate(zerolog.Nop())

	tests := []struct {
		name    string
		mutate  func(*contracts.RawTransaction)
		field   string
		wantErr bool
	}{
		{"valid", func(*contracts.RawTransaction) {}, "", false},
		{"zero quantity allowed", func(tx *contracts.RawTransaction) { tx.Quantity = 0 }, "", false},
		{"negative quantity", func(tx *contracts.RawTransaction) { tx.Quantity = -3 }, "quantity", true},
		{"NaN quantity", func(tx *contracts.RawTransaction) { tx.Quantity = math.NaN() }, "quantity", true},
		{"Inf price", func(tx *contracts.RawTransaction) { tx.UnitPrice = math.Inf(1) }, "unit_price", true},
		{"NaN price", func(tx *contracts.RawTransaction) { tx.UnitPrice = math.NaN() }, "unit_price", true},
		{"missing sku", func(tx *contracts.RawTransaction) { tx.EntityKey = "" }, "entity_key", true},
		{"missing date", func(tx *contracts.RawTransaction) { tx.OrderDate = time.Time{} }, "order_date", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := validTxn()
			tt.mutate(&tx)

			err := gate.Check(7, tx)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, contracts.ErrMalformedRecord))

			var mre *contracts.MalformedRecordError
			require.True(t, errors.As(err, &mre))
			assert.Equal(t, 7, mre.Row)
			assert.Equal(t, tt.field, mre.Field)
		})
	}
}

func TestGate_Filter(t *testing.T) {
	gate := NewGate(zerolog.Nop())

	good := validTxn()
	negative := validTxn()
	negative.Quantity = -1
	nan := validTxn()
	nan.UnitPrice = math.NaN()

	accepted, rejected := gate.Filter(context.Background(), []contracts.RawTransaction{good, negative, good, nan})

	assert.Len(t, accepted, 2)
	require.Len(t, rejected, 2)

	var mre *contracts.MalformedRecordError
	require.True(t, errors.As(rejected[0], &mre))
	assert.Equal(t, 2, mre.Row)
	require.True(t, errors.As(rejected[1], &mre))
	assert.Equal(t, 4, mre.Row)
}

func TestGate_FilterCancelled(t *testing.T) {
	gate := NewGate(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	accepted, rejected := gate.Filter(ctx, []contracts.RawTransaction{validTxn()})
	assert.Empty(t, accepted)
	require.Len(t, rejected, 1)
	assert.ErrorIs(t, rejected[0], context.Canceled)
}
