package ingest

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
)

func TestReadCSV(t *testing.T) {
	input := strings.Join([]string{
		"Customer ID,Customer Name,SKU,Category,Invoice,Date,Qty,Price,Region",
		"592,Acme Trading,SKU-1,Cement,INV-1,2025-03-04,10,\"1,250.50\",acwgt",
		"HB_CUT001,ACME TRADING,SKU-2,Paint,INV-2,2025/03/05,4,12,ACWCP",
		",,,,,,,,",
		"593,Beta,SKU-1,Cement,INV-3,not-a-date,1,1,ACWGE",
		"594,Gamma,SKU-3,Cement,INV-4,2025-03-06,many,1,ACWGE",
	}, "\n")

	txns, bad, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, txns, 2)
	require.Len(t, bad, 2)

	first := txns[0]
	assert.Equal(t, "592", first.OriginalCustomerID)
	assert.Equal(t, "SKU-1", first.EntityKey)
	assert.Equal(t, 1250.50, first.UnitPrice)
	assert.Equal(t, contracts.RegionGauteng, first.Region)
	assert.Equal(t, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), first.OrderDate)

	assert.Equal(t, "HB_CUT001", txns[1].OriginalCustomerID)

	var mre *contracts.MalformedRecordError
	require.True(t, errors.As(bad[0], &mre))
	assert.Equal(t, "order_date", mre.Field)
	assert.Equal(t, 5, mre.Row)
	require.True(t, errors.As(bad[1], &mre))
	assert.Equal(t, "quantity", mre.Field)
}

func TestReadCSV_MissingColumns(t *testing.T) {
	_, _, err := ReadCSV(strings.NewReader("customer,name\n1,2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entity_key")
}

func TestReadCSV_Empty(t *testing.T) {
	_, _, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestReadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"customer_id", "customer_name", "sku", "category", "invoice_id", "order_date", "quantity", "unit_price", "region"},
		{"592", "Acme", "SKU-1", "Cement", "INV-1", "2025-01-06", "3", "10", "ACWPK"},
		{"593", "Beta", "SKU-2", "Paint", "INV-2", "2025-01-07", "2", "5", "ACWHW"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	txns, bad, err := ReadXLSX(path, "")
	require.NoError(t, err)
	assert.Empty(t, bad)
	require.Len(t, txns, 2)
	assert.Equal(t, contracts.RegionPolokwane, txns[0].Region)
	assert.Equal(t, 3.0, txns[0].Quantity)
	assert.Equal(t, contracts.YearWeek{Year: 2025, Week: 2}, txns[1].YearWeek())
}

func TestReadXLSX_MissingFile(t *testing.T) {
	_, _, err := ReadXLSX(filepath.Join(t.TempDir(), "nope.xlsx"), "")
	assert.Error(t, err)
}

func TestParseDate_ExcelSerial(t *testing.T) {
	got, err := parseDate("45658")
	require.NoError(t, err)
	assert.Equal(t, 2025, got.Year())
	assert.Equal(t, time.January, got.Month())
	assert.Equal(t, 1, got.Day())
}
