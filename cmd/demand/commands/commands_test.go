package commands

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
	"github.com/jorge-redcloud/demand-planning/internal/ingest"
)

func TestHelpNamesTransactionsTable(t *testing.T) {
	assert.Contains(t, runCmd.Long, ingest.TransactionsTable)
	assert.Contains(t, ingestCmd.Long, ingest.TransactionsTable)
	assert.Contains(t, ingestLoadCmd.Short, ingest.TransactionsTable)

	for _, c := range []*cobra.Command{runCmd, evaluateCmd} {
		flag := c.Flags().Lookup("file")
		require.NotNil(t, flag, c.Name())
		assert.Contains(t, flag.Usage, ingest.TransactionsTable, c.Name())
	}
}

func TestParseLevels(t *testing.T) {
	levels, err := parseLevels([]string{"sku", "customer"})
	require.NoError(t, err)
	assert.Equal(t, []contracts.Level{contracts.LevelSKU, contracts.LevelCustomer}, levels)

	levels, err = parseLevels(nil)
	require.NoError(t, err)
	assert.Empty(t, levels)

	_, err = parseLevels([]string{"region"})
	assert.Error(t, err)
}
