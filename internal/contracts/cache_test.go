package contracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huber0203/shioaji-gateway/internal/broker"
)

func testDirectory() *broker.Directory {
	dir := &broker.Directory{
		Stocks: broker.StockBoards{
			TSE: []broker.Contract{
				{Code: "2330", Name: "TSMC"},
				{Code: "030001", Name: "TSMC Call", Category: "Warrant"},
				{Name: "no code, skipped"},
			},
			OTC: []broker.Contract{
				{Code: "6488", Name: "GlobalWafers"},
			},
		},
		Futures: []broker.Contract{
			{Code: "TXFA4", Name: "TAIEX Futures"},
		},
		Options: []broker.Contract{
			{Code: "TXO18000A4", Name: "TAIEX Option"},
		},
	}
	dir.Reindex()
	return dir
}

func TestCachePopulate(t *testing.T) {
	c := NewCache()
	require.True(t, c.Populate(testDirectory()))
	require.True(t, c.Populated())

	// stock + warrant alias + OTC stock + futures + options
	assert.Equal(t, 6, c.Len())

	e, ok := c.Get("stock_2330")
	require.True(t, ok)
	assert.Equal(t, "TSE", e.Market)

	e, ok = c.Get("stock_6488")
	require.True(t, ok)
	assert.Equal(t, "OTC", e.Market)

	e, ok = c.Get("futures_TXFA4")
	require.True(t, ok)
	assert.Equal(t, "Futures", e.Market)

	e, ok = c.Get("options_TXO18000A4")
	require.True(t, ok)
	assert.Equal(t, "Options", e.Market)
}

func TestCacheWarrantAlias(t *testing.T) {
	c := NewCache()
	c.Populate(testDirectory())

	stock, ok := c.Get("stock_030001")
	require.True(t, ok)
	warrant, ok := c.Get("warrant_030001")
	require.True(t, ok)

	assert.Equal(t, "TSE", stock.Market)
	assert.Equal(t, "TSE_Warrant", warrant.Market)
	assert.Equal(t, stock.Contract, warrant.Contract)
}

func TestCachePopulateOnce(t *testing.T) {
	c := NewCache()
	dir := testDirectory()

	require.True(t, c.Populate(dir))
	n := c.Len()

	// Second populate is a no-op even with a different directory.
	other := &broker.Directory{
		Stocks: broker.StockBoards{
			TSE: []broker.Contract{{Code: "9999"}},
		},
	}
	other.Reindex()
	require.False(t, c.Populate(other))
	assert.Equal(t, n, c.Len())
	_, ok := c.Get("stock_9999")
	assert.False(t, ok)
}

func TestCacheSkipsAbsentOES(t *testing.T) {
	dir := testDirectory()
	require.False(t, dir.HasOES())

	c := NewCache()
	require.True(t, c.Populate(dir))
	// No OES entries and no error.
	for _, e := range c.All() {
		assert.NotEqual(t, "OES", e.Market)
	}
}

func TestCacheIncludesOESWhenPresent(t *testing.T) {
	dir := testDirectory()
	dir.Stocks.OES = []broker.Contract{{Code: "7777"}}
	dir.Reindex()

	c := NewCache()
	c.Populate(dir)
	e, ok := c.Get("stock_7777")
	require.True(t, ok)
	assert.Equal(t, "OES", e.Market)
}

func TestCacheOrderStable(t *testing.T) {
	c := NewCache()
	c.Populate(testDirectory())

	keys := make([]string, 0, c.Len())
	for _, e := range c.All() {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{
		"stock_2330",
		"stock_030001",
		"warrant_030001",
		"stock_6488",
		"futures_TXFA4",
		"options_TXO18000A4",
	}, keys)
}
