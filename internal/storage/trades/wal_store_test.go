package trades

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/anson-vandoren/binance-monitor/internal/domain"
)

func testTrade(t *testing.T, mark string, at time.Time, fee string) domain.TaxTrade {
	t.Helper()

	feeAmount, err := decimal.NewFromString(fee)
	require.NoError(t, err)

	trade, err := domain.NewTaxTrade("BUY", at,
		"ADA", decimal.NewFromInt(2),
		"BTC", decimal.NewFromFloat(0.02),
		"BNB", feeAmount, mark, "")
	require.NoError(t, err)
	return trade
}

func openStore(t *testing.T, dir string) *WALStore {
	t.Helper()
	store, err := NewWALStore(dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

var baseTime = time.Date(2019, 4, 12, 9, 30, 0, 0, time.UTC)

func TestUpdateSortsByTime(t *testing.T) {
	store := openStore(t, t.TempDir())

	newest := testTrade(t, "3", baseTime.Add(2*time.Hour), "0.001")
	oldest := testTrade(t, "1", baseTime, "0.001")
	middle := testTrade(t, "2", baseTime.Add(time.Hour), "0.001")

	require.NoError(t, store.Update([]domain.TaxTrade{newest, oldest, middle}))

	got := store.Trades()
	require.Len(t, got, 3)
	require.Equal(t, "1", got[0].Mark)
	require.Equal(t, "2", got[1].Mark)
	require.Equal(t, "3", got[2].Mark)
}

func TestUpdateIsIdempotent(t *testing.T) {
	store := openStore(t, t.TempDir())

	batch := []domain.TaxTrade{
		testTrade(t, "1", baseTime, "0.001"),
		testTrade(t, "2", baseTime.Add(time.Minute), "0.002"),
	}

	require.NoError(t, store.Update(batch))
	first := store.Trades()

	require.NoError(t, store.Update(batch))
	second := store.Trades()

	require.Equal(t, len(first), len(second))
	for i := range first {
		require.True(t, first[i].Equal(second[i]))
	}
}

func TestUpdateRejectsConflictingDuplicateMark(t *testing.T) {
	store := openStore(t, t.TempDir())

	require.NoError(t, store.Update([]domain.TaxTrade{testTrade(t, "1", baseTime, "0.001")}))

	conflicting := testTrade(t, "1", baseTime, "0.999")
	err := store.Update([]domain.TaxTrade{conflicting})
	require.ErrorIs(t, err, domain.ErrDuplicateMark)

	// The failed merge must leave the ledger untouched.
	require.Equal(t, 1, store.Len())
	require.True(t, store.Trades()[0].FeeAmount.Equal(decimal.NewFromFloat(0.001)))
}

func TestSameMarkDifferentMarketIsNotAConflict(t *testing.T) {
	store := openStore(t, t.TempDir())

	adabtc := testTrade(t, "7", baseTime, "0.001")

	ethusdt, err := domain.NewTaxTrade("BUY", baseTime.Add(time.Minute),
		"ETH", decimal.NewFromInt(1),
		"USDT", decimal.NewFromInt(200),
		"BNB", decimal.Zero, "7", "")
	require.NoError(t, err)

	require.NoError(t, store.Update([]domain.TaxTrade{adabtc, ethusdt}))
	require.Equal(t, 2, store.Len())
}

func TestAddOnePersistsImmediately(t *testing.T) {
	dir := t.TempDir()

	store := openStore(t, dir)
	require.NoError(t, store.AddOne(testTrade(t, "1", baseTime, "0.001")))
	require.NoError(t, store.Close())

	reopened := openStore(t, dir)
	require.Equal(t, 1, reopened.Len())
	require.Equal(t, "1", reopened.Trades()[0].Mark)
}

func TestUpdateIsWriteBackUntilFlush(t *testing.T) {
	dir := t.TempDir()

	store := openStore(t, dir)
	require.NoError(t, store.Update([]domain.TaxTrade{testTrade(t, "1", baseTime, "0.001")}))
	require.NoError(t, store.Close())

	// Without Flush nothing reached the journal.
	reopened := openStore(t, dir)
	require.Equal(t, 0, reopened.Len())

	require.NoError(t, reopened.Update([]domain.TaxTrade{testTrade(t, "1", baseTime, "0.001")}))
	require.NoError(t, reopened.Flush())
	require.NoError(t, reopened.Close())

	final := openStore(t, dir)
	require.Equal(t, 1, final.Len())
}

func TestLatestTimestamp(t *testing.T) {
	store := openStore(t, t.TempDir())

	_, ok := store.LatestTimestamp()
	require.False(t, ok, "empty ledger has no latest timestamp")

	require.NoError(t, store.Update([]domain.TaxTrade{
		testTrade(t, "1", baseTime, "0.001"),
		testTrade(t, "2", baseTime.Add(3*time.Hour), "0.001"),
		testTrade(t, "3", baseTime.Add(time.Hour), "0.001"),
	}))

	latest, ok := store.LatestTimestamp()
	require.True(t, ok)
	require.True(t, latest.Equal(baseTime.Add(3*time.Hour)))
}

func TestExportCSV(t *testing.T) {
	store := openStore(t, t.TempDir())
	require.NoError(t, store.Update([]domain.TaxTrade{testTrade(t, "42", baseTime, "0.001")}))

	path := filepath.Join(t.TempDir(), "trades.csv")
	require.NoError(t, store.ExportCSV(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, domain.CSVColumns, rows[0])
	require.Equal(t, "2.00000000", rows[1][3])
	require.Equal(t, "0.02000000", rows[1][5])
	require.Equal(t, "0.00100000", rows[1][7])
	require.Equal(t, "42", rows[1][9])
}
