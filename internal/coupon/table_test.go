package coupon_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/egotech-storefront/internal/coupon"
)

func newTable(t *testing.T) *coupon.Table {
	t.Helper()
	expired := time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC)
	table, err := coupon.NewTable([]coupon.Coupon{
		{Code: "save10", Kind: coupon.KindPercentage, Value: decimal.NewFromInt(10)},
		{Code: "SAVE20K", Kind: coupon.KindFixed, Value: decimal.NewFromInt(2_000_000)},
		{Code: "FREESHIP", Kind: coupon.KindFreeShipping},
		{Code: "BIGSPEND", Kind: coupon.KindPercentage, Value: decimal.NewFromInt(5), MinSpend: 50_000_000},
		{Code: "XMAS24", Kind: coupon.KindPercentage, Value: decimal.NewFromInt(15), ValidTo: &expired},
	})
	require.NoError(t, err)
	return table
}

func TestTableEvaluate(t *testing.T) {
	t.Parallel()

	table := newTable(t)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	out := table.Evaluate(now, 10_000_000, "  Save10 ")
	require.Equal(t, coupon.StatusApplied, out.Status)
	require.True(t, out.Applied())
	require.Equal(t, "SAVE10", out.Code)
	require.Equal(t, int64(1_000_000), out.Discount)

	out = table.Evaluate(now, 1_500_000, "save20k")
	require.Equal(t, int64(1_500_000), out.Discount)

	out = table.Evaluate(now, 1_000, "FREESHIP")
	require.True(t, out.FreeShipping)
	require.Zero(t, out.Discount)

	out = table.Evaluate(now, 1_000, "UNKNOWN")
	require.Equal(t, coupon.StatusInvalid, out.Status)
	require.Zero(t, out.Discount)
	require.False(t, out.FreeShipping)

	out = table.Evaluate(now, 1_000, "")
	require.Equal(t, coupon.StatusNone, out.Status)

	out = table.Evaluate(now, 1_000, "BIGSPEND")
	require.Equal(t, coupon.StatusIneligible, out.Status)
	require.ErrorIs(t, out.Reason, coupon.ErrMinimumSpendUnmet)
	require.Zero(t, out.Discount)

	out = table.Evaluate(now, 1_000, "xmas24")
	require.ErrorIs(t, out.Reason, coupon.ErrCouponExpired)
}

func TestNewTableRejectsDuplicates(t *testing.T) {
	_, err := coupon.NewTable([]coupon.Coupon{
		{Code: "SAVE10", Kind: coupon.KindPercentage},
		{Code: " save10", Kind: coupon.KindFixed},
	})
	require.ErrorIs(t, err, coupon.ErrDuplicateCode)

	_, err = coupon.NewTable([]coupon.Coupon{{Code: "X", Kind: "mystery"}})
	require.ErrorIs(t, err, coupon.ErrUnknownKind)
}

func TestNilTableTreatsEverythingAsInvalid(t *testing.T) {
	var table *coupon.Table
	out := table.Evaluate(time.Now(), 100, "SAVE10")
	require.Equal(t, coupon.StatusInvalid, out.Status)
	require.Zero(t, table.Len())
	require.Empty(t, table.Codes())
}
