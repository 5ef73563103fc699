package mappers_test

import (
	"testing"
	"time"

	"github.com/mikey1384/twinkle-vite-sub013/internal/repositories/mappers"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"
)

func TestNumericRoundTrip(t *testing.T) {
	t.Parallel()

	num := mappers.ToPgNumeric(62.5)
	require.True(t, num.Valid)
	require.InDelta(t, 62.5, mappers.NumericToFloat64(num), 0.0001)

	require.Zero(t, mappers.NumericToFloat64(pgtype.Numeric{}))
}

func TestTimestamptzConversions(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 15, 9, 26, 0, time.FixedZone("KST", 9*3600))
	ts := mappers.ToPgTimestamptz(now)
	require.True(t, ts.Valid)
	require.Equal(t, now.UTC(), mappers.MustTimestamp(ts))

	require.False(t, mappers.ToPgTimestamptz(time.Time{}).Valid)
	require.Nil(t, mappers.TimestampPtr(pgtype.Timestamptz{}))

	ptr := mappers.TimestampPtr(ts)
	require.NotNil(t, ptr)
	require.Equal(t, now.UTC(), *ptr)

	require.False(t, mappers.ToPgTimestamptzPtr(nil).Valid)
}

func TestToPgDateNormalizesToUTCDay(t *testing.T) {
	t.Parallel()

	// Late evening in a UTC+9 zone is still the previous UTC day.
	local := time.Date(2026, 3, 15, 3, 0, 0, 0, time.FixedZone("KST", 9*3600))
	date := mappers.ToPgDate(local)
	require.True(t, date.Valid)
	require.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), mappers.DateToTime(date))

	require.False(t, mappers.ToPgDate(time.Time{}).Valid)
	require.True(t, mappers.DateToTime(pgtype.Date{}).IsZero())
}
