// Package mappers 提供数据库类型与领域对象之间的转换工具。
package mappers

import (
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// ToPgNumeric 将 float64 转换为 pgtype.Numeric。
func ToPgNumeric(value float64) pgtype.Numeric {
	var num pgtype.Numeric
	if err := num.Scan(value); err != nil {
		return pgtype.Numeric{}
	}
	return num
}

// NumericToFloat64 将 pgtype.Numeric 转换为 float64，非法值返回 0。
func NumericToFloat64(num pgtype.Numeric) float64 {
	if !num.Valid {
		return 0
	}
	value, err := num.Float64Value()
	if err != nil || !value.Valid {
		return 0
	}
	if math.IsNaN(value.Float64) || math.IsInf(value.Float64, 0) {
		return 0
	}
	return value.Float64
}

// ToPgTimestamptz 将 time.Time 转换为 pgtype.Timestamptz。
func ToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t.UTC(), Valid: true}
}

// ToPgTimestamptzPtr 将 *time.Time 转换为 pgtype.Timestamptz。
func ToPgTimestamptzPtr(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return ToPgTimestamptz(*t)
}

// TimestampPtr 将 pgtype.Timestamptz 转换为 *time.Time。
func TimestampPtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time.UTC()
	return &t
}

// MustTimestamp 将 pgtype.Timestamptz 转换为 time.Time，无效值返回零值。
func MustTimestamp(ts pgtype.Timestamptz) time.Time {
	if !ts.Valid {
		return time.Time{}
	}
	return ts.Time.UTC()
}

// ToPgDate 将 time.Time 按 UTC 日归一化为 pgtype.Date。
func ToPgDate(t time.Time) pgtype.Date {
	if t.IsZero() {
		return pgtype.Date{}
	}
	year, month, day := t.UTC().Date()
	return pgtype.Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC), Valid: true}
}

// DateToTime 将 pgtype.Date 转换为 time.Time。
func DateToTime(d pgtype.Date) time.Time {
	if !d.Valid {
		return time.Time{}
	}
	return d.Time.UTC()
}
