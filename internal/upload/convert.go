package upload

// convert.go turns raw cell text into the Go value bound for a column of an
// inferred type. A value that does not fit its column converts to NULL; the
// caller counts those so nothing is dropped silently.

import (
	"math"
	"math/big"
	"strings"
	"time"

	"schemagroup/internal/schema"
	"schemagroup/internal/storage"
)

var (
	dateLayouts = []string{
		"2006-01-02", "01/02/2006", "01-02-2006", "2006/01/02",
	}
	dateTimeLayouts = []string{
		"2006-01-02 15:04:05", "2006-01-02T15:04:05", "01/02/2006 15:04:05",
	}
)

// Convert returns the value to bind for raw in a column of type t.
// ok is false when raw does not fit t.
func Convert(t schema.TypeTag, raw string) (v any, ok bool) {
	s := strings.TrimSpace(raw)

	switch t.Kind {
	case schema.KindSmallInt, schema.KindBigInt:
		n, ok := toInt(s)
		if !ok {
			return nil, false
		}
		if t.Kind == schema.KindSmallInt && (n < math.MinInt32 || n > math.MaxInt32) {
			return nil, false
		}
		return n, true

	case schema.KindDecimal:
		return toDecimal(t, s)

	case schema.KindBoolean:
		return toBool(s)

	case schema.KindDate:
		if ts, ok := parseTime(s, dateLayouts); ok {
			return ts, true
		}
		// A timestamp in a date column keeps its date part.
		if ts, ok := parseTime(s, dateTimeLayouts); ok {
			return ts.Truncate(24 * time.Hour), true
		}
		return nil, false

	case schema.KindDateTime:
		if ts, ok := parseTime(s, dateTimeLayouts); ok {
			return ts, true
		}
		return parseTimeAny(s, dateLayouts)

	default:
		return raw, true
	}
}

// toInt accepts plain integers and integral decimals such as "12.0".
func toInt(s string) (int64, bool) {
	if n, ok := schema.ParseInt(s); ok {
		return n, true
	}
	f, ok := schema.ParseDecimal(s)
	if !ok || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// toDecimal rounds s to the column's scale and rejects values with more
// integer digits than precision minus scale allows. The result is exact text.
func toDecimal(t schema.TypeTag, s string) (any, bool) {
	f, ok := schema.ParseDecimal(s)
	if !ok {
		return nil, false
	}
	intDigits := t.Precision - t.Scale
	// Settle the extremes on the float so big.Rat never expands a huge exponent.
	switch a := math.Abs(f); {
	case a >= 2*math.Pow10(intDigits):
		return nil, false
	case a < math.Pow10(-t.Scale-2):
		return storage.Decimal(new(big.Rat).FloatString(t.Scale)), true
	}

	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, false
	}
	out := r.FloatString(t.Scale)
	whole, _, _ := strings.Cut(strings.TrimPrefix(out, "-"), ".")
	if len(strings.TrimLeft(whole, "0")) > intDigits {
		return nil, false
	}
	return storage.Decimal(out), true
}

func toBool(s string) (any, bool) {
	switch strings.ToLower(s) {
	case "true", "1", "yes", "y":
		return true, true
	case "false", "0", "no", "n":
		return false, true
	default:
		return nil, false
	}
}

func parseTime(s string, layouts []string) (time.Time, bool) {
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func parseTimeAny(s string, layouts []string) (any, bool) {
	ts, ok := parseTime(s, layouts)
	if !ok {
		return nil, false
	}
	return ts, true
}

// numericThreshold is the share of non-null values that must parse as numbers
// for numericCleanup to treat a column as numeric.
const numericThreshold = 0.8

// numericCleanup nulls the non-numeric values of column j when more than
// numericThreshold of its non-null values are numeric. It returns how many
// values it nulled.
func numericCleanup(rows [][]*string, j int) int {
	nonNull, numeric := 0, 0
	for _, r := range rows {
		v := r[j]
		if v == nil {
			continue
		}
		nonNull++
		if _, ok := schema.ParseDecimal(strings.TrimSpace(*v)); ok {
			numeric++
		}
	}
	if numeric == 0 || numeric == nonNull || float64(numeric)/float64(nonNull) <= numericThreshold {
		return 0
	}

	nulled := 0
	for _, r := range rows {
		if r[j] == nil {
			continue
		}
		if _, ok := schema.ParseDecimal(strings.TrimSpace(*r[j])); !ok {
			r[j] = nil
			nulled++
		}
	}
	return nulled
}
