package schema

import (
	"strconv"
	"strings"
	"testing"
)

func repeat(v string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func ptr(t TypeTag) *TypeTag { return &t }

//
// Infer
//

// TestInfer covers the decision chain in order: integer, decimal, datetime,
// date, boolean, text.
func TestInfer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values []string
		want   TypeTag
	}{
		{"nil sample", nil, Text(255)},
		{"all blank", []string{"", "  ", "\t"}, Text(255)},
		{"small ints", []string{"1", "-2", "+3", " 42 "}, SmallInt()},
		{"int32 bounds", []string{"2147483647", "-2147483648"}, SmallInt()},
		{"above int32", []string{"1", "2147483648"}, BigInt()},
		{"below int32", []string{"-2147483649", "0"}, BigInt()},
		{"beyond int64 is decimal", []string{"99999999999999999999"}, DefaultDecimal()},
		{"decimals", []string{"1", "2.5", "-.5"}, DefaultDecimal()},
		{"exponent", []string{"1e5", "2E-3"}, DefaultDecimal()},
		{"nan is text", []string{"NaN", "1"}, Text(50)},
		{"inf is text", []string{"inf"}, Text(50)},
		{"iso dates", []string{"2021-01-05", "2021-02-10"}, Date()},
		{"mixed date layouts", []string{"01/05/2021", "2021/02/10", "03-04-2020"}, Date()},
		{"datetimes", []string{"2021-01-05 10:00:00", "2021-01-06 11:30:59"}, DateTime()},
		{"us datetimes", []string{"01/05/2021 10:00:00"}, DateTime()},
		{"yes no", []string{"yes", "no", "Yes"}, Boolean()},
		{"y n", []string{"Y", "n"}, Boolean()},
		{"true false", []string{"TRUE", "false"}, Boolean()},
		{"three distinct bool words", []string{"true", "false", "yes"}, Text(50)},
		{"zero one are integers", []string{"1", "0"}, SmallInt()},
		{"binary junk", []string{"\x00\xff"}, Text(50)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Infer(tt.values, nil); got != tt.want {
				t.Fatalf("Infer(%q) = %v, want %v", tt.values, got, tt.want)
			}
		})
	}
}

// TestInferPartialDatesNotDate is the canonical two-of-three case.
func TestInferPartialDatesNotDate(t *testing.T) {
	t.Parallel()

	got := Infer([]string{"2021-01-05", "2021-02-10", "not-a-date"}, nil)
	if got.Kind == KindDate {
		t.Fatalf("Infer(2 of 3 dates) = %v, want non-date", got)
	}
	if got != Text(50) {
		t.Fatalf("Infer(2 of 3 dates) = %v, want %v", got, Text(50))
	}
}

// TestInferDateThresholdBoundary pins each policy's threshold: a ratio equal
// to the threshold is not a date, one more match is.
func TestInferDateThresholdBoundary(t *testing.T) {
	t.Parallel()

	if DetectorPolicy.Threshold != 0.8 || DetectorPolicy.Window != 10 {
		t.Fatalf("DetectorPolicy = %+v, want {10 0.8}", DetectorPolicy)
	}
	if UploadPolicy.Threshold != 0.7 || UploadPolicy.Window != 20 {
		t.Fatalf("UploadPolicy = %+v, want {20 0.7}", UploadPolicy)
	}

	build := func(dates, others int) []string {
		return append(repeat("2021-01-05", dates), repeat("n/a-ish", others)...)
	}

	tests := []struct {
		name   string
		policy DatePolicy
		values []string
		isDate bool
	}{
		{"detector 8 of 10 equals threshold", DetectorPolicy, build(8, 2), false},
		{"detector 9 of 10 above threshold", DetectorPolicy, build(9, 1), true},
		{"upload 14 of 20 equals threshold", UploadPolicy, build(14, 6), false},
		{"upload 15 of 20 above threshold", UploadPolicy, build(15, 5), true},
		{"detector window ignores later values", DetectorPolicy, build(10, 30), true},
		{"short sample uses its own length", DetectorPolicy, build(5, 0), true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := InferWith(tt.policy, tt.values, nil)
			if (got.Kind == KindDate) != tt.isDate {
				t.Fatalf("InferWith(%+v) = %v, want date=%v", tt.policy, got, tt.isDate)
			}
		})
	}
}

// TestInferIntegerRangeProperty checks SmallInt/BigInt over a spread of values.
func TestInferIntegerRangeProperty(t *testing.T) {
	t.Parallel()

	inRange := []int64{-2147483648, -65536, -1, 0, 1, 255, 65535, 2147483647}
	for _, n := range inRange {
		vals := []string{"7", strconv.FormatInt(n, 10)}
		if got := Infer(vals, nil); got != SmallInt() {
			t.Fatalf("Infer(%v) = %v, want SmallInt", vals, got)
		}
	}

	outOfRange := []int64{-9223372036854775808, -2147483649, 2147483648, 9223372036854775807}
	for _, n := range outOfRange {
		vals := []string{"7", strconv.FormatInt(n, 10)}
		if got := Infer(vals, nil); got != BigInt() {
			t.Fatalf("Infer(%v) = %v, want BigInt", vals, got)
		}
	}
}

// TestInferTextBuckets checks the smallest ceiling that fits the longest value.
func TestInferTextBuckets(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n    int
		want TypeTag
	}{
		{1, Text(50)},
		{50, Text(50)},
		{51, Text(255)},
		{255, Text(255)},
		{256, Text(1000)},
		{1000, Text(1000)},
		{1001, Text(4000)},
		{3900, Text(4000)},
		{5000, Text(5100)},
		{7900, Text(8000)},
		{7901, UnboundedText()},
	}
	for _, tt := range tests {
		vals := []string{"x", strings.Repeat("w", tt.n)}
		if got := Infer(vals, nil); got != tt.want {
			t.Fatalf("Infer(len %d) = %v, want %v", tt.n, got, tt.want)
		}
	}

	// Length counts characters, not bytes.
	if got := Infer([]string{strings.Repeat("é", 50)}, nil); got != Text(50) {
		t.Fatalf("Infer(50 runes) = %v, want Text(50)", got)
	}
}

// TestInferSampleCap shows values beyond the cap are not looked at.
func TestInferSampleCap(t *testing.T) {
	t.Parallel()

	vals := append(repeat("5", SampleCap), "not a number")
	if got := Infer(vals, nil); got != SmallInt() {
		t.Fatalf("Infer(cap+1) = %v, want SmallInt", got)
	}

	// Blank values do not count toward the cap.
	vals = append(repeat("", SampleCap), "not a number")
	if got := Infer(vals, nil); got.Kind != KindText {
		t.Fatalf("Infer(blanks + text) = %v, want text", got)
	}
}

// TestInferHint checks that a hint short-circuits only when its check passes.
func TestInferHint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values []string
		hint   *TypeTag
		want   TypeTag
	}{
		{"bool hint on 0/1", []string{"1", "0"}, ptr(Boolean()), Boolean()},
		{"int hint rejected", []string{"abc"}, ptr(SmallInt()), Text(50)},
		{"int hint re-ranges", []string{"1"}, ptr(BigInt()), SmallInt()},
		{"decimal hint on ints", []string{"1", "2"}, ptr(DefaultDecimal()), DefaultDecimal()},
		{"text hint ignored", []string{"1"}, ptr(Text(255)), SmallInt()},
		{"hint on empty sample", nil, ptr(SmallInt()), Text(255)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Infer(tt.values, tt.hint); got != tt.want {
				t.Fatalf("Infer(%q, %v) = %v, want %v", tt.values, *tt.hint, got, tt.want)
			}
		})
	}
}

//
// TypeTag rendering
//

func TestTypeTagString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tag TypeTag
		sql string
		sig string
	}{
		{SmallInt(), "INT", "smallint"},
		{BigInt(), "BIGINT", "bigint"},
		{DefaultDecimal(), "DECIMAL(18,4)", "decimal(18,4)"},
		{Boolean(), "BIT", "boolean"},
		{Date(), "DATE", "date"},
		{DateTime(), "DATETIME2", "datetime"},
		{Text(255), "NVARCHAR(255)", "text(255)"},
		{Text(4000), "NVARCHAR(4000)", "text(4000)"},
		{Text(5100), "NVARCHAR(MAX)", "text(5100)"},
		{UnboundedText(), "NVARCHAR(MAX)", "text(max)"},
	}
	for _, tt := range tests {
		if got := tt.tag.String(); got != tt.sql {
			t.Fatalf("%+v.String() = %q, want %q", tt.tag, got, tt.sql)
		}
		if got := tt.tag.Signature(); got != tt.sig {
			t.Fatalf("%+v.Signature() = %q, want %q", tt.tag, got, tt.sig)
		}
	}
}
