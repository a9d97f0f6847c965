package schema

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

//
// Normalize
//

// TestNormalize walks the emission rules in order, including their
// interactions (truncate before collapse, trim after collapse).
func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		kind IdentKind
		want string
	}{
		{"spaces", "Customer ID", Column, "Customer_ID"},
		{"leading digit column", "1st Name", Column, "col_1st_Name"},
		{"leading digit table", "2024 sales", Table, "tbl_2024_sales"},
		{"empty column", "", Column, "unknown_column"},
		{"empty table", "", Table, "unknown_table"},
		{"whitespace only", "   ", Column, "unknown_column"},
		{"runs collapse", "a--b", Column, "a_b"},
		{"outer underscores trimmed", "__x__", Column, "x"},
		{"only underscores", "___", Column, "unknown_column"},
		{"non ascii replaced", "héllo", Column, "h_llo"},
		{"symbols", "price($)", Column, "price"},
		{"outer spaces trimmed", "  padded  ", Column, "padded"},
		{"already clean", "order_id", Column, "order_id"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Normalize(tt.raw, tt.kind); got != tt.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

// TestNormalizeTruncation checks the length ceiling and that truncation runs
// before the underscore cleanup.
func TestNormalizeTruncation(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", 200)
	if got := Normalize(long, Column); len(got) != MaxIdentLen {
		t.Fatalf("len(Normalize(200 a)) = %d, want %d", len(got), MaxIdentLen)
	}

	// 127 a's + "__b": the cut leaves a trailing '_' that is then trimmed.
	raw := strings.Repeat("a", 127) + "__b"
	want := strings.Repeat("a", 127)
	if got := Normalize(raw, Column); got != want {
		t.Fatalf("Normalize(127a__b) = %q (len %d), want len %d", got, len(got), len(want))
	}
}

func TestTableNameForFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{"/data/customers.csv", "customers"},
		{"/data/2024-sales report.csv", "tbl_2024_sales_report"},
		{"orders.backup.tsv", "orders_backup"},
		{"/x/.csv", "unknown_table"},
	}
	for _, tt := range tests {
		if got := TableNameForFile(tt.path); got != tt.want {
			t.Fatalf("TableNameForFile(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

//
// Deduplicate
//

func TestDeduplicate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"triple", []string{"x", "x", "x"}, []string{"x", "x_1", "x_2"}},
		{"suffix already taken", []string{"a", "a_1", "a"}, []string{"a", "a_1", "a_2"}},
		{"suffixed original later", []string{"b", "b", "b_1"}, []string{"b", "b_1", "b_1_1"}},
		{"no collisions", []string{"a", "b"}, []string{"a", "b"}},
		{"empty", []string{}, []string{}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Deduplicate(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Deduplicate(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDeduplicate_TruncatesOnRuneBoundary(t *testing.T) {
	t.Parallel()

	name := "a" + strings.Repeat("é", 63) // 127 bytes
	got := Deduplicate([]string{name, name})
	if got[0] != name {
		t.Fatalf("first name changed: %q", got[0])
	}
	if !utf8.ValidString(got[1]) {
		t.Fatalf("Deduplicate produced invalid UTF-8: %q", got[1])
	}
	if !strings.HasSuffix(got[1], "_1") || len(got[1]) > MaxIdentLen {
		t.Fatalf("second name = %q (%d bytes)", got[1], len(got[1]))
	}
}

func TestDeduplicateFold(t *testing.T) {
	t.Parallel()

	got := DeduplicateFold([]string{"Customer_ID", "customer_id", "CUSTOMER_ID_1", "name"})
	want := []string{"Customer_ID", "customer_id_1", "CUSTOMER_ID_1_1", "name"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DeduplicateFold() = %q, want %q", got, want)
	}

	if got := Deduplicate([]string{"X", "x"}); !reflect.DeepEqual(got, []string{"X", "x"}) {
		t.Fatalf("Deduplicate is case-sensitive, got %q", got)
	}
}

// TestDeduplicateKeepsLengthCeiling makes sure suffixing never pushes a name
// past MaxIdentLen.
func TestDeduplicateKeepsLengthCeiling(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", MaxIdentLen)
	got := Deduplicate([]string{long, long})
	if got[0] != long {
		t.Fatalf("first name changed")
	}
	if len(got[1]) != MaxIdentLen || !strings.HasSuffix(got[1], "_1") {
		t.Fatalf("second = %q (len %d), want len %d ending _1", got[1], len(got[1]), MaxIdentLen)
	}
}

//
// ComparisonKey
//

func TestComparisonKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Customer ID", "customer_id"},
		{"customer_id", "customer_id"},
		{"CustomerID ", "customerid"},
		{"  Order   Date ", "order_date"},
		{"Amount ($)", "amount_"},
		{"Naïve", "naïve"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ComparisonKey(tt.in); got != tt.want {
			t.Fatalf("ComparisonKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestComparisonKeyLooserThanEmission documents that grouping equality does
// not imply identical emitted identifiers.
func TestComparisonKeyLooserThanEmission(t *testing.T) {
	t.Parallel()

	a, b := "Customer ID", "customer_id"
	if ComparisonKey(a) != ComparisonKey(b) {
		t.Fatalf("comparison keys differ")
	}
	if Normalize(a, Column) == Normalize(b, Column) {
		t.Fatalf("emitted identifiers unexpectedly equal")
	}
}
