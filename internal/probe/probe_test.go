package probe

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"schemagroup/internal/schema"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

//
// File
//

func TestFile_ProfilesColumns(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := writeFile(t, dir, "2024 Sales-Report.csv",
		"Customer ID,Amount,Signup Date,Active,Notes,Amount\n"+
			"1,10.5,2024-01-01,yes,hello,1\n"+
			"2,NULL,2024-01-02,no,,2\n"+
			"3,7,2024-01-03,yes,world,3\n")

	fs, err := File(p, Options{})
	require.NoError(t, err)

	require.Equal(t, p, fs.Path)
	require.Equal(t, "tbl_2024_Sales_Report", fs.Table)
	require.Equal(t, schema.Comma, fs.Delimiter)
	require.Equal(t, 3, fs.SampleRows)
	require.Equal(t, []string{"Customer_ID", "Amount", "Signup_Date", "Active", "Notes", "Amount_1"}, fs.Names())

	byName := map[string]Column{}
	for _, c := range fs.Columns {
		byName[c.Name] = c
	}
	require.Equal(t, schema.SmallInt(), byName["Customer_ID"].Type)
	require.False(t, byName["Customer_ID"].Nullable)
	require.Equal(t, schema.DefaultDecimal(), byName["Amount"].Type)
	require.True(t, byName["Amount"].Nullable)
	require.Equal(t, schema.Date(), byName["Signup_Date"].Type)
	require.Equal(t, schema.Boolean(), byName["Active"].Type)
	require.Equal(t, schema.Text(50), byName["Notes"].Type)
	require.True(t, byName["Notes"].Nullable)
	require.Equal(t, 5, byName["Notes"].MaxLen)
	require.Equal(t, 2, byName["Active"].Distinct)
	require.Equal(t, "Customer ID", byName["Customer_ID"].Original)
}

func TestFile_DetectsDelimiter(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tests := []struct {
		name string
		body string
		want schema.Delimiter
	}{
		{"pipe", "a|b|c\n1|2|3\n", schema.Pipe},
		{"tab", "a\tb\n1\t2\n", schema.Tab},
		{"semicolon", "a;b\n1,5;2\n", schema.Semicolon},
		{"single column", "a\n1\n", schema.Comma},
	}

	for _, tt := range tests {
		tt := tt
		p := writeFile(t, dir, tt.name+".txt", tt.body)
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fs, err := File(p, Options{})
			require.NoError(t, err)
			require.Equal(t, tt.want, fs.Delimiter)
		})
	}
}

func TestFile_ForcedDelimiter(t *testing.T) {
	t.Parallel()

	p := writeFile(t, t.TempDir(), "f.csv", "a;b,c\n1;2,3\n")
	fs, err := File(p, Options{Delimiter: schema.Semicolon})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b,c"}, fs.Header)
}

func TestFile_SampleCapAndSkippedRows(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString("n,m\n1,2,3\n")
	for i := 0; i < 50; i++ {
		b.WriteString("1,2\n")
	}
	p := writeFile(t, t.TempDir(), "wide.csv", b.String())

	fs, err := File(p, Options{SampleRows: 20})
	require.NoError(t, err)
	require.Equal(t, 20, fs.SampleRows)
	require.Equal(t, 1, fs.SkippedRows)
}

func TestFile_BOMAndLatin1(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := writeFile(t, dir, "bom.csv", "\uFEFFid,name\n1,a\n")
	fs, err := File(p, Options{})
	require.NoError(t, err)
	require.Equal(t, []string{"id", "name"}, fs.Header)

	p2 := writeFile(t, dir, "latin.csv", "caf\xe9,x\n1,2\n")
	fs2, err := File(p2, Options{Encoding: "iso-8859-1"})
	require.NoError(t, err)
	require.Equal(t, "café", fs2.Header[0])
}

func TestFile_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tests := []struct {
		name string
		path string
		kind error
		want string
	}{
		{"missing", filepath.Join(dir, "nope.csv"), schema.ErrUnreadableFile, "UnreadableFile"},
		{"empty", writeFile(t, dir, "empty.csv", ""), schema.ErrEmptySample, "EmptySample"},
		{"header only", writeFile(t, dir, "hdr.csv", "a,b\n"), schema.ErrEmptySample, "EmptySample"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := File(tt.path, Options{})
			require.Error(t, err)
			require.ErrorIs(t, err, tt.kind)
			require.Equal(t, tt.want, schema.KindOf(err))

			var fe *schema.FileError
			require.True(t, errors.As(err, &fe))
			require.Equal(t, tt.path, fe.Path)
		})
	}
}

//
// Reader
//

func TestReader_FingerprintIgnoresOrderAndCase(t *testing.T) {
	t.Parallel()

	a, err := Reader(strings.NewReader("Customer ID,name\n1,x\n"), schema.Comma, Options{})
	require.NoError(t, err)
	b, err := Reader(strings.NewReader("NAME,customer_id\ny,2\n"), schema.Comma, Options{})
	require.NoError(t, err)
	c, err := Reader(strings.NewReader("name;customer_id\ny;2\n"), schema.Semicolon, Options{})
	require.NoError(t, err)

	require.Equal(t, a.Hash, b.Hash)
	require.NotEqual(t, a.Hash, c.Hash)
}

func TestReader_UploadPolicy(t *testing.T) {
	t.Parallel()

	// The first 10 values hold 8 dates (0.8, not above the detector
	// threshold) and the first 20 hold 15 (0.75, above the upload one).
	var b strings.Builder
	b.WriteString("d\n")
	for _, n := range []struct {
		v     string
		count int
	}{{"soon", 2}, {"2024-01-01", 8}, {"soon", 3}, {"2024-01-01", 7}} {
		for i := 0; i < n.count; i++ {
			b.WriteString(n.v + "\n")
		}
	}
	in := b.String()

	det, err := Reader(strings.NewReader(in), schema.Comma, Options{})
	require.NoError(t, err)
	up, err := Reader(strings.NewReader(in), schema.Comma, Options{Policy: schema.UploadPolicy})
	require.NoError(t, err)

	require.Equal(t, schema.KindText, det.Columns[0].Type.Kind)
	require.Equal(t, schema.Date(), up.Columns[0].Type)
}
