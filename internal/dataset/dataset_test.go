package dataset

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestLoad_WithHeader(t *testing.T) {
	path := writeCSV(t, "a,b,c\n1,2,3\n4,5,6\n")
	table, err := Load(path, Options{HasHeader: true})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(table.Header) != 3 || table.Header[0] != "a" {
		t.Errorf("Header = %v, want [a b c]", table.Header)
	}
	if table.RowCount() != 2 {
		t.Errorf("RowCount() = %d, want 2", table.RowCount())
	}
	if table.Fingerprint == "" {
		t.Error("expected non-empty fingerprint")
	}
}

func TestLoad_WithoutHeader(t *testing.T) {
	path := writeCSV(t, "1,2\n3,4\n")
	table, err := Load(path, Options{HasHeader: false})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(table.Header) != 0 {
		t.Errorf("Header = %v, want empty", table.Header)
	}
	if table.RowCount() != 2 {
		t.Errorf("RowCount() = %d, want 2", table.RowCount())
	}
}

func TestLoad_RowCap(t *testing.T) {
	path := writeCSV(t, "1\n2\n3\n4\n5\n")
	table, err := Load(path, Options{RowCap: 3})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if table.RowCount() != 3 {
		t.Errorf("RowCount() = %d, want 3", table.RowCount())
	}
}

func TestLoad_ColumnCap(t *testing.T) {
	path := writeCSV(t, "a,b,c,d\n1,2,3,4\n")
	table, err := Load(path, Options{HasHeader: true, ColumnCap: 2})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(table.Header) != 2 {
		t.Errorf("Header len = %d, want 2", len(table.Header))
	}
	if len(table.Rows[0]) != 2 {
		t.Errorf("row len = %d, want 2", len(table.Rows[0]))
	}
}

func TestLoad_FingerprintStableAcrossCaps(t *testing.T) {
	path := writeCSV(t, "a,b\n1,2\n3,4\n5,6\n")
	full, err := Load(path, Options{HasHeader: true})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	capped, err := Load(path, Options{HasHeader: true, RowCap: 1})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if full.Fingerprint != capped.Fingerprint {
		t.Error("fingerprint must be computed over the source file, independent of capping")
	}
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.csv"), Options{})
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestLoad_Delimiter(t *testing.T) {
	path := writeCSV(t, "a;b;c\n1;2;3\n")
	table, err := Load(path, Options{HasHeader: true, Delimiter: ';'})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(table.Header) != 3 || table.Header[1] != "b" {
		t.Errorf("Header = %v, want [a b c]", table.Header)
	}
	if table.Rows[0][2] != "3" {
		t.Errorf("Rows[0] = %v, want last field 3", table.Rows[0])
	}
}

func TestParseDelimiter(t *testing.T) {
	cases := []struct {
		in   string
		want rune
	}{
		{"", ','},
		{";", ';'},
		{"\t", '\t'},
		{"\\t", '\t'},
	}
	for _, tc := range cases {
		got, err := ParseDelimiter(tc.in)
		if err != nil {
			t.Fatalf("ParseDelimiter(%q) failed: %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParseDelimiter(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	if _, err := ParseDelimiter("too-long"); err == nil {
		t.Error("expected an error for a multi-character delimiter")
	}
}
