package ch

import (
	"context"
	"testing"
)

func TestInsertSQL(t *testing.T) {
	cases := []struct {
		table string
		cols  []string
		want  string
	}{
		{"ottscout_rows", []string{"run_id", "title"}, "INSERT INTO ottscout_rows (run_id, title)"},
		{"t", nil, "INSERT INTO t"},
	}
	for _, tc := range cases {
		if got := InsertSQL(tc.table, tc.cols); got != tc.want {
			t.Errorf("InsertSQL(%q, %v) = %q, want %q", tc.table, tc.cols, got, tc.want)
		}
	}
}

func TestBuildClientInfo(t *testing.T) {
	ci := BuildClientInfo(" run ", "")
	if len(ci.Products) != 4 {
		t.Fatalf("products = %+v", ci.Products)
	}
	if ci.Products[0].Name != "ottscout" || ci.Products[0].Version != "unknown" {
		t.Fatalf("product = %+v", ci.Products[0])
	}
	if ci.Products[1].Version != "run" {
		t.Fatalf("role = %+v", ci.Products[1])
	}
}

func TestOpen_RejectsEmptyAndBadDSN(t *testing.T) {
	if _, err := Open(context.Background(), Config{}); err == nil {
		t.Fatalf("empty url accepted")
	}
	if _, err := Open(context.Background(), Config{URL: "://nope"}); err == nil {
		t.Fatalf("bad url accepted")
	}
}

func TestClose_NilSafe(t *testing.T) {
	var c *CH
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
}
