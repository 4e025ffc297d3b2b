package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vodaudit/internal/audit"
	"vodaudit/internal/vodstore"
)

func TestMetricsFileNilIsNoop(t *testing.T) {
	m := newMetricsFile("  ")
	if m != nil {
		t.Fatal("expected nil metrics file for empty path")
	}
	m.recordGrouping(nil)
	if err := m.write("grouping_check"); err != nil {
		t.Fatalf("nil write: %v", err)
	}
}

func TestMetricsFileWritesAccountLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vodaudit.prom")
	m := newMetricsFile(path)
	m.recordGrouping([]audit.GroupingResult{
		{Account: vodstore.Account{Name: "Provider A"}, TotalRelations: 12, ManualCount: 2, QueryCount: 0},
	})
	if err := m.write("grouping_check"); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	text := string(data)
	for _, want := range []string{
		`vodaudit_grouping_mismatch{account="provider_a"} 1`,
		`vodaudit_relations{account="provider_a"} 12`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("metrics missing %q:\n%s", want, text)
		}
	}
}
