package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeGo(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("package q\n\n"+body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestConversationQueriesAreMarked(t *testing.T) {
	violations, err := lint([]string{"../../sqlinline"})
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	for _, v := range violations {
		t.Errorf("%s", v)
	}
}

func TestLintReportsMissingMarker(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "a.go", "const QBad = `select 1`\nconst Greeting = \"hello\"\n")

	violations, err := lint([]string{dir})
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if len(violations) != 1 || violations[0].name != "QBad" {
		t.Fatalf("violations = %v", violations)
	}
}

func TestLintReportsMalformedMarkerOnDDL(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "a.go", "const QTable = `--sql not-a-uuid\ncreate table t (id text);`\n")

	violations, err := lint([]string{dir})
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if len(violations) != 1 || !strings.Contains(violations[0].message, "invalid") {
		t.Fatalf("violations = %v", violations)
	}
}

func TestLintReportsDuplicateMarkersAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	marker := "--sql 11111111-2222-4333-8444-555555555555"
	writeGo(t, dir, "a.go", "const QOne = `"+marker+"\nselect 1;`\n")
	writeGo(t, dir, "b.go", "const QTwo = `"+marker+"\nselect 2;`\n")

	violations, err := lint([]string{dir})
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if len(violations) != 1 || violations[0].name != "QTwo" || !strings.Contains(violations[0].message, "QOne") {
		t.Fatalf("violations = %v", violations)
	}
}

func TestLintReportsInlineQuery(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "a.go", "func get(db interface{ Exec(string) }) {\n\tdb.Exec(`SELECT document FROM conversations WHERE id = ?`)\n\t_ = \"delete failed\"\n}\n")

	violations, err := lint([]string{dir})
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if len(violations) != 1 || violations[0].name != "inline query" || violations[0].line != 4 {
		t.Fatalf("violations = %v", violations)
	}
}

func TestStoreQueriesLiveInSQLInline(t *testing.T) {
	violations, err := lint([]string{"../../store", "../../sqlinline"})
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	for _, v := range violations {
		t.Errorf("%s", v)
	}
}
