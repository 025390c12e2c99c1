package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// runCLI executes the command tree in-process and returns stdout, stderr
// and the error from Execute.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd(&stdout, &stderr)
	root.SetArgs(append([]string{"--metrics-backend", "none"}, args...))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestCLIHelp(t *testing.T) {
	t.Parallel()
	out, _, err := runCLI(t, "--help")
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	for _, want := range []string{"csvpipe", "parse", "validate", "transform", "unparse", "export", "serve", "lint"} {
		if !strings.Contains(out, want) {
			t.Errorf("help output missing %q", want)
		}
	}
}

func TestCLIParse(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	in := writeFile(t, dir, "in.csv", "a;b\n1;x\n5\n")

	out, _, err := runCLI(t, "parse", in, "-d", ";")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var res struct {
		Headers     []string         `json:"headers"`
		Rows        []map[string]any `json:"rows"`
		DroppedRows int              `json:"droppedRows"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(res.Headers) != 2 || len(res.Rows) != 1 || res.DroppedRows != 1 {
		t.Fatalf("res=%+v", res)
	}
	if res.Rows[0]["a"] != float64(1) || res.Rows[0]["b"] != "x" {
		t.Fatalf("row=%v", res.Rows[0])
	}
}

func TestCLIParseMissingFile(t *testing.T) {
	t.Parallel()
	if _, _, err := runCLI(t, "parse", filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestCLIValidate(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	good := writeFile(t, dir, "good.csv", "id,name\n1,bob\n")
	bad := writeFile(t, dir, "bad.csv", "id,name\n,ann\n")
	list := writeFile(t, dir, "list.txt", "# inputs\n"+bad+"\n")

	out, _, err := runCLI(t, "validate", good, "--list", list, "-j", "2")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	var reports []struct {
		File   string `json:"file"`
		Report struct {
			IsValid bool `json:"isValid"`
		} `json:"report"`
	}
	if err := json.Unmarshal([]byte(out), &reports); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(reports) != 2 || reports[0].File != good || !reports[0].Report.IsValid || reports[1].Report.IsValid {
		t.Fatalf("reports=%+v", reports)
	}

	if _, _, err := runCLI(t, "validate", good, bad, "--fail-on-error"); err == nil {
		t.Fatal("expected --fail-on-error to fail")
	}
}

func TestCLITransform(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	in := writeFile(t, dir, "people.csv", "name,full,age\nbob,John Smith,30\nann,Ann Lee,41\ncy,Solo,25\n")
	rules := writeFile(t, dir, "rules.yaml", `rules:
  - type: case
    column: name
    enabled: true
    config:
      toUpper: true
  - type: split
    column: full
    enabled: true
    config:
      delimiter: " "
      keepIndex: 1
`)
	out, _, err := runCLI(t, "transform", in, "--rules", rules, "--select", "name,full,age", "--sort", "age", "--desc")
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	want := "name,full,age\r\nANN,Lee,41\r\nBOB,Smith,30\r\nCY,Solo,25\n"
	if out != want {
		t.Fatalf("got %q want %q", out, want)
	}
}

func TestCLITransformSpreadsheet(t *testing.T) {
	t.Parallel()
	in := writeFile(t, t.TempDir(), "n.csv", "name,age\nbob,30\n")
	out, _, err := runCLI(t, "transform", in, "--format", "xlsx")
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	for _, want := range []string{`progid="Excel.Sheet"`, `<Data ss:Type="String">bob</Data>`, `<Data ss:Type="Number">30</Data>`} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if _, _, err := runCLI(t, "transform", in, "--format", "pdf"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestCLITransformJSONFilter(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	in := writeFile(t, dir, "log.csv", "msg\nerror here\nok\n")
	out, _, err := runCLI(t, "transform", in, "--filter", "ERR", "--format", "json")
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	var res struct {
		OriginalRows    int      `json:"originalRows"`
		TransformedRows int      `json:"transformedRows"`
		AppliedFilters  []string `json:"appliedFilters"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.OriginalRows != 2 || res.TransformedRows != 1 || len(res.AppliedFilters) != 1 {
		t.Fatalf("res=%+v", res)
	}
}

func TestCLIUnparse(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	in := writeFile(t, dir, "rows.json", `[{"name":"bob","note":"a;b"},{"name":"ann","note":null}]`)
	out, _, err := runCLI(t, "unparse", in, "-d", "semicolon")
	if err != nil {
		t.Fatalf("unparse: %v", err)
	}
	want := "name;note\r\nbob;\"a;b\"\r\nann;\n"
	if out != want {
		t.Fatalf("got %q want %q", out, want)
	}
}

func TestCLIParseURLRetries(t *testing.T) {
	t.Parallel()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, "a\n1\n")
	}))
	defer srv.Close()

	if _, _, err := runCLI(t, "parse", srv.URL+"/a.csv", "--http-retries", "0"); err == nil {
		t.Fatal("expected failure without retries")
	}
	out, _, err := runCLI(t, "parse", srv.URL+"/a.csv", "--http-retries", "1", "--http-timeout", "5s")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !strings.Contains(out, `"rowCount": 1`) {
		t.Fatalf("out=%s", out)
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Fatalf("hits = %d, want 3", got)
	}
}

/*
TestCLIParseURLDeclaredTooLarge checks that the configured input ceiling
reaches the download client, which refuses an oversized Content-Length.
*/
func TestCLIParseURLDeclaredTooLarge(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "64")
		io.WriteString(w, strings.Repeat("a\n", 32))
	}))
	defer srv.Close()

	cfg := writeFile(t, t.TempDir(), "app.yaml", "limits:\n  max_bytes: 16\n")
	_, _, err := runCLI(t, "--config", cfg, "parse", srv.URL+"/big.csv")
	if err == nil || !strings.Contains(err.Error(), "size limit") {
		t.Fatalf("err=%v", err)
	}
}

/*
TestCLIValidateCancelsOnFailure checks that one failed input cancels a
download that is still in flight.
*/
func TestCLIValidateCancelsOnFailure(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(10 * time.Second):
			io.WriteString(w, "a\n1\n")
		}
	}))
	defer srv.Close()

	missing := filepath.Join(t.TempDir(), "missing.csv")
	start := time.Now()
	_, _, err := runCLI(t, "validate", srv.URL+"/slow.csv", missing, "-j", "2")
	if err == nil || !strings.Contains(err.Error(), "missing.csv") {
		t.Fatalf("err=%v", err)
	}
	if d := time.Since(start); d > 5*time.Second {
		t.Fatalf("validate waited %v for the slow download", d)
	}
}

func TestCLILint(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	ok := writeFile(t, dir, "ok.json", `[{"type":"trim","column":"a","enabled":true}]`)
	out, _, err := runCLI(t, "lint", ok)
	if err != nil || !strings.Contains(out, "1 rule(s) ok, 1 enabled") {
		t.Fatalf("out=%q err=%v", out, err)
	}

	bad := writeFile(t, dir, "bad.json", `[{"type":"regex","column":"a","enabled":true,"config":{"pattern":"("}}]`)
	_, stderr, err := runCLI(t, "lint", bad)
	if err == nil {
		t.Fatal("expected lint failure for a broken regex")
	}
	if !strings.Contains(stderr, "error") {
		t.Fatalf("stderr=%q", stderr)
	}
}

func TestCLIExportSQLite(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	in := writeFile(t, dir, "people.csv", "Full Name,Age\nbob,30\nann,41\ncy,\n")
	dbPath := filepath.Join(dir, "out.db")

	out, _, err := runCLI(t, "export", in, "--kind", "sqlite", "--dsn", dbPath, "--table", "people", "--create", "--batch-size", "2")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var res struct {
		Inserted int64 `json:"inserted"`
		Batches  int64 `json:"batches"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Inserted != 3 || res.Batches != 2 {
		t.Fatalf("res=%+v", res)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	var sum int64
	if err := db.QueryRow(`SELECT SUM(age) FROM people`).Scan(&sum); err != nil {
		t.Fatalf("query: %v", err)
	}
	if sum != 71 {
		t.Fatalf("sum=%d", sum)
	}
}

func TestCLIExportNeedsTarget(t *testing.T) {
	t.Parallel()
	in := writeFile(t, t.TempDir(), "a.csv", "a\n1\n")
	_, _, err := runCLI(t, "export", in, "--kind", "sqlite")
	if err == nil || !strings.Contains(err.Error(), "--dsn") {
		t.Fatalf("err=%v", err)
	}
}

func TestCLIExportUnknownKind(t *testing.T) {
	t.Parallel()
	in := writeFile(t, t.TempDir(), "a.csv", "a\n1\n")
	_, _, err := runCLI(t, "export", in, "--kind", "oracle", "--dsn", "x", "--table", "t")
	if err == nil || !strings.Contains(err.Error(), "capability unavailable") {
		t.Fatalf("err=%v", err)
	}
}

func TestDecodeDelimiter(t *testing.T) {
	t.Parallel()
	cases := map[string]rune{`\t`: '\t', "tab": '\t', "pipe": '|', ";": ';', "comma": ','}
	for in, want := range cases {
		if got := decodeDelimiter(in); got != want {
			t.Errorf("decodeDelimiter(%q)=%q want %q", in, got, want)
		}
	}
}
