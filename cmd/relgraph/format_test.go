package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"
)

// captureStdout replaces os.Stdout with a pipe, calls f, then returns the
// captured output and restores os.Stdout. It is NOT safe for parallel use
// because os.Stdout is a package-level variable.
func captureStdout(t *testing.T, f func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w

	done := make(chan struct{})
	var buf bytes.Buffer
	go func() {
		io.Copy(&buf, r) //nolint:errcheck
		close(done)
	}()

	f()

	w.Close()
	<-done
	os.Stdout = orig
	r.Close()
	return buf.String()
}

func TestFormatJSON(t *testing.T) {
	type sample struct {
		ID    string  `json:"id"`
		Score float64 `json:"score"`
	}
	got := captureStdout(t, func() { formatJSON(sample{ID: "hub", Score: 0.5}) })

	var out sample
	if err := json.Unmarshal([]byte(got), &out); err != nil {
		t.Fatalf("output is not valid JSON: %v\noutput: %s", err, got)
	}
	if out.ID != "hub" || out.Score != 0.5 {
		t.Errorf("got %+v", out)
	}
	if !strings.Contains(got, "\n  ") {
		t.Errorf("expected indented JSON but got: %s", got)
	}
}

func TestFormatTable(t *testing.T) {
	headers := []string{"RANK", "NODE", "SCORE"}
	rows := [][]string{
		{"1", "hub", "1.000000"},
		{"2", "a-much-longer-node-id", "0.250000"},
	}

	got := captureStdout(t, func() { formatTable(headers, rows) })
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")

	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), got)
	}
	for _, h := range headers {
		if !strings.Contains(lines[0], h) {
			t.Errorf("header line missing %q: %s", h, lines[0])
		}
	}
	for _, ch := range strings.TrimSpace(lines[1]) {
		if ch != '-' && ch != ' ' {
			t.Errorf("separator contains unexpected char %q: %s", ch, lines[1])
		}
	}
	if len(lines[2]) != len(lines[3]) {
		t.Errorf("row widths differ: %d vs %d\n%s\n%s", len(lines[2]), len(lines[3]), lines[2], lines[3])
	}
}

func TestFormatTableEmpty(t *testing.T) {
	got := captureStdout(t, func() { formatTable([]string{"ID", "SIZE"}, nil) })
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines (header + separator), got %d:\n%s", len(lines), got)
	}
}

func TestOutputTable(t *testing.T) {
	orig := flagFmt
	defer func() { flagFmt = orig }()

	v := map[string]string{"x": "y"}

	flagFmt = "table"
	got := captureStdout(t, func() { outputTable(v, []string{"X"}, [][]string{{"y"}}) })
	if !strings.HasPrefix(got, "X") {
		t.Errorf("expected table output, got %q", got)
	}

	flagFmt = "json"
	got = captureStdout(t, func() { outputTable(v, []string{"X"}, [][]string{{"y"}}) })
	var out map[string]string
	if err := json.Unmarshal([]byte(got), &out); err != nil {
		t.Fatalf("expected JSON output: %v\noutput: %s", err, got)
	}
}

func TestOutputIgnoresTable(t *testing.T) {
	orig := flagFmt
	defer func() { flagFmt = orig }()

	flagFmt = "table"
	got := captureStdout(t, func() { output(map[string]int{"hops": 2}) })

	var out map[string]int
	if err := json.Unmarshal([]byte(got), &out); err != nil {
		t.Fatalf("expected JSON fallback for table format: %v\noutput: %s", err, got)
	}
}

func TestVersionString(t *testing.T) {
	if s := versionString(); !strings.HasPrefix(s, "relgraph version ") {
		t.Errorf("got %q", s)
	}
}
