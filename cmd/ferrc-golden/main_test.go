package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ferrite-lang/ferrc/pkg/config"
	"github.com/nalgeon/be"
)

const okSource = "fn main() -> int { return 7; }\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	be.Err(t, os.WriteFile(path, []byte(content), 0644), nil)
	return path
}

func statuses(results []*FileResult) map[string]string {
	m := make(map[string]string)
	for _, r := range results {
		m[filepath.Base(r.File)] = r.Status
	}
	return m
}

func TestSnapshot(t *testing.T) {
	cfg := config.NewConfig()

	snap := snapshot(cfg, []byte(okSource))
	be.Equal(t, snap.Hash, hashSource([]byte(okSource)))
	be.True(t, strings.Contains(snap.Asm, "fn_main:"))
	be.Equal(t, snap.ErrorKind, "")

	snap = snapshot(cfg, []byte("fn main() -> int { return 1 + true; }"))
	be.Equal(t, snap.Asm, "")
	be.Equal(t, snap.ErrorKind, "WrongBinaryExpressionTypes")

	snap = snapshot(cfg, []byte("fn main() -> int { let x = 1; if true { let x = 2; } return x; }"))
	be.Equal(t, len(snap.Warnings), 1)
	be.True(t, strings.HasPrefix(snap.Warnings[0], "shadow: "))
}

func TestCompareSnapshots(t *testing.T) {
	golden := &Snapshot{Hash: "a", Asm: "push 1\n"}

	res := compareSnapshots("x.fe", golden, &Snapshot{Hash: "b", Asm: "push 1\n"})
	be.Equal(t, res.Status, "PASS")

	res = compareSnapshots("x.fe", golden, &Snapshot{Hash: "b", Asm: "push 2\n"})
	be.Equal(t, res.Status, "FAIL")
	be.True(t, strings.Contains(res.Message, "source changed"))
	be.True(t, strings.Contains(res.Diff, "push 2"))

	res = compareSnapshots("x.fe", golden, &Snapshot{Hash: "a", ErrorKind: "WrongType"})
	be.Equal(t, res.Status, "FAIL")
	be.True(t, !strings.Contains(res.Message, "source changed"))
}

func TestRunSuite(t *testing.T) {
	cfg := config.NewConfig()
	dir := t.TempDir()
	writeFile(t, dir, "a.fe", okSource)
	writeFile(t, dir, "b.fe", okSource)
	writeFile(t, dir, "c.fe", "fn main() -> int { return x; }\n")
	writeFile(t, dir, "skipped.fe", "fn main() { }\n")

	opts := options{
		patterns: []string{filepath.Join(dir, "*.fe")},
		skip:     []string{filepath.Join(dir, "skipped.fe")},
		jobs:     2,
	}

	// Without snapshots nothing can be checked.
	results, err := runSuite(cfg, opts)
	be.Err(t, err, nil)
	be.Equal(t, statuses(results), map[string]string{
		"a.fe": "SKIP", "b.fe": "SKIP", "c.fe": "SKIP", "skipped.fe": "SKIP",
	})
	be.True(t, !hasFailures(results))

	update := opts
	update.update = true
	results, err = runSuite(cfg, update)
	be.Err(t, err, nil)
	be.Equal(t, statuses(results)["a.fe"], "UPDATE")
	be.Equal(t, statuses(results)["c.fe"], "UPDATE")

	data, err := os.ReadFile(goldenPath(filepath.Join(dir, "c.fe"), ""))
	be.Err(t, err, nil)
	var stored Snapshot
	be.Err(t, json.Unmarshal(data, &stored), nil)
	be.Equal(t, stored.ErrorKind, "UndefinedVariable")

	results, err = runSuite(cfg, opts)
	be.Err(t, err, nil)
	got := statuses(results)
	be.Equal(t, got["a.fe"], "PASS")
	be.Equal(t, got["b.fe"], "SKIP")
	be.Equal(t, got["c.fe"], "PASS")

	// A changed compiler result shows up as a failure with a diff.
	writeFile(t, dir, "c.fe", "fn main() -> int { return 3; }\n")
	results, err = runSuite(cfg, opts)
	be.Err(t, err, nil)
	be.True(t, hasFailures(results))
	be.Equal(t, statuses(results)["c.fe"], "FAIL")

	var out bytes.Buffer
	printSummary(&out, results, false)
	be.True(t, strings.Contains(out.String(), "c.fe"))
	be.True(t, !strings.Contains(out.String(), "a.fe"))
	be.True(t, strings.Contains(out.String(), "1 failed"))
}

func TestGoldenPathAndReport(t *testing.T) {
	be.Equal(t, goldenPath("tests/fib.fe", ""), filepath.Join("tests", ".fib.fe.json"))
	be.Equal(t, goldenPath("tests/fib.fe", "snaps"), filepath.Join("snaps", ".fib.fe.json"))

	report := filepath.Join(t.TempDir(), "report.json")
	be.Err(t, writeReport(report, []*FileResult{{File: "a.fe", Status: "PASS"}}), nil)
	data, err := os.ReadFile(report)
	be.Err(t, err, nil)
	be.True(t, strings.Contains(string(data), `"status": "PASS"`))
	be.Err(t, writeReport("", nil), nil)

	_, err = expandGlobPatterns([]string{"["})
	be.Err(t, err, "bad pattern")
}
