// ferrc-golden compiles every matching source file in-process and compares
// the produced assembly, diagnostics and warnings with a JSON snapshot
// stored next to the source as .<name>.json.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/ferrite-lang/ferrc/pkg/cli"
	"github.com/ferrite-lang/ferrc/pkg/compiler"
	"github.com/ferrite-lang/ferrc/pkg/config"
	"github.com/ferrite-lang/ferrc/pkg/util"
	"github.com/google/go-cmp/cmp"
)

// Snapshot is what one compilation produced.
type Snapshot struct {
	Hash         string   `json:"hash"`
	Asm          string   `json:"asm,omitempty"`
	ErrorKind    string   `json:"error_kind,omitempty"`
	ErrorMessage string   `json:"error_message,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}

type FileResult struct {
	File     string        `json:"file"`
	Status   string        `json:"status"` // PASS, FAIL, SKIP, ERROR, UPDATE
	Message  string        `json:"message,omitempty"`
	Diff     string        `json:"diff,omitempty"`
	Duration time.Duration `json:"duration"`
	Golden   *Snapshot     `json:"golden,omitempty"`
	Actual   *Snapshot     `json:"actual,omitempty"`
}

type options struct {
	patterns []string
	skip     []string
	dir      string
	report   string
	jobs     int
	update   bool
	verbose  bool
}

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

func main() {
	app := cli.NewApp("ferrc-golden")
	app.Synopsis = "[options] [pattern...]"
	app.Description = "Checks compiler output against stored JSON snapshots."

	var opts options
	fs := app.FlagSet
	fs.List(&opts.skip, "skip", "s", nil, "Skip <file>.", "file")
	fs.String(&opts.dir, "dir", "d", "", "Directory holding the snapshots (default: next to each source).", "dir")
	fs.String(&opts.report, "output", "o", ".golden_results.json", "Write the JSON report to <file>.", "file")
	fs.Int(&opts.jobs, "jobs", "j", 4, "Number of parallel jobs.", "n")
	fs.Bool(&opts.update, "update", "u", false, "Rewrite snapshots from the current output.")
	fs.Bool(&opts.verbose, "verbose", "v", false, "Print every result, not just failures.")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(args []string) error {
		cfg.ApplyFlagGroups(warningFlags, featureFlags)
		opts.patterns = args
		if len(opts.patterns) == 0 {
			opts.patterns = []string{"tests/*.fe"}
		}
		results, err := runSuite(cfg, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s[ERROR]%s %v\n", cRed, cNone, err)
			return err
		}
		printSummary(os.Stdout, results, opts.verbose)
		if err := writeReport(opts.report, results); err != nil {
			fmt.Fprintf(os.Stderr, "%s[WARN]%s could not write report: %v\n", cYellow, cNone, err)
		}
		if hasFailures(results) {
			return fmt.Errorf("snapshot mismatch")
		}
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

func goldenPath(source, dir string) string {
	name := "." + filepath.Base(source) + ".json"
	if dir != "" {
		return filepath.Join(dir, name)
	}
	return filepath.Join(filepath.Dir(source), name)
}

func hashSource(content []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(content))
}

// snapshot runs the pipeline on content. Compile errors are part of the
// snapshot, not failures of the runner.
func snapshot(cfg *config.Config, content []byte) *Snapshot {
	snap := &Snapshot{Hash: hashSource(content)}
	res, err := compiler.Compile(string(content), cfg)
	for _, w := range res.Warnings {
		snap.Warnings = append(snap.Warnings, w.Name+": "+w.Msg)
	}
	if err != nil {
		if kind, ok := util.KindOf(err); ok {
			snap.ErrorKind = kind.String()
		}
		snap.ErrorMessage = err.Error()
		return snap
	}
	snap.Asm = res.Asm
	return snap
}

func compareSnapshots(file string, golden, actual *Snapshot) *FileResult {
	result := &FileResult{File: file, Golden: golden, Actual: actual}
	// The hash only tells whether the source moved under the snapshot.
	diff := cmp.Diff(golden, actual, cmp.FilterPath(func(p cmp.Path) bool {
		return p.Last().String() == ".Hash"
	}, cmp.Ignore()))
	if diff != "" {
		result.Status = "FAIL"
		result.Message = "Output differs from snapshot"
		if golden.Hash != actual.Hash {
			result.Message += " (source changed since the snapshot was taken)"
		}
		result.Diff = diff
		return result
	}
	result.Status = "PASS"
	result.Message = "Output matches snapshot"
	return result
}

func testFile(cfg *config.Config, file string, content []byte, opts options) *FileResult {
	start := time.Now()
	actual := snapshot(cfg, content)
	path := goldenPath(file, opts.dir)

	var result *FileResult
	if opts.update {
		result = &FileResult{File: file, Status: "UPDATE", Message: "Snapshot written to " + path, Actual: actual}
		if err := writeSnapshot(path, actual); err != nil {
			result = &FileResult{File: file, Status: "ERROR", Message: err.Error()}
		}
	} else {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			result = &FileResult{File: file, Status: "SKIP", Message: "No snapshot; run with --update", Actual: actual}
		case err != nil:
			result = &FileResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not read snapshot %s: %v", path, err)}
		default:
			var golden Snapshot
			if err := json.Unmarshal(data, &golden); err != nil {
				result = &FileResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not parse snapshot %s: %v", path, err)}
			} else {
				result = compareSnapshots(file, &golden, actual)
			}
		}
	}
	result.Duration = time.Since(start)
	return result
}

func writeSnapshot(path string, snap *Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

func runSuite(cfg *config.Config, opts options) ([]*FileResult, error) {
	files, err := expandGlobPatterns(opts.patterns)
	if err != nil {
		return nil, err
	}
	if opts.jobs < 1 {
		opts.jobs = 1
	}

	skipList := make(map[string]bool)
	for _, f := range opts.skip {
		skipList[f] = true
	}

	type task struct {
		file    string
		content []byte
	}
	tasks := make(chan task, len(files))
	results := make(chan *FileResult, len(files))
	var wg sync.WaitGroup

	for i := 0; i < opts.jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				results <- testFile(cfg, t.file, t.content, opts)
			}
		}()
	}

	// Identical sources are compiled once.
	seen := make(map[uint64]string)
	for _, file := range files {
		if skipList[file] {
			results <- &FileResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		content, err := os.ReadFile(file)
		if err != nil {
			results <- &FileResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to read file: %v", err)}
			continue
		}
		sum := xxhash.Sum64(content)
		if original, ok := seen[sum]; ok {
			results <- &FileResult{File: file, Status: "SKIP", Message: fmt.Sprintf("Content is identical to %s", original)}
			continue
		}
		seen[sum] = file
		tasks <- task{file, content}
	}
	close(tasks)
	wg.Wait()
	close(results)

	var all []*FileResult
	for r := range results {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].File < all[j].File })
	return all, nil
}

func expandGlobPatterns(patterns []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	return files, nil
}

func printSummary(w io.Writer, results []*FileResult, verbose bool) {
	counts := make(map[string]int)
	for _, r := range results {
		counts[r.Status]++
		color := cGreen
		switch r.Status {
		case "FAIL", "ERROR":
			color = cRed
		case "SKIP":
			color = cYellow
		case "UPDATE":
			color = cCyan
		}
		if !verbose && (r.Status == "PASS" || r.Status == "SKIP") {
			continue
		}
		fmt.Fprintf(w, "%s[%s]%s %s: %s (%s)\n", color, r.Status, cNone, r.File, r.Message, r.Duration.Round(time.Microsecond))
		if r.Diff != "" {
			for _, line := range strings.Split(strings.TrimRight(r.Diff, "\n"), "\n") {
				fmt.Fprintf(w, "    %s\n", line)
			}
		}
	}
	fmt.Fprintf(w, "\n%s%d files:%s %s%d passed%s, %s%d failed%s, %d skipped, %d updated, %d errors\n",
		cBold, len(results), cNone,
		cGreen, counts["PASS"], cNone,
		cRed, counts["FAIL"], cNone,
		counts["SKIP"], counts["UPDATE"], counts["ERROR"])
}

func writeReport(path string, results []*FileResult) error {
	if path == "" {
		return nil
	}
	byFile := make(map[string]*FileResult, len(results))
	for _, r := range results {
		byFile[r.File] = r
	}
	data, err := json.MarshalIndent(byFile, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func hasFailures(results []*FileResult) bool {
	for _, r := range results {
		if r.Status == "FAIL" || r.Status == "ERROR" {
			return true
		}
	}
	return false
}
