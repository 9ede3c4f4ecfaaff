package compiler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ferrite-lang/ferrc/pkg/config"
	"github.com/ferrite-lang/ferrc/pkg/ir"
	"github.com/ferrite-lang/ferrc/pkg/util"
	"github.com/google/go-cmp/cmp"
	"github.com/nalgeon/be"
)

func TestTestdata(t *testing.T) {
	files, err := filepath.Glob("testdata/*.md")
	be.Err(t, err, nil)
	be.True(t, len(files) > 0)

	for _, file := range files {
		t.Run(strings.TrimSuffix(filepath.Base(file), ".md"), func(t *testing.T) {
			content, err := os.ReadFile(file)
			be.Err(t, err, nil)
			cases, err := extractTestCases(string(content))
			be.Err(t, err, nil)

			for _, tc := range cases {
				t.Run(tc.name, func(t *testing.T) {
					res, err := Compile(tc.source, config.NewConfig())
					for _, a := range tc.assertions {
						checkAssertion(t, a, res, err)
					}
				})
			}
		})
	}
}

func checkAssertion(t *testing.T, a assertion, res *Result, err error) {
	t.Helper()
	switch a.kind {
	case fenceError:
		if err == nil {
			t.Fatalf("line %d: expected an error, compilation succeeded", a.line)
		}
		want := strings.SplitN(a.content, "\n", 2)
		kind, ok := util.KindOf(err)
		be.True(t, ok)
		be.Equal(t, kind.String(), strings.TrimSpace(want[0]))
		if len(want) == 2 {
			msg := strings.TrimSpace(want[1])
			if !strings.Contains(err.Error(), msg) {
				t.Errorf("line %d: error %q does not mention %q", a.line, err, msg)
			}
		}
		return
	}

	if err != nil {
		t.Fatalf("line %d: unexpected error: %v", a.line, err)
	}
	switch a.kind {
	case fenceAsmContains:
		var want []string
		for _, l := range strings.Split(a.content, "\n") {
			if l = strings.TrimSpace(l); l != "" {
				want = append(want, l)
			}
		}
		if !containsInOrder(asmLines(res.Asm), want) {
			t.Errorf("line %d: assembly does not contain, in order:\n%s\n\ngot:\n%s", a.line, strings.Join(want, "\n"), res.Asm)
		}
	case fenceIRMain:
		main := res.IR.FindFunc("main")
		be.True(t, main != nil)
		var got []string
		main.Body.Each(func(p ir.Procedure) { got = append(got, ir.Format(p)) })
		want := strings.Split(a.content, "\n")
		for i := range want {
			want[i] = strings.TrimSpace(want[i])
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("line %d: main procedures mismatch (-want +got):\n%s", a.line, diff)
		}
	case fenceWarnings:
		var got []string
		for _, w := range res.Warnings {
			got = append(got, w.Name)
		}
		var want []string
		for _, l := range strings.Split(a.content, "\n") {
			if l = strings.TrimSpace(l); l != "" {
				want = append(want, l)
			}
		}
		be.Equal(t, got, want)
	}
}

func asmLines(asm string) []string {
	var out []string
	for _, l := range strings.Split(asm, "\n") {
		if i := strings.Index(l, "#"); i >= 0 {
			l = l[:i]
		}
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// containsInOrder reports whether want appears in got as a subsequence.
func containsInOrder(got, want []string) bool {
	i := 0
	for _, l := range got {
		if i < len(want) && l == want[i] {
			i++
		}
	}
	return i == len(want)
}

func TestProgressOrder(t *testing.T) {
	var stages []util.Stage
	res, err := CompileWithProgress("fn main() -> int { return 0; }", config.NewConfig(), func(s util.Stage) {
		stages = append(stages, s)
	})
	be.Err(t, err, nil)
	be.Equal(t, stages, []util.Stage{util.StageLex, util.StageParse, util.StageResolve, util.StageCodegen})
	be.True(t, res.Asm != "")
	be.Equal(t, len(res.IR.Functions), 1)
}

func TestPartialResults(t *testing.T) {
	res, err := Compile("let x = @;", config.NewConfig())
	be.True(t, err != nil)
	be.True(t, res != nil)
	be.True(t, res.Tokens == nil)

	res, err = Compile("let x = ;", config.NewConfig())
	kind, _ := util.KindOf(err)
	be.Equal(t, kind, util.Expected)
	be.True(t, len(res.Tokens) > 0)
	be.True(t, res.AST == nil)

	res, err = Compile("fn main() -> int { return y; }", config.NewConfig())
	kind, _ = util.KindOf(err)
	be.Equal(t, kind, util.UndefinedVariable)
	be.True(t, res.AST != nil)
	be.True(t, res.IR == nil)

	res, err = Compile("fn main() -> int { return sys_nope(); }", config.NewConfig())
	kind, _ = util.KindOf(err)
	be.Equal(t, kind, util.UnknownSystemCall)
	be.True(t, res.IR != nil)
	be.Equal(t, res.Asm, "")
}

func TestExtractTestCasesErrors(t *testing.T) {
	tests := []struct {
		name string
		md   string
		want string
	}{
		{"fence outside test", "```ferrite\nx\n```\n", "outside of a test"},
		{"no source", "## Test: a\n\n```error\nWrongType\n```\n", "no ferrite fence"},
		{"no assertion", "## Test: a\n\n```ferrite\nx\n```\n", "no assertion fences"},
		{"unknown fence", "## Test: a\n\n```ferrite\nx\n```\n\n```ast\n()\n```\n", "unknown fence language 'ast'"},
		{"two sources", "## Test: a\n\n```ferrite\nx\n```\n\n```ferrite\ny\n```\n", "second ferrite fence"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := extractTestCases(tc.md)
			be.True(t, err != nil)
			be.True(t, strings.Contains(err.Error(), tc.want))
		})
	}

	cases, err := extractTestCases("# Notes\n\n```\nplain\n```\n\n## Test: one\n\n```ferrite\nfn main() { }\n```\n\n```warnings\n```\n")
	be.Err(t, err, nil)
	be.Equal(t, len(cases), 1)
	be.Equal(t, cases[0].name, "one")
	be.Equal(t, cases[0].source, "fn main() { }")
}
