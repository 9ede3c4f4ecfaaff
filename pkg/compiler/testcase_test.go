package compiler

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	mdast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Fence languages understood in testdata/*.md. A test starts at a heading
// "Test: <name>", has one ferrite fence and at least one assertion fence.
const (
	fenceSource      = "ferrite"
	fenceAsmContains = "asm-contains"
	fenceIRMain      = "ir-main"
	fenceError       = "error"
	fenceWarnings    = "warnings"
)

type assertion struct {
	kind    string
	content string
	line    int
}

type testCase struct {
	name       string
	source     string
	assertions []assertion
}

func isAssertionFence(lang string) bool {
	switch lang {
	case fenceAsmContains, fenceIRMain, fenceError, fenceWarnings:
		return true
	}
	return false
}

func extractTestCases(markdown string) ([]testCase, error) {
	src := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var cases []testCase
	var cur *testCase
	finish := func() error {
		if cur == nil {
			return nil
		}
		if cur.source == "" {
			return fmt.Errorf("test '%s' has no %s fence", cur.name, fenceSource)
		}
		if len(cur.assertions) == 0 {
			return fmt.Errorf("test '%s' has no assertion fences", cur.name)
		}
		cases = append(cases, *cur)
		return nil
	}

	err := mdast.Walk(doc, func(node mdast.Node, entering bool) (mdast.WalkStatus, error) {
		if !entering {
			return mdast.WalkContinue, nil
		}
		switch n := node.(type) {
		case *mdast.Heading:
			heading := nodeText(n, src)
			if !strings.HasPrefix(heading, "Test: ") {
				return mdast.WalkContinue, nil
			}
			if err := finish(); err != nil {
				return mdast.WalkStop, err
			}
			cur = &testCase{name: strings.TrimPrefix(heading, "Test: ")}

		case *mdast.FencedCodeBlock:
			lang := string(n.Language(src))
			line := lineOf(n, src)
			if cur == nil {
				if lang != "" {
					return mdast.WalkStop, fmt.Errorf("line %d: %s fence outside of a test", line, lang)
				}
				return mdast.WalkContinue, nil
			}
			content := strings.TrimRight(fenceContent(n, src), "\n")
			switch {
			case lang == fenceSource:
				if cur.source != "" {
					return mdast.WalkStop, fmt.Errorf("line %d: second %s fence in test '%s'", line, fenceSource, cur.name)
				}
				cur.source = content
			case isAssertionFence(lang):
				cur.assertions = append(cur.assertions, assertion{kind: lang, content: content, line: line})
			case lang != "":
				return mdast.WalkStop, fmt.Errorf("line %d: unknown fence language '%s' in test '%s'", line, lang, cur.name)
			}
		}
		return mdast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	if err := finish(); err != nil {
		return nil, err
	}
	return cases, nil
}

func nodeText(node mdast.Node, src []byte) string {
	var buf bytes.Buffer
	mdast.Walk(node, func(n mdast.Node, entering bool) (mdast.WalkStatus, error) {
		if t, ok := n.(*mdast.Text); ok && entering {
			buf.Write(t.Segment.Value(src))
		}
		return mdast.WalkContinue, nil
	})
	return buf.String()
}

func fenceContent(block *mdast.FencedCodeBlock, src []byte) string {
	var buf bytes.Buffer
	for i := 0; i < block.Lines().Len(); i++ {
		seg := block.Lines().At(i)
		buf.Write(seg.Value(src))
	}
	return buf.String()
}

func lineOf(node mdast.Node, src []byte) int {
	if node.Lines().Len() == 0 {
		return 1
	}
	return bytes.Count(src[:node.Lines().At(0).Start], []byte("\n")) + 1
}
