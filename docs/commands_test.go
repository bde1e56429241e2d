package docs_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brcarteira/carteira/cmd"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Block is a fenced bash block of a topic.
type Block struct {
	Content string
	File    string
}

// parseMarkdown returns the bash blocks of file.
func parseMarkdown(t *testing.T, file string) []Block {
	t.Helper()
	content, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("failed to read %s: %v", file, err)
	}
	root := goldmark.DefaultParser().Parse(text.NewReader(content))

	var blocks []Block
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fcb, ok := n.(*ast.FencedCodeBlock)
		if !ok || fcb.Info == nil || string(fcb.Info.Segment.Value(content)) != "bash" {
			return ast.WalkContinue, nil
		}
		var b strings.Builder
		for i := 0; i < fcb.Lines().Len(); i++ {
			line := fcb.Lines().At(i)
			b.Write(line.Value(content))
		}
		blocks = append(blocks, Block{Content: b.String(), File: file})
		return ast.WalkContinue, nil
	})
	return blocks
}

// TestDocumentedCommands checks that every command used in the topics exists.
func TestDocumentedCommands(t *testing.T) {
	known := make(map[string]bool)
	for _, c := range cmd.Commands() {
		known[c.Name()] = true
	}

	files, err := filepath.Glob("*.md")
	if err != nil {
		t.Fatal(err)
	}
	var seen int
	for _, file := range files {
		for _, block := range parseMarkdown(t, file) {
			for _, line := range strings.Split(block.Content, "\n") {
				fields := strings.Fields(line)
				if len(fields) < 2 || fields[0] != "carteira" {
					continue
				}
				seen++
				if !known[fields[1]] {
					t.Errorf("%s: unknown command %q in %q", block.File, fields[1], line)
				}
			}
		}
	}
	if seen == 0 {
		t.Error("no documented command found")
	}
}
