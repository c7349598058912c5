package docs

import (
	"slices"
	"strings"
	"testing"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

func TestIndex(t *testing.T) {
	// Every topic of the readme exists, and every topic file is in the readme.
	index, err := Index()
	if err != nil {
		t.Fatal(err)
	}
	names, err := Names()
	if err != nil {
		t.Fatal(err)
	}
	var listed []string
	for _, topic := range index {
		listed = append(listed, topic.Name)
		if topic.Summary == "" {
			t.Errorf("topic %q has no summary in readme.md", topic.Name)
		}
	}
	slices.Sort(listed)
	if strings.Join(listed, ",") != strings.Join(names, ",") {
		t.Errorf("readme.md lists %v, topic files are %v", listed, names)
	}
}

func TestGet(t *testing.T) {
	all, err := Get("*")
	if err != nil {
		t.Fatal(err)
	}
	one, err := Get("spreads")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(all, one) {
		t.Errorf("Get(*) does not contain the spreads topic")
	}
	if _, err := Get("nope"); err == nil {
		t.Errorf("Get(nope) succeeded")
	}
	if readme, _ := Get(); !strings.HasPrefix(readme, "# tradejournal documentation") {
		t.Errorf("Get() = %.40q, want the readme", readme)
	}
}

// TestStructure checks that every topic has a single title and that code
// blocks declare their language.
func TestStructure(t *testing.T) {
	names, _ := Names()
	for _, name := range append(names, "readme") {
		t.Run(name, func(t *testing.T) {
			content, err := docs.ReadFile(name + ".md")
			if err != nil {
				t.Fatal(err)
			}
			root := goldmark.New(goldmark.WithExtensions(extension.Table)).Parser().Parse(text.NewReader(content))
			titles := 0
			ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
				if !entering {
					return ast.WalkContinue, nil
				}
				switch n := n.(type) {
				case *ast.Heading:
					if n.Level == 1 {
						titles++
					}
				case *ast.FencedCodeBlock:
					if n.Info == nil {
						t.Errorf("%s: fenced code block without language", name)
					}
				}
				return ast.WalkContinue, nil
			})
			if titles != 1 {
				t.Errorf("%s has %d titles, want 1", name, titles)
			}
		})
	}
}
