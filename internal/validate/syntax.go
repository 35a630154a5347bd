package validate

import (
	"context"
	"fmt"
	"regexp"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"

	"github.com/xkilldash9x/synapse/internal/adapters"
)

// ecmaMarker decides whether refactored code is checked at all.
var ecmaMarker = regexp.MustCompile(`\bfunction\b|\bconst\b`)

// grammars are tried in order; the code is accepted if any of them parses it cleanly.
var grammars = []struct {
	name string
	lang *sitter.Language
}{
	{"javascript", javascript.GetLanguage()},
	{"tsx", tsx.GetLanguage()},
}

// maxDepth bounds the error search on pathological trees.
const maxDepth = 1000

// NeedsSyntaxCheck reports whether code should go through the syntax check.
// Only JavaScript and React output is parsed; other families have no grammar here.
func NeedsSyntaxCheck(family adapters.Family, code string) bool {
	return family == adapters.FamilyECMAScript && ecmaMarker.MatchString(code)
}

// CheckSyntax parses code as modern JavaScript (modules and JSX), then as TSX.
// It returns nil if either grammar accepts it, the first grammar's *SyntaxError
// if neither does, or the context error if the parse was cancelled.
func CheckSyntax(ctx context.Context, code string) error {
	src := []byte(code)
	var first *SyntaxError

	for _, g := range grammars {
		serr, err := parseWith(ctx, g.lang, src)
		if err != nil {
			return fmt.Errorf("%s parse aborted: %w", g.name, err)
		}
		if serr == nil {
			return nil
		}
		if first == nil {
			first = serr
		}
	}
	return first
}

func parseWith(ctx context.Context, lang *sitter.Language, src []byte) (*SyntaxError, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil, nil
	}
	if serr := firstError(root, src, 0); serr != nil {
		return serr, nil
	}
	// HasError was set but no ERROR or MISSING node was reachable within maxDepth.
	p := root.StartPoint()
	return &SyntaxError{Line: int(p.Row) + 1, Column: int(p.Column), Message: "Syntax error"}, nil
}

// firstError walks the tree depth first and returns the first ERROR or MISSING node.
func firstError(node *sitter.Node, src []byte, depth int) *SyntaxError {
	if node == nil || depth > maxDepth {
		return nil
	}
	if node.IsError() || node.IsMissing() {
		p := node.StartPoint()
		return &SyntaxError{
			Line:    int(p.Row) + 1,
			Column:  int(p.Column),
			Message: describe(node, src),
		}
	}
	if !node.HasError() {
		return nil
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if serr := firstError(node.Child(i), src, depth+1); serr != nil {
			return serr
		}
	}
	return nil
}

func describe(node *sitter.Node, src []byte) string {
	if node.IsMissing() {
		return fmt.Sprintf("Missing '%s'", node.Type())
	}
	start, end := node.StartByte(), node.EndByte()
	if end > uint32(len(src)) {
		end = uint32(len(src))
	}
	if end > start && end-start < 100 {
		return fmt.Sprintf("Unexpected token: %s", truncate(string(src[start:end]), 50))
	}
	return "Unexpected token"
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
