// Package parser turns source files into language-neutral syntax trees.
//
// Each supported language is parsed with its tree-sitter grammar and converted
// into a generic Node tree. A LanguageConfig per language names the node kinds
// that are functions, types and value-carrying leaves, so the rest of the
// similarity engine never needs to know which language it is looking at.
//
// Basic usage:
//
//	p, err := parser.NewParserForFile("utils.ts")
//	if err != nil {
//	    // unsupported extension
//	}
//	parsed, err := p.ParseSource(ctx, source, "utils.ts")
//	for _, fn := range parsed.Functions {
//	    body := parsed.BodyNode(fn.BodySpan)
//	    ...
//	}
package parser
