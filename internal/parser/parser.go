package parser

import (
	"context"
	"fmt"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/ludo-technologies/simscan/domain"
)

const anonymousName = "anonymous"

// LanguageParser is a language front end producing generic trees and definitions
type LanguageParser interface {
	// Language returns the language handled by the parser
	Language() Language

	// Parse parses source code into a generic tree
	Parse(ctx context.Context, source []byte) (*Node, error)

	// ExtractFunctions returns the function-like definitions in source
	ExtractFunctions(ctx context.Context, source []byte, filename string) ([]domain.FunctionDefinition, error)

	// ExtractTypes returns the type-like definitions in source
	ExtractTypes(ctx context.Context, source []byte, filename string) ([]domain.TypeDefinition, error)
}

// ParsedFile is one source file parsed once, with everything extracted from it
type ParsedFile struct {
	Path      string
	Language  Language
	Source    []byte
	Root      *Node
	Functions []domain.FunctionDefinition
	Types     []domain.TypeDefinition
}

// BodyNode returns the subtree of the file covering the given definition body
func (f *ParsedFile) BodyNode(span domain.Span) *Node {
	if f.Root == nil {
		return nil
	}
	return f.Root.FindBySpan(span.Start, span.End)
}

// TreeSitterParser implements LanguageParser on top of tree-sitter grammars
type TreeSitterParser struct {
	language Language
	grammar  *sitter.Language
	config   *LanguageConfig
}

// NewTreeSitterParser creates a parser for the given language
func NewTreeSitterParser(lang Language) (*TreeSitterParser, error) {
	grammar := grammarFor(lang)
	config, ok := ConfigFor(lang)
	if grammar == nil || !ok {
		return nil, domain.NewInvalidInputError(fmt.Sprintf("unsupported language: %s", lang), nil)
	}
	return &TreeSitterParser{
		language: lang,
		grammar:  grammar,
		config:   config,
	}, nil
}

// NewParserForFile creates a parser chosen by the file extension
func NewParserForFile(filename string) (*TreeSitterParser, error) {
	lang, ok := DetectLanguage(filename)
	if !ok {
		return nil, domain.NewInvalidInputError(fmt.Sprintf("unsupported file type: %s", filename), nil)
	}
	return NewTreeSitterParser(lang)
}

// Language returns the language handled by the parser
func (p *TreeSitterParser) Language() Language {
	return p.language
}

// Config returns the language configuration
func (p *TreeSitterParser) Config() *LanguageConfig {
	return p.config
}

// Parse parses source code and converts it into a generic tree
func (p *TreeSitterParser) Parse(ctx context.Context, source []byte) (*Node, error) {
	root, err := p.parseTree(ctx, source, "")
	if err != nil {
		return nil, err
	}
	return convertNode(root, source, p.config), nil
}

// ExtractFunctions returns the function-like definitions in source
func (p *TreeSitterParser) ExtractFunctions(ctx context.Context, source []byte, filename string) ([]domain.FunctionDefinition, error) {
	parsed, err := p.ParseSource(ctx, source, filename)
	if err != nil {
		return nil, err
	}
	return parsed.Functions, nil
}

// ExtractTypes returns the type-like definitions in source
func (p *TreeSitterParser) ExtractTypes(ctx context.Context, source []byte, filename string) ([]domain.TypeDefinition, error) {
	parsed, err := p.ParseSource(ctx, source, filename)
	if err != nil {
		return nil, err
	}
	return parsed.Types, nil
}

// ParseFile reads and parses a file from disk
func (p *TreeSitterParser) ParseFile(ctx context.Context, filename string) (*ParsedFile, error) {
	source, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return p.ParseSource(ctx, source, filename)
}

// ParseSource parses source once and extracts both functions and types
func (p *TreeSitterParser) ParseSource(ctx context.Context, source []byte, filename string) (*ParsedFile, error) {
	tsRoot, err := p.parseTree(ctx, source, filename)
	if err != nil {
		return nil, err
	}

	root := convertNode(tsRoot, source, p.config)
	ex := &extractor{
		config:   p.config,
		source:   source,
		filename: filename,
		root:     root,
	}
	ex.walk(tsRoot, nil)

	return &ParsedFile{
		Path:      filename,
		Language:  p.language,
		Source:    source,
		Root:      root,
		Functions: ex.functions,
		Types:     ex.types,
	}, nil
}

func (p *TreeSitterParser) parseTree(ctx context.Context, source []byte, filename string) (*sitter.Node, error) {
	// sitter.Parser is not safe for concurrent use, so every call gets its own
	tsParser := sitter.NewParser()
	tsParser.SetLanguage(p.grammar)

	tree, err := tsParser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, domain.NewParseError(filename, fmt.Errorf("failed to parse source: %w", err))
	}

	root := tree.RootNode()
	if root.HasError() {
		return nil, domain.NewParseError(filename, fmt.Errorf("syntax errors found in source code"))
	}
	return root, nil
}

func isComment(kind string) bool {
	return strings.Contains(kind, "comment")
}

// convertNode builds a generic Node from a tree-sitter node, dropping comments
func convertNode(n *sitter.Node, source []byte, config *LanguageConfig) *Node {
	node := &Node{
		Kind:      n.Type(),
		Named:     n.IsNamed(),
		StartByte: int(n.StartByte()),
		EndByte:   int(n.EndByte()),
		StartLine: int(n.StartPoint().Row) + 1,
		EndLine:   int(n.EndPoint().Row) + 1,
	}

	childCount := int(n.ChildCount())
	if childCount == 0 || config.ValueKinds[node.Kind] {
		if config.ValueKinds[node.Kind] {
			node.Text = n.Content(source)
		}
		if childCount == 0 {
			return node
		}
	}

	node.Children = make([]*Node, 0, childCount)
	for i := 0; i < childCount; i++ {
		child := n.Child(i)
		if child == nil || isComment(child.Type()) {
			continue
		}
		node.Children = append(node.Children, convertNode(child, source, config))
	}
	return node
}

// scope is one enclosing definition while walking the tree
type scope struct {
	name   string
	isType bool
	parent *scope
}

// enclosingType returns the type name when the innermost scope is a type.
// A function nested in a method does not belong to the class.
func (s *scope) enclosingType() string {
	if s != nil && s.isType {
		return s.name
	}
	return ""
}

func (s *scope) enclosingFunction() string {
	for cur := s; cur != nil; cur = cur.parent {
		if !cur.isType {
			return cur.name
		}
	}
	return ""
}

type extractor struct {
	config    *LanguageConfig
	source    []byte
	filename  string
	root      *Node
	functions []domain.FunctionDefinition
	types     []domain.TypeDefinition
}

func (e *extractor) walk(n *sitter.Node, current *scope) {
	kind := n.Type()

	// keywords such as "class" share their kind with the definition node
	if !n.IsNamed() {
		return
	}

	if fnKind, ok := e.config.FunctionKinds[kind]; ok {
		def := e.buildFunction(n, fnKind, current)
		e.functions = append(e.functions, def)
		current = &scope{name: def.Name, parent: current}
	} else if typeKind, ok := e.config.TypeKinds[kind]; ok {
		def := e.buildType(n, typeKind)
		e.types = append(e.types, def)
		current = &scope{name: def.Name, isType: true, parent: current}
	}

	childCount := int(n.ChildCount())
	for i := 0; i < childCount; i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		e.walk(child, current)
	}
}

func (e *extractor) buildFunction(n *sitter.Node, kind domain.FunctionKind, current *scope) domain.FunctionDefinition {
	name := e.definitionName(n)
	className := current.enclosingType()
	if className == "" && e.config.Language == LanguageGo && n.Type() == "method_declaration" {
		className = e.receiverType(n)
	}

	if className != "" && kind == domain.FunctionKindFunction {
		kind = domain.FunctionKindMethod
	}
	if className != "" && e.config.isConstructor(name) {
		kind = domain.FunctionKindConstructor
	}

	span := domain.Span{Start: int(n.StartByte()), End: int(n.EndByte())}
	bodySpan := span
	if body := n.ChildByFieldName(e.config.BodyField); body != nil {
		bodySpan = domain.Span{Start: int(body.StartByte()), End: int(body.EndByte())}
	}

	def := domain.FunctionDefinition{
		Name:           name,
		Kind:           kind,
		Parameters:     e.parameters(n),
		Span:           span,
		BodySpan:       bodySpan,
		StartLine:      int(n.StartPoint().Row) + 1,
		EndLine:        int(n.EndPoint().Row) + 1,
		ClassName:      className,
		ParentFunction: current.enclosingFunction(),
		FilePath:       e.filename,
		Language:       string(e.config.Language),
	}
	if body := e.root.FindBySpan(bodySpan.Start, bodySpan.End); body != nil {
		def.NodeCount = body.Size()
	}
	return def
}

func (e *extractor) buildType(n *sitter.Node, kind domain.TypeKind) domain.TypeDefinition {
	name := e.definitionName(n)

	// Go type_spec covers structs, interfaces and named types alike
	if e.config.Language == LanguageGo && n.Type() == "type_spec" {
		if t := n.ChildByFieldName("type"); t != nil && t.Type() == "interface_type" {
			kind = domain.TypeKindInterface
		} else if t != nil && t.Type() != "struct_type" {
			kind = domain.TypeKindAlias
		}
	}

	span := domain.Span{Start: int(n.StartByte()), End: int(n.EndByte())}
	bodySpan := span
	if body := n.ChildByFieldName(e.config.BodyField); body != nil {
		bodySpan = domain.Span{Start: int(body.StartByte()), End: int(body.EndByte())}
	}

	def := domain.TypeDefinition{
		Name:      name,
		Kind:      kind,
		Span:      span,
		BodySpan:  bodySpan,
		StartLine: int(n.StartPoint().Row) + 1,
		EndLine:   int(n.EndPoint().Row) + 1,
		FilePath:  e.filename,
		Language:  string(e.config.Language),
	}
	if node := e.root.FindBySpan(span.Start, span.End); node != nil {
		def.NodeCount = node.Size()
	}
	return def
}

// definitionName finds the name of a definition, falling back to the
// surrounding binding for anonymous functions
func (e *extractor) definitionName(n *sitter.Node) string {
	if nameNode := n.ChildByFieldName(e.config.NameField); nameNode != nil {
		if name := e.identifierIn(nameNode); name != "" {
			return name
		}
	}
	// Rust impl blocks are named after the implemented type
	if t := n.ChildByFieldName("type"); t != nil && n.Type() == "impl_item" {
		return t.Content(e.source)
	}

	parent := n.Parent()
	if parent == nil {
		return anonymousName
	}
	switch parent.Type() {
	case "variable_declarator", "pair", "public_field_definition", "field_definition", "let_declaration":
		for _, field := range []string{"name", "key", "property", "pattern"} {
			if c := parent.ChildByFieldName(field); c != nil {
				return c.Content(e.source)
			}
		}
	case "assignment_expression", "assignment":
		if left := parent.ChildByFieldName("left"); left != nil {
			return left.Content(e.source)
		}
	}
	return anonymousName
}

// identifierIn unwraps declarator chains (C, C++) down to the identifier
func (e *extractor) identifierIn(n *sitter.Node) string {
	for n != nil {
		switch n.Type() {
		case "function_declarator", "pointer_declarator", "reference_declarator", "parenthesized_declarator":
			inner := n.ChildByFieldName("declarator")
			if inner == nil {
				return n.Content(e.source)
			}
			n = inner
			continue
		}
		return n.Content(e.source)
	}
	return ""
}

func (e *extractor) receiverType(n *sitter.Node) string {
	receiver := n.ChildByFieldName("receiver")
	if receiver == nil {
		return ""
	}
	var found string
	walkSitter(receiver, func(c *sitter.Node) bool {
		if found != "" {
			return false
		}
		if c.Type() == "type_identifier" {
			found = c.Content(e.source)
			return false
		}
		return true
	})
	return found
}

func (e *extractor) parameters(n *sitter.Node) []string {
	params := n.ChildByFieldName(e.config.ParamsField)
	if params == nil {
		// C and C++ keep parameters on the function declarator
		if decl := n.ChildByFieldName("declarator"); decl != nil {
			for decl != nil && decl.Type() != "function_declarator" {
				decl = decl.ChildByFieldName("declarator")
			}
			if decl != nil {
				params = decl.ChildByFieldName("parameters")
			}
		}
	}
	if params == nil {
		// single-parameter arrow functions: x => x
		if single := n.ChildByFieldName("parameter"); single != nil {
			return []string{single.Content(e.source)}
		}
		return nil
	}

	var names []string
	count := int(params.NamedChildCount())
	for i := 0; i < count; i++ {
		child := params.NamedChild(i)
		if child == nil || isComment(child.Type()) {
			continue
		}
		if name := e.parameterName(child); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func (e *extractor) parameterName(n *sitter.Node) string {
	if strings.HasSuffix(n.Type(), "identifier") || n.Type() == "variable_name" {
		return n.Content(e.source)
	}
	for _, field := range []string{"name", "pattern", "declarator", "left"} {
		if c := n.ChildByFieldName(field); c != nil {
			return e.parameterName(c)
		}
	}
	var found string
	walkSitter(n, func(c *sitter.Node) bool {
		if found != "" {
			return false
		}
		if c.Type() == "identifier" || c.Type() == "variable_name" {
			found = c.Content(e.source)
			return false
		}
		return true
	})
	if found == "" {
		return n.Content(e.source)
	}
	return found
}

func walkSitter(n *sitter.Node, visit func(*sitter.Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		walkSitter(n.Child(i), visit)
	}
}
