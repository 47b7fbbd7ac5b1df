package analyzer

import "strings"

// NodeCategory groups tree-sitter node kinds of all supported grammars into
// language-independent buckets.
type NodeCategory int

const (
	CategoryOther NodeCategory = iota
	CategoryIf
	CategoryLoop
	CategorySwitch
	CategoryTry
	CategoryReturn
	CategoryCall
	CategoryFunction
	CategoryAssignment
	CategoryComparison
	CategoryLogical
	CategoryArithmetic
	CategoryMember
	CategoryDeclaration
	CategoryIdentifier
	CategoryLiteral
)

var arithmeticOperators = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true, "**": true,
	"&": true, "|": true, "^": true, "<<": true, ">>": true, "++": true, "--": true,
}

var comparisonOperators = map[string]bool{
	"==": true, "!=": true, "===": true, "!==": true,
	"<": true, ">": true, "<=": true, ">=": true, "<=>": true,
}

var logicalOperators = map[string]bool{
	"&&": true, "||": true, "!": true, "and": true, "or": true, "not": true, "??": true,
}

var assignmentOperators = map[string]bool{
	"=": true, ":=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
}

// IsOperator reports whether a label is an operator token
func IsOperator(label string) bool {
	return arithmeticOperators[label] || comparisonOperators[label] || logicalOperators[label]
}

// CategorizeNode maps a node kind to its category. Matching is done on kind
// substrings so every grammar lands in the same buckets.
func CategorizeNode(kind string) NodeCategory {
	switch {
	case strings.HasPrefix(kind, "if_") || strings.HasPrefix(kind, "elif_") ||
		strings.HasPrefix(kind, "else_if") || kind == "unless":
		return CategoryIf
	case strings.HasPrefix(kind, "for_") || strings.HasPrefix(kind, "foreach") ||
		strings.Contains(kind, "while") || strings.Contains(kind, "loop") ||
		strings.HasPrefix(kind, "do_statement") || kind == "until" || kind == "range_clause":
		return CategoryLoop
	case strings.Contains(kind, "switch") || strings.HasPrefix(kind, "match_") ||
		strings.Contains(kind, "case") || strings.Contains(kind, "conditional_expression") ||
		strings.Contains(kind, "ternary") || strings.HasPrefix(kind, "select_statement"):
		return CategorySwitch
	case strings.Contains(kind, "try") || strings.Contains(kind, "throw") ||
		strings.Contains(kind, "raise") || strings.Contains(kind, "catch") ||
		strings.Contains(kind, "except") || strings.Contains(kind, "rescue"):
		return CategoryTry
	case strings.Contains(kind, "return"):
		return CategoryReturn
	case strings.Contains(kind, "call") || strings.Contains(kind, "invocation") ||
		strings.Contains(kind, "new_expression") || strings.Contains(kind, "object_creation"):
		return CategoryCall
	case strings.Contains(kind, "function") || strings.Contains(kind, "method") ||
		strings.Contains(kind, "lambda") || strings.Contains(kind, "closure") ||
		strings.Contains(kind, "func_literal") || strings.Contains(kind, "constructor"):
		return CategoryFunction
	case strings.Contains(kind, "assignment") || assignmentOperators[kind]:
		return CategoryAssignment
	case comparisonOperators[kind] || strings.Contains(kind, "comparison"):
		return CategoryComparison
	case logicalOperators[kind] || strings.Contains(kind, "boolean_operator") || strings.Contains(kind, "logical"):
		return CategoryLogical
	case arithmeticOperators[kind] || strings.Contains(kind, "binary") || strings.Contains(kind, "unary") ||
		strings.Contains(kind, "update_expression"):
		return CategoryArithmetic
	case strings.Contains(kind, "member") || strings.Contains(kind, "field_expression") ||
		strings.Contains(kind, "attribute") || strings.Contains(kind, "subscript") ||
		strings.Contains(kind, "index_expression") || strings.Contains(kind, "selector_expression") ||
		strings.Contains(kind, "array") || strings.Contains(kind, "object") ||
		strings.Contains(kind, "dictionary") || strings.Contains(kind, "list"):
		return CategoryMember
	case strings.Contains(kind, "declaration") || strings.Contains(kind, "declarator") ||
		strings.Contains(kind, "definition") || strings.HasPrefix(kind, "let_") ||
		strings.Contains(kind, "var_spec") || strings.Contains(kind, "const_spec"):
		return CategoryDeclaration
	case strings.Contains(kind, "identifier") || kind == "name" || kind == "constant" || kind == "variable_name":
		return CategoryIdentifier
	case strings.Contains(kind, "literal") || strings.Contains(kind, "string") ||
		strings.Contains(kind, "number") || strings.Contains(kind, "integer") ||
		strings.Contains(kind, "float") || kind == "true" || kind == "false" ||
		kind == "null" || kind == "nil" || kind == "none" || kind == "undefined":
		return CategoryLiteral
	}
	return CategoryOther
}

// categoryWeight is the importance of a category in fingerprint comparison
func categoryWeight(category NodeCategory) float64 {
	switch category {
	case CategoryIf, CategoryLoop:
		return 2.0
	case CategorySwitch:
		return 1.8
	case CategoryFunction, CategoryTry:
		return 1.5
	case CategoryCall:
		return 1.3
	case CategoryArithmetic:
		return 1.2
	case CategoryComparison:
		return 1.1
	case CategoryAssignment, CategoryLogical:
		return 1.0
	case CategoryMember:
		return 0.9
	case CategoryDeclaration:
		return 0.8
	case CategoryIdentifier, CategoryLiteral:
		return 0.5
	}
	return 0.3
}

// isControlFlow reports whether a category branches or loops
func isControlFlow(category NodeCategory) bool {
	return category == CategoryIf || category == CategoryLoop || category == CategorySwitch
}
