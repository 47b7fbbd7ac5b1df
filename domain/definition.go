package domain

import "fmt"

// FunctionKind classifies an extracted function-like definition
type FunctionKind string

const (
	FunctionKindFunction    FunctionKind = "function"
	FunctionKindMethod      FunctionKind = "method"
	FunctionKindConstructor FunctionKind = "constructor"
	FunctionKindArrow       FunctionKind = "arrow"
	FunctionKindClosure     FunctionKind = "closure"
	FunctionKindLambda      FunctionKind = "lambda"
)

// TypeKind classifies an extracted type-like definition
type TypeKind string

const (
	TypeKindClass     TypeKind = "class"
	TypeKindStruct    TypeKind = "struct"
	TypeKindInterface TypeKind = "interface"
	TypeKindEnum      TypeKind = "enum"
	TypeKindAlias     TypeKind = "alias"
	TypeKindModule    TypeKind = "module"
	TypeKindImpl      TypeKind = "impl"
)

// Span is a half-open byte range [Start, End) into a source file
type Span struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Len returns the number of bytes covered by the span
func (s Span) Len() int {
	return s.End - s.Start
}

// StrictlyContains reports whether s covers other and is larger than it
func (s Span) StrictlyContains(other Span) bool {
	if s.Start > other.Start || s.End < other.End {
		return false
	}
	return s.Start != other.Start || s.End != other.End
}

// FunctionDefinition describes a function, method or closure found by a front end
type FunctionDefinition struct {
	Name           string       `json:"name" yaml:"name"`
	Kind           FunctionKind `json:"kind" yaml:"kind"`
	Parameters     []string     `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Span           Span         `json:"span" yaml:"span"`
	BodySpan       Span         `json:"body_span" yaml:"body_span"`
	StartLine      int          `json:"start_line" yaml:"start_line"`
	EndLine        int          `json:"end_line" yaml:"end_line"`
	ClassName      string       `json:"class_name,omitempty" yaml:"class_name,omitempty"`
	ParentFunction string       `json:"parent_function,omitempty" yaml:"parent_function,omitempty"`
	NodeCount      int          `json:"node_count,omitempty" yaml:"node_count,omitempty"`
	FilePath       string       `json:"file_path" yaml:"file_path"`
	Language       string       `json:"language" yaml:"language"`
}

// LineCount returns the number of source lines covered by the definition
func (f *FunctionDefinition) LineCount() int {
	return f.EndLine - f.StartLine + 1
}

// QualifiedName returns Class.name for methods and the plain name otherwise
func (f *FunctionDefinition) QualifiedName() string {
	if f.ClassName != "" {
		return f.ClassName + "." + f.Name
	}
	return f.Name
}

// Location returns file:start-end
func (f *FunctionDefinition) Location() string {
	return fmt.Sprintf("%s:%d-%d", f.FilePath, f.StartLine, f.EndLine)
}

// TypeDefinition describes a class, struct, interface or alias found by a front end
type TypeDefinition struct {
	Name      string   `json:"name" yaml:"name"`
	Kind      TypeKind `json:"kind" yaml:"kind"`
	Span      Span     `json:"span" yaml:"span"`
	BodySpan  Span     `json:"body_span" yaml:"body_span"`
	StartLine int      `json:"start_line" yaml:"start_line"`
	EndLine   int      `json:"end_line" yaml:"end_line"`
	NodeCount int      `json:"node_count,omitempty" yaml:"node_count,omitempty"`
	FilePath  string   `json:"file_path" yaml:"file_path"`
	Language  string   `json:"language" yaml:"language"`
}

// LineCount returns the number of source lines covered by the definition
func (t *TypeDefinition) LineCount() int {
	return t.EndLine - t.StartLine + 1
}

// Location returns file:start-end
func (t *TypeDefinition) Location() string {
	return fmt.Sprintf("%s:%d-%d", t.FilePath, t.StartLine, t.EndLine)
}
