package parser

import (
	"strings"

	"github.com/ludo-technologies/simscan/domain"
)

// LanguageConfig tells the generic tree-sitter front end which node kinds of a
// grammar are functions, types and value-carrying leaves.
type LanguageConfig struct {
	Language Language

	// FunctionKinds maps a function-like node kind to its definition kind
	FunctionKinds map[string]domain.FunctionKind

	// TypeKinds maps a type-like node kind to its definition kind
	TypeKinds map[string]domain.TypeKind

	// ValueKinds are leaves whose source text is kept as the tree node value
	ValueKinds map[string]bool

	// Field names used to locate parts of a definition
	NameField   string
	ParamsField string
	BodyField   string

	// ConstructorNames are method names treated as constructors
	ConstructorNames []string

	// Test detection by function name
	TestPrefixes []string
	TestSuffixes []string
}

// IsTestFunction reports whether a function name looks like a test
func (c *LanguageConfig) IsTestFunction(name string) bool {
	for _, prefix := range c.TestPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	for _, suffix := range c.TestSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func (c *LanguageConfig) isConstructor(name string) bool {
	for _, ctor := range c.ConstructorNames {
		if name == ctor {
			return true
		}
	}
	return false
}

func kindSet(kinds ...string) map[string]bool {
	set := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	return set
}

var jsFunctionKinds = map[string]domain.FunctionKind{
	"function_declaration":           domain.FunctionKindFunction,
	"generator_function_declaration": domain.FunctionKindFunction,
	"function_expression":            domain.FunctionKindFunction,
	"function":                       domain.FunctionKindFunction,
	"arrow_function":                 domain.FunctionKindArrow,
	"method_definition":              domain.FunctionKindMethod,
}

var jsValueKinds = kindSet(
	"identifier", "property_identifier", "shorthand_property_identifier",
	"string", "string_fragment", "template_string", "number",
	"true", "false", "null", "undefined", "regex_pattern",
)

func javascriptConfig() *LanguageConfig {
	return &LanguageConfig{
		Language:      LanguageJavaScript,
		FunctionKinds: jsFunctionKinds,
		TypeKinds: map[string]domain.TypeKind{
			"class_declaration": domain.TypeKindClass,
		},
		ValueKinds:       jsValueKinds,
		NameField:        "name",
		ParamsField:      "parameters",
		BodyField:        "body",
		ConstructorNames: []string{"constructor"},
		TestPrefixes:     []string{"test"},
	}
}

func typescriptConfig(lang Language) *LanguageConfig {
	valueKinds := kindSet("type_identifier", "predefined_type")
	for k := range jsValueKinds {
		valueKinds[k] = true
	}
	return &LanguageConfig{
		Language:      lang,
		FunctionKinds: jsFunctionKinds,
		TypeKinds: map[string]domain.TypeKind{
			"class_declaration":          domain.TypeKindClass,
			"abstract_class_declaration": domain.TypeKindClass,
			"interface_declaration":      domain.TypeKindInterface,
			"type_alias_declaration":     domain.TypeKindAlias,
			"enum_declaration":           domain.TypeKindEnum,
		},
		ValueKinds:       valueKinds,
		NameField:        "name",
		ParamsField:      "parameters",
		BodyField:        "body",
		ConstructorNames: []string{"constructor"},
		TestPrefixes:     []string{"test"},
	}
}

func pythonConfig() *LanguageConfig {
	return &LanguageConfig{
		Language: LanguagePython,
		FunctionKinds: map[string]domain.FunctionKind{
			"function_definition": domain.FunctionKindFunction,
		},
		TypeKinds: map[string]domain.TypeKind{
			"class_definition": domain.TypeKindClass,
		},
		ValueKinds: kindSet(
			"identifier", "string", "string_content", "integer", "float",
			"true", "false", "none",
		),
		NameField:        "name",
		ParamsField:      "parameters",
		BodyField:        "body",
		ConstructorNames: []string{"__init__"},
		TestPrefixes:     []string{"test_"},
		TestSuffixes:     []string{"_test"},
	}
}

func goConfig() *LanguageConfig {
	return &LanguageConfig{
		Language: LanguageGo,
		FunctionKinds: map[string]domain.FunctionKind{
			"function_declaration": domain.FunctionKindFunction,
			"method_declaration":   domain.FunctionKindMethod,
			"func_literal":         domain.FunctionKindClosure,
		},
		TypeKinds: map[string]domain.TypeKind{
			"type_spec":  domain.TypeKindStruct,
			"type_alias": domain.TypeKindAlias,
		},
		ValueKinds: kindSet(
			"identifier", "field_identifier", "type_identifier", "package_identifier",
			"interpreted_string_literal", "raw_string_literal", "rune_literal",
			"int_literal", "float_literal", "true", "false", "nil",
		),
		NameField:    "name",
		ParamsField:  "parameters",
		BodyField:    "body",
		TestPrefixes: []string{"Test", "Benchmark", "Fuzz", "Example"},
	}
}

func rustConfig() *LanguageConfig {
	return &LanguageConfig{
		Language: LanguageRust,
		FunctionKinds: map[string]domain.FunctionKind{
			"function_item":      domain.FunctionKindFunction,
			"closure_expression": domain.FunctionKindClosure,
		},
		TypeKinds: map[string]domain.TypeKind{
			"struct_item": domain.TypeKindStruct,
			"enum_item":   domain.TypeKindEnum,
			"trait_item":  domain.TypeKindInterface,
			"impl_item":   domain.TypeKindImpl,
			"type_item":   domain.TypeKindAlias,
		},
		ValueKinds: kindSet(
			"identifier", "field_identifier", "type_identifier",
			"string_literal", "char_literal", "integer_literal", "float_literal",
			"boolean_literal",
		),
		NameField:        "name",
		ParamsField:      "parameters",
		BodyField:        "body",
		ConstructorNames: []string{"new"},
		TestPrefixes:     []string{"test_"},
	}
}

func javaConfig() *LanguageConfig {
	return &LanguageConfig{
		Language: LanguageJava,
		FunctionKinds: map[string]domain.FunctionKind{
			"method_declaration":      domain.FunctionKindMethod,
			"constructor_declaration": domain.FunctionKindConstructor,
			"lambda_expression":       domain.FunctionKindLambda,
		},
		TypeKinds: map[string]domain.TypeKind{
			"class_declaration":     domain.TypeKindClass,
			"interface_declaration": domain.TypeKindInterface,
			"enum_declaration":      domain.TypeKindEnum,
			"record_declaration":    domain.TypeKindClass,
		},
		ValueKinds: kindSet(
			"identifier", "type_identifier", "string_literal",
			"decimal_integer_literal", "hex_integer_literal", "decimal_floating_point_literal",
			"character_literal", "true", "false", "null_literal",
		),
		NameField:    "name",
		ParamsField:  "parameters",
		BodyField:    "body",
		TestPrefixes: []string{"test"},
		TestSuffixes: []string{"Test"},
	}
}

func cConfig(lang Language) *LanguageConfig {
	cfg := &LanguageConfig{
		Language: lang,
		FunctionKinds: map[string]domain.FunctionKind{
			"function_definition": domain.FunctionKindFunction,
		},
		TypeKinds: map[string]domain.TypeKind{
			"struct_specifier": domain.TypeKindStruct,
			"enum_specifier":   domain.TypeKindEnum,
		},
		ValueKinds: kindSet(
			"identifier", "field_identifier", "type_identifier",
			"string_literal", "string_content", "char_literal", "number_literal",
			"true", "false", "null",
		),
		NameField:    "declarator",
		ParamsField:  "parameters",
		BodyField:    "body",
		TestPrefixes: []string{"test_"},
		TestSuffixes: []string{"_test"},
	}
	if lang == LanguageCpp {
		cfg.FunctionKinds["lambda_expression"] = domain.FunctionKindLambda
		cfg.TypeKinds["class_specifier"] = domain.TypeKindClass
		cfg.ValueKinds["nullptr"] = true
		cfg.ValueKinds["namespace_identifier"] = true
		cfg.TestPrefixes = append(cfg.TestPrefixes, "Test")
	}
	return cfg
}

func csharpConfig() *LanguageConfig {
	return &LanguageConfig{
		Language: LanguageCSharp,
		FunctionKinds: map[string]domain.FunctionKind{
			"method_declaration":       domain.FunctionKindMethod,
			"constructor_declaration":  domain.FunctionKindConstructor,
			"local_function_statement": domain.FunctionKindFunction,
			"lambda_expression":        domain.FunctionKindLambda,
		},
		TypeKinds: map[string]domain.TypeKind{
			"class_declaration":     domain.TypeKindClass,
			"interface_declaration": domain.TypeKindInterface,
			"struct_declaration":    domain.TypeKindStruct,
			"enum_declaration":      domain.TypeKindEnum,
			"record_declaration":    domain.TypeKindClass,
		},
		ValueKinds: kindSet(
			"identifier", "string_literal", "character_literal", "integer_literal",
			"real_literal", "boolean_literal", "null_literal",
		),
		NameField:    "name",
		ParamsField:  "parameters",
		BodyField:    "body",
		TestPrefixes: []string{"Test"},
		TestSuffixes: []string{"Test", "Tests"},
	}
}

func rubyConfig() *LanguageConfig {
	return &LanguageConfig{
		Language: LanguageRuby,
		FunctionKinds: map[string]domain.FunctionKind{
			"method":           domain.FunctionKindMethod,
			"singleton_method": domain.FunctionKindMethod,
		},
		TypeKinds: map[string]domain.TypeKind{
			"class":  domain.TypeKindClass,
			"module": domain.TypeKindModule,
		},
		ValueKinds: kindSet(
			"identifier", "constant", "instance_variable", "string_content",
			"integer", "float", "simple_symbol", "true", "false", "nil",
		),
		NameField:        "name",
		ParamsField:      "parameters",
		BodyField:        "body",
		ConstructorNames: []string{"initialize"},
		TestPrefixes:     []string{"test_"},
		TestSuffixes:     []string{"_test"},
	}
}

func phpConfig() *LanguageConfig {
	return &LanguageConfig{
		Language: LanguagePHP,
		FunctionKinds: map[string]domain.FunctionKind{
			"function_definition": domain.FunctionKindFunction,
			"method_declaration":  domain.FunctionKindMethod,
			"arrow_function":      domain.FunctionKindArrow,
		},
		TypeKinds: map[string]domain.TypeKind{
			"class_declaration":     domain.TypeKindClass,
			"interface_declaration": domain.TypeKindInterface,
			"trait_declaration":     domain.TypeKindInterface,
			"enum_declaration":      domain.TypeKindEnum,
		},
		ValueKinds: kindSet(
			"name", "variable_name", "string", "string_value", "encapsed_string",
			"integer", "float", "boolean", "null",
		),
		NameField:        "name",
		ParamsField:      "parameters",
		BodyField:        "body",
		ConstructorNames: []string{"__construct"},
		TestPrefixes:     []string{"test"},
		TestSuffixes:     []string{"Test"},
	}
}

// ConfigFor returns the front-end configuration for a language
func ConfigFor(lang Language) (*LanguageConfig, bool) {
	switch lang {
	case LanguageJavaScript:
		return javascriptConfig(), true
	case LanguageTypeScript, LanguageTSX:
		return typescriptConfig(lang), true
	case LanguagePython:
		return pythonConfig(), true
	case LanguageGo:
		return goConfig(), true
	case LanguageRust:
		return rustConfig(), true
	case LanguageJava:
		return javaConfig(), true
	case LanguageC, LanguageCpp:
		return cConfig(lang), true
	case LanguageCSharp:
		return csharpConfig(), true
	case LanguageRuby:
		return rubyConfig(), true
	case LanguagePHP:
		return phpConfig(), true
	}
	return nil, false
}
