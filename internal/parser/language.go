package parser

import (
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language identifies a supported source language
type Language string

const (
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguageTSX        Language = "tsx"
	LanguagePython     Language = "python"
	LanguageGo         Language = "go"
	LanguageRust       Language = "rust"
	LanguageJava       Language = "java"
	LanguageC          Language = "c"
	LanguageCpp        Language = "cpp"
	LanguageCSharp     Language = "csharp"
	LanguageRuby       Language = "ruby"
	LanguagePHP        Language = "php"
)

var extensionLanguages = map[string]Language{
	".js":   LanguageJavaScript,
	".jsx":  LanguageJavaScript,
	".mjs":  LanguageJavaScript,
	".cjs":  LanguageJavaScript,
	".ts":   LanguageTypeScript,
	".mts":  LanguageTypeScript,
	".cts":  LanguageTypeScript,
	".tsx":  LanguageTSX,
	".py":   LanguagePython,
	".pyi":  LanguagePython,
	".go":   LanguageGo,
	".rs":   LanguageRust,
	".java": LanguageJava,
	".c":    LanguageC,
	".h":    LanguageC,
	".cc":   LanguageCpp,
	".cpp":  LanguageCpp,
	".cxx":  LanguageCpp,
	".hpp":  LanguageCpp,
	".hh":   LanguageCpp,
	".cs":   LanguageCSharp,
	".rb":   LanguageRuby,
	".php":  LanguagePHP,
}

// DetectLanguage maps a file name to its language by extension
func DetectLanguage(filename string) (Language, bool) {
	lang, ok := extensionLanguages[strings.ToLower(filepath.Ext(filename))]
	return lang, ok
}

// ParseLanguage converts a user supplied name ("ts", "golang", "c++"...) into a Language
func ParseLanguage(name string) (Language, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "javascript", "js", "jsx":
		return LanguageJavaScript, true
	case "typescript", "ts":
		return LanguageTypeScript, true
	case "tsx":
		return LanguageTSX, true
	case "python", "py":
		return LanguagePython, true
	case "go", "golang":
		return LanguageGo, true
	case "rust", "rs":
		return LanguageRust, true
	case "java":
		return LanguageJava, true
	case "c":
		return LanguageC, true
	case "cpp", "c++", "cxx":
		return LanguageCpp, true
	case "csharp", "c#", "cs":
		return LanguageCSharp, true
	case "ruby", "rb":
		return LanguageRuby, true
	case "php":
		return LanguagePHP, true
	}
	return "", false
}

// SupportedExtensions returns all recognised file extensions in sorted order
func SupportedExtensions() []string {
	exts := make([]string, 0, len(extensionLanguages))
	for ext := range extensionLanguages {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func grammarFor(lang Language) *sitter.Language {
	switch lang {
	case LanguageJavaScript:
		return javascript.GetLanguage()
	case LanguageTypeScript:
		return typescript.GetLanguage()
	case LanguageTSX:
		return tsx.GetLanguage()
	case LanguagePython:
		return python.GetLanguage()
	case LanguageGo:
		return golang.GetLanguage()
	case LanguageRust:
		return rust.GetLanguage()
	case LanguageJava:
		return java.GetLanguage()
	case LanguageC:
		return c.GetLanguage()
	case LanguageCpp:
		return cpp.GetLanguage()
	case LanguageCSharp:
		return csharp.GetLanguage()
	case LanguageRuby:
		return ruby.GetLanguage()
	case LanguagePHP:
		return php.GetLanguage()
	}
	return nil
}
