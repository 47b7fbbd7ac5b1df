package app

import (
	"fmt"

	"github.com/ludo-technologies/simscan/domain"
	"github.com/ludo-technologies/simscan/internal/parser"
)

// ResolveFilePaths collects the supported source files under paths and keeps
// only those written in one of languages. An empty languages list keeps all.
func ResolveFilePaths(
	fileReader domain.FileReader,
	paths []string,
	recursive bool,
	includePatterns []string,
	excludePatterns []string,
	languages []string,
) ([]string, error) {
	files, err := fileReader.CollectSourceFiles(paths, recursive, includePatterns, excludePatterns)
	if err != nil {
		return nil, err
	}
	return filterByLanguage(files, languages)
}

func filterByLanguage(files []string, languages []string) ([]string, error) {
	if len(languages) == 0 {
		return files, nil
	}

	allowed := make(map[parser.Language]bool, len(languages))
	for _, name := range languages {
		lang, ok := parser.ParseLanguage(name)
		if !ok {
			return nil, domain.NewInvalidConfigurationError(fmt.Sprintf("unknown language: %s", name))
		}
		allowed[lang] = true
		// .tsx files are TypeScript as far as users are concerned
		if lang == parser.LanguageTypeScript {
			allowed[parser.LanguageTSX] = true
		}
	}

	kept := make([]string, 0, len(files))
	for _, file := range files {
		if lang, ok := parser.DetectLanguage(file); ok && allowed[lang] {
			kept = append(kept, file)
		}
	}
	return kept, nil
}
