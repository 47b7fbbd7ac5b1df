package service

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ludo-technologies/simscan/domain"
	"github.com/ludo-technologies/simscan/internal/parser"
)

// FileReaderImpl implements the FileReader interface
type FileReaderImpl struct{}

// NewFileReader creates a new file reader service
func NewFileReader() *FileReaderImpl {
	return &FileReaderImpl{}
}

// CollectSourceFiles finds every file with a supported language extension in
// the given paths. Explicitly named files bypass the directory skip list.
func (f *FileReaderImpl) CollectSourceFiles(paths []string, recursive bool, includePatterns, excludePatterns []string) ([]string, error) {
	if err := f.validatePatterns(includePatterns, "include"); err != nil {
		return nil, err
	}
	if err := f.validatePatterns(excludePatterns, "exclude"); err != nil {
		return nil, err
	}

	var files []string
	seen := make(map[string]bool)

	add := func(path string) {
		clean := filepath.Clean(path)
		if !seen[clean] {
			seen[clean] = true
			files = append(files, clean)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, domain.NewFileNotFoundError(path, err)
		}

		if info.IsDir() {
			dirFiles, err := f.collectFromDirectory(path, recursive, includePatterns, excludePatterns)
			if err != nil {
				return nil, err
			}
			for _, file := range dirFiles {
				add(file)
			}
		} else if f.IsSupportedFile(path) && f.shouldIncludeFile(path, includePatterns, excludePatterns) {
			add(path)
		}
	}

	sort.Strings(files)
	return files, nil
}

// ReadFile reads the content of a file
func (f *FileReaderImpl) ReadFile(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewFileNotFoundError(path, err)
	}
	return content, nil
}

// IsSupportedFile checks if a file has a supported language extension
func (f *FileReaderImpl) IsSupportedFile(path string) bool {
	_, ok := parser.DetectLanguage(path)
	return ok
}

func (f *FileReaderImpl) collectFromDirectory(dirPath string, recursive bool, includePatterns, excludePatterns []string) ([]string, error) {
	var files []string

	walkFunc := func(path string, d os.DirEntry, err error) error {
		if err != nil {
			// unreadable entries are skipped
			return nil
		}

		if d.IsDir() {
			if path == dirPath {
				return nil
			}
			if !recursive || f.shouldSkipDirectory(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if f.IsSupportedFile(path) && f.shouldIncludeFile(path, includePatterns, excludePatterns) {
			files = append(files, path)
		}
		return nil
	}

	if err := filepath.WalkDir(dirPath, walkFunc); err != nil {
		return nil, fmt.Errorf("failed to walk directory %s: %w", dirPath, err)
	}

	return files, nil
}

// shouldIncludeFile applies the exclude patterns first, then the include patterns
func (f *FileReaderImpl) shouldIncludeFile(path string, includePatterns, excludePatterns []string) bool {
	for _, pattern := range excludePatterns {
		if f.matchesPattern(pattern, path) {
			return false
		}
	}
	if len(includePatterns) == 0 {
		return true
	}
	for _, pattern := range includePatterns {
		if f.matchesPattern(pattern, path) {
			return true
		}
	}
	return false
}

// matchesPattern matches a doublestar pattern against the path and, for
// relative patterns, against every trailing sub-path
func (f *FileReaderImpl) matchesPattern(pattern, path string) bool {
	slashed := filepath.ToSlash(path)
	if matched, _ := doublestar.Match(pattern, slashed); matched {
		return true
	}
	if strings.HasPrefix(pattern, "/") {
		return false
	}
	for i := 0; i < len(slashed); i++ {
		if slashed[i] != '/' {
			continue
		}
		if matched, _ := doublestar.Match(pattern, slashed[i+1:]); matched {
			return true
		}
	}
	return false
}

func (f *FileReaderImpl) validatePatterns(patterns []string, patternType string) error {
	for _, pattern := range patterns {
		if err := f.validatePattern(pattern); err != nil {
			return domain.NewInvalidInputError(fmt.Sprintf("invalid %s pattern '%s': %v", patternType, pattern, err), nil)
		}
	}
	return nil
}

func (f *FileReaderImpl) validatePattern(pattern string) error {
	if strings.TrimSpace(pattern) == "" {
		return fmt.Errorf("empty pattern")
	}
	if !doublestar.ValidatePattern(filepath.ToSlash(pattern)) {
		return fmt.Errorf("malformed glob syntax")
	}
	return nil
}

var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"target":       true,
	"dist":         true,
	"build":        true,
	"__pycache__":  true,
	"venv":         true,
}

// shouldSkipDirectory skips hidden and vendor-like directories
func (f *FileReaderImpl) shouldSkipDirectory(dirName string) bool {
	if strings.HasPrefix(dirName, ".") {
		return true
	}
	return skipDirs[strings.ToLower(dirName)]
}

// ValidatePaths validates that all provided paths exist and are accessible
func (f *FileReaderImpl) ValidatePaths(paths []string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return domain.NewFileNotFoundError(path, err)
			}
			return domain.NewInvalidInputError(fmt.Sprintf("cannot access path: %s", path), err)
		}
	}
	return nil
}
