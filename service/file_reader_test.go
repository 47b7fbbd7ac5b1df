package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helpers
func createTestFile(t *testing.T, dirPath, fileName, content string) string {
	t.Helper()
	filePath := filepath.Join(dirPath, fileName)

	err := os.MkdirAll(filepath.Dir(filePath), 0o755)
	require.NoError(t, err)

	err = os.WriteFile(filePath, []byte(content), 0o644)
	require.NoError(t, err)

	return filePath
}

func createTestDirectoryStructure(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()

	createTestFile(t, tmpDir, "main.go", "package main\n")
	createTestFile(t, tmpDir, "util.ts", "export const x = 1;\n")
	createTestFile(t, tmpDir, "README.md", "# readme\n")
	createTestFile(t, tmpDir, "sub/deep.py", "def f():\n    pass\n")
	createTestFile(t, tmpDir, "node_modules/lib/index.js", "module.exports = {};\n")
	createTestFile(t, tmpDir, "vendor/dep/dep.go", "package dep\n")
	createTestFile(t, tmpDir, ".git/hooks/hook.rb", "puts 1\n")
	createTestFile(t, tmpDir, ".eslintrc.js", "module.exports = {};\n")

	return tmpDir
}

func TestFileReader_CollectSourceFiles(t *testing.T) {
	tmpDir := createTestDirectoryStructure(t)
	fr := NewFileReader()

	tests := []struct {
		name      string
		paths     []string
		recursive bool
		include   []string
		exclude   []string
		expected  []string
	}{
		{
			name:      "recursive skips hidden and vendor directories",
			paths:     []string{tmpDir},
			recursive: true,
			expected:  []string{"main.go", "sub/deep.py", "util.ts"},
		},
		{
			name:      "non-recursive stays at the top level",
			paths:     []string{tmpDir},
			recursive: false,
			expected:  []string{"main.go", "util.ts"},
		},
		{
			name:      "include patterns",
			paths:     []string{tmpDir},
			recursive: true,
			include:   []string{"*.go", "*.py"},
			expected:  []string{"main.go", "sub/deep.py"},
		},
		{
			name:      "exclude patterns",
			paths:     []string{tmpDir},
			recursive: true,
			exclude:   []string{"sub/**"},
			expected:  []string{"main.go", "util.ts"},
		},
		{
			name:      "explicit file bypasses the skip list",
			paths:     []string{filepath.Join(tmpDir, "node_modules", "lib", "index.js")},
			recursive: true,
			expected:  []string{"node_modules/lib/index.js"},
		},
		{
			name:      "duplicate paths are collected once",
			paths:     []string{filepath.Join(tmpDir, "main.go"), tmpDir + "/./main.go"},
			recursive: true,
			expected:  []string{"main.go"},
		},
		{
			name:      "unsupported explicit file is ignored",
			paths:     []string{filepath.Join(tmpDir, "README.md")},
			recursive: true,
			expected:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := fr.CollectSourceFiles(tt.paths, tt.recursive, tt.include, tt.exclude)
			require.NoError(t, err)

			rel := make([]string, 0, len(files))
			for _, f := range files {
				r, err := filepath.Rel(tmpDir, f)
				require.NoError(t, err)
				rel = append(rel, filepath.ToSlash(r))
			}
			assert.Equal(t, tt.expected, rel)
		})
	}
}

func TestFileReader_CollectSourceFiles_MissingPath(t *testing.T) {
	fr := NewFileReader()

	_, err := fr.CollectSourceFiles([]string{filepath.Join(t.TempDir(), "missing")}, true, nil, nil)
	assert.Error(t, err)
}

func TestFileReader_ReadFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := createTestFile(t, tmpDir, "a.go", "package a\n")
	fr := NewFileReader()

	content, err := fr.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "package a\n", string(content))

	_, err = fr.ReadFile(filepath.Join(tmpDir, "missing.go"))
	assert.Error(t, err)
}

func TestFileReader_IsSupportedFile(t *testing.T) {
	fr := NewFileReader()

	tests := []struct {
		path     string
		expected bool
	}{
		{"main.go", true},
		{"app.tsx", true},
		{"lib.RS", true},
		{"Program.cs", true},
		{"index.mjs", true},
		{"notes.txt", false},
		{"Makefile", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, fr.IsSupportedFile(tt.path))
		})
	}
}

func TestFileReader_shouldSkipDirectory(t *testing.T) {
	fr := NewFileReader()

	for _, name := range []string{"node_modules", "vendor", "target", "dist", "build", ".git", ".venv", "Node_Modules"} {
		assert.True(t, fr.shouldSkipDirectory(name), name)
	}
	for _, name := range []string{"src", "internal", "pkg", "lib"} {
		assert.False(t, fr.shouldSkipDirectory(name), name)
	}
}

func TestFileReader_ValidatePaths(t *testing.T) {
	tmpDir := t.TempDir()
	fr := NewFileReader()

	assert.NoError(t, fr.ValidatePaths([]string{tmpDir}))
	assert.Error(t, fr.ValidatePaths([]string{tmpDir, filepath.Join(tmpDir, "nope")}))
}
