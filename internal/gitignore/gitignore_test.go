package gitignore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_Match(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		path     string
		isDir    bool
		expected bool
	}{
		{name: "exact filename", patterns: []string{"foo.txt"}, path: "foo.txt", expected: true},
		{name: "filename in subdir", patterns: []string{"foo.txt"}, path: "a/b/foo.txt", expected: true},
		{name: "different filename", patterns: []string{"foo.txt"}, path: "bar.txt", expected: false},
		{name: "extension glob", patterns: []string{"*.log"}, path: "logs/error.log", expected: true},
		{name: "star stays in segment", patterns: []string{"a*c"}, path: "ab/c", expected: false},
		{name: "question mark", patterns: []string{"file?.txt"}, path: "file1.txt", expected: true},
		{name: "question mark one char", patterns: []string{"file?.txt"}, path: "file12.txt", expected: false},
		{name: "character class", patterns: []string{"[abc].md"}, path: "b.md", expected: true},
		{name: "negated class", patterns: []string{"[!abc].md"}, path: "b.md", expected: false},
		{name: "rooted only at root", patterns: []string{"/build"}, path: "src/build", expected: false},
		{name: "rooted at root", patterns: []string{"/build"}, path: "build", isDir: true, expected: true},
		{name: "inner slash is rooted", patterns: []string{"doc/frotz"}, path: "a/doc/frotz", expected: false},
		{name: "dir only skips files", patterns: []string{"tmp/"}, path: "tmp", expected: false},
		{name: "dir only matches dirs", patterns: []string{"tmp/"}, path: "x/tmp", isDir: true, expected: true},
		{name: "files under ignored dir", patterns: []string{"tmp/"}, path: "tmp/a/b.go", expected: true},
		{name: "leading double star", patterns: []string{"**/fixtures"}, path: "a/b/fixtures", isDir: true, expected: true},
		{name: "trailing double star", patterns: []string{"vendor/**"}, path: "vendor/x/y.go", expected: true},
		{name: "middle double star", patterns: []string{"a/**/z"}, path: "a/b/c/z", expected: true},
		{name: "middle double star zero dirs", patterns: []string{"a/**/z"}, path: "a/z", expected: true},
		{name: "negation re-includes", patterns: []string{"*.log", "!keep.log"}, path: "keep.log", expected: false},
		{name: "last rule wins", patterns: []string{"!keep.log", "*.log"}, path: "keep.log", expected: true},
		{name: "negation cannot escape ignored dir", patterns: []string{"out/", "!out/keep"}, path: "out/keep", expected: true},
		{name: "escaped hash", patterns: []string{`\#notes`}, path: "#notes", expected: true},
		{name: "escaped bang", patterns: []string{`\!important`}, path: "!important", expected: true},
		{name: "escaped trailing space", patterns: []string{`sp\ `}, path: "sp ", expected: true},
		{name: "dots are literal", patterns: []string{"a.b"}, path: "axb", expected: false},
		{name: "os separators", patterns: []string{"gen/"}, path: filepath.Join("src", "gen", "x.go"), expected: true},
		{name: "root itself is never ignored", patterns: []string{"*"}, path: ".", isDir: true, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(tt.patterns...)
			assert.Equal(t, tt.expected, m.Match(tt.path, tt.isDir))
		})
	}
}

func TestNew_SkipsCommentsAndBlanks(t *testing.T) {
	m := New("", "   ", "# comment", "*.tmp", "/", "!")
	assert.Equal(t, 1, m.Len())
}

func TestParse_ReadsLines(t *testing.T) {
	// Given: an ignore file with CRLF endings
	m, err := Parse(strings.NewReader("# local build output\r\nbin/\r\n*.swp\r\n"))
	require.NoError(t, err)

	// Then: both patterns apply
	assert.Equal(t, 2, m.Len())
	assert.True(t, m.Match("bin/tool", false))
	assert.True(t, m.Match(".main.go.swp", false))
	assert.False(t, m.Match("main.go", false))
}

func TestLoad(t *testing.T) {
	t.Run("missing file yields empty matcher", func(t *testing.T) {
		m, err := Load(t.TempDir())
		require.NoError(t, err)
		assert.Zero(t, m.Len())
		assert.False(t, m.Match("anything", false))
	})

	t.Run("reads templateignore", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("README.template.md\n"), 0o644))

		m, err := Load(dir)
		require.NoError(t, err)
		assert.True(t, m.Match("README.template.md", false))
	})
}
