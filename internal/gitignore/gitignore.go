// Package gitignore matches relative paths against gitignore-style patterns.
//
// Simple-mode templates use it to honour a .templateignore file at the
// template root. The supported syntax follows https://git-scm.com/docs/gitignore:
// comments, negation, directory-only patterns (trailing slash), rooted
// patterns (a slash anywhere but the end), and the *, ?, ** and [] globs.
//
//	m := gitignore.New("*.log", "!keep.log", "/build/")
//	m.Match("logs/err.log", false) // true
package gitignore

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// FileName is the ignore file read from a template root.
const FileName = ".templateignore"

// Matcher holds compiled patterns. Later patterns take precedence over
// earlier ones. A Matcher is immutable once built and safe to share.
type Matcher struct {
	rules []rule
}

type rule struct {
	source  string
	re      *regexp.Regexp
	negate  bool
	dirOnly bool
}

// New compiles patterns into a Matcher. Blank lines and comments are skipped.
func New(patterns ...string) *Matcher {
	m := &Matcher{}
	for _, p := range patterns {
		if r, ok := compile(p); ok {
			m.rules = append(m.rules, r)
		}
	}
	return m
}

// Parse reads one pattern per line.
func Parse(r io.Reader) (*Matcher, error) {
	var patterns []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ignore patterns: %w", err)
	}
	return New(patterns...), nil
}

// Load reads FileName from dir. A missing file yields an empty Matcher.
func Load(dir string) (*Matcher, error) {
	f, err := os.Open(filepath.Join(dir, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", FileName, err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Len returns the number of effective patterns.
func (m *Matcher) Len() int {
	return len(m.rules)
}

// Match reports whether rel, a slash- or OS-separated path relative to the
// pattern root, is ignored. A path inside an ignored directory is ignored
// even if a later pattern re-includes it, as in git.
func (m *Matcher) Match(rel string, isDir bool) bool {
	rel = strings.Trim(filepath.ToSlash(filepath.Clean(rel)), "/")
	if rel == "" || rel == "." || len(m.rules) == 0 {
		return false
	}

	parts := strings.Split(rel, "/")
	for i := 1; i < len(parts); i++ {
		if m.state(strings.Join(parts[:i], "/"), true) {
			return true
		}
	}
	return m.state(rel, isDir)
}

// state applies every rule to one path; the last matching rule wins.
func (m *Matcher) state(p string, isDir bool) bool {
	ignored := false
	for _, r := range m.rules {
		if r.dirOnly && !isDir {
			continue
		}
		if r.re.MatchString(p) {
			ignored = !r.negate
		}
	}
	return ignored
}

func compile(line string) (rule, bool) {
	// A trailing "\ " keeps its space; other trailing whitespace is dropped
	p := strings.TrimLeft(line, " \t")
	if strings.HasSuffix(p, `\ `) {
		p = strings.TrimRight(strings.TrimSuffix(p, `\ `), " \t") + `\ `
	} else {
		p = strings.TrimRight(p, " \t\r")
	}
	if p == "" || strings.HasPrefix(p, "#") {
		return rule{}, false
	}

	r := rule{source: p}
	switch {
	case strings.HasPrefix(p, "!"):
		r.negate = true
		p = p[1:]
	case strings.HasPrefix(p, `\!`), strings.HasPrefix(p, `\#`):
		p = p[1:]
	}

	if strings.HasSuffix(p, "/") {
		r.dirOnly = true
		p = strings.TrimRight(p, "/")
	}
	if p == "" {
		return rule{}, false
	}

	rooted := strings.Contains(p, "/")
	p = strings.TrimPrefix(p, "/")

	var expr strings.Builder
	expr.WriteString("^")
	if !rooted {
		expr.WriteString("(?:.*/)?")
	}
	expr.WriteString(translate(p))
	expr.WriteString("$")

	re, err := regexp.Compile(expr.String())
	if err != nil {
		return rule{}, false
	}
	r.re = re
	return r, true
}

// translate converts glob syntax into a regular expression body.
func translate(p string) string {
	var b strings.Builder
	for i := 0; i < len(p); i++ {
		c := p[i]
		switch {
		case strings.HasPrefix(p[i:], "**/"):
			b.WriteString("(?:.*/)?")
			i += 2
		case strings.HasPrefix(p[i:], "/**") && i+3 == len(p):
			b.WriteString("/.*")
			i += 2
		case strings.HasPrefix(p[i:], "**"):
			b.WriteString(".*")
			i++
		case c == '*':
			b.WriteString("[^/]*")
		case c == '?':
			b.WriteString("[^/]")
		case c == '[':
			end := strings.IndexByte(p[i+1:], ']')
			if end < 0 {
				b.WriteString(`\[`)
				continue
			}
			class := p[i+1 : i+1+end]
			if strings.HasPrefix(class, "!") {
				class = "^" + class[1:]
			}
			b.WriteString("[" + strings.ReplaceAll(class, `\`, `\\`) + "]")
			i += end + 1
		case c == '\\' && i+1 < len(p):
			i++
			b.WriteString(regexp.QuoteMeta(string(p[i])))
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	return b.String()
}
