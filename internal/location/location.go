// Package location parses content-location descriptors and resolves them to
// local paths that the merge engine can read from.
//
// A descriptor has the form scheme:{repo_ref:}path where scheme is "local"
// or "github". Remote descriptors carry a repo_ref of the form
// owner/repo[@ref]:
//
//	local:/home/me/templates/go-service
//	local:files/gitignore
//	github:acme/templates@v2:go/service
package location

import (
	"fmt"
	"strings"

	amerrors "github.com/Aman-CERP/amantmpl/internal/errors"
)

// Type is the scheme of a content location.
type Type string

const (
	// TypeLocal is a filesystem path.
	TypeLocal Type = "local"
	// TypeGitHub is a path inside a GitHub repository.
	TypeGitHub Type = "github"
)

// ValidTypes lists the accepted location schemes.
var ValidTypes = []Type{TypeLocal, TypeGitHub}

// IsValid reports whether t is a known scheme.
func (t Type) IsValid() bool {
	for _, v := range ValidTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Location is a parsed content_location.
type Location struct {
	// Type is the first colon-delimited segment.
	Type Type
	// RepoRef is the second segment, set only for remote schemes.
	RepoRef string
	// Path is the remaining path. It may contain colons.
	Path string
}

// Parse splits a content_location into its derived fields.
func Parse(s string) (Location, error) {
	s = strings.TrimSpace(s)
	scheme, rest, found := strings.Cut(s, ":")
	loc := Location{Type: Type(scheme)}

	if !found || !loc.Type.IsValid() {
		return Location{}, amerrors.New(amerrors.ErrCodeInvalidLocationType,
			fmt.Sprintf("invalid location type %q in %q", scheme, s), nil).
			WithDetail("content_location", s).
			WithSuggestion("Use local:<path> or github:<owner>/<repo>[@ref]:<path>")
	}

	switch loc.Type {
	case TypeGitHub:
		ref, path, _ := strings.Cut(rest, ":")
		if _, err := ParseRepoRef(ref); err != nil {
			return Location{}, err
		}
		loc.RepoRef = ref
		loc.Path = path
	default:
		if rest == "" {
			return Location{}, amerrors.New(amerrors.ErrCodeMalformedDefinition,
				fmt.Sprintf("content location %q has no path", s), nil).
				WithDetail("content_location", s)
		}
		loc.Path = rest
	}

	return loc, nil
}

// String renders the location back into descriptor form.
func (l Location) String() string {
	if l.Type == TypeGitHub {
		if l.Path == "" {
			return fmt.Sprintf("%s:%s", l.Type, l.RepoRef)
		}
		return fmt.Sprintf("%s:%s:%s", l.Type, l.RepoRef, l.Path)
	}
	return fmt.Sprintf("%s:%s", l.Type, l.Path)
}

// IsRemote reports whether resolving the location needs a fetch.
func (l Location) IsRemote() bool {
	return l.Type == TypeGitHub
}

// RepoRef identifies a remote repository and an optional ref.
type RepoRef struct {
	Owner string
	Repo  string
	// Ref is a branch, a tag or a full commit hash. Empty means the
	// default branch.
	Ref string
}

// ParseRepoRef parses owner/repo[@ref].
func ParseRepoRef(s string) (RepoRef, error) {
	repoPart, ref, hasRef := strings.Cut(s, "@")
	owner, repo, ok := strings.Cut(repoPart, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") || (hasRef && ref == "") {
		return RepoRef{}, amerrors.New(amerrors.ErrCodeMalformedDefinition,
			fmt.Sprintf("invalid repository reference %q", s), nil).
			WithSuggestion("Use owner/repo or owner/repo@ref")
	}
	return RepoRef{Owner: owner, Repo: repo, Ref: ref}, nil
}

// String renders owner/repo[@ref].
func (r RepoRef) String() string {
	if r.Ref == "" {
		return r.Owner + "/" + r.Repo
	}
	return r.Owner + "/" + r.Repo + "@" + r.Ref
}
