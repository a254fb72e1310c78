package location

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	amerrors "github.com/Aman-CERP/amantmpl/internal/errors"
)

// DefaultGitHubURL is the clone base for github: locations.
const DefaultGitHubURL = "https://github.com"

// GitFetcher materializes repositories with the git CLI.
// It performs a shallow clone into a fresh temp directory and never retries;
// authentication is whatever git itself is configured with.
type GitFetcher struct {
	gitBinary string
	baseURL   string
	tempDir   string

	execCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
	lookPath    func(file string) (string, error)
}

// NewGitFetcher creates a fetcher. Empty arguments fall back to "git",
// DefaultGitHubURL and the system temp directory.
func NewGitFetcher(gitBinary, baseURL, tempDir string) *GitFetcher {
	if gitBinary == "" {
		gitBinary = "git"
	}
	if baseURL == "" {
		baseURL = DefaultGitHubURL
	}
	return &GitFetcher{
		gitBinary:   gitBinary,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		tempDir:     tempDir,
		execCommand: exec.CommandContext,
		lookPath:    exec.LookPath,
	}
}

// CloneURL returns the URL cloned for ref.
func (f *GitFetcher) CloneURL(ref RepoRef) string {
	return fmt.Sprintf("%s/%s/%s.git", f.baseURL, ref.Owner, ref.Repo)
}

// Fetch clones ref and returns the checkout directory.
func (f *GitFetcher) Fetch(ctx context.Context, ref RepoRef) (string, error) {
	gitPath, err := f.lookPath(f.gitBinary)
	if err != nil {
		return "", amerrors.New(amerrors.ErrCodeRemoteFetchFailed,
			fmt.Sprintf("git binary %q not found", f.gitBinary), err).
			WithSuggestion("Install git or set remote.git_binary in the user config")
	}

	dir, err := os.MkdirTemp(f.tempDir, "amantmpl-"+ref.Repo+"-")
	if err != nil {
		return "", amerrors.New(amerrors.ErrCodeRemoteFetchFailed,
			"failed to create checkout directory", err)
	}

	if err := f.checkout(ctx, gitPath, ref, dir); err != nil {
		_ = os.RemoveAll(dir)
		return "", amerrors.New(amerrors.ErrCodeRemoteFetchFailed,
			fmt.Sprintf("git fetch of %s failed: %s", ref, err.Error()), err).
			WithDetail("url", f.CloneURL(ref)).
			WithSuggestion("Check the repository name, ref and your git credentials")
	}

	return dir, nil
}

// checkout places ref into dir. Branches and tags are shallow-cloned;
// commit hashes, which clone --branch rejects, are fetched into a fresh
// repository and checked out detached.
func (f *GitFetcher) checkout(ctx context.Context, gitPath string, ref RepoRef, dir string) error {
	url := f.CloneURL(ref)
	if !IsCommitHash(ref.Ref) {
		args := []string{"clone", "--quiet", "--depth", "1"}
		if ref.Ref != "" {
			args = append(args, "--branch", ref.Ref)
		}
		return f.git(ctx, gitPath, append(args, url, dir)...)
	}

	steps := [][]string{
		{"init", "--quiet", dir},
		{"-C", dir, "fetch", "--quiet", "--depth", "1", url, ref.Ref},
		{"-C", dir, "checkout", "--quiet", "--detach", "FETCH_HEAD"},
	}
	for _, args := range steps {
		if err := f.git(ctx, gitPath, args...); err != nil {
			return err
		}
	}
	return nil
}

// git runs one git command, returning its stderr as the error text.
func (f *GitFetcher) git(ctx context.Context, gitPath string, args ...string) error {
	var stderr bytes.Buffer
	cmd := f.execCommand(ctx, gitPath, args...)
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return err
		}
		return fmt.Errorf("%s: %w", msg, err)
	}
	return nil
}

// IsCommitHash reports whether ref is a full SHA-1 or SHA-256 commit hash.
// Abbreviated hashes cannot be fetched from a remote and are treated as
// branch or tag names.
func IsCommitHash(ref string) bool {
	if len(ref) != 40 && len(ref) != 64 {
		return false
	}
	for _, c := range ref {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}
