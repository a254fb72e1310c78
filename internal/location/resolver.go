package location

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	amerrors "github.com/Aman-CERP/amantmpl/internal/errors"
)

// DefaultCacheSize is the number of remote checkouts kept per Resolver.
const DefaultCacheSize = 16

// Fetcher materializes a remote repository into a local directory.
// The returned directory is owned by the caller, which removes it when done.
type Fetcher interface {
	Fetch(ctx context.Context, ref RepoRef) (string, error)
}

// Resolver turns a Location into a local path.
//
// Remote checkouts are cached by repo_ref, so a template whose records all
// point into one repository fetches it once. Evicted checkouts are removed
// from disk. Checkouts made by ResolvePinned are never evicted. Resolver is
// not safe for concurrent use.
type Resolver struct {
	fetcher Fetcher
	cache   *lru.Cache[string, string]
	pinned  map[string]string
	logger  *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for fetch diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a Resolver. fetcher may be nil when only local
// locations are expected; resolving a remote location then fails.
func NewResolver(fetcher Fetcher, cacheSize int, opts ...Option) *Resolver {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	r := &Resolver{
		fetcher: fetcher,
		pinned:  make(map[string]string),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	cache, _ := lru.NewWithEvict[string, string](cacheSize, func(ref, dir string) {
		if err := os.RemoveAll(dir); err != nil {
			r.logger.Warn("failed to remove fetched checkout",
				slog.String("repo_ref", ref),
				slog.String("dir", dir),
				slog.String("error", err.Error()))
		}
	})
	r.cache = cache
	return r
}

// Resolve returns the local path for loc. Relative local paths are joined
// to baseDir. Existence is not checked here; the merge engine reports
// missing sources.
func (r *Resolver) Resolve(ctx context.Context, loc Location, baseDir string) (string, error) {
	return r.resolve(ctx, loc, baseDir, false)
}

// ResolvePinned is Resolve, except that a remote checkout it makes stays on
// disk until Close. Use it for a template root that other locations are
// resolved against.
func (r *Resolver) ResolvePinned(ctx context.Context, loc Location, baseDir string) (string, error) {
	return r.resolve(ctx, loc, baseDir, true)
}

func (r *Resolver) resolve(ctx context.Context, loc Location, baseDir string, pin bool) (string, error) {
	switch loc.Type {
	case TypeLocal:
		path := loc.Path
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		return filepath.Clean(path), nil

	case TypeGitHub:
		return r.resolveRemote(ctx, loc, pin)

	default:
		// Parse rejects unknown schemes; reaching this is a programming error
		return "", amerrors.New(amerrors.ErrCodeInternal,
			fmt.Sprintf("unresolvable location type %q", loc.Type), nil)
	}
}

func (r *Resolver) resolveRemote(ctx context.Context, loc Location, pin bool) (string, error) {
	ref, err := ParseRepoRef(loc.RepoRef)
	if err != nil {
		return "", err
	}

	checkout, ok := r.pinned[loc.RepoRef]
	if !ok && !pin {
		checkout, ok = r.cache.Get(loc.RepoRef)
	}
	if !ok {
		if r.fetcher == nil {
			return "", amerrors.New(amerrors.ErrCodeRemoteFetchFailed,
				fmt.Sprintf("no fetcher configured for %s", loc.RepoRef), nil)
		}

		r.logger.Debug("fetching remote template", slog.String("repo_ref", loc.RepoRef))
		checkout, err = r.fetcher.Fetch(ctx, ref)
		if err != nil {
			if amerrors.HasCode(err, amerrors.ErrCodeRemoteFetchFailed) {
				return "", err
			}
			return "", amerrors.New(amerrors.ErrCodeRemoteFetchFailed,
				fmt.Sprintf("failed to fetch %s", loc.RepoRef), err).
				WithDetail("repo_ref", loc.RepoRef)
		}
		if pin {
			r.pinned[loc.RepoRef] = checkout
		} else {
			r.cache.Add(loc.RepoRef, checkout)
		}
	}

	path, err := withinDir(checkout, loc.Path)
	if err != nil {
		return "", amerrors.New(amerrors.ErrCodeRemoteFetchFailed,
			fmt.Sprintf("path %q escapes repository %s", loc.Path, loc.RepoRef), err)
	}
	if _, err := os.Stat(path); err != nil {
		return "", amerrors.New(amerrors.ErrCodeRemoteFetchFailed,
			fmt.Sprintf("path %q not found in %s", loc.Path, loc.RepoRef), err).
			WithDetail("repo_ref", loc.RepoRef)
	}
	return path, nil
}

// Close removes every cached and pinned checkout.
func (r *Resolver) Close() error {
	r.cache.Purge()
	for ref, dir := range r.pinned {
		if err := os.RemoveAll(dir); err != nil {
			r.logger.Warn("failed to remove fetched checkout",
				slog.String("repo_ref", ref),
				slog.String("dir", dir),
				slog.String("error", err.Error()))
		}
		delete(r.pinned, ref)
	}
	return nil
}

// withinDir joins rel to dir and rejects results outside dir.
func withinDir(dir, rel string) (string, error) {
	joined := filepath.Join(dir, filepath.FromSlash(rel))
	back, err := filepath.Rel(dir, joined)
	if err != nil {
		return "", err
	}
	if back == ".." || strings.HasPrefix(back, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", joined, dir)
	}
	return joined, nil
}
