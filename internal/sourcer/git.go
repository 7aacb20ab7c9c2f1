package sourcer

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"
)

// GitFetcher reads a file out of a git repository. URLs name the repository
// and the file separated by "//", with an optional ref:
//
//	git+https://github.com/acme/campaigns.git//spring/drive.yaml?ref=main
//	git+file:///srv/campaigns.git//drive.yaml
//
// Local repositories are opened in place. Remote ones are cloned into memory.
type GitFetcher struct {
	// tokens maps a host to the token used for HTTP basic auth.
	tokens map[string]string
}

// NewGitFetcher creates a new GitFetcher.
func NewGitFetcher(tokens map[string]string) *GitFetcher {
	return &GitFetcher{tokens: tokens}
}

type gitLocation struct {
	repo     *url.URL
	filePath string
	ref      string
}

func parseGitURL(rawURL string) (*gitLocation, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse url %s: %w", rawURL, err)
	}

	repoPath, filePath, ok := strings.Cut(u.Path, "//")
	if !ok || filePath == "" {
		return nil, fmt.Errorf("git url %s must name a file after '//'", rawURL)
	}

	return &gitLocation{
		repo: &url.URL{
			Scheme: strings.TrimPrefix(u.Scheme, "git+"),
			User:   u.User,
			Host:   u.Host,
			Path:   repoPath,
		},
		filePath: filePath,
		ref:      u.Query().Get("ref"),
	}, nil
}

// Fetch returns the file contents and the hash of the commit they were read from.
func (f *GitFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	loc, err := parseGitURL(rawURL)
	if err != nil {
		return nil, "", err
	}

	var (
		repo   *git.Repository
		commit plumbing.Hash
	)
	if loc.repo.Scheme == "file" {
		repo, err = git.PlainOpen(loc.repo.Path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open repository %s: %w", loc.repo.Path, err)
		}
		commit, err = resolve(repo, loc.ref)
	} else {
		repo, err = git.CloneContext(ctx, memory.NewStorage(), nil, f.cloneOptions(loc))
		if err != nil {
			return nil, "", fmt.Errorf("failed to clone repository %s: %w", loc.repo.Redacted(), err)
		}
		commit, err = resolve(repo, "")
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve '%s' in %s: %w", loc.ref, loc.repo.Redacted(), err)
	}

	c, err := repo.CommitObject(commit)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read commit %s: %w", commit, err)
	}
	file, err := c.File(loc.filePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to find %s at %s: %w", loc.filePath, commit, err)
	}
	contents, err := file.Contents()
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s at %s: %w", loc.filePath, commit, err)
	}

	return []byte(contents), commit.String(), nil
}

func (f *GitFetcher) cloneOptions(loc *gitLocation) *git.CloneOptions {
	opts := &git.CloneOptions{
		URL:   loc.repo.String(),
		Depth: 1,
	}
	if loc.ref != "" {
		opts.SingleBranch = true
		if strings.HasPrefix(loc.ref, "refs/") {
			opts.ReferenceName = plumbing.ReferenceName(loc.ref)
		} else {
			opts.ReferenceName = plumbing.NewBranchReferenceName(loc.ref)
		}
	}
	if token, ok := f.tokens[loc.repo.Hostname()]; ok {
		opts.Auth = basicAuth(token)
	}
	return opts
}

func basicAuth(token string) transport.AuthMethod {
	// Hosting providers ignore the username when the password is a token.
	return &githttp.BasicAuth{Username: "git", Password: token}
}

// resolve returns the commit ref points at, or HEAD when ref is empty.
func resolve(repo *git.Repository, ref string) (plumbing.Hash, error) {
	if ref == "" {
		head, err := repo.Head()
		if err != nil {
			return plumbing.ZeroHash, err
		}
		return head.Hash(), nil
	}
	h, err := repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return *h, nil
}
