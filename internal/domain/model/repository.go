package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRepoName is returned when a repository name is not "owner/repo".
var ErrInvalidRepoName = errors.New("invalid repository name")

// Repository identifies a GitHub repository whose checks are tracked.
type Repository struct {
	Owner   string
	Name    string
	HTMLURL string // Base web URL, e.g. "https://github.com/octocat/hello-world". Optional.
}

// ParseRepository builds a Repository from "owner/repo". htmlURL may be empty.
func ParseRepository(fullName, htmlURL string) (Repository, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || strings.Contains(parts[1], "/") {
		return Repository{}, fmt.Errorf("%w: %q: expected owner/repo", ErrInvalidRepoName, fullName)
	}
	return Repository{
		Owner:   parts[0],
		Name:    parts[1],
		HTMLURL: strings.TrimSuffix(htmlURL, "/"),
	}, nil
}

// FullName returns "owner/name".
func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

// PullRequestURL returns the web URL of the given pull request, or an empty
// string when the repository has no base URL.
func (r Repository) PullRequestURL(prNumber int) string {
	if r.HTMLURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/pull/%d", r.HTMLURL, prNumber)
}
